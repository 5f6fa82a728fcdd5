package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_report_service/internal/config"
	"github.com/shenikar/incident_report_service/internal/models"
	"github.com/shenikar/incident_report_service/internal/webhook"
	"github.com/sirupsen/logrus"
)

// Порядок сортировки по created_at
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// StatusFilterAll - значение фильтра, возвращающее инциденты всех статусов
const StatusFilterAll = "all"

// SubmitReport - данные нового обращения от пользователя
type SubmitReport struct {
	Type        models.ReportType
	Title       string
	Description string
	Location    string
}

// ListQuery - параметры выборки для административной панели
type ListQuery struct {
	Status string // pending | approved | rejected | all
	Search string // подстрочный поиск по title/description/location без учета регистра
	Order  string // asc | desc, по умолчанию desc
	Page   int    // нумерация с 1
}

// IncidentFilter - фильтр уровня репозитория
type IncidentFilter struct {
	Status    models.ReportStatus // пустое значение - все статусы
	Search    string
	Ascending bool
	Limit     int
	Offset    int
}

// IncidentPage - страница выборки вместе с полным количеством
type IncidentPage struct {
	Rows       []*models.Incident `json:"rows"`
	TotalCount int                `json:"total_count"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

// IncidentRepository определяет контракт для работы с бд инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	// UpdateStatus обновляет статус только у инцидента в состоянии pending,
	// возвращает ErrNotFound если guarded-условие не совпало
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) (*models.Incident, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBatch(ctx context.Context, ids []uuid.UUID) (int64, error)
	List(ctx context.Context, filter IncidentFilter) ([]*models.Incident, int, error)
	CountByStatus(ctx context.Context) (map[models.ReportStatus]int, error)
	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
}

// IncidentService определяет контракт бизнес-логики модерации инцидентов
type IncidentService interface {
	Submit(ctx context.Context, actor *models.User, report SubmitReport) (*models.Incident, error)
	GetReport(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Incident, error)
	List(ctx context.Context, actor *models.User, query ListQuery) (*IncidentPage, error)
	PublicFeed(ctx context.Context, page int) (*IncidentPage, error)
	SetStatus(ctx context.Context, actor *models.User, id uuid.UUID, newStatus models.ReportStatus) (*models.Incident, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
	BulkDelete(ctx context.Context, actor *models.User, ids []uuid.UUID) (int, error)
	StatusCounts(ctx context.Context, actor *models.User) (map[models.ReportStatus]int, error)
}

type incidentService struct {
	repo      IncidentRepository
	logger    *logrus.Logger
	cfg       *config.Config
	publisher webhook.ModerationPublisher
}

func NewIncidentService(repo IncidentRepository, logger *logrus.Logger, cfg *config.Config, publisher webhook.ModerationPublisher) IncidentService {
	return &incidentService{
		repo:      repo,
		logger:    logger,
		cfg:       cfg,
		publisher: publisher,
	}
}

// requireAdmin проверяет право администратора у действующего пользователя
func requireAdmin(actor *models.User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// Submit создает обращение от аутентифицированного пользователя.
// Новый инцидент всегда получает статус pending.
func (s *incidentService) Submit(ctx context.Context, actor *models.User, report SubmitReport) (*models.Incident, error) {
	if actor == nil {
		return nil, fmt.Errorf("service: submit report: %w", ErrUnauthenticated)
	}

	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "Submit",
		"user_id": actor.ID,
		"type":    report.Type,
	})

	if err := validateReport(report); err != nil {
		log.WithError(err).Warn("Report validation failed")
		return nil, err
	}

	incident := &models.Incident{
		UserID:      actor.ID,
		Type:        report.Type,
		Title:       strings.TrimSpace(report.Title),
		Description: strings.TrimSpace(report.Description),
		Location:    strings.TrimSpace(report.Location),
		Status:      models.StatusPending,
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}

	log.WithField("incident_id", incident.ID).Info("Incident submitted")
	return incident, nil
}

// validateReport проверяет обязательные поля и принадлежность типа закрытому перечню
func validateReport(report SubmitReport) error {
	if !report.Type.IsValid() {
		return fmt.Errorf("service: unknown report type %q: %w", report.Type, ErrValidation)
	}
	if strings.TrimSpace(report.Title) == "" {
		return fmt.Errorf("service: title must not be empty: %w", ErrValidation)
	}
	if strings.TrimSpace(report.Description) == "" {
		return fmt.Errorf("service: description must not be empty: %w", ErrValidation)
	}
	if strings.TrimSpace(report.Location) == "" {
		return fmt.Errorf("service: location must not be empty: %w", ErrValidation)
	}
	return nil
}

// GetReport возвращает инцидент по ID.
// Администратор видит инцидент в любом статусе, остальные - только approved.
func (s *incidentService) GetReport(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetReport",
		"incident_id": id,
	})

	incident, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		// Промах кеша не фатален, идем в бд
		log.WithError(err).Warn("Failed to read incident from cache")
	}

	if incident == nil {
		incident, err = s.repo.GetByID(ctx, id)
		if err != nil {
			log.WithError(err).Warn("Failed to get incident")
			return nil, fmt.Errorf("service: could not get incident: %w", err)
		}
		if cacheErr := s.repo.SetIncidentCache(ctx, incident); cacheErr != nil {
			log.WithError(cacheErr).Warn("Failed to cache incident")
		}
	}

	if !actor.IsAdmin() && incident.Status != models.StatusApproved {
		// Немодерированные инциденты для публики не существуют
		return nil, fmt.Errorf("service: incident %s is not published: %w", id, ErrNotFound)
	}

	return incident, nil
}

// List возвращает страницу инцидентов для административной панели.
// Полная (не ограниченная approved) выборка доступна только администратору.
func (s *incidentService) List(ctx context.Context, actor *models.User, query ListQuery) (*IncidentPage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("service: list incidents: %w", err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "List",
		"status":  query.Status,
		"page":    query.Page,
	})

	filter, err := s.buildFilter(query)
	if err != nil {
		log.WithError(err).Warn("Invalid list query")
		return nil, err
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	filter.Offset = (page - 1) * s.cfg.PageSize

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(rows)).Info("Incidents listed")
	return s.newPage(rows, total, page), nil
}

// buildFilter переводит параметры запроса в фильтр репозитория
func (s *incidentService) buildFilter(query ListQuery) (IncidentFilter, error) {
	filter := IncidentFilter{
		Search: strings.TrimSpace(query.Search),
		Limit:  s.cfg.PageSize,
	}

	switch query.Status {
	case "", StatusFilterAll:
		// без фильтра по статусу
	default:
		status := models.ReportStatus(query.Status)
		if !status.IsValid() {
			return filter, fmt.Errorf("service: unknown status filter %q: %w", query.Status, ErrValidation)
		}
		filter.Status = status
	}

	switch query.Order {
	case OrderAsc:
		filter.Ascending = true
	case "", OrderDesc:
		filter.Ascending = false
	default:
		return filter, fmt.Errorf("service: unknown sort order %q: %w", query.Order, ErrValidation)
	}

	return filter, nil
}

// newPage собирает страницу выборки; total_pages считается минимум как 1
func (s *incidentService) newPage(rows []*models.Incident, total, page int) *IncidentPage {
	totalPages := int(math.Ceil(float64(total) / float64(s.cfg.PageSize)))
	if totalPages < 1 {
		totalPages = 1
	}
	return &IncidentPage{
		Rows:       rows,
		TotalCount: total,
		Page:       page,
		PageSize:   s.cfg.PageSize,
		TotalPages: totalPages,
	}
}

// PublicFeed возвращает страницу одобренных инцидентов, новые первыми.
// Права не требуются: лента жестко ограничена статусом approved.
func (s *incidentService) PublicFeed(ctx context.Context, page int) (*IncidentPage, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "PublicFeed",
		"page":    page,
	})

	if page < 1 {
		page = 1
	}

	filter := IncidentFilter{
		Status: models.StatusApproved,
		Limit:  s.cfg.PageSize,
		Offset: (page - 1) * s.cfg.PageSize,
	}

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list approved incidents")
		return nil, fmt.Errorf("service: could not list feed: %w", err)
	}

	return s.newPage(rows, total, page), nil
}

// SetStatus переводит инцидент из pending в approved или rejected.
// Любой другой переход отклоняется с ErrInvalidTransition.
func (s *incidentService) SetStatus(ctx context.Context, actor *models.User, id uuid.UUID, newStatus models.ReportStatus) (*models.Incident, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("service: set status: %w", err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "SetStatus",
		"incident_id": id,
		"new_status":  newStatus,
	})

	if newStatus != models.StatusApproved && newStatus != models.StatusRejected {
		log.Warn("Requested status is not a moderation decision")
		return nil, fmt.Errorf("service: status %q is not a moderation decision: %w", newStatus, ErrValidation)
	}

	// Читаем напрямую из бд, решение о переходе нельзя принимать по кешу
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to moderate a non-existent incident")
		return nil, fmt.Errorf("service: incident %s not found for status update: %w", id, err)
	}

	if !existing.Status.CanTransitionTo(newStatus) {
		log.WithField("current_status", existing.Status).Warn("Rejected invalid status transition")
		return nil, fmt.Errorf("service: cannot transition %s from %s to %s: %w",
			id, existing.Status, newStatus, ErrInvalidTransition)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, newStatus)
	if err != nil {
		// Guarded-условие в UPDATE не совпало: статус сменили параллельно
		if errors.Is(err, ErrNotFound) {
			log.Warn("Incident left pending state concurrently")
			return nil, fmt.Errorf("service: incident %s already moderated: %w", id, ErrInvalidTransition)
		}
		log.WithError(err).Error("Failed to update incident status in repository")
		return nil, fmt.Errorf("service: could not update status: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	if newStatus == models.StatusApproved {
		s.publishApproval(ctx, log, updated)
	}

	log.Info("Incident status updated")
	return updated, nil
}

// publishApproval ставит событие одобрения в очередь вебхуков.
// Сбой публикации не откатывает модерацию, только логируется.
func (s *incidentService) publishApproval(ctx context.Context, log *logrus.Entry, incident *models.Incident) {
	event := webhook.ModerationEvent{
		IncidentID: incident.ID,
		Status:     string(incident.Status),
		Type:       string(incident.Type),
		Title:      incident.Title,
		Location:   incident.Location,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Error("Failed to publish moderation event")
		return
	}
	log.Debug("Moderation event published")
}

// Delete безвозвратно удаляет инцидент.
// При включенном DeleteApprovedOnly удаление доступно только для approved.
func (s *incidentService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return fmt.Errorf("service: delete incident: %w", err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "Delete",
		"incident_id": id,
	})

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to delete a non-existent incident")
		return fmt.Errorf("service: incident %s not found for delete: %w", id, err)
	}

	if s.cfg.DeleteApprovedOnly && existing.Status != models.StatusApproved {
		log.WithField("status", existing.Status).Warn("Deletion restricted to approved incidents")
		return fmt.Errorf("service: deletion is restricted to approved incidents: %w", ErrValidation)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		log.WithError(err).Error("Failed to delete incident in repository")
		return fmt.Errorf("service: could not delete incident: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Failed to invalidate incident cache")
	}

	log.Info("Incident deleted")
	return nil
}

// BulkDelete удаляет все существующие инциденты из набора идентификаторов.
// Несуществующие идентификаторы молча пропускаются, возвращается число удаленных.
func (s *incidentService) BulkDelete(ctx context.Context, actor *models.User, ids []uuid.UUID) (int, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, fmt.Errorf("service: bulk delete: %w", err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "BulkDelete",
		"ids":     len(ids),
	})

	if len(ids) == 0 {
		return 0, nil
	}

	deleted, err := s.repo.DeleteBatch(ctx, ids)
	if err != nil {
		log.WithError(err).Error("Failed to bulk delete incidents in repository")
		return 0, fmt.Errorf("service: could not bulk delete incidents: %w", err)
	}

	for _, id := range ids {
		if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
			log.WithError(err).Warn("Failed to invalidate incident cache")
		}
	}

	log.WithField("deleted", deleted).Info("Incidents bulk deleted")
	return int(deleted), nil
}

// StatusCounts возвращает количество инцидентов по каждому статусу.
// Считается отдельным агрегирующим запросом по всей таблице,
// а не по строкам текущей страницы.
func (s *incidentService) StatusCounts(ctx context.Context, actor *models.User) (map[models.ReportStatus]int, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, fmt.Errorf("service: status counts: %w", err)
	}

	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "StatusCounts",
	})

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to count incidents by status")
		return nil, fmt.Errorf("service: could not count incidents: %w", err)
	}

	return counts, nil
}
