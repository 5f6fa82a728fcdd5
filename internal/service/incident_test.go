package service_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_report_service/internal/config"
	"github.com/shenikar/incident_report_service/internal/models"
	"github.com/shenikar/incident_report_service/internal/service"
	"github.com/shenikar/incident_report_service/internal/service/mocks"
	"github.com/shenikar/incident_report_service/internal/webhook"
	webhook_mocks "github.com/shenikar/incident_report_service/internal/webhook/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestIncidentService — вспомогательная функция для создания инстанса сервиса с моками.
func newTestIncidentService(t *testing.T) (service.IncidentService, *mocks.MockIncidentRepository, *webhook_mocks.MockModerationPublisher, *config.Config) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockIncidentRepository(ctrl)
	publisherMock := webhook_mocks.NewMockModerationPublisher(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		PageSize: 8,
	}

	svc := service.NewIncidentService(repoMock, logger, cfg, publisherMock)
	return svc, repoMock, publisherMock, cfg
}

func resident() *models.User {
	return &models.User{ID: uuid.New(), Email: "resident@example.com", Role: models.RoleResident}
}

func admin() *models.User {
	return &models.User{ID: uuid.New(), Email: "admin@example.com", Role: models.RoleAdmin}
}

func TestSubmit_Success(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	actor := resident()
	report := service.SubmitReport{
		Type:        models.TypeTheft,
		Title:       "Bike stolen",
		Description: "Locked bike taken from porch",
		Location:    "5th & Elm",
	}

	// Ожидания
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		DoAndReturn(func(ctx context.Context, inc *models.Incident) error {
			// Симулируем, что БД присвоила ID и временные метки
			inc.ID = uuid.New()
			inc.CreatedAt = time.Now()
			inc.UpdatedAt = inc.CreatedAt
			return nil
		}).Times(1)

	// Действие
	incident, err := svc.Submit(ctx, actor, report)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, incident.Status)
	assert.Equal(t, actor.ID, incident.UserID)
	assert.NotEqual(t, uuid.Nil, incident.ID)
}

func TestSubmit_Unauthenticated(t *testing.T) {
	// Подготовка
	svc, _, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	report := service.SubmitReport{
		Type:        models.TypeTheft,
		Title:       "Bike stolen",
		Description: "Locked bike taken from porch",
		Location:    "5th & Elm",
	}

	// Действие
	incident, err := svc.Submit(ctx, nil, report)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
}

func TestSubmit_UnknownType(t *testing.T) {
	// Подготовка
	svc, _, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	report := service.SubmitReport{
		Type:        models.ReportType("earthquake"),
		Title:       "Ground shaking",
		Description: "The whole street felt it",
		Location:    "Main St",
	}

	// Действие: репозиторий не должен вызываться
	incident, err := svc.Submit(ctx, resident(), report)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestSubmit_EmptyFields(t *testing.T) {
	// Подготовка
	svc, _, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	report := service.SubmitReport{
		Type:        models.TypeNoise,
		Title:       "   ",
		Description: "Loud music all night",
		Location:    "Oak Ave 12",
	}

	// Действие
	incident, err := svc.Submit(ctx, resident(), report)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestSetStatus_Approve_Success(t *testing.T) {
	// Подготовка
	svc, repoMock, publisherMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	pending := &models.Incident{
		ID:     incidentID,
		Type:   models.TypeTheft,
		Title:  "Bike stolen",
		Status: models.StatusPending,
	}
	approved := &models.Incident{
		ID:        incidentID,
		Type:      models.TypeTheft,
		Title:     "Bike stolen",
		Status:    models.StatusApproved,
		UpdatedAt: time.Now(),
	}

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(pending, nil).Times(1)
	repoMock.EXPECT().UpdateStatus(ctx, incidentID, models.StatusApproved).Return(approved, nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)

	// Одобрение публикует событие для подписчиков ленты
	publisherMock.EXPECT().
		Publish(ctx, gomock.Any()).
		Do(func(ctx context.Context, event webhook.ModerationEvent) {
			assert.Equal(t, incidentID, event.IncidentID)
			assert.Equal(t, string(models.StatusApproved), event.Status)
		}).Return(nil).Times(1)

	// Действие
	updated, err := svc.SetStatus(ctx, admin(), incidentID, models.StatusApproved)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
}

func TestSetStatus_Reject_NoWebhook(t *testing.T) {
	// Подготовка
	svc, repoMock, publisherMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	pending := &models.Incident{ID: incidentID, Status: models.StatusPending}
	rejected := &models.Incident{ID: incidentID, Status: models.StatusRejected}

	// Ожидания: отклонение не публикует событий
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(pending, nil).Times(1)
	repoMock.EXPECT().UpdateStatus(ctx, incidentID, models.StatusRejected).Return(rejected, nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)
	publisherMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	updated, err := svc.SetStatus(ctx, admin(), incidentID, models.StatusRejected)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Status)
}

func TestSetStatus_AlreadyApproved_InvalidTransition(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	alreadyApproved := &models.Incident{ID: incidentID, Status: models.StatusApproved}

	// Ожидания: UpdateStatus не вызывается
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(alreadyApproved, nil).Times(1)

	// Действие: повторное одобрение
	updated, err := svc.SetStatus(ctx, admin(), incidentID, models.StatusApproved)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestSetStatus_RejectApproved_InvalidTransition(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	alreadyApproved := &models.Incident{ID: incidentID, Status: models.StatusApproved}

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(alreadyApproved, nil).Times(1)

	// Действие: прямой переход approved -> rejected запрещен
	updated, err := svc.SetStatus(ctx, admin(), incidentID, models.StatusRejected)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestSetStatus_BackToPending_Validation(t *testing.T) {
	// Подготовка
	svc, _, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Действие: pending не является решением модератора
	updated, err := svc.SetStatus(ctx, admin(), uuid.New(), models.StatusPending)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestSetStatus_NotAdmin_Forbidden(t *testing.T) {
	// Подготовка
	svc, _, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Действие: репозиторий не должен вызываться
	updated, err := svc.SetStatus(ctx, resident(), uuid.New(), models.StatusApproved)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestSetStatus_NotFound(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	// Ожидания
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(nil, service.ErrNotFound).Times(1)

	// Действие
	updated, err := svc.SetStatus(ctx, admin(), incidentID, models.StatusApproved)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestSetStatus_ConcurrentDecision_InvalidTransition(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	pending := &models.Incident{ID: incidentID, Status: models.StatusPending}

	// Ожидания: между чтением и UPDATE статус сменил другой администратор,
	// guarded-условие не совпало
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(pending, nil).Times(1)
	repoMock.EXPECT().UpdateStatus(ctx, incidentID, models.StatusApproved).Return(nil, service.ErrNotFound).Times(1)

	// Действие
	updated, err := svc.SetStatus(ctx, admin(), incidentID, models.StatusApproved)

	// Проверки
	require.Error(t, err)
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
}

func TestList_Success(t *testing.T) {
	// Подготовка
	svc, repoMock, _, cfg := newTestIncidentService(t)
	ctx := context.Background()
	expected := []*models.Incident{
		{ID: uuid.New(), Title: "Incident 1", Status: models.StatusPending},
		{ID: uuid.New(), Title: "Incident 2", Status: models.StatusPending},
	}

	// Ожидания: вторая страница со смещением PageSize
	repoMock.EXPECT().
		List(ctx, service.IncidentFilter{
			Status: models.StatusPending,
			Search: "bike",
			Limit:  cfg.PageSize,
			Offset: cfg.PageSize,
		}).
		Return(expected, 17, nil).
		Times(1)

	// Действие
	page, err := svc.List(ctx, admin(), service.ListQuery{
		Status: "pending",
		Search: "bike",
		Order:  service.OrderDesc,
		Page:   2,
	})

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, page.Rows)
	assert.Equal(t, 17, page.TotalCount)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 8, page.PageSize)
	assert.Equal(t, 3, page.TotalPages) // ceil(17 / 8)
}

func TestList_EmptyResult_OnePage(t *testing.T) {
	// Подготовка
	svc, repoMock, _, cfg := newTestIncidentService(t)
	ctx := context.Background()

	// Ожидания
	repoMock.EXPECT().
		List(ctx, service.IncidentFilter{Limit: cfg.PageSize}).
		Return([]*models.Incident{}, 0, nil).
		Times(1)

	// Действие
	page, err := svc.List(ctx, admin(), service.ListQuery{Status: service.StatusFilterAll, Page: 1})

	// Проверки: total_pages минимум 1 даже для пустой выборки
	require.NoError(t, err)
	assert.Empty(t, page.Rows)
	assert.Equal(t, 0, page.TotalCount)
	assert.Equal(t, 1, page.TotalPages)
}

func TestList_NotAdmin_Forbidden(t *testing.T) {
	// Подготовка
	svc, _, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Действие: полная выборка недоступна обычному пользователю
	page, err := svc.List(ctx, resident(), service.ListQuery{Status: service.StatusFilterAll, Page: 1})

	// Проверки
	require.Error(t, err)
	assert.Nil(t, page)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestList_UnknownStatus_Validation(t *testing.T) {
	// Подготовка
	svc, _, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Действие
	page, err := svc.List(ctx, admin(), service.ListQuery{Status: "archived", Page: 1})

	// Проверки
	require.Error(t, err)
	assert.Nil(t, page)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestPublicFeed_ApprovedOnly(t *testing.T) {
	// Подготовка
	svc, repoMock, _, cfg := newTestIncidentService(t)
	ctx := context.Background()
	approved := []*models.Incident{
		{ID: uuid.New(), Title: "Published", Status: models.StatusApproved},
	}

	// Ожидания: лента жестко фильтруется по approved
	repoMock.EXPECT().
		List(ctx, service.IncidentFilter{
			Status: models.StatusApproved,
			Limit:  cfg.PageSize,
		}).
		Return(approved, 1, nil).
		Times(1)

	// Действие
	page, err := svc.PublicFeed(ctx, 1)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, approved, page.Rows)
	assert.Equal(t, 1, page.TotalCount)
}

func TestGetReport_PendingHiddenFromPublic(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	pending := &models.Incident{ID: incidentID, Status: models.StatusPending}

	// Ожидания
	repoMock.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(nil, nil).Times(1)
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(pending, nil).Times(1)
	repoMock.EXPECT().SetIncidentCache(ctx, pending).Return(nil).Times(1)

	// Действие: анонимный читатель ленты
	incident, err := svc.GetReport(ctx, nil, incidentID)

	// Проверки: немодерированный инцидент для публики не существует
	require.Error(t, err)
	assert.Nil(t, incident)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestGetReport_AdminSeesPending_FromCache(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	pending := &models.Incident{ID: incidentID, Title: "Из кеша", Status: models.StatusPending}

	// Ожидания: попадание в кеш, бд не трогаем
	repoMock.EXPECT().GetIncidentFromCache(ctx, incidentID).Return(pending, nil).Times(1)

	// Действие
	incident, err := svc.GetReport(ctx, admin(), incidentID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, pending, incident)
}

func TestDelete_Success(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()
	existing := &models.Incident{ID: incidentID, Status: models.StatusPending}

	// Ожидания: по умолчанию удаление разрешено из любого статуса
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(existing, nil).Times(1)
	repoMock.EXPECT().Delete(ctx, incidentID).Return(nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, incidentID).Return(nil).Times(1)

	// Действие
	err := svc.Delete(ctx, admin(), incidentID)

	// Проверки
	require.NoError(t, err)
}

func TestDelete_ApprovedOnlyRestriction(t *testing.T) {
	// Подготовка
	svc, repoMock, _, cfg := newTestIncidentService(t)
	cfg.DeleteApprovedOnly = true
	ctx := context.Background()
	incidentID := uuid.New()
	pending := &models.Incident{ID: incidentID, Status: models.StatusPending}

	// Ожидания: Delete не вызывается
	repoMock.EXPECT().GetByID(ctx, incidentID).Return(pending, nil).Times(1)

	// Действие
	err := svc.Delete(ctx, admin(), incidentID)

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestDelete_NotAdmin_Forbidden(t *testing.T) {
	// Подготовка
	svc, _, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Действие
	err := svc.Delete(ctx, resident(), uuid.New())

	// Проверки
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestBulkDelete_SkipsMissingIDs(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	// Ожидания: один из трех идентификаторов не существует
	repoMock.EXPECT().DeleteBatch(ctx, ids).Return(int64(2), nil).Times(1)
	repoMock.EXPECT().InvalidateIncidentCache(ctx, gomock.Any()).Return(nil).Times(3)

	// Действие
	deleted, err := svc.BulkDelete(ctx, admin(), ids)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
}

func TestBulkDelete_EmptySet(t *testing.T) {
	// Подготовка
	svc, _, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Действие: репозиторий не должен вызываться
	deleted, err := svc.BulkDelete(ctx, admin(), nil)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestBulkDelete_NotAdmin_Forbidden(t *testing.T) {
	// Подготовка
	svc, _, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Действие
	deleted, err := svc.BulkDelete(ctx, resident(), []uuid.UUID{uuid.New()})

	// Проверки
	require.Error(t, err)
	assert.Equal(t, 0, deleted)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestStatusCounts_Success(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	expected := map[models.ReportStatus]int{
		models.StatusPending:  3,
		models.StatusApproved: 5,
		models.StatusRejected: 1,
	}

	// Ожидания
	repoMock.EXPECT().CountByStatus(ctx).Return(expected, nil).Times(1)

	// Действие
	counts, err := svc.StatusCounts(ctx, admin())

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, counts)
}

func TestStatusCounts_NotAdmin_Forbidden(t *testing.T) {
	// Подготовка
	svc, _, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	// Действие
	counts, err := svc.StatusCounts(ctx, resident())

	// Проверки
	require.Error(t, err)
	assert.Nil(t, counts)
	assert.ErrorIs(t, err, service.ErrForbidden)
}
