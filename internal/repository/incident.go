package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/incident_report_service/internal/models"
	"github.com/shenikar/incident_report_service/internal/service"
)

const incidentCacheTTL = 5 * time.Minute

const incidentColumns = `
			id,
			user_id,
			type,
			title,
			description,
			location,
			status,
			created_at,
			updated_at`

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

// Create создает новую запись об инциденте в бд
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (user_id, type, title, description, location, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.UserID,
		incident.Type,
		incident.Title,
		incident.Description,
		incident.Location,
		incident.Status,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %v: %w", err, service.ErrStoreUnavailable)
	}
	return nil
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.UserID,
		&incident.Type,
		&incident.Title,
		&incident.Description,
		&incident.Location,
		&incident.Status,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents
		WHERE id = $1;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident with id %s: %w", id, service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get incident by id: %v: %w", err, service.ErrStoreUnavailable)
	}
	return incident, nil
}

// UpdateStatus обновляет статус инцидента и updated_at.
// Условие status = 'pending' в WHERE защищает машину состояний
// от параллельных решений модераторов: второй UPDATE не найдет строку.
func (r *IncidentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus) (*models.Incident, error) {
	query := `
		UPDATE incidents SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + incidentColumns + `;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pending incident with id %s: %w", id, service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update incident status: %v: %w", err, service.ErrStoreUnavailable)
	}
	return incident, nil
}

// Delete безвозвратно удаляет инцидент из бд
func (r *IncidentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM incidents WHERE id = $1;`
	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete incident: %v: %w", err, service.ErrStoreUnavailable)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident with id %s: %w", id, service.ErrNotFound)
	}
	return nil
}

// DeleteBatch удаляет все существующие инциденты из набора идентификаторов
// и возвращает число фактически удаленных строк.
// Несуществующие идентификаторы не являются ошибкой.
func (r *IncidentRepository) DeleteBatch(ctx context.Context, ids []uuid.UUID) (int64, error) {
	query := `DELETE FROM incidents WHERE id = ANY($1);`
	cmdTag, err := r.db.Exec(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete incidents batch: %v: %w", err, service.ErrStoreUnavailable)
	}
	return cmdTag.RowsAffected(), nil
}

// buildListConditions собирает WHERE-условия и аргументы для фильтра выборки
func buildListConditions(filter service.IncidentFilter) (string, []any) {
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 2)

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d OR location ILIKE $%d)", n, n, n))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// List возвращает страницу инцидентов и полное количество строк,
// удовлетворяющих фильтру (не только на текущей странице).
// Сортировка по created_at, ничья разрешается по seq в том же направлении,
// что дает стабильный порядок вставки.
func (r *IncidentRepository) List(ctx context.Context, filter service.IncidentFilter) ([]*models.Incident, int, error) {
	whereClause, args := buildListConditions(filter)

	countQuery := "SELECT COUNT(*) FROM incidents " + whereClause + ";"
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count incidents: %v: %w", err, service.ErrStoreUnavailable)
	}

	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM incidents
		%s
		ORDER BY created_at %s, seq %s
		LIMIT $%d OFFSET $%d;
	`, incidentColumns, whereClause, direction, direction, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list incidents: %v: %w", err, service.ErrStoreUnavailable)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan incident row: %v: %w", err, service.ErrStoreUnavailable)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error list iteration: %v: %w", err, service.ErrStoreUnavailable)
	}
	return incidents, total, nil
}

// CountByStatus возвращает количество инцидентов по каждому статусу.
// Статусы без строк присутствуют в результате с нулем.
func (r *IncidentRepository) CountByStatus(ctx context.Context) (map[models.ReportStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM incidents GROUP BY status;`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count incidents by status: %v: %w", err, service.ErrStoreUnavailable)
	}
	defer rows.Close()

	counts := map[models.ReportStatus]int{
		models.StatusPending:  0,
		models.StatusApproved: 0,
		models.StatusRejected: 0,
	}
	for rows.Next() {
		var status models.ReportStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count row: %v: %w", err, service.ErrStoreUnavailable)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error status count iteration: %v: %w", err, service.ErrStoreUnavailable)
	}
	return counts, nil
}

// GetIncidentFromCache пытается получить инцидент из Redis
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%s", id.String())
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache сохраняет инцидент в Redis
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%s", incident.ID.String())
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, key, val, incidentCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache удаляет инцидент из Redis кэша
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	key := fmt.Sprintf("incident:%s", id.String())
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}
