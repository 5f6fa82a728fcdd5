package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/incident_report_service/internal/config"
	"github.com/shenikar/incident_report_service/internal/models"
	"github.com/shenikar/incident_report_service/internal/service"
	"github.com/shenikar/incident_report_service/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestHandler создает новый экземпляр Handler с мокированными сервисами
func newTestHandler(t *testing.T) (*mocks.MockIncidentService, *mocks.MockAuthService, *gin.Engine) {
	ctrl := gomock.NewController(t)
	incidentMock := mocks.NewMockIncidentService(ctrl)
	authMock := mocks.NewMockAuthService(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		PageSize: 8,
	}

	handler := NewHandler(incidentMock, authMock, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return incidentMock, authMock, router
}

func testResident() *models.User {
	return &models.User{ID: uuid.New(), Email: "resident@example.com", Role: models.RoleResident}
}

func testAdmin() *models.User {
	return &models.User{ID: uuid.New(), Email: "admin@example.com", Role: models.RoleAdmin}
}

// doJSON выполняет запрос с JSON-телом и опциональным bearer-токеном
func doJSON(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitReport_Success(t *testing.T) {
	// Подготовка
	incidentMock, authMock, router := newTestHandler(t)
	actor := testResident()
	created := &models.Incident{
		ID:        uuid.New(),
		UserID:    actor.ID,
		Type:      models.TypeTheft,
		Title:     "Bike stolen",
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}

	// Ожидания
	authMock.EXPECT().VerifyToken("resident-token").Return(actor, nil).Times(1)
	incidentMock.EXPECT().
		Submit(gomock.Any(), actor, service.SubmitReport{
			Type:        models.TypeTheft,
			Title:       "Bike stolen",
			Description: "Locked bike taken from porch",
			Location:    "5th & Elm",
		}).
		Return(created, nil).
		Times(1)

	// Действие
	w := doJSON(router, http.MethodPost, "/api/v1/reports", "resident-token", SubmitReportRequest{
		Type:        "theft",
		Title:       "Bike stolen",
		Description: "Locked bike taken from porch",
		Location:    "5th & Elm",
	})

	// Проверки
	require.Equal(t, http.StatusCreated, w.Code)
	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID)
	assert.Equal(t, "pending", resp.Status)
}

func TestSubmitReport_NoToken(t *testing.T) {
	// Подготовка
	_, _, router := newTestHandler(t)

	// Действие: без заголовка Authorization
	w := doJSON(router, http.MethodPost, "/api/v1/reports", "", SubmitReportRequest{
		Type:        "theft",
		Title:       "Bike stolen",
		Description: "Locked bike taken from porch",
		Location:    "5th & Elm",
	})

	// Проверки
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmitReport_UnknownType(t *testing.T) {
	// Подготовка
	_, authMock, router := newTestHandler(t)

	// Ожидания: сервис инцидентов не вызывается, валидация DTO срабатывает раньше
	authMock.EXPECT().VerifyToken("resident-token").Return(testResident(), nil).Times(1)

	// Действие
	w := doJSON(router, http.MethodPost, "/api/v1/reports", "resident-token", SubmitReportRequest{
		Type:        "earthquake",
		Title:       "Ground shaking",
		Description: "The whole street felt it",
		Location:    "Main St",
	})

	// Проверки
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicFeed_Success(t *testing.T) {
	// Подготовка
	incidentMock, _, router := newTestHandler(t)
	page := &service.IncidentPage{
		Rows: []*models.Incident{
			{ID: uuid.New(), Title: "Published", Status: models.StatusApproved},
		},
		TotalCount: 1,
		Page:       1,
		PageSize:   8,
		TotalPages: 1,
	}

	// Ожидания: лента не требует аутентификации
	incidentMock.EXPECT().PublicFeed(gomock.Any(), 1).Return(page, nil).Times(1)

	// Действие
	w := doJSON(router, http.MethodGet, "/api/v1/feed", "", nil)

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)
	var resp IncidentListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, 1, resp.TotalCount)
}

func TestGetPublishedReport_NotFound(t *testing.T) {
	// Подготовка
	incidentMock, _, router := newTestHandler(t)
	incidentID := uuid.New()

	// Ожидания
	incidentMock.EXPECT().
		GetReport(gomock.Any(), nil, incidentID).
		Return(nil, fmt.Errorf("service: incident is not published: %w", service.ErrNotFound)).
		Times(1)

	// Действие
	w := doJSON(router, http.MethodGet, "/api/v1/feed/"+incidentID.String(), "", nil)

	// Проверки
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListReports_AsAdmin(t *testing.T) {
	// Подготовка
	incidentMock, authMock, router := newTestHandler(t)
	actor := testAdmin()
	page := &service.IncidentPage{
		Rows:       []*models.Incident{{ID: uuid.New(), Status: models.StatusPending}},
		TotalCount: 9,
		Page:       2,
		PageSize:   8,
		TotalPages: 2,
	}

	// Ожидания
	authMock.EXPECT().VerifyToken("admin-token").Return(actor, nil).Times(1)
	incidentMock.EXPECT().
		List(gomock.Any(), actor, service.ListQuery{
			Status: "pending",
			Search: "bike",
			Order:  service.OrderAsc,
			Page:   2,
		}).
		Return(page, nil).
		Times(1)

	// Действие
	w := doJSON(router, http.MethodGet, "/api/v1/admin/reports?status=pending&search=bike&order=asc&page=2", "admin-token", nil)

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)
	var resp IncidentListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 9, resp.TotalCount)
	assert.Equal(t, 2, resp.TotalPages)
}

func TestListReports_AsResident_Forbidden(t *testing.T) {
	// Подготовка
	_, authMock, router := newTestHandler(t)

	// Ожидания: middleware отсекает не-администратора, до сервиса не доходит
	authMock.EXPECT().VerifyToken("resident-token").Return(testResident(), nil).Times(1)

	// Действие
	w := doJSON(router, http.MethodGet, "/api/v1/admin/reports?status=all", "resident-token", nil)

	// Проверки
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestSetReportStatus_Approve(t *testing.T) {
	// Подготовка
	incidentMock, authMock, router := newTestHandler(t)
	actor := testAdmin()
	incidentID := uuid.New()
	approved := &models.Incident{ID: incidentID, Status: models.StatusApproved, UpdatedAt: time.Now()}

	// Ожидания
	authMock.EXPECT().VerifyToken("admin-token").Return(actor, nil).Times(1)
	incidentMock.EXPECT().
		SetStatus(gomock.Any(), actor, incidentID, models.StatusApproved).
		Return(approved, nil).
		Times(1)

	// Действие
	w := doJSON(router, http.MethodPatch, "/api/v1/admin/reports/"+incidentID.String()+"/status", "admin-token", SetStatusRequest{Status: "approved"})

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "approved", resp.Status)
}

func TestSetReportStatus_AlreadyModerated_Conflict(t *testing.T) {
	// Подготовка
	incidentMock, authMock, router := newTestHandler(t)
	actor := testAdmin()
	incidentID := uuid.New()

	// Ожидания
	authMock.EXPECT().VerifyToken("admin-token").Return(actor, nil).Times(1)
	incidentMock.EXPECT().
		SetStatus(gomock.Any(), actor, incidentID, models.StatusRejected).
		Return(nil, fmt.Errorf("service: already moderated: %w", service.ErrInvalidTransition)).
		Times(1)

	// Действие
	w := doJSON(router, http.MethodPatch, "/api/v1/admin/reports/"+incidentID.String()+"/status", "admin-token", SetStatusRequest{Status: "rejected"})

	// Проверки
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSetReportStatus_PendingNotADecision(t *testing.T) {
	// Подготовка
	_, authMock, router := newTestHandler(t)

	// Ожидания: валидация DTO отклоняет статус pending
	authMock.EXPECT().VerifyToken("admin-token").Return(testAdmin(), nil).Times(1)

	// Действие
	w := doJSON(router, http.MethodPatch, "/api/v1/admin/reports/"+uuid.NewString()+"/status", "admin-token", SetStatusRequest{Status: "pending"})

	// Проверки
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteReport_NoContent(t *testing.T) {
	// Подготовка
	incidentMock, authMock, router := newTestHandler(t)
	actor := testAdmin()
	incidentID := uuid.New()

	// Ожидания
	authMock.EXPECT().VerifyToken("admin-token").Return(actor, nil).Times(1)
	incidentMock.EXPECT().Delete(gomock.Any(), actor, incidentID).Return(nil).Times(1)

	// Действие
	w := doJSON(router, http.MethodDelete, "/api/v1/admin/reports/"+incidentID.String(), "admin-token", nil)

	// Проверки
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestBulkDeleteReports_Success(t *testing.T) {
	// Подготовка
	incidentMock, authMock, router := newTestHandler(t)
	actor := testAdmin()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	// Ожидания
	authMock.EXPECT().VerifyToken("admin-token").Return(actor, nil).Times(1)
	incidentMock.EXPECT().BulkDelete(gomock.Any(), actor, ids).Return(2, nil).Times(1)

	// Действие
	w := doJSON(router, http.MethodPost, "/api/v1/admin/reports/bulk-delete", "admin-token", BulkDeleteRequest{IDs: ids})

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)
	var resp BulkDeleteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.DeletedCount)
}

func TestReportStats_Success(t *testing.T) {
	// Подготовка
	incidentMock, authMock, router := newTestHandler(t)
	actor := testAdmin()
	counts := map[models.ReportStatus]int{
		models.StatusPending:  3,
		models.StatusApproved: 5,
		models.StatusRejected: 1,
	}

	// Ожидания
	authMock.EXPECT().VerifyToken("admin-token").Return(actor, nil).Times(1)
	incidentMock.EXPECT().StatusCounts(gomock.Any(), actor).Return(counts, nil).Times(1)

	// Действие
	w := doJSON(router, http.MethodGet, "/api/v1/admin/reports/stats", "admin-token", nil)

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)
	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Pending)
	assert.Equal(t, 5, resp.Approved)
	assert.Equal(t, 1, resp.Rejected)
	assert.Equal(t, 9, resp.Total)
}

func TestRegister_Created(t *testing.T) {
	// Подготовка
	_, authMock, router := newTestHandler(t)
	user := &models.User{ID: uuid.New(), Email: "new@example.com", Role: models.RoleResident}

	// Ожидания
	authMock.EXPECT().Register(gomock.Any(), "new@example.com", "long enough password").Return(user, nil).Times(1)

	// Действие
	w := doJSON(router, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		Email:    "new@example.com",
		Password: "long enough password",
	})

	// Проверки
	require.Equal(t, http.StatusCreated, w.Code)
	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, user.ID, resp.ID)
	assert.Equal(t, "resident", resp.Role)
}

func TestLogin_ReturnsToken(t *testing.T) {
	// Подготовка
	_, authMock, router := newTestHandler(t)

	// Ожидания
	authMock.EXPECT().Login(gomock.Any(), "user@example.com", "correct horse").Return("signed-token", nil).Times(1)

	// Действие
	w := doJSON(router, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Email:    "user@example.com",
		Password: "correct horse",
	})

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)
	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "signed-token", resp.Token)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	// Подготовка
	_, authMock, router := newTestHandler(t)

	// Ожидания
	authMock.EXPECT().
		Login(gomock.Any(), "user@example.com", "wrong horse").
		Return("", fmt.Errorf("service: invalid credentials: %w", service.ErrUnauthenticated)).
		Times(1)

	// Действие
	w := doJSON(router, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Email:    "user@example.com",
		Password: "wrong horse",
	})

	// Проверки
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_ReturnsCurrentUser(t *testing.T) {
	// Подготовка
	_, authMock, router := newTestHandler(t)
	actor := testAdmin()

	// Ожидания
	authMock.EXPECT().VerifyToken("admin-token").Return(actor, nil).Times(1)

	// Действие
	w := doJSON(router, http.MethodGet, "/api/v1/auth/me", "admin-token", nil)

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)
	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, actor.ID, resp.ID)
	assert.Equal(t, "admin", resp.Role)
}

func TestHealthCheck(t *testing.T) {
	// Подготовка
	_, _, router := newTestHandler(t)

	// Действие
	w := doJSON(router, http.MethodGet, "/api/v1/system/health", "", nil)

	// Проверки
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
