package v1

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest DTO для регистрации пользователя
// @Description DTO для регистрации пользователя
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest DTO для входа
// @Description DTO для входа
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse DTO для ответа с токеном доступа
// @Description DTO для ответа с токеном доступа
type TokenResponse struct {
	Token string `json:"token"`
}

// UserResponse DTO для ответа с информацией о пользователе
// @Description DTO для ответа с информацией о пользователе
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmitReportRequest DTO для создания обращения
// @Description DTO для создания обращения
type SubmitReportRequest struct {
	Type        string `json:"type" validate:"required,oneof=suspicious theft vandalism assault noise emergency road_hazard other"`
	Title       string `json:"title" validate:"required,min=2,max=255"`
	Description string `json:"description" validate:"required"`
	Location    string `json:"location" validate:"required"`
}

// SetStatusRequest DTO для решения модератора
// @Description DTO для решения модератора
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// BulkDeleteRequest DTO для массового удаления обращений
// @Description DTO для массового удаления обращений
type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// BulkDeleteResponse DTO для результата массового удаления
// @Description DTO для результата массового удаления
type BulkDeleteResponse struct {
	DeletedCount int `json:"deleted_count"`
}

// IncidentResponse DTO для ответа с информацией об инциденте
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IncidentListResponse DTO для страницы выборки инцидентов
// @Description DTO для страницы выборки инцидентов
type IncidentListResponse struct {
	Items      []*IncidentResponse `json:"items"`
	TotalCount int                 `json:"total_count"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalPages int                 `json:"total_pages"`
}

// StatsResponse DTO для ответа со счетчиками по статусам
// @Description DTO для ответа со счетчиками по статусам
type StatsResponse struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}
