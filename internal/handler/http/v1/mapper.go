package v1

import (
	"github.com/shenikar/incident_report_service/internal/models"
	"github.com/shenikar/incident_report_service/internal/service"
)

// DTOToSubmitReport преобразует DTO создания обращения в параметры сервиса
func DTOToSubmitReport(dto SubmitReportRequest) service.SubmitReport {
	return service.SubmitReport{
		Type:        models.ReportType(dto.Type),
		Title:       dto.Title,
		Description: dto.Description,
		Location:    dto.Location,
	}
}

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:          model.ID,
		UserID:      model.UserID,
		Type:        string(model.Type),
		Title:       model.Title,
		Description: model.Description,
		Location:    model.Location,
		Status:      string(model.Status),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// PageToListResponse преобразует страницу выборки в DTO
func PageToListResponse(page *service.IncidentPage) *IncidentListResponse {
	items := make([]*IncidentResponse, len(page.Rows))
	for i, model := range page.Rows {
		items[i] = ModelToIncidentResponse(model)
	}
	return &IncidentListResponse{
		Items:      items,
		TotalCount: page.TotalCount,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}
}

// ModelToUserResponse преобразует пользователя в DTO для ответа
func ModelToUserResponse(model *models.User) *UserResponse {
	return &UserResponse{
		ID:        model.ID,
		Email:     model.Email,
		Role:      string(model.Role),
		CreatedAt: model.CreatedAt,
	}
}

// CountsToStatsResponse преобразует счетчики по статусам в DTO
func CountsToStatsResponse(counts map[models.ReportStatus]int) *StatsResponse {
	resp := &StatsResponse{
		Pending:  counts[models.StatusPending],
		Approved: counts[models.StatusApproved],
		Rejected: counts[models.StatusRejected],
	}
	resp.Total = resp.Pending + resp.Approved + resp.Rejected
	return resp
}
