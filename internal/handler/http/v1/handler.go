package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shenikar/incident_report_service/internal/config"
	"github.com/shenikar/incident_report_service/internal/models"
	"github.com/shenikar/incident_report_service/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	incidentService service.IncidentService
	authService     service.AuthService
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

func NewHandler(incidentService service.IncidentService, authService service.AuthService, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		incidentService: incidentService,
		authService:     authService,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// respondError переводит вид ошибки сервиса в HTTP-статус
func (h *Handler) respondError(c *gin.Context, log *logrus.Entry, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "admin capability required"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid status transition"})
	case errors.Is(err, service.ErrStoreUnavailable):
		log.WithError(err).Error("Store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
	default:
		log.WithError(err).Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Submit a new incident report
// @Description Submit a new incident report. The report is created in pending status and awaits moderation.
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param report body SubmitReportRequest true "Report submission request"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 503 {object} map[string]string "Store unavailable"
// @Router /reports [post]
func (h *Handler) submitReport(c *gin.Context) {
	var input SubmitReportRequest
	log := h.logger.WithField("method", "submitReport")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := h.incidentService.Submit(c.Request.Context(), currentUser(c), DTOToSubmitReport(input))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(incident))
}

// @Summary Public feed of approved incidents
// @Description Get a paginated feed of approved incidents, newest first. No authentication required.
// @Tags Feed
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Success 200 {object} IncidentListResponse
// @Failure 503 {object} map[string]string "Store unavailable"
// @Router /feed [get]
func (h *Handler) publicFeed(c *gin.Context) {
	log := h.logger.WithField("method", "publicFeed")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	result, err := h.incidentService.PublicFeed(c.Request.Context(), page)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, PageToListResponse(result))
}

// @Summary Get a published incident by ID
// @Description Get a single approved incident by its ID. Unpublished incidents are not found for the public.
// @Tags Feed
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /feed/{id} [get]
func (h *Handler) getPublishedReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getPublishedReport").WithField("id", id)

	incident, err := h.incidentService.GetReport(c.Request.Context(), nil, id)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary List incidents for the moderation dashboard
// @Description Get a filtered, searched, sorted and paginated list of incidents in any status. Admin only.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter: pending, approved, rejected or all" default(all)
// @Param search query string false "Case-insensitive substring over title, description and location"
// @Param order query string false "Sort by created_at: asc or desc" default(desc)
// @Param page query int false "Page number" default(1)
// @Success 200 {object} IncidentListResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Admin capability required"
// @Router /admin/reports [get]
func (h *Handler) listReports(c *gin.Context) {
	log := h.logger.WithField("method", "listReports")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	query := service.ListQuery{
		Status: c.DefaultQuery("status", service.StatusFilterAll),
		Search: c.Query("search"),
		Order:  c.DefaultQuery("order", service.OrderDesc),
		Page:   page,
	}

	result, err := h.incidentService.List(c.Request.Context(), currentUser(c), query)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, PageToListResponse(result))
}

// @Summary Get an incident by ID for moderation
// @Description Get a single incident in any status by its ID. Admin only.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /admin/reports/{id} [get]
func (h *Handler) getReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getReport").WithField("id", id)

	incident, err := h.incidentService.GetReport(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Approve or reject a pending incident
// @Description Apply a moderation decision to a pending incident. Only pending incidents can be moderated.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Param decision body SetStatusRequest true "Moderation decision"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or request body"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} map[string]string "Invalid status transition"
// @Router /admin/reports/{id}/status [patch]
func (h *Handler) setReportStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "setReportStatus").WithField("id", id)

	var input SetStatusRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := h.incidentService.SetStatus(c.Request.Context(), currentUser(c), id, models.ReportStatus(input.Status))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Delete an incident
// @Description Permanently delete an incident by its ID. Admin only.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Incident ID"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid incident ID or deletion restricted"
// @Failure 404 {object} map[string]string "Incident not found"
// @Router /admin/reports/{id} [delete]
func (h *Handler) deleteReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "deleteReport").WithField("id", id)

	if err := h.incidentService.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		h.respondError(c, log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Bulk delete incidents
// @Description Delete every existing incident from the given set of IDs. Missing IDs are silently skipped.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BulkDeleteRequest true "Bulk delete request"
// @Success 200 {object} BulkDeleteResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 403 {object} map[string]string "Admin capability required"
// @Router /admin/reports/bulk-delete [post]
func (h *Handler) bulkDeleteReports(c *gin.Context) {
	log := h.logger.WithField("method", "bulkDeleteReports")

	var input BulkDeleteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	deleted, err := h.incidentService.BulkDelete(c.Request.Context(), currentUser(c), input.IDs)
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, BulkDeleteResponse{DeletedCount: deleted})
}

// @Summary Incident counts by status
// @Description Get the number of incidents per moderation status, computed over the whole table. Admin only.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} StatsResponse
// @Failure 403 {object} map[string]string "Admin capability required"
// @Router /admin/reports/stats [get]
func (h *Handler) reportStats(c *gin.Context) {
	log := h.logger.WithField("method", "reportStats")

	counts, err := h.incidentService.StatusCounts(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, CountsToStatsResponse(counts))
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
