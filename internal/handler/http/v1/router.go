package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Публичные маршруты: регистрация, вход и лента одобренных инцидентов
	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)
	api.GET("/feed", h.publicFeed)
	api.GET("/feed/:id", h.getPublishedReport)

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)

	// Маршруты, требующие аутентификации
	authed := api.Group("", AuthMiddleware(h.authService, h.logger))
	{
		authed.GET("/auth/me", h.me)
		authed.POST("/auth/logout", h.logout)
		authed.POST("/reports", h.submitReport)
	}

	// Панель модерации, только для администраторов
	admin := authed.Group("/admin", AdminOnlyMiddleware(h.logger))
	{
		admin.GET("/reports", h.listReports)
		admin.GET("/reports/stats", h.reportStats)
		admin.GET("/reports/:id", h.getReport)
		admin.PATCH("/reports/:id/status", h.setReportStatus)
		admin.DELETE("/reports/:id", h.deleteReport)
		admin.POST("/reports/bulk-delete", h.bulkDeleteReports)
	}
}
