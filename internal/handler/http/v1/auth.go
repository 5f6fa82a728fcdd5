package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/incident_report_service/internal/models"
	"github.com/shenikar/incident_report_service/internal/service"
	"github.com/sirupsen/logrus"
)

// Ключ контекста gin, под которым хранится аутентифицированный пользователь
const currentUserKey = "currentUser"

// AuthMiddleware - middleware для аутентификации по Bearer JWT.
// Проверенный пользователь кладется в контекст запроса.
func AuthMiddleware(auth service.AuthService, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			log.Warn("Bearer token missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		user, err := auth.VerifyToken(token)
		if err != nil {
			log.WithError(err).Warn("Invalid bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// AdminOnlyMiddleware - middleware, пропускающее только администраторов
func AdminOnlyMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !user.IsAdmin() {
			log.WithField("user_id", user.ID).Warn("Admin capability required")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin capability required"})
			return
		}
		c.Next()
	}
}

// currentUser достает аутентифицированного пользователя из контекста запроса,
// nil если запрос не проходил через AuthMiddleware
func currentUser(c *gin.Context) *models.User {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
