package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shenikar/incident_report_service/internal/config"
	"github.com/shenikar/incident_report_service/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository определяет контракт для работы с бд пользователей
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AuthService определяет контракт аутентификации
type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	// VerifyToken восстанавливает пользователя из claims токена без похода в бд
	VerifyToken(tokenString string) (*models.User, error)
}

type authService struct {
	users  UserRepository
	logger *logrus.Logger
	cfg    *config.Config
}

func NewAuthService(users UserRepository, logger *logrus.Logger, cfg *config.Config) AuthService {
	return &authService{
		users:  users,
		logger: logger,
		cfg:    cfg,
	}
}

const minPasswordLength = 8

// Register создает пользователя с ролью resident и bcrypt-хешем пароля
func (s *authService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	log := s.logger.WithFields(logrus.Fields{
		"service": "auth",
		"method":  "Register",
		"email":   email,
	})

	if email == "" {
		return nil, fmt.Errorf("service: email must not be empty: %w", ErrValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("service: password must be at least %d characters: %w", minPasswordLength, ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.WithError(err).Error("Failed to hash password")
		return nil, fmt.Errorf("service: could not hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleResident,
	}

	if err := s.users.Create(ctx, user); err != nil {
		log.WithError(err).Warn("Failed to create user")
		return nil, fmt.Errorf("service: could not create user: %w", err)
	}

	log.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

// Login проверяет пароль и выдает подписанный JWT с ролью пользователя
func (s *authService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	log := s.logger.WithFields(logrus.Fields{
		"service": "auth",
		"method":  "Login",
		"email":   email,
	})

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Не раскрываем, существует ли e-mail
			return "", fmt.Errorf("service: invalid credentials: %w", ErrUnauthenticated)
		}
		log.WithError(err).Error("Failed to get user by email")
		return "", fmt.Errorf("service: could not get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn("Password mismatch")
		return "", fmt.Errorf("service: invalid credentials: %w", ErrUnauthenticated)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    string(user.Role),
		"iat":     now.Unix(),
		"exp":     now.Add(s.cfg.JWTTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		log.WithError(err).Error("Failed to sign token")
		return "", fmt.Errorf("service: could not sign token: %w", err)
	}

	log.WithField("user_id", user.ID).Info("User logged in")
	return signed, nil
}

// VerifyToken валидирует подпись и срок действия токена и собирает пользователя из claims
func (s *authService) VerifyToken(tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("service: invalid token: %w", ErrUnauthenticated)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("service: unexpected token claims: %w", ErrUnauthenticated)
	}

	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("service: malformed user id in token: %w", ErrUnauthenticated)
	}

	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return &models.User{
		ID:    userID,
		Email: email,
		Role:  models.UserRole(role),
	}, nil
}
