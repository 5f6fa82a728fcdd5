package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole - роль пользователя в системе
type UserRole string

const (
	RoleResident UserRole = "resident"
	RoleAdmin    UserRole = "admin"
)

// User представляет аутентифицированного пользователя.
// PasswordHash никогда не сериализуется в ответы API.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin сообщает, обладает ли пользователь правами администратора
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
