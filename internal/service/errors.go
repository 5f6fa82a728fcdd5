package service

import "errors"

// Ошибки контракта. Каждая операция возвращает различимый вид ошибки,
// чтобы вызывающий слой мог отреагировать (редирект на вход, 403, 409 и т.д.).
// Проверяются через errors.Is, оборачиваются через %w.
var (
	// ErrUnauthenticated - нет аутентифицированного пользователя там, где он требуется
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden - пользователь аутентифицирован, но не обладает правами администратора
	ErrForbidden = errors.New("admin capability required")
	// ErrValidation - некорректные или отсутствующие входные данные
	ErrValidation = errors.New("validation failed")
	// ErrNotFound - указанный идентификатор не существует
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition - смена статуса нарушает машину состояний модерации
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStoreUnavailable - хранилище не ответило; пробрасывается без маскировки
	ErrStoreUnavailable = errors.New("store unavailable")
)
