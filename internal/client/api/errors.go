package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConflict реакция уже применена этим пользователем (409 already_applied)
	ErrConflict = errors.New("already applied")
	// ErrUnreachable сервер недоступен: соединение не установлено или ответ не получен
	ErrUnreachable = errors.New("server unreachable")
	// ErrUnauthorized нет сессии или токен недействителен
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound ресурс не найден
	ErrNotFound = errors.New("not found")
	// ErrRateLimited сервер отклонил запрос из-за лимита
	ErrRateLimited = errors.New("rate limited")
)

// StatusError ответ сервера с кодом вне 2xx
type StatusError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Code)
}

// Temporary сообщает, имеет ли смысл ручной повтор (5xx)
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// IsConflict классифицирует ошибку мутации как повторную вставку
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsUnreachable классифицирует ошибку как полную недоступность сервера
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
