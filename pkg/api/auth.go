package api

// SessionRequest представляет запрос на выдачу dev-сессии
type SessionRequest struct {
	ActorID string `json:"actor_id"` // идентификатор пользователя (actor)
}

// SessionResponse представляет ответ с токеном доступа
type SessionResponse struct {
	AccessToken string `json:"access_token"` // JWT access token
	ExpiresIn   int64  `json:"expires_in"`   // время жизни access token в секундах
}

// Коды ошибок в поле ErrorResponse.Error
const (
	// ErrCodeAlreadyApplied повторная вставка реакции тем же пользователем (unique constraint)
	ErrCodeAlreadyApplied = "already_applied"
	// ErrCodeRateLimited превышен лимит запросов
	ErrCodeRateLimited = "rate_limited"
)

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
