package api

import "github.com/iudanet/campussync/internal/models"

// Значения по умолчанию для страничного чтения ленты
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PostsResponse страница ленты. Короткая страница (len < limit) означает конец ленты.
type PostsResponse struct {
	Posts []models.Post `json:"posts"`
}

// CreatePostRequest запрос на создание поста
type CreatePostRequest struct {
	Body string `json:"body"`
}

// CommentRequest запрос на добавление комментария
type CommentRequest struct {
	Body string `json:"body"`
}

// ReactionResponse состояние реакции текущего пользователя и счетчик поста
type ReactionResponse struct {
	IsActive bool   `json:"is_active"`
	Count    uint64 `json:"count"`
	Version  int64  `json:"version"`
}

// HealthResponse ответ health check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
