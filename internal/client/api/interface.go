package api

import (
	"context"

	"github.com/iudanet/campussync/internal/models"
)

//go:generate moq -out client_mock.go . ClientAPI

// ClientAPI операции сервера, которые использует ядро синхронизации
type ClientAPI interface {
	ListPosts(ctx context.Context, offset, limit int) ([]models.Post, error)
	GetReaction(ctx context.Context, postID string) (models.ToggleResult, error)
	SetReaction(ctx context.Context, postID string, active bool) (models.ToggleResult, error)
}

var _ ClientAPI = (*Client)(nil)
