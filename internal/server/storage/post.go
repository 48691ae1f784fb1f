package storage

import (
	"context"

	"github.com/iudanet/campussync/internal/models"
)

// PostStorage defines interface for feed posts persistence
type PostStorage interface {
	// CreatePost stores a new post with zero counters and version 1
	CreatePost(ctx context.Context, post *models.Post) error

	// ListPosts returns a page of posts, newest first with id as tiebreak.
	// Liked is filled for actorID. Returns empty slice past the end.
	ListPosts(ctx context.Context, actorID string, offset, limit int) ([]models.Post, error)

	// GetPost retrieves a post by ID
	// Returns ErrPostNotFound if post doesn't exist
	GetPost(ctx context.Context, id, actorID string) (*models.Post, error)
}

// ReactionStorage defines interface for toggle reactions (likes).
// Every change bumps posts.version in the same transaction.
type ReactionStorage interface {
	// GetReaction returns the actor's reaction state and the post counter
	// Returns ErrPostNotFound if post doesn't exist
	GetReaction(ctx context.Context, postID, actorID string) (models.ToggleResult, error)

	// AddReaction inserts the actor's reaction
	// Returns ErrAlreadyApplied if the reaction exists, ErrPostNotFound if post doesn't exist
	AddReaction(ctx context.Context, postID, actorID string) (models.ToggleResult, error)

	// RemoveReaction deletes the actor's reaction. Absent reaction is not an error
	// and does not bump the version.
	RemoveReaction(ctx context.Context, postID, actorID string) (models.ToggleResult, error)
}

// CommentStorage defines interface for post comments
type CommentStorage interface {
	// AddComment stores a comment and returns the updated post
	// Returns ErrPostNotFound if post doesn't exist
	AddComment(ctx context.Context, comment *models.Comment) (*models.Post, error)
}

// Storage combines all server storages
type Storage interface {
	PostStorage
	ReactionStorage
	CommentStorage
	Close() error
}
