package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/campussync/internal/models"
)

// AddComment stores a comment, bumps comment_count and version, returns the updated post
func (s *Storage) AddComment(ctx context.Context, comment *models.Comment) (*models.Post, error) {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	var post *models.Post
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := postExists(ctx, tx, comment.PostID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO comments (id, post_id, author_id, body, created_at) VALUES (?, ?, ?, ?, ?)
		`, comment.ID, comment.PostID, comment.AuthorID, comment.Body, comment.CreatedAt.UnixNano()); err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET comment_count = comment_count + 1, version = version + 1 WHERE id = ?`, comment.PostID); err != nil {
			return fmt.Errorf("failed to update post counters: %w", err)
		}

		var err error
		post, err = readPost(ctx, tx, comment.PostID, comment.AuthorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}
