package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/campussync/internal/models"
	"github.com/iudanet/campussync/internal/server/storage"
)

// GetReaction returns the actor's reaction state and the post counter
func (s *Storage) GetReaction(ctx context.Context, postID, actorID string) (models.ToggleResult, error) {
	return readReaction(ctx, s.db, postID, actorID)
}

// AddReaction inserts the actor's reaction and bumps the post version
func (s *Storage) AddReaction(ctx context.Context, postID, actorID string) (models.ToggleResult, error) {
	var res models.ToggleResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := postExists(ctx, tx, postID); err != nil {
			return err
		}

		// UNIQUE(post_id, actor_id): повторная вставка ничего не меняет
		r, err := tx.ExecContext(ctx, `
			INSERT INTO reactions (post_id, actor_id, created_at) VALUES (?, ?, ?)
			ON CONFLICT (post_id, actor_id) DO NOTHING
		`, postID, actorID, time.Now().UnixNano())
		if err != nil {
			return fmt.Errorf("failed to insert reaction: %w", err)
		}
		if n, err := r.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		} else if n == 0 {
			return storage.ErrAlreadyApplied
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET like_count = like_count + 1, version = version + 1 WHERE id = ?`, postID); err != nil {
			return fmt.Errorf("failed to update post counters: %w", err)
		}

		res, err = readReaction(ctx, tx, postID, actorID)
		return err
	})
	return res, err
}

// RemoveReaction deletes the actor's reaction. Absent reaction is not an error.
func (s *Storage) RemoveReaction(ctx context.Context, postID, actorID string) (models.ToggleResult, error) {
	var res models.ToggleResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := postExists(ctx, tx, postID); err != nil {
			return err
		}

		r, err := tx.ExecContext(ctx, `DELETE FROM reactions WHERE post_id = ? AND actor_id = ?`, postID, actorID)
		if err != nil {
			return fmt.Errorf("failed to delete reaction: %w", err)
		}
		n, err := r.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		if n > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE posts SET like_count = like_count - 1, version = version + 1 WHERE id = ?`, postID); err != nil {
				return fmt.Errorf("failed to update post counters: %w", err)
			}
		}

		res, err = readReaction(ctx, tx, postID, actorID)
		return err
	})
	return res, err
}

func readReaction(ctx context.Context, q querier, postID, actorID string) (models.ToggleResult, error) {
	var res models.ToggleResult
	err := q.QueryRowContext(ctx, `
		SELECT p.like_count, p.version,
		       EXISTS (SELECT 1 FROM reactions r WHERE r.post_id = p.id AND r.actor_id = ?)
		FROM posts p
		WHERE p.id = ?
	`, actorID, postID).Scan(&res.Count, &res.Version, &res.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return res, storage.ErrPostNotFound
		}
		return res, fmt.Errorf("failed to read reaction: %w", err)
	}
	return res, nil
}
