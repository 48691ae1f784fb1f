package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/campussync/internal/models"
	"github.com/iudanet/campussync/internal/server/storage"
)

// querier общий интерфейс *sql.DB и *sql.Tx для чтений
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectPost = `
	SELECT p.id, p.author_id, p.body, p.like_count, p.comment_count, p.version, p.created_at,
	       EXISTS (SELECT 1 FROM reactions r WHERE r.post_id = p.id AND r.actor_id = ?)
	FROM posts p
`

// CreatePost stores a new post with zero counters and version 1
func (s *Storage) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	post.LikeCount = 0
	post.CommentCount = 0
	post.Version = 1
	post.Liked = false

	query := `
		INSERT INTO posts (id, author_id, body, like_count, comment_count, version, created_at)
		VALUES (?, ?, ?, 0, 0, 1, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, post.ID, post.AuthorID, post.Body, post.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// ListPosts returns a page of posts, newest first with id as tiebreak
func (s *Storage) ListPosts(ctx context.Context, actorID string, offset, limit int) ([]models.Post, error) {
	query := selectPost + `
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, actorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]models.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, nil
}

// GetPost retrieves a post by ID
func (s *Storage) GetPost(ctx context.Context, id, actorID string) (*models.Post, error) {
	return readPost(ctx, s.db, id, actorID)
}

func readPost(ctx context.Context, q querier, id, actorID string) (*models.Post, error) {
	post, err := scanPost(q.QueryRowContext(ctx, selectPost+` WHERE p.id = ?`, actorID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

// scanner общий интерфейс *sql.Row и *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*models.Post, error) {
	post := &models.Post{}
	var createdAt int64

	err := row.Scan(
		&post.ID,
		&post.AuthorID,
		&post.Body,
		&post.LikeCount,
		&post.CommentCount,
		&post.Version,
		&createdAt,
		&post.Liked,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan post: %w", err)
	}

	post.CreatedAt = time.Unix(0, createdAt).UTC()
	return post, nil
}

// postExists проверяет наличие поста внутри транзакции
func postExists(ctx context.Context, tx *sql.Tx, postID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check post: %w", err)
	}
	return nil
}
