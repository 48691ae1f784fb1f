package models

import "time"

// Post элемент ленты
type Post struct {
	CreatedAt    time.Time `json:"created_at"`
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	Body         string    `json:"body"`
	LikeCount    uint64    `json:"like_count"`
	CommentCount uint64    `json:"comment_count"`
	Version      int64     `json:"version"`
	Liked        bool      `json:"is_active"` // Liked лайкнул ли пост текущий пользователь
}

// Comment комментарий к посту
type Comment struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
}
