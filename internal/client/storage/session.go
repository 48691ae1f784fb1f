package storage

import "context"

// SessionStorage defines interface for storing the CLI session on client
type SessionStorage interface {
	// SaveSession stores session data
	SaveSession(ctx context.Context, session *SessionData) error

	// GetSession retrieves stored session data
	// Returns ErrSessionNotFound if no session exists
	GetSession(ctx context.Context) (*SessionData, error)

	// DeleteSession removes stored session data (logout)
	DeleteSession(ctx context.Context) error
}

// SessionData represents the dev session issued by the server
type SessionData struct {
	ActorID     string `json:"actor_id"`
	ServerURL   string `json:"server_url"`
	AccessToken string `json:"access_token"`
	NodeID      string `json:"node_id"`
	ExpiresAt   int64  `json:"expires_at"`
}
