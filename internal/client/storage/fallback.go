package storage

import "context"

//go:generate moq -out fallbackstorage_mock.go . FallbackStorage

// FallbackStorage defines the last-resort persisted toggle flags used when the remote
// store cannot be reached at all. Flags are keyed by (entity, actor).
type FallbackStorage interface {
	// GetFlag returns the stored flag; false if nothing was stored
	GetFlag(ctx context.Context, entityID, actorID string) (bool, error)

	// SetFlag stores the flag durably
	SetFlag(ctx context.Context, entityID, actorID string, active bool) error

	// ClearFlag removes the flag once the remote store confirmed the state
	ClearFlag(ctx context.Context, entityID, actorID string) error

	// CountFlags returns how many actors have an active flag for the entity
	// (best-effort local count in degraded mode)
	CountFlags(ctx context.Context, entityID string) (uint64, error)
}
