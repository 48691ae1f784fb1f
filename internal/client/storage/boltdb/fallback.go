package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/campussync/internal/client/storage"
)

// flagRecord значение флага в bucket fallback
type flagRecord struct {
	UpdatedAt time.Time `json:"updated_at"`
	Active    bool      `json:"active"`
}

// flagKey ключ "entityID\x00actorID"; префикс entityID+"\x00" позволяет сканировать флаги сущности
func flagKey(entityID, actorID string) []byte {
	return []byte(entityID + "\x00" + actorID)
}

func entityPrefix(entityID string) []byte {
	return []byte(entityID + "\x00")
}

// GetFlag returns the stored flag; false if nothing was stored
func (s *Storage) GetFlag(ctx context.Context, entityID, actorID string) (bool, error) {
	if s.db == nil {
		return false, storage.ErrStorageClosed
	}

	var rec flagRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketFallback)
		if bucket == nil {
			return fmt.Errorf("fallback bucket not found")
		}

		data := bucket.Get(flagKey(entityID, actorID))
		if data == nil {
			return nil
		}

		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal flag: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return rec.Active, nil
}

// SetFlag stores the flag durably
func (s *Storage) SetFlag(ctx context.Context, entityID, actorID string, active bool) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(flagRecord{Active: active, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal flag: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketFallback)
		if bucket == nil {
			return fmt.Errorf("fallback bucket not found")
		}

		if err := bucket.Put(flagKey(entityID, actorID), data); err != nil {
			return fmt.Errorf("failed to save flag: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// ClearFlag removes the flag once the remote store confirmed the state
func (s *Storage) ClearFlag(ctx context.Context, entityID, actorID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketFallback)
		if bucket == nil {
			return fmt.Errorf("fallback bucket not found")
		}

		// Удаление отсутствующего ключа в bbolt не ошибка
		if err := bucket.Delete(flagKey(entityID, actorID)); err != nil {
			return fmt.Errorf("failed to delete flag: %w", err)
		}
		return nil
	})
}

// CountFlags returns how many actors have an active flag for the entity
func (s *Storage) CountFlags(ctx context.Context, entityID string) (uint64, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var count uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketFallback)
		if bucket == nil {
			return fmt.Errorf("fallback bucket not found")
		}

		prefix := entityPrefix(entityID)
		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec flagRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal flag: %w", err)
			}
			if rec.Active {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count flags: %w", err)
	}

	return count, nil
}

var _ storage.FallbackStorage = (*Storage)(nil)
