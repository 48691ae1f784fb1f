package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/campussync/internal/client/storage"
	"github.com/iudanet/campussync/internal/validation"
)

func (c *Cli) runLogin(ctx context.Context, actorID string) error {
	if actorID == "" {
		var err error
		actorID, err = c.io.ReadInput("Actor ID: ")
		if err != nil {
			return fmt.Errorf("failed to read actor id: %w", err)
		}
	}

	if err := validation.ValidateActorID(actorID); err != nil {
		return fmt.Errorf("invalid actor id: %w", err)
	}

	resp, err := c.apiClient.CreateSession(ctx, actorID)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	session := &storage.SessionData{
		ActorID:     actorID,
		ServerURL:   c.cfg.ServerURL,
		AccessToken: resp.AccessToken,
		NodeID:      uuid.NewString(),
		ExpiresAt:   c.now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix(),
	}
	if err := c.sessions.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	c.logger.Info("Logged in", "actor_id", actorID, "node_id", session.NodeID)
	c.io.Printf("Logged in as %s\n", actorID)
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	err := c.sessions.DeleteSession(ctx)
	if errors.Is(err, storage.ErrSessionNotFound) {
		c.io.Println("Not logged in.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	c.io.Println("Logged out.")
	return nil
}
