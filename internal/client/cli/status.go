package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/campussync/internal/client/storage"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Session Status ===")
	c.io.Println()
	c.io.Printf("Server: %s\n", c.cfg.ServerURL)

	if err := c.apiClient.Health(ctx); err != nil {
		c.io.Printf("Server status: unreachable (%v)\n", err)
	} else {
		c.io.Println("Server status: ok")
	}

	session, err := c.sessions.GetSession(ctx)
	if errors.Is(err, storage.ErrSessionNotFound) {
		c.io.Println("Status: Not authenticated")
		c.io.Println()
		c.io.Println("Run 'campusctl login' to authenticate.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	expiresAt := time.Unix(session.ExpiresAt, 0)
	remaining := expiresAt.Sub(c.now())

	c.io.Println("Status: Authenticated")
	c.io.Printf("Actor: %s\n", session.ActorID)
	c.io.Printf("Node: %s\n", session.NodeID)
	c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))

	if remaining > 0 {
		c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
	} else {
		c.io.Println("⚠️  Token has expired. Please login again.")
	}
	return nil
}
