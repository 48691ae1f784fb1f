package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/campussync/internal/client/mutator"
	"github.com/iudanet/campussync/internal/validation"
)

// runLike переключает лайк поста: оптимистично, с откатом при ошибке сервера
func (c *Cli) runLike(ctx context.Context, postID string) error {
	if err := validation.ValidateEntityID(postID); err != nil {
		return err
	}

	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	svc := c.newService(session)
	defer svc.Close()

	if err := svc.Load(ctx, postID); err != nil && !errors.Is(err, mutator.ErrDegraded) {
		return fmt.Errorf("failed to load reaction: %w", err)
	}

	before, _ := svc.GetState(postID)
	done, started := svc.Toggle(ctx, postID)
	if !started {
		return fmt.Errorf("like for %s was not applied", postID)
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	after, _ := svc.GetState(postID)
	if after.Active == before.Active {
		return fmt.Errorf("like for %s was reverted", postID)
	}

	verb := "Liked"
	if !after.Active {
		verb = "Unliked"
	}
	c.io.Printf("%s %s: %s\n", verb, postID, formatState(after))
	return nil
}
