package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/campussync/internal/client/mutator"
	"github.com/iudanet/campussync/internal/client/realtime"
	"github.com/iudanet/campussync/internal/models"
	"github.com/iudanet/campussync/internal/validation"
)

// watchLine строка вывода watch вне терминала (JSON lines)
type watchLine struct {
	At       time.Time                `json:"at"`
	EntityID string                   `json:"entity_id"`
	State    models.EntityToggleState `json:"state"`
}

// runWatch печатает изменения счетчиков постов, пока ctx не отменен
func (c *Cli) runWatch(ctx context.Context, postIDs []string) error {
	if len(postIDs) == 0 {
		return fmt.Errorf("missing post id. Usage: campusctl watch <post-id>...")
	}
	for _, id := range postIDs {
		if err := validation.ValidateEntityID(id); err != nil {
			return err
		}
	}

	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	svc := c.newService(session)
	defer svc.Close()

	conn, err := realtime.Dial(ctx, c.apiClient.RealtimeURL(), session.AccessToken, svc.HandleEvent, c.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to realtime: %w", err)
	}
	defer conn.Close()

	if err := svc.UseTransport(conn); err != nil {
		return err
	}

	stopWatch := svc.Watch(c.printUpdate)
	defer stopWatch()

	runErr := make(chan error, 1)
	go func() {
		runErr <- conn.Run(ctx)
	}()

	for _, id := range postIDs {
		if err := svc.Load(ctx, id); err != nil && !errors.Is(err, mutator.ErrDegraded) {
			c.logger.Warn("Failed to load initial state", "entity_id", id, "error", err)
		}
		unsubscribe, err := svc.Subscribe(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", id, err)
		}
		defer unsubscribe()
	}

	if c.io.IsTerminal() {
		c.io.Printf("Watching %d post(s). Press Ctrl+C to stop.\n", len(postIDs))
	}

	if err := <-runErr; err != nil {
		return fmt.Errorf("realtime connection lost: %w", err)
	}
	return nil
}

func (c *Cli) printUpdate(entityID string, st models.EntityToggleState) {
	now := c.now()
	if c.io.IsTerminal() {
		c.io.Printf("%s  %s  %s\n", now.Format(time.TimeOnly), entityID, formatState(st))
		return
	}

	line, err := json.Marshal(watchLine{At: now.UTC(), EntityID: entityID, State: st})
	if err != nil {
		c.logger.Warn("Failed to encode update", "entity_id", entityID, "error", err)
		return
	}
	_, _ = c.io.Write(append(line, '\n'))
}
