package cli

import (
	"context"
	"fmt"
)

const bodyPreviewLen = 72

func (c *Cli) runFeed(ctx context.Context, pages int) error {
	session, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	svc := c.newService(session)
	defer svc.Close()

	feed := svc.NewFeed()
	defer feed.Close()

	feed.Refresh(ctx)
	for i := 1; i < pages && feed.HasMore(); i++ {
		feed.LoadMore(ctx)
		if feed.Snapshot().Err != nil {
			break
		}
	}

	w := feed.Snapshot()
	if len(w.Items) == 0 && w.Err != nil {
		return fmt.Errorf("failed to load feed: %w", w.Err)
	}

	c.io.Println("=== Campus Feed ===")
	c.io.Println()

	if len(w.Items) == 0 {
		c.io.Println("No posts yet.")
		c.io.Println()
		c.io.Println("Use 'campusctl post <text>' to write the first one.")
		return nil
	}

	for i, p := range w.Items {
		st, _ := svc.GetState(p.ID)
		c.io.Printf("%d. %s\n", i+1, shorten(p.Body, bodyPreviewLen))
		c.io.Printf("   ID: %s  by %s  %s\n", p.ID, p.AuthorID, formatState(st))
	}
	c.io.Println()

	if w.Err != nil {
		c.io.Printf("Warning: failed to load page %d: %v\n", w.Page+1, w.Err)
	}
	if w.HasMore {
		c.io.Printf("More posts available: campusctl feed --pages %d\n", pages+1)
	}
	return nil
}
