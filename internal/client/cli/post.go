package cli

import (
	"context"
	"fmt"

	"github.com/iudanet/campussync/internal/validation"
)

func (c *Cli) runPost(ctx context.Context, body string) error {
	if err := validation.ValidateBody(body); err != nil {
		return fmt.Errorf("invalid post: %w", err)
	}
	if _, err := c.requireSession(ctx); err != nil {
		return err
	}

	post, err := c.apiClient.CreatePost(ctx, body)
	if err != nil {
		return fmt.Errorf("failed to publish post: %w", err)
	}

	c.io.Printf("Post published: %s\n", post.ID)
	return nil
}

func (c *Cli) runComment(ctx context.Context, postID, body string) error {
	if err := validation.ValidateEntityID(postID); err != nil {
		return err
	}

	if body == "" {
		var err error
		body, err = c.io.ReadInput("Comment: ")
		if err != nil {
			return fmt.Errorf("failed to read comment: %w", err)
		}
	}
	if err := validation.ValidateBody(body); err != nil {
		return fmt.Errorf("invalid comment: %w", err)
	}

	if _, err := c.requireSession(ctx); err != nil {
		return err
	}

	comment, err := c.apiClient.AddComment(ctx, postID, body)
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}

	c.io.Printf("Comment %s added to %s\n", comment.ID, postID)
	return nil
}
