package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/campussync/internal/client/api"
	"github.com/iudanet/campussync/internal/client/iocli"
	"github.com/iudanet/campussync/internal/client/mutator"
	"github.com/iudanet/campussync/internal/client/storage"
	"github.com/iudanet/campussync/internal/client/sync"
	"github.com/iudanet/campussync/internal/config"
	"github.com/iudanet/campussync/internal/models"
)

// ErrNotAuthenticated нет сохраненной сессии
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'campusctl login' first")

type Cli struct {
	io        iocli.IO
	apiClient *api.Client
	sessions  storage.SessionStorage
	fallback  storage.FallbackStorage
	logger    *slog.Logger
	now       func() time.Time
	cfg       config.Sync
}

func New(io iocli.IO, apiClient *api.Client, sessions storage.SessionStorage, fallback storage.FallbackStorage, cfg config.Sync, logger *slog.Logger) *Cli {
	return &Cli{
		io:        io,
		apiClient: apiClient,
		sessions:  sessions,
		fallback:  fallback,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// requireSession загружает сессию и передает токен API клиенту
func (c *Cli) requireSession(ctx context.Context) (*storage.SessionData, error) {
	session, err := c.sessions.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session.ExpiresAt > 0 && c.now().Unix() >= session.ExpiresAt {
		return nil, fmt.Errorf("session for %s has expired. Please run 'campusctl login' again", session.ActorID)
	}

	c.apiClient.SetAccessToken(session.AccessToken)
	return session, nil
}

// newService создает фасад синхронизации для пользователя сессии
func (c *Cli) newService(session *storage.SessionData) *sync.Service {
	opts := []sync.Option{sync.WithNotifier(mutator.NotifierFunc(c.printNotice))}
	if c.fallback != nil {
		opts = append(opts, sync.WithFallback(c.fallback))
	}
	return sync.NewService(c.apiClient, c.cfg, session.ActorID, c.logger, opts...)
}

func (c *Cli) printNotice(n models.Notice) {
	switch n.Kind {
	case models.NoticeThrottled:
		c.io.Printf("! %s: %s (retry in %s)\n", n.EntityID, n.Message, n.RetryAfter.Round(time.Second))
	default:
		c.io.Printf("! %s: %s\n", n.EntityID, n.Message)
	}
}
