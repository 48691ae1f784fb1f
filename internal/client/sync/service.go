// Package sync собирает ядро синхронизации клиента: RateGate, RequestCache, Store,
// Mutator, пагинацию ленты и realtime-реконсилятор за одним фасадом.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/iudanet/campussync/internal/client/api"
	"github.com/iudanet/campussync/internal/client/mutator"
	"github.com/iudanet/campussync/internal/client/pagination"
	"github.com/iudanet/campussync/internal/client/realtime"
	"github.com/iudanet/campussync/internal/client/reqcache"
	"github.com/iudanet/campussync/internal/client/state"
	"github.com/iudanet/campussync/internal/client/storage"
	"github.com/iudanet/campussync/internal/config"
	"github.com/iudanet/campussync/internal/gate"
	"github.com/iudanet/campussync/internal/models"
)

// ErrNoTransport realtime-транспорт еще не подключен
var ErrNoTransport = errors.New("realtime transport is not attached")

const (
	reactionOp = "reaction"
	feedOp     = "feed"
)

// Service фасад синхронизации для одного пользователя
type Service struct {
	client     api.ClientAPI
	fallback   storage.FallbackStorage
	notifier   mutator.Notifier
	logger     *slog.Logger
	store      *state.Store
	gate       *gate.Gate
	cache      *reqcache.Cache
	mutator    *mutator.Mutator
	reconciler atomic.Pointer[realtime.Reconciler]
	actorID    string
	cfg        config.Sync
}

// Option настраивает Service
type Option func(*Service)

// WithFallback включает локальный fallback при недоступности сервера
func WithFallback(fb storage.FallbackStorage) Option {
	return func(s *Service) {
		s.fallback = fb
	}
}

// WithNotifier задает получателя пользовательских уведомлений
func WithNotifier(n mutator.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// NewService создает сервис синхронизации. Вызывающий обязан вызвать Close.
func NewService(client api.ClientAPI, cfg config.Sync, actorID string, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		client:   client,
		cfg:      cfg,
		actorID:  actorID,
		logger:   logger,
		notifier: mutator.NotifierFunc(func(models.Notice) {}),
		store:    state.NewStore(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.gate = gate.New(cfg.Gate, gate.WithLogger(logger))
	s.cache = reqcache.New(reqcache.WithLogger(logger))

	mopts := []mutator.Option{
		mutator.WithConflictClassifier(api.IsConflict),
		mutator.WithUnreachableClassifier(api.IsUnreachable),
		mutator.WithNotifier(s.notifier),
		mutator.WithCache(s.cache, cfg.CacheStale, cfg.CacheTTL),
		mutator.WithTimeout(cfg.MutationTimeout),
		mutator.WithOperation(reactionOp),
	}
	if s.fallback != nil {
		mopts = append(mopts, mutator.WithFallback(s.fallback, actorID))
	}
	s.mutator = mutator.New(s.store, reactionRemote{client: client}, logger, mopts...)

	return s
}

// Store возвращает общее хранилище состояний
func (s *Service) Store() *state.Store {
	return s.store
}

// Admit проверяет произвольное пользовательское действие через RateGate
func (s *Service) Admit(key string) gate.Decision {
	return s.gate.Admit(key)
}

// Toggle переключает реакцию на сущность, если RateGate пропускает действие.
// При отказе gate пользователь получает уведомление с RetryAfter, мутация не начинается.
func (s *Service) Toggle(ctx context.Context, entityID string) (<-chan struct{}, bool) {
	d := s.Admit("toggle:" + s.actorID)
	if !d.Allowed {
		s.logger.Debug("Toggle throttled", "entity_id", entityID, "retry_after", d.RetryAfter)
		s.notifier.Notify(models.Notice{
			Kind:       models.NoticeThrottled,
			EntityID:   entityID,
			Message:    "slow down",
			RetryAfter: d.RetryAfter,
		})
		done := make(chan struct{})
		close(done)
		return done, false
	}
	return s.mutator.Toggle(ctx, entityID)
}

// GetState возвращает текущее состояние сущности
func (s *Service) GetState(entityID string) (models.EntityToggleState, bool) {
	return s.store.Get(entityID)
}

// IsPending сообщает, идет ли мутация по сущности
func (s *Service) IsPending(entityID string) bool {
	return s.store.IsPending(entityID)
}

// Watch подписывает fn на изменения состояний
func (s *Service) Watch(fn state.WatchFunc) func() {
	return s.store.Watch(fn)
}

// Load читает авторитетное состояние реакции с сервера
func (s *Service) Load(ctx context.Context, entityID string) error {
	return s.mutator.Load(ctx, entityID)
}

// NewFeed создает контроллер ленты постов. Загруженные посты засевают Store.
func (s *Service) NewFeed() *pagination.Controller[models.Post] {
	return pagination.New(s.listPosts, pagination.Config{
		Logger:        s.logger,
		Cache:         s.cache,
		IsUnreachable: api.IsUnreachable,
		CacheOp:       feedOp,
		PageSize:      s.cfg.PageSize,
		Debounce:      s.cfg.Debounce,
		CacheStale:    s.cfg.CacheStale,
		CacheTTL:      s.cfg.CacheTTL,
	})
}

func (s *Service) listPosts(ctx context.Context, offset, limit int) ([]models.Post, error) {
	posts, err := s.client.ListPosts(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		s.store.Seed(p.ID, models.ToggleResult{Active: p.Liked, Count: p.LikeCount, Version: p.Version})
		s.store.SeedCounter(p.ID, models.CounterComments, p.CommentCount, p.Version)
	}
	return posts, nil
}

// UseTransport подключает realtime-транспорт. События, пришедшие до подключения, отбрасываются.
func (s *Service) UseTransport(t realtime.Transport) error {
	r, err := realtime.NewReconciler(s.store, t, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create reconciler: %w", err)
	}
	s.reconciler.Store(r)
	return nil
}

// HandleEvent передает realtime-событие реконсилятору
func (s *Service) HandleEvent(ev models.RealtimeEvent) {
	r := s.reconciler.Load()
	if r == nil {
		s.logger.Debug("Realtime event before transport attached", "event_id", ev.ID)
		return
	}
	r.Handle(ev)
}

// Subscribe подписывает сущность на все realtime-каналы
func (s *Service) Subscribe(ctx context.Context, entityID string) (func(), error) {
	r := s.reconciler.Load()
	if r == nil {
		return nil, ErrNoTransport
	}
	return r.Subscribe(ctx, entityID)
}

// Close дожидается запущенных мутаций и освобождает ресурсы
func (s *Service) Close() {
	s.mutator.Wait()
	s.gate.Stop()
	s.cache.Close()
}

// reactionRemote адаптирует HTTP-клиент к mutator.Remote
type reactionRemote struct {
	client api.ClientAPI
}

func (r reactionRemote) Apply(ctx context.Context, entityID string, active bool) (models.ToggleResult, error) {
	return r.client.SetReaction(ctx, entityID, active)
}

func (r reactionRemote) Fetch(ctx context.Context, entityID string) (models.ToggleResult, error) {
	return r.client.GetReaction(ctx, entityID)
}
