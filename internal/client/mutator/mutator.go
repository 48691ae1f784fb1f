// Package mutator реализует оптимистичное переключение toggle-состояния сущности
// (лайк, подписка, закладка) поверх общего state.Store.
//
// Один Mutator обслуживает любую toggle-фичу: удаленный вызов и классификаторы ошибок
// внедряются через конструктор.
package mutator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/campussync/internal/client/reqcache"
	"github.com/iudanet/campussync/internal/client/state"
	"github.com/iudanet/campussync/internal/client/storage"
	"github.com/iudanet/campussync/internal/models"
)

// ErrDegraded возвращается Load, когда состояние взято из локального fallback
var ErrDegraded = errors.New("remote unreachable, using local fallback")

// Mutator выполняет оптимистичные toggle-мутации
type Mutator struct {
	store         *state.Store
	remote        Remote
	notifier      Notifier
	fallback      storage.FallbackStorage
	cache         *reqcache.Cache
	logger        *slog.Logger
	isConflict    Classifier
	isUnreachable Classifier
	op            string
	actorID       string
	wg            sync.WaitGroup
	timeout       time.Duration
	loadStale     time.Duration
	loadTTL       time.Duration
}

// Option настраивает Mutator
type Option func(*Mutator)

// WithConflictClassifier задает распознавание повторной вставки (уже применено)
func WithConflictClassifier(fn Classifier) Option {
	return func(m *Mutator) {
		m.isConflict = fn
	}
}

// WithUnreachableClassifier задает распознавание полной недоступности сервера
func WithUnreachableClassifier(fn Classifier) Option {
	return func(m *Mutator) {
		m.isUnreachable = fn
	}
}

// WithNotifier задает получателя пользовательских уведомлений
func WithNotifier(n Notifier) Option {
	return func(m *Mutator) {
		m.notifier = n
	}
}

// WithFallback включает деградированный режим через локальное хранилище флагов
func WithFallback(fb storage.FallbackStorage, actorID string) Option {
	return func(m *Mutator) {
		m.fallback = fb
		m.actorID = actorID
	}
}

// WithCache дедуплицирует чтения Load через RequestCache
func WithCache(c *reqcache.Cache, staleAfter, ttl time.Duration) Option {
	return func(m *Mutator) {
		m.cache = c
		m.loadStale = staleAfter
		m.loadTTL = ttl
	}
}

// WithTimeout ограничивает длительность удаленного вызова
func WithTimeout(d time.Duration) Option {
	return func(m *Mutator) {
		m.timeout = d
	}
}

// WithOperation задает имя операции для ключей кэша (по умолчанию "reaction")
func WithOperation(op string) Option {
	return func(m *Mutator) {
		m.op = op
	}
}

// New создает Mutator поверх store и remote
func New(store *state.Store, remote Remote, logger *slog.Logger, opts ...Option) *Mutator {
	m := &Mutator{
		store:         store,
		remote:        remote,
		logger:        logger,
		notifier:      discardNotifier{},
		isConflict:    never,
		isUnreachable: never,
		op:            "reaction",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Toggle переключает сущность оптимистично и запускает удаленную мутацию в фоне.
// Если по сущности уже идет мутация, вызов игнорируется: started=false, done уже закрыт.
// done закрывается, когда мутация завершена (успех, откат или деградация).
func (m *Mutator) Toggle(ctx context.Context, entityID string) (done <-chan struct{}, started bool) {
	ch := make(chan struct{})

	prev, next, token, ok := m.store.Begin(entityID)
	if !ok {
		m.logger.Debug("Toggle ignored, mutation in flight", "entity_id", entityID)
		close(ch)
		return ch, false
	}

	// Поздний результат не отменяется, а отбрасывается по токену
	callCtx := context.WithoutCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(ch)
		m.run(callCtx, entityID, prev, next, token)
	}()

	return ch, true
}

// Wait блокируется до завершения всех запущенных мутаций
func (m *Mutator) Wait() {
	m.wg.Wait()
}

func (m *Mutator) run(ctx context.Context, entityID string, prev, next models.EntityToggleState, token uint64) {
	settled := false
	// finally: сущность всегда покидает PendingActionSet, даже при панике удаленного слоя
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Remote toggle panicked", "entity_id", entityID, "panic", r)
		}
		if !settled && m.store.Rollback(entityID, token) {
			m.notifier.Notify(models.Notice{
				Kind:     models.NoticeFailed,
				EntityID: entityID,
				Message:  "action failed, changes reverted",
			})
		}
	}()

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	res, err := m.remote.Apply(ctx, entityID, next.Active)
	switch {
	case err == nil:
		settled = m.store.Settle(entityID, token, res)
		m.confirmed(ctx, entityID)

	case next.Active && m.isConflict(err):
		// Уже применено тем же пользователем: считаем успехом, счетчик остается оптимистичным
		m.logger.Debug("Toggle already applied remotely", "entity_id", entityID)
		settled = m.store.Settle(entityID, token, models.ToggleResult{
			Active:  true,
			Count:   next.Count,
			Version: prev.Version,
		})
		m.confirmed(ctx, entityID)

	case m.isUnreachable(err) && m.fallback != nil:
		settled = m.degrade(ctx, entityID, prev, next, token)
		if !settled {
			m.logger.Warn("Remote unreachable and local fallback failed", "entity_id", entityID, "error", err)
		}

	default:
		m.logger.Warn("Remote toggle failed, rolling back", "entity_id", entityID, "error", err)
	}
}

// degrade сохраняет желаемое состояние локально, когда сервер недоступен полностью
func (m *Mutator) degrade(ctx context.Context, entityID string, prev, next models.EntityToggleState, token uint64) bool {
	if err := m.fallback.SetFlag(ctx, entityID, m.actorID, next.Active); err != nil {
		m.logger.Error("Failed to save fallback flag", "entity_id", entityID, "error", err)
		return false
	}

	count := next.Count
	// Без серверной базы счетчику не на что опереться: считаем локальные флаги
	if prev.Version == 0 {
		flags, err := m.fallback.CountFlags(ctx, entityID)
		if err != nil {
			m.logger.Warn("Failed to count fallback flags", "entity_id", entityID, "error", err)
		} else {
			count = flags
		}
	}

	if !m.store.Degrade(entityID, token, next.Active, count) {
		return false
	}

	m.logger.Warn("Remote unreachable, toggle stored locally", "entity_id", entityID, "active", next.Active)
	m.notifier.Notify(models.Notice{
		Kind:     models.NoticeDegraded,
		EntityID: entityID,
		Message:  "offline: change saved on this device",
	})
	return true
}

// confirmed вызывается после успешной мутации: кэшированное чтение устарело
func (m *Mutator) confirmed(ctx context.Context, entityID string) {
	if m.cache != nil {
		m.cache.Invalidate(m.cacheKey(entityID))
	}
	m.clearFallback(ctx, entityID)
}

// clearFallback удаляет локальный флаг: сервер снова подтвердил состояние
func (m *Mutator) clearFallback(ctx context.Context, entityID string) {
	if m.fallback == nil {
		return
	}
	if err := m.fallback.ClearFlag(ctx, entityID, m.actorID); err != nil {
		m.logger.Warn("Failed to clear fallback flag", "entity_id", entityID, "error", err)
	}
}

// Load читает авторитетное состояние сущности и засевает им store.
// Одинаковые одновременные чтения объединяются через RequestCache.
// Если сервер недоступен, состояние берется из локального fallback и возвращается ErrDegraded.
func (m *Mutator) Load(ctx context.Context, entityID string) error {
	res, err := m.fetch(ctx, entityID)
	if err == nil {
		m.store.Seed(entityID, res)
		m.clearFallback(ctx, entityID)
		return nil
	}

	if !m.isUnreachable(err) || m.fallback == nil {
		return fmt.Errorf("failed to load %s: %w", entityID, err)
	}

	active, ferr := m.fallback.GetFlag(ctx, entityID, m.actorID)
	if ferr != nil {
		return fmt.Errorf("failed to read fallback flag: %w", ferr)
	}
	count, ferr := m.fallback.CountFlags(ctx, entityID)
	if ferr != nil {
		return fmt.Errorf("failed to count fallback flags: %w", ferr)
	}

	// Уже известное серверное состояние или идущая мутация точнее локального флага
	if !m.store.Seed(entityID, models.ToggleResult{Active: active, Count: count}) {
		m.logger.Debug("Fallback state not applied, keeping current", "entity_id", entityID)
		return ErrDegraded
	}
	m.notifier.Notify(models.Notice{
		Kind:     models.NoticeDegraded,
		EntityID: entityID,
		Message:  "offline: showing locally saved state",
	})
	return ErrDegraded
}

func (m *Mutator) fetch(ctx context.Context, entityID string) (models.ToggleResult, error) {
	if m.cache == nil {
		return m.remote.Fetch(ctx, entityID)
	}
	return reqcache.Do(ctx, m.cache, m.cacheKey(entityID), m.loadStale, m.loadTTL,
		func(ctx context.Context) (models.ToggleResult, error) {
			return m.remote.Fetch(ctx, entityID)
		})
}

func (m *Mutator) cacheKey(entityID string) string {
	return reqcache.Key(m.op, entityID)
}
