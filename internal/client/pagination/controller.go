// Package pagination реализует постраничную подгрузку ленты по offset/limit.
//
// Короткая страница (len < limit) - единственный признак конца ленты.
// Каждый запрос помечается поколением и номером страницы; Refresh начинает новое поколение,
// и ответы старых поколений отбрасываются молча.
package pagination

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/campussync/internal/client/reqcache"
)

// Значения по умолчанию
const (
	DefaultPageSize = 20
	DefaultDebounce = 150 * time.Millisecond
)

// Fetcher читает страницу элементов
type Fetcher[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Window снимок состояния контроллера для отображения
type Window[T any] struct {
	Err     error // Err последняя ошибка загрузки (сбрасывается успешной загрузкой)
	Items   []T   // Items загруженные элементы в серверном порядке
	Page    int   // Page номер последней загруженной или загружаемой страницы, с 1
	HasMore bool  // HasMore можно ли загрузить следующую страницу
	Loading bool  // Loading идет ли загрузка текущего поколения
}

// Config параметры контроллера
type Config struct {
	Logger *slog.Logger
	// Cache необязательный RequestCache для дедупликации одинаковых запросов страниц
	Cache *reqcache.Cache
	// IsUnreachable классифицирует полную недоступность сервера: окно становится пустым с ошибкой
	IsUnreachable func(error) bool
	CacheOp       string
	PageSize      int
	Debounce      time.Duration
	CacheStale    time.Duration
	CacheTTL      time.Duration
}

// Controller управляет окном загруженных страниц
type Controller[T any] struct {
	err      error
	ctx      context.Context
	fetch    Fetcher[T]
	cancel   context.CancelFunc
	timer    *time.Timer
	observer func(Window[T])
	cfg      Config
	items    []T
	gen      uint64
	page     int
	wg       sync.WaitGroup
	mu       sync.Mutex
	hasMore  bool
	loading  bool
	closed   bool
}

// New создает контроллер. Первая страница не загружается автоматически.
func New[T any](fetch Fetcher[T], cfg Config) *Controller[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CacheOp == "" {
		cfg.CacheOp = "page"
	}
	if cfg.IsUnreachable == nil {
		cfg.IsUnreachable = func(error) bool { return false }
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller[T]{
		fetch:   fetch,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		hasMore: true,
	}
}

// OnChange задает наблюдателя, вызываемого после каждого изменения окна
func (c *Controller[T]) OnChange(fn func(Window[T])) {
	c.mu.Lock()
	c.observer = fn
	c.mu.Unlock()
}

// Snapshot возвращает копию текущего окна
func (c *Controller[T]) Snapshot() Window[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// HasMore сообщает, можно ли загрузить следующую страницу
func (c *Controller[T]) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// LoadMore загружает следующую страницу, если лента не исчерпана и загрузка не идет.
// Блокируется до применения (или отбрасывания) результата. Возвращает false, если запрос не выполнялся.
// Ошибка сохраняется в окне; повтор - повторным вызовом LoadMore.
func (c *Controller[T]) LoadMore(ctx context.Context) bool {
	c.mu.Lock()
	if c.closed || c.loading || !c.hasMore {
		c.mu.Unlock()
		return false
	}
	c.page++
	gen, page := c.gen, c.page
	c.loading = true
	snap, observer := c.snapshotLocked(), c.observer
	c.mu.Unlock()

	notify(observer, snap)
	c.load(ctx, gen, page, false)
	return true
}

// Refresh начинает новое поколение: сбрасывает окно на первую страницу и загружает ее.
// Ответ загрузки, начатой до Refresh, будет отброшен.
func (c *Controller[T]) Refresh(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.page = 1
	c.hasMore = true
	c.loading = true
	c.err = nil
	gen := c.gen
	snap, observer := c.snapshotLocked(), c.observer
	c.mu.Unlock()

	// Свежие данные: кэшированные страницы прошлых поколений не используем
	if c.cfg.Cache != nil {
		c.cfg.Cache.InvalidatePrefix(c.cfg.CacheOp)
	}

	notify(observer, snap)
	c.load(ctx, gen, 1, true)
}

// Trigger сигнал видимости sentinel-элемента в конце списка.
// Частые сигналы схлопываются таймером; загрузка начинается, только если HasMore и не Loading.
func (c *Controller[T]) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Reset(c.cfg.Debounce)
		return
	}
	c.timer = time.AfterFunc(c.cfg.Debounce, c.fire)
}

func (c *Controller[T]) fire() {
	c.mu.Lock()
	if c.closed || c.loading || !c.hasMore {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	c.LoadMore(c.ctx)
}

// Close останавливает таймер видимости и ждет загрузку, начатую им
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Controller[T]) load(ctx context.Context, gen uint64, page int, reset bool) {
	offset := (page - 1) * c.cfg.PageSize
	batch, err := c.get(ctx, offset)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.cfg.Logger.Debug("Discarding stale page", "generation", gen, "page", page)
		return
	}

	c.loading = false
	switch {
	case err == nil:
		if reset {
			c.items = append([]T(nil), batch...)
		} else {
			c.items = append(c.items, batch...)
		}
		c.err = nil
		c.hasMore = len(batch) >= c.cfg.PageSize

	case reset || c.cfg.IsUnreachable(err):
		// Пусто с ошибкой: следующий LoadMore начнет с первой страницы
		c.items = nil
		c.page = 0
		c.err = err

	default:
		// Страница не загружена: при повторе запрашиваем ее же
		c.page--
		c.err = err
	}
	snap, observer := c.snapshotLocked(), c.observer
	c.mu.Unlock()

	if err != nil {
		c.cfg.Logger.Warn("Failed to load page", "page", page, "error", err)
	}
	notify(observer, snap)
}

func (c *Controller[T]) get(ctx context.Context, offset int) ([]T, error) {
	if c.cfg.Cache == nil {
		return c.fetch(ctx, offset, c.cfg.PageSize)
	}
	key := reqcache.Key(c.cfg.CacheOp, offset, c.cfg.PageSize)
	return reqcache.Do(ctx, c.cfg.Cache, key, c.cfg.CacheStale, c.cfg.CacheTTL,
		func(ctx context.Context) ([]T, error) {
			return c.fetch(ctx, offset, c.cfg.PageSize)
		})
}

func (c *Controller[T]) snapshotLocked() Window[T] {
	return Window[T]{
		Items:   append([]T(nil), c.items...),
		Page:    c.page,
		HasMore: c.hasMore,
		Loading: c.loading,
		Err:     c.err,
	}
}

func notify[T any](fn func(Window[T]), w Window[T]) {
	if fn != nil {
		fn(w)
	}
}
