// Package reqcache дедуплицирует одинаковые конкурентные запросы и держит их результат
// ограниченное время.
//
// Для любого ключа в пределах окна устаревания выполняется не более одного вызова factory;
// все одновременные вызывающие получают один и тот же результат (значение или ошибку).
package reqcache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ErrTypeMismatch возвращается, если под ключом лежит результат другого типа
var ErrTypeMismatch = errors.New("cached value has unexpected type")

// entry разделяемый результат одного вызова factory
type entry struct {
	createdAt time.Time
	val       any
	err       error
	done      chan struct{}
	timer     *time.Timer
}

// Stats счетчики попаданий
type Stats struct {
	Hits    int64
	Misses  int64
	Evicted int64
}

// Cache дедуплицирующий кэш запросов
type Cache struct {
	now     func() time.Time
	entries map[string]*entry
	logger  *slog.Logger
	stats   Stats
	mu      sync.Mutex
}

// Option настраивает Cache
type Option func(*Cache)

// WithClock подменяет источник времени для проверки устаревания
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger задает логгер
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New создает пустой кэш
func New(opts ...Option) *Cache {
	c := &Cache{
		now:     time.Now,
		entries: make(map[string]*entry),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key строит канонический ключ из операции и параметров.
// Параметры сериализуются в JSON (ключи map сортируются) и хешируются BLAKE2b-256.
func Key(op string, params ...any) string {
	raw, err := json.Marshal(params)
	if err != nil {
		raw = []byte(fmt.Sprintf("%#v", params))
	}
	sum := blake2b.Sum256(raw)
	return op + ":" + hex.EncodeToString(sum[:])
}

// Do возвращает результат factory для key, разделяя его между всеми вызывающими,
// пока запись моложе staleAfter. Через ttl после создания запись вытесняется таймером.
// Отмена ctx освобождает только текущего вызывающего: общий вызов продолжается.
func Do[T any](ctx context.Context, c *Cache, key string, staleAfter, ttl time.Duration, factory func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	e, leader := c.acquire(key, staleAfter, ttl)
	if leader {
		go c.run(ctx, e, func(ctx context.Context) (any, error) {
			return factory(ctx)
		})
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	if e.err != nil {
		return zero, e.err
	}
	if e.val == nil {
		return zero, nil
	}
	v, ok := e.val.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %s holds %T", ErrTypeMismatch, key, e.val)
	}
	return v, nil
}

// acquire возвращает живую запись или создает новую. leader=true означает,
// что вызывающий должен запустить factory.
func (c *Cache) acquire(key string, staleAfter, ttl time.Duration) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok && now.Sub(e.createdAt) < staleAfter {
		c.stats.Hits++
		return e, false
	}

	if old, ok := c.entries[key]; ok && old.timer != nil {
		old.timer.Stop()
	}

	c.stats.Misses++
	e := &entry{createdAt: now, done: make(chan struct{})}
	c.entries[key] = e
	if ttl > 0 {
		e.timer = time.AfterFunc(ttl, func() {
			c.evict(key, e)
		})
	}
	return e, true
}

// run выполняет factory отвязанно от отмены вызывающего и публикует результат
func (c *Cache) run(ctx context.Context, e *entry, factory func(ctx context.Context) (any, error)) {
	defer close(e.done)
	defer func() {
		if r := recover(); r != nil {
			e.val = nil
			e.err = fmt.Errorf("request factory panicked: %v", r)
			c.logger.Error("Request factory panicked", "panic", r)
		}
	}()

	e.val, e.err = factory(context.WithoutCancel(ctx))
}

// evict удаляет запись, если под ключом все еще лежит именно она
func (c *Cache) evict(key string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.entries[key]; ok && cur == e {
		delete(c.entries, key)
		c.stats.Evicted++
	}
}

// Invalidate явно удаляет запись. Ожидающие вызывающие получат результат старого вызова.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropLocked(key)
}

// InvalidatePrefix удаляет все записи операции op (ключи вида "op:...")
func (c *Cache) InvalidatePrefix(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := op + ":"
	n := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.dropLocked(key)
			n++
		}
	}
	return n
}

// Len количество живых записей
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Stats возвращает копию счетчиков
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stats
}

// Close останавливает все таймеры вытеснения и очищает кэш
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		c.dropLocked(key)
	}
}

func (c *Cache) dropLocked(key string) {
	if e, ok := c.entries[key]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(c.entries, key)
	}
}
