// Package gate реализует RateGate - admission control по ключу со скользящим окном.
//
// Gate только принимает решение: само действие он не выполняет и ошибок не возвращает.
package gate

import (
	"log/slog"
	"sync"
	"time"
)

const (
	baseDelay = time.Second
	maxDelay  = 30 * time.Second
)

// Config параметры RateGate
type Config struct {
	// MaxAttempts максимальное количество попыток в окне
	MaxAttempts int
	// Window длина скользящего окна
	Window time.Duration
	// BlockDuration длительность жесткой блокировки при превышении лимита (0 - без эскалации)
	BlockDuration time.Duration
	// ProgressiveDelay добавлять к разрешенным попыткам рекомендуемую экспоненциальную задержку
	ProgressiveDelay bool
}

// Decision результат Admit
type Decision struct {
	// RetryAfter через сколько можно повторить (только для отказа)
	RetryAfter time.Duration
	// SuggestedDelay рекомендуемая UI задержка перед следующей попыткой (только совет, не enforced)
	SuggestedDelay time.Duration
	Allowed        bool
}

// window состояние конкретного ключа
type window struct {
	blockedUntil time.Time
	lastSeen     time.Time
	timestamps   []time.Time
}

// Gate представляет RateGate со скользящим окном по ключам
type Gate struct {
	now      func() time.Time
	windows  map[string]*window
	logger   *slog.Logger
	cleanupC chan struct{}
	cfg      Config
	stopOnce sync.Once
	mu       sync.Mutex
}

// Option настраивает Gate
type Option func(*Gate)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// WithLogger задает логгер
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// New создает новый gate и запускает периодическую очистку неактивных ключей.
// Вызывающий обязан вызвать Stop.
func New(cfg Config, opts ...Option) *Gate {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}

	g := &Gate{
		cfg:      cfg,
		now:      time.Now,
		windows:  make(map[string]*window),
		logger:   slog.Default(),
		cleanupC: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}

	// Запускаем периодическую очистку старых окон
	go g.cleanup()

	return g
}

// Admit решает, разрешена ли очередная попытка для ключа
func (g *Gate) Admit(key string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	w, exists := g.windows[key]
	if !exists {
		w = &window{}
		g.windows[key] = w
	}
	w.lastSeen = now

	// Жесткая блокировка действует независимо от содержимого окна
	if now.Before(w.blockedUntil) {
		return Decision{Allowed: false, RetryAfter: w.blockedUntil.Sub(now)}
	}

	w.prune(now, g.cfg.Window)

	if len(w.timestamps) >= g.cfg.MaxAttempts {
		if g.cfg.BlockDuration > 0 {
			w.blockedUntil = now.Add(g.cfg.BlockDuration)
			g.logger.Warn("Rate gate escalated to block",
				"key", key,
				"block_duration", g.cfg.BlockDuration)
			return Decision{Allowed: false, RetryAfter: g.cfg.BlockDuration}
		}

		// Повторить можно, когда самая старая попытка выйдет из окна
		retry := w.timestamps[0].Add(g.cfg.Window).Sub(now)
		return Decision{Allowed: false, RetryAfter: retry}
	}

	w.timestamps = append(w.timestamps, now)

	d := Decision{Allowed: true}
	if g.cfg.ProgressiveDelay {
		d.SuggestedDelay = progressiveDelay(len(w.timestamps))
	}
	return d
}

// Reset очищает все состояние ключа (окно и блокировку)
func (g *Gate) Reset(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.windows, key)
}

// Stop останавливает cleanup goroutine. Повторный вызов безопасен.
func (g *Gate) Stop() {
	g.stopOnce.Do(func() {
		close(g.cleanupC)
	})
}

// prune удаляет попытки старше окна
func (w *window) prune(now time.Time, size time.Duration) {
	idx := 0
	for idx < len(w.timestamps) && now.Sub(w.timestamps[idx]) >= size {
		idx++
	}
	if idx > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[idx:]...)
	}
}

// progressiveDelay min(2^(n-1) * 1s, 30s)
func progressiveDelay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	delay := baseDelay
	for i := 1; i < n; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return delay
}

// cleanup периодически удаляет неактивные окна для экономии памяти
func (g *Gate) cleanup() {
	interval := g.cfg.Window * 2
	if g.cfg.BlockDuration > interval {
		interval = g.cfg.BlockDuration
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.cleanupIdle()
		case <-g.cleanupC:
			return
		}
	}
}

// cleanupIdle удаляет окна без попыток в окне и без активной блокировки
func (g *Gate) cleanupIdle() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, w := range g.windows {
		if now.Before(w.blockedUntil) {
			continue
		}
		if now.Sub(w.lastSeen) > g.cfg.Window*2 {
			delete(g.windows, key)
		}
	}
}
