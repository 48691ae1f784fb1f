// Package config содержит настройки клиента (Sync) и справочного сервера (Server).
// Значения по умолчанию задаются Default*, флаги и переменные окружения CAMPUS_* их переопределяют.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/iudanet/campussync/internal/gate"
)

// Префикс переменных окружения
const EnvPrefix = "CAMPUS_"

// Sync настройки клиентского ядра синхронизации
type Sync struct {
	ServerURL string
	DBPath    string
	LogLevel  string
	// Gate ограничение частоты пользовательских действий
	Gate gate.Config
	// CacheStale окно дедупликации одинаковых запросов
	CacheStale time.Duration
	// CacheTTL время жизни записи RequestCache
	CacheTTL time.Duration
	// Debounce задержка триггера видимости ленты
	Debounce time.Duration
	// MutationTimeout предел длительности удаленной мутации (0 - без предела)
	MutationTimeout time.Duration
	PageSize        int
}

// Server настройки справочного сервера
type Server struct {
	Addr      string
	DBPath    string
	JWTSecret string
	LogLevel  string
	// RateLimit ограничение запросов на один IP
	RateLimit gate.Config
	// SessionRateLimit отдельное, более строгое ограничение выдачи сессий
	SessionRateLimit gate.Config
	AccessTokenTTL   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultSync возвращает настройки клиента по умолчанию
func DefaultSync() Sync {
	return Sync{
		ServerURL: "http://localhost:8080",
		DBPath:    "campusctl.db",
		LogLevel:  "info",
		Gate: gate.Config{
			MaxAttempts:      5,
			Window:           10 * time.Second,
			ProgressiveDelay: true,
		},
		CacheStale:      2 * time.Second,
		CacheTTL:        30 * time.Second,
		Debounce:        150 * time.Millisecond,
		MutationTimeout: 15 * time.Second,
		PageSize:        20,
	}
}

// DefaultServer возвращает настройки сервера по умолчанию
func DefaultServer() Server {
	return Server{
		Addr:     ":8080",
		DBPath:   "campussync.db",
		LogLevel: "info",
		RateLimit: gate.Config{
			MaxAttempts:   100,
			Window:        time.Minute,
			BlockDuration: time.Minute,
		},
		SessionRateLimit: gate.Config{
			MaxAttempts:   10,
			Window:        time.Minute,
			BlockDuration: 5 * time.Minute,
		},
		AccessTokenTTL:  24 * time.Hour,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate проверяет настройки клиента
func (s Sync) Validate() error {
	var errs []error

	if u, err := url.Parse(s.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("server url %q must be absolute", s.ServerURL))
	}
	if s.DBPath == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	if err := validateGate(s.Gate); err != nil {
		errs = append(errs, fmt.Errorf("gate: %w", err))
	}
	if s.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page size must be positive, got %d", s.PageSize))
	}
	if s.CacheStale < 0 || s.CacheTTL < 0 {
		errs = append(errs, errors.New("cache durations must not be negative"))
	}
	if s.CacheTTL > 0 && s.CacheStale > s.CacheTTL {
		errs = append(errs, fmt.Errorf("cache stale window %s exceeds ttl %s", s.CacheStale, s.CacheTTL))
	}
	if s.Debounce < 0 || s.MutationTimeout < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Validate проверяет настройки сервера
func (s Server) Validate() error {
	var errs []error

	if s.Addr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if s.DBPath == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	if len(s.JWTSecret) < 16 {
		errs = append(errs, errors.New("jwt secret must be at least 16 bytes"))
	}
	if s.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("access token ttl must be positive"))
	}
	if err := validateGate(s.RateLimit); err != nil {
		errs = append(errs, fmt.Errorf("rate limit: %w", err))
	}
	if err := validateGate(s.SessionRateLimit); err != nil {
		errs = append(errs, fmt.Errorf("session rate limit: %w", err))
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateGate(c gate.Config) error {
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", c.Window)
	}
	if c.BlockDuration < 0 {
		return fmt.Errorf("block duration must not be negative, got %s", c.BlockDuration)
	}
	return nil
}

// LookupFunc источник переменных окружения (os.LookupEnv в бинарниках)
type LookupFunc func(key string) (string, bool)

// ApplyEnv переопределяет настройки клиента переменными CAMPUS_*
func (s *Sync) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	e := envReader{lookup: lookup}

	e.str("SERVER_URL", &s.ServerURL)
	e.str("DB", &s.DBPath)
	e.str("LOG_LEVEL", &s.LogLevel)
	e.integer("PAGE_SIZE", &s.PageSize)
	e.integer("GATE_MAX_ATTEMPTS", &s.Gate.MaxAttempts)
	e.duration("GATE_WINDOW", &s.Gate.Window)
	e.duration("GATE_BLOCK", &s.Gate.BlockDuration)
	e.duration("CACHE_STALE", &s.CacheStale)
	e.duration("CACHE_TTL", &s.CacheTTL)
	e.duration("DEBOUNCE", &s.Debounce)
	e.duration("MUTATION_TIMEOUT", &s.MutationTimeout)

	return errors.Join(e.errs...)
}

// ApplyEnv переопределяет настройки сервера переменными CAMPUS_*
func (s *Server) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	e := envReader{lookup: lookup}

	e.str("ADDR", &s.Addr)
	e.str("DB", &s.DBPath)
	e.str("JWT_SECRET", &s.JWTSecret)
	e.str("LOG_LEVEL", &s.LogLevel)
	e.duration("ACCESS_TOKEN_TTL", &s.AccessTokenTTL)
	e.duration("SHUTDOWN_TIMEOUT", &s.ShutdownTimeout)
	e.integer("RATE_LIMIT", &s.RateLimit.MaxAttempts)
	e.duration("RATE_WINDOW", &s.RateLimit.Window)
	e.integer("SESSION_RATE_LIMIT", &s.SessionRateLimit.MaxAttempts)

	return errors.Join(e.errs...)
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.lookup(EnvPrefix + name); ok && v != "" {
		*dst = v
	}
}

func (e *envReader) integer(name string, dst *int) {
	v, ok := e.lookup(EnvPrefix + name)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		return
	}
	*dst = n
}

func (e *envReader) duration(name string, dst *time.Duration) {
	v, ok := e.lookup(EnvPrefix + name)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		return
	}
	*dst = d
}
