// Package realtime вливает push-уведомления об изменениях сущностей в state.Store.
//
// Каждый канал владеет непересекающимся набором полей (например, "reactions" - count и is_active,
// "comments" - счетчик комментариев). Поля вне владения канала отбрасываются, остальные
// сливаются по LWW. Доставка at-least-once: повторы отсекаются по ULID события и по версии.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/iudanet/campussync/internal/client/state"
	"github.com/iudanet/campussync/internal/models"
)

//go:generate moq -out transport_mock.go . Transport

// Transport подписка на push-канал сервера
type Transport interface {
	Subscribe(ctx context.Context, channel, entityID string) error
	Unsubscribe(ctx context.Context, channel, entityID string) error
}

// DefaultDedupeWindow сколько помнить ID доставленных событий
const DefaultDedupeWindow = 5 * time.Minute

// Channel описывает канал и поля, которыми он владеет
type Channel struct {
	Name string
	// Fields имена полей: state.FieldActive, state.FieldCount, state.CounterField(name)
	Fields []string
}

// DefaultChannels каналы ленты: реакции и счетчик комментариев
func DefaultChannels() []Channel {
	return []Channel{
		{Name: models.ChannelReactions, Fields: []string{state.FieldActive, state.FieldCount}},
		{Name: models.ChannelComments, Fields: []string{state.CounterField(models.CounterComments)}},
	}
}

// Reconciler фильтрует, дедуплицирует и вливает realtime-события
type Reconciler struct {
	now       func() time.Time
	store     *state.Store
	transport Transport
	logger    *slog.Logger
	owned     map[string]map[string]bool
	subs      map[string]*subscription
	seen      map[string]time.Time
	channels  []Channel
	window    time.Duration
	mu        sync.Mutex
}

// NewReconciler создает Reconciler. Поля каналов не должны пересекаться.
func NewReconciler(store *state.Store, transport Transport, logger *slog.Logger, channels ...Channel) (*Reconciler, error) {
	if len(channels) == 0 {
		channels = DefaultChannels()
	}

	owner := make(map[string]string)
	owned := make(map[string]map[string]bool, len(channels))
	for _, ch := range channels {
		if _, dup := owned[ch.Name]; dup {
			return nil, fmt.Errorf("channel %q registered twice", ch.Name)
		}
		fields := make(map[string]bool, len(ch.Fields))
		for _, f := range ch.Fields {
			if other, taken := owner[f]; taken {
				return nil, fmt.Errorf("field %q owned by both %q and %q", f, other, ch.Name)
			}
			owner[f] = ch.Name
			fields[f] = true
		}
		owned[ch.Name] = fields
	}

	return &Reconciler{
		now:       time.Now,
		store:     store,
		transport: transport,
		logger:    logger,
		owned:     owned,
		subs:      make(map[string]*subscription),
		seen:      make(map[string]time.Time),
		channels:  channels,
		window:    DefaultDedupeWindow,
	}, nil
}

// subscription удаленная подписка сущности, общая для всех локальных подписчиков.
// ready закрывается, когда первый подписчик получил ответ транспорта; err после этого неизменна.
type subscription struct {
	ready chan struct{}
	err   error
	refs  int
}

// Subscribe подписывает сущность на все каналы. Повторные подписки разделяют одну удаленную
// и ждут ее результата. Возвращенная функция отписки идемпотентна.
func (r *Reconciler) Subscribe(ctx context.Context, entityID string) (func(), error) {
	r.mu.Lock()
	sub, ok := r.subs[entityID]
	if !ok {
		sub = &subscription{ready: make(chan struct{})}
		r.subs[entityID] = sub
	}
	sub.refs++
	r.mu.Unlock()

	if !ok {
		sub.err = r.subscribeRemote(ctx, entityID)
		if sub.err != nil {
			r.mu.Lock()
			if r.subs[entityID] == sub {
				delete(r.subs, entityID)
			}
			r.mu.Unlock()
		}
		close(sub.ready)
	} else {
		select {
		case <-sub.ready:
		case <-ctx.Done():
			// Удаленную подписку держит первый подписчик
			r.release(entityID, sub)
			return nil, ctx.Err()
		}
	}
	if sub.err != nil {
		return nil, sub.err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if !r.release(entityID, sub) {
				return
			}
			for _, ch := range r.channels {
				if err := r.transport.Unsubscribe(context.Background(), ch.Name, entityID); err != nil {
					r.logger.Warn("Failed to unsubscribe", "entity_id", entityID, "channel", ch.Name, "error", err)
				}
			}
		})
	}, nil
}

func (r *Reconciler) subscribeRemote(ctx context.Context, entityID string) error {
	for i, ch := range r.channels {
		if err := r.transport.Subscribe(ctx, ch.Name, entityID); err != nil {
			// Откатываем уже оформленные подписки
			for _, done := range r.channels[:i] {
				_ = r.transport.Unsubscribe(ctx, done.Name, entityID)
			}
			return fmt.Errorf("failed to subscribe %s to %s: %w", entityID, ch.Name, err)
		}
	}
	return nil
}

// release уменьшает счетчик подписок; true, если подписчиков не осталось
func (r *Reconciler) release(entityID string, sub *subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub.refs--
	if sub.refs > 0 {
		return false
	}
	if r.subs[entityID] == sub {
		delete(r.subs, entityID)
	}
	return true
}

// Handle вливает событие. Возвращает true, если видимое состояние изменилось.
func (r *Reconciler) Handle(ev models.RealtimeEvent) bool {
	fields, ok := r.owned[ev.Channel]
	if !ok {
		r.logger.Debug("Event for unknown channel dropped", "channel", ev.Channel, "event_id", ev.ID)
		return false
	}

	if r.duplicate(ev.ID) {
		r.logger.Debug("Duplicate event dropped", "event_id", ev.ID)
		return false
	}

	ev.Fields = filter(ev.Fields, fields)
	if ev.Fields.Empty() {
		return false
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = r.now()
	}
	return r.store.Merge(ev)
}

// duplicate запоминает ID события. Старые ID вытесняются по времени из ULID.
func (r *Reconciler) duplicate(id string) bool {
	if id == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[id]; ok {
		return true
	}

	now := r.now()
	at := now
	if parsed, err := ulid.ParseStrict(id); err == nil {
		at = ulid.Time(parsed.Time())
	}
	// Событие старше окна уже не может быть повтором из памяти; версия все равно отсечет его
	if now.Sub(at) > r.window {
		return false
	}
	r.seen[id] = at

	for k, t := range r.seen {
		if now.Sub(t) > r.window {
			delete(r.seen, k)
		}
	}
	return false
}

func filter(in models.Fields, owned map[string]bool) models.Fields {
	var out models.Fields
	if owned[state.FieldActive] {
		out.Active = in.Active
	}
	if owned[state.FieldCount] {
		out.Count = in.Count
	}
	for name, v := range in.Counters {
		if owned[state.CounterField(name)] {
			if out.Counters == nil {
				out.Counters = make(map[string]uint64)
			}
			out.Counters[name] = v
		}
	}
	return out
}
