// Package state содержит общее клиентское хранилище toggle-состояний сущностей.
//
// Store владеет картой EntityToggleState, множеством ожидающих мутаций (PendingActionSet)
// и отложенными realtime-событиями. Компоненты получают Store через конструктор;
// UI читает производное представление через Get/Watch и никогда не меняет карты напрямую.
// Каждый переход состояния выполняется целиком под мьютексом.
package state

import (
	"sync"
	"time"

	"github.com/iudanet/campussync/internal/crdt"
	"github.com/iudanet/campussync/internal/models"
)

// Поля, которыми владеет OptimisticMutator. Realtime-значения для них откладываются,
// пока мутация не завершится.
const (
	FieldActive = "active"
	FieldCount  = "count"
)

// CounterField возвращает имя поля именованного счетчика
func CounterField(name string) string {
	return "counters." + name
}

// WatchFunc вызывается после каждого изменения видимого состояния сущности
type WatchFunc func(entityID string, s models.EntityToggleState)

type entry struct {
	clock    *crdt.FieldClock
	deferred []models.RealtimeEvent
	state    models.EntityToggleState
	token    uint64
	// delta примененная оптимистичная дельта: +1 активация, -1 деактивация,
	// 0 если деактивация уперлась в ноль и счетчик не менялся
	delta int
	// activated направление оптимистичного переключения
	activated bool
}

// Store общее хранилище toggle-состояний
type Store struct {
	now      func() time.Time
	entities map[string]*entry
	watchers map[uint64]WatchFunc
	nextID   uint64
	tokens   uint64
	mu       sync.Mutex
}

// Option настраивает Store
type Option func(*Store)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore создает пустое изолированное хранилище
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		entities: make(map[string]*entry),
		watchers: make(map[uint64]WatchFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get возвращает копию состояния сущности. ok=false, если сущность еще не встречалась.
func (s *Store) Get(entityID string) (models.EntityToggleState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[entityID]
	if !ok {
		return models.EntityToggleState{}, false
	}
	return e.state.Clone(), true
}

// IsPending сообщает, есть ли у сущности незавершенная удаленная мутация
func (s *Store) IsPending(entityID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[entityID]
	return ok && e.state.Pending
}

// Pending возвращает идентификаторы сущностей из PendingActionSet
func (s *Store) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, e := range s.entities {
		if e.state.Pending {
			ids = append(ids, id)
		}
	}
	return ids
}

// Watch подписывает fn на изменения. Возвращает функцию отписки.
func (s *Store) Watch(fn WatchFunc) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// Seed применяет авторитетное состояние, прочитанное с сервера.
// Игнорируется, пока по сущности идет мутация, и если серверная версия старше уже примененной.
func (s *Store) Seed(entityID string, res models.ToggleResult) bool {
	s.mu.Lock()
	e := s.getOrCreate(entityID)
	if e.state.Pending {
		s.mu.Unlock()
		return false
	}

	stamp := crdt.Stamp{Version: res.Version}
	if cur, ok := e.clock.Get(FieldCount); ok && cur.Version > res.Version {
		s.mu.Unlock()
		return false
	}
	e.clock.Advance(FieldActive, stamp)
	e.clock.Advance(FieldCount, stamp)
	e.state.Active = res.Active
	e.state.Count = res.Count
	if res.Version > e.state.Version {
		e.state.Version = res.Version
	}
	snapshot := e.state.Clone()
	watchers := s.watchersLocked()
	s.mu.Unlock()

	notify(watchers, entityID, snapshot)
	return true
}

// SeedCounter задает значение именованного счетчика из авторитетного чтения (например, из ленты)
func (s *Store) SeedCounter(entityID, name string, value uint64, version int64) {
	s.mu.Lock()
	e := s.getOrCreate(entityID)
	if cur, ok := e.clock.Get(CounterField(name)); ok && cur.Version > version {
		s.mu.Unlock()
		return
	}
	e.clock.Advance(CounterField(name), crdt.Stamp{Version: version})
	setCounter(&e.state, name, value)
	snapshot := e.state.Clone()
	watchers := s.watchersLocked()
	s.mu.Unlock()

	notify(watchers, entityID, snapshot)
}

// Begin начинает оптимистичную мутацию: если сущность уже в PendingActionSet, возвращает ok=false.
// Иначе помечает сущность как pending, публикует оптимистичное состояние и возвращает
// снимок до мутации, новое состояние и токен мутации для Settle/Rollback.
func (s *Store) Begin(entityID string) (prev, next models.EntityToggleState, token uint64, ok bool) {
	s.mu.Lock()
	e := s.getOrCreate(entityID)
	if e.state.Pending {
		s.mu.Unlock()
		return models.EntityToggleState{}, models.EntityToggleState{}, 0, false
	}

	prev = e.state.Clone()
	e.state = prev.Toggled()
	e.state.Pending = true
	e.state.LastLocalActionAt = s.now()

	e.activated = e.state.Active
	switch {
	case e.state.Count > prev.Count:
		e.delta = 1
	case e.state.Count < prev.Count:
		e.delta = -1
	default:
		e.delta = 0
	}

	s.tokens++
	e.token = s.tokens
	token = e.token
	next = e.state.Clone()
	watchers := s.watchersLocked()
	s.mu.Unlock()

	notify(watchers, entityID, next)
	return prev, next, token, true
}

// Settle завершает мутацию авторитетным ответом сервера.
// Ответ перекрывает оптимистичную догадку; отложенные realtime-события применяются
// после него и только если их версия новее версии ответа.
// Возвращает false для устаревшего токена (результат игнорируется).
func (s *Store) Settle(entityID string, token uint64, res models.ToggleResult) bool {
	s.mu.Lock()
	e, ok := s.entities[entityID]
	if !ok || !e.state.Pending || e.token != token {
		s.mu.Unlock()
		return false
	}

	stamp := crdt.Stamp{Version: res.Version}
	e.clock.Advance(FieldActive, stamp)
	e.clock.Advance(FieldCount, stamp)
	e.state.Active = res.Active
	e.state.Count = res.Count
	if res.Version > e.state.Version {
		e.state.Version = res.Version
	}
	e.state.Pending = false

	// Ответ мутации побеждает события из очереди с той же или меньшей версией
	for _, ev := range e.deferred {
		if ev.Version > res.Version {
			applyLocked(e, ev)
		}
	}
	e.deferred = nil

	snapshot := e.state.Clone()
	watchers := s.watchersLocked()
	s.mu.Unlock()

	notify(watchers, entityID, snapshot)
	return true
}

// Rollback отменяет ровно ту дельту, которую применил Begin (не перечитывая состояние),
// затем применяет отложенные realtime-события.
func (s *Store) Rollback(entityID string, token uint64) bool {
	s.mu.Lock()
	e, ok := s.entities[entityID]
	if !ok || !e.state.Pending || e.token != token {
		s.mu.Unlock()
		return false
	}

	e.state.Active = !e.activated
	switch e.delta {
	case 1:
		if e.state.Count > 0 {
			e.state.Count--
		}
	case -1:
		e.state.Count++
	}
	e.state.Pending = false
	s.flushDeferredLocked(e)

	snapshot := e.state.Clone()
	watchers := s.watchersLocked()
	s.mu.Unlock()

	notify(watchers, entityID, snapshot)
	return true
}

// Degrade завершает мутацию в деградированном режиме (сервер недоступен):
// active и count берутся из локального fallback, серверные штампы не двигаются.
func (s *Store) Degrade(entityID string, token uint64, active bool, count uint64) bool {
	s.mu.Lock()
	e, ok := s.entities[entityID]
	if !ok || !e.state.Pending || e.token != token {
		s.mu.Unlock()
		return false
	}

	e.state.Active = active
	e.state.Count = count
	e.state.Pending = false
	s.flushDeferredLocked(e)

	snapshot := e.state.Clone()
	watchers := s.watchersLocked()
	s.mu.Unlock()

	notify(watchers, entityID, snapshot)
	return true
}

// Merge вливает realtime-событие: обновляются только переданные поля, каждое по LWW.
// Поля, которыми владеет незавершенная мутация, откладываются до Settle/Rollback.
// Возвращает true, если видимое состояние изменилось.
func (s *Store) Merge(ev models.RealtimeEvent) bool {
	s.mu.Lock()
	e := s.getOrCreate(ev.EntityID)

	if e.state.Pending && (ev.Fields.Active != nil || ev.Fields.Count != nil) {
		owned := models.RealtimeEvent{
			ID:         ev.ID,
			EntityID:   ev.EntityID,
			Channel:    ev.Channel,
			Version:    ev.Version,
			ReceivedAt: ev.ReceivedAt,
			Fields: models.Fields{
				Active: ev.Fields.Active,
				Count:  ev.Fields.Count,
			},
		}
		e.deferred = append(e.deferred, owned)
		ev.Fields.Active = nil
		ev.Fields.Count = nil
	}

	changed := applyLocked(e, ev)
	if !changed {
		s.mu.Unlock()
		return false
	}

	snapshot := e.state.Clone()
	watchers := s.watchersLocked()
	s.mu.Unlock()

	notify(watchers, ev.EntityID, snapshot)
	return true
}

// Deferred возвращает количество отложенных событий сущности
func (s *Store) Deferred(entityID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entities[entityID]; ok {
		return len(e.deferred)
	}
	return 0
}

func (s *Store) flushDeferredLocked(e *entry) {
	for _, ev := range e.deferred {
		applyLocked(e, ev)
	}
	e.deferred = nil
}

func applyLocked(e *entry, ev models.RealtimeEvent) bool {
	stamp := crdt.Stamp{Version: ev.Version, EventID: ev.ID}
	changed := false

	if ev.Fields.Active != nil && e.clock.Observe(FieldActive, stamp) {
		e.state.Active = *ev.Fields.Active
		changed = true
	}
	if ev.Fields.Count != nil && e.clock.Observe(FieldCount, stamp) {
		e.state.Count = *ev.Fields.Count
		changed = true
	}
	for name, value := range ev.Fields.Counters {
		if e.clock.Observe(CounterField(name), stamp) {
			setCounter(&e.state, name, value)
			changed = true
		}
	}
	if changed && ev.Version > e.state.Version {
		e.state.Version = ev.Version
	}
	return changed
}

func setCounter(st *models.EntityToggleState, name string, value uint64) {
	if st.Counters == nil {
		st.Counters = make(map[string]uint64)
	}
	st.Counters[name] = value
}

func (s *Store) getOrCreate(entityID string) *entry {
	e, ok := s.entities[entityID]
	if !ok {
		e = &entry{clock: crdt.NewFieldClock()}
		s.entities[entityID] = e
	}
	return e
}

func (s *Store) watchersLocked() []WatchFunc {
	if len(s.watchers) == 0 {
		return nil
	}
	out := make([]WatchFunc, 0, len(s.watchers))
	for _, fn := range s.watchers {
		out = append(out, fn)
	}
	return out
}

func notify(watchers []WatchFunc, entityID string, snapshot models.EntityToggleState) {
	for _, fn := range watchers {
		fn(entityID, snapshot)
	}
}
