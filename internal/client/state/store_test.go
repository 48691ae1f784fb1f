package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/campussync/internal/models"
)

func u64(v uint64) *uint64 { return &v }

func TestStore_BeginIsExclusive(t *testing.T) {
	s := NewStore()
	s.Seed("p1", models.ToggleResult{Active: false, Count: 5, Version: 1})

	prev, next, token, ok := s.Begin("p1")
	require.True(t, ok)
	assert.Equal(t, uint64(5), prev.Count)
	assert.True(t, next.Active)
	assert.Equal(t, uint64(6), next.Count)
	assert.True(t, next.Pending)
	assert.NotZero(t, token)

	_, _, _, ok = s.Begin("p1")
	assert.False(t, ok, "second Begin while pending must be rejected")
	assert.True(t, s.IsPending("p1"))
	assert.Equal(t, []string{"p1"}, s.Pending())
}

func TestStore_RollbackRestoresExactDelta(t *testing.T) {
	s := NewStore()
	s.Seed("p1", models.ToggleResult{Active: false, Count: 5, Version: 1})

	_, _, token, ok := s.Begin("p1")
	require.True(t, ok)

	require.True(t, s.Rollback("p1", token))

	got, _ := s.Get("p1")
	assert.False(t, got.Active)
	assert.Equal(t, uint64(5), got.Count)
	assert.False(t, got.Pending)
}

func TestStore_RollbackOfClampedDeactivation(t *testing.T) {
	s := NewStore()
	s.Seed("p1", models.ToggleResult{Active: true, Count: 0})

	_, next, token, _ := s.Begin("p1")
	assert.Equal(t, uint64(0), next.Count)

	s.Rollback("p1", token)
	got, _ := s.Get("p1")
	assert.True(t, got.Active)
	assert.Equal(t, uint64(0), got.Count, "no delta was applied, none is undone")
}

func TestStore_StaleTokenIgnored(t *testing.T) {
	s := NewStore()

	_, _, token, _ := s.Begin("p1")
	require.True(t, s.Settle("p1", token, models.ToggleResult{Active: true, Count: 1, Version: 1}))

	assert.False(t, s.Settle("p1", token, models.ToggleResult{Active: false, Count: 0, Version: 2}))
	assert.False(t, s.Rollback("p1", token))

	got, _ := s.Get("p1")
	assert.True(t, got.Active)
	assert.Equal(t, uint64(1), got.Count)
}

func TestStore_MergePartialFields(t *testing.T) {
	s := NewStore()
	s.Seed("p1", models.ToggleResult{Active: true, Count: 3, Version: 1})

	changed := s.Merge(models.RealtimeEvent{
		ID:       "01A",
		EntityID: "p1",
		Version:  2,
		Fields:   models.Fields{Counters: map[string]uint64{models.CounterComments: 4}},
	})
	require.True(t, changed)

	got, _ := s.Get("p1")
	assert.True(t, got.Active, "fields absent from the event are kept")
	assert.Equal(t, uint64(3), got.Count)
	assert.Equal(t, uint64(4), got.Counter(models.CounterComments))
}

func TestStore_MergeDropsDuplicatesAndOlderVersions(t *testing.T) {
	s := NewStore()

	ev := models.RealtimeEvent{ID: "01B", EntityID: "p1", Version: 5, Fields: models.Fields{Count: u64(9)}}
	assert.True(t, s.Merge(ev))
	assert.False(t, s.Merge(ev), "at-least-once redelivery is a no-op")

	older := models.RealtimeEvent{ID: "01C", EntityID: "p1", Version: 4, Fields: models.Fields{Count: u64(1)}}
	assert.False(t, s.Merge(older))

	got, _ := s.Get("p1")
	assert.Equal(t, uint64(9), got.Count)
}

func TestStore_MergeDeferredWhilePending(t *testing.T) {
	s := NewStore()
	s.Seed("p1", models.ToggleResult{Active: false, Count: 10, Version: 1})

	_, _, token, _ := s.Begin("p1")

	// Сервер рассылает старое значение (до переключения)
	s.Merge(models.RealtimeEvent{ID: "01A", EntityID: "p1", Version: 1, Fields: models.Fields{Count: u64(10)}})
	// Независимое поле применяется сразу
	s.Merge(models.RealtimeEvent{ID: "01B", EntityID: "p1", Version: 2, Fields: models.Fields{
		Count:    u64(10),
		Counters: map[string]uint64{models.CounterComments: 2},
	}})

	got, _ := s.Get("p1")
	assert.Equal(t, uint64(11), got.Count, "optimistic count is not clobbered")
	assert.Equal(t, uint64(2), got.Counter(models.CounterComments))
	assert.Equal(t, 2, s.Deferred("p1"))

	s.Settle("p1", token, models.ToggleResult{Active: true, Count: 11, Version: 3})

	got, _ = s.Get("p1")
	assert.True(t, got.Active)
	assert.Equal(t, uint64(11), got.Count, "mutation response beats earlier-queued realtime values")
	assert.Equal(t, 0, s.Deferred("p1"))
}

func TestStore_NewerDeferredEventAppliedAfterSettle(t *testing.T) {
	s := NewStore()
	s.Seed("p1", models.ToggleResult{Active: false, Count: 10, Version: 1})

	_, _, token, _ := s.Begin("p1")
	s.Merge(models.RealtimeEvent{ID: "01Z", EntityID: "p1", Version: 4, Fields: models.Fields{Count: u64(13)}})

	s.Settle("p1", token, models.ToggleResult{Active: true, Count: 11, Version: 2})

	got, _ := s.Get("p1")
	assert.True(t, got.Active)
	assert.Equal(t, uint64(13), got.Count, "another user's later change still lands")
	assert.Equal(t, int64(4), got.Version)
}

func TestStore_SeedIgnoredWhilePendingOrOlder(t *testing.T) {
	s := NewStore()
	s.Seed("p1", models.ToggleResult{Active: false, Count: 2, Version: 5})

	assert.False(t, s.Seed("p1", models.ToggleResult{Active: true, Count: 100, Version: 4}))

	_, _, token, _ := s.Begin("p1")
	assert.False(t, s.Seed("p1", models.ToggleResult{Active: false, Count: 0, Version: 9}))
	s.Rollback("p1", token)

	got, _ := s.Get("p1")
	assert.Equal(t, uint64(2), got.Count)
}

func TestStore_Degrade(t *testing.T) {
	s := NewStore()
	s.Seed("p1", models.ToggleResult{Active: false, Count: 0})

	_, _, token, _ := s.Begin("p1")
	require.True(t, s.Degrade("p1", token, true, 1))

	got, _ := s.Get("p1")
	assert.True(t, got.Active)
	assert.Equal(t, uint64(1), got.Count)
	assert.False(t, got.Pending)
}

func TestStore_WatchAndCancel(t *testing.T) {
	s := NewStore(WithClock(func() time.Time { return time.Unix(100, 0) }))

	var mu sync.Mutex
	var seen []models.EntityToggleState
	cancel := s.Watch(func(id string, st models.EntityToggleState) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "p1", id)
		seen = append(seen, st)
	})

	_, _, token, _ := s.Begin("p1")
	s.Settle("p1", token, models.ToggleResult{Active: true, Count: 1, Version: 1})
	cancel()
	cancel()
	s.Seed("p1", models.ToggleResult{Active: false, Count: 0, Version: 2})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Pending)
	assert.Equal(t, time.Unix(100, 0), seen[0].LastLocalActionAt)
	assert.False(t, seen[1].Pending)
}

func TestStore_SeedCounter(t *testing.T) {
	s := NewStore()
	s.SeedCounter("p1", models.CounterComments, 7, 3)
	s.SeedCounter("p1", models.CounterComments, 1, 2)

	got, ok := s.Get("p1")
	require.True(t, ok)
	assert.Equal(t, uint64(7), got.Counter(models.CounterComments))
}
