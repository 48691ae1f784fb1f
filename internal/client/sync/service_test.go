package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/campussync/internal/client/api"
	"github.com/iudanet/campussync/internal/client/mutator"
	"github.com/iudanet/campussync/internal/client/realtime"
	"github.com/iudanet/campussync/internal/config"
	"github.com/iudanet/campussync/internal/gate"
	"github.com/iudanet/campussync/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Sync {
	cfg := config.DefaultSync()
	cfg.Gate = gate.Config{MaxAttempts: 100, Window: time.Minute}
	cfg.Debounce = 10 * time.Millisecond
	return cfg
}

type notices struct {
	list []models.Notice
	mu   gosync.Mutex
}

func (n *notices) Notify(notice models.Notice) {
	n.mu.Lock()
	n.list = append(n.list, notice)
	n.mu.Unlock()
}

func (n *notices) kinds() []models.NoticeKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.NoticeKind, 0, len(n.list))
	for _, x := range n.list {
		out = append(out, x.Kind)
	}
	return out
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mutation did not finish")
	}
}

func TestService_ToggleSettlesWithServer(t *testing.T) {
	client := &api.ClientAPIMock{
		SetReactionFunc: func(ctx context.Context, postID string, active bool) (models.ToggleResult, error) {
			return models.ToggleResult{Active: active, Count: 6, Version: 2}, nil
		},
	}
	s := NewService(client, testConfig(), "alice", testLogger())
	defer s.Close()

	s.Store().Seed("p1", models.ToggleResult{Count: 5, Version: 1})

	done, started := s.Toggle(context.Background(), "p1")
	require.True(t, started)
	waitDone(t, done)

	got, ok := s.GetState("p1")
	require.True(t, ok)
	assert.True(t, got.Active)
	assert.Equal(t, uint64(6), got.Count)
	assert.Equal(t, int64(2), got.Version)
	assert.False(t, s.IsPending("p1"))

	calls := client.SetReactionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "p1", calls[0].PostID)
	assert.True(t, calls[0].Active)
}

func TestService_ToggleThrottled(t *testing.T) {
	client := &api.ClientAPIMock{
		SetReactionFunc: func(ctx context.Context, postID string, active bool) (models.ToggleResult, error) {
			return models.ToggleResult{Active: active, Count: 1, Version: 2}, nil
		},
	}
	cfg := testConfig()
	cfg.Gate = gate.Config{MaxAttempts: 1, Window: time.Minute}
	rec := &notices{}
	s := NewService(client, cfg, "alice", testLogger(), WithNotifier(rec))
	defer s.Close()

	done, started := s.Toggle(context.Background(), "p1")
	require.True(t, started)
	waitDone(t, done)

	done, started = s.Toggle(context.Background(), "p2")
	assert.False(t, started)
	waitDone(t, done)

	assert.Len(t, client.SetReactionCalls(), 1)
	_, ok := s.GetState("p2")
	assert.False(t, ok, "throttled toggle does not touch state")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.list, 1)
	assert.Equal(t, models.NoticeThrottled, rec.list[0].Kind)
	assert.Equal(t, "p2", rec.list[0].EntityID)
	assert.Positive(t, rec.list[0].RetryAfter)
}

func TestService_ToggleFailureRollsBack(t *testing.T) {
	client := &api.ClientAPIMock{
		SetReactionFunc: func(ctx context.Context, postID string, active bool) (models.ToggleResult, error) {
			return models.ToggleResult{}, &api.StatusError{StatusCode: 500, Message: "boom"}
		},
	}
	rec := &notices{}
	s := NewService(client, testConfig(), "alice", testLogger(), WithNotifier(rec))
	defer s.Close()

	s.Store().Seed("p1", models.ToggleResult{Count: 5, Version: 1})
	done, _ := s.Toggle(context.Background(), "p1")
	waitDone(t, done)

	got, _ := s.GetState("p1")
	assert.False(t, got.Active)
	assert.Equal(t, uint64(5), got.Count)
	assert.Equal(t, []models.NoticeKind{models.NoticeFailed}, rec.kinds())
}

func TestService_ConflictIsSuccess(t *testing.T) {
	client := &api.ClientAPIMock{
		SetReactionFunc: func(ctx context.Context, postID string, active bool) (models.ToggleResult, error) {
			return models.ToggleResult{}, fmt.Errorf("%w: %w", api.ErrConflict,
				&api.StatusError{StatusCode: 409, Code: "already_applied"})
		},
	}
	s := NewService(client, testConfig(), "alice", testLogger())
	defer s.Close()

	s.Store().Seed("p1", models.ToggleResult{Count: 5, Version: 1})
	done, _ := s.Toggle(context.Background(), "p1")
	waitDone(t, done)

	got, _ := s.GetState("p1")
	assert.True(t, got.Active)
	assert.Equal(t, uint64(6), got.Count)
}

func TestService_LoadDedupesConcurrentReads(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	client := &api.ClientAPIMock{
		GetReactionFunc: func(ctx context.Context, postID string) (models.ToggleResult, error) {
			calls.Add(1)
			<-release
			return models.ToggleResult{Active: true, Count: 9, Version: 4}, nil
		},
	}
	s := NewService(client, testConfig(), "alice", testLogger())
	defer s.Close()

	var wg gosync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Load(context.Background(), "p1"))
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	got, _ := s.GetState("p1")
	assert.Equal(t, uint64(9), got.Count)
}

func TestService_LoadUnreachableWithoutFallback(t *testing.T) {
	client := &api.ClientAPIMock{
		GetReactionFunc: func(ctx context.Context, postID string) (models.ToggleResult, error) {
			return models.ToggleResult{}, api.ErrUnreachable
		},
	}
	s := NewService(client, testConfig(), "alice", testLogger())
	defer s.Close()

	err := s.Load(context.Background(), "p1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, mutator.ErrDegraded))
	assert.ErrorIs(t, err, api.ErrUnreachable)
}

func TestService_FeedSeedsStore(t *testing.T) {
	client := &api.ClientAPIMock{
		ListPostsFunc: func(ctx context.Context, offset, limit int) ([]models.Post, error) {
			if offset > 0 {
				return nil, nil
			}
			return []models.Post{
				{ID: "p1", LikeCount: 3, CommentCount: 2, Version: 5, Liked: true},
				{ID: "p2", LikeCount: 0, Version: 1},
			}, nil
		},
	}
	s := NewService(client, testConfig(), "alice", testLogger())
	defer s.Close()

	feed := s.NewFeed()
	defer feed.Close()

	feed.Refresh(context.Background())
	w := feed.Snapshot()
	require.Len(t, w.Items, 2)
	assert.False(t, w.HasMore)

	got, ok := s.GetState("p1")
	require.True(t, ok)
	assert.True(t, got.Active)
	assert.Equal(t, uint64(3), got.Count)
	assert.Equal(t, uint64(2), got.Counter(models.CounterComments))
	assert.Equal(t, int64(5), got.Version)

	calls := client.ListPostsCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, 20, calls[0].Limit)
}

func TestService_Realtime(t *testing.T) {
	s := NewService(&api.ClientAPIMock{}, testConfig(), "alice", testLogger())
	defer s.Close()

	_, err := s.Subscribe(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrNoTransport)

	count := uint64(12)
	ev := models.RealtimeEvent{
		ID: ulid.Make().String(), EntityID: "p1", Channel: models.ChannelReactions,
		Version: 3, Fields: models.Fields{Count: &count},
	}
	s.HandleEvent(ev)
	_, ok := s.GetState("p1")
	assert.False(t, ok, "events before transport are dropped")

	tr := &realtime.TransportMock{
		SubscribeFunc:   func(ctx context.Context, channel, entityID string) error { return nil },
		UnsubscribeFunc: func(ctx context.Context, channel, entityID string) error { return nil },
	}
	require.NoError(t, s.UseTransport(tr))

	unsubscribe, err := s.Subscribe(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, tr.SubscribeCalls(), 2)

	s.HandleEvent(ev)
	got, ok := s.GetState("p1")
	require.True(t, ok)
	assert.Equal(t, uint64(12), got.Count)

	unsubscribe()
	assert.Len(t, tr.UnsubscribeCalls(), 2)
}
