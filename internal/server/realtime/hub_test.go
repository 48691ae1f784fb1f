package realtime

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/campussync/internal/models"
	"github.com/iudanet/campussync/pkg/api"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func countEvent(entityID string, count uint64, version int64) models.RealtimeEvent {
	return models.RealtimeEvent{
		EntityID: entityID,
		Channel:  models.ChannelReactions,
		Version:  version,
		Fields:   models.Fields{Count: &count},
	}
}

func receive(t *testing.T, c *Client) api.Frame {
	t.Helper()
	select {
	case f, ok := <-c.Send():
		require.True(t, ok, "client queue closed")
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("frame not delivered")
	}
	return api.Frame{}
}

func TestHub_PublishToSubscribers(t *testing.T) {
	hub, _ := startHub(t)

	alice := NewClient("alice", 4)
	bob := NewClient("bob", 4)
	require.True(t, hub.Register(alice))
	require.True(t, hub.Register(bob))

	topic := Topic{Channel: models.ChannelReactions, EntityID: "p1"}
	hub.Subscribe(alice, topic)
	hub.Subscribe(bob, Topic{Channel: models.ChannelComments, EntityID: "p1"})
	assert.Equal(t, 1, hub.Subscribers(topic))

	hub.Publish(countEvent("p1", 3, 2))

	f := receive(t, alice)
	assert.Equal(t, api.FrameEvent, f.Type)
	require.NotNil(t, f.Event)
	assert.Equal(t, "p1", f.Event.EntityID)
	assert.Equal(t, uint64(3), *f.Event.Fields.Count)
	_, err := ulid.Parse(f.Event.ID)
	assert.NoError(t, err, "event id is a ULID")

	// bob подписан на другой канал
	assert.Empty(t, bob.Send())
}

func TestHub_KeepsExplicitEventID(t *testing.T) {
	hub, _ := startHub(t)

	c := NewClient("alice", 4)
	require.True(t, hub.Register(c))
	hub.Subscribe(c, Topic{Channel: models.ChannelReactions, EntityID: "p1"})

	ev := countEvent("p1", 1, 2)
	ev.ID = ulid.Make().String()
	hub.Publish(ev)

	assert.Equal(t, ev.ID, receive(t, c).Event.ID)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub, _ := startHub(t)

	c := NewClient("alice", 4)
	require.True(t, hub.Register(c))

	topic := Topic{Channel: models.ChannelReactions, EntityID: "p1"}
	hub.Subscribe(c, topic)
	hub.Unsubscribe(c, topic)
	assert.Equal(t, 0, hub.Subscribers(topic))

	hub.Publish(countEvent("p1", 1, 2))
	// Subscribers синхронизируется с циклом хаба: публикация уже обработана
	hub.Subscribers(topic)
	assert.Empty(t, c.Send())
}

func TestHub_UnregisterClosesQueue(t *testing.T) {
	hub, _ := startHub(t)

	c := NewClient("alice", 4)
	require.True(t, hub.Register(c))
	topic := Topic{Channel: models.ChannelReactions, EntityID: "p1"}
	hub.Subscribe(c, topic)

	hub.Unregister(c)
	_, ok := <-c.Send()
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers(topic))

	// Повторное отключение безопасно
	hub.Unregister(c)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)

	slow := NewClient("slow", 1)
	require.True(t, hub.Register(slow))
	topic := Topic{Channel: models.ChannelReactions, EntityID: "p1"}
	hub.Subscribe(slow, topic)

	hub.Publish(countEvent("p1", 1, 2))
	hub.Publish(countEvent("p1", 2, 3))
	assert.Equal(t, 0, hub.Subscribers(topic))

	f, ok := <-slow.Send()
	require.True(t, ok)
	assert.Equal(t, int64(2), f.Event.Version)
	_, ok = <-slow.Send()
	assert.False(t, ok, "queue closed after drop")
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub, cancel := startHub(t)

	c := NewClient("alice", 4)
	require.True(t, hub.Register(c))

	cancel()

	select {
	case _, ok := <-c.Send():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("client not disconnected")
	}

	assert.False(t, hub.Register(NewClient("bob", 4)))
	// Не блокируются после остановки
	hub.Publish(countEvent("p1", 1, 2))
	hub.Subscribe(c, Topic{Channel: models.ChannelReactions, EntityID: "p1"})
}
