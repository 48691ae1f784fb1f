package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/campussync/internal/models"
	"github.com/iudanet/campussync/internal/server/realtime"
	"github.com/iudanet/campussync/pkg/api"
)

func setupRealtime(t *testing.T) (*realtime.Hub, string) {
	t.Helper()

	hub := realtime.NewHub(setupTestLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	h := NewRealtimeHandler(setupTestLogger(), hub)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r.WithContext(WithActorID(r.Context(), "alice")))
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) api.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f api.Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func waitSubscribers(t *testing.T, hub *realtime.Hub, topic realtime.Topic, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.Subscribers(topic) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRealtimeHandler_SubscribeAndReceive(t *testing.T) {
	hub, url := setupRealtime(t)
	conn := dialWS(t, url)

	topic := realtime.Topic{Channel: models.ChannelReactions, EntityID: "p1"}
	require.NoError(t, conn.WriteJSON(api.Frame{Type: api.FrameSubscribe, Channel: topic.Channel, EntityID: topic.EntityID}))
	waitSubscribers(t, hub, topic, 1)

	count := uint64(4)
	hub.Publish(models.RealtimeEvent{EntityID: "p1", Channel: models.ChannelReactions, Version: 5,
		Fields: models.Fields{Count: &count}})

	f := readFrame(t, conn)
	assert.Equal(t, api.FrameEvent, f.Type)
	require.NotNil(t, f.Event)
	assert.NotEmpty(t, f.Event.ID)
	assert.Equal(t, int64(5), f.Event.Version)
	assert.Equal(t, uint64(4), *f.Event.Fields.Count)

	require.NoError(t, conn.WriteJSON(api.Frame{Type: api.FrameUnsubscribe, Channel: topic.Channel, EntityID: topic.EntityID}))
	waitSubscribers(t, hub, topic, 0)
}

func TestRealtimeHandler_InvalidFrame(t *testing.T) {
	_, url := setupRealtime(t)
	conn := dialWS(t, url)

	tests := []api.Frame{
		{Type: "bogus", Channel: models.ChannelReactions, EntityID: "p1"},
		{Type: api.FrameSubscribe, Channel: "likes", EntityID: "p1"},
		{Type: api.FrameSubscribe, Channel: models.ChannelReactions, EntityID: ""},
	}
	for _, in := range tests {
		require.NoError(t, conn.WriteJSON(in))
		f := readFrame(t, conn)
		assert.Equal(t, api.FrameError, f.Type)
		assert.NotEmpty(t, f.Error)
	}
}

func TestRealtimeHandler_DisconnectUnsubscribes(t *testing.T) {
	hub, url := setupRealtime(t)
	conn := dialWS(t, url)

	topic := realtime.Topic{Channel: models.ChannelComments, EntityID: "p1"}
	require.NoError(t, conn.WriteJSON(api.Frame{Type: api.FrameSubscribe, Channel: topic.Channel, EntityID: topic.EntityID}))
	waitSubscribers(t, hub, topic, 1)

	require.NoError(t, conn.Close())
	waitSubscribers(t, hub, topic, 0)
}

func TestRealtimeHandler_RequiresActor(t *testing.T) {
	h := NewRealtimeHandler(setupTestLogger(), realtime.NewHub(setupTestLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/realtime", nil)
	w := httptest.NewRecorder()
	h.ServeWS(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
