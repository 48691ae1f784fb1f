package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/campussync/internal/models"
	"github.com/iudanet/campussync/internal/server/realtime"
	"github.com/iudanet/campussync/internal/validation"
	"github.com/iudanet/campussync/pkg/api"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxFrame   = 4096
)

// RealtimeHandler поднимает websocket-соединения и связывает их с Hub
type RealtimeHandler struct {
	logger   *slog.Logger
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewRealtimeHandler создает handler realtime-канала
func NewRealtimeHandler(logger *slog.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{
		logger: logger,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxFrame,
			WriteBufferSize: maxFrame,
		},
	}
}

// ServeWS обрабатывает GET /api/v1/realtime
func (h *RealtimeHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetActorID(r.Context())
	if !ok {
		sendError(h.logger, w, "actor not found in context", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrader уже ответил клиенту
		h.logger.Warn("Websocket upgrade failed", "actor_id", actorID, "error", err)
		return
	}

	client := realtime.NewClient(actorID, realtime.DefaultSendBuffer)
	if !h.hub.Register(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	defer h.hub.Unregister(client)

	replies := make(chan api.Frame, 8)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		return h.readPump(conn, client, replies)
	})
	g.Go(func() error {
		return h.writePump(ctx, conn, client, replies)
	})

	if err := g.Wait(); err != nil && !isNormalClose(err) {
		h.logger.Debug("Realtime connection closed", "actor_id", actorID, "error", err)
	}
}

// readPump читает подписки клиента. Ошибки протокола отправляются error-фреймом.
func (h *RealtimeHandler) readPump(conn *websocket.Conn, client *realtime.Client, replies chan<- api.Frame) error {
	conn.SetReadLimit(maxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f api.Frame
		if err := conn.ReadJSON(&f); err != nil {
			return err
		}

		if err := validateSubscription(f); err != nil {
			select {
			case replies <- api.Frame{Type: api.FrameError, Channel: f.Channel, EntityID: f.EntityID, Error: err.Error()}:
			default:
			}
			continue
		}

		topic := realtime.Topic{Channel: f.Channel, EntityID: f.EntityID}
		if f.Type == api.FrameSubscribe {
			h.hub.Subscribe(client, topic)
		} else {
			h.hub.Unsubscribe(client, topic)
		}
	}
}

// writePump единственный писатель в соединение
func (h *RealtimeHandler) writePump(ctx context.Context, conn *websocket.Conn, client *realtime.Client, replies <-chan api.Frame) error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		// Разблокирует readPump
		_ = conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return nil

		case f, ok := <-client.Send():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return errors.New("disconnected by hub")
			}
			if err := writeFrame(conn, f); err != nil {
				return err
			}

		case f := <-replies:
			if err := writeFrame(conn, f); err != nil {
				return err
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, f api.Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(f)
}

func validateSubscription(f api.Frame) error {
	if f.Type != api.FrameSubscribe && f.Type != api.FrameUnsubscribe {
		return errors.New("unsupported frame type")
	}
	if f.Channel != models.ChannelReactions && f.Channel != models.ChannelComments {
		return errors.New("unknown channel")
	}
	return validation.ValidateEntityID(f.EntityID)
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
