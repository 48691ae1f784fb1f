package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/campussync/internal/models"
	"github.com/iudanet/campussync/pkg/api"
)

// ErrClosed соединение закрыто
var ErrClosed = errors.New("realtime connection closed")

// errPeerClosed сервер штатно закрыл соединение. Ненулевая ошибка отменяет
// контекст errgroup, чтобы writePump не ждал следующего ping.
var errPeerClosed = errors.New("realtime connection closed by server")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

// EventHandler получает события из канала
type EventHandler func(ev models.RealtimeEvent)

// Conn websocket-соединение с realtime-каналом сервера
type Conn struct {
	ws      *websocket.Conn
	handler EventHandler
	logger  *slog.Logger
	send    chan api.Frame
	done    chan struct{}
	once    sync.Once
}

// Dial подключается к realtime-каналу. token передается в заголовке Authorization.
// Чтение и запись начинаются после вызова Run.
func Dial(ctx context.Context, url, token string, handler EventHandler, logger *slog.Logger) (*Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to dial realtime: %w", err)
	}

	return &Conn{
		ws:      ws,
		handler: handler,
		logger:  logger,
		send:    make(chan api.Frame, sendBuffer),
		done:    make(chan struct{}),
	}, nil
}

// Subscribe отправляет подписку на канал сущности
func (c *Conn) Subscribe(ctx context.Context, channel, entityID string) error {
	return c.enqueue(ctx, api.Frame{Type: api.FrameSubscribe, Channel: channel, EntityID: entityID})
}

// Unsubscribe отправляет отписку от канала сущности
func (c *Conn) Unsubscribe(ctx context.Context, channel, entityID string) error {
	return c.enqueue(ctx, api.Frame{Type: api.FrameUnsubscribe, Channel: channel, EntityID: entityID})
}

func (c *Conn) enqueue(ctx context.Context, f api.Frame) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- f:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run обслуживает соединение до отмены ctx, Close, close-фрейма сервера или сетевой ошибки.
// Штатное завершение с любой стороны возвращает nil.
func (c *Conn) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(c.readPump)
	g.Go(func() error {
		return c.writePump(gctx)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-c.done:
		}
		// Разблокирует readPump
		_ = c.ws.Close()
		return nil
	})

	err := g.Wait()
	closedByCaller := c.closed()
	c.Close()
	if ctx.Err() != nil || closedByCaller || errors.Is(err, errPeerClosed) {
		return nil
	}
	return err
}

// Close закрывает соединение. Повторный вызов безопасен.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *Conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Conn) readPump() error {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame api.Frame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if c.closed() {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errPeerClosed
			}
			return fmt.Errorf("read frame: %w", err)
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		switch frame.Type {
		case api.FrameEvent:
			if frame.Event == nil {
				c.logger.Warn("Event frame without payload")
				continue
			}
			ev := *frame.Event
			ev.ReceivedAt = time.Now()
			c.handler(ev)
		case api.FrameError:
			c.logger.Warn("Realtime server error", "error", frame.Error)
		default:
			c.logger.Debug("Unknown frame ignored", "type", frame.Type)
		}
	}
}

func (c *Conn) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(f); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		case <-ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return nil
		case <-c.done:
			return nil
		}
	}
}

var _ Transport = (*Conn)(nil)
