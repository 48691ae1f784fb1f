// Package realtime рассылает события изменения постов подписанным websocket-клиентам.
package realtime

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/iudanet/campussync/internal/models"
	"github.com/iudanet/campussync/pkg/api"
)

// DefaultSendBuffer размер очереди исходящих фреймов одного клиента
const DefaultSendBuffer = 64

// Topic канал конкретной сущности
type Topic struct {
	Channel  string
	EntityID string
}

// Client подключенный подписчик. Очередь send закрывает только Hub.
type Client struct {
	send    chan api.Frame
	topics  map[Topic]struct{}
	actorID string
}

// NewClient создает клиента с очередью на buffer фреймов
func NewClient(actorID string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Client{
		send:    make(chan api.Frame, buffer),
		topics:  make(map[Topic]struct{}),
		actorID: actorID,
	}
}

// Send возвращает очередь исходящих фреймов. Закрыта, когда клиент отключен хабом.
func (c *Client) Send() <-chan api.Frame {
	return c.send
}

// ActorID пользователь, открывший соединение
func (c *Client) ActorID() string {
	return c.actorID
}

type subscription struct {
	client *Client
	topic  Topic
	add    bool
}

// Hub хранит подписки и раздает события. Все карты принадлежат горутине Run.
type Hub struct {
	logger      *slog.Logger
	clients     map[*Client]struct{}
	topics      map[Topic]map[*Client]struct{}
	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	publish     chan models.RealtimeEvent
	done        chan struct{}
	subscribers chan topicQuery
}

type topicQuery struct {
	topic Topic
	reply chan int
}

// NewHub создает хаб. Рассылка начинается после запуска Run.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:      logger,
		clients:     make(map[*Client]struct{}),
		topics:      make(map[Topic]map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		publish:     make(chan models.RealtimeEvent),
		done:        make(chan struct{}),
		subscribers: make(chan topicQuery),
	}
}

// Run обслуживает хаб до отмены ctx, затем отключает всех клиентов
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			h.drop(c)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.logger.Debug("Realtime client registered", "actor_id", c.actorID, "clients", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.logger.Debug("Realtime client unregistered", "actor_id", c.actorID, "clients", len(h.clients))
			}

		case s := <-h.subscribe:
			h.applySubscription(s)

		case ev := <-h.publish:
			h.broadcast(ev)

		case q := <-h.subscribers:
			q.reply <- len(h.topics[q.topic])
		}
	}
}

// Register подключает клиента. false, если хаб остановлен.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister отключает клиента и закрывает его очередь
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Subscribe подписывает клиента на topic
func (h *Hub) Subscribe(c *Client, topic Topic) {
	h.sendSubscription(subscription{client: c, topic: topic, add: true})
}

// Unsubscribe снимает подписку клиента с topic
func (h *Hub) Unsubscribe(c *Client, topic Topic) {
	h.sendSubscription(subscription{client: c, topic: topic})
}

func (h *Hub) sendSubscription(s subscription) {
	select {
	case h.subscribe <- s:
	case <-h.done:
	}
}

// Publish передает событие хабу. Блокируется, пока хаб не примет событие, поэтому
// события одного вызывающего рассылаются в порядке вызовов. Пустой ID заменяется новым ULID.
func (h *Hub) Publish(ev models.RealtimeEvent) {
	if ev.ID == "" {
		ev.ID = ulid.Make().String()
	}
	select {
	case h.publish <- ev:
	case <-h.done:
	}
}

// Subscribers возвращает число подписчиков topic (0 после остановки хаба)
func (h *Hub) Subscribers(topic Topic) int {
	q := topicQuery{topic: topic, reply: make(chan int, 1)}
	select {
	case h.subscribers <- q:
		return <-q.reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) applySubscription(s subscription) {
	if _, ok := h.clients[s.client]; !ok {
		return
	}

	if s.add {
		subs, ok := h.topics[s.topic]
		if !ok {
			subs = make(map[*Client]struct{})
			h.topics[s.topic] = subs
		}
		subs[s.client] = struct{}{}
		s.client.topics[s.topic] = struct{}{}
		return
	}

	h.removeFromTopic(s.client, s.topic)
}

func (h *Hub) broadcast(ev models.RealtimeEvent) {
	subs := h.topics[Topic{Channel: ev.Channel, EntityID: ev.EntityID}]
	if len(subs) == 0 {
		return
	}

	frame := api.Frame{Type: api.FrameEvent, Event: &ev}
	for c := range subs {
		select {
		case c.send <- frame:
		default:
			// Медленный клиент теряет соединение и переподписывается сам
			h.logger.Warn("Realtime client too slow, dropping", "actor_id", c.actorID, "event_id", ev.ID)
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *Client) {
	for t := range c.topics {
		h.removeFromTopic(c, t)
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) removeFromTopic(c *Client, t Topic) {
	delete(c.topics, t)
	if subs, ok := h.topics[t]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, t)
		}
	}
}
