package api

import "github.com/iudanet/campussync/internal/models"

// Типы websocket-фреймов realtime-канала
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameEvent       = "event"
	FrameError       = "error"
)

// Frame фрейм realtime-протокола.
// Клиент шлет subscribe/unsubscribe с Channel и EntityID; сервер шлет event с Event.
type Frame struct {
	Event    *models.RealtimeEvent `json:"event,omitempty"`
	Type     string                `json:"type"`
	Channel  string                `json:"channel,omitempty"`
	EntityID string                `json:"entity_id,omitempty"`
	Error    string                `json:"error,omitempty"`
}
