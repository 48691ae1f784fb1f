package models

import "time"

// Realtime channels
const (
	ChannelReactions = "reactions"
	ChannelComments  = "comments"
)

// CounterComments имя счетчика комментариев в EntityToggleState.Counters
const CounterComments = "comments"

// Fields частичный набор изменившихся полей. nil/отсутствующий ключ означает "не изменилось".
type Fields struct {
	Active   *bool             `json:"is_active,omitempty"`
	Count    *uint64           `json:"count,omitempty"`
	Counters map[string]uint64 `json:"counters,omitempty"`
}

// Empty сообщает, что событие не несет ни одного поля
func (f Fields) Empty() bool {
	return f.Active == nil && f.Count == nil && len(f.Counters) == 0
}

// RealtimeEvent уведомление об изменении сущности, полученное из push-канала.
// Не сохраняется: сразу вливается в локальное состояние (только переданные поля).
type RealtimeEvent struct {
	ReceivedAt time.Time `json:"-"`         // ReceivedAt время получения на клиенте
	ID         string    `json:"id"`        // ID ULID события (для дедупликации at-least-once доставки)
	EntityID   string    `json:"entity_id"` // EntityID идентификатор сущности
	Channel    string    `json:"channel"`   // Channel имя канала ("reactions", "comments")
	Fields     Fields    `json:"fields"`    // Fields частичные новые значения
	Version    int64     `json:"version"`   // Version серверная версия сущности на момент события
}
