package models

import "time"

// NoticeKind тип пользовательского уведомления
type NoticeKind string

const (
	// NoticeThrottled действие отклонено RateGate ("slow down")
	NoticeThrottled NoticeKind = "throttled"
	// NoticeFailed удаленная операция не удалась, локальное состояние откатено
	NoticeFailed NoticeKind = "failed"
	// NoticeDegraded сервер недоступен, используется локальный fallback
	NoticeDegraded NoticeKind = "degraded"
)

// Notice уведомление, которое UI показывает пользователю
type Notice struct {
	Kind       NoticeKind
	EntityID   string
	Message    string
	RetryAfter time.Duration
}
