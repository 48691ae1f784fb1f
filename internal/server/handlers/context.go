package handlers

import "context"

// contextKey тип для ключей контекста
type contextKey string

// ActorIDKey ключ для хранения actor_id в контексте (устанавливает AuthMiddleware)
const ActorIDKey contextKey = "actor_id"

// WithActorID возвращает контекст с actor_id
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorIDKey, actorID)
}

// GetActorID извлекает actor_id из контекста запроса
func GetActorID(ctx context.Context) (string, bool) {
	actorID, ok := ctx.Value(ActorIDKey).(string)
	return actorID, ok && actorID != ""
}
