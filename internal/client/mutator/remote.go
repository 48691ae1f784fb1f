package mutator

import (
	"context"

	"github.com/iudanet/campussync/internal/models"
)

//go:generate moq -out remote_mock.go . Remote

// Remote удаленный слой toggle-мутации.
// Apply реализует пару insert-if-absent / delete-if-present по желаемому состоянию active.
type Remote interface {
	// Apply приводит удаленное состояние сущности к active и возвращает авторитетный результат
	Apply(ctx context.Context, entityID string, active bool) (models.ToggleResult, error)

	// Fetch читает авторитетное состояние сущности
	Fetch(ctx context.Context, entityID string) (models.ToggleResult, error)
}

// Notifier получает пользовательские уведомления об итогах мутаций
type Notifier interface {
	Notify(n models.Notice)
}

// NotifierFunc адаптер функции к Notifier
type NotifierFunc func(n models.Notice)

// Notify вызывает f(n)
func (f NotifierFunc) Notify(n models.Notice) {
	f(n)
}

// Classifier решает, относится ли ошибка удаленного вызова к определенному классу
type Classifier func(err error) bool

func never(error) bool { return false }

type discardNotifier struct{}

func (discardNotifier) Notify(models.Notice) {}
