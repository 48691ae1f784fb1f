package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ActorIDPattern определяет допустимый формат идентификатора пользователя
// Только латинские буквы (a-z, A-Z), цифры (0-9), нижнее подчеркивание (_)
// Длина: 3-32 символа
var ActorIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

// EntityIDPattern допустимый идентификатор сущности (поста): буквы, цифры, '-' и '_'
var EntityIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

const (
	// MinActorIDLen минимальная длина идентификатора пользователя
	MinActorIDLen = 3
	// MaxActorIDLen максимальная длина идентификатора пользователя
	MaxActorIDLen = 32
	// MaxBodyLen максимальная длина текста поста или комментария в символах
	MaxBodyLen = 2000
)

// ValidateActorID проверяет идентификатор пользователя
func ValidateActorID(actorID string) error {
	if actorID == "" {
		return fmt.Errorf("actor id cannot be empty")
	}

	if len(actorID) < MinActorIDLen {
		return fmt.Errorf("actor id must be at least %d characters long", MinActorIDLen)
	}

	if len(actorID) > MaxActorIDLen {
		return fmt.Errorf("actor id must not exceed %d characters", MaxActorIDLen)
	}

	if !ActorIDPattern.MatchString(actorID) {
		return fmt.Errorf("actor id can only contain letters (a-z, A-Z), numbers (0-9), and underscores (_)")
	}

	return nil
}

// ValidateEntityID проверяет идентификатор сущности из URL или команды
func ValidateEntityID(entityID string) error {
	if entityID == "" {
		return fmt.Errorf("entity id cannot be empty")
	}
	if !EntityIDPattern.MatchString(entityID) {
		return fmt.Errorf("invalid entity id %q", entityID)
	}
	return nil
}

// ValidateBody проверяет текст поста или комментария
// Пробельный текст считается пустым, длина считается в рунах
func ValidateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("body cannot be empty")
	}
	if !utf8.ValidString(body) {
		return fmt.Errorf("body must be valid UTF-8")
	}
	if n := utf8.RuneCountInString(body); n > MaxBodyLen {
		return fmt.Errorf("body must not exceed %d characters, got %d", MaxBodyLen, n)
	}
	return nil
}
