package models

import (
	"fmt"
	"time"
)

// EntityToggleState представляет локальное состояние toggle-счетчика сущности (например, лайка поста).
// Создается лениво при первом взаимодействии и живет в памяти всю сессию.
type EntityToggleState struct {
	LastLocalActionAt time.Time         `json:"last_local_action_at"` // LastLocalActionAt время последнего локального действия пользователя
	Counters          map[string]uint64 `json:"counters,omitempty"`   // Counters дополнительные именованные счетчики (например, "comments")
	Count             uint64            `json:"count"`                // Count количество активаций (лайков), всегда >= 0
	Version           int64             `json:"version"`              // Version последняя известная серверная версия
	Active            bool              `json:"is_active"`            // Active активирован ли toggle текущим пользователем
	Pending           bool              `json:"pending"`              // Pending есть ли незавершенная удаленная мутация
}

// Clone создает глубокую копию состояния
func (s EntityToggleState) Clone() EntityToggleState {
	out := s
	if s.Counters != nil {
		out.Counters = make(map[string]uint64, len(s.Counters))
		for k, v := range s.Counters {
			out.Counters[k] = v
		}
	}
	return out
}

// Toggled возвращает оптимистичное следующее состояние:
// Active инвертируется, Count меняется на +1/-1 с ограничением снизу нулем.
func (s EntityToggleState) Toggled() EntityToggleState {
	next := s.Clone()
	next.Active = !s.Active
	if next.Active {
		next.Count++
	} else if next.Count > 0 {
		next.Count--
	}
	return next
}

// Counter возвращает значение именованного счетчика (0, если его нет)
func (s EntityToggleState) Counter(name string) uint64 {
	return s.Counters[name]
}

// ToggleResult авторитетный ответ сервера на мутацию или чтение состояния.
type ToggleResult struct {
	Count   uint64 `json:"count"`
	Version int64  `json:"version"`
	Active  bool   `json:"is_active"`
}

// ParseToggleResult валидирует сырой ответ удаленного слоя и приводит его к фиксированной форме.
// Отрицательные или отсутствующие значения считаются ошибкой схемы.
func ParseToggleResult(raw map[string]any) (ToggleResult, error) {
	var res ToggleResult

	active, ok := raw["is_active"].(bool)
	if !ok {
		return res, fmt.Errorf("is_active: expected bool, got %T", raw["is_active"])
	}
	res.Active = active

	count, err := nonNegative(raw["count"])
	if err != nil {
		return res, fmt.Errorf("count: %w", err)
	}
	res.Count = count

	if v, present := raw["version"]; present && v != nil {
		version, err := nonNegative(v)
		if err != nil {
			return res, fmt.Errorf("version: %w", err)
		}
		res.Version = int64(version)
	}

	return res, nil
}

func nonNegative(v any) (uint64, error) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n != float64(uint64(n)) {
			return 0, fmt.Errorf("expected non-negative integer, got %v", n)
		}
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("expected non-negative integer, got %d", n)
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("expected non-negative integer, got %d", n)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
