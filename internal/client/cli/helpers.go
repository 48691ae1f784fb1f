package cli

import (
	"fmt"
	"strings"

	"github.com/iudanet/campussync/internal/models"
)

// formatState форматирует состояние реакции для вывода в одну строку
func formatState(st models.EntityToggleState) string {
	mark := "♡"
	if st.Active {
		mark = "♥"
	}
	s := fmt.Sprintf("%s %d", mark, st.Count)
	if n, ok := st.Counters[models.CounterComments]; ok {
		s += fmt.Sprintf(" · %d comments", n)
	}
	if st.Pending {
		s += " (syncing)"
	}
	return s
}

// shorten обрезает текст поста до max рун и убирает переводы строк
func shorten(body string, max int) string {
	body = strings.Join(strings.Fields(body), " ")
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max-1]) + "…"
}
