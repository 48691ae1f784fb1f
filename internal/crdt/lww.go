package crdt

// Stamp упорядочивает записи одного поля: сначала по серверной версии,
// при равных версиях по ID события (ULID, лексикографически).
type Stamp struct {
	EventID string
	Version int64
}

// IsNewerThan возвращает true, если s побеждает other по правилу Last-Write-Wins.
func (s Stamp) IsNewerThan(other Stamp) bool {
	if s.Version > other.Version {
		return true
	}
	if s.Version < other.Version {
		return false
	}
	// Версии равны - сравниваем ID события для детерминизма
	return s.EventID > other.EventID
}

// FieldClock хранит последний примененный Stamp для каждого поля сущности.
// Реализует LWW-register по каждому полю независимо.
// Не потокобезопасен: владелец (state.Store) защищает его своим мьютексом.
type FieldClock struct {
	fields map[string]Stamp
}

// NewFieldClock создает пустые часы полей
func NewFieldClock() *FieldClock {
	return &FieldClock{fields: make(map[string]Stamp)}
}

// Observe пытается применить запись поля со штампом s.
// Возвращает true, если запись новее текущей и должна быть применена.
func (c *FieldClock) Observe(field string, s Stamp) bool {
	current, exists := c.fields[field]
	if exists && !s.IsNewerThan(current) {
		return false
	}
	c.fields[field] = s
	return true
}

// Advance поднимает штамп поля до s, если s новее (используется для авторитетных ответов мутации).
func (c *FieldClock) Advance(field string, s Stamp) {
	if current, exists := c.fields[field]; !exists || s.IsNewerThan(current) {
		c.fields[field] = s
	}
}

// Get возвращает текущий штамп поля
func (c *FieldClock) Get(field string) (Stamp, bool) {
	s, ok := c.fields[field]
	return s, ok
}

// Merge объединяет часы с другими часами, оставляя для каждого поля более новый штамп.
// Операция коммутативна и идемпотентна.
func (c *FieldClock) Merge(other *FieldClock) {
	for field, s := range other.fields {
		c.Advance(field, s)
	}
}
