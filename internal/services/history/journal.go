package history

import (
	"sort"
	"time"

	"github.com/BearBump/ShipDesk/internal/models"
)

// DateLayout задаёт формат времени событий журнала и чата.
const DateLayout = "2006-01-02 15:04"

// Journal дописывает события в журнал отправления. Время берётся из now, чтобы тесты были детерминированы.
type Journal struct {
	now func() time.Time
}

func NewJournal(now func() time.Time) *Journal {
	if now == nil {
		now = time.Now
	}
	return &Journal{now: now}
}

// Append безусловно добавляет событие.
func (j *Journal) Append(s *models.Shipment, location, description string) {
	s.Events = append(s.Events, models.Event{
		Date:        j.now().Format(DateLayout),
		Location:    location,
		Description: description,
	})
}

// AppendOnce добавляет событие только если веха key ещё не записана.
// Ключ и событие появляются вместе либо не появляются вовсе.
func (j *Journal) AppendOnce(s *models.Shipment, key, location, description string) bool {
	if key == "" || s.HasAutoEventKey(key) {
		return false
	}
	j.Append(s, location, description)
	s.AutoEventKeys = append(s.AutoEventKeys, key)
	return true
}

// SortEvents возвращает копию журнала, упорядоченную по дате.
// Записи с неразборчивой датой уходят в конец, порядок равных сохраняется.
func SortEvents(events []models.Event) []models.Event {
	out := append([]models.Event{}, events...)
	keys := make([]time.Time, len(out))
	ok := make([]bool, len(out))
	for i, e := range out {
		keys[i], ok[i] = parseDate(e.Date)
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if !ok[ia] || !ok[ib] {
			return ok[ia] && !ok[ib]
		}
		return keys[ia].Before(keys[ib])
	})
	sorted := make([]models.Event, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
