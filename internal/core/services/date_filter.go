package services

import (
	"time"

	"whatsapp-ranking/internal/adapters/parser"
	"whatsapp-ranking/internal/domain"
)

// DateRangeFilter — подготовленный к многократному применению фильтр дат.
// Границы разбираются один раз на проход, а не для каждой строки.
type DateRangeFilter struct {
	start, end       time.Time
	hasStart, hasEnd bool
	invalid          bool
}

// NewDateRangeFilter разбирает границы фильтра. Неразборчивая граница делает
// фильтр непроходимым для всех сообщений.
func NewDateRangeFilter(f domain.DateFilter) DateRangeFilter {
	var drf DateRangeFilter
	if f.StartDate != "" {
		drf.start, drf.hasStart = parser.ParseISODate(f.StartDate)
		drf.invalid = !drf.hasStart
	}
	if f.EndDate != "" {
		var ok bool
		drf.end, ok = parser.ParseISODate(f.EndDate)
		drf.hasEnd = ok
		drf.invalid = drf.invalid || !ok
	}
	return drf
}

// Active сообщает, ограничивает ли фильтр хоть что-нибудь.
func (f DateRangeFilter) Active() bool {
	return f.hasStart || f.hasEnd || f.invalid
}

// Includes проверяет попадание сообщения в период. Обе границы включительные.
// Сообщение с неизвестной датой не проходит активный фильтр.
func (f DateRangeFilter) Includes(msg domain.ParsedMessage) bool {
	if !f.Active() {
		return true
	}
	if f.invalid || !msg.DateKnown {
		return false
	}
	if f.hasStart && msg.Date.Before(f.start) {
		return false
	}
	if f.hasEnd && msg.Date.After(f.end) {
		return false
	}
	return true
}
