package services

import (
	"sort"

	"whatsapp-ranking/internal/adapters/parser"
	"whatsapp-ranking/internal/core/privacy"
	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/ports"
)

// AggregationService реализует интерфейс Aggregator.
type AggregationService struct{}

// NewAggregationService создает новый экземпляр AggregationService.
func NewAggregationService() ports.Aggregator {
	return &AggregationService{}
}

// Aggregate проходит по строкам лога один раз и считает сообщения отправителей.
// TotalMessages учитывает все распознанные сообщения, а FilteredMessages и рейтинг
// только попавшие в период. Нулевой результат не считается ошибкой.
func (s *AggregationService) Aggregate(content string, filter domain.DateFilter) domain.RankingData {
	dateFilter := NewDateRangeFilter(filter)
	counts := newCounter()
	total, filtered := 0, 0

	for _, line := range parser.SplitLines(content) {
		msg, ok := parser.ParseLine(line)
		if !ok {
			continue
		}
		total++

		name := privacy.ProcessName(msg.SenderRaw)
		if !dateFilter.Includes(msg) {
			continue
		}
		filtered++
		counts.add(name, 1)
	}

	return domain.RankingData{
		TotalMessages:    total,
		FilteredMessages: filtered,
		Ranking:          counts.ranking(),
		DateRange:        DateRangeLabels(filter),
	}
}

// DateRangeLabels возвращает подписи периода: значения фильтра или метки открытых границ.
func DateRangeLabels(filter domain.DateFilter) domain.DateRange {
	dr := domain.DateRange{Start: filter.StartDate, End: filter.EndDate}
	if dr.Start == "" {
		dr.Start = domain.OpenStartLabel
	}
	if dr.End == "" {
		dr.End = domain.OpenEndLabel
	}
	return dr
}

// counter — счётчик, помнящий порядок первого появления имени.
type counter struct {
	index   map[string]int
	entries []domain.MessageCount
}

func newCounter() *counter {
	return &counter{index: make(map[string]int)}
}

func (c *counter) add(name string, n int) {
	if i, ok := c.index[name]; ok {
		c.entries[i].Count += n
		return
	}
	c.index[name] = len(c.entries)
	c.entries = append(c.entries, domain.MessageCount{Name: name, Count: n})
}

// ranking сортирует по убыванию количества. Сортировка устойчивая, поэтому при
// равенстве сохраняется порядок первого появления.
func (c *counter) ranking() []domain.MessageCount {
	out := make([]domain.MessageCount, len(c.entries))
	copy(out, c.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}
