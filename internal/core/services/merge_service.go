package services

import (
	"fmt"
	"regexp"

	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/ports"
)

var knownExtensionRegex = regexp.MustCompile(`(?i)\.(txt|zip)$`)

// GroupName возвращает имя файла без распознанного расширения (.txt/.zip).
func GroupName(fileName string) string {
	return knownExtensionRegex.ReplaceAllString(fileName, "")
}

// MergeService реализует интерфейс Merger.
type MergeService struct{}

// NewMergeService создает новый экземпляр MergeService.
func NewMergeService() ports.Merger {
	return &MergeService{}
}

// Merge суммирует счётчики всех наборов. С IncludeFilePrefix ключом служит
// "<группа>: <имя>", иначе одинаковые имена из разных файлов складываются.
// При равных количествах порядок определяется первым появлением с учётом
// порядка наборов.
func (s *MergeService) Merge(datasets []domain.FileDataset, opts domain.MergeOptions) domain.RankingData {
	counts := newCounter()
	total, filtered := 0, 0

	for _, ds := range datasets {
		total += ds.RankingData.TotalMessages
		filtered += ds.RankingData.FilteredMessages

		prefix := GroupName(ds.FileName)
		for _, entry := range ds.RankingData.Ranking {
			key := entry.Name
			if opts.IncludeFilePrefix {
				key = fmt.Sprintf("%s: %s", prefix, entry.Name)
			}
			// TODO: объединять похожие имена при opts.MergeParticipants, когда будет
			// выбрано правило сопоставления (например, порог нормированного расстояния Левенштейна).
			counts.add(key, entry.Count)
		}
	}

	return domain.RankingData{
		TotalMessages:    total,
		FilteredMessages: filtered,
		Ranking:          counts.ranking(),
		DateRange:        DateRangeLabels(opts.DateRange),
	}
}
