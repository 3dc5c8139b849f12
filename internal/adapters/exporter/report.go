package exporter

import (
	"strconv"
	"time"

	"whatsapp-ranking/internal/ports"
)

// DefaultFileName подставляется, когда имя исходного файла неизвестно.
const DefaultFileName = "WhatsApp Chat"

// isoMillis — формат отметки времени генерации документа.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// RankingRow — строка рейтинга в том виде, в каком её показывают все экспортёры.
type RankingRow struct {
	Position     int
	Name         string
	MessageCount int
	Share        float64 // доля от отфильтрованных сообщений, в процентах
}

// Rows нумерует рейтинг документа и считает доли.
func Rows(doc ports.ExportDocument) []RankingRow {
	filtered := doc.Ranking.FilteredMessages
	rows := make([]RankingRow, 0, len(doc.Ranking.Ranking))
	for i, entry := range doc.Ranking.Ranking {
		share := 0.0
		if filtered > 0 {
			share = float64(entry.Count) / float64(filtered) * 100
		}
		rows = append(rows, RankingRow{
			Position:     i + 1,
			Name:         entry.Name,
			MessageCount: entry.Count,
			Share:        share,
		})
	}
	return rows
}

// FormatShare форматирует долю с заданным числом знаков после запятой.
func FormatShare(share float64, decimals int) string {
	return strconv.FormatFloat(share, 'f', decimals, 64)
}

func fileNameOf(doc ports.ExportDocument) string {
	if doc.FileName == "" {
		return DefaultFileName
	}
	return doc.FileName
}

func leaderCount(doc ports.ExportDocument) int {
	if len(doc.Ranking.Ranking) == 0 {
		return 0
	}
	return doc.Ranking.Ranking[0].Count
}

func nowFunc(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}
