package exporter

import (
	"encoding/json"
	"io"
	"time"

	"whatsapp-ranking/internal/ports"
)

// JSONDocument — структура JSON-экспорта рейтинга.
type JSONDocument struct {
	FileName    string          `json:"fileName"`
	GeneratedAt string          `json:"generatedAt"`
	DateFilter  JSONDateFilter  `json:"dateFilter"`
	Stats       JSONStats       `json:"stats"`
	Ranking     []JSONRankEntry `json:"ranking"`
}

// JSONDateFilter хранит границы периода; отсутствующая граница — null.
type JSONDateFilter struct {
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
}

// JSONStats — счётчики документа.
type JSONStats struct {
	TotalMessages    int `json:"totalMessages"`
	FilteredMessages int `json:"filteredMessages"`
	Participants     int `json:"participants"`
}

// JSONRankEntry — строка рейтинга. Percentage — строка с двумя знаками после запятой.
type JSONRankEntry struct {
	Position     int    `json:"position"`
	Name         string `json:"name"`
	MessageCount int    `json:"messageCount"`
	Percentage   string `json:"percentage"`
}

// JSONExporter реализует интерфейс Exporter для JSON.
type JSONExporter struct {
	now func() time.Time
}

// NewJSONExporter создает новый экземпляр JSONExporter.
func NewJSONExporter(now func() time.Time) ports.Exporter {
	return &JSONExporter{now: nowFunc(now)}
}

// ContentType возвращает MIME-тип результата.
func (e *JSONExporter) ContentType() string { return "application/json" }

// Extension возвращает расширение файла результата.
func (e *JSONExporter) Extension() string { return ".json" }

// Build собирает документ, не сериализуя его.
func (e *JSONExporter) Build(doc ports.ExportDocument) JSONDocument {
	out := JSONDocument{
		FileName:    fileNameOf(doc),
		GeneratedAt: e.now().UTC().Format(isoMillis),
		DateFilter: JSONDateFilter{
			StartDate: optional(doc.Filter.StartDate),
			EndDate:   optional(doc.Filter.EndDate),
		},
		Stats: JSONStats{
			TotalMessages:    doc.Ranking.TotalMessages,
			FilteredMessages: doc.Ranking.FilteredMessages,
			Participants:     len(doc.Ranking.Ranking),
		},
		Ranking: make([]JSONRankEntry, 0, len(doc.Ranking.Ranking)),
	}
	for _, row := range Rows(doc) {
		out.Ranking = append(out.Ranking, JSONRankEntry{
			Position:     row.Position,
			Name:         row.Name,
			MessageCount: row.MessageCount,
			Percentage:   FormatShare(row.Share, 2),
		})
	}
	return out
}

// Export записывает документ в w с отступами.
func (e *JSONExporter) Export(w io.Writer, doc ports.ExportDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(e.Build(doc))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
