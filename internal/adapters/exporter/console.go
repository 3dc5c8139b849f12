package exporter

import (
	"fmt"
	"io"

	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/ports"
)

// ConsoleExporter реализует интерфейс Exporter для вывода рейтинга в терминал.
type ConsoleExporter struct {
	widths TableWidths
}

// NewConsoleExporter создает новый экземпляр ConsoleExporter.
func NewConsoleExporter(widths TableWidths) ports.Exporter {
	if widths == (TableWidths{}) {
		widths = DefaultTableWidths
	}
	return &ConsoleExporter{widths: widths}
}

// ContentType возвращает MIME-тип результата.
func (e *ConsoleExporter) ContentType() string { return "text/plain; charset=utf-8" }

// Extension возвращает расширение файла результата.
func (e *ConsoleExporter) Extension() string { return ".txt" }

// Export выводит заголовок со счётчиками и таблицу рейтинга.
func (e *ConsoleExporter) Export(w io.Writer, doc ports.ExportDocument) error {
	r := doc.Ranking
	if _, err := fmt.Fprintf(w, "--- %s ---\n", fileNameOf(doc)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Período: %s até %s\n", r.DateRange.Start, r.DateRange.End); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Mensagens: %d de %d, participantes: %d\n\n", r.FilteredMessages, r.TotalMessages, len(r.Ranking)); err != nil {
		return err
	}
	if len(r.Ranking) == 0 {
		_, err := fmt.Fprintln(w, "Nenhuma mensagem no período.")
		return err
	}
	_, err := io.WriteString(w, RenderTable(Rows(doc), e.widths, nil))
	return err
}

// WriteComparison выводит сводку сравнения групп.
func WriteComparison(w io.Writer, cmp domain.Comparison) error {
	for _, g := range cmp.Groups {
		if _, err := fmt.Fprintf(w, "%s: %d mensagens, %d participantes, média %d, líder %s (%d)\n",
			g.GroupName, g.TotalMessages, g.UniqueParticipants, g.AverageMessages, g.TopParticipant.Name, g.TopParticipant.Count); err != nil {
			return err
		}
	}
	s := cmp.Summary
	_, err := fmt.Fprintf(w, "\nTotal: %d mensagens, %d participantes, média %d, máximo %d\n",
		s.TotalMessages, s.TotalParticipants, s.AverageMessages, s.MaxMessages)
	return err
}
