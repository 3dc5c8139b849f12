package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/ports"
)

// Имена листов рабочих книг.
const (
	RankingSheet    = "Ranking"
	StatsSheet      = "Stats"
	ComparisonSheet = "Comparação"
)

// XLSXExporter реализует интерфейс Exporter для Excel.
type XLSXExporter struct{}

// NewXLSXExporter создает новый экземпляр XLSXExporter.
func NewXLSXExporter() ports.Exporter {
	return &XLSXExporter{}
}

// ContentType возвращает MIME-тип результата.
func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Extension возвращает расширение файла результата.
func (e *XLSXExporter) Extension() string { return ".xlsx" }

// Export пишет книгу с листами рейтинга и счётчиков.
func (e *XLSXExporter) Export(w io.Writer, doc ports.ExportDocument) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RankingSheet); err != nil {
		return err
	}

	rows := [][]any{{"Posição", "Participante", "Mensagens", "Percentual"}}
	for _, row := range Rows(doc) {
		rows = append(rows, []any{row.Position, row.Name, row.MessageCount, FormatShare(row.Share, 2)})
	}
	if err := writeRows(f, RankingSheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(StatsSheet); err != nil {
		return err
	}
	start, end := doc.Ranking.DateRange.Start, doc.Ranking.DateRange.End
	stats := [][]any{
		{"Arquivo", fileNameOf(doc)},
		{"Total de mensagens", doc.Ranking.TotalMessages},
		{"Mensagens no período", doc.Ranking.FilteredMessages},
		{"Participantes", len(doc.Ranking.Ranking)},
		{"Início", start},
		{"Fim", end},
	}
	if err := writeRows(f, StatsSheet, stats); err != nil {
		return err
	}

	return f.Write(w)
}

// WriteComparisonWorkbook пишет книгу сравнения групп: строка на группу и итог.
func WriteComparisonWorkbook(w io.Writer, cmp domain.Comparison) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ComparisonSheet); err != nil {
		return err
	}

	rows := [][]any{{"Grupo", "Arquivo", "Mensagens", "Participantes", "Média", "Líder", "Mensagens do líder"}}
	for _, g := range cmp.Groups {
		rows = append(rows, []any{g.GroupName, g.FileName, g.TotalMessages, g.UniqueParticipants, g.AverageMessages, g.TopParticipant.Name, g.TopParticipant.Count})
	}
	s := cmp.Summary
	rows = append(rows, []any{"Total", "", s.TotalMessages, s.TotalParticipants, s.AverageMessages, "", s.MaxMessages})
	if err := writeRows(f, ComparisonSheet, rows); err != nil {
		return err
	}

	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
