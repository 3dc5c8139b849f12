package exporter

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"whatsapp-ranking/internal/ports"
)

// PDFExporter реализует интерфейс Exporter для печатного отчёта.
type PDFExporter struct {
	now func() time.Time
}

// NewPDFExporter создает новый экземпляр PDFExporter.
func NewPDFExporter(now func() time.Time) ports.Exporter {
	return &PDFExporter{now: nowFunc(now)}
}

// ContentType возвращает MIME-тип результата.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Extension возвращает расширение файла результата.
func (e *PDFExporter) Extension() string { return ".pdf" }

// Export рисует отчёт: заголовок, блок счётчиков, период и строки рейтинга.
func (e *PDFExporter) Export(w io.Writer, doc ports.ExportDocument) error {
	generated := e.now()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(generated)
	pdf.SetTitle("WhatsApp Ranking - "+fileNameOf(doc), true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// Встроенные шрифты понимают cp1252, португальские буквы туда входят.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(5, 150, 105)
	pdf.CellFormat(0, 12, "WhatsApp Ranking", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(107, 114, 128)
	pdf.CellFormat(0, 6, tr("Análise de Mensagens do Chat"), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr("Arquivo: "+fileNameOf(doc)), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	stats := []struct {
		label string
		value int
	}{
		{"Mensagens Analisadas", doc.Ranking.FilteredMessages},
		{"Participantes", len(doc.Ranking.Ranking)},
		{"Líder em Mensagens", leaderCount(doc)},
	}
	pdf.SetFillColor(249, 250, 251)
	pdf.SetTextColor(51, 51, 51)
	colW := 190.0 / float64(len(stats))
	pdf.SetFont("Helvetica", "B", 16)
	for _, s := range stats {
		pdf.CellFormat(colW, 10, fmt.Sprintf("%d", s.value), "", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, s := range stats {
		pdf.CellFormat(colW, 6, tr(s.label), "", 0, "C", true, 0, "")
	}
	pdf.Ln(10)

	if !doc.Filter.IsEmpty() {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetFillColor(239, 246, 255)
		period := fmt.Sprintf("Período Filtrado: %s até %s", displayDate(doc.Filter.StartDate, "Início"), displayDate(doc.Filter.EndDate, "Fim"))
		pdf.CellFormat(0, 8, tr(period), "L", 1, "L", true, 0, "")
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(229, 231, 235)
	pdf.CellFormat(15, 7, "#", "B", 0, "C", true, 0, "")
	pdf.CellFormat(115, 7, "Participante", "B", 0, "L", true, 0, "")
	pdf.CellFormat(35, 7, "Mensagens", "B", 0, "R", true, 0, "")
	pdf.CellFormat(25, 7, "%", "B", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range Rows(doc) {
		fill := row.Position <= 3
		if fill {
			pdf.SetFillColor(254, 243, 199)
		}
		pdf.CellFormat(15, 7, fmt.Sprintf("%d", row.Position), "", 0, "C", fill, 0, "")
		pdf.CellFormat(115, 7, tr(row.Name), "", 0, "L", fill, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("%d mensagens", row.MessageCount), "", 0, "R", fill, 0, "")
		pdf.CellFormat(25, 7, FormatShare(row.Share, 1)+"%", "", 1, "R", fill, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(156, 163, 175)
	pdf.CellFormat(0, 5, "Gerado em "+generated.Format("02/01/2006 15:04:05"), "T", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, tr("WhatsApp Ranking - Análise de Conversas"), "", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return pdf.Output(w)
}

// displayDate переводит ISO-дату в вид dd/mm/yyyy, пустую — в подпись границы.
func displayDate(iso, open string) string {
	if iso == "" {
		return open
	}
	t, err := time.Parse(time.DateOnly, iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}
