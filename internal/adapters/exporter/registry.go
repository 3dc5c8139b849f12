package exporter

import (
	"fmt"
	"strings"
	"time"

	"whatsapp-ranking/internal/ports"
)

// Поддерживаемые форматы экспорта.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatPDF   = "pdf"
	FormatXLSX  = "xlsx"
)

// ForFormat возвращает экспортёр по имени формата.
func ForFormat(format string, now func() time.Time) (ports.Exporter, error) {
	switch strings.ToLower(format) {
	case FormatTable:
		return NewConsoleExporter(DefaultTableWidths), nil
	case FormatJSON:
		return NewJSONExporter(now), nil
	case FormatPDF:
		return NewPDFExporter(now), nil
	case FormatXLSX:
		return NewXLSXExporter(), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}
