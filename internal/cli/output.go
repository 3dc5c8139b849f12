package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"whatsapp-ranking/internal/adapters/exporter"
	"whatsapp-ranking/internal/adapters/parser"
	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/ports"
)

// exportFlags — флаги периода и формата вывода.
type exportFlags struct {
	start  string
	end    string
	format string
	out    string
}

func (f *exportFlags) filter() (domain.DateFilter, error) {
	for _, v := range []string{f.start, f.end} {
		if v == "" {
			continue
		}
		if _, ok := parser.ParseISODate(v); !ok {
			return domain.DateFilter{}, fmt.Errorf("недопустимая дата %q, ожидается YYYY-MM-DD", v)
		}
	}
	if f.start != "" && f.end != "" && f.start > f.end {
		return domain.DateFilter{}, fmt.Errorf("--start %s позже --end %s", f.start, f.end)
	}
	return domain.DateFilter{StartDate: f.start, EndDate: f.end}, nil
}

// isBinary сообщает, что формат нельзя выводить в терминал.
func isBinary(format string) bool {
	switch strings.ToLower(format) {
	case exporter.FormatPDF, exporter.FormatXLSX:
		return true
	}
	return false
}

// withOutput открывает --out или отдаёт stdout.
func withOutput(out string, stdout io.Writer, fn func(w io.Writer) error) error {
	if out == "" || out == "-" {
		return fn(stdout)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("не удалось создать %s: %w", out, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (o *options) export(flags exportFlags, doc ports.ExportDocument) error {
	if isBinary(flags.format) && (flags.out == "" || flags.out == "-") {
		return fmt.Errorf("для формата %s нужен --out", flags.format)
	}
	exp, err := exporter.ForFormat(flags.format, nil)
	if err != nil {
		return err
	}
	return withOutput(flags.out, o.stdout, func(w io.Writer) error {
		return exp.Export(w, doc)
	})
}

func (o *options) reportFailures(failures []*domain.FileError) {
	for _, f := range failures {
		fmt.Fprintf(o.stderr, "пропущен %s: %v\n", f.FileName, f.Err)
	}
}
