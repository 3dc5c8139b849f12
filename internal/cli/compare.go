package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"whatsapp-ranking/internal/adapters/exporter"
	"whatsapp-ranking/internal/core/services"
)

func newCompareCommand(opts *options) *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "compare <file>...",
		Short: "Сравнить активность нескольких групп",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), opts, flags, args)
		},
	}

	addExportFlags(cmd, &flags)
	return cmd
}

func runCompare(ctx context.Context, opts *options, flags exportFlags, paths []string) error {
	filter, err := flags.filter()
	if err != nil {
		return err
	}
	res, err := processAll(ctx, opts, paths, filter)
	if err != nil {
		return err
	}
	cmp := services.NewComparisonService().Compare(res.Result.Individual)

	format := strings.ToLower(flags.format)
	if isBinary(format) && (flags.out == "" || flags.out == "-") {
		return fmt.Errorf("для формата %s нужен --out", format)
	}
	return withOutput(flags.out, opts.stdout, func(w io.Writer) error {
		switch format {
		case exporter.FormatTable:
			return exporter.WriteComparison(w, cmp)
		case exporter.FormatJSON:
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(cmp)
		case exporter.FormatXLSX:
			return exporter.WriteComparisonWorkbook(w, cmp)
		default:
			return fmt.Errorf("формат %q не поддерживается для сравнения", flags.format)
		}
	})
}
