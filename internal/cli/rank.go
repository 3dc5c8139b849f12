package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"whatsapp-ranking/internal/adapters/exporter"
	"whatsapp-ranking/internal/adapters/source"
	"whatsapp-ranking/internal/cache"
	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/ports"
)

// defaultVisibleItems — сколько строк рейтинга показывать сразу.
const defaultVisibleItems = 10

func newRankCommand(opts *options) *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "rank <file>",
		Short: "Построить рейтинг одного чата",
		Example: `  whatsapp-ranking rank "Conversa do WhatsApp com Amigos.txt"
  whatsapp-ranking rank chat.zip --start 2024-01-01 --end 2024-01-31
  whatsapp-ranking rank chat.zip --format pdf --out ranking.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd.Context(), opts, flags, args[0])
		},
	}

	addExportFlags(cmd, &flags)
	return cmd
}

func addExportFlags(cmd *cobra.Command, flags *exportFlags) {
	cmd.Flags().StringVar(&flags.start, "start", "", "Начало периода, YYYY-MM-DD")
	cmd.Flags().StringVar(&flags.end, "end", "", "Конец периода, YYYY-MM-DD")
	cmd.Flags().StringVarP(&flags.format, "format", "f", exporter.FormatTable, "Формат: table, json, pdf, xlsx")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Файл результата (по умолчанию stdout)")
}

func runRank(ctx context.Context, opts *options, flags exportFlags, path string) error {
	filter, err := flags.filter()
	if err != nil {
		return err
	}

	ds, err := opts.processing().ProcessFile(ctx, source.NewCliSource(path), filter, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	doc := ports.ExportDocument{FileName: ds.FileName, Ranking: ds.RankingData, Filter: filter}
	if err := opts.export(flags, doc); err != nil {
		return err
	}

	return opts.withRecords(func(records *cache.RecordCache) error {
		if records == nil {
			return nil
		}
		return records.SaveSingle(ctx, domain.CachedData{
			FileName:     ds.FileName,
			FileSize:     ds.FileSize,
			FileContent:  ds.FileContent,
			RankingData:  ds.RankingData,
			DateFilter:   filter,
			VisibleItems: min(defaultVisibleItems, len(ds.RankingData.Ranking)),
		})
	})
}
