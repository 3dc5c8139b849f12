package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"whatsapp-ranking/internal/adapters/exporter"
	"whatsapp-ranking/internal/cache"
	"whatsapp-ranking/internal/ports"
)

func newCacheCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Просмотр и очистка сохранённых результатов",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Показать сохранённые результаты",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.noCache = false
			return opts.withRecords(func(records *cache.RecordCache) error {
				return showCache(cmd.Context(), opts, records)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Удалить сохранённые результаты",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.noCache = false
			return opts.withRecords(func(records *cache.RecordCache) error {
				if err := records.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(opts.stdout, "Кэш очищен.")
				return nil
			})
		},
	})

	return cmd
}

func showCache(ctx context.Context, opts *options, records *cache.RecordCache) error {
	w := opts.stdout
	found := false

	if rec, ok := records.LoadSingle(ctx); ok {
		found = true
		fmt.Fprintf(w, "Один файл (%s):\n", time.UnixMilli(rec.Timestamp).Format(time.DateTime))
		ranking := rec.RankingData
		if n := rec.VisibleItems; n > 0 && n < len(ranking.Ranking) {
			ranking.Ranking = ranking.Ranking[:n]
		}
		rows := exporter.Rows(ports.ExportDocument{Ranking: ranking})
		fmt.Fprintf(w, "%s: %d из %d сообщений, участников: %d\n",
			rec.FileName, rec.RankingData.FilteredMessages, rec.RankingData.TotalMessages, len(rec.RankingData.Ranking))
		fmt.Fprint(w, exporter.RenderTable(rows, exporter.DefaultTableWidths, nil))
	}

	if rec, ok := records.LoadMulti(ctx); ok {
		found = true
		fmt.Fprintf(w, "Несколько файлов (%s, версия %s):\n", time.UnixMilli(rec.Timestamp).Format(time.DateTime), rec.Version)
		for _, ds := range rec.Datasets {
			fmt.Fprintf(w, "  %s: %d сообщений, участников: %d\n", ds.FileName, ds.RankingData.FilteredMessages, len(ds.RankingData.Ranking))
		}
		if rec.MergedData != nil {
			fmt.Fprintf(w, "  объединённый рейтинг: участников %d\n", len(rec.MergedData.Ranking))
		}
	}

	if !found {
		fmt.Fprintln(w, "Кэш пуст.")
	}
	return nil
}
