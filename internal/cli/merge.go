package cli

import (
	"context"

	"github.com/spf13/cobra"

	"whatsapp-ranking/internal/adapters/source"
	"whatsapp-ranking/internal/cache"
	"whatsapp-ranking/internal/core/services"
	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/ports"
)

func newMergeCommand(opts *options) *cobra.Command {
	var (
		flags     exportFlags
		mergeOpts domain.MergeOptions
	)

	cmd := &cobra.Command{
		Use:   "merge <file>...",
		Short: "Объединить рейтинги нескольких чатов",
		Example: `  whatsapp-ranking merge grupo1.txt grupo2.zip
  whatsapp-ranking merge grupo1.txt grupo2.zip --prefix --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd.Context(), opts, flags, mergeOpts, args)
		},
	}

	addExportFlags(cmd, &flags)
	cmd.Flags().BoolVar(&mergeOpts.IncludeFilePrefix, "prefix", false, "Добавлять имя файла к имени участника")
	cmd.Flags().BoolVar(&mergeOpts.MergeParticipants, "merge-participants", false, "Объединять похожие имена (зарезервировано)")
	return cmd
}

// processAll обрабатывает пакет файлов и печатает пропущенные.
func processAll(ctx context.Context, opts *options, paths []string, filter domain.DateFilter) (services.BatchResult, error) {
	sources := make([]ports.DataSource, 0, len(paths))
	for _, p := range paths {
		sources = append(sources, source.NewCliSource(p))
	}
	res, err := opts.processing().ProcessBatch(ctx, sources, filter, nil)
	opts.reportFailures(res.Failures)
	return res, err
}

func runMerge(ctx context.Context, opts *options, flags exportFlags, mergeOpts domain.MergeOptions, paths []string) error {
	filter, err := flags.filter()
	if err != nil {
		return err
	}
	res, err := processAll(ctx, opts, paths, filter)
	if err != nil {
		return err
	}

	mergeOpts.DateRange = filter
	merged := services.NewMergeService().Merge(res.Result.Individual, mergeOpts)

	if err := opts.export(flags, ports.ExportDocument{FileName: "Ranking combinado", Ranking: merged, Filter: filter}); err != nil {
		return err
	}

	return opts.withRecords(func(records *cache.RecordCache) error {
		if records == nil {
			return nil
		}
		return records.SaveMulti(ctx, domain.MultiFileCachedData{
			Datasets:     res.Result.Individual,
			MergedData:   &merged,
			MergeOptions: mergeOpts,
			DateFilter:   filter,
		})
	})
}
