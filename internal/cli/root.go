// Package cli реализует локальную командную строку: рейтинг, объединение
// и сравнение экспортов WhatsApp без HTTP-сервера.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"whatsapp-ranking/internal/adapters/archive"
	"whatsapp-ranking/internal/cache"
	"whatsapp-ranking/internal/core/services"
	"whatsapp-ranking/internal/log"
	"whatsapp-ranking/internal/pkg/config"
)

// options — общие флаги всех команд.
type options struct {
	cachePath string
	noCache   bool
	logLevel  string

	stdout io.Writer
	stderr io.Writer
}

// NewRootCommand собирает дерево команд.
func NewRootCommand() *cobra.Command {
	opts := &options{stdout: os.Stdout, stderr: os.Stderr}

	rootCmd := &cobra.Command{
		Use:   "whatsapp-ranking",
		Short: "Рейтинг участников чатов WhatsApp по экспортам .txt/.zip",
		Long: `whatsapp-ranking считает сообщения участников в экспортах чатов WhatsApp,
объединяет рейтинги нескольких групп и сравнивает группы между собой.
Номера телефонов в выводе маскируются.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.stdout = cmd.OutOrStdout()
			opts.stderr = cmd.ErrOrStderr()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cachePath, "cache", defaultCachePath(), "Путь к файлу кэша SQLite")
	rootCmd.PersistentFlags().BoolVar(&opts.noCache, "no-cache", false, "Не сохранять результат в кэш")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Уровень логирования: debug, info, warn, error")

	rootCmd.AddCommand(
		newRankCommand(opts),
		newMergeCommand(opts),
		newCompareCommand(opts),
		newCacheCommand(opts),
	)

	return rootCmd
}

// Execute запускает командную строку.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".whatsapp-ranking", "cache.db")
	}
	return filepath.Join(home, ".whatsapp-ranking", "cache.db")
}

func (o *options) logger() *slog.Logger {
	return log.New(o.stderr, o.logLevel, "text")
}

func (o *options) processing() *services.ProcessingService {
	return services.NewProcessingService(
		archive.NewZipExtractor(int64(config.DefaultMaxExtractedMB)<<20),
		services.NewAggregationService(),
		services.WithLogger(o.logger()),
	)
}

// withRecords открывает кэш записей на время fn. С --no-cache fn получает nil.
func (o *options) withRecords(fn func(*cache.RecordCache) error) error {
	if o.noCache {
		return fn(nil)
	}
	store, err := cache.OpenSQLiteStore(o.cachePath)
	if err != nil {
		return fmt.Errorf("не удалось открыть кэш: %w", err)
	}
	defer store.Close()
	return fn(cache.NewRecordCache(store, o.logger()))
}
