package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"whatsapp-ranking/internal/adapters/exporter"
	"whatsapp-ranking/internal/cache"
	"whatsapp-ranking/internal/core/services"
	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/ports"
)

// ProcessChatUseCase связывает ядро с кэшем: пакетная обработка экспортов,
// перефильтрация, объединение, сравнение и запись сессии в RecordCache.
type ProcessChatUseCase struct {
	processing *services.ProcessingService
	merger     ports.Merger
	comparator ports.Comparator
	records    *cache.RecordCache
	results    ports.KVStore
	logger     *slog.Logger
}

// NewProcessChatUseCase создает новый экземпляр ProcessChatUseCase.
// results — краткоживущий кэш готовых результатов по хешу содержимого.
func NewProcessChatUseCase(
	processing *services.ProcessingService,
	merger ports.Merger,
	comparator ports.Comparator,
	records *cache.RecordCache,
	results ports.KVStore,
	logger *slog.Logger,
) *ProcessChatUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessChatUseCase{
		processing: processing,
		merger:     merger,
		comparator: comparator,
		records:    records,
		results:    results,
		logger:     logger,
	}
}

// BatchLimit возвращает лимит файлов в одном пакете.
func (uc *ProcessChatUseCase) BatchLimit() int {
	return uc.processing.BatchLimit()
}

// ProcessChats обрабатывает пакет файлов. Повторная загрузка тех же файлов
// с тем же фильтром берётся из кэша результатов без разбора.
func (uc *ProcessChatUseCase) ProcessChats(ctx context.Context, sources []ports.DataSource, filter domain.DateFilter, observer ports.ProgressObserver) (services.BatchResult, error) {
	if len(sources) > uc.processing.BatchLimit() {
		return uc.processing.ProcessBatch(ctx, sources, filter, observer)
	}

	key, err := batchKey(sources, filter)
	if err != nil {
		uc.logger.Warn("не удалось вычислить ключ кэша", "error", err)
	}
	if key != "" {
		if res, ok := uc.cachedResult(ctx, key); ok {
			uc.logger.Info("Попадание в кеш для набора файлов", "hash", key, "files", len(sources))
			uc.saveSession(ctx, res.Individual, nil, domain.MergeOptions{}, filter)
			if observer != nil {
				observer.OnProgress(domain.Progress{CurrentFile: len(sources), TotalFiles: len(sources), Stage: domain.StageComplete, Percent: 100})
			}
			return services.BatchResult{Result: res}, nil
		}
	}

	batch, err := uc.processing.ProcessBatch(ctx, sources, filter, observer)
	if err != nil {
		return batch, err
	}

	if key != "" && len(batch.Failures) == 0 {
		if data, err := json.Marshal(batch.Result); err == nil {
			if err := uc.results.Set(ctx, key, data); err != nil {
				uc.logger.Warn("не удалось сохранить результат в кеш", "error", err)
			}
		}
	}
	uc.saveSession(ctx, batch.Result.Individual, nil, domain.MergeOptions{}, filter)

	uc.logger.Info("Обработка успешно завершена", "files", batch.Result.TotalFiles, "failed", len(batch.Failures))
	return batch, nil
}

// Refilter пересчитывает рейтинги наборов по новому фильтру.
func (uc *ProcessChatUseCase) Refilter(ctx context.Context, datasets []domain.FileDataset, filter domain.DateFilter) []domain.FileDataset {
	out := uc.processing.Refilter(datasets, filter)
	uc.saveSession(ctx, out, nil, domain.MergeOptions{}, filter)
	return out
}

// Merge объединяет рейтинги наборов. Период в подписях берётся из filter.
func (uc *ProcessChatUseCase) Merge(ctx context.Context, datasets []domain.FileDataset, opts domain.MergeOptions, filter domain.DateFilter) domain.RankingData {
	opts.DateRange = filter
	merged := uc.merger.Merge(datasets, opts)
	uc.saveSession(ctx, datasets, &merged, opts, filter)
	return merged
}

// Compare строит сравнение групп.
func (uc *ProcessChatUseCase) Compare(datasets []domain.FileDataset) domain.Comparison {
	return uc.comparator.Compare(datasets)
}

// Export записывает документ в выбранном формате и возвращает использованный экспортёр.
func (uc *ProcessChatUseCase) Export(w io.Writer, format string, doc ports.ExportDocument) (ports.Exporter, error) {
	e, err := exporter.ForFormat(format, nil)
	if err != nil {
		return nil, err
	}
	if err := e.Export(w, doc); err != nil {
		return nil, fmt.Errorf("не удалось сформировать экспорт: %w", err)
	}
	return e, nil
}

// CachedSession возвращает последнюю сохранённую сессию пакетного режима.
func (uc *ProcessChatUseCase) CachedSession(ctx context.Context) (domain.MultiFileCachedData, bool) {
	return uc.records.LoadMulti(ctx)
}

// CacheSize возвращает размер сохранённых записей сессии в байтах.
func (uc *ProcessChatUseCase) CacheSize(ctx context.Context) int {
	return uc.records.Size(ctx)
}

// ClearCache удаляет записи сессии и кэш результатов.
func (uc *ProcessChatUseCase) ClearCache(ctx context.Context) error {
	if err := uc.records.Clear(ctx); err != nil {
		return err
	}
	return uc.results.Clear(ctx)
}

func (uc *ProcessChatUseCase) cachedResult(ctx context.Context, key string) (domain.MultiFileResult, bool) {
	data, ok, err := uc.results.Get(ctx, key)
	if err != nil || !ok {
		return domain.MultiFileResult{}, false
	}
	var res domain.MultiFileResult
	if err := json.Unmarshal(data, &res); err != nil {
		_ = uc.results.Delete(ctx, key)
		return domain.MultiFileResult{}, false
	}
	return res, true
}

func (uc *ProcessChatUseCase) saveSession(ctx context.Context, datasets []domain.FileDataset, merged *domain.RankingData, opts domain.MergeOptions, filter domain.DateFilter) {
	rec := domain.MultiFileCachedData{
		Datasets:     datasets,
		MergedData:   merged,
		MergeOptions: opts,
		DateFilter:   filter,
	}
	if err := uc.records.SaveMulti(ctx, rec); err != nil {
		uc.logger.Warn("не удалось сохранить сессию в кеш", "error", err)
	}
}

// batchKey строит ключ набора: имена и хеши файлов в порядке загрузки плюс фильтр.
func batchKey(sources []ports.DataSource, filter domain.DateFilter) (string, error) {
	var sb strings.Builder
	for _, src := range sources {
		data, err := src.Fetch()
		if err != nil {
			return "", fmt.Errorf("не удалось прочитать %s: %w", src.Name(), err)
		}
		fmt.Fprintf(&sb, "%s\x00%s\n", src.Name(), cache.HashContent(data))
	}
	fmt.Fprintf(&sb, "%s..%s", filter.StartDate, filter.EndDate)
	return cache.HashContent([]byte(sb.String())), nil
}
