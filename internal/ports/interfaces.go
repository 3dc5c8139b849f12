package ports

import (
	"context"
	"io"

	"whatsapp-ranking/internal/domain"
)

// DataSource определяет интерфейс для получения исходного файла экспорта.
type DataSource interface {
	// Fetch загружает данные из источника и возвращает их в виде байтового среза.
	Fetch() ([]byte, error)
	// Name возвращает имя файла, по расширению которого определяется его тип.
	Name() string
}

// ArchiveExtractor извлекает текст чата из сжатого экспорта.
type ArchiveExtractor interface {
	Extract(data []byte) (string, error)
}

// Aggregator строит рейтинг по тексту лога и фильтру дат.
type Aggregator interface {
	Aggregate(content string, filter domain.DateFilter) domain.RankingData
}

// Merger объединяет рейтинги нескольких файлов в один.
type Merger interface {
	Merge(datasets []domain.FileDataset, opts domain.MergeOptions) domain.RankingData
}

// Comparator строит сводку для сравнения групп.
type Comparator interface {
	Compare(datasets []domain.FileDataset) domain.Comparison
}

// Exporter записывает рейтинг в выбранном формате.
type Exporter interface {
	Export(w io.Writer, doc ExportDocument) error
	// ContentType возвращает MIME-тип результата.
	ContentType() string
	// Extension возвращает расширение файла результата, начиная с точки.
	Extension() string
}

// ExportDocument — всё, что нужно экспортёру для вывода одного рейтинга.
type ExportDocument struct {
	FileName string
	Ranking  domain.RankingData
	Filter   domain.DateFilter
}

// KVStore — хранилище записей кэша. Set заменяет запись целиком.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// ProgressObserver получает уведомления об этапах обработки.
// Реализация может их игнорировать.
type ProgressObserver interface {
	OnProgress(p domain.Progress)
}

// ProgressFunc позволяет использовать обычную функцию как ProgressObserver.
type ProgressFunc func(p domain.Progress)

// OnProgress реализует ProgressObserver.
func (f ProgressFunc) OnProgress(p domain.Progress) {
	if f != nil {
		f(p)
	}
}
