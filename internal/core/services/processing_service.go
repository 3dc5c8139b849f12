package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"whatsapp-ranking/internal/adapters/archive"
	"whatsapp-ranking/internal/adapters/parser"
	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/ports"
)

// DefaultBatchLimit — максимальное число файлов в одном пакете.
const DefaultBatchLimit = 10

type fileKind int

const (
	kindText fileKind = iota
	kindZip
)

// BatchResult — итог пакетной обработки: успешные наборы и ошибки по файлам.
type BatchResult struct {
	Result   domain.MultiFileResult
	Failures []*domain.FileError
}

// ProcessingService проводит файл через весь конвейер:
// определение типа, распаковка, проверка формата и агрегация.
type ProcessingService struct {
	extractor  ports.ArchiveExtractor
	aggregator ports.Aggregator
	batchLimit int
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// Option настраивает ProcessingService.
type Option func(*ProcessingService)

// WithBatchLimit задаёт максимальное число файлов в пакете.
func WithBatchLimit(n int) Option {
	return func(s *ProcessingService) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// WithLogger задаёт логгер сервиса.
func WithLogger(l *slog.Logger) Option {
	return func(s *ProcessingService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *ProcessingService) {
		s.now = now
	}
}

// WithIDGenerator подменяет генератор идентификаторов наборов.
func WithIDGenerator(gen func() string) Option {
	return func(s *ProcessingService) {
		s.newID = gen
	}
}

// NewProcessingService создает новый экземпляр ProcessingService.
func NewProcessingService(extractor ports.ArchiveExtractor, aggregator ports.Aggregator, opts ...Option) *ProcessingService {
	s := &ProcessingService{
		extractor:  extractor,
		aggregator: aggregator,
		batchLimit: DefaultBatchLimit,
		logger:     slog.Default(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BatchLimit возвращает действующий лимит файлов в пакете.
func (s *ProcessingService) BatchLimit() int {
	return s.batchLimit
}

func detectKind(fileName string) (fileKind, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt":
		return kindText, nil
	case ".zip":
		return kindZip, nil
	default:
		return 0, domain.ErrUnsupportedFileType
	}
}

// ProcessFile обрабатывает один файл и возвращает набор данных с рейтингом.
func (s *ProcessingService) ProcessFile(ctx context.Context, src ports.DataSource, filter domain.DateFilter, observer ports.ProgressObserver) (domain.FileDataset, error) {
	return s.processFile(ctx, src, filter, progressReporter{observer: observer, current: 1, total: 1, fileName: src.Name()})
}

func (s *ProcessingService) processFile(ctx context.Context, src ports.DataSource, filter domain.DateFilter, report progressReporter) (domain.FileDataset, error) {
	name := src.Name()
	kind, err := detectKind(name)
	if err != nil {
		return domain.FileDataset{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.FileDataset{}, err
	}

	report.stage(domain.StageReading, 10)
	data, err := src.Fetch()
	if err != nil {
		return domain.FileDataset{}, fmt.Errorf("failed to read %s: %w", name, err)
	}

	content := string(data)
	if kind == kindZip {
		if !archive.IsZip(data) {
			return domain.FileDataset{}, domain.ErrUnsupportedFileType
		}
		report.stage(domain.StageExtracting, 30)
		content, err = s.extractor.Extract(data)
		if err != nil {
			return domain.FileDataset{}, err
		}
	}

	report.stage(domain.StageParsing, 70)
	if !parser.LooksLikeExport(content) {
		return domain.FileDataset{}, domain.ErrUnrecognizedFormat
	}

	ranking := s.aggregator.Aggregate(content, filter)
	if ranking.TotalMessages == 0 {
		return domain.FileDataset{}, domain.ErrNoValidMessages
	}
	report.stage(domain.StageComplete, 100)

	return domain.FileDataset{
		ID:          s.newID(),
		FileName:    name,
		FileSize:    int64(len(data)),
		FileContent: content,
		RankingData: ranking,
		UploadedAt:  s.now().UnixMilli(),
	}, nil
}

// ProcessBatch обрабатывает файлы по очереди. Ошибка одного файла не
// прерывает пакет: она попадает в Failures. Пакет больше лимита отклоняется
// до начала обработки.
func (s *ProcessingService) ProcessBatch(ctx context.Context, sources []ports.DataSource, filter domain.DateFilter, observer ports.ProgressObserver) (BatchResult, error) {
	if len(sources) > s.batchLimit {
		return BatchResult{}, fmt.Errorf("%w: %d files, limit is %d", domain.ErrBatchLimitExceeded, len(sources), s.batchLimit)
	}

	var res BatchResult
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return BatchResult{}, err
		}
		report := progressReporter{observer: observer, current: i + 1, total: len(sources), fileName: src.Name()}

		ds, err := s.processFile(ctx, src, filter, report)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return BatchResult{}, err
			}
			s.logger.Warn("file skipped", "file", src.Name(), "error", err)
			res.Failures = append(res.Failures, domain.NewFileError(src.Name(), err))
			continue
		}
		s.logger.Info("file processed", "file", ds.FileName, "total_messages", ds.RankingData.TotalMessages, "participants", len(ds.RankingData.Ranking))
		res.Result.Individual = append(res.Result.Individual, ds)
	}

	res.Result.TotalFiles = len(res.Result.Individual)
	if res.Result.TotalFiles == 0 {
		return res, domain.ErrNoDatasets
	}
	if observer != nil {
		observer.OnProgress(domain.Progress{CurrentFile: len(sources), TotalFiles: len(sources), Stage: domain.StageComplete, Percent: 100})
	}
	return res, nil
}

// Refilter пересчитывает рейтинги по сохранённому тексту без повторной распаковки.
// Исходный срез не изменяется.
func (s *ProcessingService) Refilter(datasets []domain.FileDataset, filter domain.DateFilter) []domain.FileDataset {
	out := make([]domain.FileDataset, len(datasets))
	for i, ds := range datasets {
		ds.RankingData = s.aggregator.Aggregate(ds.FileContent, filter)
		out[i] = ds
	}
	return out
}

// progressReporter переводит этапы одного файла в общий прогресс пакета.
type progressReporter struct {
	observer ports.ProgressObserver
	current  int
	total    int
	fileName string
}

func (r progressReporter) stage(stage domain.Stage, filePercent int) {
	if r.observer == nil {
		return
	}
	overall := ((r.current-1)*100 + filePercent) / r.total
	r.observer.OnProgress(domain.Progress{
		CurrentFile: r.current,
		TotalFiles:  r.total,
		FileName:    r.fileName,
		Stage:       stage,
		Percent:     overall,
	})
}
