package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"whatsapp-ranking/internal/adapters/parser"
	"whatsapp-ranking/internal/adapters/source"
	"whatsapp-ranking/internal/core/services"
	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/pkg/config"
	"whatsapp-ranking/internal/ports"
)

// MergedDataset — значение параметра dataset для объединённого рейтинга.
const MergedDataset = "merged"

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// ChatProcessor определяет интерфейс для варианта использования, который обрабатывает чаты.
type ChatProcessor interface {
	BatchLimit() int
	ProcessChats(ctx context.Context, sources []ports.DataSource, filter domain.DateFilter, observer ports.ProgressObserver) (services.BatchResult, error)
	Refilter(ctx context.Context, datasets []domain.FileDataset, filter domain.DateFilter) []domain.FileDataset
	Merge(ctx context.Context, datasets []domain.FileDataset, opts domain.MergeOptions, filter domain.DateFilter) domain.RankingData
	Compare(datasets []domain.FileDataset) domain.Comparison
	Export(w io.Writer, format string, doc ports.ExportDocument) (ports.Exporter, error)
	CachedSession(ctx context.Context) (domain.MultiFileCachedData, bool)
	CacheSize(ctx context.Context) int
	ClearCache(ctx context.Context) error
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	taskStore  *TaskStore
	processor  ChatProcessor
	logger     *slog.Logger
}

// New создает новый экземпляр Server. Очистка просроченных задач
// работает, пока не отменён ctx.
func New(ctx context.Context, cfg *config.Config, processor ChatProcessor, taskStore *TaskStore, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		taskStore: taskStore,
		processor: processor,
		logger:    logger,
	}

	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Маршруты API
	chiRouter.Route("/api/v1", func(r chi.Router) {
		r.Post("/process", s.handleProcess)

		r.Route("/tasks/{taskID}", func(r chi.Router) {
			r.Get("/", s.handleTaskStatus)
			r.Get("/result", s.handleTaskResult)
			r.Get("/ranking", s.handleRanking)
			r.Post("/filter", s.handleFilter)
			r.Post("/merge", s.handleMerge)
			r.Get("/comparison", s.handleComparison)
			r.Get("/export", s.handleExport)
		})

		r.Get("/cache", s.handleCacheInfo)
		r.Delete("/cache", s.handleCacheClear)
	})

	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	s.taskStore.StartCleanupTicker(ctx, cfg.Cache.CleanupInterval)

	return s, nil
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Завершение работы HTTP-сервера")
	return s.HTTPServer.Shutdown(ctx)
}

// handleProcess принимает пакет файлов и запускает задачу обработки.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Не удалось разобрать форму", http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		http.Error(w, "Не удалось получить файлы из формы", http.StatusBadRequest)
		return
	}
	if limit := s.processor.BatchLimit(); len(headers) > limit {
		msg := fmt.Sprintf("%v: %d файлов, максимум %d", domain.ErrBatchLimitExceeded, len(headers), limit)
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	filter, err := parseFilter(r.FormValue("start_date"), r.FormValue("end_date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sources := make([]ports.DataSource, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			http.Error(w, "Не удалось открыть загруженный файл", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			http.Error(w, "Не удалось прочитать загруженный файл", http.StatusBadRequest)
			return
		}
		sources = append(sources, source.NewMemorySource(fh.Filename, data))
	}

	taskID := uuid.NewString()
	s.taskStore.CreateTask(taskID, s.cfg.Processing.TaskTTL, filter)
	s.logger.Info("Задача создана", "task_id", taskID, "files", len(sources))

	go s.runTask(taskID, sources, filter)

	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (s *Server) runTask(taskID string, sources []ports.DataSource, filter domain.DateFilter) {
	_ = s.taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

	taskCtx := context.Background()
	if s.cfg.Processing.TaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(taskCtx, s.cfg.Processing.TaskTimeout)
		defer cancel()
	}

	observer := ports.ProgressFunc(func(p domain.Progress) {
		_ = s.taskStore.UpdateTaskProgress(taskID, p)
	})

	result, err := s.processor.ProcessChats(taskCtx, sources, filter, observer)
	if err != nil {
		s.logger.Warn("Задача завершилась с ошибкой", "task_id", taskID, "error", err)
		_ = s.taskStore.UpdateTaskError(taskID, err.Error(), result.Failures)
		return
	}
	_ = s.taskStore.UpdateTaskResult(taskID, result)
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, TaskStatusResponse{
		TaskID:       task.ID,
		Status:       task.Status,
		Progress:     task.Progress,
		ErrorMessage: task.ErrorMessage,
		Datasets:     len(task.Datasets),
		Failures:     task.Failures,
	})
}

func (s *Server) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	task, ok := s.completedTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summarize(task))
}

// handleRanking отдаёт страницу рейтинга набора или объединённого рейтинга.
func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	task, ok := s.completedTask(w, r)
	if !ok {
		return
	}
	name, ranking, _, err := resolveDataset(task, r.URL.Query().Get("dataset"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	page := parsePositive(r.URL.Query().Get("page"), 1, 0)
	pageSize := parsePositive(r.URL.Query().Get("page_size"), defaultPageSize, maxPageSize)

	total := len(ranking.Ranking)
	start := total
	if page-1 <= total/pageSize {
		start = min((page-1)*pageSize, total)
	}
	end := min(start+pageSize, total)

	data := make([]RankingEntryDTO, 0, end-start)
	for i := start; i < end; i++ {
		entry := ranking.Ranking[i]
		data = append(data, RankingEntryDTO{Position: i + 1, Name: entry.Name, Count: entry.Count})
	}

	writeJSON(w, http.StatusOK, RankingPageResponse{
		Dataset:          name,
		TotalMessages:    ranking.TotalMessages,
		FilteredMessages: ranking.FilteredMessages,
		DateRange:        ranking.DateRange,
		Pagination: Pagination{
			CurrentPage: page,
			PageSize:    pageSize,
			TotalItems:  total,
			TotalPages:  (total + pageSize - 1) / pageSize,
		},
		Data: data,
	})
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	task, ok := s.completedTask(w, r)
	if !ok {
		return
	}
	var req domain.DateFilter
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Не удалось декодировать тело запроса", http.StatusBadRequest)
		return
	}
	filter, err := parseFilter(req.StartDate, req.EndDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	datasets := s.processor.Refilter(r.Context(), task.Datasets, filter)
	if err := s.taskStore.ReplaceDatasets(task.ID, datasets, filter); err != nil {
		http.Error(w, "Задача не найдена", http.StatusNotFound)
		return
	}
	task.Datasets, task.Filter, task.Merged = datasets, filter, nil
	writeJSON(w, http.StatusOK, summarize(task))
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	task, ok := s.completedTask(w, r)
	if !ok {
		return
	}
	var req MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Не удалось декодировать тело запроса", http.StatusBadRequest)
		return
	}

	opts := domain.MergeOptions{IncludeFilePrefix: req.IncludeFilePrefix, MergeParticipants: req.MergeParticipants}
	merged := s.processor.Merge(r.Context(), task.Datasets, opts, task.Filter)
	opts.DateRange = task.Filter
	if err := s.taskStore.SetMerged(task.ID, merged, opts); err != nil {
		http.Error(w, "Задача не найдена", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	task, ok := s.completedTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.processor.Compare(task.Datasets))
}

// handleExport отдаёт рейтинг файлом в выбранном формате.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	task, ok := s.completedTask(w, r)
	if !ok {
		return
	}
	_, ranking, fileName, err := resolveDataset(task, r.URL.Query().Get("dataset"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	var buf bytes.Buffer
	doc := ports.ExportDocument{FileName: fileName, Ranking: ranking, Filter: task.Filter}
	exp, err := s.processor.Export(&buf, format, doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="whatsapp-ranking-%s%s"`, time.Now().Format("2006-01-02"), exp.Extension()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleCacheInfo(w http.ResponseWriter, r *http.Request) {
	resp := CacheResponse{SizeBytes: s.processor.CacheSize(r.Context())}
	if rec, ok := s.processor.CachedSession(r.Context()); ok {
		resp.Present = true
		resp.Timestamp = rec.Timestamp
		resp.Version = rec.Version
		resp.DateFilter = rec.DateFilter
		resp.HasMerged = rec.MergedData != nil
		for _, ds := range rec.Datasets {
			resp.Files = append(resp.Files, ds.FileName)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.processor.ClearCache(r.Context()); err != nil {
		s.logger.Error("Не удалось очистить кеш", "error", err)
		http.Error(w, "Не удалось очистить кеш", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookupTask(w http.ResponseWriter, r *http.Request) (Task, bool) {
	task, err := s.taskStore.GetTask(chi.URLParam(r, "taskID"))
	if err != nil {
		http.Error(w, "Задача не найдена", http.StatusNotFound)
		return Task{}, false
	}
	return task, true
}

func (s *Server) completedTask(w http.ResponseWriter, r *http.Request) (Task, bool) {
	task, ok := s.lookupTask(w, r)
	if !ok {
		return Task{}, false
	}
	if task.Status != TaskStatusCompleted {
		http.Error(w, "Задача не завершена", http.StatusBadRequest)
		return Task{}, false
	}
	return task, true
}

// resolveDataset находит рейтинг по идентификатору набора или "merged".
// Без параметра берётся объединённый рейтинг, если он есть, иначе первый набор.
func resolveDataset(task Task, id string) (string, domain.RankingData, string, error) {
	if id == "" {
		if task.Merged != nil {
			id = MergedDataset
		} else if len(task.Datasets) > 0 {
			id = task.Datasets[0].ID
		}
	}
	if id == MergedDataset {
		if task.Merged == nil {
			return "", domain.RankingData{}, "", fmt.Errorf("объединённый рейтинг ещё не построен")
		}
		return id, *task.Merged, "", nil
	}
	for _, ds := range task.Datasets {
		if ds.ID == id {
			return id, ds.RankingData, ds.FileName, nil
		}
	}
	return "", domain.RankingData{}, "", fmt.Errorf("набор %q не найден", id)
}

// parseFilter проверяет границы периода в формате YYYY-MM-DD.
func parseFilter(start, end string) (domain.DateFilter, error) {
	for _, v := range []string{start, end} {
		if v == "" {
			continue
		}
		if _, ok := parser.ParseISODate(v); !ok {
			return domain.DateFilter{}, fmt.Errorf("недопустимая дата %q, ожидается YYYY-MM-DD", v)
		}
	}
	return domain.DateFilter{StartDate: start, EndDate: end}, nil
}

// parsePositive разбирает положительное число; limit > 0 ограничивает сверху.
func parsePositive(raw string, def, limit int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
