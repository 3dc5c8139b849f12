package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"whatsapp-ranking/cmd/bot/config"
	"whatsapp-ranking/internal/adapters/exporter"
	"whatsapp-ranking/internal/adapters/parser"
	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/log"
	"whatsapp-ranking/internal/ports"
)

const (
	startCommand = "start"
	helpCommand  = "help"

	mergedDataset   = "merged"
	resultPageSize  = 100
	maxMessageChars = 4096
)

const helpText = "Отправьте мне экспорт чата WhatsApp (.txt или .zip), и я посчитаю, кто сколько написал.\n\n" +
	"• Можно отправить до %d файлов подряд: они попадут в одну пачку, а рейтинги будут объединены.\n" +
	"• В подписи к файлу можно указать период: <code>2024-01-01 2024-01-31</code>. " +
	"Вместо одной из дат можно поставить <code>-</code>.\n" +
	"• Номера телефонов в рейтинге маскируются.\n" +
	"• Файлы не сохраняются и обрабатываются на лету."

// fileBatch — файлы одного чата, ожидающие отправки на сервер.
type fileBatch struct {
	docs   []*tgbotapi.Document
	filter domain.DateFilter
	timer  *time.Timer
}

// Bot представляет собой основной объект Telegram-бота.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          config.BotConfig
	serverClient ServerAPI
	taskStore    *TaskStore
	logger       *slog.Logger
	httpClient   *http.Client

	pendingFiles      map[int64]*fileBatch
	pendingFilesMutex sync.Mutex

	sendMessageFunc      func(msg tgbotapi.Chattable) (tgbotapi.Message, error)
	getFileDirectURLFunc func(fileID string) (string, error)
}

// NewBot создает и инициализирует новый экземпляр бота.
func NewBot(cfg config.BotConfig, serverClient ServerAPI, taskStore *TaskStore, logger *slog.Logger) (*Bot, error) {
	if err := tgbotapi.SetLogger(&log.TGBotAPIAdapter{Logger: logger.With(slog.String("component", "tgbotapi"))}); err != nil {
		return nil, fmt.Errorf("failed to set bot api logger: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	logger.Info("Authorized on account", slog.String("username", api.Self.UserName))

	return &Bot{
		api:                  api,
		cfg:                  cfg,
		serverClient:         serverClient,
		taskStore:            taskStore,
		logger:               logger,
		httpClient:           &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second},
		pendingFiles:         make(map[int64]*fileBatch),
		sendMessageFunc:      api.Send,
		getFileDirectURLFunc: api.GetFileDirectURL,
	}, nil
}

// Start запускает основной цикл обработки обновлений от Telegram.
// Возвращается после отмены ctx.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}

	b.reply(msg.Chat.ID, "Пожалуйста, отправьте мне файл экспорта чата WhatsApp (.txt или .zip).")
}

// handleCommand обрабатывает команды.
func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case startCommand, helpCommand:
		text := "Добро пожаловать! Я строю рейтинг участников чатов WhatsApp.\n\n" +
			fmt.Sprintf(helpText, b.cfg.MaxFilesPerMessage)
		reply := tgbotapi.NewMessage(msg.Chat.ID, text)
		reply.ParseMode = tgbotapi.ModeHTML
		b.sendMessage(reply)
	default:
		b.reply(msg.Chat.ID, "Я не знаю такой команды.")
	}
}

// handleDocument добавляет документ в пачку файлов чата. Пачка уходит на
// сервер по таймауту или сразу, когда набирается MaxFilesPerMessage файлов.
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	doc := msg.Document
	logger := b.logger.With(slog.Int64("chat_id", chatID))

	if age, ok := b.taskStore.Age(chatID); ok {
		logger.Warn("user tried to start a new task while another is active", slog.Duration("age", age))
		b.reply(chatID, "Пожалуйста, подождите завершения предыдущей задачи, прежде чем начинать новую.")
		return
	}

	ext := strings.ToLower(filepath.Ext(doc.FileName))
	if ext != ".txt" && ext != ".zip" {
		b.reply(chatID, fmt.Sprintf("Файл %q не поддерживается: нужен экспорт WhatsApp в формате .txt или .zip.", doc.FileName))
		return
	}
	if limit := b.cfg.MaxFileSizeMB << 20; limit > 0 && doc.FileSize > limit {
		b.reply(chatID, fmt.Sprintf("Файл %q больше %d МБ.", doc.FileName, b.cfg.MaxFileSizeMB))
		return
	}

	filter, err := parseCaptionFilter(msg.Caption)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	b.pendingFilesMutex.Lock()
	batch, exists := b.pendingFiles[chatID]
	if exists && len(batch.docs) >= b.cfg.MaxFilesPerMessage {
		if batch.timer != nil {
			batch.timer.Stop()
		}
		delete(b.pendingFiles, chatID)
		b.pendingFilesMutex.Unlock()
		logger.Warn("file limit exceeded", slog.Int("limit", b.cfg.MaxFilesPerMessage))
		b.reply(chatID, fmt.Sprintf("Превышен лимит файлов в одном сообщении: можно отправить не больше %d файлов. Пачка отменена, отправьте файлы заново.", b.cfg.MaxFilesPerMessage))
		return
	}

	if !exists {
		batch = &fileBatch{}
		b.pendingFiles[chatID] = batch
		batch.timer = time.AfterFunc(time.Duration(b.cfg.FileBatchTimeoutSecs)*time.Second, func() {
			b.processFileBatch(ctx, chatID)
		})
	}
	batch.docs = append(batch.docs, doc)
	if !filter.IsEmpty() {
		batch.filter = filter
	}
	full := len(batch.docs) >= b.cfg.MaxFilesPerMessage
	if full && batch.timer != nil {
		batch.timer.Stop()
	}
	b.pendingFilesMutex.Unlock()

	logger.Debug("document queued", slog.String("file", doc.FileName))
	if full {
		go b.processFileBatch(ctx, chatID)
	}
}

// processFileBatch скачивает файлы пачки и запускает задачу на сервере.
// Файлы упорядочиваются по хешу содержимого, чтобы одна и та же пачка
// всегда давала одинаковый запрос независимо от порядка отправки.
func (b *Bot) processFileBatch(ctx context.Context, chatID int64) {
	b.pendingFilesMutex.Lock()
	batch, ok := b.pendingFiles[chatID]
	delete(b.pendingFiles, chatID)
	b.pendingFilesMutex.Unlock()
	if !ok || len(batch.docs) == 0 {
		return
	}

	logger := b.logger.With(slog.Int64("chat_id", chatID))

	// Файлы передаются серверу в порядке отправки.
	docs := make([]DocumentFile, 0, len(batch.docs))
	for _, doc := range batch.docs {
		data, err := b.downloadFile(ctx, doc.FileID)
		if err != nil {
			logger.Error("failed to download file", slog.String("file", doc.FileName), slog.String("error", err.Error()))
			b.reply(chatID, fmt.Sprintf("Не удалось скачать файл %q. Попробуйте отправить его еще раз.", doc.FileName))
			return
		}
		docs = append(docs, DocumentFile{Name: doc.FileName, Content: bytes.NewReader(data)})
	}

	startResp, err := b.serverClient.StartTask(ctx, docs, batch.filter)
	if err != nil {
		logger.Error("failed to start task on backend", slog.String("error", err.Error()))
		b.reply(chatID, "Не удалось начать обработку файлов на сервере. Пожалуйста, попробуйте позже.")
		return
	}

	taskID := startResp.TaskID
	logger.Info("task started on backend", slog.String("task_id", taskID), slog.Int("files", len(docs)))

	b.taskStore.Set(chatID, taskID)
	go b.pollTaskStatus(context.Background(), chatID, taskID)

	b.reply(chatID, fmt.Sprintf("✅ Получено файлов: %d. Обработка началась, ожидайте результата.", len(docs)))
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := b.getFileDirectURLFunc(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file direct url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	limit := int64(b.cfg.MaxFileSizeMB) << 20
	if limit <= 0 {
		return io.ReadAll(resp.Body)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds %d MB", b.cfg.MaxFileSizeMB)
	}
	return data, nil
}

func (b *Bot) reply(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) {
	if _, err := b.sendMessageFunc(msg); err != nil {
		b.logger.Error("failed to send message", slog.String("error", err.Error()))
	}
}

// pollTaskStatus асинхронно опрашивает статус задачи на бэкенд-сервере.
func (b *Bot) pollTaskStatus(ctx context.Context, chatID int64, taskID string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))
	defer b.taskStore.Delete(chatID) // Гарантированно удаляем задачу по завершении.

	ticker := time.NewTicker(time.Duration(b.cfg.PollingIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Warn("polling cancelled by context")
			return
		case <-ticker.C:
			status, err := b.serverClient.GetTaskStatus(ctx, taskID)
			if err != nil {
				logger.Error("failed to get task status", slog.String("error", err.Error()))
				continue
			}

			switch status.Status {
			case "completed":
				logger.Info("task completed")
				b.processCompletedTask(ctx, chatID, taskID, status)
				return
			case "failed":
				logger.Warn("task failed", slog.String("reason", status.ErrorMessage))
				b.reply(chatID, "Не удалось обработать ни одного файла.\n"+describeFailures(status.Failures))
				return
			case "pending", "processing":
				logger.Debug("task is in progress", slog.String("stage", status.Progress.Stage))
			default:
				logger.Warn("unknown task status", slog.String("status", status.Status))
			}
		}
	}
}

// processCompletedTask отправляет рейтинг успешно завершенной задачи.
// Если обработано несколько файлов, показывается объединённый рейтинг.
func (b *Bot) processCompletedTask(ctx context.Context, chatID int64, taskID string, status *TaskStatusResponse) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))

	if len(status.Failures) > 0 {
		b.reply(chatID, "Часть файлов пропущена.\n"+describeFailures(status.Failures))
	}

	dataset := ""
	if status.Datasets > 1 {
		if err := b.serverClient.Merge(ctx, taskID, false); err != nil {
			logger.Error("failed to merge datasets", slog.String("error", err.Error()))
			b.reply(chatID, "Не удалось объединить рейтинги. Пожалуйста, попробуйте позже.")
			return
		}
		dataset = mergedDataset
	}

	ranking, err := b.fetchFullRanking(ctx, taskID, dataset)
	if err != nil {
		logger.Error("failed to fetch ranking", slog.String("error", err.Error()))
		b.reply(chatID, "Не удалось получить результаты для выполненной задачи. Пожалуйста, попробуйте позже.")
		return
	}

	participants := len(ranking.Ranking)
	logger.Info("successfully fetched ranking", slog.Int("participants", participants))

	if participants == 0 {
		b.reply(chatID, "В выбранном периоде нет ни одного сообщения.")
		return
	}

	if participants >= b.cfg.ExcelThreshold {
		logger.Info("participant count is over threshold, sending excel file")
		b.sendExcelResult(ctx, chatID, taskID, dataset, participants)
		return
	}
	b.sendTextResult(chatID, ranking)
}

// fetchFullRanking собирает все страницы рейтинга.
func (b *Bot) fetchFullRanking(ctx context.Context, taskID, dataset string) (domain.RankingData, error) {
	var out domain.RankingData
	for page := 1; ; page++ {
		resp, err := b.serverClient.GetRanking(ctx, taskID, dataset, page, resultPageSize)
		if err != nil {
			return domain.RankingData{}, fmt.Errorf("failed to get ranking page %d: %w", page, err)
		}
		out.TotalMessages = resp.TotalMessages
		out.FilteredMessages = resp.FilteredMessages
		out.DateRange = resp.DateRange
		for _, e := range resp.Data {
			out.Ranking = append(out.Ranking, domain.MessageCount{Name: e.Name, Count: e.Count})
		}
		if page >= resp.Pagination.TotalPages {
			return out, nil
		}
	}
}

func (b *Bot) sendExcelResult(ctx context.Context, chatID int64, taskID, dataset string, participants int) {
	b.reply(chatID, fmt.Sprintf("Найдено %d участников. Формирую Excel-файл...", participants))

	data, err := b.serverClient.Export(ctx, taskID, exporter.FormatXLSX, dataset)
	if err != nil {
		b.logger.Error("failed to export xlsx", slog.String("task_id", taskID), slog.String("error", err.Error()))
		b.reply(chatID, "Не удалось сгенерировать Excel-файл.")
		return
	}

	msg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("whatsapp_ranking_%s.xlsx", time.Now().Format("2006-01-02_15-04-05")),
		Bytes: data,
	})
	msg.Caption = fmt.Sprintf("Анализ завершен. Участников: %d.", participants)
	b.sendMessage(msg)
}

// sendTextResult отправляет рейтинг моноширинной таблицей в HTML-разметке.
func (b *Bot) sendTextResult(chatID int64, ranking domain.RankingData) {
	rows := exporter.Rows(ports.ExportDocument{Ranking: ranking})
	widths := exporter.TableWidths{
		Position: b.cfg.Render.Position,
		Name:     b.cfg.Render.Name,
		Count:    b.cfg.Render.Count,
		Share:    b.cfg.Render.Share,
	}

	var sb strings.Builder
	sb.WriteString(html.EscapeString(summaryLine(ranking)))
	sb.WriteString("\n<pre><code>")
	sb.WriteString(exporter.RenderTable(rows, widths, html.EscapeString))
	sb.WriteString("</code></pre>")

	text := sb.String()
	if len([]rune(text)) > maxMessageChars {
		b.logger.Warn("сгенерированный текст слишком длинный, отправка в виде файла", "length", len(text))
		b.sendResultAsTextFile(chatID, ranking, rows, widths)
		return
	}

	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	b.sendMessage(reply)
}

// sendResultAsTextFile отправляет таблицу рейтинга текстовым файлом.
func (b *Bot) sendResultAsTextFile(chatID int64, ranking domain.RankingData, rows []exporter.RankingRow, widths exporter.TableWidths) {
	var buf bytes.Buffer
	buf.WriteString(summaryLine(ranking))
	buf.WriteString("\n\n")
	buf.WriteString(exporter.RenderTable(rows, widths, nil))

	msg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("whatsapp_ranking_%s.txt", time.Now().Format("2006-01-02_15-04-05")),
		Bytes: buf.Bytes(),
	})
	msg.Caption = fmt.Sprintf("Анализ завершен. Участников: %d. Рейтинг слишком большой для одного сообщения, поэтому он прикреплен в виде файла.", len(rows))
	b.sendMessage(msg)
}

func summaryLine(ranking domain.RankingData) string {
	return fmt.Sprintf("Период: %s .. %s. Сообщений: %d из %d, участников: %d.",
		ranking.DateRange.Start, ranking.DateRange.End,
		ranking.FilteredMessages, ranking.TotalMessages, len(ranking.Ranking))
}

func describeFailures(failures []FailureDTO) string {
	var sb strings.Builder
	for _, f := range failures {
		fmt.Fprintf(&sb, "• %s: %s\n", f.FileName, f.Error)
	}
	return sb.String()
}

// parseCaptionFilter читает период из подписи к файлу: одна или две даты
// YYYY-MM-DD, "-" на месте открытой границы.
func parseCaptionFilter(caption string) (domain.DateFilter, error) {
	fields := strings.Fields(caption)
	if len(fields) == 0 {
		return domain.DateFilter{}, nil
	}
	if len(fields) > 2 {
		return domain.DateFilter{}, errors.New("В подписи ожидается не больше двух дат в формате YYYY-MM-DD.")
	}

	var bounds [2]string
	for i, f := range fields {
		if f == "-" {
			continue
		}
		if _, ok := parser.ParseISODate(f); !ok {
			return domain.DateFilter{}, fmt.Errorf("Не удалось разобрать дату %q: ожидается формат YYYY-MM-DD.", f)
		}
		bounds[i] = f
	}
	if bounds[0] != "" && bounds[1] != "" && bounds[0] > bounds[1] {
		return domain.DateFilter{}, errors.New("Начало периода позже его конца.")
	}
	return domain.DateFilter{StartDate: bounds[0], EndDate: bounds[1]}, nil
}
