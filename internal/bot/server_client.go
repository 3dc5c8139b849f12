package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"whatsapp-ranking/internal/domain"
)

// ServerAPI описывает вызовы бэкенд-сервера, которые нужны боту.
type ServerAPI interface {
	StartTask(ctx context.Context, files []DocumentFile, filter domain.DateFilter) (*StartTaskResponse, error)
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error)
	GetRanking(ctx context.Context, taskID, dataset string, page, pageSize int) (*RankingResponse, error)
	Merge(ctx context.Context, taskID string, includeFilePrefix bool) error
	Export(ctx context.Context, taskID, format, dataset string) ([]byte, error)
}

// ServerClient — клиент для взаимодействия с API бэкенд-сервера.
type ServerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewServerClient создает новый экземпляр ServerClient.
func NewServerClient(baseURL string, timeout time.Duration) *ServerClient {
	return &ServerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout, // Общий таймаут для запросов
		},
	}
}

// API-ответы
type StartTaskResponse struct {
	TaskID string `json:"task_id"`
}

// FailureDTO — ошибка обработки одного файла.
type FailureDTO struct {
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

// ProgressDTO — текущий этап обработки.
type ProgressDTO struct {
	CurrentFile int    `json:"currentFile"`
	TotalFiles  int    `json:"totalFiles"`
	FileName    string `json:"fileName"`
	Stage       string `json:"stage"`
}

type TaskStatusResponse struct {
	TaskID       string       `json:"task_id"`
	Status       string       `json:"status"`
	Progress     ProgressDTO  `json:"progress"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Datasets     int          `json:"datasets"`
	Failures     []FailureDTO `json:"failures,omitempty"`
}

// PaginationDTO представляет собой объект пагинации из ответа сервера.
type PaginationDTO struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
}

// EntryDTO — строка рейтинга из ответа сервера.
type EntryDTO struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
}

// RankingResponse — страница рейтинга.
type RankingResponse struct {
	Dataset          string           `json:"dataset"`
	TotalMessages    int              `json:"total_messages"`
	FilteredMessages int              `json:"filtered_messages"`
	DateRange        domain.DateRange `json:"date_range"`
	Pagination       PaginationDTO    `json:"pagination"`
	Data             []EntryDTO       `json:"data"`
}

// DocumentFile представляет файл для загрузки.
type DocumentFile struct {
	Name    string
	Content io.Reader
}

// StartTask отправляет один или несколько файлов на сервер для начала обработки.
func (c *ServerClient) StartTask(ctx context.Context, files []DocumentFile, filter domain.DateFilter) (*StartTaskResponse, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	for _, file := range files {
		fw, err := w.CreateFormFile("files", file.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file for %s: %w", file.Name, err)
		}
		if _, err = io.Copy(fw, file.Content); err != nil {
			return nil, fmt.Errorf("failed to copy file content for %s: %w", file.Name, err)
		}
	}
	if filter.StartDate != "" {
		_ = w.WriteField("start_date", filter.StartDate)
	}
	if filter.EndDate != "" {
		_ = w.WriteField("end_date", filter.EndDate)
	}
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/process", &b)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var result StartTaskResponse
	if err := c.do(req, http.StatusAccepted, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTaskStatus запрашивает статус задачи.
func (c *ServerClient) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/tasks/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var result TaskStatusResponse
	if err := c.do(req, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRanking запрашивает страницу рейтинга выполненной задачи.
// Пустой dataset означает выбор по умолчанию на стороне сервера.
func (c *ServerClient) GetRanking(ctx context.Context, taskID, dataset string, page, pageSize int) (*RankingResponse, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("page_size", fmt.Sprint(pageSize))
	if dataset != "" {
		q.Set("dataset", dataset)
	}
	u := fmt.Sprintf("%s/api/v1/tasks/%s/ranking?%s", c.baseURL, url.PathEscape(taskID), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var result RankingResponse
	if err := c.do(req, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Merge просит сервер построить объединённый рейтинг задачи.
func (c *ServerClient) Merge(ctx context.Context, taskID string, includeFilePrefix bool) error {
	body, _ := json.Marshal(map[string]bool{"includeFilePrefix": includeFilePrefix})
	u := fmt.Sprintf("%s/api/v1/tasks/%s/merge", c.baseURL, url.PathEscape(taskID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, http.StatusOK, nil)
}

// Export скачивает рейтинг в указанном формате.
func (c *ServerClient) Export(ctx context.Context, taskID, format, dataset string) ([]byte, error) {
	q := url.Values{}
	q.Set("format", format)
	if dataset != "" {
		q.Set("dataset", dataset)
	}
	u := fmt.Sprintf("%s/api/v1/tasks/%s/export?%s", c.baseURL, url.PathEscape(taskID), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return data, nil
}

// do выполняет запрос и декодирует JSON-ответ в out (если out не nil).
func (c *ServerClient) do(req *http.Request, wantStatus int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
