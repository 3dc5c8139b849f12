package server

import "whatsapp-ranking/internal/domain"

// Pagination описывает страницу рейтинга.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
}

// RankingEntryDTO — строка рейтинга с позицией.
type RankingEntryDTO struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
}

// RankingPageResponse — ответ /ranking.
type RankingPageResponse struct {
	Dataset          string            `json:"dataset"`
	TotalMessages    int               `json:"total_messages"`
	FilteredMessages int               `json:"filtered_messages"`
	DateRange        domain.DateRange  `json:"date_range"`
	Pagination       Pagination        `json:"pagination"`
	Data             []RankingEntryDTO `json:"data"`
}

// DatasetSummary — набор без исходного текста.
type DatasetSummary struct {
	ID          string             `json:"id"`
	FileName    string             `json:"file_name"`
	FileSize    int64              `json:"file_size"`
	UploadedAt  int64              `json:"uploaded_at"`
	RankingData domain.RankingData `json:"ranking_data"`
}

// TaskResultResponse — ответ /result.
type TaskResultResponse struct {
	TaskID       string              `json:"task_id"`
	Filter       domain.DateFilter   `json:"filter"`
	TotalFiles   int                 `json:"total_files"`
	Datasets     []DatasetSummary    `json:"datasets"`
	Merged       *domain.RankingData `json:"merged,omitempty"`
	MergeOptions domain.MergeOptions `json:"merge_options"`
	Failures     []FileFailure       `json:"failures,omitempty"`
}

// TaskStatusResponse — ответ /tasks/{id}.
type TaskStatusResponse struct {
	TaskID       string          `json:"task_id"`
	Status       TaskStatus      `json:"status"`
	Progress     domain.Progress `json:"progress"`
	ErrorMessage string          `json:"error_message"`
	Datasets     int             `json:"datasets"`
	Failures     []FileFailure   `json:"failures,omitempty"`
}

// MergeRequest — тело запроса /merge.
type MergeRequest struct {
	IncludeFilePrefix bool `json:"includeFilePrefix"`
	MergeParticipants bool `json:"mergeParticipants"`
}

// CacheResponse — сводка сохранённой сессии.
type CacheResponse struct {
	Present    bool              `json:"present"`
	SizeBytes  int               `json:"size_bytes"`
	Timestamp  int64             `json:"timestamp,omitempty"`
	Version    string            `json:"version,omitempty"`
	Files      []string          `json:"files,omitempty"`
	DateFilter domain.DateFilter `json:"date_filter"`
	HasMerged  bool              `json:"has_merged"`
}

func summarize(task Task) TaskResultResponse {
	resp := TaskResultResponse{
		TaskID:       task.ID,
		Filter:       task.Filter,
		TotalFiles:   len(task.Datasets),
		Datasets:     make([]DatasetSummary, 0, len(task.Datasets)),
		Merged:       task.Merged,
		MergeOptions: task.MergeOptions,
		Failures:     task.Failures,
	}
	for _, ds := range task.Datasets {
		resp.Datasets = append(resp.Datasets, DatasetSummary{
			ID:          ds.ID,
			FileName:    ds.FileName,
			FileSize:    ds.FileSize,
			UploadedAt:  ds.UploadedAt,
			RankingData: ds.RankingData,
		})
	}
	return resp
}
