package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"whatsapp-ranking/internal/core/services"
	"whatsapp-ranking/internal/domain"
)

// TaskStatus представляет статус задачи обработки
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// FileFailure — ошибка обработки одного файла пакета.
type FileFailure struct {
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

// Task представляет собой одну задачу обработки
type Task struct {
	ID           string
	Status       TaskStatus
	Progress     domain.Progress
	Datasets     []domain.FileDataset
	Merged       *domain.RankingData
	MergeOptions domain.MergeOptions
	Filter       domain.DateFilter
	Failures     []FileFailure
	ErrorMessage string
	CreatedAt    time.Time
	ExpiresAt    time.Time // Для автоматической очистки
}

// TaskStore управляет хранением и извлечением задач
type TaskStore struct {
	tasks map[string]*Task
	mutex sync.RWMutex
}

// NewTaskStore создает новый экземпляр TaskStore
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*Task),
	}
}

// CreateTask создает новую задачу со статусом 'pending'
func (ts *TaskStore) CreateTask(taskID string, ttl time.Duration, filter domain.DateFilter) {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	now := time.Now()
	ts.tasks[taskID] = &Task{
		ID:        taskID,
		Status:    TaskStatusPending,
		Filter:    filter,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (ts *TaskStore) update(taskID string, fn func(*Task)) error {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	task, exists := ts.tasks[taskID]
	if !exists {
		return fmt.Errorf("задача с ID %s не найдена", taskID)
	}
	fn(task)
	return nil
}

// UpdateTaskStatus обновляет статус задачи
func (ts *TaskStore) UpdateTaskStatus(taskID string, status TaskStatus) error {
	return ts.update(taskID, func(t *Task) { t.Status = status })
}

// UpdateTaskProgress сохраняет последнюю контрольную точку обработки
func (ts *TaskStore) UpdateTaskProgress(taskID string, p domain.Progress) error {
	return ts.update(taskID, func(t *Task) { t.Progress = p })
}

// UpdateTaskResult обновляет результат и статус задачи на 'completed'
func (ts *TaskStore) UpdateTaskResult(taskID string, result services.BatchResult) error {
	return ts.update(taskID, func(t *Task) {
		t.Status = TaskStatusCompleted
		t.Datasets = result.Result.Individual
		t.Merged = result.Result.Merged
		t.Failures = toFailures(result.Failures)
	})
}

// UpdateTaskError обновляет сообщение об ошибке и статус задачи на 'failed'
func (ts *TaskStore) UpdateTaskError(taskID string, errorMessage string, failures []*domain.FileError) error {
	return ts.update(taskID, func(t *Task) {
		t.Status = TaskStatusFailed
		t.ErrorMessage = errorMessage
		t.Failures = toFailures(failures)
	})
}

// ReplaceDatasets подменяет наборы после перефильтрации. Объединённый
// рейтинг при этом сбрасывается: он построен по старому периоду.
func (ts *TaskStore) ReplaceDatasets(taskID string, datasets []domain.FileDataset, filter domain.DateFilter) error {
	return ts.update(taskID, func(t *Task) {
		t.Datasets = datasets
		t.Filter = filter
		t.Merged = nil
	})
}

// SetMerged сохраняет объединённый рейтинг задачи
func (ts *TaskStore) SetMerged(taskID string, merged domain.RankingData, opts domain.MergeOptions) error {
	return ts.update(taskID, func(t *Task) {
		t.Merged = &merged
		t.MergeOptions = opts
	})
}

// GetTask возвращает копию задачи по ее ID
func (ts *TaskStore) GetTask(taskID string) (Task, error) {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	task, exists := ts.tasks[taskID]
	if !exists {
		return Task{}, fmt.Errorf("задача с ID %s не найдена", taskID)
	}
	return *task, nil
}

// CleanupExpired удаляет просроченные задачи из хранилища
func (ts *TaskStore) CleanupExpired() {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	now := time.Now()
	for taskID, task := range ts.tasks {
		if now.After(task.ExpiresAt) {
			delete(ts.tasks, taskID)
		}
	}
}

// StartCleanupTicker запускает тикер для периодической очистки просроченных задач
func (ts *TaskStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ts.CleanupExpired()
			}
		}
	}()
}

func toFailures(errs []*domain.FileError) []FileFailure {
	if len(errs) == 0 {
		return nil
	}
	out := make([]FileFailure, 0, len(errs))
	for _, e := range errs {
		msg := ""
		if e.Err != nil {
			msg = e.Err.Error()
		}
		out = append(out, FileFailure{FileName: e.FileName, Error: msg})
	}
	return out
}
