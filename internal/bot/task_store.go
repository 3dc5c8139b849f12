package bot

import (
	"sync"
	"time"
)

type activeTask struct {
	taskID    string
	startedAt time.Time
}

// TaskStore хранит активную задачу бэкенда для каждого чата Telegram.
// В одном чате одновременно выполняется не больше одной задачи.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[int64]activeTask
}

// NewTaskStore создает новый экземпляр TaskStore.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[int64]activeTask),
	}
}

// Set сохраняет задачу чата, заменяя предыдущую.
func (s *TaskStore) Set(chatID int64, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[chatID] = activeTask{taskID: taskID, startedAt: time.Now()}
}

// Get возвращает задачу чата.
func (s *TaskStore) Get(chatID int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[chatID]
	return t.taskID, ok
}

// Age возвращает время, прошедшее с запуска задачи чата.
func (s *TaskStore) Age(chatID int64) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[chatID]
	if !ok {
		return 0, false
	}
	return time.Since(t.startedAt), true
}

// Delete удаляет задачу для указанного chatID.
func (s *TaskStore) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, chatID)
}
