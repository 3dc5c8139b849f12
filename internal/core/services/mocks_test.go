package services

import (
	"whatsapp-ranking/internal/domain"
)

// MockDataSource - мок-реализация DataSource для тестирования
type MockDataSource struct {
	FileName  string
	FetchFunc func() ([]byte, error)
}

// Fetch реализует интерфейс DataSource
func (m *MockDataSource) Fetch() ([]byte, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc()
	}
	return nil, nil
}

// Name реализует интерфейс DataSource
func (m *MockDataSource) Name() string {
	return m.FileName
}

// MockArchiveExtractor - мок-реализация ArchiveExtractor для тестирования
type MockArchiveExtractor struct {
	ExtractFunc func(data []byte) (string, error)
	calls       int
}

// Extract реализует интерфейс ArchiveExtractor
func (m *MockArchiveExtractor) Extract(data []byte) (string, error) {
	m.calls++
	if m.ExtractFunc != nil {
		return m.ExtractFunc(data)
	}
	return "", nil
}

// progressRecorder собирает уведомления о прогрессе
type progressRecorder struct {
	events []domain.Progress
}

func (r *progressRecorder) OnProgress(p domain.Progress) {
	r.events = append(r.events, p)
}

func (r *progressRecorder) stages() []domain.Stage {
	out := make([]domain.Stage, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Stage)
	}
	return out
}
