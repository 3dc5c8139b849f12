package source

import (
	"fmt"

	"whatsapp-ranking/internal/ports"
)

// MemorySource реализует интерфейс DataSource для файла, уже загруженного
// в память (например, из multipart-формы или документа Telegram).
type MemorySource struct {
	name string
	data []byte
}

// NewMemorySource создает новый экземпляр MemorySource.
func NewMemorySource(name string, data []byte) ports.DataSource {
	return &MemorySource{name: name, data: data}
}

// Name возвращает исходное имя файла.
func (s *MemorySource) Name() string {
	return s.name
}

// Fetch возвращает данные из памяти.
func (s *MemorySource) Fetch() ([]byte, error) {
	if s.data == nil {
		return nil, fmt.Errorf("data not set")
	}

	// Возвращаем копию данных, чтобы избежать изменений оригинальных данных
	dataCopy := make([]byte, len(s.data))
	copy(dataCopy, s.data)

	return dataCopy, nil
}
