package source

import (
	"fmt"
	"os"
	"path/filepath"

	"whatsapp-ranking/internal/ports"
)

// CliSource реализует интерфейс DataSource для чтения экспорта из файла,
// указанного в командной строке.
type CliSource struct {
	filePath string
}

// NewCliSource создает новый экземпляр CliSource.
func NewCliSource(filePath string) ports.DataSource {
	return &CliSource{filePath: filePath}
}

// Name возвращает базовое имя файла.
func (s *CliSource) Name() string {
	return filepath.Base(s.filePath)
}

// Fetch читает файл по указанному пути и возвращает его содержимое.
func (s *CliSource) Fetch() ([]byte, error) {
	if s.filePath == "" {
		return nil, fmt.Errorf("не указан путь к файлу")
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", s.filePath, err)
	}

	return data, nil
}
