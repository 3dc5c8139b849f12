package domain

import (
	"errors"
	"fmt"
)

// Ошибки обработки файлов. Все они касаются одной единицы работы и не
// должны останавливать остальной пакет.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type: expected .txt or .zip")
	ErrNoTextPayload       = errors.New("no .txt chat log found in archive")
	ErrEmptyPayload        = errors.New("chat log is empty")
	ErrPayloadTooLarge     = errors.New("chat log exceeds size limit")
	ErrUnrecognizedFormat  = errors.New("file does not look like a WhatsApp export")
	ErrNoValidMessages     = errors.New("no valid messages found")
	ErrBatchLimitExceeded  = errors.New("too many files in one batch")
	ErrNoDatasets          = errors.New("no file was processed successfully")
)

// FileError связывает ошибку обработки с именем файла.
type FileError struct {
	FileName string `json:"fileName"`
	Err      error  `json:"-"`
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.FileName, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// NewFileError оборачивает err, добавляя имя файла.
func NewFileError(fileName string, err error) *FileError {
	return &FileError{FileName: fileName, Err: err}
}
