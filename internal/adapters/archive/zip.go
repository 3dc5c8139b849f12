package archive

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zip"

	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/ports"
)

const chatLogExtension = ".txt"

// Подстроки имени, по которым среди нескольких .txt выбирается файл переписки.
var chatNameHints = []string{"chat", "conversa", "whatsapp"}

// ZipExtractor реализует интерфейс ArchiveExtractor для ZIP-экспортов WhatsApp.
type ZipExtractor struct {
	maxPayloadBytes int64
}

// NewZipExtractor создает новый экземпляр ZipExtractor.
// maxPayloadBytes ограничивает размер распакованного лога, 0 — без ограничений.
func NewZipExtractor(maxPayloadBytes int64) ports.ArchiveExtractor {
	return &ZipExtractor{maxPayloadBytes: maxPayloadBytes}
}

// Extract находит в архиве лог переписки и возвращает его текст.
func (e *ZipExtractor) Extract(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open zip archive: %w", err)
	}

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}

	idx, err := SelectChatEntry(names, func(i int) bool {
		return r.File[i].FileInfo().IsDir()
	})
	if err != nil {
		return "", err
	}

	target := r.File[idx]
	content, err := e.read(target)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%s: %w", target.Name, domain.ErrEmptyPayload)
	}
	return content, nil
}

func (e *ZipExtractor) read(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
	}
	defer rc.Close()

	var src io.Reader = rc
	if e.maxPayloadBytes > 0 {
		src = io.LimitReader(rc, e.maxPayloadBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("failed to decompress %s: %w", f.Name, err)
	}
	if e.maxPayloadBytes > 0 && int64(len(data)) > e.maxPayloadBytes {
		return "", fmt.Errorf("%s: %w", f.Name, domain.ErrPayloadTooLarge)
	}
	return string(data), nil
}

// SelectChatEntry выбирает лог переписки среди записей архива в порядке их
// перечисления и возвращает индекс записи. Кандидаты — не каталоги с
// расширением .txt. Единственный кандидат берётся сразу; из нескольких
// предпочитается первый с подсказкой в имени, иначе первый по порядку.
// Записи с одинаковыми именами различаются по индексу.
func SelectChatEntry(names []string, isDir func(i int) bool) (int, error) {
	var candidates []int
	for i, name := range names {
		if isDir(i) || strings.HasSuffix(name, "/") {
			continue
		}
		if strings.HasSuffix(strings.ToLower(name), chatLogExtension) {
			candidates = append(candidates, i)
		}
	}

	switch len(candidates) {
	case 0:
		return -1, domain.ErrNoTextPayload
	case 1:
		return candidates[0], nil
	}

	for _, i := range candidates {
		lower := strings.ToLower(names[i])
		for _, hint := range chatNameHints {
			if strings.Contains(lower, hint) {
				return i, nil
			}
		}
	}
	return candidates[0], nil
}

// IsZip проверяет по содержимому, что данные являются ZIP-контейнером.
// Форматы на основе ZIP (например, .docx) тоже считаются ZIP.
func IsZip(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}
