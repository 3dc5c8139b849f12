package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"whatsapp-ranking/internal/core/privacy"
)

// MaskerHandler - обертка для slog.Handler, которая маскирует в логах
// токены ботов и номера телефонов.
type MaskerHandler struct {
	handler slog.Handler
}

// NewMaskerHandler создает новый обработчик с маскировкой
func NewMaskerHandler(handler slog.Handler) *MaskerHandler {
	return &MaskerHandler{
		handler: handler,
	}
}

// маскируем токены в формате botID:token, где ID - числа, token - буквенно-цифровой
var telegramTokenRegex = regexp.MustCompile(`(\bbot\d+:[A-Za-z0-9_-]{35,})`)

// Номер в международном формате, как WhatsApp пишет отправителей вне контактов.
var phoneCandidateRegex = regexp.MustCompile(`\+\d[\d\s()-]{6,}\d`)

// maskTokens заменяет найденные токены на маску
func maskTokens(text string) string {
	return telegramTokenRegex.ReplaceAllString(text, "bot***:***masked-token***")
}

// maskPhones прогоняет похожие на номер фрагменты через классификатор приватности.
func maskPhones(text string) string {
	if !strings.Contains(text, "+") {
		return text
	}
	return phoneCandidateRegex.ReplaceAllStringFunc(text, func(candidate string) string {
		if !privacy.IsPhoneNumber(candidate) {
			return candidate
		}
		return privacy.MaskPhoneNumber(candidate)
	})
}

func maskAll(text string) string {
	return maskPhones(maskTokens(text))
}

// Enabled реализует интерфейс slog.Handler
func (h *MaskerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle реализует интерфейс slog.Handler
func (h *MaskerHandler) Handle(ctx context.Context, record slog.Record) error {
	// Новая запись без атрибутов: их добавляем уже замаскированными.
	r := slog.NewRecord(record.Time, record.Level, maskAll(record.Message), record.PC)

	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(slog.Attr{
			Key:   a.Key,
			Value: maskAttributeValue(a.Value),
		})
		return true
	})

	return h.handler.Handle(ctx, r)
}

// WithAttrs реализует интерфейс slog.Handler
func (h *MaskerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		maskedAttrs[i] = slog.Attr{
			Key:   attr.Key,
			Value: maskAttributeValue(attr.Value),
		}
	}
	return &MaskerHandler{
		handler: h.handler.WithAttrs(maskedAttrs),
	}
}

// WithGroup реализует интерфейс slog.Handler
func (h *MaskerHandler) WithGroup(name string) slog.Handler {
	return &MaskerHandler{
		handler: h.handler.WithGroup(name),
	}
}

// maskAttributeValue рекурсивно маскирует значения атрибутов
func maskAttributeValue(value slog.Value) slog.Value {
	switch value.Kind() {
	case slog.KindString:
		return slog.StringValue(maskAll(value.String()))
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			return slog.StringValue(maskAll(err.Error()))
		}
		return value
	case slog.KindGroup:
		group := value.Group()
		maskedGroup := make([]slog.Attr, len(group))
		for i, attr := range group {
			maskedGroup[i] = slog.Attr{
				Key:   attr.Key,
				Value: maskAttributeValue(attr.Value),
			}
		}
		return slog.GroupValue(maskedGroup...)
	default:
		return value
	}
}

// NewMaskedLogger создает новый экземпляр slog.Logger с маскировкой
func NewMaskedLogger(handler slog.Handler) *slog.Logger {
	return slog.New(NewMaskerHandler(handler))
}

// ParseLevel переводит уровень из конфигурации в slog.Level. Неизвестное значение — info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New собирает маскирующий логгер: format "json" или текстовый по умолчанию.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return NewMaskedLogger(h)
}
