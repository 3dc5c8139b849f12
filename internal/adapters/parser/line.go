package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"whatsapp-ranking/internal/domain"
)

// Заголовок сообщения экспорта WhatsApp (pt-BR): "d/m/yyyy hh:mm - Отправитель: текст".
var messageHeaderRegex = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4}) \d{2}:\d{2} - (.*?): `)

var datePresenceRegex = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)

// ParseLine проверяет, открывает ли строка новое сообщение, и извлекает дату и отправителя.
// Строки-продолжения и служебные уведомления не совпадают с шаблоном, и тогда
// возвращается false без ошибки.
func ParseLine(line string) (domain.ParsedMessage, bool) {
	m := messageHeaderRegex.FindStringSubmatch(line)
	if m == nil || m[4] == "" {
		return domain.ParsedMessage{}, false
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	date, known := CivilDate(year, month, day)

	return domain.ParsedMessage{
		Date:      date,
		DateKnown: known,
		SenderRaw: strings.TrimSpace(m[4]),
	}, true
}

// SplitLines разбивает лог на строки по '\n', убирая завершающий '\r'.
func SplitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// LooksLikeExport проверяет грубые структурные признаки экспорта:
// разделитель " - " и хотя бы одну дату вида d/m/yyyy.
func LooksLikeExport(content string) bool {
	return strings.Contains(content, " - ") && datePresenceRegex.MatchString(content)
}

// CivilDate строит календарную дату (полночь UTC).
// Значения вне календаря (месяц 13, 31 февраля) не переносятся на следующий
// месяц, а помечаются как неизвестная дата.
func CivilDate(year, month, day int) (time.Time, bool) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// ParseISODate разбирает дату вида YYYY-MM-DD.
func ParseISODate(s string) (time.Time, bool) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
