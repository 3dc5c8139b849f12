package exporter

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// TableWidths — ширина колонок текстовой таблицы в знакоместах.
type TableWidths struct {
	Position int
	Name     int
	Count    int
	Share    int
}

// DefaultTableWidths подходят для терминала шириной 80 колонок.
var DefaultTableWidths = TableWidths{Position: 4, Name: 40, Count: 10, Share: 8}

var tableHeaders = [4]string{"#", "Participante", "Mensagens", "%"}

// RenderTable рисует рейтинг псевдографикой. Длинные имена переносятся на
// следующие строки, колонка не бывает уже своего заголовка. escape
// применяется к ячейке после выравнивания (nil — без экранирования).
func RenderTable(rows []RankingRow, widths TableWidths, escape func(string) string) string {
	if escape == nil {
		escape = func(s string) string { return s }
	}
	cols := [4]int{widths.Position, widths.Name, widths.Count, widths.Share}
	for i, h := range tableHeaders {
		cols[i] = max(cols[i], runewidth.StringWidth(h))
	}

	var sb strings.Builder
	writeRow := func(cells [4]string) {
		for i, cell := range cells {
			sb.WriteString("| ")
			sb.WriteString(escape(cell))
			sb.WriteString(generatePadding(cell, cols[i]))
			sb.WriteString(" ")
		}
		sb.WriteString("|\n")
	}

	writeRow(tableHeaders)
	for _, w := range cols {
		sb.WriteString("|")
		sb.WriteString(strings.Repeat("-", w+2))
	}
	sb.WriteString("|\n")

	for _, row := range rows {
		name := strings.ReplaceAll(strings.ToValidUTF8(row.Name, ""), "\n", " ")
		nameLines := WrapString(name, cols[1])
		for i, line := range nameLines {
			cells := [4]string{"", line, "", ""}
			if i == 0 {
				cells[0] = fmt.Sprintf("%d", row.Position)
				cells[2] = fmt.Sprintf("%d", row.MessageCount)
				cells[3] = FormatShare(row.Share, 1)
			}
			writeRow(cells)
		}
	}
	return sb.String()
}

// generatePadding вычисляет отступ для строки с учетом поправки на CJK-символы.
func generatePadding(s string, colWidth int) string {
	paddingNeeded := colWidth - runewidth.StringWidth(s)

	// Некоторые клиенты рисуют CJK-символы чуть уже двух колонок.
	hasCJK := false
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			hasCJK = true
			break
		}
	}

	if hasCJK && paddingNeeded >= 0 {
		paddingNeeded++
	}

	if paddingNeeded > 0 {
		return strings.Repeat(" ", paddingNeeded)
	}
	return ""
}

// WrapString переносит строку по ширине с учётом runewidth. Сначала
// переносит по пробелам, слово длиннее ширины режется посередине.
func WrapString(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var currentLine strings.Builder
	for _, word := range words {
		wordWidth := runewidth.StringWidth(word)

		if wordWidth > width {
			if currentLine.Len() > 0 {
				lines = append(lines, currentLine.String())
				currentLine.Reset()
			}
			lines = append(lines, breakRunes(word, width)...)
			continue
		}

		lineLen := runewidth.StringWidth(currentLine.String())
		if lineLen > 0 && lineLen+1+wordWidth > width {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
		}

		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}
	return lines
}

// breakRunes режет слово на куски не шире width.
func breakRunes(word string, width int) []string {
	var parts []string
	runes := []rune(word)
	for len(runes) > 0 {
		i := 0
		currentWidth := 0
		for i < len(runes) {
			rw := runewidth.RuneWidth(runes[i])
			if currentWidth+rw > width && i > 0 {
				break
			}
			currentWidth += rw
			i++
		}
		parts = append(parts, string(runes[:i]))
		runes = runes[i:]
	}
	return parts
}
