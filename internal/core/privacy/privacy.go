// Package privacy скрывает номера телефонов, которыми WhatsApp подписывает
// участников, отсутствующих в контактах.
package privacy

import (
	"strings"
	"unicode"
)

const (
	minPhoneDigits = 8
	maxPhoneDigits = 15
	visibleDigits  = 4
)

// isPhoneSeparator — символы, которые допустимы в записи номера и отбрасываются при проверке.
func isPhoneSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == '-' || r == '(' || r == ')' || r == '+'
}

// digitsOf возвращает цифры номера, если строка состоит только из цифр и разделителей.
func digitsOf(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case isPhoneSeparator(r):
		default:
			return "", false
		}
	}
	return b.String(), b.Len() > 0
}

// IsPhoneNumber сообщает, похожа ли строка на номер телефона: после удаления
// пробелов, дефисов, скобок и плюса остаются только цифры, от 8 до 15 штук.
func IsPhoneNumber(name string) bool {
	digits, ok := digitsOf(name)
	if !ok {
		return false
	}
	return len(digits) >= minPhoneDigits && len(digits) <= maxPhoneDigits
}

// MaskPhoneNumber оставляет видимыми последние 4 цифры, остальные заменяет
// звёздочками по одной на цифру. Ведущий '+' сохраняется. Если цифр 4 или
// меньше, строка возвращается без изменений.
func MaskPhoneNumber(phone string) string {
	digits, _ := digitsOf(phone)
	if len(digits) <= visibleDigits {
		return phone
	}

	var b strings.Builder
	if hasLeadingPlus(phone) {
		b.WriteByte('+')
	}
	b.WriteString(strings.Repeat("*", len(digits)-visibleDigits))
	b.WriteString(digits[len(digits)-visibleDigits:])
	return b.String()
}

// hasLeadingPlus сообщает, что '+' стоит первым после пробелов, дефисов и скобок.
func hasLeadingPlus(phone string) bool {
	for _, r := range phone {
		if unicode.IsSpace(r) || r == '-' || r == '(' || r == ')' {
			continue
		}
		return r == '+'
	}
	return false
}

// ProcessName подготавливает имя отправителя к выводу: номера телефонов
// маскируются, сохранённые имена возвращаются как есть (без крайних пробелов).
func ProcessName(raw string) string {
	name := strings.TrimSpace(raw)
	if IsPhoneNumber(name) {
		return MaskPhoneNumber(name)
	}
	return name
}
