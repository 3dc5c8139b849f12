package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// TGBotAPIAdapter направляет журнал go-telegram-bot-api в slog.
// Библиотека пишет в лог URL запросов вместе с токеном, поэтому Logger
// должен быть создан через NewMaskedLogger.
type TGBotAPIAdapter struct {
	Logger *slog.Logger
}

// Println реализует метод интерфейса tgbotapi.BotLogger.
func (a *TGBotAPIAdapter) Println(v ...interface{}) {
	a.log(strings.TrimSpace(fmt.Sprintln(v...)))
}

// Printf реализует метод интерфейса tgbotapi.BotLogger.
func (a *TGBotAPIAdapter) Printf(format string, v ...interface{}) {
	a.log(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// log понижает до debug всё, кроме сообщений об ошибках: в обычном режиме
// библиотека сообщает только о сбоях опроса обновлений.
func (a *TGBotAPIAdapter) log(msg string) {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "error") || strings.Contains(lower, "failed") {
		a.Logger.Warn(msg)
		return
	}
	a.Logger.Debug(msg)
}
