package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// ColumnWidths определяет ширину колонок для текстового вывода.
type ColumnWidths struct {
	Position int `yaml:"position"`
	Name     int `yaml:"name"`
	Count    int `yaml:"count"`
	Share    int `yaml:"share"`
}

// BotConfig содержит конфигурацию для Telegram-бота
type BotConfig struct {
	Token                  string       `yaml:"token"`
	BackendURL             string       `yaml:"backend_url"`
	PollingIntervalSeconds int          `yaml:"polling_interval_seconds"`
	ExcelThreshold         int          `yaml:"excel_threshold"`
	MaxFilesPerMessage     int          `yaml:"max_files_per_message"`
	FileBatchTimeoutSecs   int          `yaml:"file_batch_timeout_seconds"`
	HTTPTimeoutSeconds     int          `yaml:"http_timeout_seconds"`
	MaxFileSizeMB          int          `yaml:"max_file_size_mb"`
	Render                 ColumnWidths `yaml:"render"`
}

// LoggingConfig содержит настройки логирования бота.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config является оберткой для соответствия структуре YAML файла.
type Config struct {
	Bot     BotConfig     `yaml:"bot"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoadBotConfig загружает конфигурацию бота из указанного файла.
// Токен можно передать через переменную окружения TELEGRAM_BOT_TOKEN.
func LoadBotConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot config file %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot config: %w", err)
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	setDefault := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}

	b := &c.Bot
	setDefault(&b.PollingIntervalSeconds, DefaultPollingIntervalSeconds)
	setDefault(&b.ExcelThreshold, DefaultExcelThreshold)
	setDefault(&b.MaxFilesPerMessage, DefaultMaxFilesPerMessage)
	setDefault(&b.FileBatchTimeoutSecs, DefaultFileBatchTimeoutSecs)
	setDefault(&b.HTTPTimeoutSeconds, DefaultHTTPTimeoutSeconds)
	setDefault(&b.MaxFileSizeMB, DefaultMaxFileSizeMB)
	setDefault(&b.Render.Position, DefaultPositionColumnWidth)
	setDefault(&b.Render.Name, DefaultNameColumnWidth)
	setDefault(&b.Render.Count, DefaultCountColumnWidth)
	setDefault(&b.Render.Share, DefaultShareColumnWidth)

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Validate проверяет корректность конфигурации бота.
func (c *BotConfig) Validate() error {
	if c.Token == "" || c.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
		return fmt.Errorf("bot.token is not configured")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("bot.backend_url cannot be empty")
	}
	if c.PollingIntervalSeconds <= 0 {
		return fmt.Errorf("bot.polling_interval_seconds must be positive")
	}
	if c.ExcelThreshold <= 0 {
		return fmt.Errorf("bot.excel_threshold must be positive")
	}
	if c.MaxFilesPerMessage <= 0 {
		return fmt.Errorf("bot.max_files_per_message must be positive")
	}
	if c.FileBatchTimeoutSecs <= 0 {
		return fmt.Errorf("bot.file_batch_timeout_seconds must be positive")
	}
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("bot.max_file_size_mb must be positive")
	}
	return nil
}

// ValidateFull проверяет всю конфигурацию, включая логирование.
func (c *Config) ValidateFull() error {
	if err := c.Bot.Validate(); err != nil {
		return err
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}
	return nil
}
