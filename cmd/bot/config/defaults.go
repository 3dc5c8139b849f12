package config

// Ширина колонок текстовой таблицы рейтинга.
const (
	DefaultPositionColumnWidth = 3
	DefaultNameColumnWidth     = 22
	DefaultCountColumnWidth    = 9
	DefaultShareColumnWidth    = 5
)

// Значения по умолчанию для остальных параметров бота.
const (
	DefaultPollingIntervalSeconds = 2
	DefaultExcelThreshold         = 40
	DefaultMaxFilesPerMessage     = 10
	DefaultFileBatchTimeoutSecs   = 3
	DefaultHTTPTimeoutSeconds     = 30
	DefaultMaxFileSizeMB          = 20

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
