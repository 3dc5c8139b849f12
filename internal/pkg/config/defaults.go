package config

import "time"

// Default values for configuration.
const (
	// Server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxUploadSizeMB = 50

	// Processing defaults
	DefaultBatchLimit     = 10
	DefaultMaxExtractedMB = 200
	DefaultTaskTimeout    = 300 * time.Second
	DefaultTaskTTL        = 24 * time.Hour

	// Cache defaults
	DefaultCacheDriver     = "memory"
	DefaultCachePath       = "data/cache.db"
	DefaultRecordTTL       = 7 * 24 * time.Hour
	DefaultResultTTL       = 60 * time.Minute
	DefaultCleanupInterval = 1 * time.Hour

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Поддерживаемые драйверы кэша.
const (
	CacheDriverMemory = "memory"
	CacheDriverSQLite = "sqlite"
)
