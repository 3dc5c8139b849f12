package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"whatsapp-ranking/internal/adapters/archive"
	"whatsapp-ranking/internal/cache"
	"whatsapp-ranking/internal/core/services"
	"whatsapp-ranking/internal/log"
	"whatsapp-ranking/internal/pkg/config"
	"whatsapp-ranking/internal/ports"
	"whatsapp-ranking/internal/server"
	"whatsapp-ranking/internal/server/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера
	logger := log.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	// 3. Валидация конфигурации (после инициализации логгера)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// 4. Хранилища кэша
	recordStore, closeStore, err := openRecordStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	records := cache.NewRecordCache(recordStore, logger.With("component", "record_cache")).WithExpiry(cfg.Cache.RecordTTL)
	results := cache.NewMemoryStore(cfg.Cache.ResultTTL)
	results.StartCleanupTicker(appCtx, cfg.Cache.CleanupInterval)

	// 5. Инициализация зависимостей
	processing := services.NewProcessingService(
		archive.NewZipExtractor(cfg.MaxExtractedBytes()),
		services.NewAggregationService(),
		services.WithBatchLimit(cfg.Processing.BatchLimit),
		services.WithLogger(logger.With("component", "processing")),
	)
	processor := usecase.NewProcessChatUseCase(
		processing,
		services.NewMergeService(),
		services.NewComparisonService(),
		records,
		results,
		logger.With("component", "usecase"),
	)

	// 6. Создание HTTP-сервера
	srv, err := server.New(appCtx, cfg, processor, server.NewTaskStore(), logger.With("component", "server"))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// 7. Запуск сервера и graceful shutdown
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		slog.Info("Starting server", "addr", cfg.Address(), "cache_driver", cfg.Cache.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		slog.Info("Signal received, shutting down...")
	case <-serverDone:
		return fmt.Errorf("server stopped unexpectedly")
	}

	// Сначала останавливаем фоновые тикеры очистки
	appCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	<-serverDone
	slog.Info("Application exited gracefully")
	return nil
}

// openRecordStore открывает хранилище записей кэша выбранного драйвера.
func openRecordStore(cfg *config.Config) (ports.KVStore, func(), error) {
	switch cfg.Cache.Driver {
	case config.CacheDriverSQLite:
		store, err := cache.OpenSQLiteStore(cfg.Cache.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite cache: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Error("failed to close sqlite cache", "error", err)
			}
		}, nil
	default:
		return cache.NewMemoryStore(0), func() {}, nil
	}
}
