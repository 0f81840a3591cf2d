// Точка входа filedrop — сервиса эфемерного обмена файлами.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/arturkryukov/filedrop/internal/api/handlers"
	"github.com/arturkryukov/filedrop/internal/config"
	"github.com/arturkryukov/filedrop/internal/server"
	"github.com/arturkryukov/filedrop/internal/service"
	"github.com/arturkryukov/filedrop/internal/storage/blobstore"
	"github.com/arturkryukov/filedrop/internal/storage/idgen"
	"github.com/arturkryukov/filedrop/internal/storage/index"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("filedrop запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
		slog.String("ttl", cfg.TTL.String()),
		slog.Int64("max_file_size", cfg.MaxFileSize),
	)

	// Проверка источника энтропии: лучше упасть на старте,
	// чем на первой загрузке
	_ = idgen.New()

	// --- Инициализация компонентов ---

	// 1. Файловое хранилище
	store, err := blobstore.New(cfg.DataDir, cfg.MaxFileSize)
	if err != nil {
		logger.Error("Ошибка инициализации BlobStore", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Индекс живёт только в памяти: файлы предыдущего запуска
	// недостижимы, зачищаем их
	purged, err := store.Purge()
	if err != nil {
		logger.Error("Ошибка зачистки директории данных", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if purged > 0 {
		logger.Info("Осиротевшие файлы удалены", slog.Int("count", purged))
	}

	// 2. In-memory индекс дескрипторов
	idx := index.New(logger)

	// 3. Планировщик истечения
	sched := service.NewExpiryScheduler(cfg.ReclaimRetryInterval, cfg.ReclaimMaxRetries, logger)

	// 4. Фасад операций
	transfer := service.NewTransfer(store, idx, sched, cfg.TTL, logger)

	// 5. Handlers
	filesHandler := handlers.NewFilesHandler(transfer)
	systemHandler := handlers.NewSystemHandler(idx)
	healthHandler := handlers.NewHealthHandler(cfg.DataDir)

	// 6. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, filesHandler, systemHandler, healthHandler)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Остановка фоновых таймеров ---
	sched.Stop()

	logger.Info("filedrop остановлен")
}
