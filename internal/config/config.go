// Пакет config — загрузка и валидация конфигурации filedrop
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации filedrop.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Путь к директории хранения файлов
	DataDir string
	// Максимальный размер файла в байтах
	MaxFileSize int64
	// Срок хранения файла с момента загрузки
	TTL time.Duration
	// Разрешённый Origin для CORS ("*" — любой)
	AllowedOrigin string
	// Лимит загрузок с одного IP за окно UploadRateWindow
	UploadRateLimit int
	// Окно лимита загрузок
	UploadRateWindow time.Duration
	// Лимит скачиваний с одного IP за окно DownloadRateWindow
	DownloadRateLimit int
	// Окно лимита скачиваний
	DownloadRateWindow time.Duration
	// Интервал повторной попытки неудавшейся зачистки
	ReclaimRetryInterval time.Duration
	// Максимум повторных попыток зачистки одного файла
	ReclaimMaxRetries int
	// Путь к TLS сертификату (опционально, вместе с TLSKey)
	TLSCert string
	// Путь к TLS приватному ключу
	TLSKey string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// FD_PORT — порт HTTP-сервера (по умолчанию 8080)
	port, err := getEnvInt("FD_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("FD_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("FD_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// FD_DATA_DIR — обязательный
	cfg.DataDir, err = getEnvRequired("FD_DATA_DIR")
	if err != nil {
		return nil, err
	}

	// FD_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 2 GiB)
	maxFileSize, err := getEnvInt64("FD_MAX_FILE_SIZE", 2<<30)
	if err != nil {
		return nil, fmt.Errorf("FD_MAX_FILE_SIZE: %w", err)
	}
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("FD_MAX_FILE_SIZE: значение должно быть положительным")
	}
	cfg.MaxFileSize = maxFileSize

	// FD_TTL — срок хранения файла (по умолчанию 24h)
	cfg.TTL, err = getEnvDuration("FD_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("FD_TTL: %w", err)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("FD_TTL: значение должно быть положительным")
	}

	// FD_ALLOWED_ORIGIN — разрешённый Origin для CORS (по умолчанию "*")
	cfg.AllowedOrigin = getEnvDefault("FD_ALLOWED_ORIGIN", "*")

	// FD_UPLOAD_RATE_LIMIT / FD_UPLOAD_RATE_WINDOW — лимит загрузок с IP
	cfg.UploadRateLimit, err = getEnvInt("FD_UPLOAD_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("FD_UPLOAD_RATE_LIMIT: %w", err)
	}
	if cfg.UploadRateLimit <= 0 {
		return nil, fmt.Errorf("FD_UPLOAD_RATE_LIMIT: значение должно быть положительным")
	}
	cfg.UploadRateWindow, err = getEnvDuration("FD_UPLOAD_RATE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FD_UPLOAD_RATE_WINDOW: %w", err)
	}

	// FD_DOWNLOAD_RATE_LIMIT / FD_DOWNLOAD_RATE_WINDOW — лимит скачиваний с IP
	cfg.DownloadRateLimit, err = getEnvInt("FD_DOWNLOAD_RATE_LIMIT", 60)
	if err != nil {
		return nil, fmt.Errorf("FD_DOWNLOAD_RATE_LIMIT: %w", err)
	}
	if cfg.DownloadRateLimit <= 0 {
		return nil, fmt.Errorf("FD_DOWNLOAD_RATE_LIMIT: значение должно быть положительным")
	}
	cfg.DownloadRateWindow, err = getEnvDuration("FD_DOWNLOAD_RATE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FD_DOWNLOAD_RATE_WINDOW: %w", err)
	}

	// FD_RECLAIM_RETRY_INTERVAL — интервал повтора зачистки (по умолчанию 30s)
	cfg.ReclaimRetryInterval, err = getEnvDuration("FD_RECLAIM_RETRY_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FD_RECLAIM_RETRY_INTERVAL: %w", err)
	}

	// FD_RECLAIM_MAX_RETRIES — максимум повторов зачистки (по умолчанию 3)
	cfg.ReclaimMaxRetries, err = getEnvInt("FD_RECLAIM_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("FD_RECLAIM_MAX_RETRIES: %w", err)
	}
	if cfg.ReclaimMaxRetries < 0 {
		return nil, fmt.Errorf("FD_RECLAIM_MAX_RETRIES: значение не может быть отрицательным")
	}

	// FD_TLS_CERT / FD_TLS_KEY — опциональная пара
	cfg.TLSCert = getEnvDefault("FD_TLS_CERT", "")
	cfg.TLSKey = getEnvDefault("FD_TLS_KEY", "")
	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		return nil, fmt.Errorf("FD_TLS_CERT и FD_TLS_KEY должны быть заданы вместе")
	}

	// FD_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FD_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FD_LOG_LEVEL: %w", err)
	}

	// FD_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FD_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FD_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// FD_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("FD_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FD_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 24h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
