package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setRequired задаёт обязательные переменные окружения.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("FD_DATA_DIR", t.TempDir())
}

// TestLoad_Defaults проверяет значения по умолчанию.
func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port: ожидалось 8080, получено %d", cfg.Port)
	}
	if cfg.MaxFileSize != 2<<30 {
		t.Errorf("MaxFileSize: ожидалось %d, получено %d", int64(2<<30), cfg.MaxFileSize)
	}
	if cfg.TTL != 24*time.Hour {
		t.Errorf("TTL: ожидалось 24h, получено %s", cfg.TTL)
	}
	if cfg.AllowedOrigin != "*" {
		t.Errorf("AllowedOrigin: ожидалось '*', получено %q", cfg.AllowedOrigin)
	}
	if cfg.UploadRateLimit != 10 || cfg.UploadRateWindow != time.Minute {
		t.Errorf("лимит загрузок по умолчанию: %d/%s", cfg.UploadRateLimit, cfg.UploadRateWindow)
	}
	if cfg.DownloadRateLimit != 60 || cfg.DownloadRateWindow != time.Minute {
		t.Errorf("лимит скачиваний по умолчанию: %d/%s", cfg.DownloadRateLimit, cfg.DownloadRateWindow)
	}
	if cfg.ReclaimRetryInterval != 30*time.Second {
		t.Errorf("ReclaimRetryInterval: ожидалось 30s, получено %s", cfg.ReclaimRetryInterval)
	}
	if cfg.ReclaimMaxRetries != 3 {
		t.Errorf("ReclaimMaxRetries: ожидалось 3, получено %d", cfg.ReclaimMaxRetries)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: ожидался info, получен %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: ожидался json, получен %q", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 5s, получено %s", cfg.ShutdownTimeout)
	}
}

// TestLoad_MissingDataDir проверяет отказ без обязательной переменной.
func TestLoad_MissingDataDir(t *testing.T) {
	t.Setenv("FD_DATA_DIR", "")

	_, err := Load()
	if err == nil {
		t.Fatal("ожидалась ошибка без FD_DATA_DIR")
	}
	if !strings.Contains(err.Error(), "FD_DATA_DIR") {
		t.Errorf("ошибка должна называть переменную: %v", err)
	}
}

// TestLoad_Overrides проверяет чтение значений из окружения.
func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("FD_PORT", "9000")
	t.Setenv("FD_MAX_FILE_SIZE", "1048576")
	t.Setenv("FD_TTL", "15m")
	t.Setenv("FD_ALLOWED_ORIGIN", "https://example.com")
	t.Setenv("FD_UPLOAD_RATE_LIMIT", "5")
	t.Setenv("FD_UPLOAD_RATE_WINDOW", "30s")
	t.Setenv("FD_LOG_LEVEL", "debug")
	t.Setenv("FD_LOG_FORMAT", "text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port: ожидалось 9000, получено %d", cfg.Port)
	}
	if cfg.MaxFileSize != 1048576 {
		t.Errorf("MaxFileSize: ожидалось 1048576, получено %d", cfg.MaxFileSize)
	}
	if cfg.TTL != 15*time.Minute {
		t.Errorf("TTL: ожидалось 15m, получено %s", cfg.TTL)
	}
	if cfg.AllowedOrigin != "https://example.com" {
		t.Errorf("AllowedOrigin: получено %q", cfg.AllowedOrigin)
	}
	if cfg.UploadRateLimit != 5 || cfg.UploadRateWindow != 30*time.Second {
		t.Errorf("лимит загрузок: %d/%s", cfg.UploadRateLimit, cfg.UploadRateWindow)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: ожидался debug, получен %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat: ожидался text, получен %q", cfg.LogFormat)
	}
}

// TestLoad_InvalidValues проверяет отказ при некорректных значениях.
func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"порт не число", "FD_PORT", "abc"},
		{"порт вне диапазона", "FD_PORT", "70000"},
		{"отрицательный размер", "FD_MAX_FILE_SIZE", "-1"},
		{"нулевой TTL", "FD_TTL", "0s"},
		{"некорректная длительность", "FD_TTL", "вечность"},
		{"нулевой лимит загрузок", "FD_UPLOAD_RATE_LIMIT", "0"},
		{"недопустимый уровень", "FD_LOG_LEVEL", "verbose"},
		{"недопустимый формат", "FD_LOG_FORMAT", "xml"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.key, tc.value)

			if _, err := Load(); err == nil {
				t.Errorf("ожидалась ошибка для %s=%q", tc.key, tc.value)
			}
		})
	}
}

// TestLoad_TLSPair проверяет, что сертификат и ключ задаются только вместе.
func TestLoad_TLSPair(t *testing.T) {
	setRequired(t)
	t.Setenv("FD_TLS_CERT", "/etc/tls/cert.pem")

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка: задан только сертификат без ключа")
	}
}
