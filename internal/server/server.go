// Пакет server — HTTP-сервер filedrop с опциональным TLS и graceful shutdown.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arturkryukov/filedrop/internal/api/handlers"
	"github.com/arturkryukov/filedrop/internal/api/middleware"
	"github.com/arturkryukov/filedrop/internal/config"
)

// Server — HTTP-сервер filedrop.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	files *handlers.FilesHandler,
	system *handlers.SystemHandler,
	health *handlers.HealthHandler,
) *Server {
	router := NewRouter(cfg, logger, files, system, health)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
		// ReadTimeout не задаём: загрузка большого файла легитимно
		// длится дольше любой разумной константы, тело ограничено
		// MaxFileSize на уровне blobstore
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Настройка TLS
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		srv.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер со всеми middleware и маршрутами.
// Вынесен из New для использования в httptest.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	files *handlers.FilesHandler,
	system *handlers.SystemHandler,
	health *handlers.HealthHandler,
) chi.Router {
	router := chi.NewRouter()

	// Middleware (порядок важен: лог — самый внешний)
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		// Имя и тип файла должны быть читаемы кросс-доменным клиентом
		ExposedHeaders: []string{"X-File-Name", "X-File-Type", "Content-Disposition", "ETag"},
		MaxAge:         300,
	}))

	// Лимиты по IP: загрузки и скачивания считаются раздельно
	uploadLimiter := middleware.RateLimitByIP(cfg.UploadRateLimit, cfg.UploadRateWindow)
	downloadLimiter := middleware.RateLimitByIP(cfg.DownloadRateLimit, cfg.DownloadRateWindow)

	router.Route("/api/v1", func(r chi.Router) {
		r.With(uploadLimiter).Post("/files", files.Upload)
		r.With(downloadLimiter).Get("/files/{id}", files.Download)
		r.With(downloadLimiter).Get("/files/{id}/meta", files.Metadata)
		r.Delete("/files/{id}", files.Delete)
		r.Get("/info", system.Info)
	})

	router.Get("/health/live", health.Live)
	router.Get("/health/ready", health.Ready)
	router.Handle("/metrics", promhttp.Handler())

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown с таймаутом
// из конфигурации.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.Bool("tls", s.cfg.TLSCert != ""),
		)

		var err error
		if s.cfg.TLSCert != "" && s.cfg.TLSKey != "" {
			err = s.httpServer.ListenAndServeTLS(s.cfg.TLSCert, s.cfg.TLSKey)
		} else {
			err = s.httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
