// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/arturkryukov/filedrop/internal/config"
)

// statusOK / statusFail — строковые константы статусов health checks.
const (
	statusOK   = "ok"
	statusFail = "fail"
)

// healthResponse — тело ответа health endpoints.
type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	// dataDir — путь к директории данных (для проверки записи)
	dataDir string
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(dataDir string) *HealthHandler {
	return &HealthHandler{
		version: config.Version,
		dataDir: dataDir,
	}
}

// Live обрабатывает GET /health/live.
// Безусловный ответ: процесс жив — статус ok и текущее время.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}

// Ready обрабатывает GET /health/ready.
// Проверяет, что директория данных доступна на запись: без неё
// сервис не может принимать загрузки.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"data_dir": statusOK,
	}
	status := statusOK
	code := http.StatusOK

	f, err := os.CreateTemp(h.dataDir, ".healthcheck-*")
	if err != nil {
		checks["data_dir"] = statusFail
		status = statusFail
		code = http.StatusServiceUnavailable
	} else {
		name := f.Name()
		f.Close()
		os.Remove(name)
	}

	writeJSON(w, code, healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Checks:    checks,
	})
}
