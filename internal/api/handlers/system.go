// system.go — служебная информация о состоянии хранилища.
package handlers

import (
	"net/http"
	"time"

	"github.com/arturkryukov/filedrop/internal/config"
	"github.com/arturkryukov/filedrop/internal/storage/index"
)

// infoResponse — тело ответа GET /api/v1/info.
type infoResponse struct {
	Version    string    `json:"version"`
	Files      int       `json:"files"`
	TotalBytes int64     `json:"total_bytes"`
	StartedAt  time.Time `json:"started_at"`
}

// SystemHandler — обработчик служебных endpoints.
type SystemHandler struct {
	idx       *index.Index
	startedAt time.Time
}

// NewSystemHandler создаёт обработчик служебных endpoints.
func NewSystemHandler(idx *index.Index) *SystemHandler {
	return &SystemHandler{
		idx:       idx,
		startedAt: time.Now().UTC(),
	}
}

// Info обрабатывает GET /api/v1/info.
// Количество живых файлов и суммарный объём — из индекса.
func (h *SystemHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{
		Version:    config.Version,
		Files:      h.idx.Count(),
		TotalBytes: h.idx.TotalBytes(),
		StartedAt:  h.startedAt,
	})
}
