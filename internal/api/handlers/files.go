// files.go — HTTP handlers файловых операций filedrop.
// Upload, Download, Metadata, Delete.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/arturkryukov/filedrop/internal/api/errors"
	"github.com/arturkryukov/filedrop/internal/service"
)

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	svc *service.Transfer
}

// NewFilesHandler создаёт обработчик файловых endpoints.
func NewFilesHandler(svc *service.Transfer) *FilesHandler {
	return &FilesHandler{svc: svc}
}

// Upload обрабатывает POST /api/v1/files.
// Multipart form: file (обязательно). Имя и Content-Type берутся из
// части file; отсутствующие заменяются значениями по умолчанию.
// Тело читается потоково (MultipartReader), без буферизации файла
// в память или во временный файл.
func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Ожидается multipart/form-data: %s", err.Error()))
		return
	}

	// Ищем часть 'file'; остальные части до неё пропускаем
	var part *multipartPart
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			apierrors.ValidationError(w, fmt.Sprintf("Ошибка разбора multipart: %s", err.Error()))
			return
		}
		if p.FormName() == "file" {
			part = &multipartPart{
				reader:      p,
				filename:    p.FileName(),
				contentType: p.Header.Get("Content-Type"),
			}
			break
		}
	}
	if part == nil {
		apierrors.ValidationError(w, "Поле 'file' обязательно")
		return
	}

	desc, svcErr := h.svc.Ingest(part.reader, part.filename, part.contentType)
	if svcErr != nil {
		apierrors.WriteError(w, svcErr.StatusCode, svcErr.Code, svcErr.Message)
		return
	}

	writeJSON(w, http.StatusCreated, desc)
}

// multipartPart — найденная часть 'file' multipart-запроса.
type multipartPart struct {
	reader      io.Reader
	filename    string
	contentType string
}

// Download обрабатывает GET /api/v1/files/{id}.
// Отдаёт содержимое через http.ServeContent: Range requests (206)
// и ETag (If-None-Match → 304) поддерживаются автоматически.
// Имя и тип файла дублируются в заголовках X-File-Name / X-File-Type,
// доступных кросс-доменным клиентам через CORS expose.
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	desc, file, svcErr := h.svc.Fetch(id)
	if svcErr != nil {
		apierrors.WriteError(w, svcErr.StatusCode, svcErr.Code, svcErr.Message)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		apierrors.InternalError(w, "Ошибка чтения файла")
		return
	}

	w.Header().Set("Content-Type", desc.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", desc.OriginalName))
	w.Header().Set("X-File-Name", desc.OriginalName)
	w.Header().Set("X-File-Type", desc.MediaType)
	w.Header().Set("ETag", fmt.Sprintf("%q", desc.Checksum))
	w.Header().Set("Accept-Ranges", "bytes")

	http.ServeContent(w, r, desc.OriginalName, stat.ModTime(), file)
}

// Metadata обрабатывает GET /api/v1/files/{id}/meta.
// Возвращает дескриптор без доступа к содержимому.
func (h *FilesHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	desc, svcErr := h.svc.Describe(id)
	if svcErr != nil {
		apierrors.WriteError(w, svcErr.StatusCode, svcErr.Code, svcErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, desc)
}

// Delete обрабатывает DELETE /api/v1/files/{id}.
// Удаляет файл до истечения TTL. Повторное удаление — 404.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !h.svc.Delete(id) {
		apierrors.NotFound(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeJSON — вспомогательная функция для записи JSON-ответа.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
