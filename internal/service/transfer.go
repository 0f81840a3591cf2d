// Пакет service — бизнес-логика filedrop.
// transfer.go — фасад жизненного цикла файла: Ingest, Fetch, Describe,
// Delete. Связывает генератор идентификаторов, blobstore, индекс
// и планировщик истечения.
package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	apierrors "github.com/arturkryukov/filedrop/internal/api/errors"
	"github.com/arturkryukov/filedrop/internal/api/middleware"
	"github.com/arturkryukov/filedrop/internal/domain/model"
	"github.com/arturkryukov/filedrop/internal/storage/blobstore"
	"github.com/arturkryukov/filedrop/internal/storage/idgen"
	"github.com/arturkryukov/filedrop/internal/storage/index"
)

// Error — ошибка операции фасада с HTTP-кодом.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// notFoundError — единый ответ для неизвестных и истёкших
// идентификаторов: снаружи они неразличимы.
func notFoundError() *Error {
	return &Error{
		StatusCode: 404,
		Code:       apierrors.CodeNotFound,
		Message:    apierrors.MsgNotFound,
	}
}

// Transfer — фасад операций над файлами.
type Transfer struct {
	store  *blobstore.BlobStore
	idx    *index.Index
	sched  *ExpiryScheduler
	ttl    time.Duration
	logger *slog.Logger
}

// NewTransfer создаёт фасад операций над файлами.
func NewTransfer(
	store *blobstore.BlobStore,
	idx *index.Index,
	sched *ExpiryScheduler,
	ttl time.Duration,
	logger *slog.Logger,
) *Transfer {
	return &Transfer{
		store:  store,
		idx:    idx,
		sched:  sched,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "transfer")),
	}
}

// Ingest принимает поток данных и сохраняет файл.
//
// Поток:
//  1. Генерация идентификатора
//  2. Запись на диск (streaming + SHA-256 + контроль размера)
//  3. Вставка дескриптора в индекс
//  4. Взведение таймера истечения
//
// Операция атомарна: при любой ошибке после записи файл удаляется,
// дескриптор не вставляется, таймер не взводится.
func (s *Transfer) Ingest(reader io.Reader, originalName, mediaType string) (*model.FileDescriptor, *Error) {
	if originalName == "" {
		originalName = model.DefaultName
	}
	if mediaType == "" {
		mediaType = model.DefaultMediaType
	}

	id := idgen.New()

	result, err := s.store.Write(id, reader)
	if err != nil {
		if errors.Is(err, blobstore.ErrTooLarge) {
			middleware.OperationsTotal.WithLabelValues("ingest", "too_large").Inc()
			return nil, &Error{
				StatusCode: 413,
				Code:       apierrors.CodeFileTooLarge,
				Message:    apierrors.MsgFileTooLarge,
			}
		}
		// Сюда попадает и обрыв потока клиентом: blobstore уже
		// удалил временный файл, следов не остаётся.
		middleware.OperationsTotal.WithLabelValues("ingest", "error").Inc()
		s.logger.Error("Ошибка записи файла",
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
		return nil, &Error{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка сохранения файла",
		}
	}

	now := time.Now().UTC()
	desc := &model.FileDescriptor{
		ID:           id,
		OriginalName: originalName,
		MediaType:    mediaType,
		SizeBytes:    result.Size,
		Checksum:     result.Checksum,
		CreatedAt:    now,
		StorageRef:   id,
		ExpiresAt:    now.Add(s.ttl),
	}

	if err := s.idx.Insert(desc); err != nil {
		// Коллизия 128-битного идентификатора — событие уровня сбоя
		_, _ = s.store.Remove(id)
		middleware.OperationsTotal.WithLabelValues("ingest", "error").Inc()
		s.logger.Error("Ошибка вставки дескриптора",
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
		return nil, &Error{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка регистрации файла",
		}
	}

	s.sched.Arm(id, desc.ExpiresAt, s.Reclaim)

	middleware.OperationsTotal.WithLabelValues("ingest", "success").Inc()
	middleware.FilesTotal.Inc()

	s.logger.Info("Файл загружен",
		slog.String("file_id", id),
		slog.String("filename", desc.OriginalName),
		slog.Int64("size", desc.SizeBytes),
		slog.String("checksum", desc.Checksum),
		slog.Time("expires_at", desc.ExpiresAt),
	)

	return desc, nil
}

// Fetch возвращает дескриптор и открытый файл для скачивания.
// Вызывающий код обязан закрыть файл. Если дескриптор есть, а файла
// на диске уже нет (гонка с зачисткой), зависший дескриптор снимается
// и возвращается NotFound: для клиента исход неотличим от обычного
// истечения.
func (s *Transfer) Fetch(id string) (*model.FileDescriptor, *os.File, *Error) {
	desc := s.idx.Get(id)
	if desc == nil {
		return nil, nil, notFoundError()
	}

	file, err := s.store.Open(desc.StorageRef)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			// Самоизлечение: убираем дескриптор без файла
			s.idx.Remove(id)
			s.sched.Cancel(id)
			middleware.FilesTotal.Dec()
			s.logger.Warn("Дескриптор без файла на диске, снят",
				slog.String("file_id", id),
			)
			return nil, nil, notFoundError()
		}
		s.logger.Error("Ошибка открытия файла",
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
		return nil, nil, &Error{
			StatusCode: 500,
			Code:       apierrors.CodeInternalError,
			Message:    "Ошибка чтения файла",
		}
	}

	middleware.OperationsTotal.WithLabelValues("fetch", "success").Inc()
	return desc, file, nil
}

// Describe возвращает дескриптор файла без доступа к содержимому.
func (s *Transfer) Describe(id string) (*model.FileDescriptor, *Error) {
	desc := s.idx.Get(id)
	if desc == nil {
		return nil, notFoundError()
	}
	return desc, nil
}

// Delete явно удаляет файл до истечения TTL: снимает таймер,
// убирает дескриптор и содержимое. Идемпотентен: повторное удаление
// возвращает false без ошибки. Возвращает true, если файл был жив.
func (s *Transfer) Delete(id string) bool {
	s.sched.Cancel(id)

	removed := s.idx.Remove(id)
	if _, err := s.store.Remove(id); err != nil {
		// Дескриптор уже снят, файл недостижим; остаток подберёт
		// только зачистка диска при следующем старте
		s.logger.Error("Ошибка удаления файла с диска",
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
	}

	if removed {
		middleware.OperationsTotal.WithLabelValues("delete", "success").Inc()
		middleware.FilesTotal.Dec()
		s.logger.Info("Файл удалён", slog.String("file_id", id))
	}
	return removed
}

// Reclaim — зачистка по истечении TTL, callback планировщика.
// Идемпотентен: гонка с явным Delete разрешается как "уже удалён".
// Ошибка удаления с диска возвращается наружу, чтобы планировщик
// повторил попытку.
func (s *Transfer) Reclaim(id string) error {
	removed := s.idx.Remove(id)
	if removed {
		middleware.FilesTotal.Dec()
	}

	// При ошибке дескриптор уже снят; повтор планировщика доудалит
	// содержимое (idx.Remove вернёт false, это штатно)
	if _, err := s.store.Remove(id); err != nil {
		return fmt.Errorf("зачистка %s: %w", id, err)
	}

	if removed {
		middleware.OperationsTotal.WithLabelValues("expire", "success").Inc()
		s.logger.Info("Файл зачищен по истечении TTL", slog.String("file_id", id))
	}
	return nil
}
