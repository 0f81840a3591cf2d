// Пакет blobstore — операции с содержимым файлов на диске.
// Обеспечивает streaming-запись с подсчётом SHA-256 на лету и
// контролем максимального размера, чтение, идемпотентное удаление
// и зачистку осиротевших файлов при старте.
package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/arturkryukov/filedrop/internal/storage/idgen"
)

// ErrTooLarge — поток данных превысил максимально допустимый размер.
var ErrTooLarge = errors.New("файл превышает максимально допустимый размер")

// ErrNotFound — файл с таким идентификатором отсутствует на диске.
var ErrNotFound = errors.New("файл не найден на диске")

// ErrInvalidID — строка не является корректным идентификатором.
// Защита от path traversal: идентификатор проверяется до подстановки
// в путь на диске.
var ErrInvalidID = errors.New("некорректный идентификатор файла")

// BlobStore — управление содержимым файлов на диске.
// Файлы именуются идентификатором (idgen), поэтому разные
// идентификаторы никогда не конкурируют за одно имя.
type BlobStore struct {
	// dataDir — корневая директория хранения файлов (FD_DATA_DIR)
	dataDir string
	// maxSize — максимальный размер файла в байтах
	maxSize int64
}

// WriteResult — результат записи файла на диск.
type WriteResult struct {
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого файла
	Checksum string
}

// New создаёт новый BlobStore. Проверяет и создаёт директорию,
// если она не существует.
func New(dataDir string, maxSize int64) (*BlobStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &BlobStore{dataDir: dataDir, maxSize: maxSize}, nil
}

// Write записывает данные из reader на диск под именем id с подсчётом
// SHA-256 на лету и контролем максимального размера.
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// До rename файл не виден для Open ни при каком исходе. При любой
// ошибке (включая обрыв потока клиентом и превышение размера)
// temp файл удаляется, частичная запись не остаётся.
func (bs *BlobStore) Write(id string, reader io.Reader) (*WriteResult, error) {
	if !idgen.Valid(id) {
		return nil, ErrInvalidID
	}

	fullPath := filepath.Join(bs.dataDir, id)
	// Суффикс temp файла уникален: конкурентные записи разных
	// идентификаторов не пересекаются, а повторная запись того же id
	// невозможна по контракту write-once.
	tmpPath := fullPath + "." + uuid.New().String()[:8] + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	cleanup := func() {
		f.Close()
		os.Remove(tmpPath)
	}

	// Streaming запись с одновременным подсчётом SHA-256.
	// Читаем на один байт больше лимита: ровно maxSize — допустимо,
	// maxSize+1 — превышение.
	hasher := sha256.New()
	tee := io.TeeReader(io.LimitReader(reader, bs.maxSize+1), hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}
	if size > bs.maxSize {
		cleanup()
		return nil, ErrTooLarge
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		cleanup()
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &WriteResult{
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open открывает файл для последовательного чтения.
// Вызывающий код обязан закрыть файл.
//
// Гонка Open/Remove на одном идентификаторе разрешается семантикой
// POSIX: уже открытый дескриптор продолжает отдавать исходное
// содержимое после unlink, поэтому начатое чтение всегда либо
// завершается полным содержимым, либо Open сразу возвращает
// ErrNotFound. Усечённого вывода не бывает.
func (bs *BlobStore) Open(id string) (*os.File, error) {
	if !idgen.Valid(id) {
		return nil, ErrInvalidID
	}

	f, err := os.Open(filepath.Join(bs.dataDir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", id, err)
	}

	return f, nil
}

// Remove удаляет файл с диска.
// Возвращает true, если файл существовал и был удалён; false, если
// файл уже отсутствовал (повторное удаление — не ошибка).
// Ошибка возвращается только при реальном сбое ввода-вывода.
func (bs *BlobStore) Remove(id string) (bool, error) {
	if !idgen.Valid(id) {
		return false, ErrInvalidID
	}

	err := os.Remove(filepath.Join(bs.dataDir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("ошибка удаления файла %s: %w", id, err)
	}
	return true, nil
}

// Exists проверяет существование файла на диске.
func (bs *BlobStore) Exists(id string) bool {
	if !idgen.Valid(id) {
		return false
	}
	_, err := os.Stat(filepath.Join(bs.dataDir, id))
	return err == nil
}

// Purge удаляет все обычные файлы из директории данных.
// Вызывается при старте: индекс живёт только в памяти, поэтому после
// рестарта файлы на диске недостижимы и подлежат зачистке.
// Возвращает количество удалённых файлов.
func (bs *BlobStore) Purge() (int, error) {
	entries, err := os.ReadDir(bs.dataDir)
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения директории данных %s: %w", bs.dataDir, err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(bs.dataDir, entry.Name())); err != nil {
			return removed, fmt.Errorf("ошибка удаления осиротевшего файла %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// DataDir возвращает путь к директории данных.
func (bs *BlobStore) DataDir() string {
	return bs.dataDir
}
