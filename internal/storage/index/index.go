// Пакет index — потокобезопасный in-memory индекс дескрипторов файлов.
//
// Единственная разделяемая структура сервиса: через неё проходят все
// мутации метаданных из HTTP-обработчиков и планировщика истечения.
// Не персистентный: при рестарте процесса индекс пуст, осиротевшие
// файлы на диске зачищаются при старте (blobstore.Purge).
package index

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/arturkryukov/filedrop/internal/domain/model"
)

// ErrExists — попытка вставить дескриптор с уже занятым идентификатором.
// Идентификаторы write-once: повторное использование запрещено.
var ErrExists = errors.New("идентификатор уже занят")

// Index — потокобезопасный индекс дескрипторов по идентификатору.
// Использует sync.RWMutex для конкурентного чтения и эксклюзивной
// записи. Блокировка покрывает только мутацию map: потоковая передача
// содержимого файлов идёт вне блокировки.
type Index struct {
	mu     sync.RWMutex
	files  map[string]*model.FileDescriptor // id → descriptor
	logger *slog.Logger
}

// New создаёт пустой индекс.
func New(logger *slog.Logger) *Index {
	return &Index{
		files:  make(map[string]*model.FileDescriptor),
		logger: logger.With(slog.String("component", "index")),
	}
}

// Insert добавляет дескриптор в индекс. Вставка write-once:
// если идентификатор уже занят, возвращает ErrExists, не перезаписывая
// существующий дескриптор.
func (idx *Index) Insert(desc *model.FileDescriptor) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.files[desc.ID]; ok {
		return ErrExists
	}

	// Создаём копию, чтобы избежать data race при внешних изменениях
	copied := *desc
	idx.files[desc.ID] = &copied
	return nil
}

// Get возвращает копию дескриптора по идентификатору.
// Возвращает nil, если файл не найден.
func (idx *Index) Get(id string) *model.FileDescriptor {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	desc, ok := idx.files[id]
	if !ok {
		return nil
	}

	copied := *desc
	return &copied
}

// Remove удаляет дескриптор по идентификатору.
// Возвращает true, если дескриптор был найден и удалён.
// Из двух конкурентных Remove одного идентификатора ровно один
// получит true: повторное удаление — не ошибка, а "уже удалён".
func (idx *Index) Remove(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.files[id]; !ok {
		return false
	}
	delete(idx.files, id)
	return true
}

// Count возвращает количество живых дескрипторов.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.files)
}

// TotalBytes возвращает суммарный размер живых файлов в байтах.
func (idx *Index) TotalBytes() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var total int64
	for _, desc := range idx.files {
		total += desc.SizeBytes
	}
	return total
}
