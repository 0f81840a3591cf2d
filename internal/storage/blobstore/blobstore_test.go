package blobstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/arturkryukov/filedrop/internal/storage/idgen"
)

const testMaxSize = 1 << 20 // 1 MiB

// newTestStore создаёт BlobStore во временной директории.
func newTestStore(t *testing.T) *BlobStore {
	t.Helper()
	bs, err := New(t.TempDir(), testMaxSize)
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}
	return bs
}

// dirEntryCount возвращает количество записей в директории данных.
func dirEntryCount(t *testing.T, bs *BlobStore) int {
	t.Helper()
	entries, err := os.ReadDir(bs.DataDir())
	if err != nil {
		t.Fatalf("ошибка чтения директории: %v", err)
	}
	return len(entries)
}

// TestNew_CreatesDirectory проверяет создание директории данных.
func TestNew_CreatesDirectory(t *testing.T) {
	dir := t.TempDir() + "/data"

	bs, err := New(dir, testMaxSize)
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}
	if bs.DataDir() != dir {
		t.Errorf("ожидался путь %s, получен %s", dir, bs.DataDir())
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("директория не создана: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("путь не является директорией")
	}
}

// TestWrite проверяет запись с подсчётом размера и SHA-256.
func TestWrite(t *testing.T) {
	bs := newTestStore(t)
	id := idgen.New()

	content := []byte("Hello, World! Тестовые данные для проверки.")
	result, err := bs.Write(id, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	if result.Size != int64(len(content)) {
		t.Errorf("размер: ожидалось %d, получено %d", len(content), result.Size)
	}

	expectedHash := sha256.Sum256(content)
	if result.Checksum != hex.EncodeToString(expectedHash[:]) {
		t.Errorf("checksum: ожидалось %s, получено %s",
			hex.EncodeToString(expectedHash[:]), result.Checksum)
	}

	// Содержимое читается обратно байт-в-байт
	f, err := bs.Open(id)
	if err != nil {
		t.Fatalf("ошибка открытия: %v", err)
	}
	defer f.Close()

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ошибка чтения: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("прочитанное содержимое не совпадает с записанным")
	}
}

// TestWrite_Empty проверяет запись пустого файла.
func TestWrite_Empty(t *testing.T) {
	bs := newTestStore(t)
	id := idgen.New()

	result, err := bs.Write(id, bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("ошибка записи пустого файла: %v", err)
	}
	if result.Size != 0 {
		t.Errorf("ожидался размер 0, получено %d", result.Size)
	}

	f, err := bs.Open(id)
	if err != nil {
		t.Fatalf("пустой файл не открывается: %v", err)
	}
	f.Close()
}

// TestWrite_ExactCap проверяет, что файл ровно в лимит допустим.
func TestWrite_ExactCap(t *testing.T) {
	bs, err := New(t.TempDir(), 16)
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}

	result, err := bs.Write(idgen.New(), strings.NewReader("0123456789abcdef"))
	if err != nil {
		t.Fatalf("файл ровно в лимит должен записываться: %v", err)
	}
	if result.Size != 16 {
		t.Errorf("ожидался размер 16, получено %d", result.Size)
	}
}

// TestWrite_Oversize проверяет отказ при превышении лимита:
// ошибка ErrTooLarge и никаких следов на диске (ни temp, ни файла).
func TestWrite_Oversize(t *testing.T) {
	bs, err := New(t.TempDir(), 16)
	if err != nil {
		t.Fatalf("ошибка создания BlobStore: %v", err)
	}
	id := idgen.New()

	_, err = bs.Write(id, strings.NewReader("0123456789abcdef + лишнее"))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("ожидалась ErrTooLarge, получено %v", err)
	}

	if bs.Exists(id) {
		t.Error("файл не должен существовать после превышения лимита")
	}
	if n := dirEntryCount(t, bs); n != 0 {
		t.Errorf("в директории не должно быть следов, найдено %d записей", n)
	}
}

// TestWrite_AbortedStream проверяет зачистку при обрыве потока клиентом.
func TestWrite_AbortedStream(t *testing.T) {
	bs := newTestStore(t)
	id := idgen.New()

	broken := io.MultiReader(
		strings.NewReader("начало данных"),
		iotest.ErrReader(errors.New("обрыв соединения")),
	)

	if _, err := bs.Write(id, broken); err == nil {
		t.Fatal("ожидалась ошибка при обрыве потока")
	}

	if n := dirEntryCount(t, bs); n != 0 {
		t.Errorf("после обрыва не должно остаться файлов, найдено %d", n)
	}
}

// TestWrite_InvalidID проверяет отбраковку некорректного идентификатора.
func TestWrite_InvalidID(t *testing.T) {
	bs := newTestStore(t)

	if _, err := bs.Write("../escape", strings.NewReader("x")); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("ожидалась ErrInvalidID, получено %v", err)
	}
}

// TestOpen_NotFound проверяет чтение несуществующего файла.
func TestOpen_NotFound(t *testing.T) {
	bs := newTestStore(t)

	if _, err := bs.Open(idgen.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

// TestOpen_SurvivesRemove документирует поведение гонки Open/Remove:
// открытый до удаления файл дочитывается полностью.
func TestOpen_SurvivesRemove(t *testing.T) {
	bs := newTestStore(t)
	id := idgen.New()

	content := []byte("содержимое, которое должно дочитаться после unlink")
	if _, err := bs.Write(id, bytes.NewReader(content)); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	f, err := bs.Open(id)
	if err != nil {
		t.Fatalf("ошибка открытия: %v", err)
	}
	defer f.Close()

	removed, err := bs.Remove(id)
	if err != nil || !removed {
		t.Fatalf("ошибка удаления: removed=%v err=%v", removed, err)
	}

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("чтение после удаления: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("открытый дескриптор должен отдавать исходное содержимое")
	}
}

// TestRemove_Idempotent проверяет идемпотентность удаления.
func TestRemove_Idempotent(t *testing.T) {
	bs := newTestStore(t)
	id := idgen.New()

	if _, err := bs.Write(id, strings.NewReader("x")); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	removed, err := bs.Remove(id)
	if err != nil {
		t.Fatalf("ошибка удаления: %v", err)
	}
	if !removed {
		t.Error("первое удаление должно вернуть true")
	}

	removed, err = bs.Remove(id)
	if err != nil {
		t.Fatalf("повторное удаление не должно быть ошибкой: %v", err)
	}
	if removed {
		t.Error("повторное удаление должно вернуть false")
	}
}

// TestPurge проверяет зачистку директории данных при старте.
func TestPurge(t *testing.T) {
	bs := newTestStore(t)

	for i := 0; i < 5; i++ {
		if _, err := bs.Write(idgen.New(), strings.NewReader("осиротевший")); err != nil {
			t.Fatalf("ошибка записи: %v", err)
		}
	}

	removed, err := bs.Purge()
	if err != nil {
		t.Fatalf("ошибка зачистки: %v", err)
	}
	if removed != 5 {
		t.Errorf("ожидалось 5 удалённых файлов, получено %d", removed)
	}
	if n := dirEntryCount(t, bs); n != 0 {
		t.Errorf("директория должна быть пуста, найдено %d записей", n)
	}
}
