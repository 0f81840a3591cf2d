// Пакет model — доменные модели filedrop.
// FileDescriptor — метаданные одного загруженного файла. Живёт только
// в памяти: при рестарте процесса все дескрипторы теряются, а файлы
// на диске зачищаются при старте.
package model

import (
	"time"
)

// DefaultName — имя файла по умолчанию, если клиент его не передал.
const DefaultName = "file.bin"

// DefaultMediaType — MIME-тип по умолчанию, если клиент его не передал.
const DefaultMediaType = "application/octet-stream"

// FileDescriptor — метаданные загруженного файла.
// Дескриптор неизменяем после создания: жизненный цикл — создание при
// загрузке, чтение, удаление (явное или по истечении TTL). Никаких
// обновлений полей на месте.
type FileDescriptor struct {
	// ID — уникальный идентификатор файла (26 символов, base32).
	// Единственный "пароль" для доступа к файлу.
	ID string `json:"id"`

	// OriginalName — оригинальное имя файла при загрузке.
	// Не доверяем: используется только в ответах API, не в путях.
	OriginalName string `json:"original_name"`

	// MediaType — MIME-тип, заявленный клиентом.
	MediaType string `json:"media_type"`

	// SizeBytes — размер файла в байтах, измерен при записи.
	SizeBytes int64 `json:"size_bytes"`

	// Checksum — SHA-256 хэш содержимого, считается при записи.
	// Используется как ETag при скачивании.
	Checksum string `json:"checksum"`

	// CreatedAt — время загрузки (UTC).
	CreatedAt time.Time `json:"created_at"`

	// StorageRef — имя файла на диске (совпадает с ID).
	// Не возвращается в API.
	StorageRef string `json:"-"`

	// ExpiresAt — момент истечения TTL (CreatedAt + TTL).
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired проверяет, истёк ли срок хранения файла.
func (d *FileDescriptor) IsExpired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}
