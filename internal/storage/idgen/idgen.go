// Пакет idgen — генерация непредсказуемых идентификаторов файлов.
//
// Идентификатор — 128 бит из crypto/rand, закодированные фиксированным
// base32-алфавитом (строчные буквы, без padding): 26 символов, безопасных
// и как сегмент URL, и как имя файла на диске. Идентификатор не несёт
// никакой информации о содержимом или времени загрузки.
package idgen

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"io"
)

// rawLen — количество случайных байт в идентификаторе (128 бит).
const rawLen = 16

// EncodedLen — длина идентификатора в символах: ceil(16*8/5) = 26.
const EncodedLen = 26

// encoding — строчный base32 без padding. Алфавит фиксирован:
// идентификаторы сравниваются байт-в-байт и живут в именах файлов.
var encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// New возвращает новый уникальный идентификатор.
// Паникует, если системный источник энтропии недоступен: генерация
// предсказуемых идентификаторов хуже, чем падение процесса.
// main выполняет пробную генерацию при старте (fail fast).
func New() string {
	var buf [rawLen]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		panic(fmt.Sprintf("idgen: источник энтропии недоступен: %v", err))
	}
	return encoding.EncodeToString(buf[:])
}

// Valid проверяет, что строка имеет формат идентификатора:
// ровно EncodedLen символов из алфавита кодировки.
// Используется перед подстановкой идентификатора в путь на диске.
func Valid(id string) bool {
	if len(id) != EncodedLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'a' || c > 'z') && (c < '2' || c > '7') {
			return false
		}
	}
	return true
}
