// security.go — базовые security-заголовки для всех ответов.
// Содержимое файлов не доверено: запрещаем sniffing и встраивание.
package middleware

import (
	"net/http"
)

// SecurityHeaders возвращает middleware, выставляющий защитные заголовки.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Content-Security-Policy", "default-src 'none'")

			next.ServeHTTP(w, r)
		})
	}
}
