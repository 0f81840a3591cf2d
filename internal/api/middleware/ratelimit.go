// ratelimit.go — ограничение частоты запросов по IP клиента.
// Загрузки и скачивания лимитируются раздельно: у них разная стоимость
// для диска и разный ожидаемый профиль трафика.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	apierrors "github.com/arturkryukov/filedrop/internal/api/errors"
)

// rateLimitExceeded отвечает 429 в стандартном формате ошибок API.
func rateLimitExceeded(w http.ResponseWriter, _ *http.Request) {
	apierrors.RateLimited(w)
}

// RateLimitByIP возвращает middleware, допускающий не более limit
// запросов с одного IP за окно window. Превышение — 429 RATE_LIMITED.
func RateLimitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(http.HandlerFunc(rateLimitExceeded)),
	)
}
