// scheduler.go — планировщик истечения срока хранения файлов.
//
// Вместо периодического сканирования индекса каждому живому файлу
// соответствует ровно один отложенный таймер (time.AfterFunc):
// файл зачищается не раньше своего дедлайна и в пределах ограниченной паузы
// после него, независимо от входящих запросов. Записей в планировщике
// ровно столько, сколько живых файлов: запись снимается при
// срабатывании или при явной отмене.
package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики планировщика
var (
	// expiryArmedTotal — количество взведённых таймеров.
	expiryArmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_expiry_armed_total",
		Help: "Общее количество взведённых таймеров истечения",
	})

	// expiryFiredTotal — количество сработавших таймеров.
	expiryFiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_expiry_fired_total",
		Help: "Общее количество сработавших таймеров истечения",
	})

	// expiryCanceledTotal — количество отменённых таймеров.
	expiryCanceledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_expiry_canceled_total",
		Help: "Общее количество отменённых таймеров истечения",
	})

	// expiryReclaimErrors — количество ошибок зачистки.
	expiryReclaimErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fd_expiry_reclaim_errors_total",
		Help: "Общее количество ошибок зачистки по истечении TTL",
	})
)

// ReclaimFunc — callback зачистки одного файла. Обязан быть
// идемпотентным: гонка естественного истечения и явного удаления
// штатна и разрешается как "уже удалён", а не ошибка.
type ReclaimFunc func(id string) error

// expiryEntry — одна запись планировщика.
type expiryEntry struct {
	timer    *time.Timer
	attempts int // выполненных попыток зачистки
}

// ExpiryScheduler — планировщик отложенной зачистки файлов.
// Каждый таймер срабатывает в собственной горутине: ошибка зачистки
// одного файла не задерживает и не ломает таймеры остальных.
type ExpiryScheduler struct {
	mu      sync.Mutex
	entries map[string]*expiryEntry // id → запись

	// retryInterval — пауза перед повтором неудавшейся зачистки
	retryInterval time.Duration
	// maxRetries — максимум повторных попыток на один файл
	maxRetries int

	stopped bool
	logger  *slog.Logger
}

// NewExpiryScheduler создаёт планировщик истечения.
func NewExpiryScheduler(retryInterval time.Duration, maxRetries int, logger *slog.Logger) *ExpiryScheduler {
	return &ExpiryScheduler{
		entries:       make(map[string]*expiryEntry),
		retryInterval: retryInterval,
		maxRetries:    maxRetries,
		logger:        logger.With(slog.String("component", "expiry_scheduler")),
	}
}

// Arm регистрирует одноразовую зачистку файла в момент expiresAt.
// onFire будет вызван не более одного раза на каждое взведение
// (плюс ограниченные повторы при ошибке). Повторный Arm того же
// идентификатора перевзводит таймер.
func (s *ExpiryScheduler) Arm(id string, expiresAt time.Time, onFire ReclaimFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if old, ok := s.entries[id]; ok {
		// Не должно случаться при write-once идентификаторах
		old.timer.Stop()
		s.logger.Warn("Таймер перевзведён", slog.String("file_id", id))
	}

	s.entries[id] = &expiryEntry{
		timer: time.AfterFunc(time.Until(expiresAt), func() {
			s.fire(id, onFire)
		}),
	}
	expiryArmedTotal.Inc()
}

// Cancel снимает ожидающую зачистку файла, если она есть.
// Идемпотентен: отмена отсутствующего или уже сработавшего
// идентификатора — no-op, не ошибка.
func (s *ExpiryScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return
	}
	entry.timer.Stop()
	delete(s.entries, id)
	expiryCanceledTotal.Inc()
}

// Pending возвращает количество взведённых таймеров.
func (s *ExpiryScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop останавливает планировщик и снимает все таймеры.
// Вызывается при завершении процесса.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for _, entry := range s.entries {
		entry.timer.Stop()
	}
	s.entries = make(map[string]*expiryEntry)
	s.logger.Info("Планировщик истечения остановлен")
}

// fire выполняет зачистку по срабатыванию таймера.
// Запись снимается до вызова onFire: если её уже нет (Cancel успел
// раньше), зачистка не выполняется — ей займётся вызвавший Cancel.
func (s *ExpiryScheduler) fire(id string, onFire ReclaimFunc) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.entries, id)
	attempts := entry.attempts
	s.mu.Unlock()

	expiryFiredTotal.Inc()

	err := onFire(id)
	if err == nil {
		s.logger.Debug("Файл зачищен по истечении TTL", slog.String("file_id", id))
		return
	}

	expiryReclaimErrors.Inc()
	s.logger.Error("Ошибка зачистки по истечении TTL",
		slog.String("file_id", id),
		slog.Int("attempts", attempts+1),
		slog.String("error", err.Error()),
	)

	// Неудавшуюся зачистку перевзводим с паузой, ограниченное число раз
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if attempts+1 > s.maxRetries {
		s.logger.Error("Зачистка файла оставлена после исчерпания повторов",
			slog.String("file_id", id),
		)
		return
	}

	s.entries[id] = &expiryEntry{
		attempts: attempts + 1,
		timer: time.AfterFunc(s.retryInterval, func() {
			s.fire(id, onFire)
		}),
	}
}
