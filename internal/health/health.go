package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Status — агрегированное состояние компонента или процесса целиком.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// worse сообщает, является ли кандидат более тяжёлым состоянием, чем текущее.
func worse(current, candidate Status) bool {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	return rank[candidate] > rank[current]
}

// Check — результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// newCheck собирает Check из имени, ошибки и момента старта проверки.
func newCheck(name string, err error, started time.Time) Check {
	check := Check{
		Name:       name,
		Status:     StatusHealthy,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// Response — тело ответа сводного health endpoint.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет один компонент процесса.
type Checker interface {
	Check() Check
}

// Handler держит реестр проверок и отдаёт их агрегат по HTTP.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	startTime time.Time
}

// NewHandler создаёт handler с пустым реестром проверок.
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		version:   version,
		startTime: time.Now(),
	}
}

// RegisterChecker добавляет проверку под именем name. Повторная регистрация
// под тем же именем заменяет предыдущую.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	h.checkers[name] = checker
	h.mu.Unlock()
}

// snapshot копирует реестр, чтобы не держать lock на время самих проверок.
func (h *Handler) snapshot() map[string]Checker {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]Checker, len(h.checkers))
	for name, checker := range h.checkers {
		out[name] = checker
	}
	return out
}

// run прогоняет все проверки и возвращает их результаты вместе с худшим статусом.
func (h *Handler) run() (map[string]Check, Status) {
	checks := make(map[string]Check)
	overall := StatusHealthy
	for name, checker := range h.snapshot() {
		result := checker.Check()
		checks[name] = result
		if worse(overall, result.Status) {
			overall = result.Status
		}
	}
	return checks, overall
}

// ServeHTTP отдаёт сводный JSON. 503 только при unhealthy; degraded — это 200.
func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	checks, overall := h.run()

	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{
		Status:        overall,
		Timestamp:     time.Now(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}

// LivenessHandler отвечает 200, пока процесс жив.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler отвечает 503, если хотя бы одна проверка unhealthy.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	if _, overall := h.run(); overall == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// SimpleChecker заворачивает функцию в Checker.
type SimpleChecker struct {
	name    string
	checkFn func() error
}

// NewSimpleChecker создаёт проверку из функции: nil значит healthy.
func NewSimpleChecker(name string, checkFn func() error) *SimpleChecker {
	return &SimpleChecker{name: name, checkFn: checkFn}
}

// Check выполняет проверку и замеряет её длительность.
func (c *SimpleChecker) Check() Check {
	started := time.Now()
	return newCheck(c.name, c.checkFn(), started)
}

// QueueBacklogChecker помечает процесс degraded, когда backlog очереди
// уведомлений дорастает до порога.
type QueueBacklogChecker struct {
	name      string
	queue     domain.NotificationQueue
	threshold int
}

// NewQueueBacklogChecker создаёт проверку backlog. Неположительный порог
// заменяется значением 1000.
func NewQueueBacklogChecker(name string, queue domain.NotificationQueue, threshold int) *QueueBacklogChecker {
	if threshold <= 0 {
		threshold = 1000
	}
	return &QueueBacklogChecker{name: name, queue: queue, threshold: threshold}
}

// Check читает статистику очереди и сравнивает backlog с порогом.
func (c *QueueBacklogChecker) Check() Check {
	started := time.Now()
	stats, err := c.queue.Stats()
	check := newCheck(c.name, err, started)
	if err != nil {
		return check
	}

	if stats.PendingCount >= c.threshold {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("notification backlog is %d (threshold %d)", stats.PendingCount, c.threshold)
	}
	return check
}
