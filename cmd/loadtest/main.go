package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/inventory"
	"github.com/vladislavdragonenkov/storefront/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/storefront/internal/service/loyalty"
	"github.com/vladislavdragonenkov/storefront/internal/service/notify"
	"github.com/vladislavdragonenkov/storefront/internal/service/stock"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/orders"
)

// loadtest прогоняет сценарии жизненного цикла заказа через движок,
// собранный in-process на in-memory хранилищах, и печатает отчёт с
// латентностями. Инструмент меряет сам движок, без сети.

type config struct {
	total       int
	concurrency int
	cancelRate  int
	stock       int32
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type report struct {
	StartedAt        time.Time      `json:"started_at"`
	DurationSeconds  float64        `json:"duration_seconds"`
	TotalScenarios   int64          `json:"total_scenarios"`
	SuccessScenarios int64          `json:"success_scenarios"`
	FailedScenarios  int64          `json:"failed_scenarios"`
	ErrorRate        float64        `json:"error_rate"`
	ScenariosPerSec  float64        `json:"scenarios_per_sec"`
	LatencyMs        latencySummary `json:"latency_ms"`
}

type collector struct {
	mu        sync.Mutex
	latencies []float64
}

func (c *collector) observe(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latencies = append(c.latencies, float64(d.Microseconds())/1000.0)
}

func (c *collector) summary() latencySummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.latencies) == 0 {
		return latencySummary{}
	}

	sorted := append([]float64(nil), c.latencies...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func main() {
	cfg := readFlags()

	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	entry := logger.WithField("component", "loadtest")

	gateway := inventory.NewMemoryGateway()
	gateway.Seed(domain.Product{ID: "load-prod", Title: "Widget", Stock: cfg.stock})

	repo, err := orders.NewRepository(memory.NewKV(), entry)
	if err != nil {
		fail("build repository: %v", err)
	}

	sink := notify.NewLogSink(entry)
	reconciler := stock.NewReconcilerWithoutMetrics(gateway, sink, entry)
	factory := checkout.NewFactoryWithoutMetrics(repo, reconciler, cart.NewMockService(), sink, entry)
	manager := lifecycle.NewManagerWithoutMetrics(
		repo, reconciler, loyalty.NewMockService(), memory.NewTimelineRepository(), sink, entry,
	)

	var (
		success int64
		failed  int64
		lat     collector
		jobs    = make(chan int)
		wg      sync.WaitGroup
	)

	startedAt := time.Now()
	for w := 0; w < cfg.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				start := time.Now()
				if err := runScenario(factory, manager, i, cfg.cancelRate); err != nil {
					atomic.AddInt64(&failed, 1)
				} else {
					atomic.AddInt64(&success, 1)
				}
				lat.observe(time.Since(start))
			}
		}()
	}

	for i := 0; i < cfg.total; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(startedAt)
	total := success + failed
	rep := report{
		StartedAt:        startedAt.UTC(),
		DurationSeconds:  elapsed.Seconds(),
		TotalScenarios:   total,
		SuccessScenarios: success,
		FailedScenarios:  failed,
		ScenariosPerSec:  float64(total) / elapsed.Seconds(),
		LatencyMs:        lat.summary(),
	}
	if total > 0 {
		rep.ErrorRate = float64(failed) / float64(total)
	}

	writeReport(rep, cfg.outputPath)
}

// runScenario оформляет заказ и проводит его по жизненному циклу.
// Каждый cancelRate-й заказ отклоняется вместо доставки.
func runScenario(factory *checkout.Factory, manager *lifecycle.Manager, seq, cancelRate int) error {
	order, err := factory.PlaceOrder(checkout.PlaceOrderInput{
		OwnerID: "load-user",
		Cart: domain.CartSnapshot{
			Items: []domain.OrderItem{
				{ProductID: "load-prod", Title: "Widget", Qty: 1, UnitPriceMinor: 990},
			},
		},
	})
	if err != nil {
		return err
	}

	if _, err := manager.Transition(order.ID, domain.OrderStatusProcessing); err != nil {
		return err
	}

	if cancelRate > 0 && seq%cancelRate == 0 {
		_, err = manager.Transition(order.ID, domain.OrderStatusRefused)
		return err
	}

	if _, err := manager.Transition(order.ID, domain.OrderStatusAccepted); err != nil {
		return err
	}
	_, err = manager.Transition(order.ID, domain.OrderStatusDelivered)
	return err
}

func readFlags() config {
	var cfg config
	flag.IntVar(&cfg.total, "total", 1000, "number of scenarios to run")
	flag.IntVar(&cfg.concurrency, "concurrency", 8, "number of concurrent workers")
	flag.IntVar(&cfg.cancelRate, "cancel-rate", 10, "every Nth order is refused instead of delivered (0=never)")
	var stockFlag int
	flag.IntVar(&stockFlag, "stock", 1<<30, "initial stock of the load product")
	flag.StringVar(&cfg.outputPath, "output", "", "write JSON report to file instead of stdout")
	flag.Parse()

	if cfg.total <= 0 {
		fail("-total must be positive")
	}
	if cfg.concurrency <= 0 {
		cfg.concurrency = 1
	}
	cfg.stock = int32(stockFlag)
	return cfg
}

func writeReport(rep report, path string) {
	payload, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		fail("marshal report: %v", err)
	}

	if path == "" {
		fmt.Println(string(payload))
		return
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		fail("write report: %v", err)
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
