package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/notify"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Config описывает настройки запуска движка заказов.
type Config struct {
	GRPCAddr    string
	MetricsAddr string

	// PostgresDSN включает хранение документов заказов в PostgreSQL.
	// Пустое значение означает in-memory хранилище.
	PostgresDSN string

	// KafkaBrokers включает публикацию уведомлений в Kafka.
	// Пустое значение означает публикацию в лог.
	KafkaBrokers string

	// NotificationBacklogThreshold — backlog очереди, после которого
	// health check деградирует.
	NotificationBacklogThreshold int
}

// DefaultConfig возвращает базовые адреса и пороги.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:                     ":50051",
		MetricsAddr:                  ":9090",
		NotificationBacklogThreshold: 1000,
	}
}

// Run собирает движок и держит его запущенным до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	backend, store, err := initOrderBackend(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return err
	}
	defer func() {
		if store != nil {
			_ = store.Close()
		}
	}()

	deps, err := NewDependencies(backend, logger)
	if err != nil {
		return err
	}

	publisher, kafkaProducer := initNotificationPublisher(cfg.KafkaBrokers, logger)
	if kafkaProducer != nil {
		events := kafka.NewOrderEventPublisher(kafkaProducer, kafka.TopicOrderEvents)
		deps.Checkout.SetEventPublisher(events)
		deps.Lifecycle.SetEventPublisher(events)
	}

	dispatcher := notify.NewDispatcher(
		deps.Queue,
		publisher,
		notify.WithDispatcherLogger(logger.WithField("component", "notify-dispatcher")),
	)
	janitor := notify.NewJanitor(
		deps.Queue,
		notify.WithJanitorLogger(logger.WithField("component", "notify-janitor")),
	)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		dispatcher.Run(workerCtx)
	}()
	go func() {
		defer workers.Done()
		janitor.Run(workerCtx)
	}()

	grpcMetrics := promgrpc.NewServerMetrics()
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("grpc metrics registration failed")
		}
	}
	grpcMetrics.InitializeMetrics(grpcServer)

	// grpcurl и прочим инструментам нужен reflection
	reflection.Register(grpcServer)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// HTTP health checks
	healthHandler := healthcheck.NewHandler(version.String())
	healthHandler.RegisterChecker("notification-queue", healthcheck.NewQueueBacklogChecker(
		"notification-queue", deps.Queue, cfg.NotificationBacklogThreshold,
	))
	if store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		}))
	}

	opsSrv := startOpsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("движок заказов принимает gRPC на %s", cfg.GRPCAddr)
		serveErr <- grpcServer.Serve(lis)
	}()

	cleanup := func() {
		stopHTTP(opsSrv, logger)
		stopWorkers()
		workers.Wait()
		closeKafka(kafkaProducer, logger)
	}

	select {
	case <-ctx.Done():
		logger.Info("останавливаемся по сигналу")
		drained := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(5 * time.Second):
			logger.Warn("graceful stop не уложился в таймаут, останавливаем жёстко")
			grpcServer.Stop()
		}
		cleanup()
		return ctx.Err()
	case err := <-serveErr:
		cleanup()
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// startOpsServer поднимает операционный HTTP: метрики Prometheus и health probes.
func startOpsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("операционный HTTP на %s: /metrics, /healthz, /livez, /readyz", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("ops http listener exited with error")
		}
	}()

	go func() {
		<-ctx.Done()
		stopHTTP(srv, logger)
	}()

	return srv
}

// stopHTTP аккуратно останавливает HTTP-сервер.
func stopHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("ops http shutdown finished with error")
	}
}
