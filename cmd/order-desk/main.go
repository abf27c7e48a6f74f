package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/order-desk/internal/cart"
	"github.com/fjod/order-desk/internal/catalog"
	"github.com/fjod/order-desk/internal/config"
	"github.com/fjod/order-desk/internal/drafts"
	deskhttp "github.com/fjod/order-desk/internal/http"
	"github.com/fjod/order-desk/internal/invoice"
	"github.com/fjod/order-desk/internal/location"
	"github.com/fjod/order-desk/internal/logger"
	"github.com/fjod/order-desk/internal/metrics"
	"github.com/fjod/order-desk/internal/overlay"
	"github.com/fjod/order-desk/internal/publisher"
	"github.com/fjod/order-desk/internal/ratelookup"
	"github.com/fjod/order-desk/internal/repository"
	"github.com/fjod/order-desk/internal/service"
	"github.com/fjod/order-desk/internal/shipping"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	configPath := flag.String("config", os.Getenv("ORDERDESK_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("order desk stopped with error", zap.Error(err))
	}
}

func run(cfg config.Config, lg *zap.Logger) error {
	lg.Info("order desk starting...")
	// Incoming traceparent headers end up in request logs through logger.FromContext.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	var wg sync.WaitGroup
	ctx := context.Background()

	// Postgres: orders, buyers, payment methods, outbox
	repo, err := repository.NewRepository(&cfg.Postgres, lg)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(&cfg.Postgres); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}
	lg.Info("database migrations completed")

	// SQLite: carrier catalog and seller preferences
	cat, err := catalog.NewRepository(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()
	if err := cat.RunMigrations(cfg.SQLite.Migrations); err != nil {
		return fmt.Errorf("catalog migrations: %w", err)
	}

	// Redis: cart cache and edit-session overlay
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	var kv overlay.KV
	switch cfg.Overlay.Backend {
	case "memory":
		mem := overlay.NewMemoryKV(cfg.Overlay.TTL)
		defer mem.Close()
		kv = mem
	default:
		kv = overlay.NewRedisKV(rdb, cfg.Overlay.TTL)
	}
	sessions := overlay.NewStore(kv)

	// Mongo: active cart
	mongoCtx, mongoCancel := context.WithTimeout(ctx, 15*time.Second)
	mdb, err := cart.ConnectMongoDB(mongoCtx, cfg.Mongo)
	mongoCancel()
	if err != nil {
		return err
	}
	defer func() { _ = mdb.Client().Disconnect(context.Background()) }()

	cartRepo := cart.NewMongoRepository(mdb)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		return fmt.Errorf("cart indexes: %w", err)
	}
	carts := cart.NewService(cartRepo, cart.NewRedisCache(rdb), lg)

	// Collaborators
	rates, err := ratelookup.NewClient(cfg.Rates, lg)
	if err != nil {
		return err
	}
	resolver, err := shipping.NewResolver(shipping.ResolverDeps{
		Catalog:        cat,
		Quoter:         rates,
		OriginDistrict: cfg.Checkout.OriginDistrict,
		Logger:         lg,
	})
	if err != nil {
		return err
	}

	deps := service.Deps{
		Orders:   repo,
		Cart:     carts,
		Sessions: sessions,
		Shipping: resolver,
		Catalog:  cat,
		Drafts:   drafts.NewMatcher(repo),
		Logger:   lg,
	}

	if cfg.Location.BaseURL != "" {
		locations, err := location.NewClient(cfg.Location, lg)
		if err != nil {
			return err
		}
		deps.Locations = locations
	} else {
		lg.Warn("location service not configured, city text is kept as typed")
	}

	if cfg.Invoice.BaseURL != "" {
		renderer, err := invoice.NewRenderer(cfg.Invoice, lg)
		if err != nil {
			return err
		}
		deps.Invoices = renderer
	} else {
		lg.Warn("invoice renderer not configured, checkouts will carry a render warning")
	}

	m := metrics.New()
	deps.Observer = m

	desk, err := service.NewDesk(deps)
	if err != nil {
		return err
	}

	// Outbox poller
	poller := publisher.NewOutboxPoller(repo, cfg.Kafka, lg)
	poller.OnPublished(m.EventPublished)
	pollerCtx, pollerCancel := context.WithCancel(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(pollerCtx)
	}()

	// gRPC: health and reflection for the orchestrator liveness checks
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		pollerCancel()
		return fmt.Errorf("listen grpc: %w", err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		lg.Info("grpc health listening", zap.String("addr", cfg.GRPC.Addr))
		if err := grpcServer.Serve(lis); err != nil {
			lg.Error("grpc server failed", zap.Error(err))
		}
	}()

	// HTTP
	router := deskhttp.NewRouter(deskhttp.RouterConfig{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxBodySize:    cfg.HTTP.MaxRequestBodySize,
		Ready: func(ctx context.Context) error {
			if err := repo.Ping(); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},
	}, desk, m, lg)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		lg.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		lg.Info("shutting down order desk", zap.String("signal", sig.String()))
	case runErr = <-serverErr:
		lg.Error("http server failed", zap.Error(runErr))
	}

	healthServer.Shutdown()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	pollerCancel()

	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		lg.Info("outbox poller stopped cleanly")
	case <-shutdownCtx.Done():
		lg.Warn("outbox poller didn't stop in time")
	}

	if err := poller.Close(); err != nil {
		lg.Warn("close kafka writer", zap.Error(err))
	}
	lg.Info("order desk stopped")
	return runErr
}
