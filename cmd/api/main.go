package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Iviolo/SkinCycling-Coach/internal/api"
	"github.com/Iviolo/SkinCycling-Coach/internal/auth"
	"github.com/Iviolo/SkinCycling-Coach/internal/config"
	"github.com/Iviolo/SkinCycling-Coach/internal/domain"
	"github.com/Iviolo/SkinCycling-Coach/internal/outbox"
	"github.com/Iviolo/SkinCycling-Coach/internal/rescue"
	"github.com/Iviolo/SkinCycling-Coach/internal/storage"
	httptransport "github.com/Iviolo/SkinCycling-Coach/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger, err := cfg.NewLogger()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	defer store.Close()

	var dispatcher *outbox.Dispatcher
	if store.Pool != nil {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(store.Pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize, logger.Named("outbox"))
		go dispatcher.Start(ctx)
	}

	opts, err := storage.ServiceOptions(cfg)
	if err != nil {
		logger.Fatal("invalid service options", zap.Error(err))
	}
	service := domain.NewService(store.Repository, opts...)

	handler := api.NewHandler(service, rescue.NewRegistry(), logger.Named("api"))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Local dev origin for the web client.
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+api.SessionHeader)
			w.Header().Set("Access-Control-Expose-Headers", api.SessionHeader)
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(
		httptransport.DefaultServerConfig(cfg.HTTPAddress),
		httptransport.RequestLogger(logger.Named("http"), cors(authMiddleware.Wrap(mux))),
	)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("skincycle api listening",
			zap.String("address", cfg.HTTPAddress),
			zap.String("storage", cfg.StorageDriver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
}
