package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"registrar/internal/auth"
	"registrar/internal/platform/config"
	"registrar/internal/platform/database"
	"registrar/internal/platform/httpserver"
	"registrar/internal/platform/logger"
	platformmetrics "registrar/internal/platform/metrics"
	"registrar/internal/platform/middleware"
	platformredis "registrar/internal/platform/redis"
	"registrar/internal/registration/handler"
	regmetrics "registrar/internal/registration/metrics"
	"registrar/internal/registration/models"
	"registrar/internal/registration/service"
	"registrar/internal/registration/store/association"
	"registrar/internal/registration/store/entity"
	"registrar/pkg/platform/audit"
	auditkafka "registrar/pkg/platform/audit/kafka"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Per-source stores share one entity pool; only the link tables differ.
	storesFor := map[models.Source]service.Stores{}
	txFor := map[models.Source]service.StoreTx{}

	if cfg.Postgres.DSN != "" {
		db, err := database.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		entities := entity.NewPostgres(db)
		for _, source := range []models.Source{models.SourceWhois, models.SourceRdap} {
			stores := service.Stores{
				Entities:     entities,
				Associations: association.NewPostgres(db, source),
			}
			storesFor[source] = stores
			txFor[source] = newRegistrationPostgresTx(db, stores, log)
		}
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		entities := entity.NewInMemory()
		for _, source := range []models.Source{models.SourceWhois, models.SourceRdap} {
			stores := service.Stores{
				Entities:     entities,
				Associations: association.NewInMemory(source, entities),
			}
			storesFor[source] = stores
			txFor[source] = service.NewMemoryTx(stores)
		}
	}

	emitter, closeAudit := buildAuditEmitter(ctx, cfg, log)
	defer closeAudit()

	var cache service.RelatedCache
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		cache = service.NewRedisRelatedCache(redisClient.Client, cfg.Redis.RelatedTTL, log)
	}

	regMetrics := regmetrics.New()
	httpMetrics := platformmetrics.New()

	linkers := map[models.Source]handler.Linker{}
	serviceLinkers := make([]*service.Linker, 0, 2)
	for _, source := range []models.Source{models.SourceWhois, models.SourceRdap} {
		opts := []service.Option{
			service.WithLogger(log),
			service.WithMetrics(regMetrics),
			service.WithAudit(emitter),
		}
		if cache != nil {
			opts = append(opts, service.WithRelatedCache(cache))
		}
		l := service.NewLinker(source, storesFor[source], txFor[source], opts...)
		linkers[source] = l
		serviceLinkers = append(serviceLinkers, l)
	}
	aggregator := service.NewAggregator(serviceLinkers...)

	requireAuth := buildAuth(cfg, log)
	h := handler.New(log, linkers, aggregator, requireAuth)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.Latency(httpMetrics))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	h.Register(router)

	srv := httpserver.New(cfg.Server, router)

	go func() {
		log.Info("starting registrar", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// buildAuditEmitter picks the audit sink: Kafka when brokers are configured,
// otherwise an in-process worker draining to memory.
func buildAuditEmitter(ctx context.Context, cfg config.Config, log *slog.Logger) (audit.Emitter, func()) {
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := auditkafka.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			log.Error("kafka audit publisher failed", "error", err)
			os.Exit(1)
		}
		return publisher, publisher.Close
	}

	log.Warn("no kafka brokers configured, auditing in memory")
	inbox := make(chan audit.Event, 256)
	worker := audit.NewWorker(audit.NewInMemoryStore(), inbox)
	workerCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()
	return audit.NewChannelEmitter(inbox), cancel
}

// buildAuth assembles the write-route guard from whichever credential schemes
// are configured. Returns nil when none are, leaving writes open for dev.
func buildAuth(cfg config.Config, log *slog.Logger) func(http.Handler) http.Handler {
	var validator middleware.JWTValidator
	if cfg.Auth.JWTSigningKey != "" {
		validator = auth.NewJWTService(cfg.Auth.JWTSigningKey, "registrar", "registrar")
	}
	var apiKeys middleware.APIKeyVerifier
	if cfg.Auth.APIKeyHash != "" {
		apiKeys = auth.NewAPIKeys(cfg.Auth.APIKeyHash)
	}
	if validator == nil && apiKeys == nil {
		log.Warn("no auth configured, write routes are open")
		return nil
	}
	return middleware.RequireAuth(validator, apiKeys, log)
}
