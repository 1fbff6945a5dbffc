package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medscan/internal/config"
	v1 "github.com/dmehra2102/prod-golang-projects/medscan/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/ratelimit"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/medscan/internal/service"
	"github.com/dmehra2102/prod-golang-projects/medscan/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/medscan/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/medscan/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/medscan/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/medscan/pkg/tracer"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterCleanupPeriod = 5 * time.Minute
	gaugeRefreshPeriod   = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "medscan: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log, cfg.App)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(ctx, cfg.Tracing, cfg.App.Version)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector(metricsNamespace(cfg.App.Name), reg)
	go refreshDBGauge(ctx, db, m)

	attempts, closeAttempts, err := newAttemptStore(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeAttempts()

	scanRepo := postgres.NewScanRepository(db, cfg.Database.LockTimeout)
	staffRepo := postgres.NewStaffRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	auditSvc := service.NewAuditService(auditRepo, m, log)
	jwtManager := auth.NewJWTManager(cfg.JWT)
	scanSvc := service.NewScanService(scanRepo, auditSvc, m, log, cfg.Scan.Timeout)
	historySvc := service.NewHistoryService(scanRepo, cfg.History, log)
	authSvc := service.NewAuthService(staffRepo, attempts, jwtManager, auditSvc, m, cfg.Login, log)

	globalLimiter := ratelimit.NewIPLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize, limiterIdleTTL)
	authLimiter := ratelimit.PerMinute(cfg.RateLimit.AuthRequestsPerMinute, limiterIdleTTL)
	globalLimiter.StartCleanup(limiterCleanupPeriod)
	authLimiter.StartCleanup(limiterCleanupPeriod)
	defer globalLimiter.Close()
	defer authLimiter.Close()

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := v1.NewRouter(v1.RouterDeps{
		Config:        cfg,
		Logger:        log,
		Metrics:       m,
		Tokens:        jwtManager,
		Scans:         scanSvc,
		History:       historySvc,
		Auth:          authSvc,
		Ready:         func(ctx context.Context) error { return database.Ping(ctx, db) },
		GlobalLimiter: globalLimiter,
		AuthLimiter:   authLimiter,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}

	// In-flight requests are done; flush what they queued.
	auditSvc.Shutdown()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("server stopped")
	return nil
}

// newAttemptStore prefers Redis so lockouts hold across replicas.
func newAttemptStore(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (ratelimit.AttemptStore, func(), error) {
	if cfg.Addr == "" {
		log.Warn("REDIS_ADDR not set, login attempts are tracked per process")
		store := ratelimit.NewMemoryStore()
		sweepCtx, cancel := context.WithCancel(ctx)
		go func() {
			ticker := time.NewTicker(limiterCleanupPeriod)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					store.Sweep()
				case <-sweepCtx.Done():
					return
				}
			}
		}()
		return store, cancel, nil
	}

	client, err := ratelimit.NewRedisClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return ratelimit.NewRedisStore(client, cfg.KeyPrefix), func() { _ = client.Close() }, nil
}

func refreshDBGauge(ctx context.Context, db *gorm.DB, m *metrics.Collector) {
	ticker := time.NewTicker(gaugeRefreshPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.DBConnections.Set(float64(database.OpenConnections(db)))
		case <-ctx.Done():
			return
		}
	}
}

// metricsNamespace turns the app name into a valid Prometheus namespace.
func metricsNamespace(name string) string {
	return strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name)
}
