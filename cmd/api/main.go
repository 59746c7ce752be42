package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streamhub/internal/core/services"
	httphandlers "streamhub/internal/handlers/http"
	"streamhub/internal/infrastructure/monitoring"
	"streamhub/internal/infrastructure/reliability"
	"streamhub/internal/infrastructure/repositories"
	"streamhub/internal/infrastructure/security"
	"streamhub/pkg/config"
	"streamhub/pkg/logger"
	"streamhub/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	healthCheckInterval = 30 * time.Second
	healthCheckTimeout  = 3 * time.Second
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Sugar().Fatalw("failed to load configuration", "path", *configPath, "error", err)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerEndpoint,
		Environment: os.Getenv("STREAMHUB_ENV"),
		SampleRate:  cfg.Tracing.SamplingRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	collector := monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), time.Minute)
	repoFactory, err := repositories.NewRepositoryFactory(startupCtx, cfg, log)
	startupCancel()
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}

	// Stores sit behind a circuit breaker; reads are retried
	streamRepo := reliability.NewStreamRepositoryWrapper(
		repoFactory.CreateStreamRepository(),
		cfg.Reliability.Retry,
		cfg.Reliability.CircuitBreaker,
		log,
		collector,
	)
	userRepo := reliability.NewUserRepositoryWrapper(
		repoFactory.CreateUserRepository(),
		cfg.Reliability.Retry,
		cfg.Reliability.CircuitBreaker,
		log,
		collector,
	)

	hasher, err := security.NewPasswordHasher(cfg.Auth.PasswordScheme, cfg.Auth.BcryptCost, cfg.Auth.PBKDF2Rounds)
	if err != nil {
		log.Fatalw("failed to create password hasher", "error", err)
	}
	tokenCodec, err := security.NewJWTCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm)
	if err != nil {
		log.Fatalw("failed to create token codec", "error", err)
	}
	clock := security.SystemClock{}

	authService := services.NewAuthService(userRepo, hasher, tokenCodec, clock, cfg.Auth.AccessTokenTTL, log, collector)
	streamService := services.NewStreamService(streamRepo, clock, log, collector)

	// Dependency checks feed /health/ready and the dependency_up gauge
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.OnResult(collector.RecordDependencyCheck)
	repoFactory.RegisterHealthChecks(healthChecker, healthCheckInterval, healthCheckTimeout)

	checksCtx, stopChecks := context.WithCancel(context.Background())
	defer stopChecks()
	healthChecker.StartBackgroundChecks(checksCtx)

	readyCtx, readyCancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	if !healthChecker.IsReady(readyCtx) {
		log.Warnw("dependencies not ready at startup, /health/ready reports 503 until they recover")
	}
	readyCancel()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := httphandlers.RouterDeps{
		Config:        cfg,
		Logger:        zapLogger,
		AuthService:   authService,
		StreamService: streamService,
		Health:        httphandlers.NewHealthHandler(repoFactory, healthChecker, healthCheckTimeout),
		Metrics:       collector,
	}
	if cfg.Monitoring.PrometheusEnabled {
		deps.MetricsHandler = promhttp.Handler()
		log.Infow("prometheus metrics enabled", "path", cfg.Monitoring.MetricsPath)
	}
	router := httphandlers.NewRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting streamhub API server",
			"address", cfg.Server.Address,
			"store", repoFactory.Backend(),
			"database", repoFactory.DatabaseName(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	log.Info("shutting down streamhub API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	} else {
		log.Info("server shutdown gracefully")
	}

	stopChecks()

	if err := repoFactory.Close(shutdownCtx); err != nil {
		log.Errorw("error closing repositories", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error shutting down tracer provider", "error", err)
	}

	log.Info("streamhub API server stopped")
}
