// Package main provides the entrypoint for the Agri-Leafy alert notifier.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/alert"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/database"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/notify"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/notify/fcm"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/ops"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/provider/resilience"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/registry"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/telemetry"
	"github.com/buuuuds/Smart-Agri-Leafy-Shield/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "agrileafy-notifier"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Agri-Leafy alert notifier")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	projectID := os.Getenv("GCP_PROJECT_ID")
	if projectID == "" {
		log.Fatal().Msg("GCP_PROJECT_ID is required")
	}

	subscription := os.Getenv("ALERT_SUBSCRIPTION")
	if subscription == "" {
		subscription = "alert-created"
	}

	credentialsPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	if credentialsPath == "" {
		log.Fatal().Msg("GOOGLE_APPLICATION_CREDENTIALS is required")
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	// Initialize OpenTelemetry
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Repositories
	alertRepo := alert.NewPostgresRepository(pool)
	tokenRepo := registry.NewPostgresRepository(pool)

	// Push gateway: FCM v1 behind a resilient client, constructed once and
	// shared read-only across invocations.
	account, err := fcm.LoadServiceAccount(credentialsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load service account credentials")
	}

	tokenSource, err := fcm.NewTokenSource(fcm.TokenSourceConfig{Account: account})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token source")
	}

	gateways := resilience.NewHealthTracker()

	gatewayConfig := resilience.DefaultClientConfig(fcm.ProviderName)
	gatewayConfig.Health = gateways
	gatewayClient := resilience.NewClient(gatewayConfig)
	gateways.Register(fcm.ProviderName, gatewayClient)

	fcmClient := fcm.NewClient(fcm.ClientConfig{
		ProjectID:   account.ProjectID,
		TokenSource: tokenSource,
		HTTPClient:  gatewayClient,
	})
	log.Info().Str("project_id", account.ProjectID).Msg("push gateway initialized")

	// Dispatch pipeline
	resolver := registry.NewResolver(tokenRepo, log)
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Gateway: fcmClient,
		Logger:  log,
	})
	finalizer := notify.NewFinalizer(notify.FinalizerConfig{
		Alerts: alertRepo,
		Tokens: tokenRepo,
		Logger: log,
	})

	pipeline, err := worker.NewPipeline(worker.PipelineConfig{
		Alerts:     alertRepo,
		Resolver:   resolver,
		Dispatcher: dispatcher,
		Finalizer:  finalizer,
		Logger:     log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create dispatch pipeline")
	}

	// Retention sweeper on its daily schedule
	sweeper, err := worker.NewSweeper(worker.SweeperConfig{
		Alerts: alertRepo,
		Logger: log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create retention sweeper")
	}

	scheduleConfig := worker.ScheduleConfig{
		Timezone: os.Getenv("SWEEP_TIMEZONE"),
		Sweeper:  sweeper,
		Logger:   log,
	}
	if v := os.Getenv("SWEEP_HOUR"); v != "" {
		hour, err := strconv.Atoi(v)
		if err != nil {
			log.Fatal().Str("value", v).Msg("SWEEP_HOUR must be an integer")
		}
		scheduleConfig.Hour = &hour
	}

	schedule, err := worker.NewSchedule(scheduleConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create sweep schedule")
	}
	go schedule.Start(ctx)

	// Alert event feed
	pubsubHandler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        projectID,
		SubscriptionName: subscription,
		Pipeline:         pipeline,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer pubsubHandler.Close()

	go func() {
		if err := pubsubHandler.Start(ctx); err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("pubsub handler stopped")
		}
	}()

	// Ops endpoint for the hosting platform
	router := ops.NewRouter(ops.RouterConfig{
		Version:   Version,
		BuildTime: BuildTime,
		Logger:    log,
		DB:        pool,
		Pipeline:  pipeline,
		Sweeper:   sweeper,
		Gateways:  gateways,
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("ops endpoint listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ops server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down notifier")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops server forced to shutdown")
	}

	log.Info().Msg("notifier stopped")
}
