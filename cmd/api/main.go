package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/glowdesk/glowdesk-api/cmd/mainconfig"
	"github.com/glowdesk/glowdesk-api/internal/api/router"
	"github.com/glowdesk/glowdesk-api/internal/appointments"
	"github.com/glowdesk/glowdesk-api/internal/archive"
	"github.com/glowdesk/glowdesk-api/internal/availability"
	"github.com/glowdesk/glowdesk-api/internal/branch"
	appconfig "github.com/glowdesk/glowdesk-api/internal/config"
	"github.com/glowdesk/glowdesk-api/internal/events"
	"github.com/glowdesk/glowdesk-api/internal/queue"
	"github.com/glowdesk/glowdesk-api/internal/recurrence"
	"github.com/glowdesk/glowdesk-api/internal/resources"
	"github.com/glowdesk/glowdesk-api/internal/schedule"
	"github.com/glowdesk/glowdesk-api/pkg/logging"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting glowdesk API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg)

	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Stores and domain services.
	scheduleStore := schedule.NewStore(dynamoClient, cfg.SchedulesTable, logger)
	scheduleService := schedule.NewService(scheduleStore, schedule.NewResolver(logger), logger)

	branchStore := branch.NewStore(redisClient)
	branchGate := branch.NewGate(branchStore)

	apptRepo := appointments.NewRepository(dynamoClient, cfg.AppointmentsTable, cfg.SlotLocksTable, logger)
	conflictDetector := appointments.NewDetector(apptRepo, logger)

	resourceStore := resources.NewStore(dynamoClient, cfg.ResourcesTable, logger)
	resourceChecker := resources.NewChecker(resourceStore, apptRepo, logger)

	policy := availability.PolicyPermit
	if cfg.AvailabilityOnError == "deny" {
		policy = availability.PolicyDeny
	}
	checker := availability.NewChecker(
		branchGate,
		scheduleService,
		conflictDetector,
		resourceChecker,
		policy,
		logger,
		availability.WithTracer(otel.Tracer("availability")),
		availability.WithMetrics(availability.NewMetrics(registry)),
	)
	slotGenerator := availability.NewSlotGenerator(checker, scheduleService, cfg.SlotGranularityMinutes, logger)

	var bookingQueue queue.Queue
	if cfg.UseMemoryQueue || cfg.BookingEventsQueueURL == "" {
		bookingQueue = queue.NewMemoryQueue()
		logger.Info("using in-memory booking events queue")
	} else {
		bookingQueue = queue.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.BookingEventsQueueURL)
	}
	publisher := events.NewPublisher(bookingQueue)

	var auditStore *archive.Store
	if cfg.AuditArchiveBucket != "" {
		auditStore = archive.NewStore(s3.NewFromConfig(awsCfg), cfg.AuditArchiveBucket, logger)
	} else {
		auditStore = archive.NewStore(nil, "", logger)
		logger.Info("audit archiving disabled, no bucket configured")
	}

	expanderOpts := []recurrence.ExpanderOption{
		recurrence.WithMaxOccurrences(cfg.RecurrenceMaxOccurrences),
	}
	if cfg.RecurrenceRevalidate {
		expanderOpts = append(expanderOpts, recurrence.WithRevalidation(checker))
	}
	expander := recurrence.NewExpander(apptRepo, logger, expanderOpts...)

	apptService := appointments.NewService(apptRepo, checker, logger,
		appointments.WithExpander(expander),
		appointments.WithPublisher(publisher),
		appointments.WithArchiver(auditStore),
	)

	r := router.New(&router.Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(apptService, logger),
		AvailabilityHandler: availability.NewHandler(checker, slotGenerator, logger),
		ScheduleHandler:     schedule.NewHandler(scheduleStore, logger),
		BranchHandler:       branch.NewHandler(branchStore, logger),
		ResourcesHandler:    resources.NewHandler(resourceStore, logger),
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret:     cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		logger.Error("failed to close redis client", "error", err)
	}
	logger.Info("server stopped")
}
