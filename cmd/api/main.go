package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bakery-platform/inventory/internal/application"
	"github.com/bakery-platform/inventory/internal/config"
	mongoRepo "github.com/bakery-platform/inventory/internal/infrastructure/mongodb"
	"github.com/bakery-platform/inventory/pkg/cloudevents"
	"github.com/bakery-platform/inventory/pkg/idempotency"
	"github.com/bakery-platform/inventory/pkg/kafka"
	"github.com/bakery-platform/inventory/pkg/logging"
	"github.com/bakery-platform/inventory/pkg/metrics"
	"github.com/bakery-platform/inventory/pkg/middleware"
	"github.com/bakery-platform/inventory/pkg/mongodb"
	"github.com/bakery-platform/inventory/pkg/outbox"
	"github.com/bakery-platform/inventory/pkg/resilience"
	"github.com/bakery-platform/inventory/pkg/tracing"
)

var errSchedulerStopped = errors.New("rollover scheduler is not running")

// services is everything the router needs
type services struct {
	inventory   *application.InventoryApplicationService
	recipes     *application.RecipeApplicationService
	consumption *application.ConsumptionService
	records     *application.RecordApplicationService
	scheduler   *application.RolloverScheduler
	idempotency *idempotency.Config
	ready       map[string]func(context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig(config.ServiceName)).WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	logger := logging.New(cfg.LoggingConfig())
	logger.SetDefault()
	logger.Info("Starting bakery inventory API", "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	location, err := cfg.Location()
	if err != nil {
		logger.WithError(err).Error("Invalid timezone")
		os.Exit(1)
	}

	// Tracing is optional; keep going without it
	tracerProvider, err := tracing.Initialize(ctx, cfg.TracingConfig())
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
	}

	m := metrics.New(metrics.DefaultConfig(config.ServiceName))

	var mongoClient *mongodb.Client
	err = resilience.Retry(ctx, resilience.DefaultRetryPolicy(), func(ctx context.Context) error {
		var connErr error
		mongoClient, connErr = mongodb.NewClient(ctx, cfg.MongoConfig())
		if errors.Is(connErr, mongodb.ErrTransactionsUnsupported) {
			return resilience.Permanent(connErr)
		}
		if connErr != nil {
			logger.WithError(connErr).Warn("MongoDB not reachable, retrying")
		}
		return connErr
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	instrumentedMongo := mongodb.NewInstrumentedClient(mongoClient, m, logger)
	defer instrumentedMongo.Close(context.Background())
	logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceInventory)

	inventoryRepo := mongoRepo.NewInventoryRepository(instrumentedMongo, eventFactory)
	recipeRepo := mongoRepo.NewRecipeRepository(instrumentedMongo, logger)
	recordRepo := mongoRepo.NewDailyRecordRepository(instrumentedMongo, eventFactory)
	rolloverUoW := mongoRepo.NewRolloverUnitOfWork(instrumentedMongo, inventoryRepo, recordRepo)
	idempotencyRepo := idempotency.NewMongoKeyRepository(instrumentedMongo, idempotency.DefaultLockTimeout)

	for name, ensure := range map[string]func(context.Context) error{
		"inventory":   inventoryRepo.EnsureIndexes,
		"recipes":     recipeRepo.EnsureIndexes,
		"records":     recordRepo.EnsureIndexes,
		"idempotency": idempotencyRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			logger.WithError(err).Error("Failed to create indexes", "collection", name)
			os.Exit(1)
		}
	}

	rolloverConfig, err := cfg.RolloverConfig()
	if err != nil {
		logger.WithError(err).Error("Invalid scheduler configuration")
		os.Exit(1)
	}

	lock := &application.LedgerLock{}
	scheduler := application.NewRolloverScheduler(inventoryRepo, rolloverUoW, lock, rolloverConfig, m, logger)
	inventoryService := application.NewInventoryApplicationService(inventoryRepo, lock, m, logger)
	recipeService := application.NewRecipeApplicationService(recipeRepo, logger)
	consumptionService := application.NewConsumptionService(inventoryRepo, recipeRepo, lock, scheduler, m, logger)
	recordService := application.NewRecordApplicationService(recordRepo, inventoryRepo, m, logger)
	autosave := application.NewAutosaveJob(recordService, scheduler, cfg.Scheduler.AutosaveInterval, location, logger)

	if err := scheduler.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start rollover scheduler")
		os.Exit(1)
	}
	defer scheduler.Stop()

	if err := autosave.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start autosave job")
		os.Exit(1)
	}
	defer autosave.Stop()

	// Events stay in the outbox until a broker is configured
	if cfg.PublishingEnabled() {
		producer := kafka.NewProductionProducer(cfg.KafkaConfig(), m, logger)
		defer producer.Close()

		publisher := outbox.NewPublisher(inventoryRepo.GetOutboxRepository(), producer, logger, m, cfg.OutboxPublisherConfig())
		if err := publisher.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start outbox publisher")
			os.Exit(1)
		}
		defer publisher.Stop()
		logger.Info("Outbox publisher started", "brokers", cfg.Kafka.Brokers)
	} else {
		logger.Warn("No Kafka brokers configured, events stay in the outbox")
	}

	idempotencyConfig := idempotency.DefaultConfig(config.ServiceName, idempotencyRepo, logger)
	idempotencyConfig.Metrics = idempotency.NewMetrics(m.Registry(), "bakery")

	mwConfig := middleware.DefaultConfig(config.ServiceName, logger)
	mwConfig.AllowedOrigins = cfg.AllowedOrigins
	mwConfig.RequestTimeout = cfg.RequestTimeout

	router := newRouter(mwConfig, m, logger, services{
		inventory:   inventoryService,
		recipes:     recipeService,
		consumption: consumptionService,
		records:     recordService,
		scheduler:   scheduler,
		idempotency: idempotencyConfig,
		ready: map[string]func(context.Context) error{
			"mongodb": instrumentedMongo.HealthCheck,
			"rollover-scheduler": func(context.Context) error {
				if !scheduler.IsRunning() {
					return errSchedulerStopped
				}
				return nil
			},
		},
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			stop()
		}
	}()
	logger.Info("Server started", "addr", cfg.ServerAddr)

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

func newRouter(mwConfig *middleware.Config, m *metrics.Metrics, logger *logging.Logger, svc services) *gin.Engine {
	router := gin.New()

	middleware.Setup(router, mwConfig)
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(config.ServiceName))

	router.GET("/health", middleware.HealthCheck(config.ServiceName))
	router.GET("/ready", middleware.ReadinessCheck(config.ServiceName, svc.ready))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	api := router.Group("/api/v1")

	inventory := api.Group("/inventory")
	{
		// Static routes before :id
		inventory.GET("", listInventoryHandler(svc.inventory, logger))
		inventory.POST("", createItemHandler(svc.inventory, logger))
		inventory.GET("/low-stock", lowStockHandler(svc.inventory, logger))

		inventory.GET("/:id", getItemHandler(svc.inventory, logger))
		inventory.PUT("/:id", updateItemHandler(svc.inventory, logger))
		inventory.DELETE("/:id", deleteItemHandler(svc.inventory, logger))
	}

	recipes := api.Group("/recipes")
	{
		recipes.GET("", listRecipesHandler(svc.recipes, logger))
		recipes.POST("", createRecipeHandler(svc.recipes, logger))
		recipes.GET("/:id", getRecipeHandler(svc.recipes, logger))
		recipes.DELETE("/:id", deleteRecipeHandler(svc.recipes, logger))
	}

	orders := api.Group("/orders")
	if svc.idempotency != nil {
		orders.Use(idempotency.Middleware(svc.idempotency))
	}
	orders.POST("", applyOrderHandler(svc.consumption, logger))

	records := api.Group("/records")
	{
		records.GET("", listRecordsHandler(svc.records, logger))
		records.POST("", saveRecordHandler(svc.records, logger))
		records.POST("/snapshot", snapshotHandler(svc.records, logger))
		records.DELETE("/:date/:itemId", deleteRecordHandler(svc.records, logger))
	}

	cycle := api.Group("/cycle")
	{
		cycle.GET("", cycleStatusHandler(svc.scheduler))
		cycle.POST("/rollover", rolloverHandler(svc.scheduler, logger))
	}

	return router
}
