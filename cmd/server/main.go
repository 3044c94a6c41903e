package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/labkit/borrowd/db"
	"github.com/labkit/borrowd/db/migrations"
	"github.com/labkit/borrowd/db/store"
	"github.com/labkit/borrowd/lib/logging"
	"github.com/labkit/borrowd/lib/service"
	"github.com/labkit/borrowd/lib/tokens"
	"github.com/labkit/borrowd/lib/transport"
	"github.com/labkit/borrowd/rabbitmq"
	"github.com/uptrace/bun/migrate"
)

// @title        borrowd
// @version      0.9.0
// @description  Lifecycle maintenance service for laboratory equipment borrowing: status derivation, fine accrual and due/overdue notifications.

// @BasePath  /

// @securitydefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        Authorization
func main() {

	c := &service.Config{}

	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configured log file
	logger := logging.Logger(c.LogFilePath)

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}

	// Migrate the DB
	startupCtx := context.Background()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	err = migrator.Init(startupCtx)
	if err != nil {
		logger.Fatalf("Error initializing db migrator: %v", err)
	}
	_, err = migrator.Migrate(startupCtx)
	if err != nil {
		logger.Fatalf("Error migrating database: %v", err)
	}

	// Setup exception tracking with Sentry if configured
	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			IgnoreErrors:     []string{"401"},
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
	}

	location, err := time.LoadLocation(c.SweepTimezone)
	if err != nil {
		logger.Fatalf("Error loading sweep timezone %s: %v", c.SweepTimezone, err)
	}

	// If no RABBITMQ_URI was provided we will not attempt to create a client.
	// The sweep then skips its notification passes.
	var rabbitmqClient rabbitmq.Client
	if c.RabbitMQUri != "" {
		amqpClient, err := rabbitmq.DialAMQP(c.RabbitMQUri, rabbitmq.WithAmqpLogger(logger))
		if err != nil {
			logger.Fatal(err)
		}

		defer amqpClient.Close()

		rabbitmqClient, err = rabbitmq.NewClient(amqpClient,
			rabbitmq.WithLogger(logger),
			rabbitmq.WithNotificationExchange(c.RabbitMQNotificationExchange),
		)
		if err != nil {
			logger.Fatal(err)
		}

		// close the connection gently at the end of the runtime
		defer rabbitmqClient.Close()
	}

	svc := &service.BorrowdService{
		Config:         c,
		DB:             dbConn,
		Store:          store.NewBunStore(dbConn, c.SweepBatchSize),
		Logger:         logger,
		RabbitMQClient: rabbitmqClient,
		Location:       location,
	}

	//init echo server
	e := transport.InitEcho(c, logger)

	logMw := transport.CreateLoggingMiddleware(logger)
	// strict rate limit for the sweep trigger
	strictRateLimitMiddleware := transport.CreateRateLimitMiddleware(c.StrictRateLimit, c.BurstRateLimit)

	admin := e.Group("", tokens.AdminTokenMiddleware(c.AdminToken), logMw)
	transport.RegisterV2Endpoints(svc, e, admin, strictRateLimitMiddleware, logMw)

	var backgroundWg sync.WaitGroup
	backGroundCtx, _ := signal.NotifyContext(context.Background(), os.Interrupt)

	// Run the daily maintenance sweep in the background
	backgroundWg.Add(1)
	go func() {
		err = svc.StartSweepRoutine(backGroundCtx)
		if err != nil {
			sentry.CaptureException(err)
			svc.Logger.Error(err)
		}
		svc.Logger.Info("Sweep routine done")
		backgroundWg.Done()
	}()

	//Start Prometheus server if necessary
	if svc.Config.EnablePrometheus {
		go transport.StartPrometheusEcho(logger, svc.Config.PrometheusPort, e)
	}

	// Start server
	go func() {
		if err := e.Start(fmt.Sprintf(":%v", c.Port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-backGroundCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	//Wait for graceful shutdown of background routines
	backgroundWg.Wait()
	if err := dbConn.Close(); err != nil {
		logger.Error(err)
	}
	svc.Logger.Info("borrowd exiting gracefully. Goodbye.")
}
