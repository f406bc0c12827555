package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/job-tracker/internal/apiclient"
	"github.com/cuongbtq/job-tracker/internal/auth"
	"github.com/cuongbtq/job-tracker/internal/config"
	"github.com/cuongbtq/job-tracker/internal/events"
	"github.com/cuongbtq/job-tracker/internal/session"
	"github.com/cuongbtq/job-tracker/internal/web/handler"
	"github.com/cuongbtq/job-tracker/internal/web/router"
	"github.com/cuongbtq/job-tracker/internal/web/ws"
	"github.com/cuongbtq/job-tracker/shared/logger"
	"github.com/cuongbtq/job-tracker/shared/postgresql"
	"github.com/cuongbtq/job-tracker/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("TRACKER_WEB_CONFIG_PATH")
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file (defaults apply when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWebConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting tracker web",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("backend", cfg.Backend.BaseURL),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api, err := initAPIClient(&cfg.Backend, appLogger.Component("apiclient"))
	if err != nil {
		return fmt.Errorf("failed to initialize backend client: %w", err)
	}

	store, dbClient, err := initSessionStore(ctx, cfg, appLogger.Component("session"))
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}

	publisher, rabbitClient, err := initPublisher(&cfg.RabbitMQ, appLogger.Component("rabbitmq"))
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	dispatcher := events.NewDispatcher(publisher, events.DispatcherConfig{
		Workers:        cfg.Events.Workers,
		QueueSize:      cfg.Events.QueueSize,
		MaxAttempts:    cfg.Events.MaxAttempts,
		PublishTimeout: cfg.Events.PublishTimeout,
	}, appLogger.Component("events"))
	dispatcher.Start(ctx)

	hub := ws.NewHub(appLogger.Component("ws"))
	go hub.Run(ctx)

	deps := &handler.Dependencies{
		Logger: appLogger.Logger,
		Auth:   auth.NewService(api, store, dispatcher, cfg.Session.TTL, appLogger.Component("auth")),
		API:    api,
		Events: dispatcher,
		Hub:    hub,
		Settings: handler.Settings{
			CookieName:     cfg.Session.CookieName,
			SecureCookies:  cfg.Server.SecureCookies,
			SessionTTL:     cfg.Session.TTL,
			ToastDuration:  cfg.UI.ToastDuration,
			RedirectDelay:  cfg.UI.RedirectDelay,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		},
	}
	h := handler.NewHandler(deps)

	go purgeLoop(ctx, cfg.Session, store, h.Workspaces(), appLogger.Logger)

	r := initRouter(cfg.App.Environment, deps, h)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	appLogger.Info("Tracker web is running",
		slog.String("address", addr),
		slog.String("session_driver", cfg.Session.Driver),
		slog.Bool("events_enabled", cfg.RabbitMQ.Enabled),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Server failed", slog.Any("error", err))
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	cleanup := func() {
		cancel()
		h.Workspaces().Close()
		dispatcher.Stop()
		if rabbitClient != nil {
			rabbitClient.Close()
		}
		if dbClient != nil {
			dbClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initAPIClient creates the client of the REST backend
func initAPIClient(cfg *config.BackendConfig, logger *slog.Logger) (*apiclient.Client, error) {
	return apiclient.NewClient(apiclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
}

type purgeableStore interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// initSessionStore picks the session store by driver. The PostgreSQL client is
// returned so it can be closed on shutdown.
func initSessionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, *postgresql.Client, error) {
	if cfg.Session.Driver != config.SessionDriverPostgres {
		return session.NewMemoryStore(), nil, nil
	}

	db := cfg.Database
	dbClient, err := postgresql.NewClient(ctx, &postgresql.Config{
		Host:            db.Host,
		Port:            db.Port,
		User:            db.User,
		Password:        db.Password,
		Database:        db.Database,
		SSLMode:         db.SSLMode,
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
		ConnMaxIdleTime: db.ConnMaxIdleTime,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	store := session.NewPostgresStore(dbClient.GetDB(), logger)
	if err := store.Migrate(ctx); err != nil {
		dbClient.Close()
		return nil, nil, err
	}
	return store, dbClient, nil
}

// initPublisher connects to RabbitMQ when enabled. Events are dropped otherwise.
func initPublisher(cfg *config.RabbitMQConfig, logger *slog.Logger) (events.Publisher, *rabbitmq.Client, error) {
	if !cfg.Enabled {
		logger.Info("RabbitMQ disabled, events will not be published")
		return events.Nop{}, nil, nil
	}

	client, err := rabbitmq.NewClient(rabbitConfig(cfg, ""), logger)
	if err != nil {
		return nil, nil, err
	}
	return events.NewAMQPPublisher(client, logger), client, nil
}

// rabbitConfig maps the RabbitMQ section. Publishers pass an empty queue so only
// the exchange is declared.
func rabbitConfig(cfg *config.RabbitMQConfig, queue string) *rabbitmq.Config {
	return &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          queue,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.BindingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}
}

// purgeLoop drops expired sessions and idle workspaces
func purgeLoop(ctx context.Context, cfg config.SessionConfig, store session.Store, workspaces *handler.Workspaces, logger *slog.Logger) {
	if cfg.PurgeInterval <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p, ok := store.(purgeableStore); ok {
				n, err := p.PurgeExpired(ctx)
				if err != nil {
					logger.Error("Failed to purge sessions", slog.Any("error", err))
				} else if n > 0 {
					logger.Info("Purged expired sessions", slog.Int64("count", n))
				}
			}
			if cfg.TTL > 0 {
				workspaces.Prune(cfg.TTL)
			}
		}
	}
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies, h *handler.Handler) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps, h)
}
