package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/job-tracker/internal/apiclient"
	"github.com/cuongbtq/job-tracker/internal/config"
	"github.com/cuongbtq/job-tracker/internal/domain"
	"github.com/cuongbtq/job-tracker/internal/events"
	"github.com/cuongbtq/job-tracker/shared/logger"
	"github.com/cuongbtq/job-tracker/shared/rabbitmq"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
)

const usage = `Usage: tracker-cli [-config <path>] -user <name> -password <password> <command> [args]

Commands:
  register                          create the account
  list [-search s] [-filter status] [-sort asc|desc] [-page-size n] [-cursor c]
  stats                             counts per status
  show <id>                         print one job
  add -company c -role r [-status s] [-date d] [-address a] [-contact c] [-duties d] [-requirements r]
  edit <id> [field flags as for add]
  delete <id> [-yes]                delete one of your jobs
  watch                             follow your tracker events from RabbitMQ
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	configPath := flag.String("config", os.Getenv("TRACKER_CLI_CONFIG_PATH"), "Path to configuration file (defaults apply when empty)")
	user := flag.String("user", os.Getenv("TRACKER_USER"), "Username")
	password := flag.String("password", os.Getenv("TRACKER_PASSWORD"), "Password")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return fmt.Errorf("missing command")
	}
	command := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateCLIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if command == "watch" {
		if err := cfg.ValidateWatchConfig(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	api, err := apiclient.NewClient(apiclient.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
		Logger:  appLogger.Component("apiclient"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize backend client: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	emitter, stopEvents, err := initEvents(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer stopEvents()

	a := newApp(api, emitter, appLogger.Logger, os.Stdout, os.Stdin)
	a.creds = domain.Credentials{Username: *user, Password: *password}
	a.redirectDelay = cfg.UI.RedirectDelay
	a.prefetch = cfg.RabbitMQ.Consumer.PrefetchCount
	a.subscribe = func() (<-chan amqp.Delivery, io.Closer, error) {
		client, err := rabbitmq.NewClient(rabbitConfig(&cfg.RabbitMQ, cfg.RabbitMQ.Queue.Name), appLogger.Component("rabbitmq"))
		if err != nil {
			return nil, nil, err
		}
		deliveries, err := client.Consume("tracker-cli", a.prefetch)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return deliveries, client, nil
	}

	return a.run(ctx, flag.Args())
}

// initLogger sends logs to stderr so command output stays clean
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	output := cfg.Output
	if output == "" || output == "stdout" {
		output = "stderr"
	}
	level := cfg.Level
	if level == "" || level == "info" {
		level = "warn"
	}

	return logger.New(&logger.Config{
		Level:        level,
		Format:       cfg.Format,
		Output:       output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.Kitchen,
	})
}

// initEvents starts a dispatcher publishing to RabbitMQ when enabled. The returned
// stop function flushes pending events.
func initEvents(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (events.Emitter, func(), error) {
	if !cfg.RabbitMQ.Enabled {
		return events.Nop{}, func() {}, nil
	}

	client, err := rabbitmq.NewClient(rabbitConfig(&cfg.RabbitMQ, ""), appLogger.Component("rabbitmq"))
	if err != nil {
		return nil, nil, err
	}

	dispatcher := events.NewDispatcher(events.NewAMQPPublisher(client, appLogger.Logger), events.DispatcherConfig{
		Workers:        1,
		QueueSize:      cfg.Events.QueueSize,
		MaxAttempts:    cfg.Events.MaxAttempts,
		PublishTimeout: cfg.Events.PublishTimeout,
	}, appLogger.Component("events"))
	dispatcher.Start(ctx)

	return dispatcher, func() {
		dispatcher.Stop()
		client.Close()
	}, nil
}

// rabbitConfig maps the RabbitMQ section; an empty queue declares only the exchange
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
