// Package app wires configuration, storage, the Fakturownia client and the
// processor together for the command binaries.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	awsclient "github.com/pablop76/hikashop-fakturownia/internal/client/aws"
	"github.com/pablop76/hikashop-fakturownia/internal/client/fakturownia"
	httpClient "github.com/pablop76/hikashop-fakturownia/internal/client/http"
	"github.com/pablop76/hikashop-fakturownia/internal/config"
	"github.com/pablop76/hikashop-fakturownia/internal/handlers"
	"github.com/pablop76/hikashop-fakturownia/internal/helpers"
	"github.com/pablop76/hikashop-fakturownia/internal/kafka"
	"github.com/pablop76/hikashop-fakturownia/internal/logger"
	"github.com/pablop76/hikashop-fakturownia/internal/notify"
	"github.com/pablop76/hikashop-fakturownia/internal/processor"
	"github.com/pablop76/hikashop-fakturownia/internal/store/postgres"
)

// Bootstrap loads .env and the environment, validates the stage, starts the
// logger and resolves secrets from Secrets Manager in deployed stages.
func Bootstrap(ctx context.Context) (*config.Config, error) {
	config.LoadDotEnv()
	cfg := config.Load()

	if !helpers.IsValidStage(cfg.Stage) {
		return nil, fmt.Errorf("invalid STAGE %q: must be one of %s, %s, %s",
			cfg.Stage, helpers.StageProd, helpers.StageDev, helpers.StageLocal)
	}

	if err := logger.InitLogger(cfg.Stage, cfg.Log.Debug, cfg.Log.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if needsSecrets(cfg.Stage) {
		awsCfg, err := awsclient.LoadConfig(ctx, cfg.Queue.Endpoint)
		if err != nil {
			return nil, err
		}
		cfg.ResolveSecrets(ctx, awsclient.NewSecretsManagerClient(awsCfg))
	}

	logger.Info("Configuration loaded",
		zap.String("stage", cfg.Stage),
		zap.String("subdomain", cfg.Invoice.Subdomain),
		zap.String("invoice_mode", string(cfg.Invoice.InvoiceMode)))
	return cfg, nil
}

func needsSecrets(stage string) bool {
	if stage != helpers.StageLocal {
		return true
	}
	return os.Getenv("FAKTUROWNIA_API_TOKEN_ARN") != "" || os.Getenv("DATABASE_URL_ARN") != ""
}

// App holds the long lived dependencies of a binary.
type App struct {
	Config    *config.Config
	Pool      *pgxpool.Pool
	Store     *postgres.OrderStore
	Processor *processor.Processor

	closers []func()
}

// New connects to the shop database and builds the processor.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := postgres.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	store := postgres.NewOrderStore(pool, cfg.Invoice.Location)

	a := &App{
		Config:  cfg,
		Pool:    pool,
		Store:   store,
		closers: []func(){pool.Close},
	}
	a.Processor = processor.New(processor.Deps{
		Loader:   store,
		Marker:   store,
		API:      NewFakturowniaClient(cfg),
		Notifier: NewNotifier(cfg, store),
	}, cfg.Invoice, logger.Log)
	return a, nil
}

// NewFakturowniaClient builds the REST client for the configured account.
// Request logging is enabled together with debug logging.
func NewFakturowniaClient(cfg *config.Config) *fakturownia.Client {
	var opts []httpClient.ClientOption
	if cfg.Log.Debug {
		opts = append(opts, httpClient.WithMiddleware(httpClient.LoggingMiddleware()))
	}
	return fakturownia.New(cfg.Invoice.APIToken, cfg.Invoice.Subdomain, opts...)
}

// NewNotifier records admin messages in the order history and, when a Resend
// key and an admin address are configured, e-mails them as well.
func NewNotifier(cfg *config.Config, w notify.HistoryWriter) notify.Notifier {
	n := notify.Multi{notify.NewHistoryNotifier(w)}
	if cfg.Notify.ResendAPIKey != "" && cfg.Notify.AdminEmail != "" {
		n = append(n, notify.NewEmailNotifier(cfg.Notify.ResendAPIKey, cfg.Notify.FromEmail, cfg.Notify.AdminEmail, logger.Log))
	}
	return n
}

// Publisher returns the queue the webhook receiver hands events to: SQS when
// a queue URL is set, else Kafka when brokers are set. A nil publisher means
// the receiver processes inline.
func (a *App) Publisher(ctx context.Context) (handlers.Publisher, error) {
	switch {
	case a.Config.Queue.QueueURL != "":
		awsCfg, err := awsclient.LoadConfig(ctx, a.Config.Queue.Endpoint)
		if err != nil {
			return nil, err
		}
		logger.Info("Order events are queued to SQS", zap.String("queue_url", a.Config.Queue.QueueURL))
		return awsclient.NewQueuePublisher(awsCfg, a.Config.Queue.QueueURL, a.Config.Queue.Endpoint), nil
	case len(a.Config.Kafka.Brokers) > 0:
		p := kafka.NewProducer(a.Config.Kafka.Brokers, a.Config.Kafka.Topic)
		a.closers = append(a.closers, func() {
			if err := p.Close(); err != nil {
				logger.Warn("kafka producer close failed", zap.Error(err))
			}
		})
		logger.Info("Order events are queued to Kafka", zap.String("topic", a.Config.Kafka.Topic))
		return p, nil
	default:
		return nil, nil
	}
}

// Close releases everything New and Publisher opened, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = logger.Sync()
}
