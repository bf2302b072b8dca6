// Package config provides application configuration loaded from environment
// variables and an optional .env file.
package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	awsclient "github.com/pablop76/hikashop-fakturownia/internal/client/aws"
	"github.com/pablop76/hikashop-fakturownia/internal/helpers"
	"github.com/pablop76/hikashop-fakturownia/internal/invoicing"
	"github.com/pablop76/hikashop-fakturownia/internal/logger"
)

// Defaults.
const (
	DefaultLogFile  = "logs/hikashop_fakturownia.log"
	DefaultTimezone = "Europe/Warsaw"
	DefaultHTTPPort = "8080"
	DefaultGroupID  = "hikashop-fakturownia"
	DefaultTopic    = "hikashop.order.updated"
)

// Config holds all application configuration.
type Config struct {
	Stage    string
	Invoice  Settings
	Log      LogConfig
	Database DatabaseConfig
	Server   ServerConfig
	Queue    QueueConfig
	Kafka    KafkaConfig
	Notify   NotifyConfig
}

// LogConfig controls the zap logger and the order dump.
type LogConfig struct {
	Debug      bool
	DebugOrder bool
	File       string
}

// DatabaseConfig holds the shop database connection.
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds the webhook receiver settings.
type ServerConfig struct {
	Port               string
	WebhookToken       string
	CORSAllowedOrigins []string
}

// QueueConfig holds SQS settings. An empty QueueURL means inline processing.
type QueueConfig struct {
	QueueURL string
	Endpoint string
}

// KafkaConfig holds the order-updated consumer settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NotifyConfig holds the admin e-mail channel settings.
type NotifyConfig struct {
	ResendAPIKey string
	AdminEmail   string
	FromEmail    string
}

// Lookup returns the value of a configuration key, or "" when unset.
type Lookup func(key string) string

// LoadDotEnv loads .env files for local development. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env file, using process environment", zap.Error(err))
	}
}

// Load reads configuration from the process environment.
func Load() *Config {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration through lookup.
func LoadFrom(lookup Lookup) *Config {
	get := func(key, def string) string {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			return v
		}
		return def
	}

	stage := get("STAGE", helpers.StageLocal)

	return &Config{
		Stage: stage,
		Invoice: Settings{
			APIToken:      get("FAKTUROWNIA_API_TOKEN", ""),
			Subdomain:     SanitizeSubdomain(get("FAKTUROWNIA_SUBDOMAIN", "")),
			SellerName:    get("SELLER_NAME", ""),
			SellerTaxNo:   get("SELLER_TAX_NO", ""),
			InvoiceMode:   invoicing.ParseMode(get("INVOICE_MODE", string(invoicing.ModeVAT))),
			AutoSendEmail: helpers.ParseBool(lookup("AUTO_SEND_EMAIL")),
			DebugOrder:    helpers.ParseBool(lookup("DEBUG_ORDER")),
			Location:      loadLocation(get("TIMEZONE", DefaultTimezone)),
		},
		Log: LogConfig{
			Debug:      helpers.ParseBool(lookup("DEBUG")),
			DebugOrder: helpers.ParseBool(lookup("DEBUG_ORDER")),
			File:       get("LOG_FILE", DefaultLogFile),
		},
		Database: DatabaseConfig{
			URL: get("DATABASE_URL", ""),
		},
		Server: ServerConfig{
			Port:               get("HTTP_PORT", DefaultHTTPPort),
			WebhookToken:       get("WEBHOOK_TOKEN", ""),
			CORSAllowedOrigins: helpers.SplitCSV(lookup("CORS_ALLOWED_ORIGINS")),
		},
		Queue: QueueConfig{
			QueueURL: get("SQS_QUEUE_URL", ""),
			Endpoint: get("AWS_ENDPOINT_URL", ""),
		},
		Kafka: KafkaConfig{
			Brokers: helpers.SplitCSV(lookup("KAFKA_BROKERS")),
			Topic:   get("KAFKA_TOPIC", DefaultTopic),
			GroupID: get("KAFKA_GROUP_ID", DefaultGroupID),
		},
		Notify: NotifyConfig{
			ResendAPIKey: get("RESEND_API_KEY", ""),
			AdminEmail:   get("ADMIN_EMAIL", ""),
			FromEmail:    get("NOTIFY_FROM_EMAIL", ""),
		},
	}
}

// ResolveSecrets fills the API token and database URL from Secrets Manager
// when their *_ARN variables are set. Values already present in the
// environment are kept when the secret cannot be read.
func (c *Config) ResolveSecrets(ctx context.Context, secrets *awsclient.SecretsManagerClient) {
	if secrets == nil {
		return
	}

	if token, err := secrets.GetSecretString(ctx, "FAKTUROWNIA_API_TOKEN_ARN", "FAKTUROWNIA_API_TOKEN", "api_token"); err == nil {
		c.Invoice.APIToken = strings.TrimSpace(token)
	} else {
		logger.Warn("fakturownia api token not resolved", zap.Error(err))
	}

	if dsn, err := secrets.GetDatabaseURL(ctx, "DATABASE_URL_ARN", "DATABASE_URL"); err == nil {
		c.Database.URL = dsn
	} else {
		logger.Debug("database url not resolved", zap.Error(err))
	}
}

// HTTPPort returns the port as a number, falling back to the default.
func (s ServerConfig) HTTPPort() int {
	if p, err := strconv.Atoi(s.Port); err == nil && p > 0 {
		return p
	}
	p, _ := strconv.Atoi(DefaultHTTPPort)
	return p
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn("unknown timezone, using UTC", zap.String("timezone", name), zap.Error(err))
		return time.UTC
	}
	return loc
}
