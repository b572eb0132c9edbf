package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StoreDynamo = "dynamo"
	StoreMongo  = "mongo"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string        `envconfig:"APP_PORT" default:"3000"`
	AppEnv         string        `envconfig:"APP_ENV" default:"development"`
	LogFormat      string        `envconfig:"LOG_FORMAT" default:"text"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"*"` // CORS allowed origins

	StoreBackend string `envconfig:"STORE_BACKEND" default:"dynamo"`

	AWSRegion      string `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSEndpointURL string `envconfig:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	DynamoTables   DynamoTables

	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"signup_verify"`

	SMTP  SMTPConfig
	Token TokenConfig
}

// DynamoTables holds the DynamoDB table names used by the credential store.
type DynamoTables struct {
	Users       string `envconfig:"DYNAMO_TABLE_USERS" default:"users"`
	UserUniques string `envconfig:"DYNAMO_TABLE_USER_UNIQUES" default:"user_uniques"`
}

type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST" default:"localhost"`
	Port     string `envconfig:"SMTP_PORT" default:"1025"`
	From     string `envconfig:"SMTP_FROM" default:"noreply@example.com"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
}

// TokenConfig carries the process-wide signing secret. Rotating it invalidates
// every outstanding token.
type TokenConfig struct {
	Secret         string        `envconfig:"SIGNING_SECRET" required:"true"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"24h"`
}

// Load reads all configuration from environment variables. A missing signing
// secret is a startup error.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(cfg.Token.Secret) == "" {
		return nil, errors.New("signing secret must be provided")
	}
	switch cfg.StoreBackend {
	case StoreDynamo, StoreMongo:
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
