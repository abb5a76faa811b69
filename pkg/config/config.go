// Package config reads process configuration from the environment,
// after loading a .env file when one is present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
)

// Notifiers.
const (
	NotifierNone = "none"
	NotifierSQS  = "sqs"
	NotifierNATS = "nats"
)

// Identity modes.
const (
	IdentityHeader = "header"
	IdentityJWT    = "jwt"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Notifier NotifierConfig
	Identity IdentityConfig
	LogLevel string
}

type ServerConfig struct {
	Port string
}

type StorageConfig struct {
	Backend     string
	DynamoDB    DynamoDBTables
	DatabaseURL string
}

// DynamoDBTables names one table per aggregate.
type DynamoDBTables struct {
	Donations     string
	Funding       string
	Usage         string
	ItemRequests  string
	Contributions string
	Pool          string
}

type NotifierConfig struct {
	Kind          string
	SQSQueueURL   string
	NATSURL       string
	SubjectPrefix string
}

type IdentityConfig struct {
	Mode      string
	JWTSecret string
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Server: ServerConfig{Port: get("HTTP_PORT", "8080")},
		Storage: StorageConfig{
			Backend: strings.ToLower(get("STORAGE_BACKEND", BackendMemory)),
			DynamoDB: DynamoDBTables{
				Donations:     get("DYNAMODB_DONATIONS_TABLE_NAME", ""),
				Funding:       get("DYNAMODB_FUNDING_TABLE_NAME", ""),
				Usage:         get("DYNAMODB_USAGE_TABLE_NAME", ""),
				ItemRequests:  get("DYNAMODB_ITEM_REQUESTS_TABLE_NAME", ""),
				Contributions: get("DYNAMODB_CONTRIBUTIONS_TABLE_NAME", ""),
				Pool:          get("DYNAMODB_POOL_TABLE_NAME", ""),
			},
			DatabaseURL: get("DATABASE_URL", ""),
		},
		Notifier: NotifierConfig{
			Kind:          strings.ToLower(get("NOTIFIER", NotifierNone)),
			SQSQueueURL:   get("SQS_QUEUE_URL", ""),
			NATSURL:       get("NATS_URL", ""),
			SubjectPrefix: get("NATS_SUBJECT_PREFIX", "donations"),
		},
		Identity: IdentityConfig{
			Mode:      strings.ToLower(get("IDENTITY_MODE", IdentityHeader)),
			JWTSecret: get("JWT_SECRET", ""),
		},
		LogLevel: get("LOG_LEVEL", "INFO"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or unknown setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendDynamoDB:
		t := c.Storage.DynamoDB
		if t.Donations == "" || t.Funding == "" || t.Usage == "" || t.ItemRequests == "" || t.Contributions == "" || t.Pool == "" {
			errs = append(errs, errors.New("one or more DynamoDB table name environment variables are not set"))
		}
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend))
	}

	switch c.Notifier.Kind {
	case NotifierNone:
	case NotifierSQS:
		if c.Notifier.SQSQueueURL == "" {
			errs = append(errs, errors.New("SQS_QUEUE_URL is required for the sqs notifier"))
		}
	case NotifierNATS:
		if c.Notifier.NATSURL == "" {
			errs = append(errs, errors.New("NATS_URL is required for the nats notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFIER %q", c.Notifier.Kind))
	}

	switch c.Identity.Mode {
	case IdentityHeader:
	case IdentityJWT:
		if c.Identity.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required for jwt identity"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IDENTITY_MODE %q", c.Identity.Mode))
	}

	return errors.Join(errs...)
}
