package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const minSecretLength = 32

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT      JWTConfig
	Policy   PolicyConfig
	Store    StoreConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Notify   NotifyConfig
	Postmark PostmarkConfig
}

type JWTConfig struct {
	Secret        string `env:"JWT_SECRET"`
	Issuer        string `env:"JWT_ISSUER,         default=forecasting-teller"`
	Audience      string `env:"JWT_AUDIENCE,       default=forecasting-teller-clients"`
	ExpiryMinutes int    `env:"JWT_EXPIRY_MINUTES, default=60"`
}

type PolicyConfig struct {
	RequireEmailVerification bool          `env:"REQUIRE_EMAIL_VERIFICATION, default=false"`
	ResetTokenTTL            time.Duration `env:"RESET_TOKEN_TTL,            default=24h"`
}

type StoreConfig struct {
	// Driver selects the identity store: "mongo" or "memory".
	Driver string `env:"STORE_DRIVER, default=mongo"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=forecasting_teller"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type NotifyConfig struct {
	// Sender selects delivery: "log", "redis" or "postmark".
	Sender  string `env:"NOTIFIER,       default=log"`
	Workers int    `env:"NOTIFY_WORKERS, default=4"`
}

type PostmarkConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string `env:"SENDER_EMAIL"`
	BaseURL      string `env:"APP_BASE_URL, default=http://localhost:8080"`
}

// IsProduction reports whether the service runs with production defaults
// (JSON logs, no pretty printing).
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom is Load with an explicit variable source.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < minSecretLength {
		return fmt.Errorf("%w: JWT_SECRET must be at least %d characters", ErrInvalidConfig, minSecretLength)
	}
	if c.JWT.ExpiryMinutes <= 0 {
		return fmt.Errorf("%w: JWT_EXPIRY_MINUTES must be positive", ErrInvalidConfig)
	}
	if c.Policy.ResetTokenTTL <= 0 {
		return fmt.Errorf("%w: RESET_TOKEN_TTL must be positive", ErrInvalidConfig)
	}

	switch c.Store.Driver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrInvalidConfig, c.Store.Driver)
	}

	switch c.Notify.Sender {
	case "log", "redis":
	case "postmark":
		if c.Postmark.ServerToken == "" || c.Postmark.AccountToken == "" || c.Postmark.SenderEmail == "" {
			return fmt.Errorf("%w: NOTIFIER=postmark requires POSTMARK_SERVER_TOKEN, POSTMARK_ACCOUNT_TOKEN and SENDER_EMAIL", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown NOTIFIER %q", ErrInvalidConfig, c.Notify.Sender)
	}
	return nil
}
