package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageMongoDB = "mongodb"
	StorageMemory  = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Auth      AuthConfig
	Telegram  TelegramConfig
	Ledger    LedgerConfig
	Jobs      JobsConfig
	RateLimit RateLimitConfig
	Storage   string
	LogLevel  string
	LogFormat string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	BasePath        string
	AllowedOrigins  []string
	Mode            string
	ShutdownTimeout time.Duration
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
	// Transactions needs a replica set. Without it every step still uses
	// conditional single-document writes.
	Transactions bool
}

// AuthConfig selects how admin routes authenticate. With none of the three
// set, admin routes are open.
type AuthConfig struct {
	AdminAPIKey     string
	AdminAPIKeyHash string
	JWTSecret       string
}

// TelegramConfig holds the admin notification bot settings
type TelegramConfig struct {
	BotToken string
	ChatID   int64
	Timeout  time.Duration
	Mock     bool
}

// LedgerConfig holds balance rules
type LedgerConfig struct {
	SignupCredit string
}

// JobsConfig holds cron specs for background jobs. Empty disables a job.
type JobsConfig struct {
	PendingDigestCron string
	Timezone          string
}

// RateLimitConfig holds the Redis-backed limiter for write endpoints.
// Disabled when RedisAddr is empty.
type RateLimitConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Requests      int
	Window        time.Duration
}

// AdminAuthEnabled reports whether any admin credential is configured.
func (c AuthConfig) AdminAuthEnabled() bool {
	return c.AdminAPIKey != "" || c.AdminAPIKeyHash != "" || c.JWTSecret != ""
}

// SignupCreditAmount parses the signup credit granted to new balance records.
func (c LedgerConfig) SignupCreditAmount() (decimal.Decimal, error) {
	if strings.TrimSpace(c.SignupCredit) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(c.SignupCredit))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid Ledger.SignupCredit %q: %w", c.SignupCredit, err)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("Ledger.SignupCredit must not be negative")
	}
	return d, nil
}

// Load loads configuration from a .env file, environment variables and an
// optional config.yaml under path. Environment variables use the key path
// with dots replaced by underscores, e.g. MONGODB_URI or TELEGRAM_BOTTOKEN.
func Load(path string) (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(path + "/config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read configuration
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MongoDB.URI is required")
		}
		if c.MongoDB.Database == "" {
			return errors.New("MongoDB.Database is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown Storage %q, expected %s or %s", c.Storage, StorageMongoDB, StorageMemory)
	}
	if _, err := c.Ledger.SignupCreditAmount(); err != nil {
		return err
	}
	if c.RateLimit.RedisAddr != "" && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return errors.New("RateLimit.Requests and RateLimit.Window must be positive")
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "4000")
	v.SetDefault("Server.BasePath", "")
	v.SetDefault("Server.AllowedOrigins", []string{"http://localhost:5173"})
	v.SetDefault("Server.Mode", "release")
	v.SetDefault("Server.ShutdownTimeout", 15*time.Second)

	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	v.SetDefault("MongoDB.Database", "metagameshop")
	v.SetDefault("MongoDB.Timeout", 10*time.Second)
	v.SetDefault("MongoDB.Transactions", true)

	v.SetDefault("Auth.AdminAPIKey", "")
	v.SetDefault("Auth.AdminAPIKeyHash", "")
	v.SetDefault("Auth.JWTSecret", "")

	v.SetDefault("Telegram.BotToken", "")
	v.SetDefault("Telegram.ChatID", 0)
	v.SetDefault("Telegram.Timeout", 10*time.Second)
	v.SetDefault("Telegram.Mock", false)

	v.SetDefault("Ledger.SignupCredit", "0")
	v.SetDefault("Jobs.PendingDigestCron", "*/30 * * * *")
	v.SetDefault("Jobs.Timezone", "Asia/Dhaka")

	v.SetDefault("RateLimit.RedisAddr", "")
	v.SetDefault("RateLimit.RedisPassword", "")
	v.SetDefault("RateLimit.RedisDB", 0)
	v.SetDefault("RateLimit.Requests", 10)
	v.SetDefault("RateLimit.Window", time.Minute)

	v.SetDefault("Storage", StorageMongoDB)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "text")
}
