package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/Black-And-White-Club/spinboard/internal/observability"
)

// DefaultEntryFee is 0.00002 ether expressed in wei.
const DefaultEntryFee int64 = 20_000_000_000_000

// Config struct to hold the configuration settings
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
	Game          GameConfig          `yaml:"game"`
	Wallet        WalletConfig        `yaml:"wallet"`
}

// DatabaseConfig holds the history/ledger store settings.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DATABASE_DRIVER"` // postgres|sqlite
	DSN    string `yaml:"dsn" env:"DATABASE_URL"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled" env:"NATS_ENABLED"`
	URL     string `yaml:"url" env:"NATS_URL"`
}

// HTTPConfig holds the public API listener settings.
type HTTPConfig struct {
	Address        string   `yaml:"address" env:"HTTP_ADDRESS"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS"`
	RatePerSecond  float64  `yaml:"rate_per_second" env:"HTTP_RATE_PER_SECOND"`
	RateBurst      int      `yaml:"rate_burst" env:"HTTP_RATE_BURST"`
}

// AuthConfig holds JWT configuration.
type AuthConfig struct {
	Secret     string        `yaml:"secret" env:"JWT_SECRET"`
	DefaultTTL time.Duration `yaml:"default_ttl" env:"JWT_DEFAULT_TTL"`
	DevTokens  bool          `yaml:"dev_tokens" env:"AUTH_DEV_TOKENS"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	ServiceName    string `yaml:"service_name" env:"SERVICE_NAME"`
	Environment    string `yaml:"environment" env:"ENV"`
	LogLevel       string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat      string `yaml:"log_format" env:"LOG_FORMAT"` // json|text
	MetricsAddress string `yaml:"metrics_address" env:"METRICS_ADDRESS"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
}

// GameConfig holds the deployment-time constants of the lottery.
type GameConfig struct {
	EntryFee      int64  `yaml:"entry_fee" env:"GAME_ENTRY_FEE"`
	Operator      string `yaml:"operator" env:"GAME_OPERATOR"`
	EntropyMode   string `yaml:"entropy_mode" env:"GAME_ENTROPY_MODE"` // hash|vrf
	EntropySecret string `yaml:"entropy_secret" env:"GAME_ENTROPY_SECRET"`
}

// WalletConfig selects how payouts leave the ledger.
type WalletConfig struct {
	Mode            string        `yaml:"mode" env:"WALLET_MODE"` // memory|nats
	TransferSubject string        `yaml:"transfer_subject" env:"WALLET_TRANSFER_SUBJECT"`
	ReverseSubject  string        `yaml:"reverse_subject" env:"WALLET_REVERSE_SUBJECT"`
	Timeout         time.Duration `yaml:"timeout" env:"WALLET_TIMEOUT"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Environment variables override file values when present.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.Database.DriverIsPostgres() && os.Getenv("DATABASE_URL") == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return nil, fmt.Errorf("NATS_URL environment variable not set")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a Config populated with development defaults.
func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:spinboard.db?cache=shared",
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
		HTTP: HTTPConfig{
			Address:       ":8080",
			RatePerSecond: 5,
			RateBurst:     10,
		},
		Auth: AuthConfig{
			DefaultTTL: 24 * time.Hour,
		},
		Observability: ObservabilityConfig{
			ServiceName: "spinboard",
			Environment: "development",
			LogLevel:    "info",
			LogFormat:   "json",
		},
		Game: GameConfig{
			EntryFee:    DefaultEntryFee,
			EntropyMode: "hash",
		},
		Wallet: WalletConfig{
			Mode:            "memory",
			TransferSubject: "wallet.transfer.v1",
			ReverseSubject:  "wallet.reverse.v1",
			Timeout:         5 * time.Second,
		},
	}
}

// Validate checks the settings the round engine cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Game.EntryFee <= 0 {
		errs = append(errs, fmt.Errorf("game.entry_fee must be positive, got %d", c.Game.EntryFee))
	}
	if c.Game.Operator == "" {
		errs = append(errs, errors.New("game.operator must be set"))
	}
	switch c.Game.EntropyMode {
	case "hash", "vrf":
	default:
		errs = append(errs, fmt.Errorf("game.entropy_mode %q is not one of hash|vrf", c.Game.EntropyMode))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of postgres|sqlite", c.Database.Driver))
	}
	switch c.Wallet.Mode {
	case "memory":
	case "nats":
		if !c.NATS.Enabled {
			errs = append(errs, errors.New("wallet.mode nats requires nats.enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("wallet.mode %q is not one of memory|nats", c.Wallet.Mode))
	}
	return errors.Join(errs...)
}

// DriverIsPostgres reports whether the postgres driver is selected.
func (d DatabaseConfig) DriverIsPostgres() bool {
	return d.Driver == "postgres"
}

func ToObsConfig(appCfg *Config) observability.Config {
	return observability.Config{
		ServiceName:    appCfg.Observability.ServiceName,
		Environment:    appCfg.Observability.Environment,
		LogLevel:       appCfg.Observability.LogLevel,
		LogFormat:      appCfg.Observability.LogFormat,
		MetricsAddress: appCfg.Observability.MetricsAddress,
		OTLPEndpoint:   appCfg.Observability.OTLPEndpoint,
	}
}
