// Package config loads the gatehouse configuration from YAML with
// environment variable expansion and duration parsing.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete gatehouse configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	Reservation ReservationConfig `yaml:"reservation"`
	Wallet      WalletConfig      `yaml:"wallet"`
	Innkeeper   InnkeeperConfig   `yaml:"innkeeper"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds server address configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds token signing configuration.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TokenTTLRaw string `yaml:"token_ttl"`
}

// ReservationConfig holds reservation lifecycle configuration.
type ReservationConfig struct {
	// TTL bounds how long an approved reservation's password stays
	// redeemable.
	TTL time.Duration `yaml:"-"`

	TTLRaw string `yaml:"ttl"`
}

// WalletConfig holds wallet provisioning configuration.
type WalletConfig struct {
	// KeyManagement is "managed" (keys stored server-side) or "unmanaged"
	// (keys returned once at creation, only a hash stored).
	KeyManagement string `yaml:"key_management"`
}

// InnkeeperConfig holds the operator bootstrap configuration.
type InnkeeperConfig struct {
	WalletName string `yaml:"wallet_name"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. If the environment variable is not set, it is
// replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "gatehouse.db"
	}
	if c.Wallet.KeyManagement == "" {
		c.Wallet.KeyManagement = "managed"
	}
	if c.Innkeeper.WalletName == "" {
		c.Innkeeper.WalletName = "innkeeper"
	}
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Wallet.KeyManagement != "managed" && c.Wallet.KeyManagement != "unmanaged" {
		return fmt.Errorf("wallet.key_management must be %q or %q, got %q",
			"managed", "unmanaged", c.Wallet.KeyManagement)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.TokenTTLRaw != "" {
		cfg.Auth.TokenTTL, err = time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing auth.token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
		}
	}

	if cfg.Reservation.TTLRaw != "" {
		cfg.Reservation.TTL, err = time.ParseDuration(cfg.Reservation.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing reservation.ttl %q: %w", cfg.Reservation.TTLRaw, err)
		}
	}

	return nil
}
