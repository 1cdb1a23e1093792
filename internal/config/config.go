// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (./config.yaml or ~/.ragd/config.yaml)
//  3. Default values
//
// The configuration is loaded once at startup, validated fail-fast,
// and passed into components as an explicit struct. Nothing reads it
// ambiently, which keeps the provider clients and the orchestrator
// unit-testable with fakes.
//
// Security: secrets (API key, database password) are masked in
// MarshalJSON and String so they never leak through logs.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/ragstack/ragd/internal/provider"
)

var (
	// ErrMissingAPIKey indicates the provider API key is absent.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidBaseURL indicates the provider base URL is malformed.
	ErrInvalidBaseURL = errors.New("invalid provider base URL")

	// ErrInvalidModelName indicates a model identifier is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidDimension indicates the embedding dimension is out of range.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidTimeout indicates the provider timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid provider timeout")

	// ErrInvalidChunking indicates chunk size/overlap settings that the
	// chunker would reject.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidBounds indicates request-limit settings that make no sense.
	ErrInvalidBounds = errors.New("invalid request bounds")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is empty.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates an unknown sslmode value.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON.
type Config struct {
	// Provider connection
	ProviderBaseURL string `mapstructure:"provider_base_url" json:"provider_base_url"`
	APIKey          string `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON
	ChatModel       string `mapstructure:"chat_model" json:"chat_model"`
	EmbedModel      string `mapstructure:"embed_model" json:"embed_model"`
	EmbedDimension  int    `mapstructure:"embed_dimension" json:"embed_dimension"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`

	// Chunking
	ChunkMaxChars int `mapstructure:"chunk_max_chars" json:"chunk_max_chars"`
	ChunkOverlap  int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Request bounds
	MaxTemperature float64 `mapstructure:"max_temperature" json:"max_temperature"`
	MaxTokens      int     `mapstructure:"max_tokens" json:"max_tokens"`
	MaxTopK        int     `mapstructure:"max_top_k" json:"max_top_k"`
	DefaultTopK    int     `mapstructure:"default_top_k" json:"default_top_k"`

	// Storage
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP surface
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".ragd")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL wins over the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("provider_base_url", "https://api.openai.com/v1")
	viper.SetDefault("chat_model", "gpt-4o-mini")
	viper.SetDefault("embed_model", "text-embedding-3-small")
	viper.SetDefault("embed_dimension", 1536)
	viper.SetDefault("timeout_seconds", 60)

	viper.SetDefault("chunk_max_chars", 1200)
	viper.SetDefault("chunk_overlap", 200)

	viper.SetDefault("max_temperature", 2.0)
	viper.SetDefault("max_tokens", 8192)
	viper.SetDefault("max_top_k", 20)
	viper.SetDefault("default_top_k", 4)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "ragd")
	viper.SetDefault("postgres_password", "ragd_dev_password")
	viper.SetDefault("postgres_db_name", "ragd")
	viper.SetDefault("postgres_ssl_mode", "disable")

	viper.SetDefault("cors_origins", []string{"http://localhost:5173"})
	viper.SetDefault("trust_proxy", false)
}

// bindEnvVariables binds environment overrides explicitly.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("api_key", "OPENAI_API_KEY")
	mustBind("provider_base_url", "RAGD_PROVIDER_BASE_URL")
	mustBind("chat_model", "RAGD_CHAT_MODEL")
	mustBind("embed_model", "RAGD_EMBED_MODEL")
	mustBind("embed_dimension", "RAGD_EMBED_DIMENSION")
	mustBind("cors_origins", "RAGD_CORS_ORIGINS")
	mustBind("trust_proxy", "RAGD_TRUST_PROXY")
}

// parseDatabaseURL applies DATABASE_URL on top of the postgres_* fields.
func (c *Config) parseDatabaseURL() error {
	raw := os.Getenv("DATABASE_URL")
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	c.PostgresHost = u.Hostname()
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", p, err)
		}
		c.PostgresPort = port
	}
	if u.User != nil {
		c.PostgresUser = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.PostgresPassword = pw
		}
	}
	if db := filepath.Base(u.Path); db != "." && db != "/" {
		c.PostgresDBName = db
	}
	if m := u.Query().Get("sslmode"); m != "" {
		c.PostgresSSLMode = m
	}
	return nil
}

// DatabaseURL returns the postgres:// connection URL assembled from
// the storage settings.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:     "/" + c.PostgresDBName,
		RawQuery: "sslmode=" + c.PostgresSSLMode,
	}
	return u.String()
}

// ProviderConfig returns the provider client configuration.
func (c *Config) ProviderConfig() provider.Config {
	return provider.Config{
		BaseURL:    c.ProviderBaseURL,
		APIKey:     c.APIKey,
		ChatModel:  c.ChatModel,
		EmbedModel: c.EmbedModel,
		Timeout:    time.Duration(c.TimeoutSeconds) * time.Second,
	}
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep two characters at each end for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
// When adding new secrets, update this method; the config tests will
// remind you.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.APIKey = maskSecret(a.APIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
