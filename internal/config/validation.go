package config

import (
	"fmt"
	"net/url"
)

// validSSLModes are the sslmode values libpq and pgx accept.
var validSSLModes = map[string]struct{}{
	"disable":     {},
	"allow":       {},
	"prefer":      {},
	"require":     {},
	"verify-ca":   {},
	"verify-full": {},
}

// Validate checks the configuration and fails fast with a sentinel
// error so callers can classify the failure with errors.Is.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingAPIKey)
	}

	u, err := url.Parse(c.ProviderBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.ProviderBaseURL)
	}

	if c.ChatModel == "" {
		return fmt.Errorf("%w: chat_model is empty", ErrInvalidModelName)
	}
	if c.EmbedModel == "" {
		return fmt.Errorf("%w: embed_model is empty", ErrInvalidModelName)
	}
	if c.EmbedDimension < 1 || c.EmbedDimension > 16000 {
		return fmt.Errorf("%w: %d (must be 1-16000)", ErrInvalidDimension, c.EmbedDimension)
	}
	if c.TimeoutSeconds < 1 || c.TimeoutSeconds > 600 {
		return fmt.Errorf("%w: %ds (must be 1-600)", ErrInvalidTimeout, c.TimeoutSeconds)
	}

	if c.ChunkMaxChars < 1 {
		return fmt.Errorf("%w: chunk_max_chars %d", ErrInvalidChunking, c.ChunkMaxChars)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkMaxChars {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidChunking, c.ChunkOverlap, c.ChunkMaxChars)
	}

	if c.MaxTemperature <= 0 || c.MaxTemperature > 2 {
		return fmt.Errorf("%w: max_temperature %g", ErrInvalidBounds, c.MaxTemperature)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("%w: max_tokens %d", ErrInvalidBounds, c.MaxTokens)
	}
	if c.MaxTopK < 1 {
		return fmt.Errorf("%w: max_top_k %d", ErrInvalidBounds, c.MaxTopK)
	}
	if c.DefaultTopK < 1 || c.DefaultTopK > c.MaxTopK {
		return fmt.Errorf("%w: default_top_k %d must be in [1, %d]", ErrInvalidBounds, c.DefaultTopK, c.MaxTopK)
	}

	if c.PostgresHost == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return ErrInvalidPostgresDBName
	}
	if _, ok := validSSLModes[c.PostgresSSLMode]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}
