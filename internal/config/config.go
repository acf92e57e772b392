// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL selects the Redis blacklist backend when set (e.g. redis://localhost:6379/0).
	// Empty means the blacklist lives in Postgres.
	RedisURL string `mapstructure:"REDIS_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "session-lifecycle").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "session-lifecycle-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// AccessTokenTTL is the access token lifetime (e.g. "15m").
	AccessTokenTTL string `mapstructure:"ACCESS_TOKEN_TTL"`
	// RefreshTokenTTL is the refresh token lifetime (e.g. "720h").
	RefreshTokenTTL string `mapstructure:"REFRESH_TOKEN_TTL"`
	// SessionTTL is the device session lifetime (e.g. "2160h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// MaxSessionsPerUser caps concurrent active sessions per user; the least
	// recently active session is evicted when a new login would exceed it.
	MaxSessionsPerUser int `mapstructure:"MAX_SESSIONS_PER_USER"`
	// ReaperInterval is how often expired rows are swept (e.g. "1h").
	ReaperInterval string `mapstructure:"REAPER_INTERVAL"`
	// ReplayEscalateAccountWide makes replay detection revoke every session of
	// the affected user instead of only the replayed session's chain.
	ReplayEscalateAccountWide bool `mapstructure:"REPLAY_ESCALATE_ACCOUNT_WIDE"`
	// ReplayPolicyPath optionally points to a Rego file overriding the built-in
	// replay escalation policy.
	ReplayPolicyPath string `mapstructure:"REPLAY_POLICY_PATH"`
	// InternalIssueSecret guards /v1/tokens/issue and /v1/tokens/validate via
	// the X-Internal-Secret header when callers are not on a private network.
	InternalIssueSecret string `mapstructure:"INTERNAL_ISSUE_SECRET"`
	// OTLPEndpoint enables OpenTelemetry export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// KafkaBrokers is a comma-separated list of Kafka broker addresses; empty disables the event stream.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsKafkaTopic is the Kafka topic for security events (default session-lifecycle-events).
	EventsKafkaTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_ISSUER", "session-lifecycle")
	v.SetDefault("JWT_AUDIENCE", "session-lifecycle-api")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "720h")  // 30d
	v.SetDefault("SESSION_TTL", "2160h")       // 90d
	v.SetDefault("MAX_SESSIONS_PER_USER", 5)
	v.SetDefault("REAPER_INTERVAL", "1h")
	v.SetDefault("REPLAY_ESCALATE_ACCOUNT_WIDE", false)
	v.SetDefault("REPLAY_POLICY_PATH", "")
	v.SetDefault("INTERNAL_ISSUE_SECRET", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "session-lifecycle-events")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.MaxSessionsPerUser < 1 {
		return nil, errors.New("config: MAX_SESSIONS_PER_USER must be at least 1")
	}
	if cfg.Env == "production" && cfg.InternalIssueSecret == "" {
		return nil, errors.New("config: INTERNAL_ISSUE_SECRET must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// AccessTTL parses AccessTokenTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.AccessTokenTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses RefreshTokenTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.RefreshTokenTTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// SessionLifetime parses SessionTTL as a time.Duration. Returns 2160h if unset or invalid.
func (c *Config) SessionLifetime() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 2160 * time.Hour
	}
	return d
}

// ReaperTick parses ReaperInterval as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) ReaperTick() time.Duration {
	d, err := time.ParseDuration(c.ReaperInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide whether the event stream is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
