// Package config loads runtime configuration from the environment and seed
// data from YAML.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration for the API server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Logging  LoggingConfig
	Ads      AdsConfig
	Geocode  GeocodeConfig
	HTTP     HTTPConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `env:"GRIHOME_HOST,default=0.0.0.0"`
	Port            int           `env:"GRIHOME_PORT,default=8080"`
	ShutdownTimeout time.Duration `env:"GRIHOME_SHUTDOWN_TIMEOUT,default=10s"`
}

// DatabaseConfig selects the persistence backend. With an empty DSN the
// application falls back to the in-memory store.
type DatabaseConfig struct {
	DSN          string `env:"DATABASE_URL,default="`
	MaxOpenConns int    `env:"DATABASE_MAX_OPEN_CONNS,default=20"`
	MaxIdleConns int    `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
}

// RedisConfig configures the OTP store. Empty Addr keeps OTPs in memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,default="`
	Password string `env:"REDIS_PASSWORD,default="`
	DB       int    `env:"REDIS_DB,default=0"`
}

// AuthConfig configures token issuance and OTP behaviour.
type AuthConfig struct {
	JWTSecret     string        `env:"JWT_SECRET,default=dev-secret-change-me"`
	TokenTTL      time.Duration `env:"AUTH_TOKEN_TTL,default=24h"`
	OTPTTL        time.Duration `env:"AUTH_OTP_TTL,default=5m"`
	OTPMaxAttempt int           `env:"AUTH_OTP_MAX_ATTEMPTS,default=3"`
}

// LoggingConfig mirrors pkg/logger's construction options.
type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL,default=info"`
	Format     string `env:"LOG_FORMAT,default=text"`
	Output     string `env:"LOG_OUTPUT,default=stdout"`
	FilePrefix string `env:"LOG_FILE_PREFIX,default=grihome"`
}

// AdsConfig holds the pre-launch promotional window as RFC3339 timestamps.
// Empty values disable the window.
type AdsConfig struct {
	PreLaunchStart string `env:"ADS_PRELAUNCH_START,default="`
	PreLaunchEnd   string `env:"ADS_PRELAUNCH_END,default="`
}

// GeocodeConfig points at the external maps provider.
type GeocodeConfig struct {
	Endpoint string `env:"GEOCODE_ENDPOINT,default="`
	APIKey   string `env:"GEOCODE_API_KEY,default="`
}

// HTTPConfig covers cross-cutting HTTP concerns.
type HTTPConfig struct {
	AllowedOrigins []string `env:"HTTP_ALLOWED_ORIGINS,default=*"`
	RateLimitRPS   int      `env:"HTTP_RATE_LIMIT_RPS,default=20"`
	RateLimitBurst int      `env:"HTTP_RATE_LIMIT_BURST,default=40"`
	AuditLogPath   string   `env:"HTTP_AUDIT_LOG_PATH,default="`
}

// Load reads configuration from the environment, honouring a local .env file
// when present.
func Load() (*Config, error) {
	_ = godotenv.Load() // best effort; absence of .env is normal

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return &cfg, nil
}
