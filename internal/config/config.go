package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Registry      RegistryConfig
	TenantDB      TenantDBConfig
	Token         TokenConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
	Upload        UploadConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RegistryConfig holds connection settings for the central registry database.
// The registry stores tenants, users and the audit trail.
type RegistryConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// TenantDBConfig holds the connection template for per-tenant databases.
// The database name itself comes from the tenant locator at request time.
type TenantDBConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MinConns     int
}

// TokenConfig holds session token signing configuration
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// SecurityConfig holds password hashing configuration
type SecurityConfig struct {
	Argon2Memory      uint32
	Argon2Iterations  uint32
	Argon2Parallelism uint8
	Argon2SaltLength  uint32
	Argon2KeyLength   uint32
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// UploadConfig holds document storage configuration
type UploadConfig struct {
	Dir          string
	MaxSizeBytes int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Registry: RegistryConfig{
			Host:            getEnv("REGISTRY_DB_HOST", "localhost"),
			Port:            getEnv("REGISTRY_DB_PORT", "5432"),
			User:            getEnv("REGISTRY_DB_USER", "worksafe"),
			Password:        getEnv("REGISTRY_DB_PASSWORD", ""),
			Database:        getEnv("REGISTRY_DB_NAME", "worksafe_registry"),
			SSLMode:         getEnv("REGISTRY_DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("REGISTRY_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("REGISTRY_DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("REGISTRY_DB_CONN_MAX_LIFETIME", "5m"),
		},
		TenantDB: TenantDBConfig{
			Host:         getEnv("TENANT_DB_HOST", "localhost"),
			Port:         getEnv("TENANT_DB_PORT", "5432"),
			User:         getEnv("TENANT_DB_USER", "worksafe"),
			Password:     getEnv("TENANT_DB_PASSWORD", ""),
			SSLMode:      getEnv("TENANT_DB_SSLMODE", "disable"),
			MaxOpenConns: parseInt("TENANT_DB_MAX_OPEN_CONNS", 10),
			MinConns:     parseInt("TENANT_DB_MIN_CONNS", 0),
		},
		Token: TokenConfig{
			Secret: getEnv("TOKEN_SECRET", ""),
			TTL:    parseDuration("TOKEN_TTL", "8h"),
		},
		Security: SecurityConfig{
			Argon2Memory:      uint32(parseInt("ARGON2_MEMORY", 65536)),
			Argon2Iterations:  uint32(parseInt("ARGON2_ITERATIONS", 3)),
			Argon2Parallelism: uint8(parseInt("ARGON2_PARALLELISM", 4)),
			Argon2SaltLength:  uint32(parseInt("ARGON2_SALT_LENGTH", 16)),
			Argon2KeyLength:   uint32(parseInt("ARGON2_KEY_LENGTH", 32)),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "worksafe"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: float64(parseInt("RATELIMIT_RPS", 10)),
			Burst:             parseInt("RATELIMIT_BURST", 20),
		},
		Upload: UploadConfig{
			Dir:          getEnv("UPLOAD_DIR", "uploads"),
			MaxSizeBytes: int64(parseInt("UPLOAD_MAX_SIZE_BYTES", 50*1024*1024)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Registry.Password == "" {
		return fmt.Errorf("REGISTRY_DB_PASSWORD is required")
	}
	if c.Token.Secret == "" {
		return fmt.Errorf("TOKEN_SECRET is required")
	}
	if len(c.Token.Secret) < 32 {
		return fmt.Errorf("TOKEN_SECRET must be at least 32 bytes")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		// Fallback to default
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}
