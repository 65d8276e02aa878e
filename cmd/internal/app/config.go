package app

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend names accepted by STORE_BACKEND and SESSION_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	Port      int    `env:"PORT"`
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT"`
	MaxHeaderBytes    int           `env:"HTTP_MAX_HEADER_BYTES"`

	// StoreBackend selects the credential store: postgres or memory.
	StoreBackend string `env:"STORE_BACKEND"`
	// SessionBackend selects the session registry: redis or memory.
	SessionBackend string `env:"SESSION_BACKEND"`

	// DatabaseURL wins over the DB_* parts when set.
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST"`
	DBPort      int    `env:"DB_PORT"`
	DBName      string `env:"DB_NAME"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBSSLMode   string `env:"DB_SSLMODE"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS"`
	DBMinConns  int32  `env:"DB_MIN_CONNS"`

	// RunMigrations applies the embedded schema at startup.
	RunMigrations bool `env:"RUN_MIGRATIONS"`

	// RedisURL wins over REDIS_HOST/REDIS_PORT when set.
	RedisURL      string `env:"REDIS_URL"`
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	CORSAllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	CORSAllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"`
	CORSMaxAgeSeconds    int      `env:"CORS_MAX_AGE_SECONDS"`

	// If true, /readyz returns 503 unless every configured backend answers.
	// If false, memory backends are reported ready.
	ReadinessRequireDB bool `env:"READINESS_REQUIRE_DB"`

	// ServiceName is reported by /health.
	ServiceName string `env:"SERVICE_NAME"`
}

// DefaultConfig mirrors the defaults of the deployed service.
func DefaultConfig() Config {
	return Config{
		Port:      3001,
		LogLevel:  "info",
		LogFormat: "json",

		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxHeaderBytes:    1 << 20,

		StoreBackend:   BackendPostgres,
		SessionBackend: BackendRedis,

		DBHost:     "postgres",
		DBPort:     5432,
		DBName:     "leadgen",
		DBUser:     "postgres",
		DBPassword: "postgres",
		DBSSLMode:  "disable",
		DBMaxConns: 10,
		DBMinConns: 0,

		RedisHost: "redis",
		RedisPort: 6379,

		CORSAllowCredentials: true,
		CORSMaxAgeSeconds:    600,

		ServiceName: "auth-service",
	}
}

// LoadConfig overlays environment variables on DefaultConfig and validates the result.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("app config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.SessionBackend = strings.ToLower(strings.TrimSpace(c.SessionBackend))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))

	origins := c.CORSAllowedOrigins[:0]
	for _, o := range c.CORSAllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSAllowedOrigins = origins
}

// Validate rejects unknown backends and out-of-range values.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("app config: STORE_BACKEND %q is not one of postgres, memory", c.StoreBackend)
	}
	switch c.SessionBackend {
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("app config: SESSION_BACKEND %q is not one of redis, memory", c.SessionBackend)
	}
	switch c.LogFormat {
	case "", "json", "pretty":
	default:
		return fmt.Errorf("app config: LOG_FORMAT %q is not one of json, pretty", c.LogFormat)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("app config: PORT %d out of range", c.Port)
	}
	if c.DBMinConns < 0 || (c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns) {
		return fmt.Errorf("app config: DB_MIN_CONNS must be within [0..DB_MAX_CONNS]")
	}
	if c.RunMigrations && c.StoreBackend != BackendPostgres {
		return fmt.Errorf("app config: RUN_MIGRATIONS requires STORE_BACKEND=postgres")
	}
	return nil
}

// HTTPAddr is the listen address derived from PORT.
func (c Config) HTTPAddr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.Port))
}

// PostgresURL returns DATABASE_URL or a URL assembled from the DB_* parts.
func (c Config) PostgresURL() string {
	if u := strings.TrimSpace(c.DatabaseURL); u != "" {
		return u
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:   "/" + c.DBName,
	}
	if c.DBSSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.DBSSLMode}}.Encode()
	}
	return u.String()
}

// RedisAddr returns host:port from REDIS_HOST/REDIS_PORT.
func (c Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}
