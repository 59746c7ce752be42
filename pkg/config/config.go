package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"streamhub/pkg/circuitbreaker"
	"streamhub/pkg/retry"

	"gopkg.in/yaml.v2"
)

// Storage backends
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

// MongoConfig describes the MongoDB connection and pool.
type MongoConfig struct {
	URI                    string        `yaml:"uri"`
	Database               string        `yaml:"database"`
	MinPoolSize            uint64        `yaml:"min_pool_size"`
	MaxPoolSize            uint64        `yaml:"max_pool_size"`
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout"`
	ConnectTimeout         time.Duration `yaml:"connect_timeout"`
	SocketTimeout          time.Duration `yaml:"socket_timeout"`
	RetryWrites            bool          `yaml:"retry_writes"`
	RetryReads             bool          `yaml:"retry_reads"`
}

// RedisConfig describes the Redis connection and key namespace.
type RedisConfig struct {
	Address      string `yaml:"address"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
	KeyPrefix    string `yaml:"key_prefix"`
}

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For header
		// is honoured. Empty means the peer address is always the client.
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Storage struct {
		Backend string `yaml:"backend"`
		// FallbackToMemory keeps the process up on in-memory stores when the
		// configured backend is unreachable at startup.
		FallbackToMemory bool `yaml:"fallback_to_memory"`
	} `yaml:"storage"`

	Mongo MongoConfig `yaml:"mongo"`
	Redis RedisConfig `yaml:"redis"`

	Auth struct {
		JWTSecret      string        `yaml:"jwt_secret"`
		JWTAlgorithm   string        `yaml:"jwt_algorithm"`
		AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
		PasswordScheme string        `yaml:"password_scheme"`
		BcryptCost     int           `yaml:"bcrypt_cost"`
		PBKDF2Rounds   int           `yaml:"pbkdf2_rounds"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64       `yaml:"requests_per_second"`
			Burst             int           `yaml:"burst"`
			MaxConcurrent     int           `yaml:"max_concurrent"` // global concurrent HTTP requests
			IdleTTL           time.Duration `yaml:"idle_ttl"`       // per-client limiters unused this long are dropped
		} `yaml:"http"`
	} `yaml:"rate_limiting"`

	Monitoring struct {
		PrometheusEnabled bool   `yaml:"prometheus_enabled"`
		MetricsPath       string `yaml:"metrics_path"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled        bool    `yaml:"enabled"`
		ServiceName    string  `yaml:"service_name"`
		JaegerEndpoint string  `yaml:"jaeger_endpoint"`
		SamplingRate   float64 `yaml:"sampling_rate"`
	} `yaml:"tracing"`

	Reliability struct {
		Retry          retry.Config          `yaml:"retry"`
		CircuitBreaker circuitbreaker.Config `yaml:"circuit_breaker"`
	} `yaml:"reliability"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}
	for _, proxy := range c.Server.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("server.trusted_proxies: %q is neither an IP nor a CIDR", proxy)
			}
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Storage
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri must not be empty when storage.backend=mongo")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("mongo.database must not be empty when storage.backend=mongo")
		}
		if c.Mongo.MaxPoolSize == 0 || c.Mongo.MinPoolSize > c.Mongo.MaxPoolSize {
			return fmt.Errorf("mongo pool sizes must satisfy 0 <= min_pool_size <= max_pool_size, max_pool_size > 0")
		}
	case BackendRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when storage.backend=redis")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when storage.backend=redis")
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, mongo, redis (got %q)", c.Storage.Backend)
	}

	// Auth
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	switch c.Auth.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("auth.jwt_algorithm must be one of HS256, HS384, HS512 (got %q)", c.Auth.JWTAlgorithm)
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0")
	}
	switch c.Auth.PasswordScheme {
	case "bcrypt", "pbkdf2_sha256":
	default:
		return fmt.Errorf("auth.password_scheme must be bcrypt or pbkdf2_sha256 (got %q)", c.Auth.PasswordScheme)
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.IdleTTL <= 0 {
			return fmt.Errorf("rate_limiting.http.idle_ttl must be > 0 when rate limiting is enabled")
		}
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerEndpoint == "" {
			return fmt.Errorf("tracing.jaeger_endpoint must not be empty when tracing is enabled")
		}
		if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
			return fmt.Errorf("tracing.sampling_rate must be within [0, 1]")
		}
	}

	// Reliability
	if c.Reliability.Retry.MaxAttempts < 0 {
		return fmt.Errorf("reliability.retry.max_attempts must be >= 0")
	}
	if c.Reliability.CircuitBreaker.FailureThreshold <= 0 {
		return fmt.Errorf("reliability.circuit_breaker.failure_threshold must be > 0")
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Storage.Backend = BackendMemory
	cfg.Storage.FallbackToMemory = false

	cfg.Mongo = MongoConfig{
		URI:                    "mongodb://localhost:27017",
		Database:               "assignmentdb",
		MinPoolSize:            10,
		MaxPoolSize:            50,
		ServerSelectionTimeout: 5 * time.Second,
		ConnectTimeout:         10 * time.Second,
		SocketTimeout:          20 * time.Second,
		RetryWrites:            true,
		RetryReads:             true,
	}

	cfg.Redis = RedisConfig{
		Address:      "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		KeyPrefix:    "streamhub:",
	}

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.JWTAlgorithm = "HS256"
	cfg.Auth.AccessTokenTTL = 30 * time.Minute
	cfg.Auth.PasswordScheme = "bcrypt"
	cfg.Auth.BcryptCost = 12
	cfg.Auth.PBKDF2Rounds = 29000

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0
	cfg.RateLimiting.HTTP.IdleTTL = 10 * time.Minute

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.MetricsPath = "/metrics"

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "streamhub"
	cfg.Tracing.JaegerEndpoint = "http://localhost:14268/api/traces"
	cfg.Tracing.SamplingRate = 1.0

	cfg.Reliability.Retry = retry.DefaultConfig()
	cfg.Reliability.CircuitBreaker = circuitbreaker.DefaultConfig()

	return cfg
}

func (c *Config) applyEnvOverrides() error {
	// Variable names shared with existing deployments of the service.
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		c.Mongo.URI = uri
	}
	if db := os.Getenv("DB_NAME"); db != "" {
		c.Mongo.Database = db
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if alg := os.Getenv("JWT_ALG"); alg != "" {
		c.Auth.JWTAlgorithm = strings.ToUpper(alg)
	}
	if minutes := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); minutes != "" {
		n, err := strconv.Atoi(minutes)
		if err != nil || n <= 0 {
			return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be a positive integer (got %q)", minutes)
		}
		c.Auth.AccessTokenTTL = time.Duration(n) * time.Minute
	}

	if addr := os.Getenv("STREAMHUB_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("STREAMHUB_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if backend := os.Getenv("STREAMHUB_STORAGE_BACKEND"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
	if addr := os.Getenv("STREAMHUB_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
	return nil
}
