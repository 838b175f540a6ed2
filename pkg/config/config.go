package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Browser struct {
		ExecPath             string        `yaml:"exec_path"`
		Headless             bool          `yaml:"headless"`
		NoSandbox            bool          `yaml:"no_sandbox"`
		UserAgent            string        `yaml:"user_agent"`
		WindowWidth          int           `yaml:"window_width"`
		WindowHeight         int           `yaml:"window_height"`
		NavigationTimeout    time.Duration `yaml:"navigation_timeout"`
		MaxNavigationTimeout time.Duration `yaml:"max_navigation_timeout"`
		QueueTimeout         time.Duration `yaml:"queue_timeout"`
		StartupTimeout       time.Duration `yaml:"startup_timeout"`
		ExtractionTimeout    time.Duration `yaml:"extraction_timeout"`
		MaxSessions          int           `yaml:"max_sessions"`
	} `yaml:"browser"`

	Breaker struct {
		FailureThreshold    int           `yaml:"failure_threshold"`
		SuccessThreshold    int           `yaml:"success_threshold"`
		OpenTimeout         time.Duration `yaml:"open_timeout"`
		MaxRequestsHalfOpen int           `yaml:"max_requests_half_open"`
	} `yaml:"breaker"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Address  string        `yaml:"address"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		PoolSize int           `yaml:"pool_size"`
		LockKey  string        `yaml:"lock_key"`
		LockTTL  time.Duration `yaml:"lock_ttl"`
	} `yaml:"redis"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`
	} `yaml:"rate_limiting"`
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

	// Browser
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be > 0")
	}
	if c.Browser.MaxNavigationTimeout < c.Browser.NavigationTimeout {
		return fmt.Errorf("browser.max_navigation_timeout must be >= browser.navigation_timeout")
	}
	if c.Browser.QueueTimeout <= 0 {
		return fmt.Errorf("browser.queue_timeout must be > 0")
	}
	if c.Browser.MaxSessions <= 0 {
		return fmt.Errorf("browser.max_sessions must be > 0")
	}
	if c.Browser.WindowWidth < 0 || c.Browser.WindowHeight < 0 {
		return fmt.Errorf("browser.window_width and window_height must be >= 0")
	}
	if c.Browser.StartupTimeout <= 0 {
		return fmt.Errorf("browser.startup_timeout must be > 0")
	}
	if c.Browser.ExtractionTimeout <= 0 {
		return fmt.Errorf("browser.extraction_timeout must be > 0")
	}
	if budget := c.MaxMeasurementDuration(); c.Server.WriteTimeout < budget {
		return fmt.Errorf("server.write_timeout must be >= %s (queue + startup + max navigation + extraction)", budget)
	}

	// Breaker
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker.failure_threshold must be > 0")
	}
	if c.Breaker.SuccessThreshold <= 0 {
		return fmt.Errorf("breaker.success_threshold must be > 0")
	}
	if c.Breaker.OpenTimeout <= 0 {
		return fmt.Errorf("breaker.open_timeout must be > 0")
	}
	if c.Breaker.MaxRequestsHalfOpen <= 0 {
		return fmt.Errorf("breaker.max_requests_half_open must be > 0")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
		if c.Redis.LockKey == "" {
			return fmt.Errorf("redis.lock_key must not be empty when redis.enabled=true")
		}
		if c.Redis.LockTTL <= 0 {
			return fmt.Errorf("redis.lock_ttl must be > 0 when redis.enabled=true")
		}
		// the Redis gate is a single lock shared by every replica
		if c.Browser.MaxSessions > 1 {
			return fmt.Errorf("browser.max_sessions must be 1 when redis.enabled=true")
		}
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
	}

	return nil
}

// MaxMeasurementDuration is the longest a single measurement request can
// take before its envelope is written.
func (c *Config) MaxMeasurementDuration() time.Duration {
	return c.Browser.QueueTimeout + c.Browser.StartupTimeout +
		c.Browser.MaxNavigationTimeout + c.Browser.ExtractionTimeout
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFirst loads the first path that exists, or defaults when none does.
func LoadFirst(paths ...string) (*Config, string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := Load(path)
		return cfg, path, err
	}

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	return cfg, "", cfg.Validate()
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":5000"
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 4 * time.Minute
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Browser.Headless = true
	cfg.Browser.WindowWidth = 1366
	cfg.Browser.WindowHeight = 768
	cfg.Browser.NavigationTimeout = 30 * time.Second
	cfg.Browser.MaxNavigationTimeout = 2 * time.Minute
	cfg.Browser.QueueTimeout = time.Minute
	cfg.Browser.StartupTimeout = 30 * time.Second
	cfg.Browser.ExtractionTimeout = 10 * time.Second
	cfg.Browser.MaxSessions = 1

	cfg.Breaker.FailureThreshold = 3
	cfg.Breaker.SuccessThreshold = 1
	cfg.Breaker.OpenTimeout = 30 * time.Second
	cfg.Breaker.MaxRequestsHalfOpen = 1

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10
	cfg.Redis.LockKey = "perfprobe:browser-session"
	cfg.Redis.LockTTL = 3 * time.Minute

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 1
	cfg.RateLimiting.HTTP.Burst = 5
	cfg.RateLimiting.HTTP.MaxConcurrent = 0

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("PERFPROBE_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("PERFPROBE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if path := os.Getenv("PERFPROBE_CHROME_PATH"); path != "" {
		c.Browser.ExecPath = path
	}
	if addr := os.Getenv("PERFPROBE_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
		c.Redis.Enabled = true
	}
}
