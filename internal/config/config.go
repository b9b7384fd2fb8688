package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	// Server has no read or write timeouts: they would outlive the upgrade
	// and cut WebSocket connections.
	Server struct {
		Port              string        `yaml:"port"`
		ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
		IdleTimeout       time.Duration `yaml:"idle_timeout"`
		ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
		AllowedOrigins    []string      `yaml:"allowed_origins"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // "postgres" | "memory"
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		MaxConns int32  `yaml:"max_conns"`
	} `yaml:"database"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret      string        `yaml:"jwt_secret"`
		AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
	} `yaml:"auth"`

	WebSocket struct {
		PingInterval      time.Duration `yaml:"ping_interval"`
		WriteWait         time.Duration `yaml:"write_wait"`
		SendBuffer        int           `yaml:"send_buffer"`
		MaxMessageSize    int64         `yaml:"max_message_size"`
		MessagesPerSecond float64       `yaml:"messages_per_second"`
		Burst             int           `yaml:"burst"`
	} `yaml:"websocket"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// DefaultConfig returns the development defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Port = "8080"
	cfg.Server.ReadHeaderTimeout = 10 * time.Second
	cfg.Server.IdleTimeout = 60 * time.Second
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Server.AllowedOrigins = []string{"*"}

	cfg.Database.Driver = "postgres"
	cfg.Database.Host = "localhost"
	cfg.Database.Port = "5432"
	cfg.Database.User = "arena"
	cfg.Database.Password = "arena_dev_password"
	cfg.Database.Name = "arena"
	cfg.Database.MaxConns = 10

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.PoolSize = 10

	cfg.Auth.JWTSecret = "dev-secret-change-me"
	cfg.Auth.AccessTokenTTL = 24 * time.Hour

	cfg.WebSocket.PingInterval = 30 * time.Second
	cfg.WebSocket.WriteWait = 10 * time.Second
	cfg.WebSocket.SendBuffer = 256
	cfg.WebSocket.MaxMessageSize = 4096
	cfg.WebSocket.MessagesPerSecond = 20
	cfg.WebSocket.Burst = 40

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"

	return cfg
}

// Load reads the YAML file at path (if it exists), then applies env overrides
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("database.host and database.name must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or memory, got %q", c.Database.Driver)
	}

	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0")
	}

	if c.WebSocket.PingInterval <= 0 || c.WebSocket.WriteWait <= 0 {
		return fmt.Errorf("websocket.ping_interval and websocket.write_wait must be > 0")
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket.send_buffer must be > 0")
	}
	if c.WebSocket.MessagesPerSecond <= 0 || c.WebSocket.Burst <= 0 {
		return fmt.Errorf("websocket.messages_per_second and websocket.burst must be > 0")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name)
}

func (c *Config) applyEnvOverrides() {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Database.Driver = getEnv("STORAGE_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)

	if addr, ok := os.LookupEnv("REDIS_URL"); ok {
		c.Redis.Address = addr
		c.Redis.Enabled = addr != ""
	}
	if v, ok := os.LookupEnv("METRICS_ENABLED"); ok {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Metrics.Enabled = enabled
		}
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}
