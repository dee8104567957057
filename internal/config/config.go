package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultSessionSecret = "default-secret-key-change-me"
	defaultJWTSecret     = "default-jwt-secret-change-me"
	defaultInviteSecret  = "default-invite-secret-change-me"
)

type Config struct {
	Addr          string `yaml:"addr"`
	GinMode       string `yaml:"gin_mode"`
	FrontendURL   string `yaml:"frontend_url"`
	SessionSecret string `yaml:"session_secret"`
	JWTSecret     string `yaml:"jwt_secret"`
	InviteSecret  string `yaml:"invite_secret"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`

	DB    DBConfig    `yaml:"database"`
	Redis RedisConfig `yaml:"redis"`
	Log   LogConfig   `yaml:"log"`

	// RateLimit is the number of sensitive requests (login, invite acceptance)
	// a single caller may make per minute.
	RateLimit int `yaml:"rate_limit"`
}

type DBConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// Addr returns host:port for the redis session store. An empty host disables redis.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Verbose bool   `yaml:"verbose"`
}

// Load reads the optional YAML file at path, applies environment overrides
// and defaults, then validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Addr = getEnv("APP_ADDR", c.Addr)
	c.GinMode = getEnv("GIN_MODE", c.GinMode)
	c.FrontendURL = getEnv("FRONTEND_URL", c.FrontendURL)
	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.InviteSecret = getEnv("INVITE_SECRET", c.InviteSecret)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)

	c.DB.Driver = getEnv("DB_DRIVER", c.DB.Driver)
	c.DB.Host = getEnv("DB_HOST", c.DB.Host)
	c.DB.Port = getEnv("DB_PORT", c.DB.Port)
	c.DB.User = getEnv("DB_USER", c.DB.User)
	c.DB.Password = getEnv("DB_PASSWORD", c.DB.Password)
	c.DB.Name = getEnv("DB_NAME", c.DB.Name)
	c.DB.Path = getEnv("DB_PATH", c.DB.Path)

	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnv("REDIS_PORT", c.Redis.Port)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

func (c *Config) setDefaults() {
	setDefault(&c.Addr, ":8080")
	setDefault(&c.GinMode, "debug")
	setDefault(&c.FrontendURL, "http://localhost:5173")
	setDefault(&c.SessionSecret, defaultSessionSecret)
	setDefault(&c.JWTSecret, defaultJWTSecret)
	setDefault(&c.InviteSecret, defaultInviteSecret)

	setDefault(&c.DB.Driver, "mysql")
	setDefault(&c.DB.Host, "localhost")
	setDefault(&c.DB.User, "taskuser")
	setDefault(&c.DB.Password, "taskpassword")
	setDefault(&c.DB.Name, "task_management")
	setDefault(&c.DB.Path, "data/workspaces.db")
	if c.DB.Port == "" {
		switch c.DB.Driver {
		case "postgres":
			c.DB.Port = "5432"
		default:
			c.DB.Port = "3306"
		}
	}

	setDefault(&c.Redis.Port, "6379")

	setDefault(&c.Log.Level, "info")
	setDefault(&c.Log.Format, "text")

	if c.RateLimit <= 0 {
		c.RateLimit = 30
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be one of mysql, postgres, sqlite (got %q)", c.DB.Driver)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}

	if c.IsProduction() {
		if c.SessionSecret == defaultSessionSecret {
			return fmt.Errorf("session_secret must be set in release mode")
		}
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("jwt_secret must be set in release mode")
		}
		if c.InviteSecret == defaultInviteSecret {
			return fmt.Errorf("invite_secret must be set in release mode")
		}
	}
	return nil
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
