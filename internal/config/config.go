package config

import "time"

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend    string `mapstructure:"backend"` // redis, sqlite or memory
	Prefix     string `mapstructure:"prefix"`  // redis key prefix
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ModelConfig controls the language-model endpoint.
type ModelConfig struct {
	APIKey      string  `mapstructure:"api_key"` // used when no key is stored
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Timeout     string  `mapstructure:"timeout"` // duration string, e.g., "60s"
	Temperature float32 `mapstructure:"temperature"`
}

// CloudflareConfig enables the browser-rendering source.
type CloudflareConfig struct {
	AccountID string `mapstructure:"account_id"`
	Token     string `mapstructure:"token"`
}

// ExtractConfig controls how pages are read.
type ExtractConfig struct {
	Source        string           `mapstructure:"source"` // http or cloudflare
	UserAgent     string           `mapstructure:"user_agent"`
	Timeout       string           `mapstructure:"timeout"`
	MinTextLength int              `mapstructure:"min_text_length"`
	Cloudflare    CloudflareConfig `mapstructure:"cloudflare"`
}

// ServerConfig controls the panel HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Config is the top-level configuration structure.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Store   StoreConfig   `mapstructure:"store"`
	Model   ModelConfig   `mapstructure:"model"`
	Extract ExtractConfig `mapstructure:"extract"`
	Server  ServerConfig  `mapstructure:"server"`
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "redis"
	}
	if c.Store.Prefix == "" {
		c.Store.Prefix = "neutral-reader:"
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = "./neutral-reader.db"
	}
	if c.Model.BaseURL == "" {
		c.Model.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	if c.Model.Model == "" {
		c.Model.Model = "gemini-2.0-flash"
	}
	if c.Model.Timeout == "" {
		c.Model.Timeout = "60s"
	}
	if c.Model.Temperature == 0 {
		c.Model.Temperature = 0.2
	}
	if c.Extract.Source == "" {
		c.Extract.Source = "http"
	}
	if c.Extract.Timeout == "" {
		c.Extract.Timeout = "20s"
	}
	if c.Extract.MinTextLength == 0 {
		c.Extract.MinTextLength = 200
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8787"
	}
}

// Duration parses a duration field, falling back to def when empty or invalid.
func Duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
