package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Identity IdentityConfig `mapstructure:"identity"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Lark     LarkConfig     `mapstructure:"lark"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Session  SessionConfig  `mapstructure:"session"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	ReadyTimeout   time.Duration `mapstructure:"ready_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"` // Empty runs the embedded migrations
}

// RedisConfig holds the session token store connection
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// IdentityConfig holds identity provider token verification settings
type IdentityConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	Leeway     time.Duration `mapstructure:"leeway"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	PromptsPath string        `mapstructure:"prompts_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LarkConfig holds Lark notification configuration. Notifications are
// disabled when ChatID is empty.
type LarkConfig struct {
	AppID      string        `mapstructure:"app_id"`
	AppSecret  string        `mapstructure:"app_secret"`
	ChatID     string        `mapstructure:"chat_id"`
	APITimeout time.Duration `mapstructure:"api_timeout"`
}

// StorageConfig holds receipt storage configuration
type StorageConfig struct {
	ReceiptDir     string `mapstructure:"receipt_dir"`
	ReceiptURLPath string `mapstructure:"receipt_url_path"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// SessionConfig holds session lifetime configuration
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads configuration from configPath, the environment and an
// optional .env file next to the working directory. A missing config
// file is not an error; defaults and environment apply.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.ready_timeout", 5*time.Second)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("database.path", "data/club-expenses.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "")

	v.SetDefault("redis.url", "redis://localhost:6379/0")

	v.SetDefault("identity.leeway", 30*time.Second)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.timeout", 60*time.Second)

	v.SetDefault("lark.api_timeout", 30*time.Second)

	v.SetDefault("storage.receipt_dir", "data/receipts")
	v.SetDefault("storage.receipt_url_path", "/receipts")
	v.SetDefault("storage.max_upload_bytes", 10<<20)

	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.sweep_interval", time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds secrets to their conventional environment names
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("identity.signing_key", "IDENTITY_SIGNING_KEY")
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("lark.app_id", "LARK_APP_ID")
	_ = v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	_ = v.BindEnv("lark.chat_id", "LARK_CHAT_ID")
	_ = v.BindEnv("redis.url", "REDIS_URL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required")
	}
	if c.Identity.SigningKey == "" {
		return fmt.Errorf("identity.signing_key is required")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if c.Lark.ChatID != "" && (c.Lark.AppID == "" || c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret are required when lark.chat_id is set")
	}
	if c.Storage.ReceiptDir == "" {
		return fmt.Errorf("storage.receipt_dir is required")
	}
	if !strings.HasPrefix(c.Storage.ReceiptURLPath, "/") {
		return fmt.Errorf("storage.receipt_url_path must start with /")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	return nil
}
