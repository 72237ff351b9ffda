// Package container provides dependency injection and lifecycle management
// for the club expense service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database DatabaseConfig
	Session  SessionConfig
	OpenAI   OpenAIConfig
	Lark     LarkConfig
	Storage  StorageConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// SessionConfig holds identity verification and session token settings.
type SessionConfig struct {
	RedisURL      string
	TTL           time.Duration
	SweepInterval time.Duration

	// ID token verification
	SigningKey string
	Issuer     string
	Audience   string
	Leeway     time.Duration
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	PromptsPath string
	Timeout     time.Duration
}

// LarkConfig holds Lark notification settings. An empty ChatID disables
// notifications.
type LarkConfig struct {
	AppID      string
	AppSecret  string
	ChatID     string
	APITimeout time.Duration
}

// StorageConfig holds receipt storage settings.
type StorageConfig struct {
	ReceiptDir     string
	ReceiptURLPath string
	MaxUploadBytes int64
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ReadyTimeout   time.Duration
	AllowedOrigins []string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/club-expenses.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Session: SessionConfig{
			RedisURL:      "redis://localhost:6379/0",
			TTL:           24 * time.Hour,
			SweepInterval: time.Minute,
			Leeway:        30 * time.Second,
		},
		OpenAI: OpenAIConfig{
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Lark: LarkConfig{
			APITimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			ReceiptDir:     "data/receipts",
			ReceiptURLPath: "/receipts",
			MaxUploadBytes: 10 << 20,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			ReadyTimeout: 5 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Session.RedisURL == "" {
		return fmt.Errorf("session.redis_url is required")
	}
	if c.Session.SigningKey == "" {
		return fmt.Errorf("session.signing_key is required")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if c.Storage.ReceiptDir == "" {
		return fmt.Errorf("storage.receipt_dir is required")
	}
	return nil
}
