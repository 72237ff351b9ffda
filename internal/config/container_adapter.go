package config

import (
	"github.com/garyjia/club-expenses/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Session: container.SessionConfig{
			RedisURL:      c.Redis.URL,
			TTL:           c.Session.TTL,
			SweepInterval: c.Session.SweepInterval,
			SigningKey:    c.Identity.SigningKey,
			Issuer:        c.Identity.Issuer,
			Audience:      c.Identity.Audience,
			Leeway:        c.Identity.Leeway,
		},
		OpenAI: container.OpenAIConfig{
			APIKey:      c.OpenAI.APIKey,
			BaseURL:     c.OpenAI.BaseURL,
			Model:       c.OpenAI.Model,
			PromptsPath: c.OpenAI.PromptsPath,
			Timeout:     c.OpenAI.Timeout,
		},
		Lark: container.LarkConfig{
			AppID:      c.Lark.AppID,
			AppSecret:  c.Lark.AppSecret,
			ChatID:     c.Lark.ChatID,
			APITimeout: c.Lark.APITimeout,
		},
		Storage: container.StorageConfig{
			ReceiptDir:     c.Storage.ReceiptDir,
			ReceiptURLPath: c.Storage.ReceiptURLPath,
			MaxUploadBytes: c.Storage.MaxUploadBytes,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			ReadyTimeout:   c.Server.ReadyTimeout,
			AllowedOrigins: c.Server.AllowedOrigins,
		},
	}
}
