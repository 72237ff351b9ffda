// Package lark delivers review-channel notifications through the Lark open platform.
package lark

import (
	"net/http"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"
)

// Config holds Lark client configuration
type Config struct {
	AppID     string
	AppSecret string
	ChatID    string // Review channel that receives notifications
	BaseURL   string // Overrides the open platform domain, mainly for tests
	Timeout   time.Duration
}

// NewSDKClient creates a Lark SDK client from cfg
func NewSDKClient(cfg Config, logger *zap.Logger) *lark.Client {
	opts := []lark.ClientOptionFunc{
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lark.WithOpenBaseUrl(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, lark.WithHttpClient(&http.Client{Timeout: cfg.Timeout}))
	}

	logger.Info("Lark client configured",
		zap.String("app_id", cfg.AppID),
		zap.String("chat_id", cfg.ChatID))

	return lark.NewClient(cfg.AppID, cfg.AppSecret, opts...)
}
