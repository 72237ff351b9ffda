package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "test.db")
	cfg.Session.RedisURL = "redis://" + mr.Addr()
	cfg.Session.SigningKey = "test-signing-key"
	cfg.Session.SweepInterval = time.Hour
	cfg.OpenAI.APIKey = "sk-test"
	cfg.Storage.ReceiptDir = filepath.Join(dir, "receipts")
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	return cfg
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	// Defaults carry no secrets
	_, err = NewContainer(DefaultConfig(), zap.NewNop())
	assert.ErrorContains(t, err, "invalid config")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"missing redis url", func(c *Config) { c.Session.RedisURL = "" }, "session.redis_url"},
		{"missing signing key", func(c *Config) { c.Session.SigningKey = "" }, "session.signing_key"},
		{"missing api key", func(c *Config) { c.OpenAI.APIKey = "" }, "openai.api_key"},
		{"missing receipt dir", func(c *Config) { c.Storage.ReceiptDir = "" }, "storage.receipt_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Session.SigningKey = "key"
			cfg.OpenAI.APIKey = "sk"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestContainer_StartAndClose(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(ctx), "second start must fail")

	assert.NotNil(t, c.Server())
	assert.NotNil(t, c.Sessions())
	assert.NotNil(t, c.Store())
	require.NotNil(t, c.Services())
	assert.NotNil(t, c.Services().Expenses)
	assert.Nil(t, c.Services().Notifications, "notifications are off without a chat")

	health := c.Health(ctx)
	assert.True(t, health.Overall, "%+v", health.Components)
	assert.True(t, health.Components["database"].Healthy)
	assert.True(t, health.Components["redis"].Healthy)
	assert.Equal(t, "disabled", health.Components["notifications"].Message)

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(ctx))

	health = c.Health(ctx)
	assert.False(t, health.Overall)
}

func TestContainer_StartFailureReleasesResources(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.RedisURL = "redis://127.0.0.1:1/0"

	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)

	err = c.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity")
	assert.False(t, c.Ready())
	assert.Nil(t, c.Store(), "database must be released after a failed start")
}
