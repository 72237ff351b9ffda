package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/club-expenses/internal/application/port"
)

// Config holds the ranker's connection settings
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Ranker implements port.ExpenseRanker with an OpenAI chat completion
type Ranker struct {
	client  *openai.Client
	model   string
	prompts *PromptConfig
	logger  *zap.Logger
}

var _ port.ExpenseRanker = (*Ranker)(nil)

// NewRanker creates a new OpenAI expense ranker
func NewRanker(cfg Config, prompts *PromptConfig, logger *zap.Logger) *Ranker {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &Ranker{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		prompts: prompts,
		logger:  logger,
	}
}

// Rank asks the model to score items by urgency. The answer must match the
// ranking shape exactly or an error is returned.
func (r *Ranker) Rank(ctx context.Context, items []port.RankingInput) ([]port.Ranking, error) {
	p := r.prompts.Prioritization

	prompt, err := renderTemplate(p.UserTemplate, struct {
		Expenses []port.RankingInput
	}{Expenses: items})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Requesting expense ranking", zap.Int("expense_count", len(items)))

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: p.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		r.logger.Error("OpenAI API call failed", zap.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, &SchemaError{Reason: "no choices in response"}
	}

	content := resp.Choices[0].Message.Content
	rankings, err := ParseRankings(content)
	if err != nil {
		r.logger.Error("Failed to parse ranking response",
			zap.Error(err),
			zap.String("content", content))
		return nil, err
	}

	r.logger.Info("Expense ranking completed",
		zap.Int("expense_count", len(items)),
		zap.Int("ranking_count", len(rankings)))

	return rankings, nil
}
