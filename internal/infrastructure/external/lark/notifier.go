package lark

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/club-expenses/internal/application/port"
)

// ChatNotifier posts notifications as rich-text messages to one group chat
type ChatNotifier struct {
	client *lark.Client
	chatID string
	logger *zap.Logger
}

var _ port.Notifier = (*ChatNotifier)(nil)

// NewChatNotifier creates a notifier that posts into chatID
func NewChatNotifier(client *lark.Client, chatID string, logger *zap.Logger) *ChatNotifier {
	return &ChatNotifier{
		client: client,
		chatID: chatID,
		logger: logger,
	}
}

type postElement struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

type postBody struct {
	Title   string          `json:"title"`
	Content [][]postElement `json:"content"`
}

// Notify sends title and body to the configured chat
func (n *ChatNotifier) Notify(ctx context.Context, title, body string) error {
	if title == "" && body == "" {
		return fmt.Errorf("notification cannot be empty")
	}

	content, err := buildPostContent(title, body)
	if err != nil {
		return err
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("chat_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(n.chatID).
			MsgType("post").
			Content(content).
			Build()).
		Build()

	resp, err := n.client.Im.Message.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send message",
			zap.String("chat_id", n.chatID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		n.logger.Error("API returned failure",
			zap.String("chat_id", n.chatID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	n.logger.Info("Notification sent",
		zap.String("message_id", messageID),
		zap.String("title", title))
	return nil
}

func buildPostContent(title, body string) (string, error) {
	post := map[string]postBody{
		"en_us": {
			Title:   title,
			Content: [][]postElement{{{Tag: "text", Text: body}}},
		},
	}
	data, err := json.Marshal(post)
	if err != nil {
		return "", fmt.Errorf("failed to marshal post content: %w", err)
	}
	return string(data), nil
}
