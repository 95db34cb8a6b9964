// Package gateway adapts an inbound chat event to one orchestrator turn and
// decides how the reply is delivered.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dwizi/larkbot/internal/orchestrator"
	"github.com/dwizi/larkbot/internal/platform"
)

const (
	MessageTypeText = "text"
	ChatTypeP2P     = "p2p"

	NonTextReply = "Please send a text message."
	FailureReply = "Message processing failed, please try again later."
)

// DeliveryMode selects the outbound call: create a message in the chat, or
// reply to the inbound message.
type DeliveryMode string

const (
	DeliveryCreate DeliveryMode = "create"
	DeliveryReply  DeliveryMode = "reply"
)

var mentionPattern = regexp.MustCompile(`@_user_\d+`)

type Orchestrator interface {
	HandleMessage(ctx context.Context, turn orchestrator.Turn) string
}

type MessageInput struct {
	ChatID      string
	ChatType    string
	MessageID   string
	MessageType string
	Content     string
}

type MessageOutput struct {
	Reply     string
	Mode      DeliveryMode
	ChatID    string
	MessageID string
}

type Service struct {
	orchestrator Orchestrator
	logger       *slog.Logger
}

func New(orchestrator Orchestrator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		orchestrator: orchestrator,
		logger:       logger.With("component", "gateway"),
	}
}

func (s *Service) HandleMessage(ctx context.Context, input MessageInput) MessageOutput {
	output := MessageOutput{
		Mode:      deliveryMode(input.ChatType),
		ChatID:    input.ChatID,
		MessageID: input.MessageID,
	}
	if input.MessageType != MessageTypeText {
		output.Reply = NonTextReply
		return output
	}
	text, err := decodeText(input.Content)
	if err != nil {
		s.logger.Error("message content decode failed", "error", err, "chat_id", input.ChatID, "message_id", input.MessageID)
		output.Reply = FailureReply
		return output
	}
	output.Reply = s.orchestrator.HandleMessage(ctx, orchestrator.Turn{
		ChatID: input.ChatID,
		Text:   text,
	})
	return output
}

// Deliver sends output through messenger using its delivery mode.
func Deliver(ctx context.Context, messenger platform.Messenger, output MessageOutput) error {
	switch output.Mode {
	case DeliveryReply:
		if strings.TrimSpace(output.MessageID) == "" {
			return fmt.Errorf("reply delivery requires a message id")
		}
		return messenger.ReplyText(ctx, output.MessageID, output.Reply)
	default:
		if strings.TrimSpace(output.ChatID) == "" {
			return fmt.Errorf("create delivery requires a chat id")
		}
		return messenger.SendText(ctx, output.ChatID, output.Reply)
	}
}

func deliveryMode(chatType string) DeliveryMode {
	if chatType == ChatTypeP2P {
		return DeliveryCreate
	}
	return DeliveryReply
}

// decodeText reads the text of a text message body. Group messages carry
// @-mention placeholders which are dropped.
func decodeText(content string) (string, error) {
	var body struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &body); err != nil {
		return "", fmt.Errorf("decode text content: %w", err)
	}
	if body.Text == nil {
		return "", fmt.Errorf("text content has no text field")
	}
	text := mentionPattern.ReplaceAllString(*body.Text, "")
	return strings.TrimSpace(text), nil
}
