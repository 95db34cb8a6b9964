// Package orchestrator handles one chat turn: ground the model on linked
// content, or run the model's reply as an instruction.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"unicode/utf8"

	"github.com/dwizi/larkbot/internal/actions"
	"github.com/dwizi/larkbot/internal/actions/executor"
	"github.com/dwizi/larkbot/internal/agenterr"
	"github.com/dwizi/larkbot/internal/links"
	"github.com/dwizi/larkbot/internal/llm"
)

const (
	DefaultMaxTokens         = 1000
	DefaultTemperature       = 0.7
	DefaultMaxGroundingBytes = 32 * 1024

	truncatedMarker = "\n[content truncated]"
)

type Fetcher interface {
	Fetch(ctx context.Context, link links.Link) (string, error)
}

type Executor interface {
	Execute(ctx context.Context, chatID string, instruction actions.Instruction) (executor.Result, error)
}

type PromptSource interface {
	SystemPrompt() string
}

type Config struct {
	MaxTokens         int
	Temperature       float64
	MaxGroundingBytes int
}

type Turn struct {
	ChatID string
	Text   string
}

type Service struct {
	completer llm.Completer
	fetcher   Fetcher
	executor  Executor
	prompts   PromptSource
	cfg       Config
	logger    *slog.Logger
}

func New(completer llm.Completer, fetcher Fetcher, executor Executor, prompts PromptSource, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxGroundingBytes <= 0 {
		cfg.MaxGroundingBytes = DefaultMaxGroundingBytes
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		completer: completer,
		fetcher:   fetcher,
		executor:  executor,
		prompts:   prompts,
		cfg:       cfg,
		logger:    logger.With("component", "orchestrator"),
	}
}

// HandleMessage always returns display text. Failures are logged and
// rendered, panics included.
func (s *Service) HandleMessage(ctx context.Context, turn Turn) (reply string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error("message handling panicked", "chat_id", turn.ChatID, "panic", fmt.Sprint(recovered), "stack", string(debug.Stack()))
			reply = ApologyMessage
		}
	}()

	if link, ok := links.Extract(turn.Text); ok {
		return s.handleLink(ctx, turn, link)
	}
	return s.handleFreeForm(ctx, turn)
}

func (s *Service) handleLink(ctx context.Context, turn Turn, link links.Link) string {
	logger := s.logger.With("chat_id", turn.ChatID, "link_kind", link.Kind, "token", link.Token)
	content, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		logFailure(logger, "link content fetch failed", err)
		return FetchFailedMessage
	}

	answer, err := s.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: groundingPrompt(link.Kind, capBytes(content, s.cfg.MaxGroundingBytes), turn.Text)},
		},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		logger.Error("grounding completion failed", "error", err)
		return LinkErrorMessage
	}
	return ContentRetrievedPrefix + answer
}

func (s *Service) handleFreeForm(ctx context.Context, turn Turn) string {
	logger := s.logger.With("chat_id", turn.ChatID)
	reply, err := s.completer.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: s.prompts.SystemPrompt()},
			{Role: llm.RoleUser, Content: turn.Text},
		},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		logger.Error("completion failed", "error", err)
		if errors.Is(err, llm.ErrUnavailable) {
			return ModelUnavailableMessage
		}
		return ApologyMessage
	}

	instruction, ok := actions.ParseInstruction(reply)
	if !ok {
		return reply
	}
	logger = logger.With("action", instruction.Action())
	result, err := s.executor.Execute(ctx, turn.ChatID, instruction)
	if err != nil {
		logFailure(logger, "action failed", err)
		return RenderFailure(err)
	}
	logger.Info("action executed", "plugin", result.Plugin)
	return result.Message
}

func groundingPrompt(kind links.Kind, content, message string) string {
	return fmt.Sprintf(`The user shared a Lark/Feishu %s. Its content is:

%s

The user's question or instruction: %s

Answer the user's question based on the content. If there is no specific question, summarize the content.`, kindLabel(kind), content, message)
}

func kindLabel(kind links.Kind) string {
	switch kind {
	case links.KindWiki:
		return "wiki page"
	case links.KindTable:
		return "table"
	default:
		return "document"
	}
}

// capBytes cuts content to at most limit bytes on a rune boundary.
func capBytes(content string, limit int) string {
	if limit <= 0 || len(content) <= limit {
		return content
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + truncatedMarker
}

func logFailure(logger *slog.Logger, msg string, err error) {
	if failure, ok := agenterr.As(err); ok {
		logger.Warn(msg, "op", failure.Op, "category", failure.Category, "detail", failure.Detail, "error", err)
		return
	}
	logger.Error(msg, "error", err)
}
