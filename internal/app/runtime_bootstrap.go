package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dwizi/larkbot/internal/actions/executor"
	"github.com/dwizi/larkbot/internal/actions/plugins/bitable"
	"github.com/dwizi/larkbot/internal/actions/plugins/docs"
	"github.com/dwizi/larkbot/internal/actions/plugins/wiki"
	"github.com/dwizi/larkbot/internal/config"
	"github.com/dwizi/larkbot/internal/fetcher"
	"github.com/dwizi/larkbot/internal/llm/openai"
	"github.com/dwizi/larkbot/internal/orchestrator"
	platformlark "github.com/dwizi/larkbot/internal/platform/lark"
	"github.com/dwizi/larkbot/internal/prompt"
)

// Core is the message-handling stack shared by the long-running runtime and
// one-shot commands.
type Core struct {
	Platform     *platformlark.Client
	Prompts      *prompt.Source
	Registry     *executor.Registry
	Orchestrator *orchestrator.Service
}

// NewCore wires the platform client, the model client and the action
// registry. auditor may be nil.
func NewCore(cfg config.Config, auditor executor.Auditor, logger *slog.Logger) (*Core, error) {
	prompts, err := prompt.NewSource(cfg.SystemPromptFile, logger)
	if err != nil {
		return nil, fmt.Errorf("load system prompt: %w", err)
	}

	platformClient := platformlark.New(platformlark.Config{
		AppID:      cfg.AppID,
		AppSecret:  cfg.AppSecret,
		BaseDomain: cfg.BaseDomain,
		Timeout:    time.Duration(cfg.PlatformTimeoutSec) * time.Second,
	}, logger.With("component", "platform-lark"))
	contentFetcher := fetcher.New(platformClient, logger)

	registry := executor.NewRegistry(
		docs.New(platformClient, cfg.ViewerBaseURL),
		wiki.New(contentFetcher),
		bitable.New(platformClient, cfg.ViewerBaseURL),
	)
	if auditor != nil {
		registry = registry.WithAuditor(auditor, logger)
	}

	completer := openai.New(openai.Config{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
		Timeout: time.Duration(cfg.LLMTimeoutSec) * time.Second,
	}, logger.With("component", "llm-openai"))

	service := orchestrator.New(completer, contentFetcher, registry, prompts, orchestrator.Config{
		MaxTokens:         cfg.LLMMaxTokens,
		Temperature:       cfg.LLMTemperature,
		MaxGroundingBytes: cfg.MaxGroundingBytes,
	}, logger)

	return &Core{
		Platform:     platformClient,
		Prompts:      prompts,
		Registry:     registry,
		Orchestrator: service,
	}, nil
}

func ensureDBDirectory(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	return nil
}
