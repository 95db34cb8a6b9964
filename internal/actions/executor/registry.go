package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dwizi/larkbot/internal/actions"
	"github.com/dwizi/larkbot/internal/agenterr"
	"github.com/dwizi/larkbot/internal/store"
)

var ErrPluginNotFound = errors.New("action plugin not found")

type Result struct {
	Plugin  string
	Message string
}

type Plugin interface {
	PluginKey() string
	ActionTypes() []string
	Execute(ctx context.Context, instruction actions.Instruction) (Result, error)
}

// Auditor records the outcome of every executed action.
type Auditor interface {
	CreateActionAudit(ctx context.Context, input store.CreateActionAuditInput) (store.ActionAudit, error)
}

type Registry struct {
	plugins map[string]Plugin
	auditor Auditor
	logger  *slog.Logger
}

func NewRegistry(plugins ...Plugin) *Registry {
	indexed := map[string]Plugin{}
	for _, plugin := range plugins {
		if plugin == nil {
			continue
		}
		for _, actionType := range plugin.ActionTypes() {
			key := normalizeActionType(actionType)
			if key == "" {
				continue
			}
			indexed[key] = plugin
		}
	}
	return &Registry{
		plugins: indexed,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithAuditor enables action audit records. Audit failures are logged and
// never change the result of an action.
func (r *Registry) WithAuditor(auditor Auditor, logger *slog.Logger) *Registry {
	r.auditor = auditor
	if logger != nil {
		r.logger = logger.With("component", "executor")
	}
	return r
}

func (r *Registry) Execute(ctx context.Context, chatID string, instruction actions.Instruction) (Result, error) {
	switch typed := instruction.(type) {
	case nil:
		return Result{}, agenterr.New("execute", agenterr.CategoryInvalidParams, "empty instruction")
	case actions.Unrecognized:
		return Result{
			Plugin:  "echo",
			Message: fmt.Sprintf("Performed action: %s, params: %s", typed.Name, compactParams(typed.Params)),
		}, nil
	case actions.Invalid:
		err := agenterr.Wrap(typed.Name, agenterr.CategoryInvalidParams, fmt.Errorf("%w: %s", agenterr.ErrInvalidParams, typed.Reason))
		err.Detail = typed.Reason
		r.audit(ctx, chatID, typed.Name, "", err)
		return Result{}, err
	}

	if r == nil {
		return Result{}, fmt.Errorf("%w: no registry configured", ErrPluginNotFound)
	}
	actionType := normalizeActionType(instruction.Action())
	plugin, ok := r.plugins[actionType]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrPluginNotFound, actionType)
	}
	result, err := plugin.Execute(ctx, instruction)
	if err != nil {
		failure := agenterr.Classify(actionType, err)
		r.audit(ctx, chatID, actionType, plugin.PluginKey(), failure)
		return Result{}, failure
	}
	if strings.TrimSpace(result.Plugin) == "" {
		result.Plugin = plugin.PluginKey()
	}
	r.audit(ctx, chatID, actionType, result.Plugin, nil)
	return result, nil
}

func (r *Registry) audit(ctx context.Context, chatID, action, plugin string, failure *agenterr.Failure) {
	if r == nil || r.auditor == nil {
		return
	}
	input := store.CreateActionAuditInput{
		ChatID:  chatID,
		Action:  action,
		Plugin:  plugin,
		Outcome: store.OutcomeOK,
	}
	if failure != nil {
		input.Outcome = store.OutcomeFailed
		input.Category = string(failure.Category)
		input.Detail = failure.Detail
	}
	if _, err := r.auditor.CreateActionAudit(ctx, input); err != nil {
		r.logger.Warn("action audit failed", "error", err, "chat_id", chatID, "action", action)
	}
}

func compactParams(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "null"
	}
	var buffer bytes.Buffer
	if err := json.Compact(&buffer, raw); err != nil {
		return string(raw)
	}
	return buffer.String()
}

func normalizeActionType(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
