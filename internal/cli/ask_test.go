package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dwizi/larkbot/internal/orchestrator"
)

type fakeTurnHandler struct {
	turns []orchestrator.Turn
	reply string
}

func (f *fakeTurnHandler) HandleMessage(ctx context.Context, turn orchestrator.Turn) string {
	f.turns = append(f.turns, turn)
	return f.reply
}

func TestRunAskPrintsReply(t *testing.T) {
	handler := &fakeTurnHandler{reply: "🔍 No documents found containing \"roadmap\"."}
	var out bytes.Buffer

	if err := runAsk(context.Background(), handler, "cli", "  find roadmap docs ", &out); err != nil {
		t.Fatalf("run ask: %v", err)
	}
	if strings.TrimSpace(out.String()) != handler.reply {
		t.Fatalf("unexpected output %q", out.String())
	}
	if len(handler.turns) != 1 || handler.turns[0].Text != "find roadmap docs" || handler.turns[0].ChatID != "cli" {
		t.Fatalf("unexpected turns: %+v", handler.turns)
	}
}

func TestRunAskRejectsEmptyMessage(t *testing.T) {
	handler := &fakeTurnHandler{}
	if err := runAsk(context.Background(), handler, "cli", "   ", io.Discard); err == nil {
		t.Fatal("expected error for empty message")
	}
	if len(handler.turns) != 0 {
		t.Fatal("expected no turn for empty message")
	}
}

func TestRootRegistersCommands(t *testing.T) {
	root := NewRoot(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, name := range []string{"serve", "ask", "version"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Fatalf("expected %s command, got %v (%v)", name, cmd, err)
		}
	}

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute version: %v", err)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Fatalf("unexpected version output %q", out.String())
	}
}
