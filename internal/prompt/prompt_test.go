package prompt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPromptListsEveryAction(t *testing.T) {
	source, err := NewSource("", nil)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	for _, action := range []string{"create_document", "read_document", "read_wiki", "create_bitable", "search_documents", "search_bitable"} {
		if !strings.Contains(source.SystemPrompt(), `"`+action+`"`) {
			t.Fatalf("expected prompt to describe %s", action)
		}
	}
}

func TestSourceReloadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system.md")
	if err := os.WriteFile(path, []byte("first prompt\n"), 0o644); err != nil {
		t.Fatalf("write prompt: %v", err)
	}
	source, err := NewSource(path, nil)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	if source.SystemPrompt() != "first prompt" {
		t.Fatalf("unexpected prompt: %q", source.SystemPrompt())
	}

	if err := os.WriteFile(path, []byte("second prompt"), 0o644); err != nil {
		t.Fatalf("rewrite prompt: %v", err)
	}
	source.Reload(context.Background(), path)
	if source.SystemPrompt() != "second prompt" {
		t.Fatalf("expected reloaded prompt, got %q", source.SystemPrompt())
	}

	if err := os.WriteFile(path, []byte("   "), 0o644); err != nil {
		t.Fatalf("blank prompt: %v", err)
	}
	source.Reload(context.Background(), path)
	if source.SystemPrompt() != "second prompt" {
		t.Fatalf("expected previous prompt kept, got %q", source.SystemPrompt())
	}
}

func TestNewSourceMissingFile(t *testing.T) {
	if _, err := NewSource(filepath.Join(t.TempDir(), "missing.md"), nil); err == nil {
		t.Fatal("expected error for missing prompt file")
	}
}
