// Package prompt holds the system prompt sent with free-form messages. The
// prompt can be overridden from a file and reloaded while running.
package prompt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// DefaultSystem lists the actions the bot can perform and the JSON shape the
// model must reply with to request one.
const DefaultSystem = `You are a Lark/Feishu assistant bot with real access to the workspace:

1. **Documents**:
   - Create a document: {"action": "create_document", "params": {"title": "Document title", "content": "markdown content"}}
   - Read a document: {"action": "read_document", "params": {"document_id": "document ID or link", "search_keyword": "optional keyword"}}
   - Search documents: {"action": "search_documents", "params": {"keyword": "keyword"}}
   - Read a wiki node: {"action": "read_wiki", "params": {"space_id": "space ID", "node_token": "node token", "search_keyword": "optional keyword"}}

2. **Tables**:
   - Create a table: {"action": "create_bitable", "params": {"name": "table name", "table_name": "optional sheet name", "fields": [{"field_name": "Title", "type": 1}], "folder_token": "optional folder"}}
   - Search records: {"action": "search_bitable", "params": {"app_token": "app token", "table_id": "table ID", "filter": {"conjunction": "and", "conditions": [{"field_name": "Status", "operator": "is", "value": ["Open"]}]}, "field_names": ["Title"]}}

3. **Analysis**:
   - When the user sends a Lark/Feishu link, its content is read and analyzed automatically
   - Extract the information relevant to the user's question

Reply in natural language, or reply with exactly one JSON instruction and nothing else when an action is needed.`

// Source serves the current system prompt. It is safe for concurrent use.
type Source struct {
	path    string
	current atomic.Value
	logger  *slog.Logger
}

// NewSource returns a source serving DefaultSystem, or the contents of path
// when path is set. A missing or empty file is an error at startup.
func NewSource(path string, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	source := &Source{
		path:   strings.TrimSpace(path),
		logger: logger.With("component", "prompt"),
	}
	source.current.Store(DefaultSystem)
	if source.path == "" {
		return source, nil
	}
	text, err := readPrompt(source.path)
	if err != nil {
		return nil, err
	}
	source.current.Store(text)
	return source, nil
}

func (s *Source) Path() string {
	return s.path
}

func (s *Source) SystemPrompt() string {
	return s.current.Load().(string)
}

// Reload re-reads the prompt file. On error the previous prompt stays active.
func (s *Source) Reload(ctx context.Context, path string) {
	if s.path == "" {
		return
	}
	text, err := readPrompt(s.path)
	if err != nil {
		s.logger.Warn("system prompt reload failed, keeping previous prompt", "path", s.path, "error", err)
		return
	}
	s.current.Store(text)
	s.logger.Info("system prompt reloaded", "path", s.path, "bytes", len(text))
}

func readPrompt(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("system prompt file %s is empty", path)
	}
	return text, nil
}
