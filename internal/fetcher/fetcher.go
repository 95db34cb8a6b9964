// Package fetcher turns a platform content link into text the model can
// answer from.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dwizi/larkbot/internal/agenterr"
	"github.com/dwizi/larkbot/internal/links"
	"github.com/dwizi/larkbot/internal/platform"
)

const (
	OpFetchWiki     = "fetch_wiki"
	OpFetchDocument = "fetch_document"
	OpFetchTable    = "fetch_table"

	NoTextContent = "(no text content)"

	tablePageSize  = 10
	recordPageSize = 10
	previewRecords = 3
)

type Service struct {
	client platform.Client
	logger *slog.Logger
}

// WikiPage is a knowledge-base node with the text of its backing document.
type WikiPage struct {
	Node    platform.WikiNode
	Content string
}

func New(client platform.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		client: client,
		logger: logger.With("component", "fetcher"),
	}
}

// Fetch returns the textual form of the content behind link. Every error is
// an *agenterr.Failure.
func (s *Service) Fetch(ctx context.Context, link links.Link) (string, error) {
	switch link.Kind {
	case links.KindWiki:
		page, err := s.Wiki(ctx, link.Token)
		if err != nil {
			return "", err
		}
		return page.String(), nil
	case links.KindDocument:
		return s.document(ctx, link.Token)
	case links.KindTable:
		return s.table(ctx, link.Token)
	default:
		return "", agenterr.New("fetch", agenterr.CategoryInvalidParams, fmt.Sprintf("unsupported link kind %q", link.Kind))
	}
}

// Wiki resolves a knowledge-base node. The node API carries no body, so the
// content comes from the backing document when the node is a document.
func (s *Service) Wiki(ctx context.Context, token string) (WikiPage, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return WikiPage{}, agenterr.New(OpFetchWiki, agenterr.CategoryInvalidParams, "node token is required")
	}
	node, err := s.client.WikiNode(ctx, token)
	if err != nil {
		failure := agenterr.Classify(OpFetchWiki, err)
		s.logger.Error("wiki node lookup failed", "error", err, "token", token, "category", failure.Category)
		return WikiPage{}, failure
	}

	page := WikiPage{Node: node}
	switch strings.ToLower(node.ObjType) {
	case "docx", "doc":
		if strings.TrimSpace(node.ObjToken) == "" {
			break
		}
		content, err := s.client.DocumentRawContent(ctx, node.ObjToken)
		if err != nil {
			s.logger.Warn("wiki node content unavailable", "error", err, "token", token, "obj_type", node.ObjType)
			break
		}
		page.Content = content
	}
	return page, nil
}

func (p WikiPage) String() string {
	content := p.Content
	if strings.TrimSpace(content) == "" {
		content = NoTextContent
	}
	return fmt.Sprintf("Title: %s\nContent: %s", p.Node.Title, content)
}

func (s *Service) document(ctx context.Context, token string) (string, error) {
	documentID := links.DocumentID(token)
	if documentID == "" {
		return "", agenterr.New(OpFetchDocument, agenterr.CategoryInvalidParams, "document id is required")
	}
	content, err := s.client.DocumentRawContent(ctx, documentID)
	if err != nil {
		failure := agenterr.Classify(OpFetchDocument, err)
		s.logger.Error("document fetch failed", "error", err, "document_id", documentID, "category", failure.Category)
		return "", failure
	}
	if strings.TrimSpace(content) == "" {
		return "", agenterr.New(OpFetchDocument, agenterr.CategoryNotFound, "document has no text content")
	}
	return content, nil
}

func (s *Service) table(ctx context.Context, appToken string) (string, error) {
	tables, err := s.client.ListTables(ctx, appToken, tablePageSize)
	if err != nil {
		failure := agenterr.Classify(OpFetchTable, err)
		s.logger.Error("table list failed", "error", err, "app_token", appToken, "category", failure.Category)
		return "", failure
	}
	if len(tables) == 0 {
		s.logger.Info("table container has no tables", "app_token", appToken)
		return "", agenterr.New(OpFetchTable, agenterr.CategoryNotFound, "no tables")
	}

	table := tables[0]
	page, err := s.client.SearchRecords(ctx, platform.SearchRecordsInput{
		AppToken: appToken,
		TableID:  table.TableID,
		PageSize: recordPageSize,
	})
	if err != nil {
		failure := agenterr.Classify(OpFetchTable, err)
		s.logger.Error("record search failed", "error", err, "app_token", appToken, "table_id", table.TableID, "category", failure.Category)
		return "", failure
	}

	preview := page.Items
	if len(preview) > previewRecords {
		preview = preview[:previewRecords]
	}
	if preview == nil {
		preview = []platform.Record{}
	}
	encoded, err := json.Marshal(preview)
	if err != nil {
		return "", agenterr.Wrap(OpFetchTable, agenterr.CategoryUnexpectedResponse, err)
	}
	return fmt.Sprintf("Table: %s\nRecords: %d\nFirst records: %s", table.Name, page.Total, encoded), nil
}
