package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dwizi/larkbot/internal/agenterr"
	"github.com/dwizi/larkbot/internal/links"
	"github.com/dwizi/larkbot/internal/platform"
	"github.com/dwizi/larkbot/internal/platform/platformtest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchWikiUsesBackingDocument(t *testing.T) {
	client := &platformtest.Client{
		Nodes: map[string]platform.WikiNode{
			"wikcn1": {NodeToken: "wikcn1", ObjToken: "doxcn1", ObjType: "docx", Title: "Runbook"},
		},
		Documents: map[string]string{"doxcn1": "step one"},
	}
	content, err := New(client, testLogger()).Fetch(context.Background(), links.Link{Kind: links.KindWiki, Token: "wikcn1"})
	if err != nil {
		t.Fatalf("fetch wiki: %v", err)
	}
	if content != "Title: Runbook\nContent: step one" {
		t.Fatalf("unexpected wiki content: %q", content)
	}
}

func TestFetchWikiPlaceholderForNonDocumentNode(t *testing.T) {
	client := &platformtest.Client{
		Nodes: map[string]platform.WikiNode{
			"wikcn2": {NodeToken: "wikcn2", ObjToken: "shtcn1", ObjType: "sheet", Title: "Budget"},
		},
	}
	content, err := New(client, testLogger()).Fetch(context.Background(), links.Link{Kind: links.KindWiki, Token: "wikcn2"})
	if err != nil {
		t.Fatalf("fetch wiki: %v", err)
	}
	if content != "Title: Budget\nContent: "+NoTextContent {
		t.Fatalf("unexpected wiki content: %q", content)
	}
	if len(client.RawReads) != 0 {
		t.Fatalf("expected no raw content reads, got %v", client.RawReads)
	}
}

func TestFetchWikiMissingNode(t *testing.T) {
	_, err := New(&platformtest.Client{}, testLogger()).Fetch(context.Background(), links.Link{Kind: links.KindWiki, Token: "missing"})
	failure, ok := agenterr.As(err)
	if !ok || failure.Category != agenterr.CategoryNotFound || failure.Op != OpFetchWiki {
		t.Fatalf("expected not_found failure, got %v", err)
	}
}

func TestFetchDocument(t *testing.T) {
	client := &platformtest.Client{Documents: map[string]string{"doxcnABC": "hello"}}
	service := New(client, testLogger())

	content, err := service.Fetch(context.Background(), links.Link{Kind: links.KindDocument, Token: "doxcnABC"})
	if err != nil {
		t.Fatalf("fetch document: %v", err)
	}
	if content != "hello" {
		t.Fatalf("unexpected content: %q", content)
	}

	_, err = service.Fetch(context.Background(), links.Link{Kind: links.KindDocument, Token: "other"})
	failure, ok := agenterr.As(err)
	if !ok || failure.Category != agenterr.CategoryPlatform {
		t.Fatalf("expected platform failure, got %v", err)
	}
}

func TestFetchDocumentTimeoutIsNetworkFailure(t *testing.T) {
	client := &platformtest.Client{Err: context.DeadlineExceeded}
	_, err := New(client, testLogger()).Fetch(context.Background(), links.Link{Kind: links.KindDocument, Token: "doxcn"})
	failure, ok := agenterr.As(err)
	if !ok || failure.Category != agenterr.CategoryNetwork {
		t.Fatalf("expected network failure, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline in chain, got %v", err)
	}
}

func TestFetchTableSummarizesFirstTable(t *testing.T) {
	client := &platformtest.Client{
		Tables: []platform.Table{{TableID: "tbl1", Name: "Bugs"}, {TableID: "tbl2", Name: "Ideas"}},
		Records: platform.RecordPage{
			Total: 12,
			Items: []platform.Record{
				{RecordID: "rec1", Fields: map[string]any{"Title": "a"}},
				{RecordID: "rec2", Fields: map[string]any{"Title": "b"}},
				{RecordID: "rec3", Fields: map[string]any{"Title": "c"}},
				{RecordID: "rec4", Fields: map[string]any{"Title": "d"}},
			},
		},
	}
	content, err := New(client, testLogger()).Fetch(context.Background(), links.Link{Kind: links.KindTable, Token: "bascn1"})
	if err != nil {
		t.Fatalf("fetch table: %v", err)
	}
	if !strings.HasPrefix(content, "Table: Bugs\nRecords: 12\nFirst records: [") {
		t.Fatalf("unexpected table summary: %q", content)
	}
	if !strings.Contains(content, `"rec3"`) || strings.Contains(content, `"rec4"`) {
		t.Fatalf("expected exactly the first three records: %q", content)
	}
	if len(client.RecordQueries) != 1 || client.RecordQueries[0].TableID != "tbl1" || client.RecordQueries[0].PageSize != 10 {
		t.Fatalf("unexpected record query: %+v", client.RecordQueries)
	}
}

func TestFetchTableWithoutTables(t *testing.T) {
	_, err := New(&platformtest.Client{}, testLogger()).Fetch(context.Background(), links.Link{Kind: links.KindTable, Token: "bascn1"})
	failure, ok := agenterr.As(err)
	if !ok || failure.Category != agenterr.CategoryNotFound || failure.Op != OpFetchTable {
		t.Fatalf("expected not_found failure, got %v", err)
	}
}
