package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dwizi/larkbot/internal/actions"
	"github.com/dwizi/larkbot/internal/actions/executor"
	"github.com/dwizi/larkbot/internal/actions/plugins/bitable"
	"github.com/dwizi/larkbot/internal/actions/plugins/docs"
	"github.com/dwizi/larkbot/internal/actions/plugins/wiki"
	"github.com/dwizi/larkbot/internal/agenterr"
	"github.com/dwizi/larkbot/internal/fetcher"
	"github.com/dwizi/larkbot/internal/llm"
	"github.com/dwizi/larkbot/internal/platform"
	"github.com/dwizi/larkbot/internal/platform/platformtest"
)

type fakeCompleter struct {
	replies  []string
	err      error
	requests []llm.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, request llm.Request) (string, error) {
	f.requests = append(f.requests, request)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

type staticPrompt string

func (p staticPrompt) SystemPrompt() string {
	return string(p)
}

type panickingExecutor struct{}

func (panickingExecutor) Execute(ctx context.Context, chatID string, instruction actions.Instruction) (executor.Result, error) {
	panic("boom")
}

func newService(completer llm.Completer, client *platformtest.Client) *Service {
	contentFetcher := fetcher.New(client, nil)
	registry := executor.NewRegistry(
		docs.New(client, "https://feishu.cn"),
		wiki.New(contentFetcher),
		bitable.New(client, "https://feishu.cn"),
	)
	return New(completer, contentFetcher, registry, staticPrompt("capabilities"), Config{
		MaxTokens:   1000,
		Temperature: 0.7,
	}, nil)
}

func TestCreateDocumentEndToEnd(t *testing.T) {
	completer := &fakeCompleter{replies: []string{`{"action":"create_document","params":{"title":"X"}}`}}
	client := &platformtest.Client{ImportedID: "doxcnX"}
	reply := newService(completer, client).HandleMessage(context.Background(), Turn{ChatID: "oc_1", Text: "create a doc titled X"})

	if len(completer.requests) != 1 {
		t.Fatalf("expected one completion call, got %d", len(completer.requests))
	}
	request := completer.requests[0]
	if len(request.Messages) != 2 || request.Messages[0].Role != llm.RoleSystem || request.Messages[0].Content != "capabilities" {
		t.Fatalf("unexpected completion messages: %+v", request.Messages)
	}
	if request.Messages[1].Content != "create a doc titled X" || request.MaxTokens != 1000 || request.Temperature != 0.7 {
		t.Fatalf("unexpected completion request: %+v", request)
	}
	if len(client.Imports) != 1 {
		t.Fatalf("expected one import call, got %d", len(client.Imports))
	}
	if !strings.Contains(reply, "https://feishu.cn/docx/doxcnX") {
		t.Fatalf("expected viewer url in reply, got %q", reply)
	}
}

func TestPlainTextReplyReturnedUnmodified(t *testing.T) {
	completer := &fakeCompleter{replies: []string{"Hello! How can I help?"}}
	client := &platformtest.Client{}
	reply := newService(completer, client).HandleMessage(context.Background(), Turn{ChatID: "oc_1", Text: "hi"})
	if reply != "Hello! How can I help?" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(client.Imports)+len(client.CreatedApps) != 0 {
		t.Fatal("plain text must not execute actions")
	}
}

func TestUnrecognizedActionIsEchoed(t *testing.T) {
	completer := &fakeCompleter{replies: []string{`{"action":"send_fax","params":{"to":"1"}}`}}
	reply := newService(completer, &platformtest.Client{}).HandleMessage(context.Background(), Turn{Text: "fax it"})
	if reply != `Performed action: send_fax, params: {"to":"1"}` {
		t.Fatalf("unexpected echo: %q", reply)
	}
}

func TestReadDocumentWithoutIDRendersGuidance(t *testing.T) {
	completer := &fakeCompleter{replies: []string{`{"action":"read_document","params":{}}`}}
	reply := newService(completer, &platformtest.Client{}).HandleMessage(context.Background(), Turn{Text: "read it"})
	if reply != readDocumentGuidance {
		t.Fatalf("expected read guidance, got %q", reply)
	}
}

func TestPlatformFailureRendersCrossMark(t *testing.T) {
	for _, instruction := range []string{
		`{"action":"create_document","params":{"title":"X"}}`,
		`{"action":"read_document","params":{"document_id":"doxcn1"}}`,
		`{"action":"read_wiki","params":{"node_token":"wikcn1"}}`,
		`{"action":"create_bitable","params":{"name":"B"}}`,
		`{"action":"search_documents","params":{"keyword":"k"}}`,
		`{"action":"search_bitable","params":{"app_token":"a","table_id":"t"}}`,
		`{"action":"create_bitable","params":{"fields":"oops"}}`,
	} {
		completer := &fakeCompleter{replies: []string{instruction}}
		client := &platformtest.Client{Err: errors.New("connection reset")}
		reply := newService(completer, client).HandleMessage(context.Background(), Turn{Text: "do it"})
		if !strings.HasPrefix(reply, "❌") {
			t.Fatalf("expected failure marker for %s, got %q", instruction, reply)
		}
	}
}

func TestLinkGroundsCompletionOnContent(t *testing.T) {
	completer := &fakeCompleter{replies: []string{"It is about deployments."}}
	client := &platformtest.Client{Documents: map[string]string{"doxcnABC": "Deploy on Fridays"}}
	reply := newService(completer, client).HandleMessage(context.Background(), Turn{
		ChatID: "oc_1",
		Text:   "what is this? https://acme.feishu.cn/docx/doxcnABC",
	})
	if reply != ContentRetrievedPrefix+"It is about deployments." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(completer.requests) != 1 {
		t.Fatalf("expected one completion, got %d", len(completer.requests))
	}
	messages := completer.requests[0].Messages
	if len(messages) != 1 || messages[0].Role != llm.RoleUser {
		t.Fatalf("expected a single user message, got %+v", messages)
	}
	if !strings.Contains(messages[0].Content, "Deploy on Fridays") || !strings.Contains(messages[0].Content, "what is this?") {
		t.Fatalf("grounding prompt misses content or question: %q", messages[0].Content)
	}
}

func TestLinkFetchFailure(t *testing.T) {
	completer := &fakeCompleter{}
	reply := newService(completer, &platformtest.Client{}).HandleMessage(context.Background(), Turn{
		Text: "https://acme.feishu.cn/base/bascn1",
	})
	if reply != FetchFailedMessage {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(completer.requests) != 0 {
		t.Fatal("completion must not run when fetch fails")
	}
}

func TestLinkCompletionFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("502")}
	client := &platformtest.Client{
		Nodes:     map[string]platform.WikiNode{"wikcn1": {Title: "Page", ObjType: "docx", ObjToken: "doxcn1"}},
		Documents: map[string]string{"doxcn1": "body"},
	}
	reply := newService(completer, client).HandleMessage(context.Background(), Turn{Text: "https://x.feishu.cn/wiki/wikcn1"})
	if reply != LinkErrorMessage {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestCompletionFailureIsApology(t *testing.T) {
	reply := newService(&fakeCompleter{err: errors.New("boom")}, &platformtest.Client{}).HandleMessage(context.Background(), Turn{Text: "hi"})
	if reply != ApologyMessage {
		t.Fatalf("unexpected reply: %q", reply)
	}
	reply = newService(&fakeCompleter{err: llm.ErrUnavailable}, &platformtest.Client{}).HandleMessage(context.Background(), Turn{Text: "hi"})
	if reply != ModelUnavailableMessage {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	completer := &fakeCompleter{replies: []string{`{"action":"create_document"}`}}
	service := New(completer, fetcher.New(&platformtest.Client{}, nil), panickingExecutor{}, staticPrompt("p"), Config{}, nil)
	if reply := service.HandleMessage(context.Background(), Turn{Text: "hi"}); reply != ApologyMessage {
		t.Fatalf("expected apology after panic, got %q", reply)
	}
}

func TestCapBytesKeepsRunesIntact(t *testing.T) {
	if got := capBytes("short", 100); got != "short" {
		t.Fatalf("unexpected cap: %q", got)
	}
	got := capBytes("飞书飞书", 4)
	if got != "飞"+truncatedMarker {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
}

func TestRenderFailureCategories(t *testing.T) {
	cases := map[string]error{
		"❌ Failed to create document: app scope missing":                       agenterr.New(actions.ActionCreateDocument, agenterr.CategoryPlatform, "app scope missing"),
		"❌ Failed to create document: network error":                           agenterr.New(actions.ActionCreateDocument, agenterr.CategoryNetwork, "timeout"),
		"❌ Document creation failed: the API returned an unexpected response.": agenterr.New(actions.ActionCreateDocument, agenterr.CategoryUnexpectedResponse, ""),
		"❌ Invalid parameters for search_bitable: app_token is required":       agenterr.New(actions.ActionSearchBitable, agenterr.CategoryInvalidParams, "app_token is required"),
		readDocumentGuidance: agenterr.New(actions.ActionReadDocument, agenterr.CategoryAccess, "forbidden"),
	}
	for expected, err := range map[string]error{
		readDocumentGuidance:    agenterr.New(actions.ActionReadDocument, agenterr.CategoryInvalidParams, "document_id is required"),
		searchDocumentsGuidance: agenterr.New(actions.ActionSearchDocuments, agenterr.CategoryInvalidParams, "keyword is required"),
	} {
		if got := RenderFailure(err); got != expected {
			t.Fatalf("expected guidance %q, got %q", expected, got)
		}
	}
	for expected, err := range cases {
		if got := RenderFailure(err); got != expected {
			t.Fatalf("expected %q, got %q", expected, got)
		}
	}
	if got := RenderFailure(errors.New("plain")); !strings.HasPrefix(got, "❌") {
		t.Fatalf("expected failure marker, got %q", got)
	}
}
