package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/dwizi/larkbot/internal/heartbeat"
	"github.com/dwizi/larkbot/internal/orchestrator"
	"github.com/dwizi/larkbot/internal/store"
)

func newRouterTestStore(t *testing.T) *store.Store {
	t.Helper()
	sqlStore, err := store.New(filepath.Join(t.TempDir(), "router_test.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = sqlStore.Close() })
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate store: %v", err)
	}
	return sqlStore
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeOrchestrator struct {
	turns []orchestrator.Turn
	reply string
}

func (f *fakeOrchestrator) HandleMessage(ctx context.Context, turn orchestrator.Turn) string {
	f.turns = append(f.turns, turn)
	return f.reply
}

func TestHealthAndReady(t *testing.T) {
	handler := NewRouter(Dependencies{Store: newRouterTestStore(t), Logger: testLogger()})

	for _, path := range []string{"/healthz", "/readyz"} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		if res.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, res.Code)
		}
	}

	notReady := NewRouter(Dependencies{Logger: testLogger()})
	res := httptest.NewRecorder()
	notReady.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without store, got %d", res.Code)
	}
}

func TestActionsListsAuditsForChat(t *testing.T) {
	sqlStore := newRouterTestStore(t)
	ctx := context.Background()
	for _, input := range []store.CreateActionAuditInput{
		{ChatID: "oc_1", Action: "create_document", Plugin: "docs", Outcome: store.OutcomeOK},
		{ChatID: "oc_1", Action: "read_document", Plugin: "docs", Outcome: store.OutcomeFailed, Category: "access"},
		{ChatID: "oc_2", Action: "create_bitable", Plugin: "bitable", Outcome: store.OutcomeOK},
	} {
		if _, err := sqlStore.CreateActionAudit(ctx, input); err != nil {
			t.Fatalf("create audit: %v", err)
		}
	}
	handler := NewRouter(Dependencies{Store: sqlStore, Logger: testLogger()})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v1/actions?chat_id=oc_1&limit=10", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var payload struct {
		Items []map[string]any `json:"items"`
		Count int              `json:"count"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Count != 2 || payload.Items[0]["action"] != "read_document" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	bad := httptest.NewRecorder()
	handler.ServeHTTP(bad, httptest.NewRequest(http.MethodGet, "/api/v1/actions?limit=zero", nil))
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", bad.Code)
	}
}

func TestChatEndpointRunsOneTurn(t *testing.T) {
	core := &fakeOrchestrator{reply: "✅ Document created!"}
	handler := NewRouter(Dependencies{Orchestrator: core, Logger: testLogger()})

	body, _ := json.Marshal(map[string]string{"text": "create a doc"})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body)))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["reply"] != "✅ Document created!" || payload["chat_id"] != defaultChatID {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(core.turns) != 1 || core.turns[0].Text != "create a doc" {
		t.Fatalf("unexpected turns: %+v", core.turns)
	}

	empty := httptest.NewRecorder()
	handler.ServeHTTP(empty, httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader([]byte(`{"text":"  "}`))))
	if empty.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty text, got %d", empty.Code)
	}
	wrongMethod := httptest.NewRecorder()
	handler.ServeHTTP(wrongMethod, httptest.NewRequest(http.MethodGet, "/api/v1/chat", nil))
	if wrongMethod.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", wrongMethod.Code)
	}
}

func TestHeartbeatEndpoint(t *testing.T) {
	registry := heartbeat.NewRegistry()
	registry.Beat("dispatch", "workers running")
	handler := NewRouter(Dependencies{Heartbeat: registry, Logger: testLogger()})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v1/heartbeat", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var snapshot heartbeat.Snapshot
	if err := json.Unmarshal(res.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Overall != heartbeat.StateHealthy || len(snapshot.Components) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}
