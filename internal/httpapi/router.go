package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dwizi/larkbot/internal/heartbeat"
	"github.com/dwizi/larkbot/internal/orchestrator"
	"github.com/dwizi/larkbot/internal/store"
)

type Orchestrator interface {
	HandleMessage(ctx context.Context, turn orchestrator.Turn) string
}

type Dependencies struct {
	Version             string
	Store               *store.Store
	Orchestrator        Orchestrator
	Logger              *slog.Logger
	Heartbeat           *heartbeat.Registry
	HeartbeatStaleAfter time.Duration
}

type router struct {
	deps Dependencies
}

func NewRouter(deps Dependencies) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	rt := &router{deps: deps}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.handleHealth)
	mux.HandleFunc("/readyz", rt.handleReady)
	mux.HandleFunc("/api/v1/heartbeat", rt.handleHeartbeat)
	mux.HandleFunc("/api/v1/info", rt.handleInfo)
	mux.HandleFunc("/api/v1/actions", rt.handleActions)
	mux.HandleFunc("/api/v1/chat", rt.handleChat)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
