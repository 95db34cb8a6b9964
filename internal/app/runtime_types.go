package app

import (
	"log/slog"
	"net/http"

	"github.com/dwizi/larkbot/internal/config"
	"github.com/dwizi/larkbot/internal/connectors"
	"github.com/dwizi/larkbot/internal/dispatch"
	"github.com/dwizi/larkbot/internal/heartbeat"
	"github.com/dwizi/larkbot/internal/orchestrator"
	"github.com/dwizi/larkbot/internal/scheduler"
	"github.com/dwizi/larkbot/internal/store"
	"github.com/dwizi/larkbot/internal/watcher"
)

type Runtime struct {
	cfg              config.Config
	logger           *slog.Logger
	store            *store.Store
	orchestrator     *orchestrator.Service
	engine           *dispatch.Engine
	httpServer       *http.Server
	watcher          *watcher.Service
	scheduler        *scheduler.Service
	connectors       []connectors.Connector
	heartbeat        *heartbeat.Registry
	heartbeatMonitor *heartbeat.Monitor
}
