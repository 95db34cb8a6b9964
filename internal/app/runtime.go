package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dwizi/larkbot/internal/config"
	"github.com/dwizi/larkbot/internal/connectors"
	larkconnector "github.com/dwizi/larkbot/internal/connectors/lark"
	"github.com/dwizi/larkbot/internal/dispatch"
	"github.com/dwizi/larkbot/internal/gateway"
	"github.com/dwizi/larkbot/internal/heartbeat"
	"github.com/dwizi/larkbot/internal/httpapi"
	"github.com/dwizi/larkbot/internal/scheduler"
	"github.com/dwizi/larkbot/internal/store"
	"github.com/dwizi/larkbot/internal/watcher"
)

func New(cfg config.Config, version string, logger *slog.Logger) (*Runtime, error) {
	if err := ensureDBDirectory(cfg.DBPath); err != nil {
		return nil, err
	}
	sqlStore, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		sqlStore.Close()
		return nil, err
	}

	core, err := NewCore(cfg, sqlStore, logger)
	if err != nil {
		sqlStore.Close()
		return nil, err
	}

	heartbeatRegistry := heartbeat.NewRegistry()
	staleAfter := time.Duration(cfg.HeartbeatStaleSec) * time.Second
	heartbeatMonitor := heartbeat.NewMonitor(
		heartbeatRegistry,
		time.Duration(cfg.HeartbeatIntervalSec)*time.Second,
		staleAfter,
		logger,
	)

	messageGateway := gateway.New(core.Orchestrator, logger)
	engine := dispatch.New(cfg.Concurrency, larkconnector.DeliveryHandler(messageGateway, core.Platform), logger)

	pruner, err := scheduler.New(sqlStore, cfg.DedupPruneSchedule, time.Duration(cfg.DedupTTLSeconds)*time.Second, logger)
	if err != nil {
		sqlStore.Close()
		return nil, fmt.Errorf("configure dedup pruning: %w", err)
	}

	var promptWatcher *watcher.Service
	if path := strings.TrimSpace(core.Prompts.Path()); path != "" {
		promptWatcher, err = watcher.New([]string{path}, logger, core.Prompts.Reload)
		if err != nil {
			sqlStore.Close()
			return nil, err
		}
	}

	connectorList := []connectors.Connector{
		larkconnector.New(larkconnector.Config{
			AppID:      cfg.AppID,
			AppSecret:  cfg.AppSecret,
			BaseDomain: cfg.BaseDomain,
		}, sqlStore, engine, logger),
	}

	router := httpapi.NewRouter(httpapi.Dependencies{
		Version:             version,
		Store:               sqlStore,
		Orchestrator:        core.Orchestrator,
		Logger:              logger.With("component", "httpapi"),
		Heartbeat:           heartbeatRegistry,
		HeartbeatStaleAfter: staleAfter,
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	runtime := &Runtime{
		cfg:              cfg,
		logger:           logger,
		store:            sqlStore,
		orchestrator:     core.Orchestrator,
		engine:           engine,
		httpServer:       server,
		watcher:          promptWatcher,
		scheduler:        pruner,
		connectors:       connectorList,
		heartbeat:        heartbeatRegistry,
		heartbeatMonitor: heartbeatMonitor,
	}
	pruner.SetHeartbeatReporter(heartbeatRegistry)
	if promptWatcher == nil {
		heartbeatRegistry.Disabled("watcher", "no system prompt file configured")
	}
	if !cfg.LarkEnabled() {
		heartbeatRegistry.Disabled("connector:lark", "app credentials missing")
	}
	return runtime, nil
}
