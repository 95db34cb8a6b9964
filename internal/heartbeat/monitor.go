package heartbeat

import (
	"context"
	"log/slog"
	"time"
)

// Monitor logs component state transitions, including beats going stale.
type Monitor struct {
	registry   *Registry
	interval   time.Duration
	staleAfter time.Duration
	logger     *slog.Logger
}

func NewMonitor(registry *Registry, interval, staleAfter time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		registry:   registry,
		interval:   interval,
		staleAfter: staleAfter,
		logger:     logger.With("component", "heartbeat"),
	}
}

func (m *Monitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	previous := map[string]string{}
	for {
		m.check(previous)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (m *Monitor) check(previous map[string]string) {
	for _, status := range m.registry.Snapshot(m.staleAfter).Components {
		before, seen := previous[status.Name]
		previous[status.Name] = status.State
		if !seen || before == status.State {
			continue
		}
		if status.State == StateDegraded || status.State == StateStale {
			m.logger.Warn("component state changed", "name", status.Name, "from", before, "to", status.State, "error", status.Error)
			continue
		}
		m.logger.Info("component state changed", "name", status.Name, "from", before, "to", status.State)
	}
}
