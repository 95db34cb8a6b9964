// Package heartbeat tracks the health of long-running components.
package heartbeat

import (
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	StateStarting = "starting"
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateDisabled = "disabled"
	StateStopped  = "stopped"
	StateStale    = "stale"
)

type Reporter interface {
	Starting(component, message string)
	Beat(component, message string)
	Degrade(component, message string, err error)
	Disabled(component, message string)
	Stopped(component, message string)
}

type ComponentStatus struct {
	Name           string `json:"name"`
	State          string `json:"state"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
	LastBeatAtUnix int64  `json:"last_beat_at_unix,omitempty"`
	UpdatedAtUnix  int64  `json:"updated_at_unix"`
}

type Snapshot struct {
	GeneratedAtUnix int64             `json:"generated_at_unix"`
	Overall         string            `json:"overall"`
	Components      []ComponentStatus `json:"components"`
}

type component struct {
	state      string
	message    string
	lastError  string
	lastBeatAt time.Time
	updatedAt  time.Time
}

type Registry struct {
	mu         sync.RWMutex
	components map[string]component
	now        func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		components: map[string]component{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *Registry) Starting(name, message string) {
	r.set(name, StateStarting, message, nil)
}

func (r *Registry) Beat(name, message string) {
	r.set(name, StateHealthy, message, nil)
}

func (r *Registry) Degrade(name, message string, err error) {
	r.set(name, StateDegraded, message, err)
}

func (r *Registry) Disabled(name, message string) {
	r.set(name, StateDisabled, message, nil)
}

func (r *Registry) Stopped(name, message string) {
	r.set(name, StateStopped, message, nil)
}

func (r *Registry) set(name, state, message string, err error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	record := r.components[name]
	record.state = state
	record.message = strings.TrimSpace(message)
	record.lastError = ""
	if err != nil {
		record.lastError = strings.TrimSpace(err.Error())
	}
	if state == StateHealthy || record.lastBeatAt.IsZero() {
		record.lastBeatAt = now
	}
	record.updatedAt = now
	r.components[name] = record
}

// Snapshot reports every component. Healthy or starting components without
// a beat for longer than staleAfter are reported stale; zero disables that.
func (r *Registry) Snapshot(staleAfter time.Duration) Snapshot {
	now := r.now()
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]ComponentStatus, 0, len(r.components))
	for name, record := range r.components {
		state := record.state
		if staleAfter > 0 && (state == StateHealthy || state == StateStarting) && now.Sub(record.lastBeatAt) > staleAfter {
			state = StateStale
		}
		statuses = append(statuses, ComponentStatus{
			Name:           name,
			State:          state,
			Message:        record.message,
			Error:          record.lastError,
			LastBeatAtUnix: record.lastBeatAt.Unix(),
			UpdatedAtUnix:  record.updatedAt.Unix(),
		})
	}
	sort.Slice(statuses, func(left, right int) bool {
		return statuses[left].Name < statuses[right].Name
	})
	return Snapshot{
		GeneratedAtUnix: now.Unix(),
		Overall:         overall(statuses),
		Components:      statuses,
	}
}

func overall(statuses []ComponentStatus) string {
	if len(statuses) == 0 {
		return "unknown"
	}
	result := "idle"
	for _, status := range statuses {
		switch status.State {
		case StateDegraded, StateStale:
			return StateDegraded
		case StateStarting:
			result = StateStarting
		case StateHealthy:
			if result != StateStarting {
				result = StateHealthy
			}
		}
	}
	return result
}
