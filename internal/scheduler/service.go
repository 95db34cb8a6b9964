// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dwizi/larkbot/internal/heartbeat"
)

const (
	componentName   = "scheduler"
	DefaultSchedule = "@every 10m"
	DefaultTTL      = 24 * time.Hour
)

var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule checks a five-field cron expression or a descriptor such
// as "@hourly" or "@every 10m".
func ValidateSchedule(spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return errors.New("schedule is required")
	}
	if _, err := scheduleParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

type Pruner interface {
	PruneProcessedMessages(ctx context.Context, before time.Time) (int64, error)
}

type Service struct {
	pruner   Pruner
	schedule string
	ttl      time.Duration
	logger   *slog.Logger
	reporter heartbeat.Reporter
	now      func() time.Time
}

func New(pruner Pruner, schedule string, ttl time.Duration, logger *slog.Logger) (*Service, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if err := ValidateSchedule(schedule); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pruner:   pruner,
		schedule: schedule,
		ttl:      ttl,
		logger:   logger.With("component", componentName),
		now:      time.Now,
	}, nil
}

func (s *Service) SetHeartbeatReporter(reporter heartbeat.Reporter) {
	s.reporter = reporter
}

func (s *Service) Start(ctx context.Context) error {
	if s.pruner == nil {
		if s.reporter != nil {
			s.reporter.Disabled(componentName, "dependencies missing")
		}
		<-ctx.Done()
		return nil
	}

	runner := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithLogger(cronLogger{logger: s.logger}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger: s.logger})),
	)
	if _, err := runner.AddFunc(s.schedule, func() {
		_ = s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("register prune job: %w", err)
	}
	runner.Start()
	if s.reporter != nil {
		s.reporter.Beat(componentName, "prune job scheduled")
	}
	s.logger.Info("scheduler started", "schedule", s.schedule, "ttl", s.ttl.String())

	<-ctx.Done()
	<-runner.Stop().Done()
	if s.reporter != nil {
		s.reporter.Stopped(componentName, "stopped")
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// RunOnce deletes processed-message records older than the dedup TTL.
func (s *Service) RunOnce(ctx context.Context) error {
	cutoff := s.now().Add(-s.ttl)
	deleted, err := s.pruner.PruneProcessedMessages(ctx, cutoff)
	if err != nil {
		if s.reporter != nil {
			s.reporter.Degrade(componentName, "prune failed", err)
		}
		s.logger.Error("prune processed messages failed", "error", err)
		return err
	}
	if s.reporter != nil {
		s.reporter.Beat(componentName, fmt.Sprintf("pruned %d records", deleted))
	}
	s.logger.Info("pruned processed messages", "deleted", deleted, "cutoff", cutoff.UTC().Format(time.RFC3339))
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
