package lark

import (
	"context"
	"fmt"
	"log/slog"
)

// SDKLogger routes the SDK's internal logging into slog.
type SDKLogger struct {
	logger *slog.Logger
}

func NewSDKLogger(logger *slog.Logger) *SDKLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SDKLogger{logger: logger.With("source", "lark-sdk")}
}

func (l *SDKLogger) Debug(ctx context.Context, args ...interface{}) {
	l.logger.DebugContext(ctx, fmt.Sprint(args...))
}

func (l *SDKLogger) Info(ctx context.Context, args ...interface{}) {
	l.logger.InfoContext(ctx, fmt.Sprint(args...))
}

func (l *SDKLogger) Warn(ctx context.Context, args ...interface{}) {
	l.logger.WarnContext(ctx, fmt.Sprint(args...))
}

func (l *SDKLogger) Error(ctx context.Context, args ...interface{}) {
	l.logger.ErrorContext(ctx, fmt.Sprint(args...))
}
