// Package dispatch runs inbound messages on a bounded worker pool so the
// event callback can return immediately.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrQueueFull = errors.New("task queue is full")

type Task struct {
	ID          string
	MessageID   string
	ChatID      string
	ChatType    string
	MessageType string
	Content     string
	CreatedAt   time.Time
}

type Handler interface {
	Handle(ctx context.Context, task Task) error
}

type HandlerFunc func(ctx context.Context, task Task) error

func (f HandlerFunc) Handle(ctx context.Context, task Task) error {
	return f(ctx, task)
}

type Engine struct {
	maxConcurrency int
	tasks          chan Task
	handler        Handler
	logger         *slog.Logger
	startOnce      sync.Once
}

func New(maxConcurrency int, handler Handler, logger *slog.Logger) *Engine {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		maxConcurrency: maxConcurrency,
		tasks:          make(chan Task, maxConcurrency*50),
		handler:        handler,
		logger:         logger.With("component", "dispatch"),
	}
}

func (e *Engine) Start(ctx context.Context) error {
	var workers sync.WaitGroup
	e.startOnce.Do(func() {
		for index := 0; index < e.maxConcurrency; index++ {
			workers.Add(1)
			go func(workerID int) {
				defer workers.Done()
				e.worker(ctx, workerID)
			}(index + 1)
		}
	})

	<-ctx.Done()
	workers.Wait()
	return nil
}

func (e *Engine) Enqueue(task Task) (Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	select {
	case e.tasks <- task:
		e.logger.Debug("task queued", "task_id", task.ID, "message_id", task.MessageID, "chat_id", task.ChatID)
		return task, nil
	default:
		return Task{}, ErrQueueFull
	}
}

func (e *Engine) worker(ctx context.Context, workerID int) {
	e.logger.Info("worker started", "worker_id", workerID)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("worker stopped", "worker_id", workerID)
			return
		case task := <-e.tasks:
			e.processTask(ctx, workerID, task)
		}
	}
}

func (e *Engine) processTask(ctx context.Context, workerID int, task Task) {
	started := time.Now()
	logger := e.logger.With("worker_id", workerID, "task_id", task.ID, "message_id", task.MessageID, "chat_id", task.ChatID)
	err := e.safeHandle(ctx, task)
	if err != nil {
		logger.Error("task failed", "error", err, "duration_ms", time.Since(started).Milliseconds())
		return
	}
	logger.Info("task completed", "duration_ms", time.Since(started).Milliseconds())
}

func (e *Engine) safeHandle(ctx context.Context, task Task) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("task panicked: %v", recovered)
		}
	}()
	if e.handler == nil {
		return errors.New("no task handler configured")
	}
	return e.handler.Handle(ctx, task)
}
