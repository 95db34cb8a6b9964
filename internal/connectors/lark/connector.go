// Package lark receives chat events over the Lark/Feishu long connection and
// hands them to the dispatch engine.
package lark

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"

	"github.com/dwizi/larkbot/internal/dispatch"
	"github.com/dwizi/larkbot/internal/gateway"
	"github.com/dwizi/larkbot/internal/platform"
	platformlark "github.com/dwizi/larkbot/internal/platform/lark"
)

const senderTypeApp = "app"

type Deduper interface {
	MarkMessageProcessed(ctx context.Context, messageID, chatID string, receivedAt time.Time) (bool, error)
	ForgetProcessedMessage(ctx context.Context, messageID string) error
}

type Queue interface {
	Enqueue(task dispatch.Task) (dispatch.Task, error)
}

type Config struct {
	AppID      string
	AppSecret  string
	BaseDomain string
}

type Connector struct {
	cfg    Config
	dedup  Deduper
	queue  Queue
	logger *slog.Logger
}

func New(cfg Config, dedup Deduper, queue Queue, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Connector{
		cfg: Config{
			AppID:      strings.TrimSpace(cfg.AppID),
			AppSecret:  strings.TrimSpace(cfg.AppSecret),
			BaseDomain: strings.TrimRight(strings.TrimSpace(cfg.BaseDomain), "/"),
		},
		dedup:  dedup,
		queue:  queue,
		logger: logger.With("connector", "lark"),
	}
}

func (c *Connector) Name() string {
	return "lark"
}

func (c *Connector) Start(ctx context.Context) error {
	if c.cfg.AppID == "" || c.cfg.AppSecret == "" {
		c.logger.Info("connector disabled, app credentials missing")
		<-ctx.Done()
		return nil
	}
	if c.queue == nil {
		c.logger.Info("connector disabled, dispatch queue missing")
		<-ctx.Done()
		return nil
	}

	eventDispatcher := dispatcher.NewEventDispatcher("", "")
	eventDispatcher.OnP2MessageReceiveV1(c.HandleEvent)

	opts := []larkws.ClientOption{
		larkws.WithEventHandler(eventDispatcher),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
		larkws.WithLogger(platformlark.NewSDKLogger(c.logger)),
	}
	if c.cfg.BaseDomain != "" {
		opts = append(opts, larkws.WithDomain(c.cfg.BaseDomain))
	}
	client := larkws.NewClient(c.cfg.AppID, c.cfg.AppSecret, opts...)

	c.logger.Info("connector started", "app_id", c.cfg.AppID)
	err := client.Start(ctx)
	if ctx.Err() != nil {
		c.logger.Info("connector stopped")
		return nil
	}
	return err
}

// HandleEvent queues a received message and returns without waiting for the
// reply. Redelivered events and messages sent by apps are dropped.
func (c *Connector) HandleEvent(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
	task, ok := taskFromEvent(event)
	if !ok {
		c.logger.Debug("ignoring event without message")
		return nil
	}
	if isAppSender(event) {
		c.logger.Debug("ignoring message sent by an app", "message_id", task.MessageID)
		return nil
	}
	logger := c.logger.With("message_id", task.MessageID, "chat_id", task.ChatID)

	marked := false
	if c.dedup != nil && task.MessageID != "" {
		first, err := c.dedup.MarkMessageProcessed(ctx, task.MessageID, task.ChatID, time.Now())
		if err != nil {
			logger.Warn("message dedup failed, processing anyway", "error", err)
		} else if !first {
			logger.Info("dropping redelivered message")
			return nil
		}
		marked = err == nil
	}

	queued, err := c.queue.Enqueue(task)
	if err != nil {
		// Unmark so the platform's redelivery is not mistaken for a duplicate.
		if marked {
			if forgetErr := c.dedup.ForgetProcessedMessage(ctx, task.MessageID); forgetErr != nil {
				logger.Warn("message dedup release failed", "error", forgetErr)
			}
		}
		if errors.Is(err, dispatch.ErrQueueFull) {
			logger.Warn("dispatch queue full, message dropped")
			return nil
		}
		return err
	}
	logger.Debug("message queued", "task_id", queued.ID)
	return nil
}

// Gateway is the part of gateway.Service the delivery handler needs.
type Gateway interface {
	HandleMessage(ctx context.Context, input gateway.MessageInput) gateway.MessageOutput
}

// DeliveryHandler runs one queued message through the gateway and sends the
// reply back to the chat.
func DeliveryHandler(gw Gateway, messenger platform.Messenger) dispatch.Handler {
	return dispatch.HandlerFunc(func(ctx context.Context, task dispatch.Task) error {
		output := gw.HandleMessage(ctx, gateway.MessageInput{
			ChatID:      task.ChatID,
			ChatType:    task.ChatType,
			MessageID:   task.MessageID,
			MessageType: task.MessageType,
			Content:     task.Content,
		})
		return gateway.Deliver(ctx, messenger, output)
	})
}

func taskFromEvent(event *larkim.P2MessageReceiveV1) (dispatch.Task, bool) {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return dispatch.Task{}, false
	}
	message := event.Event.Message
	return dispatch.Task{
		MessageID:   larkcore.StringValue(message.MessageId),
		ChatID:      larkcore.StringValue(message.ChatId),
		ChatType:    larkcore.StringValue(message.ChatType),
		MessageType: larkcore.StringValue(message.MessageType),
		Content:     larkcore.StringValue(message.Content),
	}, true
}

func isAppSender(event *larkim.P2MessageReceiveV1) bool {
	if event == nil || event.Event == nil || event.Event.Sender == nil {
		return false
	}
	return larkcore.StringValue(event.Event.Sender.SenderType) == senderTypeApp
}
