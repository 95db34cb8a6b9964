package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dwizi/larkbot/internal/app"
	"github.com/dwizi/larkbot/internal/config"
	"github.com/dwizi/larkbot/internal/orchestrator"
)

type turnHandler interface {
	HandleMessage(ctx context.Context, turn orchestrator.Turn) string
}

func newAskCommand(logger *slog.Logger) *cobra.Command {
	var chatID string
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Run one message through the model and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := app.NewCore(config.FromEnv(), nil, logger)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runAsk(ctx, core.Orchestrator, chatID, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&chatID, "chat-id", "cli", "chat id recorded for this turn")
	return cmd
}

func runAsk(ctx context.Context, handler turnHandler, chatID, message string, out io.Writer) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return errors.New("message is required")
	}
	reply := handler.HandleMessage(ctx, orchestrator.Turn{ChatID: chatID, Text: message})
	_, err := fmt.Fprintln(out, reply)
	return err
}
