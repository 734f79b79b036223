package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"immobilier-assistant/internal/config"
	"immobilier-assistant/internal/httpapi"
	"immobilier-assistant/internal/metrics"
	"immobilier-assistant/internal/repository"
	"immobilier-assistant/internal/usecase"
)

const sweepInterval = 5 * time.Minute

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			logger := jsonLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newDeps(cfg, logger), logger)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("session-backend", config.BackendMemory, "session storage (memory|dynamodb)")
	cmd.Flags().String("state-table", "", "DynamoDB table for the dynamodb backend")
	a.bind(cmd, map[string]string{
		config.KeyAddr:           "addr",
		config.KeySessionBackend: "session-backend",
		config.KeyStateTable:     "state-table",
	}, false)
	return cmd
}

func serve(ctx context.Context, cfg config.Config, d *deps, logger *slog.Logger) error {
	llm, err := d.generator(ctx)
	if err != nil {
		return err
	}
	store, err := d.store(ctx)
	if err != nil {
		return err
	}

	m := metrics.New()
	chat, err := usecase.NewChatService(usecase.ChatConfig{
		LLM:                llm,
		Store:              store,
		DefaultLanguage:    cfg.Language,
		Logger:             logger,
		Metrics:            m,
		HistoryWindow:      cfg.HistoryWindow,
		ClientQuickReplies: cfg.ClientQuickReplies,
		PendingTimeout:     cfg.PendingTimeout,
	})
	if err != nil {
		return err
	}

	if mem, ok := store.(*repository.Memory); ok {
		go sweep(ctx, mem, sweepInterval, logger)
	}

	router := httpapi.NewRouter(httpapi.Options{
		Chat:       chat,
		Calculator: usecase.NewCalculatorService(m),
		Logger:     logger,
		Metrics:    m.Handler(),
		Health:     true,
	})
	logger.Info("assistant listening",
		"addr", cfg.Addr,
		"provider", cfg.LLMProvider,
		"session_backend", cfg.SessionBackend,
	)
	return httpapi.Run(ctx, httpapi.NewServer(cfg.Addr, router))
}

// sweep evicts expired in-memory sessions until ctx is done.
func sweep(ctx context.Context, mem *repository.Memory, every time.Duration, logger *slog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := mem.Sweep(); n > 0 {
				logger.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
