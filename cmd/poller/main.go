// Package main is the entry point for the DM poller.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/threadmind/dm-concierge/internal/bootstrap"
	"github.com/threadmind/dm-concierge/internal/bridge"
	"github.com/threadmind/dm-concierge/internal/config"
	"github.com/threadmind/dm-concierge/internal/poller"
	"github.com/threadmind/dm-concierge/internal/reply"
	"github.com/threadmind/dm-concierge/pkg/logger"
	"github.com/threadmind/dm-concierge/pkg/tracing"
)

var (
	configPath string
	once       bool
	interval   time.Duration
	mode       string
)

var rootCmd = &cobra.Command{
	Use:   "dm-poller",
	Short: "Poll target accounts' DM threads and reply to new messages",
	Long: `dm-poller watches the direct-message threads of the configured target
accounts, classifies each new text message, sends a reply through the
messaging bridge and records the interaction.`,
	SilenceUsage: true,
	RunE:         runPoller,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "optional config file (.env, YAML, JSON or TOML)")
	rootCmd.Flags().BoolVar(&once, "once", false, "run a single poll cycle and exit")
	rootCmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (overrides POLL_INTERVAL)")
	rootCmd.Flags().StringVar(&mode, "mode", "", "reply mode: template or llm (overrides POLLER_REPLY_MODE)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPoller(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if interval > 0 {
		cfg.PollInterval = interval
	}
	if mode != "" {
		cfg.PollerReplyMode = mode
	}
	replyMode, err := reply.ParseMode(cfg.PollerReplyMode)
	if err != nil {
		return err
	}

	log, err := bootstrap.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()
	log = log.Named("poller")
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "dm-concierge-poller", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	rt, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	messenger, err := bridge.NewClient(bridge.Config{
		Command: cfg.BridgeCommand,
		Timeout: cfg.BridgeTimeout,
	}, log.Named("bridge"))
	if err != nil {
		return err
	}

	p := poller.New(messenger, rt.Store, rt.Recorder, rt.Resolver, poller.Config{
		Interval: cfg.PollInterval,
		Mode:     replyMode,
	}, log)

	if once {
		rep, err := p.PollOnce(ctx)
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(rep)
	}

	go func() {
		if err := rt.Prompts.Watch(ctx); err != nil {
			log.Warn("prompt watcher stopped", zap.Error(err))
		}
	}()
	return p.Run(ctx)
}
