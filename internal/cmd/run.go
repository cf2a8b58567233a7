package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bloomworks/livebus/internal/config"
	"github.com/bloomworks/livebus/internal/hub"
	"github.com/bloomworks/livebus/internal/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the message bus",
	Long: `Run the message bus in the foreground.

Channels, the coordinator, and the conflict engine are built from the
loaded configuration. The config file is watched; edits are applied by
restarting the hub with the new configuration. Stop with Ctrl-C.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := hub.New(cfg, hub.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to build hub: %w", err)
	}
	if err := h.Start(ctx); err != nil {
		return err
	}

	// Serializes hot reloads against shutdown.
	var mu sync.Mutex

	viper.OnConfigChange(func(in fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		next, err := config.Load()
		if err != nil {
			logger.Error("config reload rejected", "file", in.Name, "error", err)
			return
		}
		replacement, err := hub.New(next, hub.WithLogger(logger))
		if err != nil {
			logger.Error("config reload rejected", "file", in.Name, "error", err)
			return
		}

		h.Stop()
		h = replacement
		if err := h.Start(ctx); err != nil {
			logger.Error("restart after reload failed", "error", err)
			return
		}
		logger.Info("config reloaded", "file", in.Name, "channels", h.Registry().Count())
	})
	viper.WatchConfig()

	fmt.Fprintf(cmd.OutOrStdout(), "livebus running with %d channels (Ctrl-C to stop)\n",
		h.Registry().Count())

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return h.Stop()
}

// newLogger builds the process logger from the logging config. Disabled
// logging gets a no-op logger rather than nil so components can log
// unconditionally.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}
