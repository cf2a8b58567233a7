package cmd

import (
	"context"
	"fmt"

	"github.com/bloomworks/livebus/internal/config"
	"github.com/bloomworks/livebus/internal/hub"
	"github.com/bloomworks/livebus/internal/tui"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the bus with a live dashboard",
	Long: `Run the message bus with a terminal dashboard showing channel
metrics, tracked global events, and open conflicts. Quitting the
dashboard stops the bus.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	h, err := hub.New(cfg, hub.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to build hub: %w", err)
	}
	if err := h.Start(context.Background()); err != nil {
		return err
	}
	defer h.Stop()

	if err := tui.Run(h, cfg.Monitor.RefreshInterval); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}
	return nil
}
