package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/bloomworks/livebus/internal/config"
	"github.com/bloomworks/livebus/internal/hub"
	"github.com/bloomworks/livebus/internal/message"
	"github.com/spf13/cobra"
)

var raiseCmd = &cobra.Command{
	Use:   "raise <channel-id> [file]",
	Short: "Raise a message from a JSON document",
	Long: `Build the channel set from the current configuration, decode a JSON
message document, and raise it on the named channel. Reads stdin when no
file is given.

The admission outcome is printed, which makes this useful for testing
channel filters and rate limits before deploying a config:

  livebus raise events.competition msg.json
  echo '{"type":"challenge","title":"Harvest","source":"eu-gw"}' | livebus raise events.competition`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRaise,
}

func init() {
	rootCmd.AddCommand(raiseCmd)
}

func runRaise(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	h, err := hub.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build hub: %w", err)
	}

	var raw []byte
	if len(args) == 2 {
		raw, err = os.ReadFile(args[1])
	} else {
		raw, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	msg, err := message.FromJSON(raw)
	if err != nil {
		return err
	}

	channelID := args[0]
	ch, ok := h.Channel(channelID)
	if !ok {
		return fmt.Errorf("unknown channel %q", channelID)
	}
	ch.Raise(msg)

	metrics := ch.Metrics()
	out := cmd.OutOrStdout()
	switch {
	case metrics.Invalid > 0:
		fmt.Fprintln(out, "rejected: failed validation")
	case metrics.RateLimited > 0:
		fmt.Fprintln(out, "rejected: rate limited")
	case metrics.Unauthorized > 0:
		fmt.Fprintf(out, "rejected: source %q is blocked\n", msg.Source)
	case metrics.Filtered > 0:
		fmt.Fprintln(out, "rejected: does not match channel filter")
	default:
		fmt.Fprintf(out, "accepted: delivered to %d subscriber(s)\n", metrics.Delivered)
	}
	return nil
}
