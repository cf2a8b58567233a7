package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/bloomworks/livebus/internal/config"
	"github.com/bloomworks/livebus/internal/hub"
	"github.com/spf13/cobra"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List configured channels",
	Long: `List the channels the bus would run with under the current
configuration, including the system channels the hub creates itself.`,
	RunE: runChannels,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show channel health",
	Long: `Build the channel set from the current configuration and report
per-channel health. A channel is healthy while its last accepted message
is within the configured staleness window; freshly registered channels
count as healthy.`,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(channelsCmd)
	rootCmd.AddCommand(healthCmd)
}

func runChannels(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	h, err := hub.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build hub: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tPRIORITY\tRATE/S\tHISTORY")
	for _, ch := range h.Registry().All() {
		c := ch.Config()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			c.ID, c.Name, c.Category, c.DefaultPriority, c.RatePerSecond, c.MaxHistory)
	}
	return w.Flush()
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	h, err := hub.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build hub: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tACTIVE\tHEALTHY\tSUBSCRIBERS\tHISTORY")
	for _, entry := range h.Health() {
		fmt.Fprintf(w, "%s\t%t\t%t\t%d\t%d\n",
			entry.ChannelID, entry.Active, entry.Healthy, entry.Subscribers, entry.HistorySize)
	}
	return w.Flush()
}
