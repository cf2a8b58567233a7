package cmd

import (
	"fmt"
	"time"

	"github.com/bloomworks/livebus/internal/config"
	"github.com/bloomworks/livebus/internal/logging"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View bus logs",
	Long: `View and filter the bus log files.

Examples:
  # Show the last 50 entries
  livebus logs

  # Show everything at warn or above
  livebus logs --level warn -n 0

  # Entries for one channel in the last hour
  livebus logs --channel events.competition --since 1h

  # Entries for one event in one region
  livebus logs --event summer-harvest --region eu-west

  # Export everything matching to CSV
  livebus logs --since 24h --output report.csv --format csv`,
	RunE: runLogs,
}

var (
	logsTail    int
	logsLevel   string
	logsSince   string
	logsChannel string
	logsEvent   string
	logsRegion  string
	logsGrep    string
	logsOutput  string
	logsFormat  string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show entries since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsChannel, "channel", "", "Filter by channel id")
	logsCmd.Flags().StringVar(&logsEvent, "event", "", "Filter by global event id")
	logsCmd.Flags().StringVar(&logsRegion, "region", "", "Filter by region")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter entries whose message contains this text")
	logsCmd.Flags().StringVarP(&logsOutput, "output", "o", "", "Write matching entries to a file instead of stdout")
	logsCmd.Flags().StringVar(&logsFormat, "format", "text", "Output format for --output (json/text/csv)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Logging.Dir == "" {
		return fmt.Errorf("logging.dir is not set; file logging is disabled")
	}

	entries, err := logging.AggregateLogs(cfg.Logging.Dir)
	if err != nil {
		return fmt.Errorf("failed to read logs: %w", err)
	}

	filter := logging.LogFilter{
		ChannelID:       logsChannel,
		EventID:         logsEvent,
		Region:          logsRegion,
		MessageContains: logsGrep,
	}
	if logsLevel != "" {
		filter.Level = logging.ParseLevel(logsLevel)
	}
	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return fmt.Errorf("invalid --since duration: %w", err)
		}
		filter.StartTime = time.Now().Add(-d)
	}
	entries = logging.FilterLogs(entries, filter)

	if logsOutput != "" {
		if err := logging.ExportLogEntries(entries, logsOutput, logsFormat); err != nil {
			return fmt.Errorf("failed to export logs: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d entries to %s\n", len(entries), logsOutput)
		return nil
	}

	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}
	for _, entry := range entries {
		printLogEntry(cmd, entry)
	}
	return nil
}

func printLogEntry(cmd *cobra.Command, entry logging.LogEntry) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s [%s] %s",
		entry.Timestamp.Format("2006-01-02 15:04:05"), entry.Level, entry.Message)
	if entry.ChannelID != "" {
		fmt.Fprintf(out, " channel=%s", entry.ChannelID)
	}
	if entry.EventID != "" {
		fmt.Fprintf(out, " event=%s", entry.EventID)
	}
	if entry.Region != "" {
		fmt.Fprintf(out, " region=%s", entry.Region)
	}
	fmt.Fprintln(out)
}
