package cmd

import (
	"fmt"

	"github.com/bloomworks/livebus/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration",
	Long: `Load and validate the configuration without starting the bus.

Reports every validation problem found. Values that are merely out of
range (negative limits, zero intervals) are clamped at startup and do
not fail validation.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	errs := cfg.Validate()
	if len(errs) == 0 {
		if file := viper.ConfigFileUsed(); file != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d channels)\n", file, len(cfg.Channels))
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "defaults: OK (%d channels)\n", len(cfg.Channels))
		}
		return nil
	}

	for _, err := range errs {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", err.Error())
	}
	return fmt.Errorf("%d validation error(s)", len(errs))
}
