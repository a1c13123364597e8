// Package cli wires the coachgw command tree.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/tempopilot/coach-gateway/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// built in PersistentPreRunE
	log *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coachgw",
		Short: "Coach gateway: streaming AI chat for Tempo Pilot",
		Long:  "coachgw relays coaching chat requests to Azure OpenAI, streams the reply as Server-Sent Events, and executes calendar tools the model calls mid-stream.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "coachgw.yaml", "config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAccessCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
