package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tempopilot/coach-gateway/internal/azure"
	"github.com/tempopilot/coach-gateway/internal/config"
	"github.com/tempopilot/coach-gateway/internal/gateway"
	"github.com/tempopilot/coach-gateway/internal/logging"
	"github.com/tempopilot/coach-gateway/internal/store"
	"github.com/tempopilot/coach-gateway/internal/tools"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}
			if logLevel == "" && cfg.Logging.Level != "" {
				log = logging.New(nil, cfg.Logging.Level)
			}

			fatal := 0
			for _, issue := range config.Validate(&cfg) {
				if issue.Warning {
					log.Warn().Str("path", issue.Path).Msg(issue.Message)
					continue
				}
				log.Error().Str("path", issue.Path).Msg(issue.Message)
				fatal++
			}
			if fatal > 0 {
				return fmt.Errorf("config validation failed with %d issue(s)", fatal)
			}

			db, err := store.Open(cfg.Store.Path, log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			accessStore := store.NewAccessStore(db)
			usageStore := store.NewUsageStore(db)

			registry := tools.NewCalendarRegistry(log)
			client := azure.NewClient(cfg.Azure, log)
			failover := azure.NewFailover(client, cfg.Azure.Deployment, cfg.Azure.FallbackDeployment, client.PathWarning(), log)

			srv := gateway.New(cfg, log, accessStore, accessStore, failover, registry,
				gateway.WithRecorder(usageStore))

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}
