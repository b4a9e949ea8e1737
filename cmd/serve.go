package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tejas-estimator/internal/api"
	"github.com/sells-group/tejas-estimator/internal/monitoring"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the estimate HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg.Server.Port = resolvePort(servePort, cfg.Server.Port)

		env, err := initEstimator(ctx, cfg, "serve", true)
		if err != nil {
			return err
		}
		defer env.Close()

		checker := monitoring.NewChecker(
			env.Client,
			env.Registry.All(),
			env.Metrics,
			time.Duration(cfg.Monitoring.CheckIntervalSecs)*time.Second,
		)
		go checker.Run(ctx)

		srv := api.NewServer(env.Service, env.Store, api.Options{
			PublicURL:   cfg.Server.PublicURL,
			CORSOrigins: cfg.Server.CORSOrigins,
			Gatherer:    env.Gatherer,
			Checker:     checker,
		})

		zap.L().Info("serving estimates",
			zap.Int("port", cfg.Server.Port),
			zap.Strings("jurisdictions", env.Registry.Keys()),
		)
		return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Server.Port))
	},
}

// resolvePort prefers the --port flag over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
