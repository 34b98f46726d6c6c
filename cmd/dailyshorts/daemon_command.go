package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dailyshorts/internal/daemon"
	"dailyshorts/internal/logging"
	"dailyshorts/internal/notifications"
	"dailyshorts/internal/runner"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the pipeline on the configured schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if runNow {
				cfg.Schedule.RunOnStart = true
			}
			logger, err := ctx.logger(cfg, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			store, err := ctx.openHistory()
			if err != nil {
				logger.Error("open history store", logging.Error(err))
				return err
			}
			defer store.Close()

			r, err := runner.New(cfg, logger, store, notifications.NewService(cfg))
			if err != nil {
				return err
			}
			d, err := daemon.New(cfg, logger, r, store)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			if err := d.Start(signalCtx); err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}
			if addr := d.APIAddr(); addr != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "API listening on http://%s\n", addr)
			}

			<-signalCtx.Done()
			logger.Info("dailyshorts daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
			d.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Start a run immediately in addition to the schedule")
	return cmd
}
