package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tvdeck/tvdeck/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start tvdeck with the stored session",
	Long: `Start tvdeck, restore the stored session, and keep the scheduled
background jobs (EPG refresh) running until interrupted.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, newConsoleRenderer(os.Stdout))
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.coord.Start(ctx); err != nil {
		return err
	}

	sched := scheduler.New(a.logger)
	if cron := a.cfg.EPG.RefreshCron; cron != "" {
		err := sched.Add(scheduler.Job{
			Name: "epg-refresh",
			Cron: cron,
			Run: func(ctx context.Context) error {
				if !a.coord.LoggedIn() {
					return nil
				}
				_, err := a.coord.RefreshEPG(ctx)
				return err
			},
		})
		if err != nil {
			return err
		}
	}
	sched.Start(ctx)
	defer sched.Stop()

	<-ctx.Done()
	a.logger.Info("shutting down")
	return nil
}
