package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/grit/internal/app"
)

// runApp opens the store, sweeps overdue reviews and launches the TUI.
func runApp(cmd *cobra.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	if swept, err := e.study.SweepMissed(ctx); err != nil {
		e.logger.Warn("sweep missed reviews", "err", err)
	} else if len(swept) > 0 {
		e.logger.Info("marked overdue reviews missed", "count", len(swept))
	}

	return app.Run(ctx, app.Options{
		Topics:   e.study,
		Tasks:    e.planner,
		Timeline: e.timeline,
	})
}
