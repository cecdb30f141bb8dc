package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/grit/internal/reminder"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Periodically remind about due reviews and open tasks",
	Long: "remind checks on the configured interval during active hours. Each\n" +
		"check marks overdue reviews missed, then prints due reviews and the\n" +
		"tasks still open today. It runs until interrupted unless --once is set.",
	Args: cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		every, err := e.cfg.Reminder.Every()
		if err != nil {
			return err
		}
		svc := reminder.NewService(e.study, e.planner, reminder.NewWriterNotifier(cmd.OutOrStdout()), reminder.Config{
			Every:     every,
			StartHour: e.cfg.Reminder.StartHour,
			EndHour:   e.cfg.Reminder.EndHour,
			Location:  time.Local,
			Clock:     e.clock,
			Logger:    e.logger.With("component", "reminder"),
		})

		ctx := cmd.Context()
		if once, _ := cmd.Flags().GetBool("once"); once {
			_, sent, err := svc.Check(ctx)
			if err != nil {
				return err
			}
			if !sent {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to remind about.")
			}
			return nil
		}

		if err := svc.Start(ctx); err != nil {
			return err
		}
		defer svc.Stop()
		<-ctx.Done()
		return nil
	}),
}

func init() {
	remindCmd.Flags().Bool("once", false, "Run a single check and exit")
}
