package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/grit/internal/spacedrep"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show study and planner statistics",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")

		ctx := cmd.Context()
		if _, err := e.study.RefreshDecay(ctx); err != nil {
			return err
		}
		sum, err := e.study.Summarize(ctx)
		if err != nil {
			return err
		}
		st, err := e.planner.Stats(ctx, from, to)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Topics")
		fmt.Fprintf(out, "  total %d, mastered %d, due %d\n", sum.Total, sum.Mastered, sum.Due)
		for _, d := range []spacedrep.DecayState{spacedrep.DecayFresh, spacedrep.DecayDue, spacedrep.DecayOverdue, spacedrep.DecayCritical} {
			fmt.Fprintf(out, "  %-8s %d\n", d, sum.ByDecay[d])
		}

		fmt.Fprintln(out, "\nTasks")
		fmt.Fprintf(out, "  total %d: %d pending, %d in progress, %d completed, %d skipped\n",
			st.Total, st.Pending, st.InProgress, st.Completed, st.Skipped)
		fmt.Fprintf(out, "  recoveries %d, outstanding cost %d, completed cost %d\n",
			st.Recoveries, st.OutstandingCost, st.CompletedCost)
		fmt.Fprintf(out, "  completion rate %.0f%%\n", st.CompletionRate()*100)
		return nil
	}),
}

func init() {
	statsCmd.Flags().String("from", "", "First scheduled date to include")
	statsCmd.Flags().String("to", "", "Last scheduled date to include")
}
