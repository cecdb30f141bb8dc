package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/grit/internal/planner"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage planner tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Schedule a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		minutes, _ := cmd.Flags().GetInt("minutes")
		date, _ := cmd.Flags().GetString("date")
		at, _ := cmd.Flags().GetString("time")
		prio, _ := cmd.Flags().GetInt("priority")
		t, err := e.planner.AddTask(cmd.Context(), planner.NewTask{
			Name:                strings.Join(args, " "),
			TimeEstimateMinutes: minutes,
			ScheduledDate:       date,
			ScheduledTime:       at,
			Priority:            prio,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) on %s.\n", t.Name, shortID(t.ID), t.ScheduledDate)
		return nil
	}),
}

var taskStartCmd = &cobra.Command{
	Use:   "start REF",
	Short: "Mark a task in progress",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		t, err := e.planner.StartTask(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Started %s.\n", t.Name)
		return nil
	}),
}

var taskCompleteCmd = &cobra.Command{
	Use:     "complete REF",
	Aliases: []string{"done"},
	Short:   "Mark a task completed",
	Args:    cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		t, err := e.planner.CompleteTask(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Completed %s (cost %d).\n", t.Name, t.DecayCost)
		return nil
	}),
}

var taskSkipCmd = &cobra.Command{
	Use:   "skip REF",
	Short: "Skip a pending task; a costlier recovery task is scheduled",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		res, err := e.planner.SkipTask(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Skipped %s.\n", res.Task.Name)
		if r := res.Recovery; r != nil {
			fmt.Fprintf(out, "Recovery %s on %s: %d min, cost %d.\n",
				shortID(r.ID), r.ScheduledDate, r.TimeEstimateMinutes, r.DecayCost)
		}
		return nil
	}),
}

var taskUndoCmd = &cobra.Command{
	Use:   "undo REF",
	Short: "Return a task to pending, removing its recovery tasks",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		res, err := e.planner.UndoTask(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !res.Changed {
			fmt.Fprintf(out, "%s is already pending.\n", res.Task.Name)
			return nil
		}
		fmt.Fprintf(out, "%s is pending again. Removed %d recovery task(s) and %d timeline entr(ies).\n",
			res.Task.Name, len(res.RemovedRecovery), res.ErasedEntries)
		return nil
	}),
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete REF",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		t, err := e.planner.DeleteTask(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", t.Name)
		return nil
	}),
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks (today's agenda unless a filter is given)",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		rawStatus, _ := cmd.Flags().GetString("status")
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		date, _ := cmd.Flags().GetString("date")
		all, _ := cmd.Flags().GetBool("all")

		var (
			tasks []planner.Task
			err   error
		)
		if all || rawStatus != "" || from != "" || to != "" {
			f := planner.ListFilter{FromDate: from, ToDate: to}
			if rawStatus != "" {
				if f.Status, err = planner.ParseStatus(rawStatus); err != nil {
					return err
				}
			}
			tasks, err = e.planner.ListTasks(cmd.Context(), f)
		} else {
			tasks, err = e.planner.Agenda(cmd.Context(), date)
		}
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
			return nil
		}
		printTasks(cmd.OutOrStdout(), tasks)
		return nil
	}),
}

var taskLineageCmd = &cobra.Command{
	Use:   "lineage REF",
	Short: "Show the recovery chain a task belongs to",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		chain, err := e.planner.Lineage(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, t := range chain {
			fmt.Fprintf(out, "%s%s  %s  %-11s  %d min  cost %d\n",
				strings.Repeat("  ", i), shortID(t.ID), t.ScheduledDate, t.Status, t.TimeEstimateMinutes, t.DecayCost)
		}
		return nil
	}),
}

func init() {
	taskAddCmd.Flags().Int("minutes", 30, "Time estimate in minutes")
	taskAddCmd.Flags().String("date", "", "Scheduled date YYYY-MM-DD (default today)")
	taskAddCmd.Flags().String("time", "", "Scheduled time HH:MM")
	taskAddCmd.Flags().Int("priority", 0, "Priority 1 (highest) to 3")

	taskListCmd.Flags().String("date", "", "Agenda date YYYY-MM-DD (default today)")
	taskListCmd.Flags().String("status", "", "Filter by status: pending, in_progress, completed, skipped")
	taskListCmd.Flags().String("from", "", "First scheduled date to include")
	taskListCmd.Flags().String("to", "", "Last scheduled date to include")
	taskListCmd.Flags().Bool("all", false, "List tasks on every date")

	taskCmd.AddCommand(taskAddCmd, taskStartCmd, taskCompleteCmd, taskSkipCmd,
		taskUndoCmd, taskDeleteCmd, taskListCmd, taskLineageCmd)
}

func printTasks(w io.Writer, tasks []planner.Task) {
	fmt.Fprintf(w, "%-8s  %-10s  %-5s  %-4s  %-30s  %-11s  %5s  %4s\n",
		"ID", "Date", "Time", "Prio", "Name", "Status", "Min", "Cost")
	fmt.Fprintln(w, strings.Repeat("─", 92))
	for _, t := range tasks {
		name := t.Name
		if t.IsRecovery {
			name = "↻ " + name
		}
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		fmt.Fprintf(w, "%-8s  %-10s  %-5s  %-4s  %-30s  %-11s  %5d  %4d\n",
			shortID(t.ID), t.ScheduledDate, t.TimeLabel(), t.PriorityLabel(), name, t.Status, t.TimeEstimateMinutes, t.DecayCost)
	}
}
