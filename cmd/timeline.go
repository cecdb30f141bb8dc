package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/grit/internal/timeline"
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show recent timeline entries, newest first",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		rawTypes, _ := cmd.Flags().GetStringSlice("type")

		var types []timeline.EntryType
		for _, raw := range rawTypes {
			t, err := timeline.ParseEntryType(raw)
			if err != nil {
				return err
			}
			types = append(types, t)
		}

		entries, err := e.timeline.Recent(cmd.Context(), limit, types...)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "Nothing recorded yet.")
			return nil
		}
		for _, en := range entries {
			avoided := ""
			if en.WasAvoided {
				avoided = "  (avoided)"
			}
			fmt.Fprintf(out, "%s  %-8s  %s%s\n",
				en.CreatedAt.Local().Format("2006-01-02 15:04"), en.Type.Label(), en.Title, avoided)
			if en.Description != "" {
				fmt.Fprintf(out, "%18s  %s\n", "", en.Description)
			}
		}
		return nil
	}),
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Write thoughts and problems to the timeline",
}

var journalThoughtCmd = &cobra.Command{
	Use:   "thought TEXT",
	Short: "Record a thought",
	Args:  cobra.MinimumNArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		note, _ := cmd.Flags().GetString("note")
		en, err := e.timeline.RecordThought(cmd.Context(), strings.Join(args, " "), note)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Noted: %s\n", en.Title)
		return nil
	}),
}

var journalProblemCmd = &cobra.Command{
	Use:   "problem TEXT",
	Short: "Record a problem you ran into",
	Args:  cobra.MinimumNArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		note, _ := cmd.Flags().GetString("note")
		en, err := e.timeline.RecordProblem(cmd.Context(), strings.Join(args, " "), note)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Noted problem: %s\n", en.Title)
		return nil
	}),
}

func init() {
	timelineCmd.Flags().Int("limit", 50, "Maximum entries to show")
	timelineCmd.Flags().StringSlice("type", nil, "Entry types to show: study_session, missed_revision, planner_failure, thought, problem")

	journalThoughtCmd.Flags().String("note", "", "Longer description")
	journalProblemCmd.Flags().String("note", "", "Longer description")
	journalCmd.AddCommand(journalThoughtCmd, journalProblemCmd)
}
