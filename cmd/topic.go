package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/grit/internal/dates"
	"github.com/abhisek/grit/internal/spacedrep"
	"github.com/abhisek/grit/internal/study"
)

var topicCmd = &cobra.Command{
	Use:   "topic",
	Short: "Manage spaced-repetition topics",
}

var topicAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Start studying a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		priority, _ := cmd.Flags().GetString("priority")
		model, _ := cmd.Flags().GetString("model")
		t, err := e.study.CreateTopic(cmd.Context(), study.NewTopic{
			Name:     strings.Join(args, " "),
			Priority: study.Priority(strings.ToLower(priority)),
			Model:    spacedrep.Model(strings.ToLower(model)),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s). First review %s.\n",
			t.Name, shortID(t.ID), formatWhen(t.NextReviewAt))
		return nil
	}),
}

var topicReviewCmd = &cobra.Command{
	Use:   "review REF",
	Short: "Record a review with feedback (level model) or confidence (confidence model)",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		var (
			res *study.ReviewResult
			err error
		)
		if cmd.Flags().Changed("confidence") {
			conf, _ := cmd.Flags().GetInt("confidence")
			res, err = e.study.ReviewWithConfidence(cmd.Context(), args[0], conf)
		} else {
			raw, _ := cmd.Flags().GetString("feedback")
			fb, perr := spacedrep.ParseFeedback(raw)
			if perr != nil {
				return perr
			}
			res, err = e.study.Review(cmd.Context(), args[0], fb)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: level %d -> %d, next review in %d day(s) (%s).\n",
			res.Topic.Name, res.PreviousLevel, res.Topic.Level, res.IntervalDays, formatWhen(res.Topic.NextReviewAt))
		switch {
		case res.BecameMastered:
			fmt.Fprintln(out, "Mastered!")
		case res.LostMastery:
			fmt.Fprintln(out, "Mastery lost.")
		}
		return nil
	}),
}

var topicMissCmd = &cobra.Command{
	Use:   "miss REF",
	Short: "Record that a due review was missed",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		t, err := e.study.MarkMissed(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Missed %s. Integrity %d%%, %s.\n", t.Name, t.Integrity, t.Decay)
		return nil
	}),
}

var topicSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark every review overdue since before today as missed",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		swept, err := e.study.SweepMissed(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, t := range swept {
			fmt.Fprintf(out, "Missed %s. Integrity %d%%.\n", t.Name, t.Integrity)
		}
		fmt.Fprintf(out, "%d review(s) marked missed.\n", len(swept))
		return nil
	}),
}

var topicDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List topics due for review, most urgent first",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		topics, err := e.study.DueTopics(cmd.Context())
		if err != nil {
			return err
		}
		if len(topics) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing due.")
			return nil
		}
		printTopics(cmd.OutOrStdout(), topics)
		return nil
	}),
}

var topicListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all topics",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		if _, err := e.study.RefreshDecay(cmd.Context()); err != nil {
			return err
		}
		topics, err := e.study.ListTopics(cmd.Context())
		if err != nil {
			return err
		}
		printTopics(cmd.OutOrStdout(), topics)
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d topics\n", len(topics))
		return nil
	}),
}

var topicShowCmd = &cobra.Command{
	Use:   "show REF",
	Short: "Show a topic and its revision history",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		t, err := e.study.GetTopic(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		revs, err := e.study.History(cmd.Context(), t.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  %s\n", t.Name, t.ID)
		fmt.Fprintf(out, "  model %s, priority %s\n", t.Model, t.Priority)
		fmt.Fprintf(out, "  level %d, %d review(s), integrity %d%%, %s\n", t.Level, t.ReviewCount, t.Integrity, t.Decay)
		if t.Confidence != nil {
			fmt.Fprintf(out, "  confidence %d\n", *t.Confidence)
		}
		if t.IsMastered {
			fmt.Fprintln(out, "  mastered")
		}
		fmt.Fprintf(out, "  last reviewed %s, next review %s\n", formatWhen(t.LastReviewedAt), formatWhen(t.NextReviewAt))

		fmt.Fprintln(out, "\nRevisions")
		fmt.Fprintln(out, strings.Repeat("─", 50))
		for _, r := range revs {
			detail := string(r.Feedback)
			if r.ConfidenceAfter != nil {
				detail = fmt.Sprintf("confidence %d", *r.ConfidenceAfter)
			}
			fmt.Fprintf(out, "%-16s  %-6s  %s\n", r.ScheduledAt.Local().Format("2006-01-02 15:04"), r.Status(), detail)
		}
		return nil
	}),
}

var topicDeleteCmd = &cobra.Command{
	Use:   "delete REF",
	Short: "Delete a topic and its revisions",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		t, err := e.study.GetTopic(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := e.study.DeleteTopic(cmd.Context(), t.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", t.Name)
		return nil
	}),
}

func init() {
	topicAddCmd.Flags().String("priority", "medium", "Priority: high, medium or low")
	topicAddCmd.Flags().String("model", "", "Scheduling model: level or confidence (default from config)")
	topicReviewCmd.Flags().String("feedback", "good", "Feedback: again, hard, good, easy or 1-4")
	topicReviewCmd.Flags().Int("confidence", 0, "Confidence 0-100 for confidence-model topics")

	topicCmd.AddCommand(topicAddCmd, topicReviewCmd, topicMissCmd, topicSweepCmd,
		topicDueCmd, topicListCmd, topicShowCmd, topicDeleteCmd)
}

func printTopics(w io.Writer, topics []study.Topic) {
	fmt.Fprintf(w, "%-8s  %-30s  %-6s  %5s  %9s  %-8s  %s\n",
		"ID", "Name", "Prio", "Level", "Integrity", "Decay", "Next review")
	fmt.Fprintln(w, strings.Repeat("─", 95))
	for _, t := range topics {
		name := t.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		mark := ""
		if t.IsMastered {
			mark = " *"
		}
		fmt.Fprintf(w, "%-8s  %-30s  %-6s  %5d  %8d%%  %-8s  %s%s\n",
			shortID(t.ID), name, t.Priority, t.Level, t.Integrity, t.Decay, formatWhen(t.NextReviewAt), mark)
	}
}

// shortID is the id prefix shown in listings; any unique prefix resolves.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatWhen(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return dates.FormatDate(*t)
}
