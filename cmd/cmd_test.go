package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/grit/internal/backup"
)

var idPattern = regexp.MustCompile(`\(([0-9a-f]{8})\)`)

type cli struct {
	t  *testing.T
	db string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range []string{"GRIT_CONFIG", "GRIT_DB", "GRIT_LOG_LEVEL", "GRIT_LOG_FORMAT", "GRIT_SKIP_MODE"} {
		t.Setenv(k, "")
	}
	return &cli{t: t, db: filepath.Join(dir, "grit.db")}
}

// run executes the root command with fresh flag state.
func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--db", c.db}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestVersion(t *testing.T) {
	c := newCLI(t)
	assert.Contains(t, c.mustRun("version"), "grit (devel)")
}

func TestTopicCommands(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("topic", "add", "Graph", "theory", "--priority", "high")
	assert.Contains(t, out, "Added Graph theory")
	m := idPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, out)

	out = c.mustRun("topic", "list")
	assert.Contains(t, out, "Graph theory")
	assert.Contains(t, out, "1 topics")

	assert.Contains(t, c.mustRun("topic", "due"), "Nothing due.")

	out = c.mustRun("topic", "review", m[1], "--feedback", "easy")
	assert.Contains(t, out, "level 0 -> 1")

	out = c.mustRun("topic", "show", m[1])
	assert.Contains(t, out, "Revisions")
	assert.Contains(t, out, "done")

	_, err := c.run("topic", "review", m[1], "--feedback", "meh")
	assert.Error(t, err)

	assert.Contains(t, c.mustRun("topic", "delete", m[1]), "Deleted Graph theory.")
	_, err = c.run("topic", "show", m[1])
	assert.Error(t, err)
}

func TestTaskSkipAndUndo(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("task", "add", "Run", "--minutes", "30")
	m := idPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, out)

	out = c.mustRun("task", "skip", m[1])
	assert.Contains(t, out, "Skipped Run.")
	assert.Contains(t, out, "38 min, cost 3")

	out = c.mustRun("task", "lineage", m[1])
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "pending")

	out = c.mustRun("timeline", "--type", "planner_failure")
	assert.Contains(t, out, "Run")

	out = c.mustRun("task", "undo", m[1])
	assert.Contains(t, out, "Removed 1 recovery task(s)")

	out = c.mustRun("task", "list", "--all")
	assert.Contains(t, out, "Run")
	assert.NotContains(t, out, "↻")

	out = c.mustRun("stats")
	assert.Contains(t, out, "total 1: 1 pending")
}

func TestTaskAddRejectsBadInput(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("task", "add", "Run", "--minutes", "0")
	assert.ErrorContains(t, err, "invalid estimate")
	_, err = c.run("task", "add", "Run", "--date", "tomorrow")
	assert.ErrorContains(t, err, "invalid date")
}

func TestJournalAndTimeline(t *testing.T) {
	c := newCLI(t)
	c.mustRun("journal", "thought", "Mornings", "work", "--note", "Before 9")
	c.mustRun("journal", "problem", "Phone", "distraction")

	out := c.mustRun("timeline", "--type", "thought")
	assert.Contains(t, out, "Mornings work")
	assert.Contains(t, out, "Before 9")
	assert.NotContains(t, out, "Phone distraction")

	_, err := c.run("timeline", "--type", "nonsense")
	assert.Error(t, err)
}

func TestBackupExportImport(t *testing.T) {
	c := newCLI(t)
	c.mustRun("task", "add", "Run")
	file := filepath.Join(t.TempDir(), "backup.json")

	out := c.mustRun("backup", "export", file)
	assert.Contains(t, out, "1 tasks")

	out = c.mustRun("backup", "import", file)
	assert.Contains(t, out, "Imported 0 topics, 1 tasks")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"format":"nope"}`), 0o644))
	_, err := c.run("backup", "import", bad)
	assert.Equal(t, backup.ErrIncompatible, err)

	out = c.mustRun("backup", "list")
	assert.Contains(t, out, "pre-import")
}

func TestBackupSnapshots(t *testing.T) {
	c := newCLI(t)
	c.mustRun("task", "add", "Run")
	assert.Contains(t, c.mustRun("backup", "create", "--label", "before"), "Snapshot 1 saved.")

	c.mustRun("task", "add", "Read")
	assert.Contains(t, c.mustRun("backup", "restore", "1"), "Restored snapshot 1")

	out := c.mustRun("task", "list", "--all")
	assert.Contains(t, out, "Run")
	assert.NotContains(t, out, "Read")

	_, err := c.run("backup", "restore", "x")
	assert.Error(t, err)
}

func TestExportXLSX(t *testing.T) {
	c := newCLI(t)
	c.mustRun("task", "add", "Run")
	file := filepath.Join(t.TempDir(), "grit.xlsx")
	c.mustRun("export", "xlsx", file)

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
