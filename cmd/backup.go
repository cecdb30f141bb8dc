package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abhisek/grit/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot, restore, export and import all data",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Save a snapshot of the current state",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		label, _ := cmd.Flags().GetString("label")
		snap, err := e.backup.Create(cmd.Context(), label)
		if err != nil {
			return err
		}
		if err := e.backup.Prune(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %d saved.\n", snap.ID)
		return nil
	}),
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		snaps, err := e.backup.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(snaps) == 0 {
			fmt.Fprintln(out, "No snapshots.")
			return nil
		}
		for _, s := range snaps {
			fmt.Fprintf(out, "%4d  %s  %s\n", s.ID, s.Timestamp.Local().Format("2006-01-02 15:04:05"), s.Label)
		}
		return nil
	}),
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Replace the current state with a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("snapshot id %q is not a number", args[0])
		}
		snap, err := e.backup.Restore(cmd.Context(), id)
		if err != nil {
			return backupError(e, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored snapshot %d from %s.\n", snap.ID, snap.Timestamp.Local().Format("2006-01-02 15:04"))
		return nil
	}),
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the most recent snapshots",
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		if err := e.backup.Prune(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Kept the %d most recent snapshots.\n", e.cfg.Backup.Keep)
		return nil
	}),
}

var backupExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write a JSON backup (- for stdout)",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		w, closeFn, err := createOutput(cmd, args[0])
		if err != nil {
			return err
		}
		data, err := e.backup.Export(cmd.Context(), w)
		if cerr := closeFn(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		if args[0] != "-" {
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d topics, %d tasks and %d timeline entries to %s.\n",
				len(data.Topics), len(data.Tasks), len(data.Timeline), args[0])
		}
		return nil
	}),
}

var backupImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the current state with a JSON backup (- for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open backup: %w", err)
			}
			defer f.Close()
			r = f
		}
		doc, err := e.backup.Import(cmd.Context(), r)
		if err != nil {
			return backupError(e, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d topics, %d tasks and %d timeline entries (exported %s).\n",
			len(doc.Data.Topics), len(doc.Data.Tasks), len(doc.Data.Timeline), doc.ExportedAt.Local().Format("2006-01-02 15:04"))
		return nil
	}),
}

func init() {
	backupCreateCmd.Flags().String("label", "manual", "Snapshot label")

	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupRestoreCmd,
		backupPruneCmd, backupExportCmd, backupImportCmd)
}

// backupError reduces every incompatible-backup failure to the one message
// users see; the details go to the debug log.
func backupError(e *env, err error) error {
	if errors.Is(err, backup.ErrIncompatible) {
		e.logger.Debug("backup rejected", "err", err)
		return backup.ErrIncompatible
	}
	return err
}

// createOutput opens path for writing, or stdout for "-".
func createOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}
