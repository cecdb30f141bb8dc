package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/grit/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data to other formats",
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx FILE",
	Short: "Write tasks, topics and the timeline to an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, e *env, args []string) error {
		data, err := e.store.Capture(cmd.Context())
		if err != nil {
			return err
		}
		w, closeFn, err := createOutput(cmd, args[0])
		if err != nil {
			return err
		}
		err = export.WriteXLSX(w, data)
		if cerr := closeFn(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		if args[0] != "-" {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s.\n", args[0])
		}
		return nil
	}),
}

func init() {
	exportCmd.AddCommand(exportXLSXCmd)
}
