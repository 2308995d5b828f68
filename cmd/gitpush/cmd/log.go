package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Gitpush/internal/state"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent push runs recorded on this machine",
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 10, "number of runs to show")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) (err error) {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	runs, err := svc.LastRuns(refFlag, logLimit)
	if err != nil {
		return err
	}

	printRuns(cmd.OutOrStdout(), runs)
	return nil
}

func printRuns(w io.Writer, runs []state.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tCREATED\tUPDATED\tDELETED\tFAILED\tMESSAGE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.StartTime.Local().Format("2006-01-02 15:04:05"),
			r.Status, r.Created, r.Updated, r.Deleted, r.Failed, r.Message)
		if r.Error != "" {
			fmt.Fprintf(tw, "\t\t\t\t\t\terror: %s\n", r.Error)
		}
	}
	tw.Flush()
}
