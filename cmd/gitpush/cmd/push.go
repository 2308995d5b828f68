package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Gitpush/internal/domain"
	"github.com/Ning0612/Gitpush/internal/progress"
	"github.com/Ning0612/Gitpush/internal/service"
)

var (
	pushMessage string
	pushAll     bool
)

var pushCmd = &cobra.Command{
	Use:   "push -m <message> [paths...]",
	Short: "Push selected changes to the remote branch",
	Long: `Push re-reads the remote tree and applies each selected path as its own commit.
A path that is no longer part of the change-set fails with "stale selection".
Remote files that changed since the last refresh are never overwritten.`,
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVarP(&pushMessage, "message", "m", "", "commit message (required)")
	pushCmd.Flags().BoolVarP(&pushAll, "all", "a", false, "push every change in the current change-set")
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) (err error) {
	if pushAll == (len(args) > 0) {
		return errors.New("pass either paths or --all")
	}

	bar := progress.NewCallbackReporter(func(u progress.Update) {
		if u.Type == progress.UpdateFinish {
			fmt.Fprintf(os.Stderr, "\r%s %s", progress.FormatProgress(u.Done, u.Total, 30), u.Path)
			if u.Done == u.Total {
				fmt.Fprintln(os.Stderr)
			}
		}
	})

	svc, err := newService(cmd.Context(),
		service.WithReporter(progress.Multi{progress.NewLogReporter(), bar}))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	selected := repoPaths(args)
	if pushAll {
		cs, err := svc.GetChanges(cmd.Context(), refFlag, true)
		if err != nil {
			return err
		}
		selected = cs.Paths()
		if len(selected) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Nothing to push, %s is up to date\n", cs.Ref)
			return nil
		}
	}

	results, err := svc.ApplySync(cmd.Context(), refFlag, pushMessage, selected)
	if err != nil {
		return err
	}

	return printResults(cmd.OutOrStdout(), results)
}

// printResults lists every outcome and fails when any path failed
func printResults(w io.Writer, results []domain.SyncResult) error {
	for _, r := range results {
		if r.Failed() {
			fmt.Fprintf(w, "%-8s %s: %s\n", r.Outcome, r.Path, r.Detail)
			continue
		}
		fmt.Fprintf(w, "%-8s %s\n", r.Outcome, r.Path)
	}

	summary := domain.Summarize(results)
	fmt.Fprintf(w, "\n%d created, %d updated, %d deleted, %d failed\n",
		summary.Created, summary.Updated, summary.Deleted, summary.Failed)

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d changes failed", summary.Failed, summary.Total())
	}
	return nil
}
