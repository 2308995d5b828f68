package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Gitpush/internal/domain"
)

var statusRefresh bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List local changes not yet on the remote branch",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusRefresh, "refresh", "r", false, "ignore the cached remote manifest")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) (err error) {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	cs, err := svc.GetChanges(cmd.Context(), refFlag, statusRefresh)
	if err != nil {
		return err
	}

	printChangeSet(cmd.OutOrStdout(), cs)
	return nil
}

func printChangeSet(w io.Writer, cs *domain.ChangeSet) {
	if cs.Truncated {
		fmt.Fprintf(w, "warning: the remote tree for %s was truncated, deletions may be missing\n", cs.Ref)
	}

	if len(cs.Changes) == 0 {
		fmt.Fprintf(w, "Up to date with %s (%d unchanged)\n", cs.Ref, cs.Unchanged)
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, c := range cs.Changes {
			note := ""
			if c.OverSubmodule {
				note = " (submodule on remote, cannot push)"
			}
			fmt.Fprintf(tw, "%s\t%s%s\n", c.Status, c.Path, note)
		}
		tw.Flush()

		fmt.Fprintf(w, "\n%d new, %d modified, %d deleted, %d unchanged on %s\n",
			cs.Count(domain.StatusNew), cs.Count(domain.StatusModified), cs.Count(domain.StatusDeleted), cs.Unchanged, cs.Ref)
	}

	for _, p := range cs.Skipped {
		fmt.Fprintf(w, "skipped (unreadable): %s\n", p)
	}
}
