package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ning0612/Gitpush/internal/domain"
)

var historyCmd = &cobra.Command{
	Use:   "history <path>",
	Short: "List the remote commits that touched a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) (err error) {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	commits, err := svc.GetHistory(cmd.Context(), refFlag, repoPaths(args)[0])
	if err != nil {
		return err
	}

	printCommits(cmd.OutOrStdout(), commits)
	return nil
}

func printCommits(w io.Writer, commits []domain.CommitSummary) {
	if len(commits) == 0 {
		fmt.Fprintln(w, "No commits found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range commits {
		sha := c.SHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		date := ""
		if !c.Date.IsZero() {
			date = c.Date.Local().Format("2006-01-02 15:04")
		}
		// First line of the message only
		subject, _, _ := strings.Cut(c.Message, "\n")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", sha, date, c.Author, subject)
	}
	tw.Flush()
}
