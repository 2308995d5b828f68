package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the token and that the configured branch can be listed",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) (err error) {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	info, err := svc.CheckConnection(cmd.Context())
	if err != nil {
		return fmt.Errorf("connection to %s failed: %w", info.Store, err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Connected to %s\n", info.Store)
	if info.FullName != "" {
		visibility := "public"
		if info.Private {
			visibility = "private"
		}
		fmt.Fprintf(w, "Repository %s (%s, default branch %s)\n", info.FullName, visibility, info.DefaultBranch)
	}
	fmt.Fprintf(w, "Branch %s lists %d entries\n", info.Ref, info.Entries)
	if info.Truncated {
		fmt.Fprintln(w, "warning: the tree listing was truncated")
	}
	return nil
}
