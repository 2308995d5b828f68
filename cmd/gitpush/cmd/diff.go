package cmd

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/Ning0612/Gitpush/internal/domain"
)

var diffCmd = &cobra.Command{
	Use:   "diff <path>",
	Short: "Show the line diff between the remote and local copy of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) (err error) {
	svc, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	fd, err := svc.GetFileDiff(cmd.Context(), refFlag, repoPaths(args)[0])
	if err != nil {
		return err
	}

	printFileDiff(cmd.OutOrStdout(), fd)
	return nil
}

func printFileDiff(w io.Writer, fd *domain.FileDiff) {
	fmt.Fprintf(w, "%s: %s\n", fd.Path, fd.Status)

	switch {
	case fd.Status == domain.StatusUnchanged:
		return
	case !utf8.Valid(fd.Local) || !utf8.Valid(fd.Remote):
		fmt.Fprintf(w, "binary file, %d bytes local, %d bytes remote\n", len(fd.Local), len(fd.Remote))
		return
	}

	remoteName, localName := "remote/"+fd.Path, "local/"+fd.Path
	if !fd.RemoteExists {
		remoteName = "/dev/null"
	}
	if !fd.LocalExists {
		localName = "/dev/null"
	}
	fmt.Fprintf(w, "--- %s\n+++ %s\n", remoteName, localName)
	fmt.Fprint(w, lineDiff(string(fd.Remote), string(fd.Local)))
}

// lineDiff renders a line-level diff from a to b with -, + and space markers.
// Lines differing only in their line ending are shown as changed.
func lineDiff(a, b string) string {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		marker := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			marker = "+"
		case diffmatchpatch.DiffDelete:
			marker = "-"
		}
		for _, line := range splitLines(d.Text) {
			sb.WriteString(marker)
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// splitLines keeps each line's terminator and ends an unterminated
// last line with a marker
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if last := lines[len(lines)-1]; !strings.HasSuffix(last, "\n") {
		lines[len(lines)-1] = last + "\n\\ No newline at end of file\n"
	}
	return lines
}
