package cmd

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/verbatim-cli/verbatim/config"
	"github.com/verbatim-cli/verbatim/pkg/history"
)

// History command flags.
var (
	historyLimit  int
	historySource string
)

// HistoryCommandDeps holds the dependencies for history commands.
type HistoryCommandDeps struct {
	HistoryPath func() (string, error)
}

// DefaultHistoryDeps returns the default dependencies for production use.
func DefaultHistoryDeps() *HistoryCommandDeps {
	return &HistoryCommandDeps{
		HistoryPath: config.HistoryPath,
	}
}

// NewHistoryCommand creates the root history command with all subcommands.
func NewHistoryCommand(deps *HistoryCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultHistoryDeps()
	}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past transcription runs",
		Long: `Inspect past transcription runs.

Every completed run is recorded in ~/.verbatim/history.db with its source
fingerprint, output file, model, language, and timing. The fingerprint
identifies the media content, so earlier transcriptions of a file are found
even after it was moved or renamed.

Examples:
  # The ten most recent runs
  verbatim history list

  # All runs of the same recording
  verbatim history list --source 3f1c9a2b40d8e617

  # Full detail of one run
  verbatim history show 6e9f8a34-...`,
	}

	cmd.AddCommand(newHistoryListCommand(deps))
	cmd.AddCommand(newHistoryShowCommand(deps))

	return cmd
}

// newHistoryListCommand creates the 'history list' subcommand.
func newHistoryListCommand(deps *HistoryCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent transcription runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(deps)
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []history.Entry
			if historySource != "" {
				entries, err = store.ForSource(cmd.Context(), historySource)
			} else {
				entries, err = store.List(cmd.Context(), historyLimit)
			}
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transcription runs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWHEN\tSOURCE\tLANG\tSEGMENTS\tELAPSED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					shortID(e.ID),
					e.CreatedAt.Local().Format(time.DateTime),
					e.SourcePath,
					e.Language,
					e.SegmentCount,
					e.Elapsed.Round(time.Second),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&historyLimit, "limit", "l", 10, "Maximum number of runs to list")
	cmd.Flags().StringVar(&historySource, "source", "", "List runs matching this source fingerprint")

	return cmd
}

// newHistoryShowCommand creates the 'history show' subcommand.
func newHistoryShowCommand(deps *HistoryCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one transcription run in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(deps)
			if err != nil {
				return err
			}
			defer store.Close()

			e, err := store.Get(cmd.Context(), args[0])
			if errors.Is(err, history.ErrNotFound) {
				// The list view shows truncated ids; fall back to a
				// prefix match.
				e, err = findByPrefix(cmd, store, args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:           %s\n", e.ID)
			fmt.Fprintf(out, "When:         %s\n", e.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintf(out, "Source:       %s\n", e.SourcePath)
			fmt.Fprintf(out, "Fingerprint:  %s\n", e.Fingerprint)
			fmt.Fprintf(out, "Output:       %s (%s)\n", e.OutputPath, e.Kind)
			fmt.Fprintf(out, "Model:        %s\n", e.Model)
			fmt.Fprintf(out, "Language:     %s\n", e.Language)
			fmt.Fprintf(out, "Speakers:     %s (%d found)\n", e.SpeakerMode, e.SpeakerCount)
			fmt.Fprintf(out, "Segments:     %d\n", e.SegmentCount)
			fmt.Fprintf(out, "Elapsed:      %s\n", e.Elapsed.Round(time.Second))
			return nil
		},
	}
}

// findByPrefix resolves a truncated run id to its entry. An ambiguous
// prefix is an error.
func findByPrefix(cmd *cobra.Command, store *history.Store, prefix string) (history.Entry, error) {
	all, err := store.List(cmd.Context(), 0)
	if err != nil {
		return history.Entry{}, err
	}
	var matches []history.Entry
	for _, e := range all {
		if strings.HasPrefix(e.ID, prefix) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return history.Entry{}, fmt.Errorf("%w: %s", history.ErrNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return history.Entry{}, fmt.Errorf("run id prefix %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

func openHistory(deps *HistoryCommandDeps) (*history.Store, error) {
	path, err := deps.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

// shortID truncates a run id for table output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
