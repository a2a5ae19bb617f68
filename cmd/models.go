package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/verbatim-cli/verbatim/config"
	"github.com/verbatim-cli/verbatim/pkg/models"
)

// ModelsCommandDeps holds the dependencies for the models command.
type ModelsCommandDeps struct {
	Registry *models.Registry
}

// DefaultModelsDeps returns the default dependencies for production use.
func DefaultModelsDeps() *ModelsCommandDeps {
	appDir, err := os.Executable()
	if err != nil {
		appDir = "."
	} else {
		appDir = filepath.Dir(appDir)
	}
	userDir, err := config.ConfigDir()
	if err != nil {
		userDir = "."
	}
	return &ModelsCommandDeps{
		Registry: models.NewRegistry(appDir, userDir),
	}
}

// NewModelsCommand creates the models command.
func NewModelsCommand(deps *ModelsCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultModelsDeps()
	}

	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the locally installed whisper models",
		Long: `Manage the locally installed whisper models.

Models are looked up in two places, in order:
  1. The models/ directory next to the verbatim binary
  2. ~/.verbatim/whisper_models/

Each model is a directory; its name is the identifier passed to
'verbatim transcribe --model'. A user model with the same name as a
bundled one is shadowed by the bundled copy.`,
		// Bare 'verbatim models' behaves like 'models list'.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModelsList(cmd, deps)
		},
	}

	cmd.AddCommand(newModelsListCommand(deps))

	return cmd
}

// newModelsListCommand creates the 'models list' subcommand.
func newModelsListCommand(deps *ModelsCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the locally installed whisper models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModelsList(cmd, deps)
		},
	}
}

func runModelsList(cmd *cobra.Command, deps *ModelsCommandDeps) error {
	available, shadowed := deps.Registry.List()

	if len(available) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No whisper models installed.")
		fmt.Fprintln(cmd.OutOrStdout(), "Place model directories under ~/.verbatim/whisper_models/")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPATH")
	for _, m := range available {
		fmt.Fprintf(w, "%s\t%s\n", m.Name, m.Path)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, name := range shadowed {
		fmt.Fprintf(cmd.OutOrStdout(), "Note: user model %q is shadowed by a bundled model of the same name.\n", name)
	}

	return nil
}
