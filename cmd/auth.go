package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verbatim-cli/verbatim/credentials"
)

// AuthCommandDeps holds the dependencies for auth commands.
type AuthCommandDeps struct {
	Store    func() (*credentials.Store, error)
	ReadLine func() (string, error)
}

// DefaultAuthDeps returns the default dependencies for production use.
func DefaultAuthDeps() *AuthCommandDeps {
	return &AuthCommandDeps{
		Store: credentials.NewStore,
	}
}

// NewAuthCommand creates the root auth command with all subcommands.
func NewAuthCommand(deps *AuthCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultAuthDeps()
	}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Hugging Face access token for speaker identification",
		Long: `Manage the Hugging Face access token for speaker identification.

The diarization models are gated on Hugging Face; a read access token is
required to download them. The token is stored in the system keyring
(macOS Keychain, Windows Credential Manager, or Linux Secret Service).

For CI and headless machines, set VERBATIM_HF_TOKEN instead; it takes
precedence over the keyring.

Examples:
  verbatim auth set-token
  verbatim auth status
  verbatim auth clear`,
	}

	cmd.AddCommand(newAuthSetTokenCommand(deps))
	cmd.AddCommand(newAuthStatusCommand(deps))
	cmd.AddCommand(newAuthClearCommand(deps))

	return cmd
}

// newAuthSetTokenCommand creates the 'auth set-token' subcommand.
func newAuthSetTokenCommand(deps *AuthCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "set-token",
		Short: "Store a Hugging Face access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.Store()
			if err != nil {
				return err
			}

			token, err := readToken(cmd, deps)
			if err != nil {
				return err
			}

			if err := store.Set(token); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Token %s stored in %s.\n",
				credentials.MaskToken(strings.TrimSpace(token)), store.Source())
			return nil
		},
	}
}

// newAuthStatusCommand creates the 'auth status' subcommand.
func newAuthStatusCommand(deps *AuthCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether an access token is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.Store()
			if err != nil {
				return err
			}

			token, err := store.Get()
			if errors.Is(err, credentials.ErrNoToken) {
				fmt.Fprintln(cmd.OutOrStdout(), "No access token stored. Run 'verbatim auth set-token'.")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Token %s available from %s.\n",
				credentials.MaskToken(token), store.Source())
			return nil
		},
	}
}

// newAuthClearCommand creates the 'auth clear' subcommand.
func newAuthClearCommand(deps *AuthCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.Store()
			if err != nil {
				return err
			}
			if err := store.Delete(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Access token removed.")
			return nil
		},
	}
}

// readToken prompts for the token. On a terminal the input is hidden;
// otherwise (pipes, tests) a plain line is read.
func readToken(cmd *cobra.Command, deps *AuthCommandDeps) (string, error) {
	if deps.ReadLine != nil {
		return deps.ReadLine()
	}

	fmt.Fprint(cmd.OutOrStdout(), "Hugging Face access token: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return string(raw), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
