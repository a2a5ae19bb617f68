// Package main provides the verbatim CLI entry point.
// verbatim turns audio and video recordings into speaker-attributed
// transcripts using local speech recognition models.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verbatim-cli/verbatim/cmd"
	"github.com/verbatim-cli/verbatim/config"
	"github.com/verbatim-cli/verbatim/pkg/buildinfo"
	"github.com/verbatim-cli/verbatim/pkg/logging"
)

// Global flags and state.
var (
	cfgFile string
	debug   bool

	// cfg holds the loaded configuration.
	cfg *config.CLIConfig

	// logger is the shared structured logger.
	logger logging.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "verbatim",
	Short: "Local audio and video transcription with speaker attribution",
	Long: `verbatim transcribes audio and video recordings into speaker-attributed
transcripts. Everything runs locally: speech recognition uses on-device
whisper models and speaker identification never sends audio anywhere.

Output formats are selected by the transcript file extension:
  .html    rich text with per-segment timestamp anchors
  .txt     plain text paragraphs
  .vtt     WebVTT subtitles with voice tags

COMMON WORKFLOWS:
  Transcribe:       verbatim transcribe interview.mp4
  With subtitles:   verbatim transcribe -o interview.vtt interview.mp4
  List models:      verbatim models
  Past runs:        verbatim history list
  Diarization auth: verbatim auth set-token`,
	Version:       buildinfo.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		var loaded *config.CLIConfig
		var err error
		if cfgFile != "" {
			loaded, err = config.LoadConfigFile(cfgFile)
		} else {
			loaded, err = config.LoadConfig()
		}
		if err != nil {
			return err
		}
		cfg = loaded

		level := logging.LevelInfo
		if debug || cfg.Debug {
			level = logging.LevelDebug
		}
		logger = logging.NewLogger(&logging.Config{
			Level:       level,
			ServiceName: "verbatim",
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.verbatim/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	transcribeDeps := cmd.DefaultTranscribeDeps()
	transcribeDeps.LoadConfig = func() (*config.CLIConfig, error) {
		if cfg != nil {
			return cfg, nil
		}
		return config.LoadConfig()
	}
	transcribeDeps.Logger = loggerProxy{}

	rootCmd.AddCommand(cmd.NewTranscribeCommand(transcribeDeps))
	rootCmd.AddCommand(cmd.NewModelsCommand(nil))
	rootCmd.AddCommand(cmd.NewHistoryCommand(nil))
	rootCmd.AddCommand(cmd.NewAuthCommand(nil))
	rootCmd.AddCommand(cmd.NewVersionCommand())
}

// loggerProxy defers to the logger built in PersistentPreRunE, which runs
// after command wiring.
type loggerProxy struct{}

func (loggerProxy) Debug(msg string, fields ...logging.Field)     { logger.Debug(msg, fields...) }
func (loggerProxy) Info(msg string, fields ...logging.Field)      { logger.Info(msg, fields...) }
func (loggerProxy) Warn(msg string, fields ...logging.Field)      { logger.Warn(msg, fields...) }
func (loggerProxy) Error(msg string, fields ...logging.Field)     { logger.Error(msg, fields...) }
func (loggerProxy) Highlight(msg string, fields ...logging.Field) { logger.Highlight(msg, fields...) }
func (loggerProxy) With(fields ...logging.Field) logging.Logger   { return logger.With(fields...) }
func (loggerProxy) Zerolog() zerolog.Logger                       { return logger.Zerolog() }

func main() {
	// Interrupts cancel the context; the pipeline notices between stages
	// and cleans up its scratch space before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "Interrupted.")
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
