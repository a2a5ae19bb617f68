// Package cmd provides CLI commands for the verbatim tool.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verbatim-cli/verbatim/config"
	"github.com/verbatim-cli/verbatim/credentials"
	"github.com/verbatim-cli/verbatim/pkg/diarize"
	"github.com/verbatim-cli/verbatim/pkg/history"
	"github.com/verbatim-cli/verbatim/pkg/logging"
	"github.com/verbatim-cli/verbatim/pkg/media"
	"github.com/verbatim-cli/verbatim/pkg/models"
	"github.com/verbatim-cli/verbatim/pkg/pipeline"
	"github.com/verbatim-cli/verbatim/pkg/whisper"
)

// Transcribe command flags.
var (
	transcribeOutput     string
	transcribeLanguage   string
	transcribeModel      string
	transcribeSpeakers   string
	transcribeStart      string
	transcribeStop       string
	transcribePause      int
	transcribeTimestamps bool
	transcribeOverlap    bool
	transcribeDisfluency bool
)

// TranscribeCommandDeps holds the dependencies for the transcribe command.
type TranscribeCommandDeps struct {
	Config      *config.CLIConfig
	LoadConfig  func() (*config.CLIConfig, error)
	HistoryPath func() (string, error)
	TokenStore  func() (*credentials.Store, error)
	Logger      logging.Logger
}

// DefaultTranscribeDeps returns the default dependencies for production use.
func DefaultTranscribeDeps() *TranscribeCommandDeps {
	return &TranscribeCommandDeps{
		LoadConfig:  config.LoadConfig,
		HistoryPath: config.HistoryPath,
		TokenStore:  credentials.NewStore,
	}
}

// NewTranscribeCommand creates the transcribe command.
func NewTranscribeCommand(deps *TranscribeCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultTranscribeDeps()
	}

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio or video file to a speaker-attributed transcript",
		Long: `Transcribe an audio or video file to a speaker-attributed transcript.

The source is converted with ffmpeg, speakers are identified, and speech is
recognized with a local whisper model. The output extension selects the
format: .html (rich text with timestamp anchors), .txt (plain text), or
.vtt (WebVTT subtitles).

Examples:
  # Transcribe with defaults, output next to the source
  verbatim transcribe interview.mp4

  # German interview with two speakers, clipped to the first ten minutes
  verbatim transcribe -l de -s 2 --stop 00:10:00 interview.mp4

  # Subtitles
  verbatim transcribe -o interview.vtt interview.mp4

  # Inline timestamps and pause markers in rich output
  verbatim transcribe --timestamps --pause 2 interview.mp4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, deps, args[0])
		},
	}

	cmd.Flags().StringVarP(&transcribeOutput, "output", "o", "", "Transcript file (.html, .txt, or .vtt); defaults to the source name with .html")
	cmd.Flags().StringVarP(&transcribeLanguage, "language", "l", "", "Transcription language code, or auto")
	cmd.Flags().StringVarP(&transcribeModel, "model", "m", "", "Whisper model name (see 'verbatim models')")
	cmd.Flags().StringVarP(&transcribeSpeakers, "speakers", "s", "", "Speaker detection: none, auto, or an expected count")
	cmd.Flags().StringVar(&transcribeStart, "start", "", "Transcribe from this position (HH:MM:SS)")
	cmd.Flags().StringVar(&transcribeStop, "stop", "", "Transcribe up to this position (HH:MM:SS)")
	cmd.Flags().IntVar(&transcribePause, "pause", -1, "Mark silences of at least this many seconds; 0 disables")
	cmd.Flags().BoolVar(&transcribeTimestamps, "timestamps", false, "Insert inline timestamps at the configured interval")
	cmd.Flags().BoolVar(&transcribeOverlap, "overlap", false, "Mark overlapping speech")
	cmd.Flags().BoolVar(&transcribeDisfluency, "disfluencies", false, "Keep filler words")

	return cmd
}

func runTranscribe(cmd *cobra.Command, deps *TranscribeCommandDeps, audioPath string) error {
	cfg := deps.Config
	if cfg == nil {
		loaded, err := deps.LoadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
	}

	pipeCfg, err := buildPipelineConfig(cfg, audioPath)
	if err != nil {
		return err
	}

	pipe, err := buildPipeline(cfg, deps)
	if err != nil {
		return err
	}

	res, err := pipe.Run(cmd.Context(), pipeCfg)
	if err != nil {
		return err
	}

	recordRun(cmd, deps, pipeCfg, res)

	fmt.Fprintf(cmd.OutOrStdout(), "Transcript written to %s\n", res.OutputPath)
	return nil
}

// buildPipelineConfig merges config file defaults with command flags.
func buildPipelineConfig(cfg *config.CLIConfig, audioPath string) (pipeline.Config, error) {
	out := transcribeOutput
	if out == "" {
		base := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
		out = base + ".html"
	}

	pc := pipeline.Config{
		AudioPath:        audioPath,
		OutputPath:       out,
		Language:         firstNonEmpty(transcribeLanguage, cfg.Language),
		Model:            firstNonEmpty(transcribeModel, cfg.Model),
		SpeakerDetection: firstNonEmpty(transcribeSpeakers, cfg.SpeakerDetection),
		StartTime:        transcribeStart,
		StopTime:         transcribeStop,
		Disfluencies:     transcribeDisfluency || cfg.Formatting.Disfluencies,
		HintsPath:        cfg.Paths.Hints,
		BeamSize:         cfg.Engine.BeamSize,
		Temperature:      cfg.Engine.Temperature,
		ComputeType:      cfg.Engine.ComputeType,
		Threads:          cfg.Engine.Threads,
		VADThreshold:     cfg.Engine.VADThreshold,
		MinSilenceMS:     int(cfg.Engine.MinSilence.Milliseconds()),
		WhisperDevice:    cfg.Devices.Whisper,
	}

	pause := cfg.Formatting.PauseSeconds
	if transcribePause >= 0 {
		pause = transcribePause
	}
	pc.Format.PauseThresholdSec = pause
	pc.Format.PauseMarker = cfg.Formatting.PauseMarker
	pc.Format.Timestamps = transcribeTimestamps || cfg.Formatting.Timestamps
	pc.Format.TimestampIntervalMS = cfg.Formatting.TimestampInterval.Milliseconds()
	pc.Format.TimestampColor = cfg.Formatting.TimestampColor
	pc.Format.Overlap = transcribeOverlap || cfg.Formatting.Overlap

	return pc, nil
}

// buildPipeline wires the external engines from the configuration.
func buildPipeline(cfg *config.CLIConfig, deps *TranscribeCommandDeps) (*pipeline.Pipeline, error) {
	if cfg.Paths.Whisper == "" {
		return nil, errors.New("no whisper helper configured; set paths.whisper in the config file")
	}

	appDir, err := os.Executable()
	if err != nil {
		appDir = "."
	} else {
		appDir = filepath.Dir(appDir)
	}
	userDir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}

	token := ""
	if deps.TokenStore != nil {
		if store, err := deps.TokenStore(); err == nil {
			token, _ = store.Get()
		}
	}

	var diarizer *diarize.Adapter
	if cfg.Paths.Diarize != "" {
		diarizer = &diarize.Adapter{
			Command: strings.Fields(cfg.Paths.Diarize),
			Device:  cfg.Devices.Diarize,
			Token:   token,
		}
	}

	var sink logging.Sink = logging.SinkFunc(func(string, logging.Level) {})
	if deps.Logger != nil {
		sink = logging.LoggerSink(deps.Logger)
	}

	return &pipeline.Pipeline{
		Normalizer: &media.Normalizer{FFmpegPath: cfg.Paths.FFmpeg},
		Diarizer:   diarizer,
		Recognizer: &whisper.Adapter{Command: strings.Fields(cfg.Paths.Whisper)},
		Registry:   models.NewRegistry(appDir, userDir),
		Sink:       sink,
	}, nil
}

// recordRun appends the finished run to the local history. History is best
// effort; a failure only warns.
func recordRun(cmd *cobra.Command, deps *TranscribeCommandDeps, pc pipeline.Config, res *pipeline.Result) {
	if deps.HistoryPath == nil {
		return
	}
	path, err := deps.HistoryPath()
	if err != nil {
		return
	}
	store, err := history.Open(path)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not open run history: %v\n", err)
		return
	}
	defer store.Close()

	_, err = store.Record(cmd.Context(), history.Entry{
		SourcePath:   pc.AudioPath,
		Fingerprint:  res.Fingerprint,
		OutputPath:   res.OutputPath,
		Kind:         string(res.Kind),
		Model:        pc.Model,
		Language:     res.Language,
		SpeakerMode:  pc.SpeakerDetection,
		SegmentCount: res.SegmentCount,
		SpeakerCount: res.SpeakerCount,
		Elapsed:      res.Elapsed.Round(time.Millisecond),
	})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not record run history: %v\n", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
