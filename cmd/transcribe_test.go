// Package cmd provides CLI commands for the verbatim tool.
package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbatim-cli/verbatim/config"
)

func resetTranscribeFlags() {
	transcribeOutput = ""
	transcribeLanguage = ""
	transcribeModel = ""
	transcribeSpeakers = ""
	transcribeStart = ""
	transcribeStop = ""
	transcribePause = -1
	transcribeTimestamps = false
	transcribeOverlap = false
	transcribeDisfluency = false
}

// TestNewTranscribeCommand verifies the transcribe command structure.
func TestNewTranscribeCommand(t *testing.T) {
	cmd := NewTranscribeCommand(DefaultTranscribeDeps())

	assert.Equal(t, "transcribe", cmd.Use[:10], "command name should be transcribe")
	assert.NotEmpty(t, cmd.Short, "command should have short description")
	assert.NotEmpty(t, cmd.Long, "command should have long description")

	for _, name := range []string{"output", "language", "model", "speakers", "start", "stop", "pause", "timestamps", "overlap", "disfluencies"} {
		require.NotNil(t, cmd.Flags().Lookup(name), "%s flag should exist", name)
	}

	tsFlag := cmd.Flags().Lookup("timestamps")
	require.NotNil(t, tsFlag, "timestamps flag should exist")
	assert.Contains(t, tsFlag.Usage, "interval", "timestamps help should describe interval-based markers")

	outputShortFlag := cmd.Flags().ShorthandLookup("o")
	require.NotNil(t, outputShortFlag, "output flag should have shorthand -o")
	langShortFlag := cmd.Flags().ShorthandLookup("l")
	require.NotNil(t, langShortFlag, "language flag should have shorthand -l")
}

// TestTranscribeCommand_RequiresAudioFile verifies the positional argument.
func TestTranscribeCommand_RequiresAudioFile(t *testing.T) {
	cmd := NewTranscribeCommand(DefaultTranscribeDeps())
	cmd.SetArgs([]string{})
	err := cmd.Execute()
	assert.Error(t, err, "transcribe should require an audio file argument")
}

// TestBuildPipelineConfig_Defaults verifies config-file defaults flow into
// the pipeline config.
func TestBuildPipelineConfig_Defaults(t *testing.T) {
	resetTranscribeFlags()
	cfg := config.DefaultConfig()
	cfg.Language = "de"
	cfg.Model = "precise"
	cfg.Engine.MinSilence = 2 * time.Second

	pc, err := buildPipelineConfig(cfg, "/media/talk.mp4")
	require.NoError(t, err)

	assert.Equal(t, "/media/talk.mp4", pc.AudioPath)
	assert.Equal(t, filepath.FromSlash("/media/talk.html"), filepath.FromSlash(pc.OutputPath),
		"default output should be the source name with .html")
	assert.Equal(t, "de", pc.Language)
	assert.Equal(t, "precise", pc.Model)
	assert.Equal(t, 2000, pc.MinSilenceMS)
	assert.Equal(t, cfg.Formatting.PauseSeconds, pc.Format.PauseThresholdSec)
}

// TestBuildPipelineConfig_FlagsWin verifies flags override config values.
func TestBuildPipelineConfig_FlagsWin(t *testing.T) {
	resetTranscribeFlags()
	transcribeLanguage = "fr"
	transcribeOutput = "/tmp/out.vtt"
	transcribeSpeakers = "2"
	transcribePause = 0
	transcribeTimestamps = true
	defer resetTranscribeFlags()

	cfg := config.DefaultConfig()
	cfg.Language = "de"

	pc, err := buildPipelineConfig(cfg, "/media/talk.mp4")
	require.NoError(t, err)

	assert.Equal(t, "fr", pc.Language, "flag should override config language")
	assert.Equal(t, "/tmp/out.vtt", pc.OutputPath)
	assert.Equal(t, "2", pc.SpeakerDetection)
	assert.Equal(t, 0, pc.Format.PauseThresholdSec, "--pause 0 should disable pause marking")
	assert.True(t, pc.Format.Timestamps)
}

// TestBuildPipeline_RequiresWhisperHelper verifies the configuration check.
func TestBuildPipeline_RequiresWhisperHelper(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Paths.Whisper = ""

	_, err := buildPipeline(cfg, DefaultTranscribeDeps())
	assert.Error(t, err, "missing whisper helper should be rejected")
}

// TestBuildPipeline_WiresEngines verifies the adapters are constructed.
func TestBuildPipeline_WiresEngines(t *testing.T) {
	t.Setenv("VERBATIM_CONFIG_DIR", t.TempDir())

	cfg := config.DefaultConfig()
	cfg.Paths.Whisper = "whisper-helper --quiet"
	cfg.Paths.Diarize = "diarize-helper"
	cfg.Paths.FFmpeg = "/usr/bin/ffmpeg"

	deps := DefaultTranscribeDeps()
	deps.TokenStore = nil

	pipe, err := buildPipeline(cfg, deps)
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/ffmpeg", pipe.Normalizer.FFmpegPath)
	assert.Equal(t, []string{"whisper-helper", "--quiet"}, pipe.Recognizer.Command)
	require.NotNil(t, pipe.Diarizer)
	assert.Equal(t, []string{"diarize-helper"}, pipe.Diarizer.Command)
	assert.NotNil(t, pipe.Registry)
	assert.NotNil(t, pipe.Sink)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("a", "b"))
	assert.Equal(t, "b", firstNonEmpty("", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
