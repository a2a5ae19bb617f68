// Package pipeline orchestrates the transcription run: validation, audio
// normalization, diarization, recognition, merging, document assembly, and
// serialization, with cleanup guaranteed on every exit path.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	vberrors "github.com/verbatim-cli/verbatim/pkg/errors"
	"github.com/verbatim-cli/verbatim/pkg/timefmt"
	"github.com/verbatim-cli/verbatim/pkg/transcript"
	"github.com/verbatim-cli/verbatim/pkg/whisper"
)

// Speaker detection modes. Any positive integer in string form is also
// accepted and fixes the expected speaker count.
const (
	SpeakersNone = "none"
	SpeakersAuto = "auto"
)

// Config is the immutable input bundle for one pipeline run. It is
// validated once at pipeline entry and never mutated afterwards.
type Config struct {
	// AudioPath is the source media file.
	AudioPath string

	// OutputPath is the transcript destination; its extension selects the
	// output kind (.html, .txt, .vtt).
	OutputPath string

	// Language is "auto" or an explicit language code.
	Language string

	// Model is the whisper model identifier to resolve locally.
	Model string

	// SpeakerDetection is "none", "auto", or a fixed speaker count.
	SpeakerDetection string

	// StartTime and StopTime clip the source media; HH:MM:SS[.mmm] forms,
	// empty means unclipped.
	StartTime string
	StopTime  string

	// Format carries the user-selected formatting options.
	Format transcript.FormatOptions

	// Disfluencies keeps filler words; it also gates the vocabulary hint.
	Disfluencies bool

	// HintsPath is the per-language vocabulary hint table.
	HintsPath string

	// Engine tuning.
	BeamSize     int
	Temperature  float64
	ComputeType  string
	Threads      int
	VADThreshold float64
	MinSilenceMS int

	// WhisperDevice selects the recognition accelerator. The diarization
	// device is carried by the diarize adapter itself.
	WhisperDevice string
}

// plan is the validated, derived form of a Config.
type plan struct {
	cfg     Config
	kind    transcript.OutputKind
	startMS int64
	stopMS  int64
	lang    string
}

// validate checks the config and derives the run plan. All failures here
// are validation errors; the pipeline never starts on an invalid config.
func validate(cfg Config) (*plan, error) {
	if cfg.AudioPath == "" {
		return nil, fmt.Errorf("%w: audio file not provided", vberrors.ErrValidation)
	}
	if _, err := os.Stat(cfg.AudioPath); err != nil {
		return nil, fmt.Errorf("%w: audio file: %v", vberrors.ErrValidation, err)
	}
	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("%w: transcript file not provided", vberrors.ErrValidation)
	}
	if dir := filepath.Dir(cfg.OutputPath); dir != "" {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: output directory %q not writable", vberrors.ErrValidation, dir)
		}
	}

	kind, err := transcript.KindForPath(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vberrors.ErrValidation, err)
	}

	p := &plan{cfg: cfg, kind: kind}

	if cfg.StartTime != "" {
		if p.startMS, err = timefmt.Parse(cfg.StartTime); err != nil {
			return nil, fmt.Errorf("%w: start time: %v", vberrors.ErrValidation, err)
		}
	}
	if cfg.StopTime != "" {
		if p.stopMS, err = timefmt.Parse(cfg.StopTime); err != nil {
			return nil, fmt.Errorf("%w: stop time: %v", vberrors.ErrValidation, err)
		}
		if p.stopMS <= p.startMS {
			return nil, fmt.Errorf("%w: stop time %s is not after start time", vberrors.ErrValidation, cfg.StopTime)
		}
	}

	switch cfg.SpeakerDetection {
	case "", SpeakersNone, SpeakersAuto:
	default:
		n, err := strconv.Atoi(cfg.SpeakerDetection)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: speaker detection mode %q", vberrors.ErrValidation, cfg.SpeakerDetection)
		}
	}

	if p.lang, err = whisper.NormalizeLanguage(cfg.Language); err != nil {
		return nil, fmt.Errorf("%w: %v", vberrors.ErrValidation, err)
	}

	return p, nil
}

// diarized reports whether the run includes the diarization stage.
func (p *plan) diarized() bool {
	mode := p.cfg.SpeakerDetection
	return mode != "" && mode != SpeakersNone
}
