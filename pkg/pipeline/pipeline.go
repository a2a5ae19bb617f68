package pipeline

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/verbatim-cli/verbatim/pkg/diarize"
	vberrors "github.com/verbatim-cli/verbatim/pkg/errors"
	"github.com/verbatim-cli/verbatim/pkg/logging"
	"github.com/verbatim-cli/verbatim/pkg/media"
	"github.com/verbatim-cli/verbatim/pkg/models"
	"github.com/verbatim-cli/verbatim/pkg/transcript"
	"github.com/verbatim-cli/verbatim/pkg/whisper"
)

// Pipeline binds the stage collaborators. One instance processes one
// request at a time to completion; stages never run concurrently within a
// run and each stage's output is fully materialized before the next
// starts.
type Pipeline struct {
	Normalizer *media.Normalizer
	Diarizer   *diarize.Adapter
	Recognizer *whisper.Adapter
	Registry   *models.Registry

	// Sink receives every progress and state-transition event. It is the
	// orchestrator's only coupling to a front end.
	Sink logging.Sink
}

// Result summarizes a completed run.
type Result struct {
	OutputPath   string
	Kind         transcript.OutputKind
	Language     string
	SegmentCount int
	SpeakerCount int
	Fingerprint  string
	Elapsed      time.Duration
}

// Run executes the pipeline for one validated config. Cancellation is
// cooperative: the context is checked at stage boundaries and between
// streamed recognition segments; a cancelled run performs the same scratch
// cleanup as a failed one and never writes a partial output file.
func (p *Pipeline) Run(ctx context.Context, cfg Config) (res *Result, err error) {
	started := time.Now()
	sink := p.Sink
	if sink == nil {
		sink = logging.SinkFunc(func(string, logging.Level) {})
	}

	defer func() {
		if err != nil {
			// One full report before propagating; stages never swallow
			// their own failures.
			sink.Event(fmt.Sprintf("An error occurred: %v", err), logging.LevelError)
		}
	}()

	plan, err := validate(cfg)
	if err != nil {
		return nil, err
	}

	modelPath, err := p.Registry.Resolve(cfg.Model)
	if err != nil {
		return nil, err
	}

	scratch, err := os.MkdirTemp("", "verbatim-"+uuid.NewString()[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("%w: scratch directory: %v", vberrors.ErrValidation, err)
	}
	defer func() {
		os.RemoveAll(scratch)
		sink.Event("Process complete.", logging.LevelInfo)
	}()

	fingerprint, err := Fingerprint(cfg.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: fingerprinting source: %v", vberrors.ErrValidation, err)
	}

	// Converting.
	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	sink.Event("Starting audio conversion...", logging.LevelInfo)
	wavPath := filepath.Join(scratch, "audio.wav")
	clip := media.Clip{StartMS: plan.startMS, StopMS: plan.stopMS}
	if err := p.Normalizer.Normalize(ctx, cfg.AudioPath, wavPath, clip, sink); err != nil {
		return nil, fmt.Errorf("audio conversion: %w", err)
	}
	sink.Event("Audio conversion finished.", logging.LevelInfo)

	// Diarizing (optional).
	var intervals []transcript.DiarizationInterval
	if plan.diarized() {
		if p.Diarizer == nil {
			return nil, fmt.Errorf("%w: speaker identification requested but no diarization engine is configured", vberrors.ErrDiarization)
		}
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		sink.Event("Starting speaker identification...", logging.LevelInfo)
		resultPath := filepath.Join(scratch, "diarize_out.yaml")
		intervals, err = p.Diarizer.Diarize(ctx, wavPath, resultPath, cfg.SpeakerDetection, sink)
		if err != nil {
			return nil, fmt.Errorf("speaker identification: %w", err)
		}
		sink.Event("Speaker identification finished.", logging.LevelInfo)
	}

	// Recognizing.
	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	sink.Event("Starting transcription...", logging.LevelInfo)

	params := whisper.Params{
		ModelPath:    modelPath,
		Language:     plan.lang,
		Device:       cfg.WhisperDevice,
		BeamSize:     cfg.BeamSize,
		Temperature:  cfg.Temperature,
		ComputeType:  cfg.ComputeType,
		Threads:      cfg.Threads,
		VADThreshold: cfg.VADThreshold,
		MinSilenceMS: cfg.MinSilenceMS,
	}
	lang, err := p.Recognizer.ResolveLanguage(ctx, wavPath, params, sink)
	if err != nil {
		return nil, fmt.Errorf("language identification: %w", err)
	}
	params.Language = lang

	if cfg.Disfluencies {
		hints, err := whisper.LoadHints(cfg.HintsPath)
		if err != nil {
			sink.Event("Hint table unavailable, continuing without prompt.", logging.LevelWarn)
		} else {
			params.Hotwords = hints.For(lang)
		}
	}

	segments, err := p.Recognizer.Transcribe(ctx, wavPath, params, sink,
		func(transcript.RecognizedSegment) error { return checkCancel(ctx) })
	if err != nil {
		return nil, fmt.Errorf("transcription: %w", err)
	}

	// Merging.
	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	sink.Event("Processing segments...", logging.LevelInfo)
	attributed := transcript.Merge(segments, intervals, plan.startMS)

	// Assembling.
	opts, overridden := cfg.Format.ForKind(plan.kind)
	if overridden {
		sink.Event("VTT output does not support pause, overlapping, or timestamp options. Disabling them.", logging.LevelInfo)
	}
	doc := transcript.Assemble(cfg.AudioPath, attributed, plan.diarized(), plan.kind, opts)

	// Writing. The output file is created only after the entire document
	// is assembled, so a failed run never leaves a partial transcript.
	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	content, err := transcript.Serialize(doc, plan.kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vberrors.ErrTranscriptionRuntime, err)
	}
	if err := os.WriteFile(cfg.OutputPath, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("%w: writing transcript: %v", vberrors.ErrTranscriptionRuntime, err)
	}

	elapsed := time.Since(started)
	sink.Event("Transcription finished.", logging.LevelInfo)
	sink.Event(fmt.Sprintf("Transcription time: %s", elapsed.Round(time.Second)), logging.LevelHighlight)

	return &Result{
		OutputPath:   cfg.OutputPath,
		Kind:         plan.kind,
		Language:     lang,
		SegmentCount: len(segments),
		SpeakerCount: countSpeakers(attributed),
		Fingerprint:  fingerprint,
		Elapsed:      elapsed,
	}, nil
}

// checkCancel turns a cancelled context into the pipeline's cancellation
// condition.
func checkCancel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", vberrors.ErrCancelled, err)
	}
	return nil
}

// countSpeakers returns the number of distinct non-empty speaker labels.
func countSpeakers(segments []transcript.AttributedSegment) int {
	seen := map[string]struct{}{}
	for _, seg := range segments {
		if seg.Speaker != "" {
			seen[seg.Speaker] = struct{}{}
		}
	}
	return len(seen)
}

// Fingerprint returns a short stable identifier for the source media,
// the first 16 hex digits of its BLAKE2b-256 digest.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil))[:16], nil
}
