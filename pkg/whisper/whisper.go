// Package whisper adapts the external speech recognition engine. The
// engine runs as a helper process: timed segments arrive as NDJSON records
// on stdout in strictly increasing time order, progress text on stderr.
package whisper

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	vberrors "github.com/verbatim-cli/verbatim/pkg/errors"
	"github.com/verbatim-cli/verbatim/pkg/logging"
	"github.com/verbatim-cli/verbatim/pkg/transcript"
)

// Params bundles the engine invocation parameters.
type Params struct {
	// ModelPath is the resolved local model directory.
	ModelPath string

	// Language is the target language code; "auto" triggers a dedicated
	// identification pass before recognition.
	Language string

	// Device is the accelerator selection (cpu, cuda, mps).
	Device string

	BeamSize    int
	Temperature float64

	// ComputeType is the numeric compute-precision hint (default, int8,
	// float16, ...), forwarded to the engine verbatim.
	ComputeType string

	// Threads is the engine worker thread count.
	Threads int

	// VADThreshold is the voice activity detection threshold (0..1).
	VADThreshold float64

	// MinSilenceMS is the minimum silence gap the VAD pre-filter removes.
	MinSilenceMS int

	// Hotwords biases engine vocabulary; empty means no hint is passed.
	Hotwords string
}

// Adapter invokes the recognition helper process.
type Adapter struct {
	// Command is the helper argv prefix, e.g. ["verbatim-whisper"].
	Command []string
}

// segmentRecord is one NDJSON line from the helper, times in seconds.
// Decimal parsing avoids float drift when rescaling to milliseconds.
type segmentRecord struct {
	Start decimal.Decimal `json:"start"`
	End   decimal.Decimal `json:"end"`
	Text  string          `json:"text"`
}

// detectionRecord is the language identification result.
type detectionRecord struct {
	Language    string  `json:"language"`
	Probability float64 `json:"probability"`
}

// ResolveLanguage returns the language code recognition should run with.
// For explicit selections it is the identity; for "auto" it runs the
// identification pass, reporting the detection as a log event and falling
// back to English with a warning when identification fails.
func (a *Adapter) ResolveLanguage(ctx context.Context, wavPath string, p Params, sink logging.Sink) (string, error) {
	if p.Language != "" && p.Language != "auto" {
		return p.Language, nil
	}

	detected, prob, err := a.detectLanguage(ctx, wavPath, p, sink)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: language detection aborted", vberrors.ErrCancelled)
		}
		sink.Event("Language detection failed, defaulting to English.", logging.LevelWarn)
		return "en", nil
	}
	sink.Event(fmt.Sprintf("Detected language: %s with probability %.2f", detected, prob), logging.LevelInfo)
	return detected, nil
}

func (a *Adapter) detectLanguage(ctx context.Context, wavPath string, p Params, sink logging.Sink) (string, float64, error) {
	out, err := a.run(ctx, wavPath, p, "detect-language", sink, nil)
	if err != nil {
		return "", 0, err
	}
	var det detectionRecord
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &det); err != nil || det.Language == "" {
		return "", 0, fmt.Errorf("%w: unintelligible detection result", vberrors.ErrTranscriptionRuntime)
	}
	return det.Language, det.Probability, nil
}

// Transcribe runs the main recognition pass over the normalized waveform.
// Segments stream in temporal order; onSegment is called once per record
// and may return an error to abort between iteration steps (the
// cancellation check point while the engine is still producing).
func (a *Adapter) Transcribe(ctx context.Context, wavPath string, p Params, sink logging.Sink, onSegment func(transcript.RecognizedSegment) error) ([]transcript.RecognizedSegment, error) {
	var segments []transcript.RecognizedSegment
	collect := func(line string) error {
		var rec segmentRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return fmt.Errorf("%w: malformed segment record: %v", vberrors.ErrTranscriptionRuntime, err)
		}
		seg := transcript.RecognizedSegment{
			Range: transcript.TimeRange{
				StartMS: rec.Start.Mul(decimal.NewFromInt(1000)).IntPart(),
				EndMS:   rec.End.Mul(decimal.NewFromInt(1000)).IntPart(),
			},
			Text: strings.TrimRight(rec.Text, " "),
		}
		segments = append(segments, seg)
		if onSegment != nil {
			return onSegment(seg)
		}
		return nil
	}

	if _, err := a.run(ctx, wavPath, p, "transcribe", sink, collect); err != nil {
		return nil, err
	}
	return segments, nil
}

// run invokes the helper. For the transcribe task each stdout line goes
// through onLine; otherwise stdout is returned whole. stderr is relayed to
// the sink either way.
func (a *Adapter) run(ctx context.Context, wavPath string, p Params, task string, sink logging.Sink, onLine func(string) error) (string, error) {
	if len(a.Command) == 0 {
		return "", fmt.Errorf("%w: no recognition command configured", vberrors.ErrRecognition)
	}

	args := append([]string{}, a.Command[1:]...)
	args = append(args,
		"--task", task,
		"--model", p.ModelPath,
		"--device", nonEmpty(p.Device, "cpu"),
		"--beam-size", strconv.Itoa(p.BeamSize),
		"--temperature", strconv.FormatFloat(p.Temperature, 'f', -1, 64),
		"--compute-type", nonEmpty(p.ComputeType, "default"),
		"--threads", strconv.Itoa(p.Threads),
		"--vad-threshold", strconv.FormatFloat(p.VADThreshold, 'f', -1, 64),
		"--min-silence-ms", strconv.Itoa(p.MinSilenceMS),
	)
	if task == "transcribe" {
		args = append(args, "--language", p.Language)
		if p.Hotwords != "" {
			args = append(args, "--hotwords", p.Hotwords)
		}
	}
	args = append(args, wavPath)

	// The helper runs under a derived context so a rejected record can
	// stop a still-producing engine without cancelling the caller.
	runCtx, kill := context.WithCancel(ctx)
	defer kill()
	cmd := exec.CommandContext(runCtx, a.Command[0], args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("%w: %v", vberrors.ErrRecognition, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("%w: %v", vberrors.ErrRecognition, err)
	}
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: recognition aborted", vberrors.ErrCancelled)
		}
		return "", fmt.Errorf("%w: starting engine: %v", vberrors.ErrRecognition, err)
	}

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			sink.Event("whisper: "+scanner.Text(), logging.LevelInfo)
		}
	}()

	var buffered strings.Builder
	var lineErr error
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if onLine == nil {
			buffered.WriteString(line)
			buffered.WriteString("\n")
			continue
		}
		if lineErr = onLine(line); lineErr != nil {
			break
		}
	}
	if lineErr != nil {
		// A rejected record invalidates the stream; stop the engine now
		// rather than wait for it to finish on its own.
		kill()
	}
	<-relayDone

	waitErr := cmd.Wait()
	if lineErr != nil {
		return "", lineErr
	}
	if waitErr != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: recognition aborted", vberrors.ErrCancelled)
		}
		return "", fmt.Errorf("%w: %v", vberrors.ErrTranscriptionRuntime, waitErr)
	}
	return buffered.String(), nil
}

func nonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
