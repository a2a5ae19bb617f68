// Package diarize runs speaker diarization in an isolated external process
// and parses its structured result file.
//
// The diarization and recognition engines cannot safely share one process's
// accelerator context, so this stage always crosses a process boundary with
// a narrow side channel: the helper writes a YAML list of labeled intervals
// and exits; log text on stdout/stderr is only ever progress, never data.
package diarize

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	vberrors "github.com/verbatim-cli/verbatim/pkg/errors"
	"github.com/verbatim-cli/verbatim/pkg/logging"
	"github.com/verbatim-cli/verbatim/pkg/transcript"
)

// Adapter invokes the diarization helper process.
type Adapter struct {
	// Command is the helper argv prefix, e.g. ["python3", "diarize.py"].
	Command []string

	// Device is the accelerator selection passed to the helper (cpu, cuda, mps).
	Device string

	// Token is an optional Hugging Face access token for gated segmentation
	// models, passed to the helper via HF_TOKEN.
	Token string
}

// resultRecord is one interval in the helper's YAML result file, times in
// milliseconds.
type resultRecord struct {
	Start int64  `yaml:"start"`
	End   int64  `yaml:"end"`
	Label string `yaml:"label"`
}

// Diarize runs the helper against the normalized waveform and returns the
// labeled intervals, ordered as the helper produced them. speakerMode is
// "auto" or a fixed expected speaker count; "none" never reaches this
// adapter. resultPath names the side-channel file inside the caller's
// scratch directory.
func (a *Adapter) Diarize(ctx context.Context, wavPath, resultPath, speakerMode string, sink logging.Sink) ([]transcript.DiarizationInterval, error) {
	if len(a.Command) == 0 {
		return nil, fmt.Errorf("%w: no diarization command configured", vberrors.ErrDiarization)
	}

	device := a.Device
	if device == "" {
		device = "cpu"
	}

	args := append(append([]string{}, a.Command[1:]...), device, wavPath, resultPath, speakerMode)
	cmd := exec.CommandContext(ctx, a.Command[0], args...)
	cmd.Env = os.Environ()
	if a.Token != "" {
		cmd.Env = append(cmd.Env, "HF_TOKEN="+a.Token)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vberrors.ErrDiarization, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vberrors.ErrDiarization, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting helper: %v", vberrors.ErrDiarization, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go relay(&wg, stdout, sink)
	go relay(&wg, stderr, sink)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: diarization aborted", vberrors.ErrCancelled)
		}
		return nil, fmt.Errorf("%w: %v", vberrors.ErrDiarization, err)
	}

	return ParseResult(resultPath)
}

// ParseResult reads the helper's YAML side-channel file into ordered
// intervals with normalized display labels.
func ParseResult(path string) ([]transcript.DiarizationInterval, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading result file: %v", vberrors.ErrDiarization, err)
	}

	var records []resultRecord
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: malformed result file: %v", vberrors.ErrDiarization, err)
	}

	intervals := make([]transcript.DiarizationInterval, 0, len(records))
	for _, rec := range records {
		if rec.End < rec.Start {
			return nil, fmt.Errorf("%w: interval ends before it starts (%d > %d)", vberrors.ErrDiarization, rec.Start, rec.End)
		}
		intervals = append(intervals, transcript.DiarizationInterval{
			Range:   transcript.TimeRange{StartMS: rec.Start, EndMS: rec.End},
			Speaker: NormalizeLabel(rec.Label),
		})
	}
	return intervals, nil
}

// NormalizeLabel shortens engine labels like "SPEAKER_01" to the display
// form "S01". Labels in any other shape get the "S" prefix unchanged.
func NormalizeLabel(label string) string {
	if suffix, ok := strings.CutPrefix(label, "SPEAKER_"); ok {
		return "S" + suffix
	}
	if strings.HasPrefix(label, "S") {
		return label
	}
	return "S" + label
}

func relay(wg *sync.WaitGroup, r io.Reader, sink logging.Sink) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		sink.Event("diarize: "+scanner.Text(), logging.LevelInfo)
	}
}
