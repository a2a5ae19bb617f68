// Package media normalizes input recordings for the recognition and
// diarization engines by shelling out to ffmpeg.
package media

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	vberrors "github.com/verbatim-cli/verbatim/pkg/errors"
	"github.com/verbatim-cli/verbatim/pkg/logging"
	"github.com/verbatim-cli/verbatim/pkg/timefmt"
)

// Normalizer produces a mono 16 kHz signed-16-bit PCM waveform from any
// media file ffmpeg can decode, optionally clipped to a time range.
type Normalizer struct {
	// FFmpegPath overrides the ffmpeg binary; empty means "ffmpeg" on PATH.
	FFmpegPath string
}

// Clip bounds the normalized waveform. StartMS zero and StopMS zero mean
// the whole file; StopMS zero alone means "until the end".
type Clip struct {
	StartMS int64
	StopMS  int64
}

// Args returns the ffmpeg trim arguments, expressed as wall-clock offsets.
func (c Clip) Args() []string {
	args := []string{"-ss", timefmt.Format(c.StartMS, false)}
	if c.StopMS > 0 {
		args = append(args, "-to", timefmt.Format(c.StopMS, false))
	}
	return args
}

// Normalize decodes, trims, and resamples sourcePath into outPath. The
// transcoder's combined output is surfaced line by line through the sink.
func (n *Normalizer) Normalize(ctx context.Context, sourcePath, outPath string, clip Clip, sink logging.Sink) error {
	if _, err := os.Stat(sourcePath); err != nil {
		return fmt.Errorf("%w: source not readable: %v", vberrors.ErrAudioConversion, err)
	}

	ffmpeg := n.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}

	args := []string{"-loglevel", "warning", "-hwaccel", "auto", "-y"}
	args = append(args, clip.Args()...)
	args = append(args,
		"-i", sourcePath,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		outPath,
	)

	cmd := exec.CommandContext(ctx, ffmpeg, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", vberrors.ErrAudioConversion, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", vberrors.ErrAudioConversion, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: starting ffmpeg: %v", vberrors.ErrAudioConversion, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go relayLines(&wg, stdout, "ffmpeg: ", sink)
	go relayLines(&wg, stderr, "ffmpeg: ", sink)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: audio conversion aborted", vberrors.ErrCancelled)
		}
		return fmt.Errorf("%w: %v", vberrors.ErrAudioConversion, err)
	}
	return nil
}

// relayLines streams subprocess output to the sink, one info event per line.
func relayLines(wg *sync.WaitGroup, r io.Reader, prefix string, sink logging.Sink) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		sink.Event(prefix+scanner.Text(), logging.LevelInfo)
	}
}
