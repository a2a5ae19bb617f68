package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/verbatim-cli/verbatim/pkg/diarize"
	vberrors "github.com/verbatim-cli/verbatim/pkg/errors"
	"github.com/verbatim-cli/verbatim/pkg/logging"
	"github.com/verbatim-cli/verbatim/pkg/media"
	"github.com/verbatim-cli/verbatim/pkg/models"
	"github.com/verbatim-cli/verbatim/pkg/whisper"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs not supported on windows")
	}
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// testPipeline builds a pipeline over stub engines: ffmpeg succeeds
// silently, diarization writes one interval covering the whole clip, and
// recognition emits two segments.
func testPipeline(t *testing.T) (*Pipeline, *logging.CaptureSink) {
	t.Helper()
	requireUnix(t)
	dir := t.TempDir()

	ffmpeg := writeScript(t, dir, "ffmpeg", "#!/bin/sh\nexit 0\n")
	diarizer := writeScript(t, dir, "diarize.sh", `#!/bin/sh
printf -- "- start: 0\n  end: 4000\n  label: SPEAKER_01\n" > "$3"
`)
	recognizer := writeScript(t, dir, "whisper.sh", `#!/bin/sh
echo '{"start": 0.0, "end": 2.0, "text": "hello"}'
echo '{"start": 2.0, "end": 4.0, "text": "world"}'
`)

	appDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(appDir, "models", "fast"), 0o755); err != nil {
		t.Fatal(err)
	}

	sink := &logging.CaptureSink{}
	return &Pipeline{
		Normalizer: &media.Normalizer{FFmpegPath: ffmpeg},
		Diarizer:   &diarize.Adapter{Command: []string{diarizer}},
		Recognizer: &whisper.Adapter{Command: []string{recognizer}},
		Registry:   models.NewRegistry(appDir, t.TempDir()),
		Sink:       sink,
	}, sink
}

func testConfig(t *testing.T, outName string) Config {
	t.Helper()
	src := filepath.Join(t.TempDir(), "interview.mp4")
	if err := os.WriteFile(src, []byte("media bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return Config{
		AudioPath:        src,
		OutputPath:       filepath.Join(t.TempDir(), outName),
		Language:         "en",
		Model:            "fast",
		SpeakerDetection: "auto",
		BeamSize:         1,
		VADThreshold:     0.5,
		MinSilenceMS:     1000,
	}
}

func TestRun_RichOutput(t *testing.T) {
	p, sink := testPipeline(t)
	cfg := testConfig(t, "out.html")

	res, err := p.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.SegmentCount != 2 || res.SpeakerCount != 1 || res.Language != "en" {
		t.Errorf("unexpected result: %+v", res)
	}

	content, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	out := string(content)
	if !strings.Contains(out, `<a name="ts_0_2000_S01" >S01: hello</a>`) {
		t.Errorf("missing attributed anchor in:\n%s", out)
	}
	if !strings.Contains(out, `<a name="ts_2000_4000_S01" >world</a>`) {
		t.Errorf("missing second anchor in:\n%s", out)
	}

	// Stage transitions are reported through the sink.
	all := eventText(sink)
	for _, want := range []string{
		"Starting audio conversion...",
		"Starting speaker identification...",
		"Starting transcription...",
		"Processing segments...",
		"Transcription finished.",
	} {
		if !strings.Contains(all, want) {
			t.Errorf("missing event %q", want)
		}
	}
}

func TestRun_SubtitleOutputDisablesFormatting(t *testing.T) {
	p, sink := testPipeline(t)
	cfg := testConfig(t, "out.vtt")
	cfg.Format.Timestamps = true
	cfg.Format.TimestampIntervalMS = 60_000
	cfg.Format.PauseThresholdSec = 1
	cfg.Format.Overlap = true

	res, err := p.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	content, _ := os.ReadFile(res.OutputPath)
	out := string(content)
	if !strings.HasPrefix(out, "WEBVTT ") {
		t.Error("missing WEBVTT header")
	}
	if !strings.Contains(out, "<v S01>hello") {
		t.Errorf("missing voice-tagged cue in:\n%s", out)
	}
	if strings.Contains(out, "S01:") {
		t.Error("subtitle output must not carry textual speaker prefixes")
	}
	if strings.Contains(out, "[00:") {
		t.Error("inline timestamps must be disabled for subtitle output")
	}
	if !strings.Contains(eventText(sink), "Disabling them.") {
		t.Error("formatting override not reported as event")
	}
}

func TestRun_SpeakerDetectionNone(t *testing.T) {
	p, _ := testPipeline(t)
	cfg := testConfig(t, "out.txt")
	cfg.SpeakerDetection = "none"

	if _, err := p.Run(context.Background(), cfg); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	content, _ := os.ReadFile(cfg.OutputPath)
	if strings.Contains(string(content), "S01") {
		t.Errorf("speaker labels leaked into undiarized output:\n%s", content)
	}
}

func TestRun_ValidationFailures(t *testing.T) {
	p, _ := testPipeline(t)

	cases := map[string]func(*Config){
		"missing audio":      func(c *Config) { c.AudioPath = "/does/not/exist.mp4" },
		"empty output":       func(c *Config) { c.OutputPath = "" },
		"bad extension":      func(c *Config) { c.OutputPath = c.OutputPath + ".docx" },
		"bad start time":     func(c *Config) { c.StartTime = "ninety" },
		"stop before start":  func(c *Config) { c.StartTime = "00:10:00"; c.StopTime = "00:05:00" },
		"bad speaker mode":   func(c *Config) { c.SpeakerDetection = "several" },
		"bad language":       func(c *Config) { c.Language = "not a language!" },
	}
	for name, mutate := range cases {
		cfg := testConfig(t, "out.html")
		mutate(&cfg)
		_, err := p.Run(context.Background(), cfg)
		if err == nil {
			t.Errorf("%s: expected validation error", name)
			continue
		}
		if !vberrors.IsValidation(err) {
			t.Errorf("%s: error is not ErrValidation: %v", name, err)
		}
	}
}

func TestRun_UnknownModel(t *testing.T) {
	p, _ := testPipeline(t)
	cfg := testConfig(t, "out.html")
	cfg.Model = "enormous"

	_, err := p.Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for unresolvable model")
	}
	if !vberrors.IsRecognition(err) {
		t.Errorf("error is not ErrRecognition: %v", err)
	}
}

func TestRun_CancelledBeforeMerge(t *testing.T) {
	p, _ := testPipeline(t)
	cfg := testConfig(t, "out.html")

	// Cancel while recognition segments stream, before merging starts.
	ctx, cancel := context.WithCancel(context.Background())
	p.Sink = logging.SinkFunc(func(msg string, _ logging.Level) {
		if strings.Contains(msg, "Starting transcription...") {
			cancel()
		}
	})

	before := scratchDirs(t)
	_, err := p.Run(ctx, cfg)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !vberrors.IsCancelled(err) {
		t.Errorf("error is not a cancellation: %v", err)
	}
	if _, statErr := os.Stat(cfg.OutputPath); !os.IsNotExist(statErr) {
		t.Error("cancelled run must not write an output file")
	}
	if after := scratchDirs(t); after != before {
		t.Errorf("scratch directories leaked: %d before, %d after", before, after)
	}
}

func TestRun_StageFailureCleansUp(t *testing.T) {
	p, sink := testPipeline(t)
	p.Normalizer = &media.Normalizer{FFmpegPath: writeScript(t, t.TempDir(), "ffmpeg", "#!/bin/sh\nexit 1\n")}
	cfg := testConfig(t, "out.html")

	before := scratchDirs(t)
	_, err := p.Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected audio conversion failure")
	}
	if !vberrors.IsAudioConversion(err) {
		t.Errorf("error is not ErrAudioConversion: %v", err)
	}
	if after := scratchDirs(t); after != before {
		t.Errorf("scratch directories leaked: %d before, %d after", before, after)
	}

	// The failure is reported through the sink exactly once.
	count := 0
	for _, e := range sink.Events() {
		if e.Level == logging.LevelError && strings.Contains(e.Message, "An error occurred") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected one error event, got %d", count)
	}
}

func TestRun_WriteFailureIsRuntimeError(t *testing.T) {
	p, _ := testPipeline(t)
	cfg := testConfig(t, "out.html")
	// A directory at the destination path passes the up-front checks but
	// makes the final write fail mid-run.
	if err := os.Mkdir(cfg.OutputPath, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := p.Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected write failure")
	}
	if !vberrors.IsTranscriptionRuntime(err) {
		t.Errorf("error is not ErrTranscriptionRuntime: %v", err)
	}
	if vberrors.IsValidation(err) {
		t.Errorf("late write failure reported as validation error: %v", err)
	}
}

func TestRun_EmptyRecognition(t *testing.T) {
	p, _ := testPipeline(t)
	p.Recognizer = &whisper.Adapter{Command: []string{writeScript(t, t.TempDir(), "whisper.sh", "#!/bin/sh\nexit 0\n")}}
	cfg := testConfig(t, "out.txt")

	res, err := p.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("silent input must still produce a document: %v", err)
	}
	if res.SegmentCount != 0 {
		t.Errorf("expected zero segments, got %d", res.SegmentCount)
	}
	content, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.Contains(string(content), "interview") {
		t.Errorf("empty-bodied document missing header:\n%s", content)
	}
}

func TestFingerprint_Stable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	if err := os.WriteFile(path, []byte("identical bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	first, err := Fingerprint(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Fingerprint(path)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("fingerprint not stable: %q vs %q", first, second)
	}
	if len(first) != 16 {
		t.Errorf("fingerprint length = %d, want 16", len(first))
	}
}

// scratchDirs counts verbatim scratch directories currently in the temp dir.
func scratchDirs(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "verbatim-*"))
	if err != nil {
		t.Fatal(err)
	}
	return len(matches)
}

func eventText(sink *logging.CaptureSink) string {
	var b strings.Builder
	for _, e := range sink.Events() {
		b.WriteString(e.Message)
		b.WriteString("\n")
	}
	return b.String()
}
