package whisper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	vberrors "github.com/verbatim-cli/verbatim/pkg/errors"
	"github.com/verbatim-cli/verbatim/pkg/logging"
	"github.com/verbatim-cli/verbatim/pkg/transcript"
)

func writeHelper(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "whisper.sh")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribe_StreamsSegments(t *testing.T) {
	helper := writeHelper(t, `#!/bin/sh
echo "loading model" >&2
echo '{"start": 0.0, "end": 2.0, "text": " hello"}'
echo '{"start": 2.0, "end": 4.0, "text": " world"}'
`)
	a := &Adapter{Command: []string{helper}}
	sink := &logging.CaptureSink{}

	var streamed []transcript.RecognizedSegment
	segments, err := a.Transcribe(context.Background(), "in.wav", Params{Language: "en", BeamSize: 1}, sink,
		func(seg transcript.RecognizedSegment) error {
			streamed = append(streamed, seg)
			return nil
		})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if len(segments) != 2 || len(streamed) != 2 {
		t.Fatalf("expected 2 segments, got %d collected, %d streamed", len(segments), len(streamed))
	}
	if segments[0].Range.StartMS != 0 || segments[0].Range.EndMS != 2000 {
		t.Errorf("first segment range = %+v", segments[0].Range)
	}
	if segments[1].Range.StartMS != 2000 || segments[1].Range.EndMS != 4000 {
		t.Errorf("second segment range = %+v", segments[1].Range)
	}
	if segments[0].Text != " hello" {
		t.Errorf("first segment text = %q", segments[0].Text)
	}

	// Engine progress on stderr is surfaced as log events.
	found := false
	for _, e := range sink.Events() {
		if strings.Contains(e.Message, "loading model") {
			found = true
		}
	}
	if !found {
		t.Error("engine stderr not surfaced as events")
	}
}

func TestTranscribe_FractionalSecondsToMillis(t *testing.T) {
	helper := writeHelper(t, `#!/bin/sh
echo '{"start": 1.234, "end": 5.678, "text": "x"}'
`)
	a := &Adapter{Command: []string{helper}}
	segments, err := a.Transcribe(context.Background(), "in.wav", Params{Language: "en"}, &logging.CaptureSink{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if segments[0].Range.StartMS != 1234 || segments[0].Range.EndMS != 5678 {
		t.Errorf("decimal rescaling wrong: %+v", segments[0].Range)
	}
}

func TestTranscribe_OnSegmentAborts(t *testing.T) {
	helper := writeHelper(t, `#!/bin/sh
echo '{"start": 0.0, "end": 1.0, "text": "a"}'
echo '{"start": 1.0, "end": 2.0, "text": "b"}'
`)
	a := &Adapter{Command: []string{helper}}
	abort := errors.New("stop now")

	_, err := a.Transcribe(context.Background(), "in.wav", Params{Language: "en"}, &logging.CaptureSink{},
		func(transcript.RecognizedSegment) error { return abort })
	if !errors.Is(err, abort) {
		t.Errorf("expected abort error to propagate, got %v", err)
	}
}

func TestTranscribe_MalformedRecordStopsEngine(t *testing.T) {
	// A malformed record must terminate a still-producing engine instead
	// of waiting for it to exit on its own.
	helper := writeHelper(t, `#!/bin/sh
echo 'not json'
sleep 20
`)
	a := &Adapter{Command: []string{helper}}

	start := time.Now()
	_, err := a.Transcribe(context.Background(), "in.wav", Params{Language: "en"}, &logging.CaptureSink{}, nil)
	elapsed := time.Since(start)

	if !vberrors.IsTranscriptionRuntime(err) {
		t.Fatalf("error is not ErrTranscriptionRuntime: %v", err)
	}
	if !strings.Contains(err.Error(), "malformed segment record") {
		t.Errorf("unexpected error text: %v", err)
	}
	if elapsed > 5*time.Second {
		t.Errorf("Transcribe took %v, engine was not stopped", elapsed)
	}
}

func TestTranscribe_EngineFailure(t *testing.T) {
	helper := writeHelper(t, "#!/bin/sh\nexit 2\n")
	a := &Adapter{Command: []string{helper}}

	_, err := a.Transcribe(context.Background(), "in.wav", Params{Language: "en"}, &logging.CaptureSink{}, nil)
	if err == nil {
		t.Fatal("expected error for engine exit 2")
	}
	if !vberrors.IsTranscriptionRuntime(err) {
		t.Errorf("error is not ErrTranscriptionRuntime: %v", err)
	}
}

func TestResolveLanguage_Explicit(t *testing.T) {
	a := &Adapter{Command: []string{"/nonexistent"}}
	lang, err := a.ResolveLanguage(context.Background(), "in.wav", Params{Language: "de"}, &logging.CaptureSink{})
	if err != nil {
		t.Fatal(err)
	}
	if lang != "de" {
		t.Errorf("explicit language changed to %q", lang)
	}
}

func TestResolveLanguage_AutoDetects(t *testing.T) {
	helper := writeHelper(t, `#!/bin/sh
echo '{"language": "sv", "probability": 0.94}'
`)
	a := &Adapter{Command: []string{helper}}
	sink := &logging.CaptureSink{}

	lang, err := a.ResolveLanguage(context.Background(), "in.wav", Params{Language: "auto"}, sink)
	if err != nil {
		t.Fatal(err)
	}
	if lang != "sv" {
		t.Errorf("detected language = %q, want sv", lang)
	}

	found := false
	for _, e := range sink.Events() {
		if strings.Contains(e.Message, "Detected language: sv") {
			found = true
		}
	}
	if !found {
		t.Error("detection result not reported as event")
	}
}

func TestResolveLanguage_FallsBackToEnglish(t *testing.T) {
	helper := writeHelper(t, "#!/bin/sh\nexit 1\n")
	a := &Adapter{Command: []string{helper}}
	sink := &logging.CaptureSink{}

	lang, err := a.ResolveLanguage(context.Background(), "in.wav", Params{Language: "auto"}, sink)
	if err != nil {
		t.Fatalf("fallback must not fail: %v", err)
	}
	if lang != "en" {
		t.Errorf("fallback language = %q, want en", lang)
	}

	warned := false
	for _, e := range sink.Events() {
		if e.Level == logging.LevelWarn {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a warning event on detection failure")
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"":      "auto",
		"auto":  "auto",
		"Auto":  "auto",
		"en":    "en",
		"en-US": "en",
		"de":    "de",
	}
	for in, want := range cases {
		got, err := NormalizeLanguage(in)
		if err != nil {
			t.Errorf("NormalizeLanguage(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := NormalizeLanguage("not a language!"); err == nil {
		t.Error("expected error for invalid language code")
	}
}

func TestLoadHints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hints.yml")
	if err := os.WriteFile(path, []byte("en: \"uhm, uh\"\nde: \"ähm, äh\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	hints, err := LoadHints(path)
	if err != nil {
		t.Fatal(err)
	}
	if hints.For("de") != "ähm, äh" {
		t.Errorf("German hint = %q", hints.For("de"))
	}
	if hints.For("fi") != "" {
		t.Error("expected empty hint for language without entry")
	}
}

func TestLoadHints_MissingFile(t *testing.T) {
	hints, err := LoadHints(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("missing hint table must not fail: %v", err)
	}
	if len(hints) != 0 {
		t.Errorf("expected empty table, got %v", hints)
	}
}
