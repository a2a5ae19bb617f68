package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestCaptureSink_RecordsInOrder(t *testing.T) {
	sink := &CaptureSink{}
	sink.Event("first", LevelInfo)
	sink.Event("second", LevelHighlight)
	sink.Event("third", LevelError)

	events := sink.Events()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Message != "first" || events[0].Level != LevelInfo {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Level != LevelHighlight {
		t.Errorf("expected highlight level, got %s", events[1].Level)
	}
	if events[2].Message != "third" || events[2].Level != LevelError {
		t.Errorf("unexpected third event: %+v", events[2])
	}
}

func TestCaptureSink_EventsReturnsCopy(t *testing.T) {
	sink := &CaptureSink{}
	sink.Event("one", LevelInfo)

	events := sink.Events()
	events[0].Message = "mutated"

	if sink.Events()[0].Message != "one" {
		t.Error("expected Events to return a copy, internal state was mutated")
	}
}

func TestLoggerSink_RoutesLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(&Config{Level: LevelDebug, ServiceName: "t", JSONFormat: true, Output: buf})
	sink := LoggerSink(log)

	sink.Event("plain progress", LevelInfo)
	sink.Event("stage failed", LevelError)
	sink.Event("all done", LevelHighlight)

	out := buf.String()
	for _, want := range []string{"plain progress", "stage failed", "all done", `"highlight":true`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}
