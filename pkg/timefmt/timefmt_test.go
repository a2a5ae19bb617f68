package timefmt

import (
	"testing"

	vberrors "github.com/verbatim-cli/verbatim/pkg/errors"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"00:00:00", 0},
		{"00:00:01", 1000},
		{"00:01:00", 60_000},
		{"01:00:00", 3_600_000},
		{"01:02:03", 3_723_000},
		{"00:00:00.500", 500},
		{"10:20:30.045", 37_230_045},
		{"99:59:59.999", 359_999_999},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{
		"", "12", "12:34", "1:2:3:4", "aa:bb:cc",
		"00:60:00", "00:00:60", "00:00:00.12", "00:00:00.", "-1:00:00",
	} {
		_, err := Parse(in)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error", in)
			continue
		}
		if !vberrors.IsInvalidTimeFormat(err) {
			t.Errorf("Parse(%q) error is not ErrInvalidTimeFormat: %v", in, err)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format(3_723_000, false); got != "01:02:03" {
		t.Errorf("Format = %q, want 01:02:03", got)
	}
	if got := Format(3_723_456, true); got != "01:02:03.456" {
		t.Errorf("Format = %q, want 01:02:03.456", got)
	}
	if got := Format(0, true); got != "00:00:00.000" {
		t.Errorf("Format = %q, want 00:00:00.000", got)
	}
}

// Formatting with millisecond precision and parsing back must round-trip for
// every value up to 99:59:59.999.
func TestRoundTrip(t *testing.T) {
	samples := []int64{0, 1, 999, 1000, 59_999, 60_000, 3_599_999, 3_600_000, 86_399_999, 359_999_999}
	for _, ms := range samples {
		s := Format(ms, true)
		back, err := Parse(s)
		if err != nil {
			t.Errorf("Parse(Format(%d)) = error %v", ms, err)
			continue
		}
		if back != ms {
			t.Errorf("round trip %d -> %q -> %d", ms, s, back)
		}
	}
}

func TestFormatWebVTT(t *testing.T) {
	cases := map[int64]string{
		0:          "00:00:00.000",
		2000:       "00:00:02.000",
		4000:       "00:00:04.000",
		3_723_456:  "01:02:03.456",
		37_230_045: "10:20:30.045",
	}
	for ms, want := range cases {
		if got := FormatWebVTT(ms); got != want {
			t.Errorf("FormatWebVTT(%d) = %q, want %q", ms, got, want)
		}
	}
}
