// Package timefmt converts between millisecond offsets and the timestamp
// string forms used across the transcription pipeline: the human form
// HH:MM:SS with an optional .mmm suffix, and WebVTT cue timestamps.
package timefmt

import (
	"fmt"
	"strconv"
	"strings"

	vberrors "github.com/verbatim-cli/verbatim/pkg/errors"
)

// Parse converts a timestamp string of the form HH:MM:SS or HH:MM:SS.mmm
// into a millisecond offset. It returns ErrInvalidTimeFormat for anything
// else.
func Parse(s string) (int64, error) {
	base := s
	var millis int64
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		base = s[:dot]
		frac := s[dot+1:]
		if len(frac) != 3 {
			return 0, fmt.Errorf("%w: %q", vberrors.ErrInvalidTimeFormat, s)
		}
		m, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", vberrors.ErrInvalidTimeFormat, s)
		}
		millis = m
	}

	parts := strings.Split(base, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", vberrors.ErrInvalidTimeFormat, s)
	}
	var hms [3]int64
	for i, p := range parts {
		if p == "" {
			return 0, fmt.Errorf("%w: %q", vberrors.ErrInvalidTimeFormat, s)
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: %q", vberrors.ErrInvalidTimeFormat, s)
		}
		hms[i] = v
	}
	if hms[1] > 59 || hms[2] > 59 {
		return 0, fmt.Errorf("%w: %q", vberrors.ErrInvalidTimeFormat, s)
	}
	return (hms[0]*3600+hms[1]*60+hms[2])*1000 + millis, nil
}

// Format converts a millisecond offset into HH:MM:SS, appending a .mmm
// suffix when includeMillis is set.
func Format(ms int64, includeMillis bool) string {
	seconds, millis := ms/1000, ms%1000
	minutes, seconds := seconds/60, seconds%60
	hours, minutes := minutes/60, minutes%60
	formatted := fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	if includeMillis {
		formatted += fmt.Sprintf(".%03d", millis)
	}
	return formatted
}

// FormatWebVTT converts a millisecond offset into a WebVTT cue timestamp,
// HH:MM:SS.mmm with zero-padded fields.
func FormatWebVTT(ms int64) string {
	hours, ms := ms/3600000, ms%3600000
	minutes, ms := ms/60000, ms%60000
	seconds, millis := ms/1000, ms%1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}
