package transcript

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/verbatim-cli/verbatim/pkg/timefmt"
)

// OutputKind selects the serialization of an assembled document.
type OutputKind string

const (
	// OutputRich is the structured HTML encoding with timestamp anchors.
	OutputRich OutputKind = "rich"
	// OutputPlain is the blank-line separated text encoding.
	OutputPlain OutputKind = "plain"
	// OutputSubtitle is the WebVTT cue track encoding.
	OutputSubtitle OutputKind = "subtitle"
)

// KindForPath maps an output file extension to its OutputKind.
func KindForPath(path string) (OutputKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html":
		return OutputRich, nil
	case ".txt":
		return OutputPlain, nil
	case ".vtt":
		return OutputSubtitle, nil
	default:
		return "", fmt.Errorf("unsupported transcript extension %q (want .html, .txt or .vtt)", filepath.Ext(path))
	}
}

// FormatOptions are the user-selected formatting switches honored by the
// assembler. Subtitle output has no representation for pauses, inline
// timestamps, or overlap markers; ForKind zeroes them for that encoding.
type FormatOptions struct {
	// PauseThresholdSec renders silence gaps of at least this many seconds
	// as pause markers. Zero disables pause marking.
	PauseThresholdSec int

	// PauseMarker is the character repeated once per second of pause
	// (pauses of ten seconds and more render as a second count instead).
	PauseMarker string

	// Timestamps enables inline [HH:MM:SS] markers.
	Timestamps bool

	// TimestampIntervalMS is the minimum media time between inline
	// timestamp markers.
	TimestampIntervalMS int64

	// TimestampColor is the marker color in rich output.
	TimestampColor string

	// Overlap prefixes segments that start before the previous segment
	// ended, marking overlapping speech.
	Overlap bool
}

// ForKind returns the options as honored for the given output kind, and
// whether any were forcibly disabled by the subtitle override rule.
func (o FormatOptions) ForKind(kind OutputKind) (FormatOptions, bool) {
	if kind != OutputSubtitle {
		return o, false
	}
	overridden := o.PauseThresholdSec > 0 || o.Timestamps || o.Overlap
	o.PauseThresholdSec = 0
	o.Timestamps = false
	o.Overlap = false
	return o, overridden
}

// Assemble builds the document tree from the attributed segment stream.
// A new content paragraph starts exactly at each speaker turn (when
// diarization ran); the speaker prefix is prepended to the first segment of
// each turn except for subtitle output, which carries the speaker in the
// cue voice tag instead.
func Assemble(sourcePath string, segments []AttributedSegment, diarized bool, kind OutputKind, opts FormatOptions) *Document {
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	doc := &Document{
		SourcePath: sourcePath,
		Title:      stem,
	}

	title := &Paragraph{Bold: true}
	title.Append(TextRun{Text: stem})
	attribution := &Paragraph{Muted: true}
	attribution.Append(TextRun{Text: "Transcribed with verbatim. Audio: " + sourcePath})
	doc.Paragraphs = append(doc.Paragraphs, title, attribution)

	current := &Paragraph{}
	doc.Paragraphs = append(doc.Paragraphs, current)

	speaker := ""
	timestampMarked := false
	var lastTimestampMS, prevEndMS int64
	havePrev := false

	for _, seg := range segments {
		// Pause markers attach to the paragraph the silence ended in.
		if opts.PauseThresholdSec > 0 && havePrev {
			gapSec := int((seg.AbsoluteRange.StartMS - prevEndMS) / 1000)
			if gapSec >= opts.PauseThresholdSec {
				current.Append(TextRun{Text: " " + pauseText(gapSec, opts.PauseMarker)})
			}
		}

		prefix := ""
		if diarized && seg.TurnStart {
			current = &Paragraph{}
			doc.Paragraphs = append(doc.Paragraphs, current)
			speaker = seg.Speaker
			if kind != OutputSubtitle {
				prefix = speaker + ": "
			}
		}

		if opts.Timestamps {
			if !timestampMarked || seg.AbsoluteRange.StartMS-lastTimestampMS >= opts.TimestampIntervalMS {
				current.Append(TextRun{
					Text:  "[" + timefmt.Format(seg.AbsoluteRange.StartMS, false) + "] ",
					Color: opts.TimestampColor,
				})
				timestampMarked = true
				lastTimestampMS = seg.AbsoluteRange.StartMS
			}
		}

		text := seg.Text
		if opts.Overlap && havePrev && seg.AbsoluteRange.StartMS < prevEndMS {
			text = "//" + text
		}

		current.Append(Anchor{
			Range:   seg.AbsoluteRange,
			Speaker: speaker,
			Text:    prefix + text,
		})

		prevEndMS = seg.AbsoluteRange.EndMS
		havePrev = true
	}

	return doc
}

// pauseText renders a silence gap: one marker character per second up to
// nine seconds, a second count beyond that.
func pauseText(seconds int, marker string) string {
	if marker == "" {
		marker = "."
	}
	if seconds <= 9 {
		return "(" + strings.Repeat(marker, seconds) + ")"
	}
	return fmt.Sprintf("(%d seconds)", seconds)
}
