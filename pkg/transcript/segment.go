// Package transcript holds the transcription data model: timed segments,
// speaker attribution, and the typed document tree the serializers render.
package transcript

// TimeRange is a half-open span of media time in milliseconds. Immutable
// once created; EndMS is never before StartMS.
type TimeRange struct {
	StartMS int64 `json:"start_ms" yaml:"start_ms"`
	EndMS   int64 `json:"end_ms" yaml:"end_ms"`
}

// Duration returns the span length in milliseconds.
func (r TimeRange) Duration() int64 {
	return r.EndMS - r.StartMS
}

// Overlap returns the duration in milliseconds shared by both ranges.
// It is symmetric and never negative; zero when the ranges do not intersect.
func (r TimeRange) Overlap(other TimeRange) int64 {
	start := r.StartMS
	if other.StartMS > start {
		start = other.StartMS
	}
	end := r.EndMS
	if other.EndMS < end {
		end = other.EndMS
	}
	if end <= start {
		return 0
	}
	return end - start
}

// Shift returns the range moved forward by the given millisecond offset.
func (r TimeRange) Shift(offsetMS int64) TimeRange {
	return TimeRange{StartMS: r.StartMS + offsetMS, EndMS: r.EndMS + offsetMS}
}

// DiarizationInterval is one labeled span produced by the diarization
// adapter. Intervals arrive ordered by start time but may overlap each other.
type DiarizationInterval struct {
	Range TimeRange

	// Speaker is the normalized display label, e.g. "S01".
	Speaker string
}

// RecognizedSegment is one timed text span produced by the recognition
// engine, with its range relative to the clipped audio start.
type RecognizedSegment struct {
	Range TimeRange
	Text  string
}

// AttributedSegment is a recognized segment with speaker attribution and
// timing rebased onto the original media. Created once during the merge
// pass and never mutated afterward.
type AttributedSegment struct {
	RecognizedSegment

	// Speaker is the resolved label for this segment, empty when no
	// diarization interval overlaps it.
	Speaker string

	// TurnStart marks the first segment of a new speaker turn.
	TurnStart bool

	// AbsoluteRange is the segment span shifted by the clip offset so that
	// timestamps refer to the original media.
	AbsoluteRange TimeRange
}
