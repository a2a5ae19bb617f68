package transcript

// FindSpeaker returns the label of the diarization interval with the largest
// temporal overlap with the given range, or "" when no interval overlaps.
// Equal maximal overlaps resolve to the earliest interval in input order;
// the scan is strictly forward, so the result is deterministic for fixed
// inputs.
func FindSpeaker(intervals []DiarizationInterval, r TimeRange) string {
	speaker := ""
	var maxOverlap int64
	for _, interval := range intervals {
		if overlap := interval.Range.Overlap(r); overlap > maxOverlap {
			maxOverlap = overlap
			speaker = interval.Speaker
		}
	}
	return speaker
}

// Merge attributes each recognized segment to the diarization interval it
// overlaps most and rebases segment timing by clipOffsetMS so the result
// refers to the original media. An empty interval slice (diarization
// disabled) yields segments with empty speaker labels and no turns.
//
// A segment starts a new turn iff its resolved label is non-empty and
// differs from the last non-empty label seen.
func Merge(segments []RecognizedSegment, intervals []DiarizationInterval, clipOffsetMS int64) []AttributedSegment {
	out := make([]AttributedSegment, 0, len(segments))
	current := ""
	for _, seg := range segments {
		speaker := FindSpeaker(intervals, seg.Range)
		turn := speaker != "" && speaker != current
		if turn {
			current = speaker
		}
		out = append(out, AttributedSegment{
			RecognizedSegment: seg,
			Speaker:           speaker,
			TurnStart:         turn,
			AbsoluteRange:     seg.Range.Shift(clipOffsetMS),
		})
	}
	return out
}
