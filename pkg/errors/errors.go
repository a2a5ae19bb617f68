// Package errors provides common domain error types for the verbatim pipeline.
//
// This package defines sentinel errors for the pipeline failure taxonomy so that
// every stage failure can be classified with errors.Is() checks. Each pipeline
// stage wraps its underlying cause with the matching sentinel; the orchestrator
// and CLI only ever branch on the sentinel, never on error strings.
//
// Usage:
//
//	import vberrors "github.com/verbatim-cli/verbatim/pkg/errors"
//
//	// Return a domain error
//	return fmt.Errorf("%w: ffmpeg exited with code %d", vberrors.ErrAudioConversion, code)
//
//	// Check for domain errors
//	if vberrors.IsCancelled(err) {
//	    // clean abort, no output written
//	}
package errors

import (
	"context"
	"errors"
)

// Pipeline errors - sentinel errors for each failure class of the transcription
// pipeline. ErrValidation failures are reported before any stage runs; the
// stage errors abort the run and trigger scratch cleanup; ErrCancelled is a
// clean abort, not a fault.
var (
	// ErrValidation indicates missing or invalid input, output path, or time range.
	ErrValidation = errors.New("validation error")

	// ErrInvalidTimeFormat indicates a timestamp string that does not parse as HH:MM:SS[.mmm].
	ErrInvalidTimeFormat = errors.New("invalid time format")

	// ErrAudioConversion indicates the external transcoder failed or the source is unreadable.
	ErrAudioConversion = errors.New("audio conversion failed")

	// ErrDiarization indicates the speaker diarization process failed or produced a malformed result.
	ErrDiarization = errors.New("speaker diarization failed")

	// ErrRecognition indicates the speech recognition engine could not be started,
	// typically because the model identifier does not resolve to a local model.
	ErrRecognition = errors.New("speech recognition failed")

	// ErrTranscriptionRuntime indicates an engine-internal failure during recognition.
	ErrTranscriptionRuntime = errors.New("transcription runtime error")

	// ErrCancelled indicates the caller requested cancellation. No output is written.
	ErrCancelled = errors.New("transcription cancelled")
)

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidTimeFormat reports whether any error in err's chain is ErrInvalidTimeFormat.
func IsInvalidTimeFormat(err error) bool {
	return errors.Is(err, ErrInvalidTimeFormat)
}

// IsAudioConversion reports whether any error in err's chain is ErrAudioConversion.
func IsAudioConversion(err error) bool {
	return errors.Is(err, ErrAudioConversion)
}

// IsDiarization reports whether any error in err's chain is ErrDiarization.
func IsDiarization(err error) bool {
	return errors.Is(err, ErrDiarization)
}

// IsRecognition reports whether any error in err's chain is ErrRecognition.
func IsRecognition(err error) bool {
	return errors.Is(err, ErrRecognition)
}

// IsTranscriptionRuntime reports whether any error in err's chain is ErrTranscriptionRuntime.
func IsTranscriptionRuntime(err error) bool {
	return errors.Is(err, ErrTranscriptionRuntime)
}

// IsCancelled reports whether any error in err's chain is ErrCancelled.
// Context cancellation from the standard library is treated as a cancellation
// request so that callers can abort with ctx cancel alone.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
