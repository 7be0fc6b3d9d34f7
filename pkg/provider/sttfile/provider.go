// Package sttfile defines the Provider interface for batch, file-based
// Speech-to-Text backends.
//
// Unlike a streaming STT provider, a sttfile.Provider is handed a complete
// audio file (or a short extracted span of one) and returns a single
// [transcript.TranscriptionResult] once transcription finishes. This shape
// fits the orchestrator's two passes: one full-file primary transcription,
// and one re-transcription per uncertain segment per candidate provider.
//
// Implementations must be safe for concurrent use: the orchestrator calls
// TranscribeSegment from multiple goroutines, one per uncertain segment, for
// each configured provider.
package sttfile

import (
	"context"

	"github.com/MrWong99/transcriptorch/pkg/transcript"
)

// Provider is the abstraction over any file-based STT backend.
type Provider interface {
	// Name identifies the provider (e.g., "deepgram", "assemblyai", "whisper").
	// Used as the map key in [transcript.OrchestratorDecision.Candidates] and
	// in circuit breaker naming.
	Name() string

	// Transcribe sends the complete audio file at audioPath for transcription.
	// language is a BCP-47 tag; the bundled adapters replace an empty string
	// with a default language ("en") and do not auto-detect. enableDiarization requests per-word speaker labels
	// when the provider supports it. vocabularyBoost is a list of domain
	// terms (e.g., medical vocabulary) that bias recognition toward unusual
	// words; providers apply it using their own boosting mechanism.
	Transcribe(ctx context.Context, audioPath string, language string, enableDiarization bool, vocabularyBoost []string) (*transcript.TranscriptionResult, error)

	// TranscribeSegment re-transcribes the span [startMs, endMs] of the audio
	// file at audioPath. Implementations extract the padded span via
	// [github.com/MrWong99/transcriptorch/pkg/audio/segment] before sending
	// it to the backend, and re-anchor the returned word timestamps by
	// adding back the span's original start time (minus the padding) so
	// that the result lines up with the primary transcript's timeline.
	TranscribeSegment(ctx context.Context, audioPath string, startMs, endMs int, language string) (*transcript.TranscriptionResult, error)
}
