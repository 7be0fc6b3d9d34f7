// Package mock provides a test double for the sttfile.Provider interface.
//
// Use Provider to feed controlled [transcript.TranscriptionResult] values
// without a live STT backend and to verify the orchestrator calls
// Transcribe/TranscribeSegment with the expected arguments.
//
// Example:
//
//	p := &mock.Provider{
//	    ProviderName:         "deepgram",
//	    TranscribeSegmentResult: &transcript.TranscriptionResult{FullText: "hypertension"},
//	}
//	result, _ := p.TranscribeSegment(ctx, "audio.wav", 200, 600, "en")
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/transcriptorch/pkg/provider/sttfile"
	"github.com/MrWong99/transcriptorch/pkg/transcript"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	AudioPath         string
	Language          string
	EnableDiarization bool
	VocabularyBoost   []string
}

// TranscribeSegmentCall records a single invocation of TranscribeSegment.
type TranscribeSegmentCall struct {
	AudioPath string
	StartMs   int
	EndMs     int
	Language  string
}

// Provider is a mock implementation of sttfile.Provider.
type Provider struct {
	mu sync.Mutex

	// ProviderName is returned by Name. Defaults to "mock" if empty.
	ProviderName string

	// TranscribeResult is returned by Transcribe.
	TranscribeResult *transcript.TranscriptionResult
	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// TranscribeSegmentResult is returned by TranscribeSegment.
	TranscribeSegmentResult *transcript.TranscriptionResult
	// TranscribeSegmentErr, if non-nil, is returned as the error from
	// TranscribeSegment.
	TranscribeSegmentErr error

	// TranscribeCalls records every invocation of Transcribe in order.
	TranscribeCalls []TranscribeCall
	// TranscribeSegmentCalls records every invocation of TranscribeSegment in
	// order.
	TranscribeSegmentCalls []TranscribeSegmentCall
}

// Name returns ProviderName, or "mock" if it is unset.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Transcribe records the call and returns TranscribeResult, TranscribeErr.
func (p *Provider) Transcribe(_ context.Context, audioPath, language string, enableDiarization bool, vocabularyBoost []string) (*transcript.TranscriptionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	vb := make([]string, len(vocabularyBoost))
	copy(vb, vocabularyBoost)
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{
		AudioPath:         audioPath,
		Language:          language,
		EnableDiarization: enableDiarization,
		VocabularyBoost:   vb,
	})
	return p.TranscribeResult, p.TranscribeErr
}

// TranscribeSegment records the call and returns TranscribeSegmentResult,
// TranscribeSegmentErr.
func (p *Provider) TranscribeSegment(_ context.Context, audioPath string, startMs, endMs int, language string) (*transcript.TranscriptionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeSegmentCalls = append(p.TranscribeSegmentCalls, TranscribeSegmentCall{
		AudioPath: audioPath,
		StartMs:   startMs,
		EndMs:     endMs,
		Language:  language,
	})
	return p.TranscribeSegmentResult, p.TranscribeSegmentErr
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = nil
	p.TranscribeSegmentCalls = nil
}

// Ensure Provider implements sttfile.Provider at compile time.
var _ sttfile.Provider = (*Provider)(nil)
