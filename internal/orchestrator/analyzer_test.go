package orchestrator

import (
	"testing"

	"github.com/MrWong99/transcriptorch/pkg/transcript"
)

func w(text string, startMs, endMs int, confidence float64) transcript.Word {
	return transcript.Word{Text: text, StartMs: startMs, EndMs: endMs, Confidence: confidence}
}

func TestAnalyzer_AllConfident_NoSegments(t *testing.T) {
	result := transcript.TranscriptionResult{Words: []transcript.Word{
		w("the", 0, 200, 0.95),
		w("patient", 200, 600, 0.92),
		w("has", 600, 800, 0.9),
	}}

	segments := NewAnalyzer().Analyze(result)
	if len(segments) != 0 {
		t.Fatalf("expected no segments, got %d", len(segments))
	}
}

func TestAnalyzer_ShortDip_DiscardedBelowMinimum(t *testing.T) {
	result := transcript.TranscriptionResult{Words: []transcript.Word{
		w("the", 0, 200, 0.95),
		w("um", 200, 350, 0.3),
		w("patient", 350, 800, 0.9),
	}}

	segments := NewAnalyzer().Analyze(result)
	if len(segments) != 0 {
		t.Fatalf("expected short dip to be discarded, got %d segments", len(segments))
	}
}

func TestAnalyzer_SingleValidUncertainRun(t *testing.T) {
	result := transcript.TranscriptionResult{Words: []transcript.Word{
		w("the", 0, 200, 0.95),
		w("patient", 200, 900, 0.4),
		w("has", 900, 1100, 0.95),
	}}

	segments := NewAnalyzer().Analyze(result)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].StartMs != 200 || segments[0].EndMs != 900 {
		t.Errorf("unexpected segment span: %+v", segments[0])
	}
	if segments[0].ContextBefore != "the" {
		t.Errorf("ContextBefore = %q, want %q", segments[0].ContextBefore, "the")
	}
	if segments[0].ContextAfter != "has" {
		t.Errorf("ContextAfter = %q, want %q", segments[0].ContextAfter, "has")
	}
}

func TestAnalyzer_ConfidenceEqualToThresholdIsConfident(t *testing.T) {
	result := transcript.TranscriptionResult{Words: []transcript.Word{
		w("the", 0, 800, 0.75),
	}}

	segments := NewAnalyzer().Analyze(result)
	if len(segments) != 0 {
		t.Fatalf("expected threshold-equal word to be confident, got %d segments", len(segments))
	}
}

func TestAnalyzer_MergesAcrossSmallGap(t *testing.T) {
	result := transcript.TranscriptionResult{Words: []transcript.Word{
		w("the", 0, 700, 0.3),
		w("ok", 700, 1200, 0.95),
		w("patient", 1200, 1900, 0.4),
	}}

	segments := NewAnalyzer(WithMergeGapMs(1000)).Analyze(result)
	if len(segments) != 1 {
		t.Fatalf("expected merged single segment, got %d", len(segments))
	}
	if segments[0].StartMs != 0 || segments[0].EndMs != 1900 {
		t.Errorf("unexpected merged span: %+v", segments[0])
	}
	if len(segments[0].OriginalWords) != 2 {
		t.Errorf("expected 2 words carried into merge, got %d", len(segments[0].OriginalWords))
	}
}

func TestAnalyzer_DoesNotMergeAcrossLargeGap(t *testing.T) {
	result := transcript.TranscriptionResult{Words: []transcript.Word{
		w("the", 0, 700, 0.3),
		w("ok", 700, 3000, 0.95),
		w("patient", 3000, 3700, 0.4),
	}}

	segments := NewAnalyzer(WithMergeGapMs(1000)).Analyze(result)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
}

func TestAnalyzer_SplitsOverlongSegment(t *testing.T) {
	var words []transcript.Word
	for i := 0; i < 30; i++ {
		start := i * 1000
		words = append(words, w("word", start, start+1000, 0.3))
	}
	result := transcript.TranscriptionResult{Words: words}

	segments := NewAnalyzer(WithMaxSegmentMs(10000)).Analyze(result)
	if len(segments) < 3 {
		t.Fatalf("expected overlong run to be split into multiple segments, got %d", len(segments))
	}
	for _, seg := range segments {
		if seg.DurationMs() > 10000 {
			t.Errorf("segment exceeds max duration: %+v", seg)
		}
	}
}

func TestAnalyzer_EmptyTranscript(t *testing.T) {
	segments := NewAnalyzer().Analyze(transcript.TranscriptionResult{})
	if segments != nil {
		t.Errorf("expected nil segments for empty transcript, got %v", segments)
	}
}

func TestAnalyzer_Statistics(t *testing.T) {
	result := transcript.TranscriptionResult{Words: []transcript.Word{
		w("the", 0, 200, 0.95),
		w("patient", 200, 600, 0.4),
		w("has", 600, 800, 0.9),
		w("hypertension", 800, 1500, 0.3),
	}}

	stats := NewAnalyzer().Statistics(result)
	if stats.TotalWords != 4 {
		t.Errorf("TotalWords = %d, want 4", stats.TotalWords)
	}
	if stats.LowConfidenceWords != 2 {
		t.Errorf("LowConfidenceWords = %d, want 2", stats.LowConfidenceWords)
	}
	if stats.MinConfidence != 0.3 {
		t.Errorf("MinConfidence = %v, want 0.3", stats.MinConfidence)
	}
	if stats.MaxConfidence != 0.95 {
		t.Errorf("MaxConfidence = %v, want 0.95", stats.MaxConfidence)
	}
}

func TestAnalyzer_Statistics_EmptyTranscript(t *testing.T) {
	stats := NewAnalyzer().Statistics(transcript.TranscriptionResult{})
	if stats.TotalWords != 0 || stats.AverageConfidence != 0 {
		t.Errorf("expected zero-valued statistics, got %+v", stats)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	if got := normalizeWhitespace("  the   patient  has  "); got != "the patient has" {
		t.Errorf("normalizeWhitespace = %q", got)
	}
}
