package transcript_test

import (
	"testing"

	"github.com/MrWong99/transcriptorch/pkg/transcript"
)

func words() []transcript.Word {
	return []transcript.Word{
		{Text: "the", StartMs: 0, EndMs: 200, Confidence: 0.95},
		{Text: "patient", StartMs: 200, EndMs: 600, Confidence: 0.4},
		{Text: "has", StartMs: 600, EndMs: 800, Confidence: 0.9},
		{Text: "hypertension", StartMs: 800, EndMs: 1500, Confidence: 0.3},
	}
}

func TestWord_DurationMs(t *testing.T) {
	w := transcript.Word{StartMs: 100, EndMs: 350}
	if got := w.DurationMs(); got != 250 {
		t.Errorf("DurationMs() = %d, want 250", got)
	}
}

func TestWord_IsLowConfidence(t *testing.T) {
	w := transcript.Word{Confidence: 0.5}
	if !w.IsLowConfidence(0.75) {
		t.Error("expected 0.5 to be low confidence at threshold 0.75")
	}
	if w.IsLowConfidence(0.4) {
		t.Error("expected 0.5 to not be low confidence at threshold 0.4")
	}
}

func TestTranscriptionResult_WordsInRange(t *testing.T) {
	r := transcript.TranscriptionResult{Words: words()}
	got := r.WordsInRange(200, 800)
	if len(got) != 2 {
		t.Fatalf("WordsInRange len = %d, want 2", len(got))
	}
	if got[0].Text != "patient" || got[1].Text != "has" {
		t.Errorf("unexpected words: %+v", got)
	}
}

func TestTranscriptionResult_TextInRange(t *testing.T) {
	r := transcript.TranscriptionResult{Words: words()}
	if got := r.TextInRange(0, 800); got != "the patient has" {
		t.Errorf("TextInRange = %q, want %q", got, "the patient has")
	}
}

func TestTranscriptionResult_ContextBefore(t *testing.T) {
	r := transcript.TranscriptionResult{Words: words()}
	got := r.ContextBefore(800, 2)
	if got != "patient has" {
		t.Errorf("ContextBefore = %q, want %q", got, "patient has")
	}
}

func TestTranscriptionResult_ContextBefore_FewerThanRequested(t *testing.T) {
	r := transcript.TranscriptionResult{Words: words()}
	got := r.ContextBefore(800, 50)
	if got != "the patient has" {
		t.Errorf("ContextBefore = %q, want %q", got, "the patient has")
	}
}

func TestTranscriptionResult_ContextAfter(t *testing.T) {
	r := transcript.TranscriptionResult{Words: words()}
	got := r.ContextAfter(600, 2)
	if got != "has hypertension" {
		t.Errorf("ContextAfter = %q, want %q", got, "has hypertension")
	}
}

func TestTranscriptionResult_WordCount(t *testing.T) {
	r := transcript.TranscriptionResult{Words: words()}
	if got := r.WordCount(); got != 4 {
		t.Errorf("WordCount() = %d, want 4", got)
	}
}

func TestUncertainSegment_OriginalText(t *testing.T) {
	seg := transcript.UncertainSegment{OriginalWords: words()[1:3]}
	if got := seg.OriginalText(); got != "patient has" {
		t.Errorf("OriginalText() = %q, want %q", got, "patient has")
	}
}

func TestUncertainSegment_DurationMs(t *testing.T) {
	seg := transcript.UncertainSegment{StartMs: 200, EndMs: 1500}
	if got := seg.DurationMs(); got != 1300 {
		t.Errorf("DurationMs() = %d, want 1300", got)
	}
}

func TestOrchestratorDecision_AllCandidatesText(t *testing.T) {
	d := transcript.OrchestratorDecision{
		Candidates: map[string]transcript.CandidateTranscription{
			"deepgram":   {ModelName: "deepgram", Text: "patient has hypertension"},
			"assemblyai": {ModelName: "assemblyai", Text: "patient has hypertension too"},
		},
	}
	got := d.AllCandidatesText()
	if got["deepgram"] != "patient has hypertension" {
		t.Errorf("deepgram text = %q", got["deepgram"])
	}
	if got["assemblyai"] != "patient has hypertension too" {
		t.Errorf("assemblyai text = %q", got["assemblyai"])
	}
}
