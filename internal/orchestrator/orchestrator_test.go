package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/transcriptorch/pkg/provider/sttfile"
	"github.com/MrWong99/transcriptorch/pkg/provider/sttfile/mock"
	"github.com/MrWong99/transcriptorch/pkg/transcript"
)

// stubJudge returns a fixed decision regardless of input, stamping in the
// segment and candidates it was actually called with.
type stubJudge struct {
	decision  transcript.OrchestratorDecision
	err       error
	calls     int
	lastCands map[string]transcript.CandidateTranscription
}

func (s *stubJudge) Evaluate(_ context.Context, seg transcript.UncertainSegment, candidates map[string]transcript.CandidateTranscription) (transcript.OrchestratorDecision, error) {
	s.calls++
	s.lastCands = candidates
	if s.err != nil {
		return transcript.OrchestratorDecision{}, s.err
	}
	d := s.decision
	d.Segment = seg
	d.Candidates = candidates
	return d, nil
}

func newProviders(primaryResult, segmentResult *transcript.TranscriptionResult) map[string]sttfile.Provider {
	return map[string]sttfile.Provider{
		"deepgram":   &mock.Provider{ProviderName: "deepgram", TranscribeResult: primaryResult, TranscribeSegmentResult: segmentResult},
		"assemblyai": &mock.Provider{ProviderName: "assemblyai", TranscribeSegmentResult: segmentResult},
		"whisper":    &mock.Provider{ProviderName: "whisper", TranscribeSegmentResult: segmentResult},
	}
}

func TestProcessAudio_AllConfident(t *testing.T) {
	primary := &transcript.TranscriptionResult{
		Words: []transcript.Word{
			w("the", 0, 200, 0.9),
			w("patient", 200, 600, 0.92),
			w("well", 600, 900, 0.88),
		},
		DurationMs: 900,
	}

	o := New(newProviders(primary, nil), &stubJudge{})
	final, decisions, err := o.ProcessAudio(context.Background(), "audio.wav", nil)
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}
	if len(decisions) != 0 {
		t.Fatalf("expected no decisions, got %d", len(decisions))
	}
	if len(final.Words) != 3 {
		t.Fatalf("expected final to equal primary (3 words), got %d", len(final.Words))
	}
}

func TestProcessAudio_ShortDipBelowMinimum(t *testing.T) {
	primary := &transcript.TranscriptionResult{
		Words: []transcript.Word{
			w("the", 0, 200, 0.9),
			w("um", 200, 400, 0.4),
			w("patient", 400, 900, 0.9),
		},
		DurationMs: 900,
	}

	o := New(newProviders(primary, nil), &stubJudge{})
	final, decisions, err := o.ProcessAudio(context.Background(), "audio.wav", nil)
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}
	if len(decisions) != 0 {
		t.Fatalf("expected no decisions, got %d", len(decisions))
	}
	if len(final.Words) != 3 {
		t.Fatalf("expected final to equal primary, got %d words", len(final.Words))
	}
}

func TestProcessAudio_JudgeSelectsCandidate(t *testing.T) {
	primary := &transcript.TranscriptionResult{
		Words: []transcript.Word{
			w("the", 0, 500, 0.9),
			w("patient", 500, 1200, 0.4),
			w("ok", 1200, 2000, 0.9),
		},
		DurationMs: 2000,
	}

	candidateWordsList := []transcript.Word{
		w("the", 500, 800, 0.55),
		w("patient", 800, 1200, 0.55),
	}
	segResult := &transcript.TranscriptionResult{FullText: "the patient", OverallConfidence: 0.55, Words: candidateWordsList}

	providers := newProviders(primary, segResult)

	j := &stubJudge{decision: transcript.OrchestratorDecision{
		ChosenSource:    "assemblyai",
		FinalText:       "the patient",
		ConfidenceBoost: 0.9,
	}}

	o := New(providers, j)
	final, decisions, err := o.ProcessAudio(context.Background(), "audio.wav", nil)
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(decisions))
	}
	if decisions[0].WasSynthesized {
		t.Error("expected WasSynthesized = false")
	}

	for _, word := range final.Words {
		if word.StartMs >= 500 && word.EndMs <= 1200 {
			if word.Confidence != 0.9 {
				t.Errorf("expected replaced word confidence 0.9, got %v", word.Confidence)
			}
		}
	}
}

func TestProcessAudio_JudgeSynthesizes(t *testing.T) {
	primary := &transcript.TranscriptionResult{
		Words: []transcript.Word{
			w("the", 0, 500, 0.9),
			w("xyz", 500, 1700, 0.3),
			w("ok", 1700, 2000, 0.9),
		},
		DurationMs: 2000,
	}

	j := &stubJudge{decision: transcript.OrchestratorDecision{
		ChosenSource:           "synthesized",
		FinalText:              "blood pressure one forty over ninety",
		ConfidenceBoost:        0.7,
		WasSynthesized:         true,
		SynthesisJustification: "all candidates nonsensical",
	}}

	o := New(newProviders(primary, &transcript.TranscriptionResult{}), j)
	final, decisions, err := o.ProcessAudio(context.Background(), "audio.wav", nil)
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(decisions))
	}
	if decisions[0].SynthesisJustification == "" {
		t.Error("expected non-empty SynthesisJustification")
	}

	var synthesized []transcript.Word
	for _, word := range final.Words {
		if word.StartMs >= 500 && word.EndMs <= 1700 {
			synthesized = append(synthesized, word)
		}
	}
	if len(synthesized) != 6 {
		t.Fatalf("expected 6 synthesized words, got %d", len(synthesized))
	}
	for _, word := range synthesized {
		if word.Confidence != 0.7 {
			t.Errorf("expected confidence 0.7, got %v", word.Confidence)
		}
	}
}

func TestProcessAudio_ProviderFailureTolerated(t *testing.T) {
	primary := &transcript.TranscriptionResult{
		Words: []transcript.Word{
			w("the", 0, 500, 0.9),
			w("patient", 500, 1200, 0.4),
			w("ok", 1200, 2000, 0.9),
		},
		DurationMs: 2000,
	}

	providers := newProviders(primary, &transcript.TranscriptionResult{FullText: "the patient", Words: []transcript.Word{w("the", 500, 1200, 0.5)}})
	providers["whisper"] = &mock.Provider{ProviderName: "whisper", TranscribeSegmentErr: errors.New("upstream down")}

	j := &stubJudge{decision: transcript.OrchestratorDecision{ChosenSource: "deepgram", FinalText: "the patient", ConfidenceBoost: 0.8}}

	o := New(providers, j)
	_, decisions, err := o.ProcessAudio(context.Background(), "audio.wav", nil)
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(decisions))
	}
	if _, ok := j.lastCands["whisper"]; ok {
		t.Error("expected whisper to be absent from candidates")
	}
	if _, ok := j.lastCands["deepgram"]; !ok {
		t.Error("expected deepgram to still be present")
	}
}

func TestProcessAudio_PrimaryFailureIsFatal(t *testing.T) {
	providers := map[string]sttfile.Provider{
		"deepgram": &mock.Provider{ProviderName: "deepgram", TranscribeErr: errors.New("quota exceeded")},
	}
	o := New(providers, &stubJudge{})
	_, _, err := o.ProcessAudio(context.Background(), "audio.wav", nil)
	if err == nil {
		t.Fatal("expected primary failure to fail the run")
	}
}

func TestProcessAudio_DecisionsOrderedBySegmentStart(t *testing.T) {
	primary := &transcript.TranscriptionResult{
		Words: []transcript.Word{
			w("a", 0, 500, 0.3),
			w("b", 500, 1600, 0.9),
			w("c", 1600, 2100, 0.3),
			w("d", 2100, 3200, 0.9),
		},
		DurationMs: 3200,
	}

	o := New(newProviders(primary, &transcript.TranscriptionResult{}), &stubJudge{decision: transcript.OrchestratorDecision{ChosenSource: "deepgram", FinalText: "x", ConfidenceBoost: 0.8}}, WithSegmentConcurrency(4))
	_, decisions, err := o.ProcessAudio(context.Background(), "audio.wav", nil)
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}
	for i := 1; i < len(decisions); i++ {
		if decisions[i-1].Segment.StartMs > decisions[i].Segment.StartMs {
			t.Fatalf("decisions not ordered by segment start: %+v", decisions)
		}
	}
}
