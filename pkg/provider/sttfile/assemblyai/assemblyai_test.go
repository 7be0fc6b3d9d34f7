package assemblyai

import (
	"encoding/json"
	"testing"
)

const sampleTranscriptJSON = `{
	"status": "completed",
	"text": "the patient has hypertension",
	"language_code": "en",
	"words": [
		{"text": "the", "start": 0, "end": 200, "confidence": 0.95},
		{"text": "patient", "start": 200, "end": 600, "confidence": 0.4}
	]
}`

func TestTranscriptResponse_ToResult(t *testing.T) {
	var tr transcriptResponse
	if err := json.Unmarshal([]byte(sampleTranscriptJSON), &tr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	result := tr.toResult()
	if result.FullText != "the patient has hypertension" {
		t.Errorf("FullText = %q", result.FullText)
	}
	if len(result.Words) != 2 {
		t.Fatalf("Words len = %d, want 2", len(result.Words))
	}
	if result.Words[1].StartMs != 200 || result.Words[1].EndMs != 600 {
		t.Errorf("unexpected word timing: %+v", result.Words[1])
	}
	wantOverall := (0.95 + 0.4) / 2
	if result.OverallConfidence != wantOverall {
		t.Errorf("OverallConfidence = %v, want %v", result.OverallConfidence, wantOverall)
	}
	if result.DurationMs != 600 {
		t.Errorf("DurationMs = %d, want 600", result.DurationMs)
	}
	if result.Language != "en" {
		t.Errorf("Language = %q, want en", result.Language)
	}
}

func TestTranscriptResponse_ToResult_NoWords(t *testing.T) {
	var tr transcriptResponse
	tr.Status = "completed"
	tr.Text = ""
	tr.AudioDuration = 2.0
	result := tr.toResult()
	if result.DurationMs != 2000 {
		t.Errorf("DurationMs = %d, want 2000", result.DurationMs)
	}
	if result.OverallConfidence != 0 {
		t.Errorf("OverallConfidence = %v, want 0", result.OverallConfidence)
	}
	if result.Language != "en" {
		t.Errorf("Language defaults to en, got %q", result.Language)
	}
}
