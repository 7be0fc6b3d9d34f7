package whisper

import (
	"math"
	"testing"
)

func TestLogprobToConfidence(t *testing.T) {
	cases := []struct {
		logProb float64
		want    float64
		delta   float64
	}{
		{0.0, 0.73, 0.02},
		{-0.5, 0.50, 0.02},
		{-1.0, 0.27, 0.05},
	}
	for _, c := range cases {
		got := logprobToConfidence(c.logProb)
		if math.Abs(got-c.want) > c.delta {
			t.Errorf("logprobToConfidence(%v) = %v, want ~%v", c.logProb, got, c.want)
		}
	}
}

func TestLogprobToConfidence_Clamped(t *testing.T) {
	if got := logprobToConfidence(10); got > 1 {
		t.Errorf("expected clamp to 1, got %v", got)
	}
	if got := logprobToConfidence(-10); got < 0 {
		t.Errorf("expected clamp to 0, got %v", got)
	}
}

func TestVocabularyPrompt(t *testing.T) {
	if got := vocabularyPrompt(nil); got != "" {
		t.Errorf("expected empty prompt, got %q", got)
	}
	got := vocabularyPrompt([]string{"hypertension", "diabetes"})
	want := "Medical terms: hypertension, diabetes. "
	if got != want {
		t.Errorf("vocabularyPrompt = %q, want %q", got, want)
	}
}

func TestWordsFromText(t *testing.T) {
	words := wordsFromText("the patient has hypertension", 1000, 3000, 0.7)
	if len(words) != 4 {
		t.Fatalf("len = %d, want 4", len(words))
	}
	if words[0].StartMs != 1000 {
		t.Errorf("first word start = %d, want 1000", words[0].StartMs)
	}
	if words[3].EndMs != 3000 {
		t.Errorf("last word end = %d, want 3000", words[3].EndMs)
	}
	for _, w := range words {
		if w.Confidence != 0.7 {
			t.Errorf("confidence = %v, want 0.7", w.Confidence)
		}
	}
}

func TestWordsFromText_Empty(t *testing.T) {
	if words := wordsFromText("   ", 0, 1000, 0.5); words != nil {
		t.Errorf("expected nil, got %v", words)
	}
}

func TestReanchor(t *testing.T) {
	words := wordsFromText("a b", 0, 200, 0.9)
	out := reanchor(words, 500)
	if out[0].StartMs != 500 || out[1].EndMs != 700 {
		t.Errorf("unexpected reanchored words: %+v", out)
	}
}

func TestSegmentOffset(t *testing.T) {
	if got := segmentOffset(50); got != 0 {
		t.Errorf("segmentOffset(50) = %d, want 0", got)
	}
	if got := segmentOffset(500); got != 400 {
		t.Errorf("segmentOffset(500) = %d, want 400", got)
	}
}
