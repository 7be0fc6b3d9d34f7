package segment

import (
	"errors"
	"testing"
)

func TestExtract_RejectsNonWAV(t *testing.T) {
	_, cleanup, err := Extract("recording.mp3", 0, 1000, PaddingMs)
	defer cleanup()
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtract_MissingFile(t *testing.T) {
	_, cleanup, err := Extract("/nonexistent/path/audio.wav", 0, 1000, PaddingMs)
	defer cleanup()
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestMsToFrame(t *testing.T) {
	cases := []struct {
		ms, rate, want int
	}{
		{1000, 16000, 16000},
		{500, 16000, 8000},
		{0, 16000, 0},
		{1500, 48000, 72000},
	}
	for _, c := range cases {
		if got := msToFrame(c.ms, c.rate); got != c.want {
			t.Errorf("msToFrame(%d, %d) = %d, want %d", c.ms, c.rate, got, c.want)
		}
	}
}

func TestFramesToPCM16_Mono(t *testing.T) {
	samples := []int{100, -100, 32000}
	out := framesToPCM16(samples, 1)
	if len(out) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(out))
	}
	if out[0] != 100 || out[1] != -100 {
		t.Errorf("unexpected samples: %v", out)
	}
}

func TestFramesToPCM16_StereoDownmixesToMono(t *testing.T) {
	// Two stereo frames: (100,200) and (-100,-200).
	samples := []int{100, 200, -100, -200}
	out := framesToPCM16(samples, 2)
	// 2 stereo frames -> 2 mono samples.
	if len(out) != 2 {
		t.Fatalf("expected 2 samples after downmix, got %d", len(out))
	}
}
