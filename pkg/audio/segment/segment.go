// Package segment extracts short, padded audio clips from a WAV source file
// for re-transcription by STT provider adapters. Extraction produces a
// short-lived MP3 artifact; callers are responsible for releasing it via the
// returned cleanup function.
package segment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	wavdec "github.com/go-audio/wav"

	"github.com/braheezy/shine-mp3/pkg/mp3"

	"github.com/MrWong99/transcriptorch/pkg/audio"
)

// PaddingMs is the amount of audio padding added on either side of a
// requested span before re-transcription. Vendors degrade accuracy near
// segment edges; padding does not shift the timestamps the caller re-anchors
// against the original audio axis.
const PaddingMs = 100

// ErrUnsupportedFormat is returned when audioPath does not name a WAV file.
// Transcoding other containers is an external collaborator's responsibility.
var ErrUnsupportedFormat = errors.New("segment: unsupported source audio format")

// Extract decodes the WAV file at audioPath and writes the span
// [max(0, startMs-paddingMs), min(duration, endMs+paddingMs)] to a temporary
// MP3 file, returning its path and a cleanup function that removes it. The
// cleanup function is always non-nil and safe to call even when Extract
// returns an error (it is then a no-op), so callers can unconditionally
// `defer cleanup()` immediately after the call.
func Extract(audioPath string, startMs, endMs, paddingMs int) (mp3Path string, cleanup func(), err error) {
	noop := func() {}

	if !strings.EqualFold(filepath.Ext(audioPath), ".wav") {
		return "", noop, fmt.Errorf("%w: %s", ErrUnsupportedFormat, audioPath)
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return "", noop, fmt.Errorf("segment: open %q: %w", audioPath, err)
	}
	defer f.Close()

	dec := wavdec.NewDecoder(f)
	if !dec.IsValidFile() {
		return "", noop, fmt.Errorf("%w: %s is not a valid WAV file", ErrUnsupportedFormat, audioPath)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return "", noop, fmt.Errorf("segment: decode %q: %w", audioPath, err)
	}

	sampleRate := buf.Format.SampleRate
	channels := buf.Format.NumChannels
	if sampleRate <= 0 || channels <= 0 {
		return "", noop, fmt.Errorf("segment: %q has invalid format (rate=%d, channels=%d)", audioPath, sampleRate, channels)
	}

	totalFrames := len(buf.Data) / channels
	durationMs := int(int64(totalFrames) * 1000 / int64(sampleRate))

	start := startMs - paddingMs
	if start < 0 {
		start = 0
	}
	end := endMs + paddingMs
	if end > durationMs {
		end = durationMs
	}
	if end < start {
		end = start
	}

	startFrame := msToFrame(start, sampleRate)
	endFrame := msToFrame(end, sampleRate)
	if endFrame > totalFrames {
		endFrame = totalFrames
	}

	pcm := framesToPCM16(buf.Data[startFrame*channels:endFrame*channels], channels)

	tmp, err := os.CreateTemp("", "segment-*.mp3")
	if err != nil {
		return "", noop, fmt.Errorf("segment: create temp file: %w", err)
	}
	cleanup = func() { os.Remove(tmp.Name()) }

	encodeMP3(tmp, pcm, sampleRate)

	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("segment: close temp file: %w", err)
	}

	return tmp.Name(), cleanup, nil
}

func msToFrame(ms, sampleRate int) int {
	return int(int64(ms) * int64(sampleRate) / 1000)
}

// framesToPCM16 converts decoded int samples (one int per channel sample, as
// returned by go-audio's IntBuffer) into int16 PCM, downmixing to mono when
// the source is stereo so every adapter sees a consistent mono 16-bit stream.
func framesToPCM16(samples []int, channels int) []int16 {
	if channels != 2 {
		out := make([]int16, len(samples))
		for i, s := range samples {
			out[i] = int16(s)
		}
		return out
	}

	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(s)
		raw[i*2] = byte(v)
		raw[i*2+1] = byte(v >> 8)
	}
	mono := audio.StereoToMono(raw)

	out := make([]int16, len(mono)/2)
	for i := range out {
		out[i] = int16(mono[i*2]) | int16(mono[i*2+1])<<8
	}
	return out
}

// mp3BlockSamples is the number of samples per channel shine's MPEG-1 Layer
// III encoder consumes per block.
const mp3BlockSamples = 1152

// encodeMP3 encodes mono 16-bit PCM to MPEG-1 Layer III and writes it to w,
// zero-padding the final partial block.
func encodeMP3(w *os.File, pcm []int16, sampleRate int) {
	enc := mp3.NewEncoder(sampleRate, 1)

	for len(pcm)%mp3BlockSamples != 0 {
		pcm = append(pcm, 0)
	}
	enc.Write(w, pcm)
}
