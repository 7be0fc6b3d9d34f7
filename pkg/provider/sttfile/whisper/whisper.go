// Package whisper provides two sttfile.Provider implementations backed by
// OpenAI's Whisper model: Native, which runs inference locally through
// whisper.cpp's Go bindings, and Hosted, which calls OpenAI's hosted
// transcription API. Both share the same avg_logprob-to-confidence
// transform, since Whisper never reports word-level confidence directly.
package whisper

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	wavdec "github.com/go-audio/wav"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/transcriptorch/pkg/audio"
	"github.com/MrWong99/transcriptorch/pkg/audio/segment"
	"github.com/MrWong99/transcriptorch/pkg/provider/sttfile"
	"github.com/MrWong99/transcriptorch/pkg/transcript"
)

const defaultLanguage = "en"

// whisperSampleRate is the sample rate whisper.cpp's Process expects. Any
// input WAV reporting a different rate is resampled before inference.
const whisperSampleRate = 16000

// logprobToConfidence converts Whisper's avg_logprob (typically in
// [-1.0, 0.0], higher is more confident) to a [0, 1] confidence score using a
// sigmoid-shaped transform: 0 maps to ~0.73, -0.5 to 0.50, -1.0 to ~0.27.
func logprobToConfidence(avgLogProb float64) float64 {
	c := 1.0 / (1.0 + math.Exp(-2*(avgLogProb+0.5)))
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func vocabularyPrompt(vocabularyBoost []string) string {
	if len(vocabularyBoost) == 0 {
		return ""
	}
	return fmt.Sprintf("Medical terms: %s. ", strings.Join(vocabularyBoost, ", "))
}

func wordsFromText(text string, startMs, endMs int, confidence float64) []transcript.Word {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return nil
	}
	span := endMs - startMs
	if span < 0 {
		span = 0
	}
	step := float64(span) / float64(len(parts))
	words := make([]transcript.Word, len(parts))
	for i, w := range parts {
		ws := startMs + int(float64(i)*step)
		we := startMs + int(float64(i+1)*step)
		words[i] = transcript.Word{Text: w, StartMs: ws, EndMs: we, Confidence: confidence}
	}
	return words
}

func reanchor(words []transcript.Word, offsetMs int) []transcript.Word {
	out := make([]transcript.Word, len(words))
	for i, w := range words {
		w.StartMs += offsetMs
		w.EndMs += offsetMs
		out[i] = w
	}
	return out
}

func segmentOffset(startMs int) int {
	offset := startMs - segment.PaddingMs
	if offset < 0 {
		offset = 0
	}
	return offset
}

// ---- Native ----

// NativeOption is a functional option for configuring a Native provider.
type NativeOption func(*Native)

// WithNativeLanguage sets the default BCP-47 language code. Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(n *Native) { n.language = lang }
}

// Native implements sttfile.Provider using whisper.cpp's Go bindings
// (CGO), running inference locally with no network round trip.
type Native struct {
	model    whisperlib.Model
	language string
}

// NewNative loads the whisper.cpp model at modelPath and returns a Native
// provider backed by it. The caller must call Close when done.
func NewNative(modelPath string, opts ...NativeOption) (*Native, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	n := &Native{model: model, language: defaultLanguage}
	for _, o := range opts {
		o(n)
	}
	return n, nil
}

// Close releases the whisper.cpp model.
func (n *Native) Close() error {
	if n.model != nil {
		return n.model.Close()
	}
	return nil
}

// Name returns "whisper".
func (n *Native) Name() string { return "whisper" }

// Transcribe decodes the WAV file at audioPath to mono float32 PCM and runs
// local whisper.cpp inference on it. vocabularyBoost is not applied: no
// prompt is passed to whisper.cpp, so only the Hosted provider uses the
// vocabulary. enableDiarization is ignored since whisper.cpp does not
// support speaker labels.
func (n *Native) Transcribe(_ context.Context, audioPath, language string, _ bool, vocabularyBoost []string) (*transcript.TranscriptionResult, error) {
	if language == "" {
		language = n.language
	}

	samples, durationMs, err := decodeWAVToMonoFloat32(audioPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}

	wctx, err := n.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("whisper: set language %q: %w", language, err)
	}
	_ = vocabularyPrompt(vocabularyBoost) // whisper.cpp's Go bindings accept no prompt parameter.

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper: process audio: %w", err)
	}

	var (
		fullText strings.Builder
		words    []transcript.Word
		confSum  float64
		confN    int
	)
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if fullText.Len() > 0 {
			fullText.WriteByte(' ')
		}
		fullText.WriteString(text)

		startMs := int(seg.Start.Milliseconds())
		endMs := int(seg.End.Milliseconds())
		confidence := logprobToConfidence(-0.5)
		words = append(words, wordsFromText(text, startMs, endMs, confidence)...)
		confSum += confidence
		confN++
	}

	var overall float64
	if confN > 0 {
		overall = confSum / float64(confN)
	}

	return &transcript.TranscriptionResult{
		FullText:          fullText.String(),
		Words:             words,
		OverallConfidence: overall,
		DurationMs:        durationMs,
		Language:          language,
		ModelName:         "whisper-native",
	}, nil
}

// TranscribeSegment extracts the padded span from audioPath, transcribes it,
// and re-anchors the resulting word timestamps to the original timeline.
func (n *Native) TranscribeSegment(ctx context.Context, audioPath string, startMs, endMs int, language string) (*transcript.TranscriptionResult, error) {
	segPath, cleanup, err := segment.Extract(audioPath, startMs, endMs, segment.PaddingMs)
	defer cleanup()
	if err != nil {
		return nil, fmt.Errorf("whisper: extract segment: %w", err)
	}

	result, err := n.Transcribe(ctx, segPath, language, false, nil)
	if err != nil {
		return nil, err
	}
	result.Words = reanchor(result.Words, segmentOffset(startMs))
	return result, nil
}

func decodeWAVToMonoFloat32(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	dec := wavdec.NewDecoder(bufio.NewReader(f))
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%q is not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode %q: %w", path, err)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	sampleRate := buf.Format.SampleRate
	if sampleRate <= 0 {
		sampleRate = whisperSampleRate
	}

	frames := len(buf.Data) / channels
	pcm := make([]byte, frames*2)
	for i := range frames {
		var sum int
		for ch := range channels {
			sum += buf.Data[i*channels+ch]
		}
		mono := int16(sum / channels)
		pcm[i*2] = byte(mono)
		pcm[i*2+1] = byte(mono >> 8)
	}

	if sampleRate != whisperSampleRate {
		pcm = audio.ResampleMono16(pcm, sampleRate, whisperSampleRate)
		sampleRate = whisperSampleRate
	}

	frames = len(pcm) / 2
	samples := make([]float32, frames)
	for i := range frames {
		v := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		samples[i] = float32(v) / 32768.0
	}

	durationMs := frames * 1000 / sampleRate
	return samples, durationMs, nil
}

// Ensure Native implements sttfile.Provider at compile time.
var _ sttfile.Provider = (*Native)(nil)

// ---- Hosted ----

// HostedOption is a functional option for configuring a Hosted provider.
type HostedOption func(*Hosted)

// WithHostedBaseURL overrides the OpenAI API base URL.
func WithHostedBaseURL(url string) HostedOption {
	return func(h *Hosted) { h.baseURL = url }
}

// Hosted implements sttfile.Provider using OpenAI's hosted
// audio.transcriptions endpoint.
type Hosted struct {
	client  oai.Client
	baseURL string
}

// NewHosted constructs a Hosted provider. apiKey must be non-empty.
func NewHosted(apiKey string, opts ...HostedOption) (*Hosted, error) {
	if apiKey == "" {
		return nil, errors.New("whisper: apiKey must not be empty")
	}
	h := &Hosted{}
	for _, o := range opts {
		o(h)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if h.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(h.baseURL))
	}
	h.client = oai.NewClient(reqOpts...)
	return h, nil
}

// Name returns "whisper".
func (h *Hosted) Name() string { return "whisper" }

// Transcribe uploads the complete audio file to OpenAI's hosted Whisper
// endpoint, requesting word- and segment-level timestamps via
// verbose_json, and folds vocabularyBoost into the recognition prompt.
func (h *Hosted) Transcribe(ctx context.Context, audioPath, language string, _ bool, vocabularyBoost []string) (*transcript.TranscriptionResult, error) {
	if language == "" {
		language = defaultLanguage
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: open %q: %w", audioPath, err)
	}
	defer f.Close()

	params := oai.AudioTranscriptionNewParams{
		File:                   f,
		Model:                  oai.AudioModelWhisper1,
		Language:               oai.String(language),
		ResponseFormat:         oai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"word", "segment"},
	}
	if prompt := vocabularyPrompt(vocabularyBoost); prompt != "" {
		params.Prompt = oai.String(prompt)
	}

	resp, err := h.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("whisper: transcribe: %w", err)
	}

	return parseHostedResponse(resp, language), nil
}

// TranscribeSegment extracts the padded span from audioPath, transcribes it,
// and re-anchors the resulting word timestamps to the original timeline.
func (h *Hosted) TranscribeSegment(ctx context.Context, audioPath string, startMs, endMs int, language string) (*transcript.TranscriptionResult, error) {
	segPath, cleanup, err := segment.Extract(audioPath, startMs, endMs, segment.PaddingMs)
	defer cleanup()
	if err != nil {
		return nil, fmt.Errorf("whisper: extract segment: %w", err)
	}

	result, err := h.Transcribe(ctx, segPath, language, false, nil)
	if err != nil {
		return nil, err
	}
	result.Words = reanchor(result.Words, segmentOffset(startMs))
	return result, nil
}

func parseHostedResponse(resp *oai.Transcription, language string) *transcript.TranscriptionResult {
	var words []transcript.Word
	var confSum float64
	var confN int

	for _, seg := range resp.Segments {
		segStartMs := int(seg.Start * 1000)
		segEndMs := int(seg.End * 1000)
		confidence := logprobToConfidence(seg.AvgLogprob)
		confSum += confidence
		confN++

		if len(resp.Words) == 0 {
			words = append(words, wordsFromText(strings.TrimSpace(seg.Text), segStartMs, segEndMs, confidence)...)
		}
	}

	if len(resp.Words) > 0 {
		for _, w := range resp.Words {
			confidence := 0.85
			startMs := int(w.Start * 1000)
			endMs := int(w.End * 1000)
			for _, seg := range resp.Segments {
				segStartMs := int(seg.Start * 1000)
				segEndMs := int(seg.End * 1000)
				if startMs >= segStartMs && endMs <= segEndMs {
					confidence = logprobToConfidence(seg.AvgLogprob)
					break
				}
			}
			words = append(words, transcript.Word{
				Text:       strings.TrimSpace(w.Word),
				StartMs:    startMs,
				EndMs:      endMs,
				Confidence: confidence,
			})
		}
	}

	var overall float64
	if len(words) > 0 {
		var sum float64
		for _, w := range words {
			sum += w.Confidence
		}
		overall = sum / float64(len(words))
	} else if confN > 0 {
		overall = confSum / float64(confN)
	} else {
		overall = 0.8
	}

	durationMs := 0
	if len(words) > 0 {
		durationMs = words[len(words)-1].EndMs
	} else if resp.Duration > 0 {
		durationMs = int(resp.Duration * 1000)
	}

	lang := resp.Language
	if lang == "" {
		lang = language
	}

	return &transcript.TranscriptionResult{
		FullText:          strings.TrimSpace(resp.Text),
		Words:             words,
		OverallConfidence: overall,
		DurationMs:        durationMs,
		Language:          lang,
		ModelName:         "whisper-1",
	}
}

// Ensure Hosted implements sttfile.Provider at compile time.
var _ sttfile.Provider = (*Hosted)(nil)
