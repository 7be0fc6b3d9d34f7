// Package deepgram provides a Deepgram-backed sttfile.Provider using
// Deepgram's prerecorded REST API.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/transcriptorch/pkg/audio/segment"
	"github.com/MrWong99/transcriptorch/pkg/provider/sttfile"
	"github.com/MrWong99/transcriptorch/pkg/transcript"
)

const (
	apiURL       = "https://api.deepgram.com/v1/listen"
	defaultModel = "nova-2"
)

var contentTypes = map[string]string{
	".mp3": "audio/mp3",
	".wav": "audio/wav",
	".m4a": "audio/mp4",
	".ogg": "audio/ogg",
}

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use. Defaults to "nova-2".
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithHTTPClient overrides the http.Client used for requests. Defaults to a
// client with a 300-second timeout, matching the reference implementation's
// tolerance for large prerecorded files.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithBaseURL overrides the Deepgram API endpoint, for testing against a
// local fake server.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// Provider implements sttfile.Provider backed by Deepgram's prerecorded
// transcription REST API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: apiURL,
		client:  &http.Client{Timeout: 300 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name returns "deepgram".
func (p *Provider) Name() string { return "deepgram" }

// Transcribe sends the complete audio file to Deepgram's prerecorded API.
func (p *Provider) Transcribe(ctx context.Context, audioPath, language string, enableDiarization bool, vocabularyBoost []string) (*transcript.TranscriptionResult, error) {
	if language == "" {
		language = "en"
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("deepgram: read %q: %w", audioPath, err)
	}

	u, err := p.buildURL(language, enableDiarization, vocabularyBoost)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("deepgram: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Content-Type", contentTypeFor(audioPath))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("deepgram: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deepgram: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("deepgram: decode response: %w", err)
	}

	return parsed.toResult(), nil
}

// TranscribeSegment extracts the padded span from audioPath, transcribes it,
// and re-anchors the resulting word timestamps to the original timeline.
func (p *Provider) TranscribeSegment(ctx context.Context, audioPath string, startMs, endMs int, language string) (*transcript.TranscriptionResult, error) {
	segPath, cleanup, err := segment.Extract(audioPath, startMs, endMs, segment.PaddingMs)
	defer cleanup()
	if err != nil {
		return nil, fmt.Errorf("deepgram: extract segment: %w", err)
	}

	result, err := p.Transcribe(ctx, segPath, language, false, nil)
	if err != nil {
		return nil, err
	}

	offset := startMs - segment.PaddingMs
	if offset < 0 {
		offset = 0
	}
	adjusted := make([]transcript.Word, len(result.Words))
	for i, w := range result.Words {
		w.StartMs += offset
		w.EndMs += offset
		adjusted[i] = w
	}
	result.Words = adjusted
	return result, nil
}

func (p *Provider) buildURL(language string, diarize bool, vocabularyBoost []string) (string, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", language)
	q.Set("punctuate", "true")
	q.Set("diarize", strconv.FormatBool(diarize))
	q.Set("utterances", "true")
	q.Set("smart_format", "true")
	if len(vocabularyBoost) > 0 {
		q.Set("keywords", strings.Join(vocabularyBoost, ","))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func contentTypeFor(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "audio/mp3"
}

// ---- response parsing ----

type response struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
				Words      []struct {
					Word       string  `json:"word"`
					Start      float64 `json:"start"`
					End        float64 `json:"end"`
					Confidence float64 `json:"confidence"`
					Speaker    *int    `json:"speaker"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
		Metadata struct {
			Duration float64 `json:"duration"`
			Language string  `json:"language"`
		} `json:"metadata"`
	} `json:"results"`
}

func (r response) toResult() *transcript.TranscriptionResult {
	lang := r.Results.Metadata.Language
	if lang == "" {
		lang = "en"
	}
	durationMs := int(r.Results.Metadata.Duration * 1000)

	if len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
		return &transcript.TranscriptionResult{Language: lang, ModelName: "deepgram-nova-2"}
	}

	alt := r.Results.Channels[0].Alternatives[0]
	words := make([]transcript.Word, 0, len(alt.Words))
	for _, w := range alt.Words {
		speaker := ""
		if w.Speaker != nil {
			speaker = strconv.Itoa(*w.Speaker)
		}
		words = append(words, transcript.Word{
			Text:       w.Word,
			StartMs:    int(w.Start * 1000),
			EndMs:      int(w.End * 1000),
			Confidence: w.Confidence,
			Speaker:    speaker,
		})
	}

	return &transcript.TranscriptionResult{
		FullText:          alt.Transcript,
		Words:             words,
		OverallConfidence: alt.Confidence,
		DurationMs:        durationMs,
		Language:          lang,
		ModelName:         "deepgram-nova-2",
	}
}

// Ensure Provider implements sttfile.Provider at compile time.
var _ sttfile.Provider = (*Provider)(nil)
