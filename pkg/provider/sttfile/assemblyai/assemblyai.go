// Package assemblyai provides an AssemblyAI-backed sttfile.Provider.
//
// AssemblyAI has no official Go SDK, so this package drives the raw REST
// submit/poll/fetch flow directly: upload the audio bytes, submit a
// transcription request referencing the upload, then poll until the job
// reaches a terminal status.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/MrWong99/transcriptorch/pkg/audio/segment"
	"github.com/MrWong99/transcriptorch/pkg/provider/sttfile"
	"github.com/MrWong99/transcriptorch/pkg/transcript"
)

const defaultBaseURL = "https://api.assemblyai.com/v2"

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithBaseURL overrides the AssemblyAI API base URL, for testing against a
// local fake server.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// WithHTTPClient overrides the http.Client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithPollInterval overrides how often the provider polls for job
// completion. Defaults to 3 seconds.
func WithPollInterval(d time.Duration) Option {
	return func(p *Provider) { p.pollInterval = d }
}

// Provider implements sttfile.Provider backed by AssemblyAI's REST API.
type Provider struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
}

// New creates a new AssemblyAI Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("assemblyai: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		client:       &http.Client{Timeout: 300 * time.Second},
		pollInterval: 3 * time.Second,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name returns "assemblyai".
func (p *Provider) Name() string { return "assemblyai" }

// Transcribe uploads the complete audio file and waits for AssemblyAI to
// finish transcribing it.
func (p *Provider) Transcribe(ctx context.Context, audioPath, language string, enableDiarization bool, vocabularyBoost []string) (*transcript.TranscriptionResult, error) {
	if language == "" {
		language = "en"
	}

	uploadURL, err := p.upload(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("assemblyai: upload: %w", err)
	}

	id, err := p.submit(ctx, uploadURL, language, enableDiarization, vocabularyBoost)
	if err != nil {
		return nil, fmt.Errorf("assemblyai: submit: %w", err)
	}

	t, err := p.poll(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("assemblyai: poll: %w", err)
	}

	return t.toResult(), nil
}

// TranscribeSegment extracts the padded span from audioPath, transcribes it,
// and re-anchors the resulting word timestamps to the original timeline.
func (p *Provider) TranscribeSegment(ctx context.Context, audioPath string, startMs, endMs int, language string) (*transcript.TranscriptionResult, error) {
	segPath, cleanup, err := segment.Extract(audioPath, startMs, endMs, segment.PaddingMs)
	defer cleanup()
	if err != nil {
		return nil, fmt.Errorf("assemblyai: extract segment: %w", err)
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

func (p *Provider) upload(ctx context.Context, audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", audioPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/upload", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", p.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	return out.UploadURL, nil
}

func (p *Provider) submit(ctx context.Context, audioURL, language string, diarize bool, vocabularyBoost []string) (string, error) {
	payload := map[string]any{
		"audio_url":      audioURL,
		"language_code":  language,
		"speaker_labels": diarize,
		"punctuate":      true,
		"format_text":    true,
	}
	if len(vocabularyBoost) > 0 {
		payload["word_boost"] = vocabularyBoost
		payload["boost_param"] = "high"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (p *Provider) poll(ctx context.Context, id string) (*transcriptResponse, error) {
	url := p.baseURL + "/transcript/" + id
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", p.apiKey)

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
		}

		var t transcriptResponse
		if err := json.Unmarshal(body, &t); err != nil {
			return nil, err
		}

		switch t.Status {
		case "completed":
			return &t, nil
		case "error":
			return nil, fmt.Errorf("transcription failed: %s", t.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
}

type transcriptResponse struct {
	Status   string `json:"status"`
	Error    string `json:"error"`
	Text     string `json:"text"`
	Language string `json:"language_code"`
	Words    []struct {
		Text       string  `json:"text"`
		Start      int     `json:"start"`
		End        int     `json:"end"`
		Confidence float64 `json:"confidence"`
		Speaker    string  `json:"speaker"`
	} `json:"words"`
	AudioDuration float64 `json:"audio_duration"`
}

func (t *transcriptResponse) toResult() *transcript.TranscriptionResult {
	lang := t.Language
	if lang == "" {
		lang = "en"
	}

	words := make([]transcript.Word, 0, len(t.Words))
	var confSum float64
	for _, w := range t.Words {
		words = append(words, transcript.Word{
			Text:       w.Text,
			StartMs:    w.Start,
			EndMs:      w.End,
			Confidence: w.Confidence,
			Speaker:    w.Speaker,
		})
		confSum += w.Confidence
	}

	var overall float64
	if len(words) > 0 {
		overall = confSum / float64(len(words))
	}

	durationMs := int(t.AudioDuration * 1000)
	if len(words) > 0 {
		durationMs = words[len(words)-1].EndMs
	}

	return &transcript.TranscriptionResult{
		FullText:          t.Text,
		Words:             words,
		OverallConfidence: overall,
		DurationMs:        durationMs,
		Language:          lang,
		ModelName:         "assemblyai-universal",
	}
}

// Ensure Provider implements sttfile.Provider at compile time.
var _ sttfile.Provider = (*Provider)(nil)
