// Package judge arbitrates between competing transcription candidates for a
// single uncertain segment. It is deliberately biased toward selecting one
// of the candidates over synthesizing new text: synthesis is the last
// resort, used only when every candidate is clearly wrong.
//
// Production wires [LLMJudge], which delegates the decision to a
// [llm.Provider]. Tests substitute a deterministic stub that implements the
// same [Judge] interface.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	llm "github.com/MrWong99/transcriptorch/pkg/provider/llm"
	"github.com/MrWong99/transcriptorch/pkg/transcript"
)

const (
	defaultTemperature      = 0.1
	defaultMaxTokens        = 500
	defaultConfidenceBoost  = 0.8
	fallbackConfidenceDelta = 0.1
)

// Judge evaluates the candidate transcriptions for one uncertain segment and
// returns a structured decision. Implementations must be safe for
// concurrent use — the orchestrator fans out across segments.
type Judge interface {
	Evaluate(ctx context.Context, segment transcript.UncertainSegment, candidates map[string]transcript.CandidateTranscription) (transcript.OrchestratorDecision, error)
}

// Option is a functional option for configuring an [LLMJudge].
type Option func(*LLMJudge)

// WithTemperature overrides the sampling temperature. Default: 0.1.
func WithTemperature(temp float64) Option {
	return func(j *LLMJudge) { j.temperature = temp }
}

// WithMaxTokens overrides the completion token budget. Default: 500.
func WithMaxTokens(max int) Option {
	return func(j *LLMJudge) { j.maxTokens = max }
}

// WithPrimaryProvider sets the provider name used as the coercion target
// when the LLM returns an unrecognized chosen_source, and as the fallback's
// default when no candidate exists. Default: "deepgram".
func WithPrimaryProvider(name string) Option {
	return func(j *LLMJudge) { j.primaryProvider = name }
}

// LLMJudge implements [Judge] by delegating the decision to an
// [llm.Provider]. It strongly prefers selecting an existing candidate over
// synthesizing new text, per the system prompt built by [buildSystemPrompt].
type LLMJudge struct {
	provider        llm.Provider
	temperature     float64
	maxTokens       int
	primaryProvider string
}

// New returns a new [LLMJudge] backed by provider.
func New(provider llm.Provider, opts ...Option) *LLMJudge {
	j := &LLMJudge{
		provider:        provider,
		temperature:     defaultTemperature,
		maxTokens:       defaultMaxTokens,
		primaryProvider: "deepgram",
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Evaluate sends segment and candidates to the LLM and parses its verdict
// into an [transcript.OrchestratorDecision]. When the LLM call fails or its
// response cannot be parsed, Evaluate falls back to the deterministic
// highest-confidence selection rather than surfacing an error — judge
// unavailability degrades quality, it must never abort the pipeline.
func (j *LLMJudge) Evaluate(ctx context.Context, segment transcript.UncertainSegment, candidates map[string]transcript.CandidateTranscription) (transcript.OrchestratorDecision, error) {
	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Temperature:  j.temperature,
		MaxTokens:    j.maxTokens,
		Messages: []llm.Message{
			{Role: "user", Content: formatEvaluationPrompt(segment, candidates)},
		},
	}

	var parsed verdict
	resp, err := j.provider.Complete(ctx, req)
	if err != nil {
		parsed = j.fallback(candidates)
	} else {
		parsed, err = parseVerdict(resp.Content)
		if err != nil {
			parsed = j.fallback(candidates)
		}
	}

	return j.toDecision(segment, candidates, parsed), nil
}

// verdict is the judge's structured ruling before being attached to its
// originating segment and candidate map. ConfidenceBoost is a pointer so a
// response that omits confidence_boost (nil) can be told apart from one that
// sets it to exactly 0.0.
type verdict struct {
	ChosenSource           string
	FinalText              string
	Reasoning              string
	ConfidenceBoost        *float64
	SynthesisJustification string
}

// fallback deterministically selects the highest-confidence candidate. It is
// invoked whenever the LLM is unavailable or its response is unparseable.
func (j *LLMJudge) fallback(candidates map[string]transcript.CandidateTranscription) verdict {
	bestSource := j.primaryProvider
	var bestConfidence float64
	var bestText string

	for name, c := range candidates {
		if c.Confidence > bestConfidence {
			bestSource = name
			bestConfidence = c.Confidence
			bestText = c.Text
		}
	}

	boost := bestConfidence + fallbackConfidenceDelta
	if boost > 1 {
		boost = 1
	}

	return verdict{
		ChosenSource:    bestSource,
		FinalText:       bestText,
		Reasoning:       "automatic fallback: highest confidence selected",
		ConfidenceBoost: &boost,
	}
}

// toDecision assembles the final [transcript.OrchestratorDecision] from a
// parsed verdict, coercing an unrecognized chosen_source to the primary
// provider and clamping confidence_boost to [0, 1].
func (j *LLMJudge) toDecision(segment transcript.UncertainSegment, candidates map[string]transcript.CandidateTranscription, v verdict) transcript.OrchestratorDecision {
	source := strings.ToLower(strings.TrimSpace(v.ChosenSource))
	if !validSource(source) {
		source = j.primaryProvider
	}

	boost := defaultConfidenceBoost
	if v.ConfidenceBoost != nil {
		boost = *v.ConfidenceBoost
	}
	if boost < 0 {
		boost = 0
	}
	if boost > 1 {
		boost = 1
	}

	finalText := v.FinalText
	if finalText == "" {
		finalText = segment.OriginalText()
	}

	return transcript.OrchestratorDecision{
		Segment:                segment,
		Candidates:             candidates,
		ChosenSource:           source,
		FinalText:              finalText,
		Reasoning:              reasoningOrDefault(v.Reasoning),
		ConfidenceBoost:        boost,
		WasSynthesized:         source == "synthesized",
		SynthesisJustification: v.SynthesisJustification,
	}
}

func reasoningOrDefault(r string) string {
	if r == "" {
		return "automatic selection"
	}
	return r
}

func validSource(source string) bool {
	switch source {
	case "deepgram", "assemblyai", "whisper", "synthesized":
		return true
	default:
		return false
	}
}

// jsonResponse is the expected wire shape of the judge's JSON reply.
// ConfidenceBoost is a pointer so an absent field decodes to nil rather than
// being indistinguishable from an explicit 0.0.
type jsonResponse struct {
	ChosenSource           string   `json:"chosen_source"`
	FinalText              string   `json:"final_text"`
	Reasoning              string   `json:"reasoning"`
	ConfidenceBoost        *float64 `json:"confidence_boost"`
	SynthesisJustification string   `json:"synthesis_justification"`
}

var braceExtract = regexp.MustCompile(`(?s)\{.*\}`)

// parseVerdict parses the judge's raw completion text into a verdict. It
// strips a surrounding markdown code fence first; if the result is not
// valid JSON, it falls back to extracting the first brace-delimited
// substring before giving up.
func parseVerdict(content string) (verdict, error) {
	cleaned := stripMarkdown(content)

	var r jsonResponse
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		match := braceExtract.FindString(cleaned)
		if match == "" {
			return verdict{}, fmt.Errorf("judge: no JSON object found in response")
		}
		if err := json.Unmarshal([]byte(match), &r); err != nil {
			return verdict{}, fmt.Errorf("judge: parse response: %w", err)
		}
	}

	return verdict{
		ChosenSource:           r.ChosenSource,
		FinalText:              r.FinalText,
		Reasoning:              r.Reasoning,
		ConfidenceBoost:        r.ConfidenceBoost,
		SynthesisJustification: r.SynthesisJustification,
	}, nil
}

// stripMarkdown removes an optional leading ```json or ``` fence and a
// trailing ``` fence that some models wrap around JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
