// Package orchestrator ties together the confidence analyzer, the
// per-provider fan-out, and the LLM judge into one entry point:
// [Orchestrator.ProcessAudio] turns an audio file into a high-confidence,
// word-timestamped transcript plus a log of every arbitration decision.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/transcriptorch/internal/observe"
	"github.com/MrWong99/transcriptorch/internal/orchestrator/judge"
	"github.com/MrWong99/transcriptorch/internal/resilience"
	"github.com/MrWong99/transcriptorch/pkg/provider/sttfile"
	"github.com/MrWong99/transcriptorch/pkg/transcript"
)

// defaultLanguage is used for all provider calls when the caller does not
// configure one explicitly.
const defaultLanguage = "en"

// DefaultVocabulary is the sixteen-term clinical vocabulary boosted on the
// primary full-file pass when the caller supplies none of its own. Segment
// re-transcriptions carry no vocabulary.
var DefaultVocabulary = []string{
	"hypertension", "diabetes", "cholesterol", "hemoglobin",
	"prescription", "medication", "diagnosis", "symptoms",
	"blood pressure", "heart rate", "temperature", "oxygen",
	"milligrams", "milliliters", "units", "dosage",
}

// ErrMergeInconsistency is returned when a decision's segment falls outside
// the primary transcript's timeline. This indicates a bug in the analyzer
// or in how decisions were assembled — it is never expected in normal
// operation and is never recovered from.
type ErrMergeInconsistency struct {
	SegmentStartMs, SegmentEndMs int
	TranscriptDurationMs         int
}

func (e *ErrMergeInconsistency) Error() string {
	return fmt.Sprintf("orchestrator: decision segment [%d,%d]ms exceeds transcript duration %dms",
		e.SegmentStartMs, e.SegmentEndMs, e.TranscriptDurationMs)
}

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithPrimaryProvider names which configured provider produces the initial
// full-file pass. Default: "deepgram".
func WithPrimaryProvider(name string) Option {
	return func(o *Orchestrator) { o.primaryProvider = name }
}

// WithLanguage sets the BCP-47 language tag passed to every provider call.
// Default: "en".
func WithLanguage(lang string) Option {
	return func(o *Orchestrator) { o.language = lang }
}

// WithSegmentConcurrency bounds how many uncertain segments are arbitrated
// concurrently. Default: 1 (strictly sequential, preserving a deterministic
// provider-call order). Decisions are always reassembled by
// segment.StartMs before merging, regardless of this setting.
func WithSegmentConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.segmentConcurrency = n
		}
	}
}

// WithAnalyzer overrides the confidence analyzer. Default: [NewAnalyzer]
// with all defaults.
func WithAnalyzer(a *Analyzer) Option {
	return func(o *Orchestrator) { o.analyzer = a }
}

// WithMetrics overrides the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// Orchestrator runs the full transcription pipeline: primary pass, analysis,
// per-segment candidate fan-out, judging, and merge. It holds no per-request
// state and is safe to reuse (and safe for concurrent use) across multiple
// [Orchestrator.ProcessAudio] calls, provided the underlying providers and
// judge are themselves concurrency-safe.
type Orchestrator struct {
	providers map[string]sttfile.Provider
	breakers  map[string]*resilience.CircuitBreaker
	judge     judge.Judge
	analyzer  *Analyzer
	metrics   *observe.Metrics

	primaryProvider    string
	language           string
	segmentConcurrency int
}

// New returns an [Orchestrator] backed by providers (keyed by provider name,
// matching each provider's Name()) and j. Apply [Option] values to override
// defaults.
func New(providers map[string]sttfile.Provider, j judge.Judge, opts ...Option) *Orchestrator {
	breakers := make(map[string]*resilience.CircuitBreaker, len(providers))
	for name := range providers {
		breakers[name] = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name: "stt-" + name,
		})
	}

	o := &Orchestrator{
		providers:          providers,
		breakers:           breakers,
		judge:              j,
		analyzer:           NewAnalyzer(),
		metrics:            observe.DefaultMetrics(),
		primaryProvider:    "deepgram",
		language:           defaultLanguage,
		segmentConcurrency: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessAudio transcribes the audio file at audioPath, arbitrating any
// low-confidence regions against every configured provider and the judge,
// and returns the merged final transcript alongside the full decision log
// (ordered by segment start time).
//
// A failure of the primary pass or of audio input handling is fatal and
// returned as the error. A failure of an individual candidate provider or of
// the judge for one segment degrades that segment's quality but does not
// fail the run.
func (o *Orchestrator) ProcessAudio(ctx context.Context, audioPath string, vocabulary []string) (*transcript.TranscriptionResult, []transcript.OrchestratorDecision, error) {
	ctx, span := observe.StartSpan(ctx, "orchestrator.process_audio",
		trace.WithAttributes(attribute.String("audio_path", audioPath)))
	defer span.End()

	if len(vocabulary) == 0 {
		vocabulary = DefaultVocabulary
	}

	primary, err := o.runPrimary(ctx, audioPath, vocabulary)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	segments := o.analyzer.Analyze(*primary)
	span.SetAttributes(attribute.Int("uncertain_segments", len(segments)))
	if len(segments) == 0 {
		span.SetStatus(codes.Ok, "")
		return primary, nil, nil
	}

	decisions, err := o.arbitrate(ctx, audioPath, segments)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	final, err := o.merge(ctx, *primary, decisions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	span.SetStatus(codes.Ok, "")
	return final, decisions, nil
}

// merge wraps the package-level merge function in a span so the final
// assembly step is visible alongside the primary pass, fan-out, and judge
// stages it follows.
func (o *Orchestrator) merge(ctx context.Context, primary transcript.TranscriptionResult, decisions []transcript.OrchestratorDecision) (*transcript.TranscriptionResult, error) {
	_, span := observe.StartSpan(ctx, "orchestrator.merge",
		trace.WithAttributes(attribute.Int("decisions", len(decisions))))
	defer span.End()

	final, err := merge(primary, decisions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return final, nil
}

// runPrimary invokes the configured primary provider over the whole file.
// Its failure is always fatal.
func (o *Orchestrator) runPrimary(ctx context.Context, audioPath string, vocabulary []string) (*transcript.TranscriptionResult, error) {
	ctx, span := observe.StartSpan(ctx, "orchestrator.primary_pass",
		trace.WithAttributes(attribute.String("provider", o.primaryProvider)))
	defer span.End()

	p, ok := o.providers[o.primaryProvider]
	if !ok {
		err := fmt.Errorf("orchestrator: primary provider %q not configured", o.primaryProvider)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var result *transcript.TranscriptionResult
	breaker := o.breakers[o.primaryProvider]
	err := breaker.Execute(func() error {
		var err error
		result, err = p.Transcribe(ctx, audioPath, o.language, true, vocabulary)
		return err
	})
	if err != nil {
		o.metrics.RecordProviderError(ctx, o.primaryProvider, "primary")
		wrapped := fmt.Errorf("orchestrator: primary pass: %s: %w", o.primaryProvider, err)
		observe.Logger(ctx).Error("primary pass failed", "provider", o.primaryProvider, "err", err)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, wrapped.Error())
		return nil, wrapped
	}
	o.metrics.RecordProviderRequest(ctx, o.primaryProvider, "primary", "ok")
	span.SetStatus(codes.Ok, "")
	return result, nil
}

// arbitrate fans each segment out to every configured provider, invokes the
// judge, and returns decisions ordered by segment.StartMs. Segments are
// processed with bounded concurrency per [WithSegmentConcurrency]; the
// default is strictly sequential.
func (o *Orchestrator) arbitrate(ctx context.Context, audioPath string, segments []transcript.UncertainSegment) ([]transcript.OrchestratorDecision, error) {
	decisions := make([]transcript.OrchestratorDecision, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.segmentConcurrency)

	for i, seg := range segments {
		i, seg := i, seg
		g.Go(func() error {
			segCtx, segSpan := observe.StartSpan(gctx, "orchestrator.arbitrate_segment",
				trace.WithAttributes(
					attribute.Int("segment.start_ms", seg.StartMs),
					attribute.Int("segment.end_ms", seg.EndMs),
				))
			defer segSpan.End()

			candidates := o.fanOut(segCtx, audioPath, seg)

			judgeCtx, judgeSpan := observe.StartSpan(segCtx, "orchestrator.judge",
				trace.WithAttributes(attribute.Int("candidates", len(candidates))))
			d, err := o.judge.Evaluate(judgeCtx, seg, candidates)
			if err != nil {
				wrapped := fmt.Errorf("orchestrator: judge: %w", err)
				judgeSpan.RecordError(wrapped)
				judgeSpan.SetStatus(codes.Error, wrapped.Error())
				judgeSpan.End()
				segSpan.RecordError(wrapped)
				segSpan.SetStatus(codes.Error, wrapped.Error())
				return wrapped
			}
			judgeSpan.SetStatus(codes.Ok, "")
			judgeSpan.End()

			observe.Logger(segCtx).Debug("segment arbitrated",
				"start_ms", seg.StartMs, "end_ms", seg.EndMs,
				"chosen_source", d.ChosenSource, "candidates", len(candidates))
			o.metrics.RecordJudgeDecision(segCtx, d.ChosenSource)
			decisions[i] = d
			segSpan.SetStatus(codes.Ok, "")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(decisions, func(i, j int) bool {
		return decisions[i].Segment.StartMs < decisions[j].Segment.StartMs
	})
	return decisions, nil
}

// fanOut calls TranscribeSegment on every configured provider concurrently,
// tolerating individual failures: a provider that errors is simply absent
// from the returned candidate map.
func (o *Orchestrator) fanOut(ctx context.Context, audioPath string, seg transcript.UncertainSegment) map[string]transcript.CandidateTranscription {
	ctx, span := observe.StartSpan(ctx, "orchestrator.fan_out",
		trace.WithAttributes(attribute.Int("providers", len(o.providers))))
	defer span.End()

	type result struct {
		name string
		cand transcript.CandidateTranscription
		ok   bool
	}

	results := make([]result, len(o.providers))
	names := make([]string, 0, len(o.providers))
	for name := range o.providers {
		names = append(names, name)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		p := o.providers[name]
		breaker := o.breakers[name]
		g.Go(func() error {
			var tr *transcript.TranscriptionResult
			err := breaker.Execute(func() error {
				var err error
				tr, err = p.TranscribeSegment(gctx, audioPath, seg.StartMs, seg.EndMs, o.language)
				return err
			})
			if err != nil {
				o.metrics.RecordProviderError(gctx, name, "segment")
				observe.Logger(gctx).Warn("segment provider failed", "provider", name, "err", err)
				return nil //nolint:nilerr // tolerated: missing candidate, not a fatal error
			}
			o.metrics.RecordProviderRequest(gctx, name, "segment", "ok")
			results[i] = result{
				name: name,
				ok:   true,
				cand: transcript.CandidateTranscription{
					ModelName:  name,
					Text:       tr.FullText,
					Confidence: tr.OverallConfidence,
					Words:      tr.Words,
				},
			}
			return nil
		})
	}
	// Fan-out errors are only ever nil (failures are tolerated above), so
	// Wait cannot return a non-nil error here; ctx cancellation from the
	// caller still propagates through gctx to every in-flight call.
	_ = g.Wait()

	candidates := make(map[string]transcript.CandidateTranscription, len(results))
	for _, r := range results {
		if r.ok {
			candidates[r.name] = r.cand
		}
	}
	span.SetAttributes(attribute.Int("candidates_returned", len(candidates)))
	span.SetStatus(codes.Ok, "")
	return candidates
}

// normalizeFullText joins the text of each word in words with single
// spaces, collapsing whatever internal whitespace variance providers leave
// behind.
func normalizeFullText(words []transcript.Word) string {
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	return normalizeWhitespace(strings.Join(texts, " "))
}
