package orchestrator

import (
	"strings"

	"github.com/MrWong99/transcriptorch/pkg/transcript"
)

// Analyzer thresholds, matching the original implementation's defaults.
const (
	defaultConfidenceThreshold = 0.75
	defaultMinSegmentMs        = 500
	defaultContextWords        = 50
	defaultMergeGapMs          = 1000
	defaultMaxSegmentMs        = 10000
)

// AnalyzerOption configures an [Analyzer].
type AnalyzerOption func(*Analyzer)

// WithConfidenceThreshold overrides the confidence below which a word is
// considered uncertain. Default: 0.75.
func WithConfidenceThreshold(t float64) AnalyzerOption {
	return func(a *Analyzer) { a.threshold = t }
}

// WithMinSegmentMs overrides the minimum duration a low-confidence run must
// span to be emitted as a segment. Default: 500ms.
func WithMinSegmentMs(ms int) AnalyzerOption {
	return func(a *Analyzer) { a.minSegmentMs = ms }
}

// WithContextWords overrides how many words of surrounding context are
// attached to each segment. Default: 50.
func WithContextWords(n int) AnalyzerOption {
	return func(a *Analyzer) { a.contextWords = n }
}

// WithMergeGapMs overrides the maximum gap between two segments for them to
// be merged into one. Default: 1000ms.
func WithMergeGapMs(ms int) AnalyzerOption {
	return func(a *Analyzer) { a.mergeGapMs = ms }
}

// WithMaxSegmentMs overrides the duration above which a segment is split
// along word boundaries. Default: 10000ms.
func WithMaxSegmentMs(ms int) AnalyzerOption {
	return func(a *Analyzer) { a.maxSegmentMs = ms }
}

// Analyzer locates low-confidence regions of a primary transcript and turns
// them into a non-overlapping, ordered list of [transcript.UncertainSegment]
// suitable for arbitration. It runs entirely in memory and is safe for
// concurrent use once constructed — it holds no mutable state.
type Analyzer struct {
	threshold    float64
	minSegmentMs int
	contextWords int
	mergeGapMs   int
	maxSegmentMs int
}

// NewAnalyzer returns an [Analyzer] configured with the supplied options.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		threshold:    defaultConfidenceThreshold,
		minSegmentMs: defaultMinSegmentMs,
		contextWords: defaultContextWords,
		mergeGapMs:   defaultMergeGapMs,
		maxSegmentMs: defaultMaxSegmentMs,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze walks result once to group consecutive low-confidence words,
// discards runs too short to matter, attaches surrounding context, merges
// runs separated by a small gap, and splits runs that grew too long. The
// returned segments are strictly ordered by StartMs and never overlap.
func (a *Analyzer) Analyze(result transcript.TranscriptionResult) []transcript.UncertainSegment {
	groups := a.group(result.Words)
	if len(groups) == 0 {
		return nil
	}
	segments := a.materialize(groups)
	segments = a.attachContext(result, segments)
	segments = a.mergeAdjacent(segments)
	segments = a.splitLong(segments)
	return segments
}

// Statistics computes the confidence distribution of result using the
// analyzer's configured threshold.
func (a *Analyzer) Statistics(result transcript.TranscriptionResult) transcript.ConfidenceStatistics {
	stats := transcript.ConfidenceStatistics{ConfidenceThreshold: a.threshold}
	if len(result.Words) == 0 {
		return stats
	}

	stats.TotalWords = len(result.Words)
	stats.MinConfidence = result.Words[0].Confidence
	stats.MaxConfidence = result.Words[0].Confidence

	var sum float64
	for _, w := range result.Words {
		sum += w.Confidence
		if w.Confidence < stats.MinConfidence {
			stats.MinConfidence = w.Confidence
		}
		if w.Confidence > stats.MaxConfidence {
			stats.MaxConfidence = w.Confidence
		}
		if w.Confidence < a.threshold {
			stats.LowConfidenceWords++
		}
	}

	stats.AverageConfidence = sum / float64(stats.TotalWords)
	stats.LowConfidencePercentage = float64(stats.LowConfidenceWords) / float64(stats.TotalWords) * 100
	return stats
}

// group walks words once, returning each maximal run of consecutive words
// whose confidence is strictly below the threshold. A word whose confidence
// equals the threshold is considered confident and closes the current run.
func (a *Analyzer) group(words []transcript.Word) [][]transcript.Word {
	var groups [][]transcript.Word
	var current []transcript.Word

	for _, w := range words {
		if w.Confidence < a.threshold {
			current = append(current, w)
			continue
		}
		if len(current) > 0 {
			groups = append(groups, current)
			current = nil
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// materialize turns each word-run into an [transcript.UncertainSegment],
// discarding runs that fall short of the minimum segment duration.
func (a *Analyzer) materialize(groups [][]transcript.Word) []transcript.UncertainSegment {
	segments := make([]transcript.UncertainSegment, 0, len(groups))
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		start := g[0].StartMs
		end := g[len(g)-1].EndMs
		if end-start < a.minSegmentMs {
			continue
		}
		segments = append(segments, transcript.UncertainSegment{
			StartMs:           start,
			EndMs:             end,
			OriginalWords:     g,
			AverageConfidence: weightedMeanConfidence(g),
		})
	}
	return segments
}

// attachContext fills ContextBefore/ContextAfter on each segment from the
// full primary transcript, using up to contextWords words on each side.
func (a *Analyzer) attachContext(result transcript.TranscriptionResult, segments []transcript.UncertainSegment) []transcript.UncertainSegment {
	for i := range segments {
		segments[i].ContextBefore = result.ContextBefore(segments[i].StartMs, a.contextWords)
		segments[i].ContextAfter = result.ContextAfter(segments[i].EndMs, a.contextWords)
	}
	return segments
}

// mergeAdjacent folds together successive segments separated by a gap no
// larger than mergeGapMs, preserving the earlier segment's ContextBefore and
// the later segment's ContextAfter.
func (a *Analyzer) mergeAdjacent(segments []transcript.UncertainSegment) []transcript.UncertainSegment {
	if len(segments) == 0 {
		return segments
	}

	merged := []transcript.UncertainSegment{segments[0]}
	for _, next := range segments[1:] {
		last := &merged[len(merged)-1]
		gap := next.StartMs - last.EndMs
		if gap <= a.mergeGapMs {
			last.OriginalWords = append(last.OriginalWords, next.OriginalWords...)
			last.EndMs = next.EndMs
			last.AverageConfidence = weightedMeanConfidence(last.OriginalWords)
			last.ContextAfter = next.ContextAfter
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

// splitLong breaks any segment whose duration exceeds maxSegmentMs into
// word-aligned chunks, each no longer than maxSegmentMs. Every chunk
// inherits the parent segment's context verbatim.
func (a *Analyzer) splitLong(segments []transcript.UncertainSegment) []transcript.UncertainSegment {
	out := make([]transcript.UncertainSegment, 0, len(segments))
	for _, seg := range segments {
		if seg.DurationMs() <= a.maxSegmentMs {
			out = append(out, seg)
			continue
		}
		out = append(out, a.splitOne(seg)...)
	}
	return out
}

func (a *Analyzer) splitOne(seg transcript.UncertainSegment) []transcript.UncertainSegment {
	var chunks []transcript.UncertainSegment
	var current []transcript.Word
	chunkStart := seg.StartMs

	flush := func(endMs int) {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, transcript.UncertainSegment{
			StartMs:           current[0].StartMs,
			EndMs:             endMs,
			OriginalWords:     current,
			AverageConfidence: weightedMeanConfidence(current),
			ContextBefore:     seg.ContextBefore,
			ContextAfter:      seg.ContextAfter,
		})
		current = nil
	}

	for _, w := range seg.OriginalWords {
		if len(current) > 0 && w.EndMs-chunkStart > a.maxSegmentMs {
			flush(current[len(current)-1].EndMs)
			chunkStart = w.StartMs
		}
		current = append(current, w)
	}
	flush(seg.EndMs)

	return chunks
}

func weightedMeanConfidence(words []transcript.Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}

// normalizeWhitespace collapses runs of whitespace into single spaces and
// trims the result, mirroring the original's text-hygiene pass applied
// before words are joined into a merged transcript's full text.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
