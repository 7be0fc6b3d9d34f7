package orchestrator

import (
	"strings"

	"github.com/MrWong99/transcriptorch/pkg/transcript"
)

// merge walks primary.Words once, replacing every span covered by a
// decision with that decision's resolved words, and copying every other
// word verbatim. The result's words remain ordered and non-overlapping
// because decisions are pre-sorted by segment start and the analyzer
// guarantees segments never overlap.
func merge(primary transcript.TranscriptionResult, decisions []transcript.OrchestratorDecision) (*transcript.TranscriptionResult, error) {
	var out []transcript.Word

	di := 0
	i := 0
	for i < len(primary.Words) {
		w := primary.Words[i]

		if di < len(decisions) {
			d := decisions[di]
			if w.StartMs >= d.Segment.StartMs && w.EndMs <= d.Segment.EndMs {
				if d.Segment.EndMs > primary.DurationMs {
					return nil, &ErrMergeInconsistency{
						SegmentStartMs:       d.Segment.StartMs,
						SegmentEndMs:         d.Segment.EndMs,
						TranscriptDurationMs: primary.DurationMs,
					}
				}

				out = append(out, replacementWords(d)...)

				for i < len(primary.Words) && primary.Words[i].EndMs <= d.Segment.EndMs {
					i++
				}
				di++
				continue
			}
		}

		out = append(out, w)
		i++
	}

	return assemble(primary, out), nil
}

// replacementWords builds the word list that replaces one decision's
// segment span, per the decision's chosen source.
func replacementWords(d transcript.OrchestratorDecision) []transcript.Word {
	switch {
	case d.ChosenSource == "synthesized":
		return synthesizedWords(d)
	default:
		if c, ok := d.Candidates[d.ChosenSource]; ok {
			return candidateWords(c, d.Segment, d.ConfidenceBoost)
		}
		return fallbackWords(d)
	}
}

// synthesizedWords distributes d.FinalText's tokens evenly across the
// segment's duration, each carrying the judge's confidence boost and no
// speaker label.
func synthesizedWords(d transcript.OrchestratorDecision) []transcript.Word {
	tokens := splitWords(d.FinalText)
	if len(tokens) == 0 {
		return nil
	}

	duration := d.Segment.DurationMs()
	perWord := duration / len(tokens)

	words := make([]transcript.Word, len(tokens))
	start := d.Segment.StartMs
	for i, tok := range tokens {
		end := start + perWord
		if i == len(tokens)-1 {
			end = d.Segment.EndMs
		}
		words[i] = transcript.Word{
			Text:       tok,
			StartMs:    start,
			EndMs:      end,
			Confidence: d.ConfidenceBoost,
		}
		start = end
	}
	return words
}

// candidateWords re-emits c's words, preserving text, timestamps, and
// speaker but overwriting confidence with the judge's boost.
func candidateWords(c transcript.CandidateTranscription, seg transcript.UncertainSegment, boost float64) []transcript.Word {
	if len(c.Words) == 0 {
		return synthesizedWordsFromText(c.Text, seg, boost)
	}
	words := make([]transcript.Word, len(c.Words))
	for i, w := range c.Words {
		w.Confidence = boost
		words[i] = w
	}
	return words
}

// synthesizedWordsFromText handles the rare case where a chosen candidate
// carried text but no word-level timing (some providers return text-only
// results); it falls back to the same even-distribution scheme used for
// synthesized text, anchored to the candidate's own text rather than the
// segment's original words.
func synthesizedWordsFromText(text string, seg transcript.UncertainSegment, boost float64) []transcript.Word {
	return synthesizedWords(transcript.OrchestratorDecision{Segment: seg, FinalText: text, ConfidenceBoost: boost})
}

// fallbackWords is used when the chosen source has no entry in Candidates
// (e.g., the provider failed for this segment, or the judge picked a
// source whose candidate call errored). It keeps the segment's original
// words, boosting their confidence to the judge's decision.
func fallbackWords(d transcript.OrchestratorDecision) []transcript.Word {
	words := make([]transcript.Word, len(d.Segment.OriginalWords))
	for i, w := range d.Segment.OriginalWords {
		w.Confidence = d.ConfidenceBoost
		words[i] = w
	}
	return words
}

func splitWords(text string) []string {
	return strings.Fields(text)
}

// assemble builds the final aggregated transcription result: FullText is
// the single-space join of every emitted word, OverallConfidence is their
// arithmetic mean, and DurationMs/Language are copied from the primary pass.
func assemble(primary transcript.TranscriptionResult, words []transcript.Word) *transcript.TranscriptionResult {
	var confSum float64
	for _, w := range words {
		confSum += w.Confidence
	}
	var overall float64
	if len(words) > 0 {
		overall = confSum / float64(len(words))
	}

	return &transcript.TranscriptionResult{
		FullText:          normalizeFullText(words),
		Words:             words,
		OverallConfidence: overall,
		DurationMs:        primary.DurationMs,
		Language:          primary.Language,
		ModelName:         "orchestrated",
	}
}
