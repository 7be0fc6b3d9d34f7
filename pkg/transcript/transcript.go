// Package transcript defines the shared data model used across the
// orchestrator: words, full-file transcription results, uncertain segments,
// per-provider candidates, and the final arbitration decisions. These types
// are the lingua franca between STT providers, the confidence analyzer, the
// LLM judge, and the orchestrator itself.
package transcript

// Word is a single transcribed word with timing and confidence metadata.
type Word struct {
	// Text is the transcribed word.
	Text string

	// StartMs is the word's start time in milliseconds, relative to the
	// start of the audio it was transcribed from.
	StartMs int

	// EndMs is the word's end time in milliseconds.
	EndMs int

	// Confidence is the provider's confidence score in [0, 1].
	Confidence float64

	// Speaker identifies the speaker when diarization is enabled. Empty when
	// not available.
	Speaker string
}

// DurationMs returns the word's span in milliseconds.
func (w Word) DurationMs() int {
	return w.EndMs - w.StartMs
}

// IsLowConfidence reports whether w's confidence is below threshold.
func (w Word) IsLowConfidence(threshold float64) bool {
	return w.Confidence < threshold
}

// TranscriptionResult is a complete transcription produced by a single
// provider, either for a whole audio file (the primary pass) or for one
// extracted segment (a candidate).
type TranscriptionResult struct {
	// FullText is the complete transcribed text.
	FullText string

	// Words holds word-level detail. May be empty for providers that return
	// text-only transcriptions.
	Words []Word

	// OverallConfidence is the average confidence across Words.
	OverallConfidence float64

	// DurationMs is the duration of the source audio in milliseconds.
	DurationMs int

	// Language is the detected or configured language code. Defaults to "en".
	Language string

	// ModelName identifies the provider/model that produced this result
	// (e.g., "deepgram-nova-2", "assemblyai-universal", "whisper-1",
	// "orchestrated").
	ModelName string
}

// WordCount returns the number of words in the result.
func (r TranscriptionResult) WordCount() int {
	return len(r.Words)
}

// WordsInRange returns every word whose span lies entirely within
// [startMs, endMs].
func (r TranscriptionResult) WordsInRange(startMs, endMs int) []Word {
	var out []Word
	for _, w := range r.Words {
		if w.StartMs >= startMs && w.EndMs <= endMs {
			out = append(out, w)
		}
	}
	return out
}

// TextInRange concatenates the text of every word returned by
// [TranscriptionResult.WordsInRange].
func (r TranscriptionResult) TextInRange(startMs, endMs int) string {
	return joinWords(r.WordsInRange(startMs, endMs))
}

// ContextBefore returns the text of up to wordCount words ending at or before
// positionMs, in original order.
func (r TranscriptionResult) ContextBefore(positionMs, wordCount int) string {
	var before []Word
	for _, w := range r.Words {
		if w.EndMs <= positionMs {
			before = append(before, w)
		}
	}
	if len(before) > wordCount {
		before = before[len(before)-wordCount:]
	}
	return joinWords(before)
}

// ContextAfter returns the text of up to wordCount words starting at or after
// positionMs, in original order.
func (r TranscriptionResult) ContextAfter(positionMs, wordCount int) string {
	var after []Word
	for _, w := range r.Words {
		if w.StartMs >= positionMs {
			after = append(after, w)
			if len(after) == wordCount {
				break
			}
		}
	}
	return joinWords(after)
}

func joinWords(words []Word) string {
	if len(words) == 0 {
		return ""
	}
	out := words[0].Text
	for _, w := range words[1:] {
		out += " " + w.Text
	}
	return out
}

// UncertainSegment is a span of the primary transcript whose words fell below
// the confidence threshold, widened with surrounding context for
// re-transcription and judging.
type UncertainSegment struct {
	// StartMs is the segment's start time in the primary transcript.
	StartMs int

	// EndMs is the segment's end time in the primary transcript.
	EndMs int

	// OriginalWords holds the primary transcript's words for this span.
	OriginalWords []Word

	// AverageConfidence is the count-weighted mean confidence of
	// OriginalWords.
	AverageConfidence float64

	// ContextBefore is text from the primary transcript preceding the
	// segment, used to ground candidate re-transcriptions and the judge.
	ContextBefore string

	// ContextAfter is text from the primary transcript following the
	// segment.
	ContextAfter string
}

// DurationMs returns the segment's span in milliseconds.
func (s UncertainSegment) DurationMs() int {
	return s.EndMs - s.StartMs
}

// OriginalText concatenates the text of OriginalWords.
func (s UncertainSegment) OriginalText() string {
	return joinWords(s.OriginalWords)
}

// CandidateTranscription is one provider's re-transcription of an
// [UncertainSegment].
type CandidateTranscription struct {
	// ModelName identifies the provider that produced this candidate.
	ModelName string

	// Text is the transcribed text.
	Text string

	// Confidence is the provider's confidence score for this candidate.
	Confidence float64

	// Words holds word-level detail when available.
	Words []Word
}

// OrchestratorDecision records how the orchestrator resolved one
// [UncertainSegment]: every candidate considered, which source was chosen,
// and the resulting text and confidence.
type OrchestratorDecision struct {
	// Segment is the uncertain segment this decision resolves.
	Segment UncertainSegment

	// Candidates holds every provider's re-transcription, keyed by model
	// name. A provider that failed for this segment has no entry.
	Candidates map[string]CandidateTranscription

	// ChosenSource names the winning source: one of the provider names in
	// Candidates, or "synthesized" when the judge produced its own text.
	ChosenSource string

	// FinalText is the selected or synthesized replacement text.
	FinalText string

	// Reasoning is the judge's explanation for the decision.
	Reasoning string

	// ConfidenceBoost is the confidence assigned to FinalText's words after
	// arbitration.
	ConfidenceBoost float64

	// WasSynthesized is true when the judge rejected every candidate and
	// produced FinalText itself.
	WasSynthesized bool

	// SynthesisJustification explains why every candidate was rejected, set
	// only when WasSynthesized is true.
	SynthesisJustification string
}

// AllCandidatesText returns just the text of each candidate, keyed by model
// name.
func (d OrchestratorDecision) AllCandidatesText() map[string]string {
	out := make(map[string]string, len(d.Candidates))
	for name, c := range d.Candidates {
		out[name] = c.Text
	}
	return out
}

// ConfidenceStatistics summarises the confidence distribution of a
// [TranscriptionResult], as reported by the confidence analyzer.
type ConfidenceStatistics struct {
	// TotalWords is the number of words examined.
	TotalWords int

	// LowConfidenceWords is how many of TotalWords fell below the
	// configured threshold.
	LowConfidenceWords int

	// LowConfidencePercentage is LowConfidenceWords / TotalWords, expressed
	// as a percentage. Zero when TotalWords is zero.
	LowConfidencePercentage float64

	// AverageConfidence is the mean confidence across all words. Zero when
	// TotalWords is zero.
	AverageConfidence float64

	// MinConfidence is the lowest confidence observed.
	MinConfidence float64

	// MaxConfidence is the highest confidence observed.
	MaxConfidence float64

	// ConfidenceThreshold is the threshold used to compute
	// LowConfidenceWords.
	ConfidenceThreshold float64
}
