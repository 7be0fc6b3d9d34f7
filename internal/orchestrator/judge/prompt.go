package judge

import (
	"fmt"
	"strings"

	"github.com/MrWong99/transcriptorch/pkg/transcript"
)

// systemPrompt encodes the judge's selection hierarchy: candidates are to be
// chosen over synthesized text in all but the last resort.
const systemPrompt = `You are an expert medical transcription reviewer. Your task is to evaluate multiple transcription candidates for an audio segment where the primary transcription model had low confidence.

CRITICAL INSTRUCTION: You must STRONGLY PREFER selecting one of the provided transcriptions over creating your own. Your primary job is to CHOOSE, not to CREATE.

You will be given:
1. Context BEFORE the uncertain segment (preceding words in the conversation)
2. Context AFTER the uncertain segment (following words in the conversation)
3. Multiple transcription candidates from different speech-to-text models
4. Confidence scores from each model

DECISION PRIORITY (follow this order strictly):
1. FIRST: Check if any transcription makes clear sense in context -> SELECT IT
2. SECOND: If multiple make sense, choose the one with highest confidence -> SELECT IT
3. THIRD: If transcriptions differ slightly but are similar, select the most complete one -> SELECT IT
4. FOURTH: If transcriptions differ significantly, use context to determine which fits -> SELECT IT
5. LAST RESORT ONLY: If ALL transcriptions are clearly wrong, nonsensical, or completely contradict the context in ways that cannot be explained -> SYNTHESIZE your own

When synthesizing (ONLY as last resort), you must:
- Base it on the phonetic similarities between candidates
- Ensure it fits the medical/clinical context perfectly
- Provide detailed justification for why ALL candidates were rejected

Your response must be valid JSON with this exact structure:
{
    "chosen_source": "deepgram" | "assemblyai" | "whisper" | "synthesized",
    "final_text": "the selected or synthesized text",
    "reasoning": "Brief explanation of your decision",
    "confidence_boost": 0.85,
    "synthesis_justification": "Only if synthesized - why ALL candidates were wrong"
}`

// formatEvaluationPrompt builds the user message presenting the segment's
// surrounding context and every available candidate's text and confidence.
// Providers absent from candidates are reported as errored rather than
// omitted, so the judge always sees the full roster.
func formatEvaluationPrompt(segment transcript.UncertainSegment, candidates map[string]transcript.CandidateTranscription) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "CONTEXT BEFORE (preceding words):\n%q\n\n", segment.ContextBefore)
	fmt.Fprintf(&sb, "UNCERTAIN SEGMENT (timestamps: %dms - %dms):\n[This is where the transcription is uncertain]\n\n", segment.StartMs, segment.EndMs)
	fmt.Fprintf(&sb, "CONTEXT AFTER (following words):\n%q\n\n", segment.ContextAfter)

	sb.WriteString("TRANSCRIPTION CANDIDATES:\n\n")
	for i, name := range []string{"deepgram", "assemblyai", "whisper"} {
		c, ok := candidates[name]
		if !ok {
			fmt.Fprintf(&sb, "%d. %s (confidence: N/A):\n\"Error - no transcription\"\n\n", i+1, strings.ToUpper(name))
			continue
		}
		fmt.Fprintf(&sb, "%d. %s (confidence: %.2f):\n%q\n\n", i+1, strings.ToUpper(name), c.Confidence, c.Text)
	}

	sb.WriteString("Based on the context and candidates above, determine the best transcription.\n")
	sb.WriteString("Remember: STRONGLY prefer selecting an existing transcription over synthesizing.\n\n")
	sb.WriteString("Respond with valid JSON only.\n")

	return sb.String()
}
