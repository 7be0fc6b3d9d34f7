package judge

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// similarityThreshold is the minimum Jaro-Winkler score, combined with a
// phonetic code overlap, for two candidate strings to be reported as
// similar. Chosen to catch homophone pairs like "patient"/"patent" without
// also flagging unrelated short words.
const similarityThreshold = 0.80

// CandidatesSimilar reports whether a and b are likely the same underlying
// word sequence misheard differently by two STT providers. It combines
// Double Metaphone phonetic codes with Jaro-Winkler string similarity,
// computed token-by-token and then over the joined strings, taking the best
// score found by either approach.
//
// This helper is not on the judge's decision path — the LLM makes the
// selection and the deterministic fallback picks by confidence alone, and
// neither calls it. It is exported for diagnosing homophone confusions.
func CandidatesSimilar(a, b string) (confidence float64, similar bool) {
	aLower := strings.ToLower(strings.TrimSpace(a))
	bLower := strings.ToLower(strings.TrimSpace(b))
	if aLower == "" || bLower == "" {
		return 0, false
	}
	if aLower == bLower {
		return 1, true
	}

	aTokens := strings.Fields(aLower)
	bTokens := strings.Fields(bLower)

	phoneticMatch := codesOverlap(codesForTokens(aTokens), codesForTokens(bTokens))
	score := bestJWScore(aTokens, bTokens, aLower, bLower)

	return score, phoneticMatch && score >= similarityThreshold
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes (produced when a token is too short or has no
// consonants) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between two
// strings using three strategies: the full strings, the strings with
// internal spaces stripped, and the best pairwise score across their
// tokens — the last strategy catches cases where a word boundary shifted
// between the two transcriptions.
func bestJWScore(aTokens, bTokens []string, aFull, bFull string) float64 {
	score := matchr.JaroWinkler(aFull, bFull, false)

	if len(aTokens) > 1 || len(bTokens) > 1 {
		concatA := strings.Join(aTokens, "")
		concatB := strings.Join(bTokens, "")
		if s := matchr.JaroWinkler(concatA, concatB, false); s > score {
			score = s
		}
	}

	for _, at := range aTokens {
		for _, bt := range bTokens {
			if s := matchr.JaroWinkler(at, bt, false); s > score {
				score = s
			}
		}
	}

	return score
}
