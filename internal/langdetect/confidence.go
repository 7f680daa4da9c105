package langdetect

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Enhancement tuning. Raw engine confidences tend to be pessimistic for short
// utterances, so transcript-level evidence tops them up before consensus.
const (
	minConfidence = 0.10
	maxConfidence = 0.99

	// Length tiers: longer transcripts mean the engine had more to work with.
	lengthTierShort = 10
	lengthTierLong  = 25
	lengthBoost     = 0.10

	// Lexicon matches, individually small and capped in total.
	wordBoost    = 0.05
	wordBoostCap = 0.20

	// Fuzzy match floor for counting a transcript word as a lexicon hit.
	fuzzyWordMatch = 0.92

	// Per-diacritic boost, uncapped aside from the global clamp.
	diacriticBoost = 0.02
)

// EnhanceConfidence adjusts a raw recognition confidence for language using
// evidence from the transcript itself: length tiers, common-word hits against
// the language's lexicon (fuzzy-matched to tolerate recognition noise), and
// characteristic diacritics. The result is clamped to [0.10, 0.99] so no
// single signal can reach certainty or be discarded outright.
func EnhanceConfidence(language, transcript string, raw float64) float64 {
	conf := raw

	text := strings.TrimSpace(transcript)
	if n := len([]rune(text)); n >= lengthTierShort {
		conf += lengthBoost
		if n >= lengthTierLong {
			conf += lengthBoost
		}
	}

	if p, ok := profileFor(language); ok && text != "" {
		conf += lexiconBoost(p, text)
		conf += diacriticScore(p, text)
	}

	return clamp(conf)
}

// lexiconBoost counts transcript words that match the language's common-word
// list, tolerating small recognition errors via Jaro-Winkler similarity.
func lexiconBoost(p profile, text string) float64 {
	hits := 0
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:¿¡\"'")
		if w == "" {
			continue
		}
		for _, common := range p.words {
			if w == common || matchr.JaroWinkler(w, common, false) >= fuzzyWordMatch {
				hits++
				break
			}
		}
	}
	boost := float64(hits) * wordBoost
	if boost > wordBoostCap {
		boost = wordBoostCap
	}
	return boost
}

func diacriticScore(p profile, text string) float64 {
	score := 0.0
	for _, r := range strings.ToLower(text) {
		for _, d := range p.diacritics {
			if r == d {
				score += diacriticBoost
				break
			}
		}
	}
	return score
}

func clamp(conf float64) float64 {
	if conf < minConfidence {
		return minConfidence
	}
	if conf > maxConfidence {
		return maxConfidence
	}
	return conf
}
