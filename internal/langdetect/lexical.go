package langdetect

import (
	"fmt"
	"sort"
	"strings"
)

// englishFloor keeps English in play as the default when no language collects
// lexical evidence; any real signal for another language outweighs it.
const englishFloor = 1.0

// DetectFromText is the purely lexical fallback, used when no audio-side
// signal produced a verdict. It scores each known language by common-word and
// diacritic occurrences in text and converts the winning share of the total
// score into a confidence. A verdict is returned only when that confidence
// exceeds threshold.
func DetectFromText(text string, threshold float64) (Result, bool) {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return Result{}, false
	}

	words := strings.Fields(text)
	scores := make(map[string]float64, len(profiles))
	for lang, p := range profiles {
		var s float64
		for _, w := range words {
			w = strings.Trim(w, ".,!?;:¿¡\"'")
			for _, common := range p.words {
				if w == common {
					s++
					break
				}
			}
		}
		for _, r := range text {
			for _, d := range p.diacritics {
				if r == d {
					s++
					break
				}
			}
		}
		if s > 0 {
			scores[lang] = s
		}
	}

	if scores["en"] < englishFloor {
		scores["en"] = englishFloor
	}

	langs := make([]string, 0, len(scores))
	var total float64
	for lang, s := range scores {
		langs = append(langs, lang)
		total += s
	}
	sort.Slice(langs, func(i, j int) bool {
		if scores[langs[i]] != scores[langs[j]] {
			return scores[langs[i]] > scores[langs[j]]
		}
		return langs[i] < langs[j]
	})

	best := langs[0]
	conf := scores[best] / total
	if conf <= threshold {
		return Result{}, false
	}
	return Result{
		Language:   best,
		Confidence: clamp(conf),
		Method:     MethodStatistical,
		Details:    fmt.Sprintf("lexical score %.0f of %.0f", scores[best], total),
	}, true
}
