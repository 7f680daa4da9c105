package langdetect

import (
	"fmt"
	"sort"
)

// Consensus scoring weights. Agreement across independent methods matters
// more than any single high confidence, and backend-derived linguistic
// evidence outranks everything else.
const (
	weightAvg     = 0.3
	weightMax     = 0.3
	weightMethods = 0.1
	methodCount   = 5

	linguisticStrongConf  = 0.8
	linguisticStrongBoost = 0.30
	linguisticWeakBoost   = 0.15
)

// Consensus merges per-method detection results into a single ranked verdict.
// Results are grouped by language; each group scores
//
//	0.3*avg + 0.3*max + 0.1*(distinct methods / 5)
//
// plus a boost when the group contains linguistic-features evidence. The top
// group wins only if its score exceeds threshold. Ties break on language code
// ascending so repeated runs over the same inputs agree.
func Consensus(results []Result, threshold float64) (Result, bool) {
	if len(results) == 0 {
		return Result{}, false
	}

	type group struct {
		language string
		sum, max float64
		count    int
		methods  map[Method]struct{}
		boost    float64
	}

	groups := make(map[string]*group)
	for _, r := range results {
		g := groups[r.Language]
		if g == nil {
			g = &group{language: r.Language, methods: make(map[Method]struct{})}
			groups[r.Language] = g
		}
		g.sum += r.Confidence
		g.count++
		if r.Confidence > g.max {
			g.max = r.Confidence
		}
		g.methods[r.Method] = struct{}{}

		if r.Method == MethodLinguistic {
			boost := linguisticWeakBoost
			if r.Confidence > linguisticStrongConf {
				boost = linguisticStrongBoost
			}
			if boost > g.boost {
				g.boost = boost
			}
		}
	}

	scored := make([]*group, 0, len(groups))
	for _, g := range groups {
		scored = append(scored, g)
	}
	score := func(g *group) float64 {
		avg := g.sum / float64(g.count)
		return weightAvg*avg + weightMax*g.max +
			weightMethods*(float64(len(g.methods))/methodCount) + g.boost
	}
	sort.Slice(scored, func(i, j int) bool {
		si, sj := score(scored[i]), score(scored[j])
		if si != sj {
			return si > sj
		}
		return scored[i].language < scored[j].language
	})

	top := scored[0]
	s := score(top)
	if s <= threshold {
		return Result{}, false
	}
	return Result{
		Language:   top.language,
		Confidence: clamp(s),
		Method:     MethodConsensus,
		Details:    fmt.Sprintf("%d signals, %d methods", top.count, len(top.methods)),
	}, true
}
