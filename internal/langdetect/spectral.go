package langdetect

import (
	"fmt"
	"math"
	"sort"
)

// spectralWindow bounds the DFT input size. 1024 samples at 16 kHz is 64 ms,
// enough to estimate the envelope, and keeps the O(n²) transform cheap.
const spectralWindow = 1024

// phoneticMinScore is the floor below which a spectral match is too weak to
// feed into consensus.
const phoneticMinScore = 0.3

// magnitudeSpectrum computes the one-sided magnitude spectrum of samples via
// a direct DFT. Inputs longer than spectralWindow use the most recent window.
func magnitudeSpectrum(samples []float32) []float64 {
	if len(samples) > spectralWindow {
		samples = samples[len(samples)-spectralWindow:]
	}
	n := len(samples)
	if n == 0 {
		return nil
	}

	mags := make([]float64, n/2+1)
	for k := range mags {
		var re, im float64
		w := -2 * math.Pi * float64(k) / float64(n)
		for i, s := range samples {
			angle := w * float64(i)
			re += float64(s) * math.Cos(angle)
			im += float64(s) * math.Sin(angle)
		}
		mags[k] = math.Hypot(re, im)
	}
	return mags
}

// spectralCentroid returns the magnitude-weighted mean frequency in Hz, or 0
// for silent input.
func spectralCentroid(mags []float64, n, rate int) float64 {
	var weighted, total float64
	for k, m := range mags {
		freq := float64(k) * float64(rate) / float64(n)
		weighted += freq * m
		total += m
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// spectralRolloff returns the frequency in Hz below which fraction of the
// total spectral energy lies.
func spectralRolloff(mags []float64, n, rate int, fraction float64) float64 {
	var total float64
	for _, m := range mags {
		total += m
	}
	if total == 0 {
		return 0
	}

	threshold := total * fraction
	var cum float64
	for k, m := range mags {
		cum += m
		if cum >= threshold {
			return float64(k) * float64(rate) / float64(n)
		}
	}
	return float64(len(mags)-1) * float64(rate) / float64(n)
}

// phoneticResults scores the audio sample against each candidate language's
// spectral envelope. Centroid and 85% rolloff each contribute half the score;
// candidates below the minimum are dropped. Results are ordered by score
// descending, language ascending, so output is deterministic.
func phoneticResults(samples []float32, rate int, candidates []string) []Result {
	if len(samples) == 0 || rate <= 0 {
		return nil
	}

	window := samples
	if len(window) > spectralWindow {
		window = window[len(window)-spectralWindow:]
	}
	mags := magnitudeSpectrum(window)
	n := len(window)

	centroid := spectralCentroid(mags, n, rate)
	rolloff := spectralRolloff(mags, n, rate, 0.85)

	var out []Result
	for _, lang := range candidates {
		p, ok := profileFor(lang)
		if !ok {
			continue
		}
		score := 0.0
		if centroid >= p.centroidLow && centroid <= p.centroidHigh {
			score += 0.5
		}
		if rolloff >= p.rolloffLow && rolloff <= p.rolloffHigh {
			score += 0.5
		}
		if score < phoneticMinScore {
			continue
		}
		out = append(out, Result{
			Language:   lang,
			Confidence: clamp(score),
			Method:     MethodPhonetic,
			Details:    fmt.Sprintf("centroid=%.0fHz rolloff=%.0fHz", centroid, rolloff),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Language < out[j].Language
	})
	return out
}
