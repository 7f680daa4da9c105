package langdetect

// Method identifies the detection technique that produced a [Result].
type Method string

const (
	// MethodEngine is a native recognition engine probe for one candidate
	// language.
	MethodEngine Method = "engine"

	// MethodPhonetic is the acoustic/spectral heuristic.
	MethodPhonetic Method = "phonetic"

	// MethodStatistical is the client-side lexical (bag-of-words) fallback.
	MethodStatistical Method = "statistical"

	// MethodLinguistic marks backend-supplied hints enriched with
	// transcript-level linguistic features. It is the highest-priority method
	// in consensus scoring.
	MethodLinguistic Method = "linguistic_features"

	// MethodConsensus tags the combined, ranked output.
	MethodConsensus Method = "consensus"
)

// Result is one language detection signal. Multiple results for the same
// language are merged by the consensus step.
type Result struct {
	// Language is the ISO 639-1 base code (e.g. "es").
	Language string

	// Confidence is in [0, 1].
	Confidence float64

	// Method identifies the producing detector.
	Method Method

	// Details optionally carries a human-readable explanation for logs.
	Details string
}

// RawResult is the unenhanced output of a single engine probe.
type RawResult struct {
	// Transcript is the recognised text, empty when the engine produced
	// nothing usable.
	Transcript string

	// Confidence is the engine's own score in [0, 1].
	Confidence float64
}
