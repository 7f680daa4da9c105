package langdetect

import "context"

// Recognizer is a stateless recognition worker probed once per candidate
// language. Implementations wrap whatever native engine is available, such as
// a platform speech API, a local model, or a remote service.
//
// Recognize must honour ctx: probes run under a bounded timeout and late
// results are discarded by the caller. Implementations must be safe for
// concurrent use, as all candidate probes run in parallel against the same
// audio sample.
type Recognizer interface {
	// Recognize attempts recognition of samples (mono float32 at rate Hz)
	// assuming the given language tag. A nil error with an empty transcript
	// means the engine ran but heard nothing useful.
	Recognize(ctx context.Context, samples []float32, rate int, language string) (RawResult, error)
}

// NullRecognizer is a Recognizer for platforms without a native engine. Every
// probe returns an empty result, so detection relies on the phonetic
// heuristic, backend hints, and the lexical fallback.
type NullRecognizer struct{}

func (NullRecognizer) Recognize(context.Context, []float32, int, string) (RawResult, error) {
	return RawResult{}, nil
}
