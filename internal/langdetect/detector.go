// Package langdetect identifies the spoken language of an utterance by
// combining several weak signals: parallel recognition-engine probes per
// candidate language, a spectral (phonetic) heuristic over the raw audio,
// backend-supplied hints enriched with transcript evidence, and a purely
// lexical fallback. A weighted consensus ranks the signals and only verdicts
// clearing a confidence threshold are surfaced.
package langdetect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/auralis-dev/auralis/internal/observe"
)

// ErrClosed is returned by probe operations after [Detector.Close].
var ErrClosed = errors.New("langdetect: detector closed")

// Defaults for the tunable thresholds.
const (
	DefaultProbeTimeout       = 3 * time.Second
	DefaultHintThreshold      = 0.3
	DefaultConsensusThreshold = 0.5
	DefaultLexicalThreshold   = 0.5
)

// Option configures a [Detector].
type Option func(*Detector)

// WithCandidates replaces the default candidate language set.
func WithCandidates(languages ...string) Option {
	return func(d *Detector) {
		if len(languages) > 0 {
			d.candidates = languages
		}
	}
}

// WithProbeTimeout bounds each per-language engine probe.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(d *Detector) {
		if timeout > 0 {
			d.probeTimeout = timeout
		}
	}
}

// WithHintThreshold sets the minimum enhanced confidence for a backend hint
// to be surfaced on its own.
func WithHintThreshold(v float64) Option {
	return func(d *Detector) { d.hintThreshold = v }
}

// WithConsensusThreshold sets the minimum consensus score for a verdict.
func WithConsensusThreshold(v float64) Option {
	return func(d *Detector) { d.consensusThreshold = v }
}

// WithLexicalThreshold sets the minimum confidence for the text-only
// fallback.
func WithLexicalThreshold(v float64) Option {
	return func(d *Detector) { d.lexicalThreshold = v }
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(log *slog.Logger) Option {
	return func(d *Detector) {
		if log != nil {
			d.log = log
		}
	}
}

// Detector accumulates detection signals for the current utterance and
// resolves them into at most one verdict per utterance. Methods are safe for
// concurrent use.
type Detector struct {
	rec    Recognizer
	log    *slog.Logger
	tracer trace.Tracer

	candidates         []string
	probeTimeout       time.Duration
	hintThreshold      float64
	consensusThreshold float64
	lexicalThreshold   float64

	mu      sync.Mutex
	pending []Result
	closed  bool
}

// New returns a Detector probing rec for each candidate language.
func New(rec Recognizer, opts ...Option) *Detector {
	d := &Detector{
		rec:                rec,
		log:                slog.Default(),
		tracer:             observe.Tracer(),
		candidates:         DefaultCandidates,
		probeTimeout:       DefaultProbeTimeout,
		hintThreshold:      DefaultHintThreshold,
		consensusThreshold: DefaultConsensusThreshold,
		lexicalThreshold:   DefaultLexicalThreshold,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ProbeSample runs one engine probe per candidate language in parallel plus
// the spectral heuristic over the same audio, records the surviving results
// for the utterance's consensus, and returns them. Probes that error or miss
// the per-probe timeout are discarded, never propagated: language detection
// must not fail the session.
func (d *Detector) ProbeSample(ctx context.Context, samples []float32, rate int) ([]Result, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	candidates := d.candidates
	d.mu.Unlock()

	ctx, span := d.tracer.Start(ctx, "langdetect.probe_sample",
		trace.WithAttributes(
			attribute.Int("audio.samples", len(samples)),
			attribute.Int("audio.rate", rate),
			attribute.Int("candidates", len(candidates)),
		))
	defer span.End()

	slots := make([]Result, len(candidates))
	ok := make([]bool, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	for i, lang := range candidates {
		i, lang := i, lang
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(gctx, d.probeTimeout)
			defer cancel()

			raw, err := d.rec.Recognize(probeCtx, samples, rate, lang)
			if err != nil {
				d.log.Debug("engine probe discarded", "language", lang, "error", err)
				return nil
			}
			if raw.Transcript == "" {
				return nil
			}
			slots[i] = Result{
				Language:   lang,
				Confidence: EnhanceConfidence(lang, raw.Transcript, raw.Confidence),
				Method:     MethodEngine,
				Details:    fmt.Sprintf("engine heard %q", raw.Transcript),
			}
			ok[i] = true
			return nil
		})
	}
	// Probes swallow their own errors, so Wait is purely a barrier.
	_ = g.Wait()

	var results []Result
	for i := range slots {
		if ok[i] {
			results = append(results, slots[i])
		}
	}
	results = append(results, phoneticResults(samples, rate, candidates)...)

	span.SetAttributes(attribute.Int("results", len(results)))

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	d.pending = append(d.pending, results...)
	return results, nil
}

// HandleHint folds a backend-detected language hint into the utterance's
// evidence. The hint's confidence is enhanced with transcript-level features
// before use. The returned ok is true when the enhanced confidence reaches
// the hint threshold and the hint may be surfaced immediately; either way the
// signal still participates in the final consensus.
func (d *Detector) HandleHint(language, transcript string, confidence float64) (Result, bool) {
	if language == "" {
		return Result{}, false
	}

	r := Result{
		Language:   language,
		Confidence: EnhanceConfidence(language, transcript, confidence),
		Method:     MethodLinguistic,
		Details:    "backend hint",
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Result{}, false
	}
	d.pending = append(d.pending, r)

	if r.Confidence < d.hintThreshold {
		d.log.Debug("backend language hint below threshold",
			"language", language, "confidence", r.Confidence)
		return Result{}, false
	}
	return r, true
}

// Resolve closes out the current utterance: it runs consensus over every
// signal recorded since the last Resolve and clears them. When no audio-side
// signal was recorded at all, the lexical fallback scores the transcript
// text instead.
func (d *Detector) Resolve(transcript string) (Result, bool) {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return Result{}, false
	}

	if len(pending) == 0 {
		return DetectFromText(transcript, d.lexicalThreshold)
	}
	verdict, ok := Consensus(pending, d.consensusThreshold)
	if !ok {
		d.log.Debug("no consensus verdict", "signals", len(pending))
	}
	return verdict, ok
}

// Close discards pending state and rejects further probes.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.pending = nil
	return nil
}
