// Package mock provides a scripted [langdetect.Recognizer] for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/auralis-dev/auralis/internal/langdetect"
)

// Probe scripts one language's response.
type Probe struct {
	Result langdetect.RawResult
	Err    error

	// Delay is waited before responding, to exercise probe timeouts.
	Delay time.Duration
}

// Recognizer returns scripted results per language. Unscripted languages get
// an empty RawResult.
type Recognizer struct {
	mu sync.Mutex

	// Probes maps language tag to scripted response.
	Probes map[string]Probe

	// Calls records the languages probed, in call order.
	Calls []string
}

func (r *Recognizer) Recognize(ctx context.Context, samples []float32, rate int, language string) (langdetect.RawResult, error) {
	r.mu.Lock()
	r.Calls = append(r.Calls, language)
	p := r.Probes[language]
	r.mu.Unlock()

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return langdetect.RawResult{}, ctx.Err()
		}
	}
	return p.Result, p.Err
}

// CallCount returns how many probes have been issued.
func (r *Recognizer) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Calls)
}
