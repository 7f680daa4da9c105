// Package transcript reconciles the overlapping interim and final transcript
// fragments emitted by a streaming STT backend into one coherent, growing
// utterance.
//
// Backends revise their output as more audio arrives: interim fragments
// supersede each other, finals supersede interims, and a speech-final marks
// the definitive end of an utterance segment. The [Reconciler] folds that
// stream into an append-only committed text plus two pending fragments, so
// the host application always has a stable display value and a clean commit
// point.
package transcript

import (
	"strings"
	"sync"

	"github.com/auralis-dev/auralis/pkg/transport"
)

// Reconciler accumulates transcript events into a single utterance buffer.
// All methods are safe for concurrent use.
type Reconciler struct {
	mu sync.Mutex

	// committed only grows, until an explicit Reset.
	committed string

	// lastCommitted is the most recently appended segment, kept to suppress
	// duplicate identical finals.
	lastCommitted string

	pendingFinal   string
	pendingInterim string
}

// New returns an empty Reconciler.
func New() *Reconciler {
	return &Reconciler{}
}

// Apply folds one transcript event into the buffer. Empty or whitespace-only
// text is ignored. It reports whether the displayed value changed.
func (r *Reconciler) Apply(ev transport.TranscriptEvent) bool {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case ev.IsFinal && ev.IsSpeechFinal:
		// Segment complete: commit it and clear both pending fragments.
		if text != r.lastCommitted {
			r.committed = joinSegments(r.committed, text)
			r.lastCommitted = text
		}
		r.pendingFinal = ""
		r.pendingInterim = ""
		return true

	case ev.IsFinal:
		// Final but the utterance continues: hold it aside, never mutate the
		// committed text yet.
		r.pendingFinal = text
		r.pendingInterim = ""
		return true

	default:
		// Interim: replace only when it actually changed, to avoid redundant
		// display churn.
		if text == r.pendingInterim {
			return false
		}
		r.pendingInterim = text
		return true
	}
}

// Committed returns the append-only committed text.
func (r *Reconciler) Committed() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.committed
}

// Display returns the full value for presentation: committed text followed by
// the pending final and interim fragments.
func (r *Reconciler) Display() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.committed
	for _, frag := range []string{r.pendingFinal, r.pendingInterim} {
		if frag == "" {
			continue
		}
		if out == "" {
			out = frag
		} else {
			out += " " + frag
		}
	}
	return out
}

// Reset clears all state. Called when the utterance is committed to the host
// application or the session stops.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = ""
	r.lastCommitted = ""
	r.pendingFinal = ""
	r.pendingInterim = ""
}

// joinSegments appends segment to committed, inserting a period before the
// space when the existing text lacks terminal punctuation.
func joinSegments(committed, segment string) string {
	if committed == "" {
		return segment
	}
	if hasTerminalPunctuation(committed) {
		return committed + " " + segment
	}
	return committed + ". " + segment
}

func hasTerminalPunctuation(s string) bool {
	switch s[len(s)-1] {
	case '.', '!', '?', ',', ';', ':':
		return true
	}
	return false
}
