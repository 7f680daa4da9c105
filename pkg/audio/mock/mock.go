// Package mock provides scripted audio capture doubles for tests.
package mock

import (
	"context"
	"sync"

	"github.com/auralis-dev/auralis/pkg/audio"
)

// Source is a mock audio.Source. If StartError is set, Start returns it;
// otherwise Start returns a Stream fed with the scripted Frames.
type Source struct {
	// StartError, when non-nil, is returned by Start.
	StartError error

	// Frames are delivered on the stream in order. The stream channel is left
	// open afterwards unless CloseAfterFrames is set.
	Frames []audio.Frame

	// CloseAfterFrames closes the frame channel once all scripted frames have
	// been delivered.
	CloseAfterFrames bool

	mu         sync.Mutex
	StartCalls []audio.Constraints
}

// Start implements audio.Source.
func (s *Source) Start(_ context.Context, c audio.Constraints) (audio.Stream, error) {
	s.mu.Lock()
	s.StartCalls = append(s.StartCalls, c)
	s.mu.Unlock()

	if s.StartError != nil {
		return nil, s.StartError
	}

	st := &Stream{ch: make(chan audio.Frame, len(s.Frames)+1)}
	for _, f := range s.Frames {
		st.ch <- f
	}
	if s.CloseAfterFrames {
		close(st.ch)
		st.closed = true
	}
	return st, nil
}

// Stream is a mock audio.Stream backed by a buffered channel. Use Push to
// deliver additional frames after Start.
type Stream struct {
	mu     sync.Mutex
	ch     chan audio.Frame
	closed bool

	CallCountClose int
}

// Frames implements audio.Stream.
func (s *Stream) Frames() <-chan audio.Frame { return s.ch }

// Push delivers an extra frame. No-op after Close.
func (s *Stream) Push(f audio.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ch <- f
}

// Close implements audio.Stream.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}
