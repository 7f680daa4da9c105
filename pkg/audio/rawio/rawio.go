// Package rawio implements an audio.Source that reads raw 16-bit PCM from an
// io.Reader (typically stdin or a file). It exists so the CLI can be driven by
// any capture utility (arecord, sox, ffmpeg) without binding Auralis to a
// platform microphone API.
package rawio

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/auralis-dev/auralis/pkg/audio"
)

const defaultFrameSize = 1024

// Source reads little-endian int16 mono PCM from R at Rate.
type Source struct {
	// R is the PCM byte stream. Required.
	R io.Reader

	// Rate is the sample rate of the stream in Hz. Required.
	Rate int
}

// Start implements audio.Source. Frames are emitted at the constraint's frame
// size until R is exhausted, then the stream channel is closed. A nil reader
// maps to audio.ErrDeviceNotFound so sessions fail the same way they would
// with a missing microphone.
func (s *Source) Start(ctx context.Context, c audio.Constraints) (audio.Stream, error) {
	if s.R == nil {
		return nil, audio.ErrDeviceNotFound
	}
	if s.Rate <= 0 {
		return nil, errors.New("rawio: sample rate must be positive")
	}

	frameSize := c.FrameSize
	if frameSize <= 0 {
		frameSize = defaultFrameSize
	}

	st := &stream{
		ch:   make(chan audio.Frame, 8),
		done: make(chan struct{}),
	}
	go st.readLoop(ctx, s.R, s.Rate, frameSize)
	return st, nil
}

type stream struct {
	ch     chan audio.Frame
	done   chan struct{}
	closed bool
}

func (st *stream) Frames() <-chan audio.Frame { return st.ch }

func (st *stream) Close() error {
	if !st.closed {
		st.closed = true
		close(st.done)
	}
	return nil
}

func (st *stream) readLoop(ctx context.Context, r io.Reader, rate, frameSize int) {
	defer close(st.ch)

	buf := make([]byte, frameSize*2)
	var seq uint64
	for {
		n, err := io.ReadFull(r, buf)
		if n >= 2 {
			frame := audio.Frame{
				Samples:    audio.DecodePCM16(buf[:n-n%2]),
				SampleRate: rate,
				Seq:        seq,
			}
			seq++
			select {
			case st.ch <- frame:
			case <-st.done:
				return
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			// EOF or short read ends the stream.
			return
		}
	}
}

// Stdin returns a Source reading from standard input at rate.
func Stdin(rate int) *Source {
	return &Source{R: os.Stdin, Rate: rate}
}
