// Package audio provides the capture-side audio pipeline for Auralis: frame
// types, the capture Source abstraction, energy-based speech classification,
// resampling, and wire encoding.
//
// Frames are the atomic unit of transport: produced by a capture Source at a
// fixed buffer size, classified by a [Framer], then resampled and encoded to
// 16-bit PCM for the transcription backend.
package audio

import (
	"context"
	"errors"
	"math"
)

// Capture errors surfaced by Source implementations. Wrap these with %w so
// callers can test with errors.Is.
var (
	// ErrPermissionDenied indicates the platform refused microphone access.
	ErrPermissionDenied = errors.New("audio: microphone permission denied")

	// ErrDeviceNotFound indicates no usable capture device exists.
	ErrDeviceNotFound = errors.New("audio: capture device not found")
)

// Frame is a single fixed-size buffer of float32 samples from a capture
// source. Seq increases monotonically per stream; Peak and RMS are filled in
// by [Framer.Process].
type Frame struct {
	// Samples holds normalised samples in [-1, 1].
	Samples []float32

	// SampleRate is the source rate in Hz (e.g. 44100, 48000).
	SampleRate int

	// Seq is the monotonically increasing frame position within the stream.
	Seq uint64

	// Peak is the maximum absolute amplitude across the frame.
	Peak float64

	// RMS is the root-mean-square level across the frame.
	RMS float64

	// HasSpeech is the speech/silence classification assigned by the framer.
	HasSpeech bool
}

// Constraints describes the desired capture format.
type Constraints struct {
	// SampleRate is the requested capture rate in Hz. 0 lets the device choose.
	SampleRate int

	// FrameSize is the number of samples per frame. 0 means the default (1024).
	FrameSize int

	// DeviceID optionally selects a specific capture device.
	DeviceID string
}

// Stream is a live capture stream. Frames are delivered in capture order on
// the Frames channel, which is closed when the stream ends or Close is called.
type Stream interface {
	// Frames returns the channel of captured frames.
	Frames() <-chan Frame

	// Close stops capture and releases the device. Safe to call more than once.
	Close() error
}

// Source acquires capture streams. Implementations must return an error
// wrapping [ErrPermissionDenied] or [ErrDeviceNotFound] when the platform
// rejects the request, so the session can surface a precise failure.
type Source interface {
	Start(ctx context.Context, c Constraints) (Stream, error)
}

// Measure computes the peak amplitude and RMS level of a sample buffer.
// An empty buffer yields (0, 0).
func Measure(samples []float32) (peak, rms float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		if a := math.Abs(v); a > peak {
			peak = a
		}
		sum += v * v
	}
	return peak, math.Sqrt(sum / float64(len(samples)))
}
