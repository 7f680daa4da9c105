package audio

import (
	"time"
)

// Default framer parameters. Thresholds are empirical; override them through
// [FramerConfig] rather than editing the constants.
const (
	defaultTargetRate      = 16000
	defaultGain            = 1.5
	defaultRMSThreshold    = 0.02
	defaultPeakThreshold   = 0.06
	defaultOnsetRMS        = 0.01
	defaultOnsetPeak       = 0.03
	defaultHangoverFrames  = 20
	defaultHeartbeatFrames = 50
	defaultMinSendInterval = 20 * time.Millisecond
)

// FramerConfig holds the tunable parameters of a [Framer]. Zero values select
// the package defaults.
type FramerConfig struct {
	// TargetRate is the wire sample rate in Hz. Default 16000.
	TargetRate int

	// Gain is the fixed amplification applied before int16 conversion.
	// Default 1.5.
	Gain float64

	// RMSThreshold and PeakThreshold classify a frame as speech once either is
	// exceeded, after the first speech frame of the session has been seen.
	RMSThreshold  float64
	PeakThreshold float64

	// OnsetRMSThreshold and OnsetPeakThreshold are the lower thresholds in
	// effect before the first positive classification, so the onset syllable
	// is not clipped.
	OnsetRMSThreshold  float64
	OnsetPeakThreshold float64

	// HangoverFrames is the ceiling of the decaying activity counter: frames
	// keep being transmitted for this many silent frames after speech, to
	// avoid truncating trailing speech.
	HangoverFrames int

	// HeartbeatFrames is the number of consecutive silent frames between
	// keepalive transmissions while no speech is active.
	HeartbeatFrames int

	// MinSendInterval throttles outbound frames: a frame arriving sooner than
	// this after the previous send is dropped (never reordered).
	MinSendInterval time.Duration
}

func (c FramerConfig) withDefaults() FramerConfig {
	if c.TargetRate <= 0 {
		c.TargetRate = defaultTargetRate
	}
	if c.Gain <= 0 {
		c.Gain = defaultGain
	}
	if c.RMSThreshold <= 0 {
		c.RMSThreshold = defaultRMSThreshold
	}
	if c.PeakThreshold <= 0 {
		c.PeakThreshold = defaultPeakThreshold
	}
	if c.OnsetRMSThreshold <= 0 {
		c.OnsetRMSThreshold = defaultOnsetRMS
	}
	if c.OnsetPeakThreshold <= 0 {
		c.OnsetPeakThreshold = defaultOnsetPeak
	}
	if c.HangoverFrames <= 0 {
		c.HangoverFrames = defaultHangoverFrames
	}
	if c.HeartbeatFrames <= 0 {
		c.HeartbeatFrames = defaultHeartbeatFrames
	}
	if c.MinSendInterval <= 0 {
		c.MinSendInterval = defaultMinSendInterval
	}
	return c
}

// Decision is the outcome of processing one frame.
type Decision struct {
	// Send reports whether the frame should be transmitted.
	Send bool

	// Heartbeat marks a keepalive transmission during extended silence.
	Heartbeat bool

	// SpeechStarted is true on the first speech frame after silence.
	SpeechStarted bool

	// Payload is the encoded wire frame (16-bit PCM LE at the target rate).
	// Nil when Send is false.
	Payload []byte
}

// Framer classifies capture frames as speech or silence and decides which
// frames reach the transport. All cross-frame state lives in this struct;
// it is owned by a single goroutine (the capture pump) and is not safe for
// concurrent use.
type Framer struct {
	cfg FramerConfig

	speechSeen bool // first positive classification has happened
	active     bool // currently inside a speech run (incl. hangover)
	hangover   int  // decaying recent-activity counter
	silentRun  int  // consecutive silent frames since last transmission
	lastSend   time.Time
}

// NewFramer creates a Framer with cfg, filling in defaults for zero fields.
func NewFramer(cfg FramerConfig) *Framer {
	return &Framer{cfg: cfg.withDefaults()}
}

// Process classifies frame, updates the framer state, and returns the
// transmit decision. now is injected for testability.
//
// The frame's Peak, RMS, and HasSpeech fields are filled in as a side effect.
func (f *Framer) Process(frame *Frame, now time.Time) Decision {
	frame.Peak, frame.RMS = Measure(frame.Samples)

	rmsThresh, peakThresh := f.cfg.RMSThreshold, f.cfg.PeakThreshold
	if !f.speechSeen {
		// Lower thresholds until the first hit so the onset is not clipped.
		rmsThresh, peakThresh = f.cfg.OnsetRMSThreshold, f.cfg.OnsetPeakThreshold
	}
	frame.HasSpeech = frame.RMS >= rmsThresh || frame.Peak >= peakThresh

	var d Decision
	inHangover := false
	if frame.HasSpeech {
		if !f.active {
			d.SpeechStarted = true
		}
		f.speechSeen = true
		f.active = true
		f.hangover = f.cfg.HangoverFrames
		f.silentRun = 0
	} else {
		// Transmit while the counter is positive, then decay it.
		inHangover = f.hangover > 0
		if f.hangover > 0 {
			f.hangover--
		}
		if f.hangover == 0 {
			f.active = false
		}
		f.silentRun++
	}

	switch {
	case frame.HasSpeech || inHangover:
		// Throttle: drop (do not reorder) frames arriving too quickly.
		if !f.lastSend.IsZero() && now.Sub(f.lastSend) < f.cfg.MinSendInterval {
			return d
		}
		d.Send = true
	case f.silentRun >= f.cfg.HeartbeatFrames:
		// Low-rate keepalive so the transport's idle timeout never fires.
		d.Send = true
		d.Heartbeat = true
		f.silentRun = 0
	default:
		return d
	}

	d.Payload = EncodePCM16(
		ResampleLinear(frame.Samples, frame.SampleRate, f.cfg.TargetRate),
		f.cfg.Gain,
	)
	f.lastSend = now
	return d
}

// Reset clears all cross-frame state, returning the framer to session-start
// behaviour (onset thresholds in effect).
func (f *Framer) Reset() {
	f.speechSeen = false
	f.active = false
	f.hangover = 0
	f.silentRun = 0
	f.lastSend = time.Time{}
}
