package audio

import (
	"testing"
	"time"
)

// loudFrame returns a frame whose RMS comfortably exceeds the steady-state
// threshold.
func loudFrame(seq uint64, amplitude float32) Frame {
	samples := make([]float32, 64)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = amplitude
		} else {
			samples[i] = -amplitude
		}
	}
	return Frame{Samples: samples, SampleRate: 16000, Seq: seq}
}

func silentFrame(seq uint64) Frame {
	return Frame{Samples: make([]float32, 64), SampleRate: 16000, Seq: seq}
}

func TestFramer_OnsetThresholds(t *testing.T) {
	f := NewFramer(FramerConfig{
		RMSThreshold:      0.2,
		PeakThreshold:     0.5,
		OnsetRMSThreshold: 0.01,
		OnsetPeakThreshold: 0.03,
	})

	// Quiet frame: below steady-state thresholds but above onset thresholds.
	quiet := loudFrame(0, 0.05)
	d := f.Process(&quiet, time.Now())
	if !quiet.HasSpeech {
		t.Error("expected onset thresholds to classify quiet frame as speech")
	}
	if !d.SpeechStarted {
		t.Error("expected SpeechStarted on first speech frame")
	}

	// After the first hit, the same quiet level must no longer qualify once
	// hangover expires.
	f.Reset()
	f.speechSeen = true
	quiet2 := loudFrame(1, 0.05)
	f.Process(&quiet2, time.Now())
	if quiet2.HasSpeech {
		t.Error("expected steady-state thresholds to reject quiet frame")
	}
}

func TestFramer_HangoverKeepsTransmitting(t *testing.T) {
	f := NewFramer(FramerConfig{HangoverFrames: 3, MinSendInterval: time.Nanosecond})
	now := time.Now()

	loud := loudFrame(0, 0.5)
	if d := f.Process(&loud, now); !d.Send {
		t.Fatal("expected speech frame to be sent")
	}

	// Next 3 silent frames ride the hangover counter.
	for i := 1; i <= 3; i++ {
		now = now.Add(50 * time.Millisecond)
		s := silentFrame(uint64(i))
		if d := f.Process(&s, now); !d.Send {
			t.Errorf("silent frame %d: expected send during hangover", i)
		}
	}

	// Counter exhausted: the next silent frame is suppressed.
	now = now.Add(50 * time.Millisecond)
	s := silentFrame(4)
	if d := f.Process(&s, now); d.Send {
		t.Error("expected silent frame after hangover to be suppressed")
	}
}

func TestFramer_Heartbeat(t *testing.T) {
	f := NewFramer(FramerConfig{HeartbeatFrames: 5})
	now := time.Now()

	for i := 0; i < 4; i++ {
		s := silentFrame(uint64(i))
		if d := f.Process(&s, now); d.Send {
			t.Fatalf("frame %d: unexpected send before heartbeat interval", i)
		}
		now = now.Add(50 * time.Millisecond)
	}

	s := silentFrame(4)
	d := f.Process(&s, now)
	if !d.Send || !d.Heartbeat {
		t.Fatalf("expected heartbeat on 5th silent frame, got %+v", d)
	}
	if len(d.Payload) == 0 {
		t.Error("expected heartbeat to carry an encoded payload")
	}

	// Silent-run counter resets after the heartbeat.
	s = silentFrame(5)
	if d := f.Process(&s, now.Add(50*time.Millisecond)); d.Send {
		t.Error("expected no send immediately after heartbeat")
	}
}

func TestFramer_Throttle(t *testing.T) {
	f := NewFramer(FramerConfig{MinSendInterval: 100 * time.Millisecond})
	now := time.Now()

	a := loudFrame(0, 0.5)
	if d := f.Process(&a, now); !d.Send {
		t.Fatal("expected first frame to be sent")
	}

	// Arrives 10ms later: dropped by the throttle.
	b := loudFrame(1, 0.5)
	if d := f.Process(&b, now.Add(10*time.Millisecond)); d.Send {
		t.Error("expected throttled frame to be dropped")
	}

	// Arrives after the interval: sent.
	c := loudFrame(2, 0.5)
	if d := f.Process(&c, now.Add(150*time.Millisecond)); !d.Send {
		t.Error("expected frame after interval to be sent")
	}
}

func TestFramer_PayloadIsResampled(t *testing.T) {
	f := NewFramer(FramerConfig{TargetRate: 16000, MinSendInterval: time.Nanosecond})

	frame := loudFrame(0, 0.5)
	frame.SampleRate = 48000
	frame.Samples = make([]float32, 480) // 10ms at 48kHz
	for i := range frame.Samples {
		frame.Samples[i] = 0.5
	}

	d := f.Process(&frame, time.Now())
	if !d.Send {
		t.Fatal("expected send")
	}
	// 10ms at 16kHz mono int16 = 160 samples = 320 bytes.
	if len(d.Payload) != 320 {
		t.Errorf("expected 320-byte payload, got %d", len(d.Payload))
	}
}

func TestMeasure(t *testing.T) {
	peak, rms := Measure([]float32{0.5, -0.5, 0.5, -0.5})
	if peak != 0.5 {
		t.Errorf("expected peak 0.5, got %f", peak)
	}
	if rms < 0.49 || rms > 0.51 {
		t.Errorf("expected rms ≈ 0.5, got %f", rms)
	}

	peak, rms = Measure(nil)
	if peak != 0 || rms != 0 {
		t.Errorf("expected zeroes for empty input, got %f %f", peak, rms)
	}
}
