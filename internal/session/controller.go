// Package session wires the capture pipeline, transport channel, transcript
// reconciler, and language detector into one voice session with a typed event
// stream. A [Controller] owns the microphone exclusively: a second Start while
// a session is live is rejected, while a stale session (transport already
// gone) is reset and replaced.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/auralis-dev/auralis/internal/langdetect"
	"github.com/auralis-dev/auralis/internal/observe"
	"github.com/auralis-dev/auralis/internal/transcript"
	"github.com/auralis-dev/auralis/pkg/audio"
	"github.com/auralis-dev/auralis/pkg/transport"
)

var (
	// ErrAlreadyListening is returned by Start while a live session holds the
	// capture device.
	ErrAlreadyListening = errors.New("session: already listening")

	// ErrNotListening is returned by Stop when no session is running.
	ErrNotListening = errors.New("session: not listening")
)

// Link is the transport surface the controller drives. *transport.Channel
// satisfies it.
type Link interface {
	Connect(ctx context.Context) error
	Send(frame []byte) error
	Events() <-chan transport.Event
	Disconnect() error
	State() transport.State
	SetLanguage(language string)
}

// Config assembles a [Controller].
type Config struct {
	// Source provides capture streams. Required.
	Source audio.Source

	// Link is the transcription backend connection. Required.
	Link Link

	// Detector resolves the spoken language. Required.
	Detector *langdetect.Detector

	// Constraints is passed to Source.Start.
	Constraints audio.Constraints

	// Framer configures speech classification and wire encoding.
	Framer audio.FramerConfig

	// SwitchThreshold is the minimum verdict confidence for an automatic
	// recognition-language switch. Default 0.75.
	SwitchThreshold float64

	// ProbeWindow caps the audio retained per utterance for detection probes.
	// Default 2s.
	ProbeWindow time.Duration

	// Logger defaults to slog.Default.
	Logger *slog.Logger

	// Metrics defaults to observe.DefaultMetrics.
	Metrics *observe.Metrics
}

const (
	defaultSwitchThreshold = 0.75
	defaultProbeWindow     = 2 * time.Second
)

// Snapshot is a point-in-time view of the session state.
type Snapshot struct {
	ID        string
	Listening bool
	Connected bool
	Language  string
	Err       error
}

// Controller runs one voice session at a time.
type Controller struct {
	id      uuid.UUID
	cfg     Config
	log     *slog.Logger
	metrics *observe.Metrics

	framer *audio.Framer
	rec    *transcript.Reconciler

	events    chan Event
	closeOnce sync.Once

	mu        sync.Mutex
	listening bool
	language  string
	lastErr   error
	cancel    context.CancelFunc
	stream    audio.Stream
	wg        sync.WaitGroup

	// utterance-scoped probe state, reset at each speech onset.
	utterMu     sync.Mutex
	hintEmitted bool
	sampleBuf   []float32
	sampleRate  int
}

// New validates cfg and returns a stopped Controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Source == nil {
		return nil, errors.New("session: Source is required")
	}
	if cfg.Link == nil {
		return nil, errors.New("session: Link is required")
	}
	if cfg.Detector == nil {
		return nil, errors.New("session: Detector is required")
	}
	if cfg.SwitchThreshold <= 0 {
		cfg.SwitchThreshold = defaultSwitchThreshold
	}
	if cfg.ProbeWindow <= 0 {
		cfg.ProbeWindow = defaultProbeWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}

	id := uuid.New()
	return &Controller{
		id:      id,
		cfg:     cfg,
		log:     cfg.Logger.With("session_id", id.String()),
		metrics: cfg.Metrics,
		framer:  audio.NewFramer(cfg.Framer),
		rec:     transcript.New(),
		events:  make(chan Event, 64),
	}, nil
}

// ID returns the session identifier.
func (c *Controller) ID() string { return c.id.String() }

// Events returns the session event stream. The channel is closed by [Close].
func (c *Controller) Events() <-chan Event { return c.events }

// State returns a snapshot of the session.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:        c.id.String(),
		Listening: c.listening,
		Connected: c.cfg.Link.State() == transport.StateOpen,
		Language:  c.language,
		Err:       c.lastErr,
	}
}

// Start connects the transport, acquires the capture device, and begins
// streaming. While a live session exists Start returns ErrAlreadyListening;
// a stale session whose transport already died is torn down and replaced.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	stale := false
	if c.listening {
		if c.cfg.Link.State() == transport.StateOpen {
			c.mu.Unlock()
			return ErrAlreadyListening
		}
		c.log.Warn("resetting stale session")
		c.teardownLocked()
		stale = true
	}
	c.mu.Unlock()
	if stale {
		// The old pump owns the framer; let it exit before reuse.
		c.wg.Wait()
	}

	connectStart := time.Now()
	if err := c.cfg.Link.Connect(ctx); err != nil {
		c.setErr(err)
		return err
	}
	c.metrics.ConnectDuration.Record(ctx, time.Since(connectStart).Seconds())

	stream, err := c.cfg.Source.Start(ctx, c.cfg.Constraints)
	if err != nil {
		c.setErr(err)
		_ = c.cfg.Link.Disconnect()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.listening = true
	c.lastErr = nil
	c.cancel = cancel
	c.stream = stream
	c.framer.Reset()
	c.rec.Reset()
	c.wg.Add(2)
	c.mu.Unlock()

	go c.pump(runCtx, stream)
	go c.dispatch(runCtx)

	c.metrics.ActiveSessions.Add(ctx, 1)
	c.log.Info("session started")
	c.deliver(Event{Type: EventConnection, Connected: true})
	return nil
}

// Stop ends the session: capture is released, a stop control message is sent,
// and the transport closes without reconnecting.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.listening {
		c.mu.Unlock()
		return ErrNotListening
	}
	c.listening = false
	cancel, stream := c.cancel, c.stream
	c.cancel, c.stream = nil, nil
	c.mu.Unlock()

	cancel()
	if stream != nil {
		_ = stream.Close()
	}
	err := c.cfg.Link.Disconnect()
	c.wg.Wait()
	c.framer.Reset()

	c.metrics.ActiveSessions.Add(context.Background(), -1)
	c.log.Info("session stopped")
	c.deliver(Event{Type: EventConnection, Connected: false})
	return err
}

// CommitUtterance hands the accumulated committed text to the caller and
// clears the transcript buffer for the next utterance.
func (c *Controller) CommitUtterance() string {
	text := c.rec.Committed()
	c.rec.Reset()
	return text
}

// Close stops the session if needed, closes the detector, and closes the
// event stream. The controller cannot be reused afterwards.
func (c *Controller) Close() error {
	err := c.Stop()
	if errors.Is(err, ErrNotListening) {
		err = nil
	}
	_ = c.cfg.Detector.Close()
	c.closeOnce.Do(func() { close(c.events) })
	return err
}

// teardownLocked force-stops a stale session's goroutines. Callers hold c.mu.
func (c *Controller) teardownLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
	c.listening = false
}

func (c *Controller) setErr(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

// pump reads capture frames, runs the framer, and forwards speech to the
// transport.
func (c *Controller) pump(ctx context.Context, stream audio.Stream) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-stream.Frames():
			if !ok {
				return
			}
			d := c.framer.Process(&frame, time.Now())
			if d.SpeechStarted {
				c.beginUtterance(frame.SampleRate)
				c.deliver(Event{Type: EventSpeechStarted})
			}
			if frame.HasSpeech {
				c.bufferSample(frame)
			}
			if !d.Send {
				continue
			}
			kind := "speech"
			if d.Heartbeat {
				kind = "heartbeat"
			}
			if err := c.cfg.Link.Send(d.Payload); err != nil {
				// The transport reconnects on its own; frames in the gap are
				// simply lost.
				c.log.Debug("frame dropped", "error", err)
				continue
			}
			c.metrics.RecordFrame(ctx, kind)
		}
	}
}

// dispatch consumes transport events and routes them into the reconciler,
// the detector, and the session event stream.
func (c *Controller) dispatch(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.cfg.Link.Events():
			if !ok {
				return
			}
			c.handleTransportEvent(ctx, ev)
		}
	}
}

func (c *Controller) handleTransportEvent(ctx context.Context, ev transport.Event) {
	switch ev.Type {
	case transport.EventConnected, transport.EventReady:
		c.deliver(Event{Type: EventConnection, Connected: true})

	case transport.EventTranscript:
		c.handleTranscript(ctx, ev.Transcript)

	case transport.EventServerError:
		err := fmt.Errorf("backend error: %s", ev.Err)
		c.setErr(err)
		c.metrics.BackendErrors.Add(ctx, 1)
		c.log.Warn("backend error", "message", ev.Err)
		c.deliver(Event{Type: EventError, Err: err})

	case transport.EventDisconnected:
		closure := "normal"
		if ev.Abnormal {
			closure = "abnormal"
		}
		c.metrics.RecordReconnect(ctx, closure)
		c.deliver(Event{Type: EventConnection, Connected: false, Abnormal: ev.Abnormal})

	case transport.EventStopped:
		c.log.Debug("backend acknowledged stop")
	}
}

func (c *Controller) handleTranscript(ctx context.Context, tr transport.TranscriptEvent) {
	kind := "interim"
	switch {
	case tr.IsSpeechFinal:
		kind = "speech_final"
	case tr.IsFinal:
		kind = "final"
	}
	c.metrics.RecordTranscriptEvent(ctx, kind)

	if c.rec.Apply(tr) {
		c.deliver(Event{
			Type:      EventTranscript,
			Display:   c.rec.Display(),
			Committed: c.rec.Committed(),
		})
	}

	if tr.DetectedLanguage != "" {
		c.handleHint(ctx, tr)
	}
	if tr.IsSpeechFinal {
		c.finishUtterance(ctx)
	}
}

// handleHint feeds a backend language hint into the detector and surfaces it
// if it clears the hint threshold. At most one verdict is surfaced per
// utterance.
func (c *Controller) handleHint(ctx context.Context, tr transport.TranscriptEvent) {
	verdict, ok := c.cfg.Detector.HandleHint(tr.DetectedLanguage, tr.Text, tr.LanguageConfidence)
	if !ok {
		return
	}

	c.utterMu.Lock()
	already := c.hintEmitted
	c.hintEmitted = true
	c.utterMu.Unlock()
	if already {
		return
	}
	c.surfaceVerdict(ctx, verdict)
}

// finishUtterance closes out the utterance: it emits the utterance-end event
// and, when no hint was surfaced, resolves the detector's collected evidence
// (probing the buffered audio first) in the background.
func (c *Controller) finishUtterance(ctx context.Context) {
	c.utterMu.Lock()
	buf, rate, hinted := c.sampleBuf, c.sampleRate, c.hintEmitted
	c.sampleBuf, c.hintEmitted = nil, false
	c.utterMu.Unlock()

	text := c.rec.Committed()
	c.deliver(Event{Type: EventUtteranceEnd, Committed: text})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, span := observe.StartSpan(ctx, "session.finish_utterance")
		defer span.End()
		log := observe.Logger(ctx).With("session_id", c.id.String())

		if !hinted && len(buf) > 0 {
			start := time.Now()
			if _, err := c.cfg.Detector.ProbeSample(ctx, buf, rate); err != nil {
				log.Debug("probe skipped", "error", err)
			}
			c.metrics.ProbeDuration.Record(ctx, time.Since(start).Seconds())
		}
		// Resolve always runs so the utterance's evidence is consumed, but a
		// hint already surfaced this utterance's one verdict.
		verdict, ok := c.cfg.Detector.Resolve(text)
		if !ok || hinted {
			return
		}
		c.surfaceVerdict(ctx, verdict)
	}()
}

func (c *Controller) surfaceVerdict(ctx context.Context, verdict langdetect.Result) {
	c.metrics.RecordLanguageVerdict(ctx, verdict.Language, string(verdict.Method))
	c.deliver(Event{
		Type:       EventLanguageDetected,
		Language:   verdict.Language,
		Confidence: verdict.Confidence,
		Method:     string(verdict.Method),
	})
	c.maybeSwitch(verdict)
}

// maybeSwitch records a high-confidence verdict as the session's recognition
// language and pushes it to the transport, so the next handshake (reconnect
// or restart) pins the backend to the detected language.
func (c *Controller) maybeSwitch(verdict langdetect.Result) {
	if verdict.Confidence < c.cfg.SwitchThreshold {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if verdict.Language == c.language {
		return
	}
	c.language = verdict.Language
	c.cfg.Link.SetLanguage(verdict.Language)
	c.log.Info("recognition language switched",
		"language", verdict.Language, "confidence", verdict.Confidence)
}

// beginUtterance resets the utterance-scoped probe state at speech onset.
func (c *Controller) beginUtterance(rate int) {
	c.utterMu.Lock()
	c.sampleBuf = nil
	c.sampleRate = rate
	c.hintEmitted = false
	c.utterMu.Unlock()
}

// bufferSample retains speech audio for detection probes, up to ProbeWindow.
func (c *Controller) bufferSample(frame audio.Frame) {
	c.utterMu.Lock()
	defer c.utterMu.Unlock()
	limit := int(c.cfg.ProbeWindow.Seconds() * float64(frame.SampleRate))
	if len(c.sampleBuf) >= limit {
		return
	}
	c.sampleBuf = append(c.sampleBuf, frame.Samples...)
}

// deliver pushes ev onto the event stream, dropping it when the consumer has
// fallen 64 events behind.
func (c *Controller) deliver(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn("event dropped, consumer too slow", "type", ev.Type.String())
	}
}
