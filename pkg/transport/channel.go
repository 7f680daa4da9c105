// Package transport implements the persistent WebSocket channel between an
// Auralis session and the transcription backend.
//
// The channel owns the full connection lifecycle: dialing with a bounded
// timeout, the start_transcription handshake, delivery of inbound events,
// binary audio writes, and automatic reconnection after unclean closures.
// Inbound JSON events are surfaced as tagged [Event] values on a single
// channel consumed by the session's dispatch loop.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// Default connection parameters.
const (
	defaultConnectTimeout  = 5 * time.Second
	defaultNormalBackoff   = 1 * time.Second
	defaultAbnormalBackoff = 5 * time.Second
	defaultMaxBackoff      = 30 * time.Second
)

// ErrNotConnected is returned by Send when the socket is not open.
var ErrNotConnected = errors.New("transport: channel is not connected")

// State is the channel's connection state.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

// String implements fmt.Stringer for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Config configures a [Channel].
type Config struct {
	// URL is the backend WebSocket endpoint (ws:// or wss://; http(s) is also
	// accepted for test servers).
	URL string

	// Token is the authentication token passed as a URL parameter.
	Token string

	// Language is the recognition language hint. Empty means "auto".
	Language string

	// Model optionally selects a backend model.
	Model string

	// ConnectTimeout bounds the dial + handshake. Defaults to 5s if zero.
	ConnectTimeout time.Duration

	// NormalBackoff is the initial retry delay after a clean (but not locally
	// requested) closure. Defaults to 1s if zero.
	NormalBackoff time.Duration

	// AbnormalBackoff is the initial retry delay after an unclean closure.
	// Longer than NormalBackoff so a flapping backend is not hammered.
	// Defaults to 5s if zero.
	AbnormalBackoff time.Duration

	// MaxBackoff caps the exponential retry delay. Defaults to 30s if zero.
	MaxBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.NormalBackoff <= 0 {
		c.NormalBackoff = defaultNormalBackoff
	}
	if c.AbnormalBackoff <= 0 {
		c.AbnormalBackoff = defaultAbnormalBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	return c
}

// Channel is a persistent bidirectional socket to the transcription backend.
//
// A Channel is created idle; Connect opens the socket and starts the read
// loop. After an unclean closure the channel reconnects on its own with
// backoff until Disconnect is called. All methods are safe for concurrent
// use.
type Channel struct {
	cfg Config

	events chan Event

	runCtx context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	conn  *websocket.Conn
	state atomic.Int32

	// stopped is set by Disconnect; the reconnect logic consults it so a
	// locally requested closure never triggers a retry.
	stopped atomic.Bool

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates an idle Channel with the given configuration.
func New(cfg Config) *Channel {
	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		cfg:    cfg.withDefaults(),
		events: make(chan Event, 64),
		runCtx: ctx,
		cancel: cancel,
	}
}

// Events returns the channel of inbound and synthetic events. It is closed
// after Disconnect once the read loop has exited.
func (c *Channel) Events() <-chan Event { return c.events }

// State returns the current connection state.
func (c *Channel) State() State { return State(c.state.Load()) }

// Connect dials the backend, sends the start_transcription control message,
// and starts the read loop. The whole operation is bounded by ConnectTimeout.
//
// A timeout or refused connection returns an error without scheduling a
// retry; the caller decides whether the session start is aborted.
func (c *Channel) Connect(ctx context.Context) error {
	if c.stopped.Load() {
		return errors.New("transport: channel has been stopped")
	}
	c.state.Store(int32(StateConnecting))

	if err := c.dial(ctx); err != nil {
		c.state.Store(int32(StateIdle))
		return err
	}
	return nil
}

// dial performs one connection attempt: open the socket, send the start
// control message, spawn the read loop for this connection generation.
func (c *Channel) dial(ctx context.Context) error {
	wsURL, err := c.buildURL()
	if err != nil {
		return fmt.Errorf("transport: build URL: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("transport: dial: %w", err)
	}
	// Audio frames can be large relative to the library default.
	conn.SetReadLimit(1 << 20)

	start := controlMessage{
		Type:     msgStartTranscription,
		Language: c.language(),
		Model:    c.cfg.Model,
	}
	if err := writeJSON(dialCtx, conn, start); err != nil {
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return fmt.Errorf("transport: start handshake: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.state.Store(int32(StateOpen))

	c.wg.Add(1)
	go c.readLoop(conn)
	return nil
}

// buildURL appends the token, language, and model query parameters.
func (c *Channel) buildURL() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", c.cfg.Token)
	q.Set("language", c.language())
	if c.cfg.Model != "" {
		q.Set("model", c.cfg.Model)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Channel) language() string {
	c.mu.Lock()
	lang := c.cfg.Language
	c.mu.Unlock()
	if lang == "" {
		return "auto"
	}
	return lang
}

// SetLanguage pins the recognition language for subsequent handshakes. The
// session calls this after a confident detection so automatic reconnects stop
// asking the backend for "auto".
func (c *Channel) SetLanguage(language string) {
	c.mu.Lock()
	c.cfg.Language = language
	c.mu.Unlock()
}

// Send transmits one binary audio frame. Frames are written in call order;
// returns ErrNotConnected while the socket is down (the caller may simply
// drop the frame; reconnection is handled internally).
func (c *Channel) Send(frame []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil || c.State() != StateOpen {
		return ErrNotConnected
	}
	if err := conn.Write(c.runCtx, websocket.MessageBinary, frame); err != nil {
		return fmt.Errorf("transport: write frame: %w", err)
	}
	return nil
}

// Disconnect sends stop_transcription (best effort), closes the socket with
// a normal status, and suppresses any further reconnection. Safe to call
// more than once.
func (c *Channel) Disconnect() error {
	c.stopped.Store(true)

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := writeJSON(stopCtx, conn, controlMessage{Type: msgStopTranscription}); err != nil {
			slog.Debug("stop_transcription write failed", "err", err)
		}
		cancel()
		conn.Close(websocket.StatusNormalClosure, "session stopped")
	}

	c.cancel()
	c.state.Store(int32(StateClosed))

	c.closeOnce.Do(func() {
		go func() {
			c.wg.Wait()
			close(c.events)
		}()
	})
	return nil
}

// readLoop receives messages for a single connection generation and
// dispatches parsed events. When the connection drops it classifies the
// closure and hands off to the reconnect logic.
func (c *Channel) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		_, data, err := conn.Read(c.runCtx)
		if err != nil {
			c.handleClosure(err)
			return
		}

		ev, ok := parseServerMessage(data)
		if !ok {
			// Malformed or ignorable message: log and drop, never terminate.
			slog.Debug("dropping unparseable backend message", "bytes", len(data))
			continue
		}
		c.deliver(ev)
	}
}

// handleClosure classifies a read error, emits EventDisconnected, and
// schedules reconnection when the closure was not locally requested.
func (c *Channel) handleClosure(err error) {
	if c.stopped.Load() || c.runCtx.Err() != nil {
		return
	}

	status := websocket.CloseStatus(err)
	// A missing close frame (network drop) counts as abnormal.
	abnormal := status == websocket.StatusAbnormalClosure || status == -1

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	c.state.Store(int32(StateConnecting))

	slog.Warn("transcription socket closed",
		"status", status,
		"abnormal", abnormal,
		"err", err,
	)
	c.deliver(Event{Type: EventDisconnected, Abnormal: abnormal, Err: err.Error()})

	c.wg.Add(1)
	go c.reconnectLoop(abnormal)
}

// reconnectLoop retries the connection with exponential backoff until it
// succeeds or the channel is stopped. The initial delay depends on how the
// previous connection ended: unclean closures wait longer.
func (c *Channel) reconnectLoop(abnormal bool) {
	defer c.wg.Done()

	backoff := c.cfg.NormalBackoff
	if abnormal {
		backoff = c.cfg.AbnormalBackoff
	}

	for attempt := 1; ; attempt++ {
		select {
		case <-c.runCtx.Done():
			return
		case <-time.After(backoff):
		}
		if c.stopped.Load() {
			return
		}

		slog.Info("reconnecting to transcription backend",
			"attempt", attempt,
			"backoff", backoff,
		)
		if err := c.dial(c.runCtx); err == nil {
			slog.Info("reconnected to transcription backend", "attempt", attempt)
			return
		} else {
			slog.Warn("reconnect attempt failed", "attempt", attempt, "err", err)
		}

		backoff *= 2
		if backoff > c.cfg.MaxBackoff {
			backoff = c.cfg.MaxBackoff
		}
	}
}

// deliver pushes an event to the consumer, giving up only when the channel
// is shutting down. Events are delivered strictly in receipt order.
func (c *Channel) deliver(ev Event) {
	select {
	case c.events <- ev:
	case <-c.runCtx.Done():
	}
}

// writeJSON marshals v and writes it as a text message.
func writeJSON(ctx context.Context, conn *websocket.Conn, v controlMessage) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
