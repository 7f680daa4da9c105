package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// backendStub is a minimal in-process transcription backend for channel tests.
type backendStub struct {
	t *testing.T

	// dials counts accepted connections.
	dials atomic.Int32

	// onConn is invoked per accepted connection with the parsed
	// start_transcription message. Return to close the connection normally;
	// use conn directly for custom scripts.
	onConn func(r *http.Request, conn *websocket.Conn, start controlMessage)

	srv *httptest.Server
}

func newBackendStub(t *testing.T, onConn func(*http.Request, *websocket.Conn, controlMessage)) *backendStub {
	b := &backendStub{t: t, onConn: onConn}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		b.dials.Add(1)

		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		var start controlMessage
		if err := json.Unmarshal(data, &start); err != nil {
			t.Errorf("bad start message: %v", err)
			return
		}
		b.onConn(r, conn, start)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backendStub) url() string { return b.srv.URL }

// sendJSON writes a raw JSON string as a text message.
func sendJSON(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	if err := conn.Write(context.Background(), websocket.MessageText, []byte(raw)); err != nil {
		t.Errorf("server write: %v", err)
	}
}

// waitEvent reads events until one of the wanted type arrives or the timeout
// expires.
func waitEvent(t *testing.T, ch *Channel, want EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch.Events():
			if !ok {
				t.Fatal("events channel closed while waiting")
			}
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event type %d", want)
		}
	}
}

func TestChannel_ConnectHandshake(t *testing.T) {
	gotQuery := make(chan map[string]string, 1)
	gotStart := make(chan controlMessage, 1)

	stub := newBackendStub(t, func(r *http.Request, conn *websocket.Conn, start controlMessage) {
		q := r.URL.Query()
		gotQuery <- map[string]string{
			"token":    q.Get("token"),
			"language": q.Get("language"),
			"model":    q.Get("model"),
		}
		gotStart <- start
		sendJSON(t, conn, `{"type":"connected"}`)
		sendJSON(t, conn, `{"type":"transcription_ready"}`)
		<-r.Context().Done()
	})

	ch := New(Config{
		URL:      stub.url(),
		Token:    "secret-token",
		Language: "es",
		Model:    "nova",
	})
	defer ch.Disconnect()

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if ch.State() != StateOpen {
		t.Errorf("expected state open, got %v", ch.State())
	}

	q := <-gotQuery
	if q["token"] != "secret-token" || q["language"] != "es" || q["model"] != "nova" {
		t.Errorf("unexpected URL params: %v", q)
	}

	start := <-gotStart
	if start.Type != "start_transcription" || start.Language != "es" || start.Model != "nova" {
		t.Errorf("unexpected start message: %+v", start)
	}

	waitEvent(t, ch, EventConnected)
	waitEvent(t, ch, EventReady)
}

func TestChannel_DefaultLanguageIsAuto(t *testing.T) {
	gotLang := make(chan string, 1)
	stub := newBackendStub(t, func(r *http.Request, conn *websocket.Conn, start controlMessage) {
		gotLang <- r.URL.Query().Get("language")
		<-r.Context().Done()
	})

	ch := New(Config{URL: stub.url(), Token: "t"})
	defer ch.Disconnect()
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if lang := <-gotLang; lang != "auto" {
		t.Errorf("expected language=auto, got %q", lang)
	}
}

func TestChannel_ConnectTimeout(t *testing.T) {
	// An HTTP server that never completes the WebSocket handshake.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ch := New(Config{URL: srv.URL, ConnectTimeout: 50 * time.Millisecond})
	defer ch.Disconnect()

	if err := ch.Connect(context.Background()); err == nil {
		t.Fatal("expected connect to fail on timeout")
	}
	if ch.State() != StateIdle {
		t.Errorf("expected state idle after failed connect, got %v", ch.State())
	}
}

func TestChannel_TranscriptAndMalformedMessages(t *testing.T) {
	stub := newBackendStub(t, func(r *http.Request, conn *websocket.Conn, start controlMessage) {
		sendJSON(t, conn, `{not json`)
		sendJSON(t, conn, `{"type":"pong"}`)
		sendJSON(t, conn, `{"type":"transcript","transcript":"hola","is_final":true,"speech_final":true,"confidence":0.9,"detected_language":"es","language_confidence":0.7}`)
		<-r.Context().Done()
	})

	ch := New(Config{URL: stub.url()})
	defer ch.Disconnect()
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	// Malformed and pong messages are dropped; the transcript still arrives.
	ev := waitEvent(t, ch, EventTranscript)
	tr := ev.Transcript
	if tr.Text != "hola" || !tr.IsFinal || !tr.IsSpeechFinal {
		t.Errorf("unexpected transcript event: %+v", tr)
	}
	if tr.DetectedLanguage != "es" || tr.LanguageConfidence != 0.7 {
		t.Errorf("expected language hint to be carried, got %+v", tr)
	}
}

func TestChannel_DisconnectSendsStopAndSuppressesReconnect(t *testing.T) {
	gotStop := make(chan controlMessage, 1)
	stub := newBackendStub(t, func(r *http.Request, conn *websocket.Conn, start controlMessage) {
		// Read until the stop control message arrives.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			var m controlMessage
			if json.Unmarshal(data, &m) == nil && m.Type == "stop_transcription" {
				gotStop <- m
			}
		}
	})

	ch := New(Config{
		URL:             stub.url(),
		NormalBackoff:   time.Millisecond,
		AbnormalBackoff: time.Millisecond,
	})
	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if err := ch.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	select {
	case <-gotStop:
	case <-time.After(2 * time.Second):
		t.Fatal("expected stop_transcription control message")
	}

	// No reconnect after a local stop.
	time.Sleep(50 * time.Millisecond)
	if n := stub.dials.Load(); n != 1 {
		t.Errorf("expected 1 dial after local stop, got %d", n)
	}
	if ch.State() != StateClosed {
		t.Errorf("expected state closed, got %v", ch.State())
	}
}

func TestChannel_AbnormalClosureReconnects(t *testing.T) {
	stub := newBackendStub(t, nil)
	stub.onConn = func(r *http.Request, conn *websocket.Conn, start controlMessage) {
		if stub.dials.Load() == 1 {
			// Drop the first connection without a close frame.
			conn.CloseNow()
			return
		}
		<-r.Context().Done()
	}

	// The normal backoff is far beyond the test deadline, so a timely redial
	// proves the abnormal delay was selected.
	ch := New(Config{
		URL:             stub.url(),
		NormalBackoff:   10 * time.Second,
		AbnormalBackoff: 5 * time.Millisecond,
	})
	defer ch.Disconnect()

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	ev := waitEvent(t, ch, EventDisconnected)
	if !ev.Abnormal {
		t.Error("expected closure to be classified abnormal")
	}

	// The channel must dial again on its own.
	deadline := time.Now().Add(2 * time.Second)
	for stub.dials.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("expected automatic reconnect after abnormal closure")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestChannel_NormalClosureUsesNormalBackoff(t *testing.T) {
	stub := newBackendStub(t, nil)
	stub.onConn = func(r *http.Request, conn *websocket.Conn, start controlMessage) {
		if stub.dials.Load() == 1 {
			// Close the first connection cleanly.
			conn.Close(websocket.StatusNormalClosure, "rotating")
			return
		}
		<-r.Context().Done()
	}

	// Inverse of the abnormal case: the abnormal backoff would blow the test
	// deadline, so a timely redial proves the normal delay was selected.
	ch := New(Config{
		URL:             stub.url(),
		NormalBackoff:   5 * time.Millisecond,
		AbnormalBackoff: 10 * time.Second,
	})
	defer ch.Disconnect()

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	ev := waitEvent(t, ch, EventDisconnected)
	if ev.Abnormal {
		t.Error("expected a clean closure to be classified normal")
	}

	deadline := time.Now().Add(2 * time.Second)
	for stub.dials.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("expected automatic reconnect after normal closure")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestChannel_SetLanguageAppliesOnReconnect(t *testing.T) {
	langs := make(chan string, 2)
	stub := newBackendStub(t, nil)
	stub.onConn = func(r *http.Request, conn *websocket.Conn, start controlMessage) {
		langs <- r.URL.Query().Get("language")
		if stub.dials.Load() == 1 {
			conn.CloseNow()
			return
		}
		<-r.Context().Done()
	}

	ch := New(Config{
		URL:             stub.url(),
		NormalBackoff:   100 * time.Millisecond,
		AbnormalBackoff: 100 * time.Millisecond,
	})
	defer ch.Disconnect()

	if err := ch.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if lang := <-langs; lang != "auto" {
		t.Fatalf("first handshake language = %q, want auto", lang)
	}

	// A detected language pins subsequent handshakes before the redial fires.
	ch.SetLanguage("es")

	select {
	case lang := <-langs:
		if lang != "es" {
			t.Errorf("reconnect handshake language = %q, want es", lang)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected automatic reconnect")
	}
}

func TestChannel_SendRequiresOpenSocket(t *testing.T) {
	ch := New(Config{URL: "ws://127.0.0.1:1"})
	if err := ch.Send([]byte{1, 2}); err == nil {
		t.Fatal("expected error sending on an idle channel")
	}
}

func TestParseServerMessage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want EventType
		ok   bool
	}{
		{"connected", `{"type":"connected"}`, EventConnected, true},
		{"ready", `{"type":"transcription_ready"}`, EventReady, true},
		{"stopped", `{"type":"transcription_stopped"}`, EventStopped, true},
		{"error", `{"type":"error","message":"boom"}`, EventServerError, true},
		{"pong ignored", `{"type":"pong"}`, 0, false},
		{"unknown ignored", `{"type":"wat"}`, 0, false},
		{"malformed", `{`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := parseServerMessage([]byte(tt.raw))
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && ev.Type != tt.want {
				t.Errorf("type = %d, want %d", ev.Type, tt.want)
			}
		})
	}
}
