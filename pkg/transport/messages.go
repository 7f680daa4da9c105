package transport

import "encoding/json"

// Outbound control message types.
const (
	msgStartTranscription = "start_transcription"
	msgStopTranscription  = "stop_transcription"
)

// controlMessage is the JSON envelope for outbound control messages.
type controlMessage struct {
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
	Model    string `json:"model,omitempty"`
}

// serverMessage is the JSON structure of every inbound event. Fields not
// relevant to a given type are left at their zero values.
type serverMessage struct {
	Type               string  `json:"type"`
	Transcript         string  `json:"transcript"`
	IsFinal            bool    `json:"is_final"`
	SpeechFinal        bool    `json:"speech_final"`
	Confidence         float64 `json:"confidence"`
	DetectedLanguage   string  `json:"detected_language"`
	LanguageConfidence float64 `json:"language_confidence"`
	Message            string  `json:"message"`
}

// EventType enumerates channel events delivered on [Channel.Events].
type EventType int

const (
	// EventConnected is the backend's hello after the socket opens.
	EventConnected EventType = iota

	// EventReady signals the backend accepted start_transcription and is
	// consuming audio.
	EventReady

	// EventTranscript carries an interim or final transcript fragment.
	EventTranscript

	// EventStopped signals the backend acknowledged stop_transcription.
	EventStopped

	// EventServerError carries a backend-reported error message.
	EventServerError

	// EventDisconnected is synthesised locally when the socket closes.
	// Abnormal reports whether the closure was unclean.
	EventDisconnected
)

// TranscriptEvent is one transcript fragment from the backend. Produced by
// the channel on message receipt; consumed exactly once by the reconciler.
type TranscriptEvent struct {
	Text          string
	IsFinal       bool
	IsSpeechFinal bool

	// Confidence is the backend's transcription confidence, when reported.
	Confidence float64

	// DetectedLanguage and LanguageConfidence are the backend's language
	// hint, when present. Empty language means no hint.
	DetectedLanguage   string
	LanguageConfidence float64
}

// Event is a tagged channel event. Exactly one payload field is meaningful
// per Type.
type Event struct {
	Type       EventType
	Transcript TranscriptEvent
	Err        string

	// Abnormal qualifies EventDisconnected.
	Abnormal bool
}

// parseServerMessage decodes an inbound JSON message into an Event.
// Returns ok=false for malformed JSON or unknown/ignorable message types
// (e.g. pong); such messages are dropped by the caller.
func parseServerMessage(data []byte) (Event, bool) {
	var m serverMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return Event{}, false
	}

	switch m.Type {
	case "connected":
		return Event{Type: EventConnected}, true
	case "transcription_ready":
		return Event{Type: EventReady}, true
	case "transcript":
		return Event{
			Type: EventTranscript,
			Transcript: TranscriptEvent{
				Text:               m.Transcript,
				IsFinal:            m.IsFinal,
				IsSpeechFinal:      m.SpeechFinal,
				Confidence:         m.Confidence,
				DetectedLanguage:   m.DetectedLanguage,
				LanguageConfidence: m.LanguageConfidence,
			},
		}, true
	case "transcription_stopped":
		return Event{Type: EventStopped}, true
	case "error":
		return Event{Type: EventServerError, Err: m.Message}, true
	default:
		// pong and anything unrecognised.
		return Event{}, false
	}
}
