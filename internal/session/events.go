package session

// EventType discriminates the session event union.
type EventType int

const (
	// EventTranscript reports a change to the displayed transcript.
	EventTranscript EventType = iota + 1

	// EventSpeechStarted fires on the first speech frame after silence.
	EventSpeechStarted

	// EventUtteranceEnd fires when the backend marks a segment speech-final.
	EventUtteranceEnd

	// EventLanguageDetected reports a surfaced language verdict.
	EventLanguageDetected

	// EventConnection reports a change in backend connectivity.
	EventConnection

	// EventError reports a backend or capture error. The session keeps
	// running; fatal errors surface as Start/Stop return values instead.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventTranscript:
		return "transcript"
	case EventSpeechStarted:
		return "speech_started"
	case EventUtteranceEnd:
		return "utterance_end"
	case EventLanguageDetected:
		return "language_detected"
	case EventConnection:
		return "connection"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one session notification. Only the fields relevant to Type are
// populated.
type Event struct {
	Type EventType

	// Display and Committed carry the reconciled transcript for
	// EventTranscript and EventUtteranceEnd.
	Display   string
	Committed string

	// Language, Confidence, and Method describe an EventLanguageDetected.
	Language   string
	Confidence float64
	Method     string

	// Connected and Abnormal describe an EventConnection.
	Connected bool
	Abnormal  bool

	// Err carries the failure for EventError.
	Err error
}
