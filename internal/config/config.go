// Package config provides the configuration schema and loader for the
// Auralis transcription client.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Duration wraps time.Duration so YAML configs can use values like "500ms"
// or "3s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Audio     AudioConfig     `yaml:"audio"`
	Detection DetectionConfig `yaml:"detection"`
}

// ServerConfig holds the local observability endpoint and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address for the /metrics endpoint (e.g., ":9090").
	// Empty disables the endpoint.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// BackendConfig describes the transcription backend connection.
type BackendConfig struct {
	// URL is the WebSocket endpoint (ws:// or wss://). Required.
	URL string `yaml:"url"`

	// Token authenticates the connection. Passed as a URL parameter.
	Token string `yaml:"token"`

	// Model selects the backend recognition model (e.g., "nova-2").
	Model string `yaml:"model"`

	// Language fixes the recognition language. Empty means automatic
	// detection.
	Language string `yaml:"language"`

	// ConnectTimeout bounds the dial plus handshake. Default 5s.
	ConnectTimeout Duration `yaml:"connect_timeout"`

	// NormalBackoff and AbnormalBackoff are the initial reconnect delays
	// after normal and abnormal closures. Defaults 1s and 5s.
	NormalBackoff   Duration `yaml:"normal_backoff"`
	AbnormalBackoff Duration `yaml:"abnormal_backoff"`
}

// AudioConfig tunes capture and speech classification. Zero values select the
// pipeline defaults.
type AudioConfig struct {
	// SampleRate is the requested capture rate in Hz. 0 lets the device
	// choose.
	SampleRate int `yaml:"sample_rate"`

	// FrameSize is the number of samples per capture frame.
	FrameSize int `yaml:"frame_size"`

	// Device optionally selects a capture device.
	Device string `yaml:"device"`

	// Gain is the fixed amplification applied before wire encoding.
	Gain float64 `yaml:"gain"`

	// RMSThreshold and PeakThreshold classify a frame as speech.
	RMSThreshold  float64 `yaml:"rms_threshold"`
	PeakThreshold float64 `yaml:"peak_threshold"`

	// OnsetRMSThreshold and OnsetPeakThreshold are the lower thresholds in
	// effect before the first speech frame of a session, so the onset
	// syllable is not clipped. Defaults 0.01 and 0.03.
	OnsetRMSThreshold  float64 `yaml:"onset_rms_threshold"`
	OnsetPeakThreshold float64 `yaml:"onset_peak_threshold"`

	// MinSendInterval throttles outbound frames. Default 20ms.
	MinSendInterval Duration `yaml:"min_send_interval"`

	// HangoverFrames is the number of silent frames transmitted after speech.
	HangoverFrames int `yaml:"hangover_frames"`

	// HeartbeatFrames is the silent-frame interval between keepalives.
	HeartbeatFrames int `yaml:"heartbeat_frames"`
}

// DetectionConfig tunes the language detection engine. Zero values select the
// engine defaults.
type DetectionConfig struct {
	// Candidates lists the ISO 639-1 codes probed per utterance.
	Candidates []string `yaml:"candidates"`

	// ProbeTimeout bounds each per-language engine probe. Default 3s.
	ProbeTimeout Duration `yaml:"probe_timeout"`

	// SwitchThreshold is the minimum verdict confidence for an automatic
	// recognition-language switch. Default 0.75.
	SwitchThreshold float64 `yaml:"switch_threshold"`

	// ConsensusThreshold is the minimum consensus score for a verdict.
	// Default 0.5.
	ConsensusThreshold float64 `yaml:"consensus_threshold"`

	// LexicalThreshold is the minimum confidence for the text-only fallback.
	// Default 0.5.
	LexicalThreshold float64 `yaml:"lexical_threshold"`

	// HintThreshold is the minimum enhanced confidence for a backend language
	// hint to be surfaced on its own. Default 0.3.
	HintThreshold float64 `yaml:"hint_threshold"`
}
