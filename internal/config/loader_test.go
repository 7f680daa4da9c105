package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  listen_addr: ":9090"
  log_level: info
backend:
  url: wss://stt.example.com/v1/stream
  token: secret
  model: nova-2
  connect_timeout: 5s
  normal_backoff: 1s
  abnormal_backoff: 5s
audio:
  sample_rate: 48000
  frame_size: 1024
  gain: 1.5
  rms_threshold: 0.02
  peak_threshold: 0.06
  onset_rms_threshold: 0.01
  onset_peak_threshold: 0.03
  min_send_interval: 20ms
detection:
  candidates: [en, es, fr]
  probe_timeout: 3s
  switch_threshold: 0.75
  hint_threshold: 0.3
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Backend.URL != "wss://stt.example.com/v1/stream" {
		t.Errorf("backend.url = %q", cfg.Backend.URL)
	}
	if got := cfg.Backend.ConnectTimeout.Std(); got != 5*time.Second {
		t.Errorf("connect_timeout = %v, want 5s", got)
	}
	if got := cfg.Detection.ProbeTimeout.Std(); got != 3*time.Second {
		t.Errorf("probe_timeout = %v, want 3s", got)
	}
	if len(cfg.Detection.Candidates) != 3 {
		t.Errorf("candidates = %v", cfg.Detection.Candidates)
	}
	if cfg.Audio.Gain != 1.5 {
		t.Errorf("gain = %v", cfg.Audio.Gain)
	}
	if got := cfg.Audio.MinSendInterval.Std(); got != 20*time.Millisecond {
		t.Errorf("min_send_interval = %v, want 20ms", got)
	}
	if cfg.Audio.OnsetRMSThreshold != 0.01 {
		t.Errorf("onset_rms_threshold = %v", cfg.Audio.OnsetRMSThreshold)
	}
	if cfg.Detection.HintThreshold != 0.3 {
		t.Errorf("hint_threshold = %v", cfg.Detection.HintThreshold)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	yaml := `
backend:
  url: ws://localhost:8080
  shouting: loud
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestLoadFromReader_BadDuration(t *testing.T) {
	yaml := `
backend:
  url: ws://localhost:8080
  connect_timeout: soon
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected invalid duration to be rejected")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{LogLevel: "verbose"},
		Audio: AudioConfig{
			RMSThreshold:       2,
			OnsetPeakThreshold: -0.5,
			MinSendInterval:    Duration(-time.Millisecond),
		},
		Detection: DetectionConfig{
			SwitchThreshold: 1.5,
			HintThreshold:   3,
			Candidates:      []string{"spanish"},
		},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{
		"server.log_level",
		"backend.url is required",
		"audio.rms_threshold",
		"audio.onset_peak_threshold",
		"audio.min_send_interval",
		"detection.switch_threshold",
		"detection.hint_threshold",
		"detection.candidates[0]",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %q:\n%v", want, err)
		}
	}
}

func TestValidate_URLScheme(t *testing.T) {
	cfg := &Config{Backend: BackendConfig{URL: "ftp://example.com"}}
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "scheme") {
		t.Errorf("expected a scheme error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
