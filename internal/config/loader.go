package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Backend
	if cfg.Backend.URL == "" {
		errs = append(errs, errors.New("backend.url is required"))
	} else if u, err := url.Parse(cfg.Backend.URL); err != nil {
		errs = append(errs, fmt.Errorf("backend.url is not a valid URL: %w", err))
	} else if u.Scheme != "ws" && u.Scheme != "wss" && u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Errorf("backend.url scheme %q is invalid; valid values: ws, wss, http, https", u.Scheme))
	}
	if cfg.Backend.ConnectTimeout < 0 {
		errs = append(errs, errors.New("backend.connect_timeout must not be negative"))
	}

	// Audio
	if cfg.Audio.Gain < 0 {
		errs = append(errs, fmt.Errorf("audio.gain %.2f must not be negative", cfg.Audio.Gain))
	}
	if cfg.Audio.RMSThreshold < 0 || cfg.Audio.RMSThreshold > 1 {
		errs = append(errs, fmt.Errorf("audio.rms_threshold %.3f is out of range [0, 1]", cfg.Audio.RMSThreshold))
	}
	if cfg.Audio.PeakThreshold < 0 || cfg.Audio.PeakThreshold > 1 {
		errs = append(errs, fmt.Errorf("audio.peak_threshold %.3f is out of range [0, 1]", cfg.Audio.PeakThreshold))
	}
	if cfg.Audio.OnsetRMSThreshold < 0 || cfg.Audio.OnsetRMSThreshold > 1 {
		errs = append(errs, fmt.Errorf("audio.onset_rms_threshold %.3f is out of range [0, 1]", cfg.Audio.OnsetRMSThreshold))
	}
	if cfg.Audio.OnsetPeakThreshold < 0 || cfg.Audio.OnsetPeakThreshold > 1 {
		errs = append(errs, fmt.Errorf("audio.onset_peak_threshold %.3f is out of range [0, 1]", cfg.Audio.OnsetPeakThreshold))
	}
	if cfg.Audio.MinSendInterval < 0 {
		errs = append(errs, errors.New("audio.min_send_interval must not be negative"))
	}

	// Detection
	for _, bound := range []struct {
		name  string
		value float64
	}{
		{"detection.switch_threshold", cfg.Detection.SwitchThreshold},
		{"detection.consensus_threshold", cfg.Detection.ConsensusThreshold},
		{"detection.lexical_threshold", cfg.Detection.LexicalThreshold},
		{"detection.hint_threshold", cfg.Detection.HintThreshold},
	} {
		if bound.value < 0 || bound.value > 1 {
			errs = append(errs, fmt.Errorf("%s %.2f is out of range [0, 1]", bound.name, bound.value))
		}
	}
	for i, lang := range cfg.Detection.Candidates {
		if len(lang) != 2 {
			errs = append(errs, fmt.Errorf("detection.candidates[%d] %q is not an ISO 639-1 code", i, lang))
		}
	}

	return errors.Join(errs...)
}
