// Command auralis is a streaming transcription client: it reads raw PCM audio
// from stdin, streams speech to a transcription backend over WebSocket, and
// prints live transcripts with automatic language detection.
//
// Feed it audio with any capture utility, e.g.:
//
//	arecord -f S16_LE -r 48000 -c 1 | auralis -config config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/auralis-dev/auralis/internal/config"
	"github.com/auralis-dev/auralis/internal/langdetect"
	"github.com/auralis-dev/auralis/internal/observe"
	"github.com/auralis-dev/auralis/internal/session"
	"github.com/auralis-dev/auralis/pkg/audio"
	"github.com/auralis-dev/auralis/pkg/audio/rawio"
	"github.com/auralis-dev/auralis/pkg/transport"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "auralis: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "auralis: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("auralis starting",
		"config", *configPath,
		"backend", cfg.Backend.URL,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "auralis",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	if cfg.Server.ListenAddr != "" {
		go serveMetrics(cfg.Server.ListenAddr)
	}

	// ── Pipeline wiring ───────────────────────────────────────────────────────
	captureRate := cfg.Audio.SampleRate
	if captureRate <= 0 {
		captureRate = 48000
	}

	channel := transport.New(transport.Config{
		URL:             cfg.Backend.URL,
		Token:           cfg.Backend.Token,
		Language:        cfg.Backend.Language,
		Model:           cfg.Backend.Model,
		ConnectTimeout:  cfg.Backend.ConnectTimeout.Std(),
		NormalBackoff:   cfg.Backend.NormalBackoff.Std(),
		AbnormalBackoff: cfg.Backend.AbnormalBackoff.Std(),
	})

	detector := langdetect.New(langdetect.NullRecognizer{}, detectorOptions(cfg.Detection)...)

	controller, err := session.New(session.Config{
		Source:   rawio.Stdin(captureRate),
		Link:     channel,
		Detector: detector,
		Constraints: audio.Constraints{
			SampleRate: captureRate,
			FrameSize:  cfg.Audio.FrameSize,
			DeviceID:   cfg.Audio.Device,
		},
		Framer: audio.FramerConfig{
			Gain:               cfg.Audio.Gain,
			RMSThreshold:       cfg.Audio.RMSThreshold,
			PeakThreshold:      cfg.Audio.PeakThreshold,
			OnsetRMSThreshold:  cfg.Audio.OnsetRMSThreshold,
			OnsetPeakThreshold: cfg.Audio.OnsetPeakThreshold,
			HangoverFrames:     cfg.Audio.HangoverFrames,
			HeartbeatFrames:    cfg.Audio.HeartbeatFrames,
			MinSendInterval:    cfg.Audio.MinSendInterval.Std(),
		},
		SwitchThreshold: cfg.Detection.SwitchThreshold,
		Logger:          logger,
	})
	if err != nil {
		slog.Error("failed to assemble session", "err", err)
		return 1
	}

	if err := controller.Start(ctx); err != nil {
		slog.Error("failed to start session", "err", err)
		return 1
	}

	slog.Info("listening, press Ctrl+C to stop")

	// ── Event loop ────────────────────────────────────────────────────────────
	running := true
	for running {
		select {
		case <-ctx.Done():
			running = false
		case ev, ok := <-controller.Events():
			if !ok {
				running = false
				break
			}
			printEvent(ev)
		}
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	if err := controller.Close(); err != nil {
		slog.Error("session close error", "err", err)
		return 1
	}

	if text := controller.CommitUtterance(); text != "" {
		fmt.Println(text)
	}
	slog.Info("goodbye")
	return 0
}

// detectorOptions converts the detection config block into langdetect options,
// leaving the engine defaults in place for unset fields.
func detectorOptions(cfg config.DetectionConfig) []langdetect.Option {
	var opts []langdetect.Option
	if len(cfg.Candidates) > 0 {
		opts = append(opts, langdetect.WithCandidates(cfg.Candidates...))
	}
	if cfg.ProbeTimeout > 0 {
		opts = append(opts, langdetect.WithProbeTimeout(cfg.ProbeTimeout.Std()))
	}
	if cfg.ConsensusThreshold > 0 {
		opts = append(opts, langdetect.WithConsensusThreshold(cfg.ConsensusThreshold))
	}
	if cfg.LexicalThreshold > 0 {
		opts = append(opts, langdetect.WithLexicalThreshold(cfg.LexicalThreshold))
	}
	if cfg.HintThreshold > 0 {
		opts = append(opts, langdetect.WithHintThreshold(cfg.HintThreshold))
	}
	return opts
}

// printEvent renders one session event for the terminal.
func printEvent(ev session.Event) {
	switch ev.Type {
	case session.EventTranscript:
		fmt.Printf("\r\033[K%s", ev.Display)
	case session.EventUtteranceEnd:
		fmt.Println()
	case session.EventSpeechStarted:
		slog.Debug("speech started")
	case session.EventLanguageDetected:
		slog.Info("language detected",
			"language", ev.Language,
			"confidence", fmt.Sprintf("%.2f", ev.Confidence),
			"method", ev.Method,
		)
	case session.EventConnection:
		slog.Debug("connection state", "connected", ev.Connected, "abnormal", ev.Abnormal)
	case session.EventError:
		slog.Warn("session error", "err", ev.Err)
	}
}

// serveMetrics exposes the Prometheus scrape endpoint.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("metrics endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics endpoint failed", "err", err)
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
