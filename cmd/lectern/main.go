// Command lectern is the conversational tutoring server behind the animated
// professor avatar.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/profai/lectern/internal/answer"
	"github.com/profai/lectern/internal/config"
	"github.com/profai/lectern/internal/health"
	"github.com/profai/lectern/internal/observe"
	"github.com/profai/lectern/internal/pipeline"
	"github.com/profai/lectern/internal/resilience"
	"github.com/profai/lectern/internal/server"
	"github.com/profai/lectern/internal/staging"
	"github.com/profai/lectern/pkg/provider/transcode/ffmpeg"
	"github.com/profai/lectern/pkg/provider/tts"
	"github.com/profai/lectern/pkg/provider/tts/elevenlabs"
	"github.com/profai/lectern/pkg/provider/viseme/rhubarb"
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// A .env file is optional; environment variables win either way.
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "lectern: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "lectern: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("lectern starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"answer_provider", cfg.Answer.Provider,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "lectern"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	source, err := buildAnswerSource(cfg)
	if err != nil {
		slog.Error("failed to build answer source", "err", err)
		return 1
	}

	synth, err := buildSynthesizer(cfg)
	if err != nil {
		slog.Error("failed to build speech provider", "err", err)
		return 1
	}

	voiceID, err := resolveVoiceID(ctx, cfg, synth)
	if err != nil {
		slog.Error("failed to resolve voice", "err", err)
		return 1
	}

	var ffmpegOpts []ffmpeg.Option
	if cfg.Tools.TranscodeTimeoutSeconds > 0 {
		ffmpegOpts = append(ffmpegOpts, ffmpeg.WithTimeout(time.Duration(cfg.Tools.TranscodeTimeoutSeconds)*time.Second))
	}
	transcoder, err := ffmpeg.New(cfg.Tools.TranscoderPath, ffmpegOpts...)
	if err != nil {
		slog.Error("failed to initialise transcoder", "err", err)
		return 1
	}

	var rhubarbOpts []rhubarb.Option
	if cfg.Tools.VisemeTimeoutSeconds > 0 {
		rhubarbOpts = append(rhubarbOpts, rhubarb.WithTimeout(time.Duration(cfg.Tools.VisemeTimeoutSeconds)*time.Second))
	}
	extractor, err := rhubarb.New(cfg.Tools.VisemeToolPath, rhubarbOpts...)
	if err != nil {
		slog.Error("failed to initialise viseme extractor", "err", err)
		return 1
	}

	store, err := staging.NewStore(cfg.Staging.Dir)
	if err != nil {
		slog.Error("failed to initialise staging store", "err", err)
		return 1
	}

	pl := pipeline.New(source, synth, transcoder, extractor, store, voiceID)
	srv := server.New(pl, synth, buildCheckers(cfg))

	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready", "addr", cfg.Server.ListenAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	slog.Info("shutdown signal received, stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildAnswerSource creates the configured answer source wrapped in a circuit
// breaker. When both sources are fully configured, the non-primary one is
// registered as an automatic fallback.
func buildAnswerSource(cfg *config.Config) (answer.Source, error) {
	serviceReady := cfg.Answer.ServiceURL != ""
	openaiReady := cfg.Answer.OpenAIModel != "" && cfg.Answer.OpenAIAPIKey != ""

	var service, openai answer.Source
	if serviceReady {
		var opts []answer.Option
		if cfg.Answer.TimeoutSeconds > 0 {
			opts = append(opts, answer.WithTimeout(time.Duration(cfg.Answer.TimeoutSeconds)*time.Second))
		}
		opts = append(opts, answer.WithRetries(cfg.Answer.Retries))
		c, err := answer.NewClient(cfg.Answer.ServiceURL, opts...)
		if err != nil {
			return nil, err
		}
		service = c
	}
	if openaiReady {
		var opts []answer.OpenAIOption
		if cfg.Answer.TimeoutSeconds > 0 {
			opts = append(opts, answer.WithOpenAITimeout(time.Duration(cfg.Answer.TimeoutSeconds)*time.Second))
		}
		s, err := answer.NewOpenAISource(cfg.Answer.OpenAIAPIKey, cfg.Answer.OpenAIModel, opts...)
		if err != nil {
			return nil, err
		}
		openai = s
	}

	metrics := observe.DefaultMetrics()
	bCfg := resilience.BreakerConfig{
		MaxFailures:  cfg.Answer.BreakerMaxFailures,
		ResetTimeout: time.Duration(cfg.Answer.BreakerResetSeconds) * time.Second,
		OnStateChange: func(name string, _, to resilience.State) {
			metrics.RecordBreakerTransition(context.Background(), name, to.String())
		},
	}
	if cfg.Answer.Provider == config.AnswerOpenAI {
		group := resilience.NewAnswerFallback(openai, "openai", bCfg)
		if service != nil {
			group.AddFallback("service", service)
			slog.Info("answer fallback enabled", "primary", "openai", "fallback", "service")
		}
		return group, nil
	}
	group := resilience.NewAnswerFallback(service, "service", bCfg)
	if openai != nil {
		group.AddFallback("openai", openai)
		slog.Info("answer fallback enabled", "primary", "service", "fallback", "openai")
	}
	return group, nil
}

func buildSynthesizer(cfg *config.Config) (*elevenlabs.Synthesizer, error) {
	var opts []elevenlabs.Option
	if cfg.Speech.Model != "" {
		opts = append(opts, elevenlabs.WithModel(cfg.Speech.Model))
	}
	if cfg.Speech.TimeoutSeconds > 0 {
		opts = append(opts, elevenlabs.WithTimeout(time.Duration(cfg.Speech.TimeoutSeconds)*time.Second))
	}
	return elevenlabs.New(cfg.Speech.APIKey, opts...)
}

// resolveVoiceID returns the configured voice ID, resolving a voice name
// against the provider's catalogue when no ID is given.
func resolveVoiceID(ctx context.Context, cfg *config.Config, synth *elevenlabs.Synthesizer) (string, error) {
	if cfg.Speech.VoiceID != "" {
		return cfg.Speech.VoiceID, nil
	}
	voices, err := synth.ListVoices(ctx)
	if err != nil {
		return "", fmt.Errorf("list voices: %w", err)
	}
	profile, err := tts.ResolveVoice(cfg.Speech.VoiceName, voices)
	if err != nil {
		return "", err
	}
	slog.Info("voice resolved", "name", cfg.Speech.VoiceName, "voice_id", profile.ID)
	return profile.ID, nil
}

// buildCheckers assembles the readiness checks: the answer service (when the
// external provider is configured), both external tool binaries, and a
// writable staging directory.
func buildCheckers(cfg *config.Config) []health.Checker {
	var checkers []health.Checker
	if cfg.Answer.Provider == config.AnswerService {
		checkers = append(checkers, server.AnswerServiceChecker(cfg.Answer.ServiceURL))
	}
	checkers = append(checkers,
		binaryChecker("transcoder", cfg.Tools.TranscoderPath),
		binaryChecker("viseme_tool", cfg.Tools.VisemeToolPath),
		health.Checker{
			Name: "staging_dir",
			Check: func(context.Context) error {
				probe := filepath.Join(cfg.Staging.Dir, ".probe")
				if err := os.WriteFile(probe, nil, 0o644); err != nil {
					return fmt.Errorf("not writable: %w", err)
				}
				return os.Remove(probe)
			},
		},
	)
	return checkers
}

// binaryChecker reports whether an external tool binary can be located, either
// as an explicit path or on PATH.
func binaryChecker(name, binPath string) health.Checker {
	return health.Checker{
		Name: name,
		Check: func(context.Context) error {
			if filepath.Base(binPath) != binPath {
				_, err := os.Stat(binPath)
				return err
			}
			_, err := exec.LookPath(binPath)
			return err
		},
	}
}

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
