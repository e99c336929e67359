package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load when the corresponding field is unset.
const (
	DefaultListenAddr     = ":3000"
	DefaultStagingDir     = "audios"
	DefaultTranscoderPath = "ffmpeg"
	DefaultAnswerRetries  = 2
)

// Load reads the YAML configuration file at path, applies environment
// overrides and defaults, and returns a validated [Config]. It is a
// convenience wrapper around [LoadFromReader].
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

// LoadFromReader decodes a YAML config from r, applies environment overrides
// and defaults, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets API keys come from the environment so that config
// files checked into a repository never need to carry secrets.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		cfg.Speech.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Answer.OpenAIAPIKey = v
	}
}

// applyDefaults fills unset fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Answer.Provider == "" {
		cfg.Answer.Provider = AnswerService
	}
	if cfg.Answer.Retries < 0 {
		cfg.Answer.Retries = DefaultAnswerRetries
	}
	if cfg.Tools.TranscoderPath == "" {
		cfg.Tools.TranscoderPath = DefaultTranscoderPath
	}
	if cfg.Staging.Dir == "" {
		cfg.Staging.Dir = DefaultStagingDir
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Answer source
	if !cfg.Answer.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("answer.provider %q is invalid; valid values: service, openai", cfg.Answer.Provider))
	}
	switch cfg.Answer.Provider {
	case AnswerService:
		if cfg.Answer.ServiceURL == "" {
			errs = append(errs, errors.New("answer.service_url is required when answer.provider is \"service\""))
		}
	case AnswerOpenAI:
		if cfg.Answer.OpenAIModel == "" {
			errs = append(errs, errors.New("answer.openai_model is required when answer.provider is \"openai\""))
		}
		if cfg.Answer.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("answer.openai_api_key (or OPENAI_API_KEY) is required when answer.provider is \"openai\""))
		}
	}
	if cfg.Answer.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("answer.timeout_seconds %d must not be negative", cfg.Answer.TimeoutSeconds))
	}
	if cfg.Answer.BreakerMaxFailures < 0 {
		errs = append(errs, fmt.Errorf("answer.breaker_max_failures %d must not be negative", cfg.Answer.BreakerMaxFailures))
	}
	if cfg.Answer.BreakerResetSeconds < 0 {
		errs = append(errs, fmt.Errorf("answer.breaker_reset_seconds %d must not be negative", cfg.Answer.BreakerResetSeconds))
	}

	// Speech provider
	if cfg.Speech.APIKey == "" {
		errs = append(errs, errors.New("speech.api_key (or ELEVENLABS_API_KEY) is required"))
	}
	switch {
	case cfg.Speech.VoiceID == "" && cfg.Speech.VoiceName == "":
		errs = append(errs, errors.New("one of speech.voice_id or speech.voice_name is required"))
	case cfg.Speech.VoiceID != "" && cfg.Speech.VoiceName != "":
		errs = append(errs, errors.New("speech.voice_id and speech.voice_name are mutually exclusive"))
	}
	if cfg.Speech.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("speech.timeout_seconds %d must not be negative", cfg.Speech.TimeoutSeconds))
	}

	// External tools
	if cfg.Tools.VisemeToolPath == "" {
		errs = append(errs, errors.New("tools.viseme_tool_path is required"))
	}
	if cfg.Tools.TranscodeTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("tools.transcode_timeout_seconds %d must not be negative", cfg.Tools.TranscodeTimeoutSeconds))
	}
	if cfg.Tools.VisemeTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("tools.viseme_timeout_seconds %d must not be negative", cfg.Tools.VisemeTimeoutSeconds))
	}

	if cfg.Answer.Provider == AnswerService && (cfg.Answer.OpenAIModel != "") != (cfg.Answer.OpenAIAPIKey != "") {
		slog.Warn("openai fallback needs both answer.openai_model and an API key; ignoring the partial configuration")
	}

	return errors.Join(errs...)
}
