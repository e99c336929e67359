// Package config provides the configuration schema and loader for the
// Lectern tutoring orchestrator.
package config

// LogLevel controls log verbosity for the Lectern server.
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

// AnswerProvider selects where tutor answers come from.
type AnswerProvider string

const (
	// AnswerService proxies the local answer-generation service.
	AnswerService AnswerProvider = "service"

	// AnswerOpenAI asks an OpenAI chat model directly for a structured
	// multi-utterance reply.
	AnswerOpenAI AnswerProvider = "openai"
)

// IsValid reports whether p is a recognised answer provider.
func (p AnswerProvider) IsValid() bool {
	return p == AnswerService || p == AnswerOpenAI
}

// Config is the root configuration structure for Lectern.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Answer  AnswerConfig  `yaml:"answer"`
	Speech  SpeechConfig  `yaml:"speech"`
	Tools   ToolsConfig   `yaml:"tools"`
	Staging StagingConfig `yaml:"staging"`
}

// ServerConfig holds network and logging settings for the Lectern server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":3000").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AnswerConfig selects and configures the answer source.
type AnswerConfig struct {
	// Provider selects the primary answer source: "service" (default) or
	// "openai". When the other source is also fully configured it acts as
	// an automatic fallback behind a circuit breaker.
	Provider AnswerProvider `yaml:"provider"`

	// ServiceURL is the answer-generation service endpoint used when
	// Provider is "service" (e.g., "http://127.0.0.1:5001/api/chat").
	ServiceURL string `yaml:"service_url"`

	// OpenAIModel is the chat model used when Provider is "openai".
	OpenAIModel string `yaml:"openai_model"`

	// OpenAIAPIKey authenticates against OpenAI when Provider is "openai".
	// The OPENAI_API_KEY environment variable takes precedence.
	OpenAIAPIKey string `yaml:"openai_api_key"`

	// TimeoutSeconds bounds one answer call. Zero means the default.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// Retries is how many times a failed answer call is retried.
	// Negative means the default; zero disables retrying.
	Retries int `yaml:"retries"`

	// BreakerMaxFailures is the number of consecutive failures before an
	// answer backend's circuit breaker opens. Zero means the default.
	BreakerMaxFailures int `yaml:"breaker_max_failures"`

	// BreakerResetSeconds is how long an open breaker waits before
	// probing the backend again. Zero means the default.
	BreakerResetSeconds int `yaml:"breaker_reset_seconds"`
}

// SpeechConfig configures the text-to-speech provider.
type SpeechConfig struct {
	// APIKey authenticates against the speech provider. The
	// ELEVENLABS_API_KEY environment variable takes precedence.
	APIKey string `yaml:"api_key"`

	// VoiceID is the provider-specific voice identifier. Exactly one of
	// VoiceID and VoiceName must be set.
	VoiceID string `yaml:"voice_id"`

	// VoiceName is a human-readable voice name resolved against the
	// provider catalogue at startup using fuzzy matching.
	VoiceName string `yaml:"voice_name"`

	// Model selects the provider synthesis model. Empty means the
	// provider default.
	Model string `yaml:"model"`

	// TimeoutSeconds bounds one synthesis call. Zero means the default.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// ToolsConfig locates the external tools the pipeline shells out to.
type ToolsConfig struct {
	// TranscoderPath is the ffmpeg binary path or bare name resolved via
	// $PATH. Empty means "ffmpeg".
	TranscoderPath string `yaml:"transcoder_path"`

	// VisemeToolPath is the Rhubarb Lip Sync binary path. Required.
	VisemeToolPath string `yaml:"viseme_tool_path"`

	// TranscodeTimeoutSeconds bounds one conversion. Zero means the default.
	TranscodeTimeoutSeconds int `yaml:"transcode_timeout_seconds"`

	// VisemeTimeoutSeconds bounds one extraction. Zero means the default.
	VisemeTimeoutSeconds int `yaml:"viseme_timeout_seconds"`
}

// StagingConfig locates the intermediate artifact area.
type StagingConfig struct {
	// Dir is the root staging directory. Per-request subdirectories are
	// created beneath it. Empty means "audios".
	Dir string `yaml:"dir"`
}
