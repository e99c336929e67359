// Package elevenlabs provides an ElevenLabs-backed TTS synthesizer using the
// ElevenLabs streaming WebSocket API. It implements the tts.Synthesizer
// interface.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/coder/websocket"

	"github.com/profai/lectern/pkg/provider/tts"
)

const (
	wsEndpointFmt  = "wss://api.elevenlabs.io/v1/text-to-speech/%s/stream-input?model_id=%s&output_format=%s"
	voicesEndpoint = "https://api.elevenlabs.io/v1/voices"

	defaultModel = "eleven_flash_v2_5"

	// defaultOutputFmt requests MP3 so the synthesized file can be served to
	// browsers directly; the transcoder derives the WAV the viseme extractor
	// needs.
	defaultOutputFmt = "mp3_44100_128"

	// defaultTimeout bounds one full synthesis round trip.
	defaultTimeout = 60 * time.Second
)

// Option is a functional option for configuring the Synthesizer.
type Option func(*Synthesizer)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(s *Synthesizer) { s.model = model }
}

// WithOutputFormat sets the audio output format (e.g., "mp3_44100_128").
func WithOutputFormat(format string) Option {
	return func(s *Synthesizer) { s.outputFormat = format }
}

// WithTimeout overrides the per-synthesis deadline. Zero disables the
// internal deadline; the caller's context still applies.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) { s.timeout = d }
}

// Synthesizer implements tts.Synthesizer backed by the ElevenLabs streaming API.
type Synthesizer struct {
	apiKey       string
	model        string
	outputFormat string
	timeout      time.Duration
	httpClient   *http.Client
}

// Compile-time assertion that Synthesizer satisfies tts.Synthesizer.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// New creates a new ElevenLabs Synthesizer. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Synthesizer, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	s := &Synthesizer{
		apiKey:       apiKey,
		model:        defaultModel,
		outputFormat: defaultOutputFmt,
		timeout:      defaultTimeout,
		httpClient:   &http.Client{},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// ---- WebSocket message types ----

// textMessage is the JSON payload sent to ElevenLabs for each text fragment.
// An empty Text is the end-of-input flush command.
type textMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// boiMessage is the initial "begin of input" handshake carrying the API key.
type boiMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
}

// audioResponse is the JSON message received from ElevenLabs.
type audioResponse struct {
	Audio   string `json:"audio"` // base64-encoded audio chunk
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"` // error or info
}

// SynthesizeToFile implements tts.Synthesizer. It opens a WebSocket to
// ElevenLabs, sends the full text in one fragment followed by the flush
// command, collects the audio chunks, and writes the assembled file to
// destPath, overwriting any previous content.
func (s *Synthesizer) SynthesizeToFile(ctx context.Context, text, voiceID, destPath string) error {
	if voiceID == "" {
		return errors.New("elevenlabs: voiceID must not be empty")
	}
	if text == "" {
		return errors.New("elevenlabs: text must not be empty")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	wsURL := buildURLForVoice(voiceID, s.model, s.outputFormat)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("elevenlabs: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Audio for a whole utterance fits comfortably in memory; raise the
	// default 32 KiB read limit to accommodate large chunks.
	conn.SetReadLimit(1 << 22)

	vs := &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75}

	// BOI handshake: authenticate and configure the stream. ElevenLabs
	// requires a non-empty first text value.
	boi := boiMessage{Text: " ", VoiceSettings: vs, XiAPIKey: s.apiKey}
	if err := writeJSON(ctx, conn, boi); err != nil {
		return fmt.Errorf("elevenlabs: send BOI: %w", err)
	}

	// The full utterance text in one fragment, then the flush command.
	if err := writeJSON(ctx, conn, textMessage{Text: text, VoiceSettings: vs}); err != nil {
		return fmt.Errorf("elevenlabs: send text: %w", err)
	}
	if err := writeJSON(ctx, conn, textMessage{Text: ""}); err != nil {
		return fmt.Errorf("elevenlabs: send flush: %w", err)
	}

	audio, err := collectAudio(ctx, conn)
	if err != nil {
		return fmt.Errorf("elevenlabs: %w", err)
	}
	if len(audio) == 0 {
		return errors.New("elevenlabs: synthesis produced no audio")
	}

	if err := os.WriteFile(destPath, audio, 0o644); err != nil {
		return fmt.Errorf("elevenlabs: write %s: %w", destPath, err)
	}
	return nil
}

// collectAudio reads audio messages from conn until the final marker or the
// connection closes, returning the concatenated decoded audio bytes.
func collectAudio(ctx context.Context, conn *websocket.Conn) ([]byte, error) {
	var audio []byte
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			var closeErr websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.StatusNormalClosure {
				return audio, nil
			}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("synthesis aborted: %w", ctx.Err())
			}
			return nil, fmt.Errorf("read: %w", err)
		}

		var resp audioResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			continue
		}
		if resp.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				return nil, fmt.Errorf("decode audio chunk: %w", err)
			}
			audio = append(audio, chunk...)
		}
		if resp.IsFinal {
			return audio, nil
		}
	}
}

// writeJSON marshals v and writes it as a single text message.
func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// ---- ListVoices ----

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

// elevenLabsVoice is a single voice entry from the ElevenLabs API.
type elevenLabsVoice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// ListVoices returns all voices available for the configured API key.
func (s *Synthesizer) ListVoices(ctx context.Context) ([]tts.VoiceProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, voicesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: list voices: unexpected status %d", resp.StatusCode)
	}

	var vr voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices decode: %w", err)
	}
	return convertVoices(vr), nil
}

// ---- helpers ----

// buildURLForVoice constructs the streaming WebSocket URL for a voice.
func buildURLForVoice(voiceID, model, outputFormat string) string {
	return fmt.Sprintf(wsEndpointFmt, voiceID, model, outputFormat)
}

// convertVoices maps the raw catalogue response to VoiceProfile values.
func convertVoices(vr voicesResponse) []tts.VoiceProfile {
	profiles := make([]tts.VoiceProfile, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		meta := make(map[string]string, len(v.Labels)+1)
		for k, val := range v.Labels {
			meta[k] = val
		}
		if v.Category != "" {
			meta["category"] = v.Category
		}
		profiles = append(profiles, tts.VoiceProfile{
			ID:       v.VoiceID,
			Name:     v.Name,
			Provider: "elevenlabs",
			Metadata: meta,
		})
	}
	return profiles
}
