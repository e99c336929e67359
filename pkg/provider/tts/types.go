package tts

// VoiceProfile describes one voice offered by a TTS provider.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string `json:"voice_id"`

	// Name is the human-readable voice name.
	Name string `json:"name"`

	// Provider identifies which TTS provider this voice belongs to.
	Provider string `json:"provider,omitempty"`

	// Metadata holds provider-specific voice attributes (gender, age,
	// accent, category, etc.).
	Metadata map[string]string `json:"labels,omitempty"`
}
