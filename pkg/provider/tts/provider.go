// Package tts defines the Synthesizer interface for Text-to-Speech backends.
//
// A synthesizer wraps a speech provider (e.g. ElevenLabs) and turns one text
// string into an encoded audio file on disk. The pipeline stages downstream
// (transcoding, viseme extraction) operate on that file, so the contract is
// deliberately file-based rather than streaming.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Synthesizer is the abstraction over any TTS backend.
type Synthesizer interface {
	// SynthesizeToFile synthesizes speech for text using the given voice and
	// writes the encoded audio to destPath, creating or overwriting the file.
	//
	// Returns an error when the provider rejects the request (quota, invalid
	// key, outage) or the file cannot be written. On error no usable file is
	// guaranteed to exist at destPath.
	SynthesizeToFile(ctx context.Context, text, voiceID, destPath string) error

	// ListVoices returns all voice profiles available from this provider.
	// The list reflects the provider's current catalogue and may change
	// between calls.
	ListVoices(ctx context.Context) ([]VoiceProfile, error)
}
