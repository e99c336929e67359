// Package mock provides a mock tts.Synthesizer for tests.
package mock

import (
	"context"
	"os"
	"sync"

	"github.com/profai/lectern/pkg/provider/tts"
)

// SynthesizeCall records the arguments of one SynthesizeToFile invocation.
type SynthesizeCall struct {
	Text     string
	VoiceID  string
	DestPath string
}

// Synthesizer is a mock tts.Synthesizer that writes canned bytes to the
// destination path and records every call. All methods are safe for
// concurrent use.
type Synthesizer struct {
	mu    sync.Mutex
	calls []SynthesizeCall

	// Audio is written to destPath on each call. When nil, a small fixed
	// placeholder is written so the file is always non-empty.
	Audio []byte

	// Err, when non-nil, is returned by SynthesizeToFile without writing.
	Err error

	// Voices is returned by ListVoices.
	Voices []tts.VoiceProfile

	// VoicesErr, when non-nil, is returned by ListVoices.
	VoicesErr error
}

var _ tts.Synthesizer = (*Synthesizer)(nil)

// SynthesizeToFile implements tts.Synthesizer.
func (s *Synthesizer) SynthesizeToFile(_ context.Context, text, voiceID, destPath string) error {
	s.mu.Lock()
	s.calls = append(s.calls, SynthesizeCall{Text: text, VoiceID: voiceID, DestPath: destPath})
	err := s.Err
	audio := s.Audio
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if audio == nil {
		audio = []byte("mock-mp3-" + text)
	}
	return os.WriteFile(destPath, audio, 0o644)
}

// ListVoices implements tts.Synthesizer.
func (s *Synthesizer) ListVoices(_ context.Context) ([]tts.VoiceProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.VoicesErr != nil {
		return nil, s.VoicesErr
	}
	out := make([]tts.VoiceProfile, len(s.Voices))
	copy(out, s.Voices)
	return out, nil
}

// Calls returns a copy of all recorded SynthesizeToFile calls.
func (s *Synthesizer) Calls() []SynthesizeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SynthesizeCall, len(s.calls))
	copy(out, s.calls)
	return out
}
