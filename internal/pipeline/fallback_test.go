package pipeline

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestFallbackResponse(t *testing.T) {
	payload, err := fallbackResponse()
	if err != nil {
		t.Fatalf("fallbackResponse() error: %v", err)
	}
	if len(payload.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(payload.Messages))
	}
	msg := payload.Messages[0]
	if msg.Text != introText {
		t.Errorf("Text = %q, want %q", msg.Text, introText)
	}

	audio, err := base64.StdEncoding.DecodeString(msg.Audio)
	if err != nil {
		t.Fatalf("Audio is not valid base64: %v", err)
	}
	if !bytes.HasPrefix(audio, []byte("RIFF")) {
		t.Error("decoded greeting audio is not a RIFF/WAVE file")
	}

	if msg.Lipsync == nil {
		t.Fatal("Lipsync is nil")
	}
	if !msg.Lipsync.Ordered() {
		t.Error("greeting cues are not in playback order")
	}
	last := msg.Lipsync.MouthCues[len(msg.Lipsync.MouthCues)-1]
	if last.End > msg.Lipsync.Metadata.Duration {
		t.Errorf("last cue ends at %v, past clip duration %v", last.End, msg.Lipsync.Metadata.Duration)
	}
}
