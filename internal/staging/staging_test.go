package staging

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewStore_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "audios")
	if _, err := NewStore(root); err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		t.Fatalf("Stat(root) error: %v", err)
	}
	if !info.IsDir() {
		t.Error("root is not a directory")
	}
}

func TestBegin_IsolatesRequests(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}

	a, err := store.Begin(NewRequestID())
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	b, err := store.Begin(NewRequestID())
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if a.Dir() == b.Dir() {
		t.Errorf("two areas share directory %q", a.Dir())
	}

	if err := os.WriteFile(a.AudioPath(0), []byte("a"), 0o644); err != nil {
		t.Fatalf("write in area a: %v", err)
	}
	if err := os.WriteFile(b.AudioPath(0), []byte("b"), 0o644); err != nil {
		t.Fatalf("write in area b: %v", err)
	}
	data, err := os.ReadFile(a.AudioPath(0))
	if err != nil {
		t.Fatalf("read back area a: %v", err)
	}
	if string(data) != "a" {
		t.Errorf("area a audio = %q, want %q", data, "a")
	}
}

func TestBegin_RejectsPathSeparators(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	for _, id := range []string{"../escape", "a/b", ""} {
		if _, err := store.Begin(id); err == nil {
			t.Errorf("Begin(%q) succeeded, want error", id)
		}
	}
}

func TestNewRequestID(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewRequestID()
		if len(id) != 16 {
			t.Fatalf("len(NewRequestID()) = %d, want 16", len(id))
		}
		if strings.ContainsAny(id, "/\\.") {
			t.Fatalf("NewRequestID() = %q contains path characters", id)
		}
		if seen[id] {
			t.Fatalf("NewRequestID() repeated %q", id)
		}
		seen[id] = true
	}
}

func TestArea_ArtifactPaths(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	area, err := store.Begin("req1")
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	if got, want := filepath.Base(area.AudioPath(2)), "message_2.mp3"; got != want {
		t.Errorf("AudioPath(2) base = %q, want %q", got, want)
	}
	if got, want := filepath.Base(area.WavePath(2)), "message_2.wav"; got != want {
		t.Errorf("WavePath(2) base = %q, want %q", got, want)
	}
	if got, want := filepath.Base(area.CuesPath(2)), "message_2.json"; got != want {
		t.Errorf("CuesPath(2) base = %q, want %q", got, want)
	}
	if area.AudioPath(0) == area.AudioPath(1) {
		t.Error("audio paths for different utterances collide")
	}
}

func TestEncodeAudio_RoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	area, err := store.Begin("req1")
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	raw := []byte{0xff, 0xfb, 0x90, 0x00, 0x01, 0x02}
	if err := os.WriteFile(area.AudioPath(0), raw, 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	encoded, err := area.EncodeAudio(area.AudioPath(0))
	if err != nil {
		t.Fatalf("EncodeAudio() error: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decoding EncodeAudio output: %v", err)
	}
	if string(decoded) != string(raw) {
		t.Errorf("round trip = %v, want %v", decoded, raw)
	}
}

func TestReadCues(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	area, err := store.Begin("req1")
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}

	doc := `{"metadata":{"soundFile":"message_0.wav","duration":1.5},"mouthCues":[{"start":0,"end":0.5,"value":"X"},{"start":0.5,"end":1.5,"value":"B"}]}`
	if err := os.WriteFile(area.CuesPath(0), []byte(doc), 0o644); err != nil {
		t.Fatalf("write cues: %v", err)
	}
	cues, err := area.ReadCues(area.CuesPath(0))
	if err != nil {
		t.Fatalf("ReadCues() error: %v", err)
	}
	if len(cues.MouthCues) != 2 {
		t.Fatalf("len(MouthCues) = %d, want 2", len(cues.MouthCues))
	}
	if cues.MouthCues[1].Value != "B" {
		t.Errorf("MouthCues[1].Value = %q, want %q", cues.MouthCues[1].Value, "B")
	}
	if cues.Metadata.Duration != 1.5 {
		t.Errorf("Metadata.Duration = %v, want 1.5", cues.Metadata.Duration)
	}

	if _, err := area.ReadCues(area.CuesPath(1)); err == nil {
		t.Error("ReadCues() of missing file succeeded, want error")
	}
}

func TestRelease_RemovesArea(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error: %v", err)
	}
	area, err := store.Begin("req1")
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if err := os.WriteFile(area.AudioPath(0), []byte("x"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	if err := area.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if _, err := os.Stat(area.Dir()); !os.IsNotExist(err) {
		t.Errorf("area dir still exists after Release: %v", err)
	}
	// Releasing twice must not fail.
	if err := area.Release(); err != nil {
		t.Errorf("second Release() error: %v", err)
	}
}
