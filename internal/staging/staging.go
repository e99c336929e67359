// Package staging manages the on-disk area holding intermediate per-utterance
// artifacts: the synthesized audio, its transcoded counterpart, and the viseme
// cue document.
//
// Every request gets its own area named by a random request ID, so two
// requests in flight can never overwrite each other's files. Within an area
// filenames are a pure function of the utterance index, so re-running a stage
// for the same index overwrites rather than accumulates. An area is owned by
// exactly one request and removed by Release on both the success and the
// failure path.
package staging

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/profai/lectern/pkg/provider/viseme"
)

// Store is the root of the staging filesystem area.
type Store struct {
	root string
}

// NewStore creates (if needed) the root staging directory and returns a
// Store rooted there.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("staging: root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("staging: create root %q: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the root staging directory path.
func (s *Store) Root() string {
	return s.root
}

// Begin creates the per-request area for requestID and returns it. The ID
// must be a single path element; anything containing a separator is rejected
// to keep every area strictly under the root.
func (s *Store) Begin(requestID string) (*Area, error) {
	if requestID == "" || strings.ContainsAny(requestID, `/\`) || requestID == "." || requestID == ".." {
		return nil, fmt.Errorf("staging: invalid request ID %q", requestID)
	}
	dir := filepath.Join(s.root, requestID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("staging: create area %q: %w", dir, err)
	}
	return &Area{dir: dir}, nil
}

// NewRequestID returns a fresh random identifier suitable for naming one
// request's staging area.
func NewRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// Area is one request's staging directory. Methods are not safe for
// concurrent use across requests, but an Area is never shared.
type Area struct {
	dir string
}

// Dir returns the area's directory path.
func (a *Area) Dir() string {
	return a.dir
}

// AudioPath returns the synthesized audio path for utterance index i.
func (a *Area) AudioPath(i int) string {
	return filepath.Join(a.dir, fmt.Sprintf("message_%d.mp3", i))
}

// WavePath returns the transcoded audio path for utterance index i.
func (a *Area) WavePath(i int) string {
	return filepath.Join(a.dir, fmt.Sprintf("message_%d.wav", i))
}

// CuesPath returns the viseme cue document path for utterance index i.
// The document is indexed per utterance so multi-utterance responses never
// share one output file.
func (a *Area) CuesPath(i int) string {
	return filepath.Join(a.dir, fmt.Sprintf("message_%d.json", i))
}

// EncodeAudio reads the audio file at path and returns its contents in
// transport-safe base64 form.
func (a *Area) EncodeAudio(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("staging: read audio %q: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// ReadCues decodes the viseme cue document at path.
func (a *Area) ReadCues(path string) (*viseme.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("staging: read cues %q: %w", path, err)
	}
	t := &viseme.Transcript{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("staging: decode cues %q: %w", path, err)
	}
	return t, nil
}

// Release removes the area and everything in it. Safe to call after a
// partial failure; removing an already-removed area is not an error.
func (a *Area) Release() error {
	if err := os.RemoveAll(a.dir); err != nil {
		return fmt.Errorf("staging: release %q: %w", a.dir, err)
	}
	return nil
}
