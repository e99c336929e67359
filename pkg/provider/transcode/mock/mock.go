// Package mock provides a mock transcode.Transcoder for tests.
package mock

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/profai/lectern/pkg/provider/transcode"
)

// Transcoder is a mock transcode.Transcoder that copies the source file to
// the derived .wav path and records every call. All methods are safe for
// concurrent use.
type Transcoder struct {
	mu    sync.Mutex
	calls []string

	// Err, when non-nil, is returned by Transcode without writing anything.
	Err error
}

var _ transcode.Transcoder = (*Transcoder)(nil)

// Transcode implements transcode.Transcoder.
func (t *Transcoder) Transcode(_ context.Context, srcPath string) (string, error) {
	t.mu.Lock()
	t.calls = append(t.calls, srcPath)
	err := t.Err
	t.mu.Unlock()

	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", err
	}
	dst := strings.TrimSuffix(srcPath, filepath.Ext(srcPath)) + ".wav"
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

// Calls returns a copy of all recorded source paths.
func (t *Transcoder) Calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.calls))
	copy(out, t.calls)
	return out
}
