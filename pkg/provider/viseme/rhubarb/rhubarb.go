// Package rhubarb provides a viseme.Extractor backed by the Rhubarb Lip Sync
// command-line tool. It implements the viseme.Extractor interface.
//
// Rhubarb is invoked once per utterance as an external process:
//
//	rhubarb -f json -o <out.json> <in.wav> -r phonetic
//
// The binary location is fixed at construction time; a missing binary is a
// configuration error surfaced by New, not a per-request failure.
package rhubarb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/profai/lectern/pkg/provider/viseme"
)

const (
	// defaultRecognizer selects Rhubarb's phonetic recognition mode, which
	// works for non-English speech where the PocketSphinx dialog mode does not.
	defaultRecognizer = "phonetic"

	// defaultTimeout bounds a single extraction run. Rhubarb is CPU-bound and
	// roughly real-time, so a minute covers any utterance the pipeline emits.
	defaultTimeout = 60 * time.Second

	// stderrTailLimit caps how much of Rhubarb's stderr is carried in errors.
	stderrTailLimit = 512
)

// Option is a functional option for configuring the Extractor.
type Option func(*Extractor)

// WithRecognizer overrides the recognition mode passed via -r.
// Valid Rhubarb values are "pocketSphinx" and "phonetic".
func WithRecognizer(r string) Option {
	return func(e *Extractor) { e.recognizer = r }
}

// WithTimeout overrides the per-extraction deadline. Zero disables the
// internal deadline; the caller's context still applies.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// Extractor implements viseme.Extractor by shelling out to Rhubarb.
type Extractor struct {
	binPath    string
	recognizer string
	timeout    time.Duration
}

// Compile-time assertion that Extractor satisfies viseme.Extractor.
var _ viseme.Extractor = (*Extractor)(nil)

// New creates an Extractor using the Rhubarb binary at binPath. The binary
// must exist when New is called; its absence fails construction so that a
// misconfigured deployment is caught at startup rather than mid-request.
func New(binPath string, opts ...Option) (*Extractor, error) {
	if binPath == "" {
		return nil, errors.New("rhubarb: binary path must not be empty")
	}
	info, err := os.Stat(binPath)
	if err != nil {
		return nil, fmt.Errorf("rhubarb: binary not found at %q: %w", binPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("rhubarb: %q is a directory, not a binary", binPath)
	}

	e := &Extractor{
		binPath:    binPath,
		recognizer: defaultRecognizer,
		timeout:    defaultTimeout,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Extract implements viseme.Extractor. It runs Rhubarb on wavPath and writes
// the JSON mouth-cue document to outPath, overwriting any previous document.
func (e *Extractor) Extract(ctx context.Context, wavPath, outPath string) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := buildArgs(wavPath, outPath, e.recognizer)
	cmd := exec.CommandContext(ctx, e.binPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("rhubarb: extraction aborted: %w", ctxErr)
		}
		return fmt.Errorf("rhubarb: %w (stderr: %s)", err, stderrTail(stderr.String()))
	}
	return nil
}

// buildArgs assembles the Rhubarb command line for one extraction.
func buildArgs(wavPath, outPath, recognizer string) []string {
	return []string{
		"-f", "json",
		"-o", outPath,
		wavPath,
		"-r", recognizer,
	}
}

// stderrTail returns the last stderrTailLimit bytes of s with surrounding
// whitespace trimmed. Rhubarb writes progress bars to stderr; only the tail
// carries the actual failure reason.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}
	return s
}
