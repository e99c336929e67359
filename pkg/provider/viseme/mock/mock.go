// Package mock provides a mock viseme.Extractor for tests.
package mock

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/profai/lectern/pkg/provider/viseme"
)

// ExtractCall records the arguments of one Extract invocation.
type ExtractCall struct {
	WavPath string
	OutPath string
}

// Extractor is a mock viseme.Extractor that writes a canned cue document to
// the output path and records every call. All methods are safe for
// concurrent use.
type Extractor struct {
	mu    sync.Mutex
	calls []ExtractCall

	// Transcript is the document written on each Extract call. When nil, a
	// minimal single-cue transcript is written instead.
	Transcript *viseme.Transcript

	// Err, when non-nil, is returned by Extract without writing anything.
	Err error
}

var _ viseme.Extractor = (*Extractor)(nil)

// Extract implements viseme.Extractor.
func (e *Extractor) Extract(_ context.Context, wavPath, outPath string) error {
	e.mu.Lock()
	e.calls = append(e.calls, ExtractCall{WavPath: wavPath, OutPath: outPath})
	err := e.Err
	t := e.Transcript
	e.mu.Unlock()

	if err != nil {
		return err
	}
	if t == nil {
		t = &viseme.Transcript{
			Metadata:  viseme.Metadata{SoundFile: wavPath, Duration: 0.5},
			MouthCues: []viseme.Cue{{Start: 0, End: 0.5, Value: "X"}},
		}
	}
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}

// Calls returns a copy of all recorded Extract calls.
func (e *Extractor) Calls() []ExtractCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ExtractCall, len(e.calls))
	copy(out, e.calls)
	return out
}
