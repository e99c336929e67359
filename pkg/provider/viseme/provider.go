// Package viseme defines the Extractor interface for timed mouth-shape
// extraction from audio.
//
// A viseme extractor analyses a speech recording and produces a time-ordered
// sequence of mouth-shape cues that a renderer can play back against the same
// audio to animate lip movement. The reference implementation shells out to
// the Rhubarb Lip Sync tool; see the rhubarb subpackage.
package viseme

import "context"

// Extractor is the abstraction over any viseme extraction backend.
//
// Implementations must be safe for concurrent use, although the pipeline
// invokes at most one extraction at a time.
type Extractor interface {
	// Extract analyses the WAV file at wavPath and writes the timed cue
	// document to outPath. Re-running with the same outPath overwrites the
	// previous document. Decoding the document is the caller's concern (the
	// staging area provides the helper).
	//
	// The extraction respects ctx for cancellation; a cancelled or expired
	// context terminates the underlying analysis.
	Extract(ctx context.Context, wavPath, outPath string) error
}
