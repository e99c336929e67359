// Package transcode defines the Transcoder interface for audio container
// conversion.
//
// The synthesis provider emits MP3, while viseme extraction requires WAV
// input; a Transcoder bridges the two. The reference implementation shells
// out to ffmpeg; see the ffmpeg subpackage. Abstracting the conversion behind
// an interface keeps the pipeline decoupled from process-invocation
// mechanics, so an in-process decoder can be substituted without touching it.
package transcode

import "context"

// Transcoder converts an audio file into the container format required by
// downstream analysis.
//
// Implementations must be safe for concurrent use, although the pipeline
// invokes at most one conversion at a time.
type Transcoder interface {
	// Transcode converts the file at srcPath and returns the destination
	// path, which is derived deterministically from srcPath (same stem,
	// target extension). Re-running with the same source overwrites the same
	// destination.
	Transcode(ctx context.Context, srcPath string) (string, error)
}
