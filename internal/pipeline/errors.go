package pipeline

import "errors"

// Stage sentinels. Errors returned by Respond wrap exactly one of these so
// callers can map a failure to the stage that produced it without parsing
// message text.
var (
	ErrUpstreamUnavailable    = errors.New("answer source unavailable")
	ErrSynthesisFailed        = errors.New("speech synthesis failed")
	ErrTranscodeFailed        = errors.New("audio transcode failed")
	ErrVisemeExtractionFailed = errors.New("viseme extraction failed")
	ErrArtifactIO             = errors.New("staging artifact i/o failed")
)
