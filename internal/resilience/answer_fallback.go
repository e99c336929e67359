package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/profai/lectern/internal/answer"
)

// ErrAllFailed is returned when every configured answer backend fails or is
// behind an open breaker.
var ErrAllFailed = errors.New("all answer backends failed")

// answerBackend pairs a named answer source with its dedicated breaker.
type answerBackend struct {
	name    string
	source  answer.Source
	breaker *Breaker
}

// AnswerFallback implements [answer.Source] with automatic failover across
// answer backends. Backends are tried in registration order; one whose
// breaker is open is skipped without a call.
//
// Even with a single backend the wrapper is useful: the breaker stops the
// server from hammering an answer service that is down and lets it recover.
type AnswerFallback struct {
	cfg      BreakerConfig
	backends []answerBackend
}

// Compile-time interface assertion.
var _ answer.Source = (*AnswerFallback)(nil)

// NewAnswerFallback creates an [AnswerFallback] with primary as the preferred
// backend. The config's Name is replaced with each backend's name.
func NewAnswerFallback(primary answer.Source, primaryName string, cfg BreakerConfig) *AnswerFallback {
	f := &AnswerFallback{cfg: cfg}
	f.add(primaryName, primary)
	return f
}

// AddFallback registers an additional answer source, tried after all
// previously registered backends. Not safe to call concurrently with Answer;
// backends are registered once at startup.
func (f *AnswerFallback) AddFallback(name string, source answer.Source) {
	f.add(name, source)
}

func (f *AnswerFallback) add(name string, source answer.Source) {
	cfg := f.cfg
	cfg.Name = name
	f.backends = append(f.backends, answerBackend{
		name:    name,
		source:  source,
		breaker: NewBreaker(cfg),
	})
}

// Answer asks the first healthy backend for utterance drafts. If every
// backend fails, the last error is wrapped in [ErrAllFailed].
func (f *AnswerFallback) Answer(ctx context.Context, message, language string) ([]answer.Draft, error) {
	var lastErr error
	for _, b := range f.backends {
		var drafts []answer.Draft
		err := b.breaker.Execute(func() error {
			var callErr error
			drafts, callErr = b.source.Answer(ctx, message, language)
			return callErr
		})
		if err == nil {
			return drafts, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping answer backend", "backend", b.name, "reason", "circuit open")
		} else {
			slog.Warn("answer backend failed, trying next", "backend", b.name, "error", err)
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
