// Package pipeline assembles chat responses for the animated avatar.
//
// A response is built in sequential stages: the answer source produces one or
// more utterance drafts, then each draft is synthesized to MP3, transcoded to
// WAV, run through the viseme tool, and finally packaged with base64 audio and
// the decoded cue track. Intermediate artifacts live in a per-request staging
// area that is released when assembly finishes, whether it succeeded or not.
//
// Empty queries never reach the external stages: they are answered with an
// embedded greeting so the avatar stays responsive when a client connects
// before the user has typed anything.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/profai/lectern/internal/answer"
	"github.com/profai/lectern/internal/observe"
	"github.com/profai/lectern/internal/staging"
	"github.com/profai/lectern/pkg/avatar"
	"github.com/profai/lectern/pkg/provider/transcode"
	"github.com/profai/lectern/pkg/provider/tts"
	"github.com/profai/lectern/pkg/provider/viseme"
)

// Pipeline turns a text query into a fully assembled [avatar.ResponsePayload].
//
// All stages run sequentially within a single Respond call. Pipeline itself
// holds no per-request state and is safe for concurrent use; serializing
// concurrent runs is the caller's concern.
type Pipeline struct {
	source    answer.Source
	synth     tts.Synthesizer
	transcode transcode.Transcoder
	extractor viseme.Extractor
	store     *staging.Store
	voiceID   string
	metrics   *observe.Metrics
}

// Option is a functional option for configuring a Pipeline during construction.
type Option func(*Pipeline)

// WithMetrics overrides the metrics instance used for stage instrumentation.
// Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New constructs a Pipeline over the given stage implementations. voiceID is
// the resolved speech-provider voice used for every utterance.
func New(source answer.Source, synth tts.Synthesizer, tc transcode.Transcoder, ex viseme.Extractor, store *staging.Store, voiceID string, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:    source,
		synth:     synth,
		transcode: tc,
		extractor: ex,
		store:     store,
		voiceID:   voiceID,
		metrics:   observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Respond assembles the avatar response for message. An empty or whitespace
// message yields the embedded greeting without touching any external stage.
// On failure the returned error wraps the sentinel of the stage that failed.
func (p *Pipeline) Respond(ctx context.Context, message, language string) (*avatar.ResponsePayload, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.respond")
	defer span.End()

	p.metrics.InFlight.Add(ctx, 1)
	defer p.metrics.InFlight.Add(ctx, -1)

	start := time.Now()
	defer func() {
		p.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds())
	}()

	log := observe.Logger(ctx)

	if strings.TrimSpace(message) == "" {
		log.Debug("empty query, serving embedded greeting")
		p.metrics.FallbackResponses.Add(ctx, 1)
		payload, err := fallbackResponse()
		if err != nil {
			return nil, err
		}
		p.metrics.RecordUtterance(ctx, "fallback")
		return payload, nil
	}

	drafts, err := p.fetchDrafts(ctx, message, language)
	if err != nil {
		return nil, err
	}

	area, err := p.store.Begin(staging.NewRequestID())
	if err != nil {
		p.metrics.RecordStageError(ctx, "staging")
		return nil, fmt.Errorf("%w: begin staging area: %v", ErrArtifactIO, err)
	}
	defer func() {
		if rerr := area.Release(); rerr != nil {
			log.Warn("releasing staging area failed", "dir", area.Dir(), "error", rerr)
		}
	}()

	payload := &avatar.ResponsePayload{Messages: make([]avatar.Utterance, 0, len(drafts))}
	for i, d := range drafts {
		utt, err := p.assembleUtterance(ctx, area, i, d)
		if err != nil {
			return nil, err
		}
		payload.Messages = append(payload.Messages, utt)
		p.metrics.RecordUtterance(ctx, "answer")
	}

	log.Info("response assembled", "utterances", len(payload.Messages), "duration", time.Since(start))
	return payload, nil
}

// fetchDrafts asks the answer source for utterance drafts and maps any failure
// to [ErrUpstreamUnavailable].
func (p *Pipeline) fetchDrafts(ctx context.Context, message, language string) ([]answer.Draft, error) {
	start := time.Now()
	drafts, err := p.source.Answer(ctx, message, language)
	p.metrics.AnswerDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordStageError(ctx, "answer")
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if len(drafts) == 0 {
		p.metrics.RecordStageError(ctx, "answer")
		return nil, fmt.Errorf("%w: source returned no utterances", ErrUpstreamUnavailable)
	}
	return drafts, nil
}

// assembleUtterance runs the synthesis, transcode and viseme stages for a
// single draft and packages the staged artifacts into an utterance.
func (p *Pipeline) assembleUtterance(ctx context.Context, area *staging.Area, i int, d answer.Draft) (avatar.Utterance, error) {
	var zero avatar.Utterance

	mp3Path := area.AudioPath(i)
	start := time.Now()
	err := p.synth.SynthesizeToFile(ctx, d.Text, p.voiceID, mp3Path)
	p.metrics.SynthesisDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordStageError(ctx, "synthesis")
		return zero, fmt.Errorf("%w: utterance %d: %v", ErrSynthesisFailed, i, err)
	}

	start = time.Now()
	wavPath, err := p.transcode.Transcode(ctx, mp3Path)
	p.metrics.TranscodeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordStageError(ctx, "transcode")
		return zero, fmt.Errorf("%w: utterance %d: %v", ErrTranscodeFailed, i, err)
	}

	cuesPath := area.CuesPath(i)
	start = time.Now()
	err = p.extractor.Extract(ctx, wavPath, cuesPath)
	p.metrics.VisemeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordStageError(ctx, "viseme")
		return zero, fmt.Errorf("%w: utterance %d: %v", ErrVisemeExtractionFailed, i, err)
	}

	audio, err := area.EncodeAudio(mp3Path)
	if err != nil {
		p.metrics.RecordStageError(ctx, "staging")
		return zero, fmt.Errorf("%w: utterance %d: encode audio: %v", ErrArtifactIO, i, err)
	}
	cues, err := area.ReadCues(cuesPath)
	if err != nil {
		p.metrics.RecordStageError(ctx, "staging")
		return zero, fmt.Errorf("%w: utterance %d: read cues: %v", ErrArtifactIO, i, err)
	}

	expression := d.FacialExpression
	if !expression.IsValid() {
		expression = avatar.ExpressionDefault
	}
	animation := d.Animation
	if !animation.IsValid() {
		animation = avatar.AnimationTalking1
	}

	return avatar.Utterance{
		Index:            i,
		Text:             d.Text,
		Audio:            audio,
		Lipsync:          cues,
		FacialExpression: expression,
		Animation:        animation,
	}, nil
}
