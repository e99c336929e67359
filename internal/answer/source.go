// Package answer produces the tutor's reply text for a user query.
//
// Two sources are provided: Client proxies the external answer-generation
// service (the default), and OpenAISource asks an OpenAI chat model directly
// for a structured multi-utterance reply. Both present the same Source
// interface to the pipeline, which treats the answer origin as a black box.
package answer

import (
	"context"

	"github.com/profai/lectern/pkg/avatar"
)

// Draft is one utterance-to-be as produced by an answer source: the text plus
// the expression and animation the avatar should play. Indices, audio, and
// lipsync are attached later by the pipeline.
type Draft struct {
	Text             string
	FacialExpression avatar.Expression
	Animation        avatar.Animation
}

// Source generates the answer drafts for one user message.
type Source interface {
	// Answer returns one or more drafts in playback order. message is
	// guaranteed non-empty by the caller; language is the BCP 47 language
	// tag selected by the user (e.g. "en-IN").
	//
	// Any failure — transport, status, malformed body — is returned as a
	// plain error; the pipeline classifies it as an upstream failure.
	Answer(ctx context.Context, message, language string) ([]Draft, error)
}
