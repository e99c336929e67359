// Package avatar defines the wire-level types exchanged with the browser
// avatar: utterances carrying text, synthesized audio, viseme timing, and the
// facial expression and body animation the renderer should play alongside.
package avatar

import "github.com/profai/lectern/pkg/provider/viseme"

// Expression selects the avatar's facial expression while an utterance plays.
type Expression string

const (
	ExpressionDefault   Expression = "default"
	ExpressionSmile     Expression = "smile"
	ExpressionSad       Expression = "sad"
	ExpressionAngry     Expression = "angry"
	ExpressionSurprised Expression = "surprised"
	ExpressionFunnyFace Expression = "funnyFace"
)

// IsValid reports whether e is a recognised facial expression.
func (e Expression) IsValid() bool {
	switch e {
	case ExpressionDefault, ExpressionSmile, ExpressionSad,
		ExpressionAngry, ExpressionSurprised, ExpressionFunnyFace:
		return true
	}
	return false
}

// Animation selects the avatar's body animation while an utterance plays.
type Animation string

const (
	AnimationTalking0  Animation = "Talking_0"
	AnimationTalking1  Animation = "Talking_1"
	AnimationTalking2  Animation = "Talking_2"
	AnimationCrying    Animation = "Crying"
	AnimationLaughing  Animation = "Laughing"
	AnimationIdle      Animation = "Idle"
	AnimationTerrified Animation = "Terrified"
	AnimationAngry     Animation = "Angry"
)

// IsValid reports whether a is a recognised animation identifier.
func (a Animation) IsValid() bool {
	switch a {
	case AnimationTalking0, AnimationTalking1, AnimationTalking2,
		AnimationCrying, AnimationLaughing, AnimationIdle,
		AnimationTerrified, AnimationAngry:
		return true
	}
	return false
}

// Utterance is one playable unit of the avatar's response. Index fixes the
// artifact filenames and playback position; it is assigned once and not
// serialized — the order of the messages array carries it on the wire.
//
// Audio and Lipsync are populated by the pipeline after synthesis and viseme
// extraction succeed. An utterance with only one of the two never reaches a
// client: the whole request fails instead.
type Utterance struct {
	Index            int                `json:"-"`
	Text             string             `json:"text"`
	Audio            string             `json:"audio,omitempty"`
	Lipsync          *viseme.Transcript `json:"lipsync,omitempty"`
	FacialExpression Expression         `json:"facialExpression"`
	Animation        Animation          `json:"animation"`
}

// Complete reports whether the utterance carries both audio and lipsync data.
func (u *Utterance) Complete() bool {
	return u.Audio != "" && u.Lipsync != nil
}

// ResponsePayload is the outer object returned to the caller: the ordered
// utterance sequence for one request/response cycle. It is created fresh per
// request and never persisted.
type ResponsePayload struct {
	Messages []Utterance `json:"messages"`
}
