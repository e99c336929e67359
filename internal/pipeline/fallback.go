package pipeline

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	_ "embed"

	"github.com/profai/lectern/pkg/avatar"
	"github.com/profai/lectern/pkg/provider/viseme"
)

// Pre-baked greeting served when a chat request arrives with an empty
// message. Shipping the audio and cue track in the binary means the
// greeting needs no upstream call, no synthesis and no external tools.
var (
	//go:embed assets/intro_0.wav
	introAudio []byte

	//go:embed assets/intro_0.json
	introCues []byte
)

const introText = "Hello! I am your professor AI. Let's together democratize the education industry."

// fallbackResponse assembles the embedded greeting into a single-utterance
// payload. It never touches the network or the staging area.
func fallbackResponse() (*avatar.ResponsePayload, error) {
	var cues viseme.Transcript
	if err := json.Unmarshal(introCues, &cues); err != nil {
		return nil, fmt.Errorf("%w: decode embedded cues: %v", ErrArtifactIO, err)
	}
	return &avatar.ResponsePayload{
		Messages: []avatar.Utterance{{
			Text:             introText,
			Audio:            base64.StdEncoding.EncodeToString(introAudio),
			Lipsync:          &cues,
			FacialExpression: avatar.ExpressionSmile,
			Animation:        avatar.AnimationTalking1,
		}},
	}, nil
}
