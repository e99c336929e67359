package tts

import (
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
)

// resolveThreshold is the minimum Jaro-Winkler similarity for a configured
// voice name to be accepted as a match against the provider catalogue.
// Below this the name is considered unknown and resolution fails rather
// than silently picking an unrelated voice.
const resolveThreshold = 0.85

// ResolveVoice finds the catalogue voice best matching name.
//
// Matching is case-insensitive Jaro-Winkler similarity on the voice name, so
// minor config typos ("Rachael" for "Rachel") still resolve. An exact ID
// match is accepted directly, which lets configs carry either form in one
// field. Returns an error when the catalogue is empty or no voice scores at
// least the acceptance threshold.
func ResolveVoice(name string, catalogue []VoiceProfile) (VoiceProfile, error) {
	if name == "" {
		return VoiceProfile{}, fmt.Errorf("tts: voice name must not be empty")
	}
	if len(catalogue) == 0 {
		return VoiceProfile{}, fmt.Errorf("tts: voice catalogue is empty")
	}

	var (
		best      VoiceProfile
		bestScore float64
	)
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, v := range catalogue {
		if v.ID == name {
			return v, nil
		}
		score := matchr.JaroWinkler(needle, strings.ToLower(v.Name), false)
		if score > bestScore {
			best, bestScore = v, score
		}
	}

	if bestScore < resolveThreshold {
		return VoiceProfile{}, fmt.Errorf("tts: no voice matches %q (best candidate %q scored %.2f)", name, best.Name, bestScore)
	}
	return best, nil
}
