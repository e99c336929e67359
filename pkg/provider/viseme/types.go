package viseme

// Cue maps one audio interval to a mouth shape. Times are in seconds from
// the start of the recording; Value is the extractor's shape identifier
// (Rhubarb uses the single letters A through H plus X for silence).
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Value string  `json:"value"`
}

// Metadata describes the recording a transcript was extracted from.
type Metadata struct {
	SoundFile string  `json:"soundFile"`
	Duration  float64 `json:"duration"`
}

// Transcript is the full timed mouth-shape document for one utterance. The
// structure matches Rhubarb's -f json output and is passed through to the
// client unchanged.
type Transcript struct {
	Metadata  Metadata `json:"metadata"`
	MouthCues []Cue    `json:"mouthCues"`
}

// Ordered reports whether the cues are sequential: each cue starts no earlier
// than the previous one ends and no cue has negative duration.
func (t *Transcript) Ordered() bool {
	prev := 0.0
	for _, c := range t.MouthCues {
		if c.Start < prev || c.End < c.Start {
			return false
		}
		prev = c.End
	}
	return true
}
