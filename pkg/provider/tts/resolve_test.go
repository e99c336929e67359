package tts

import "testing"

var catalogue = []VoiceProfile{
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel"},
	{ID: "TxGEqnHWrfWFTfGW9XjX", Name: "Josh"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella"},
	{ID: "kgG7dCoKCfLehAPWkJOE", Name: "Brian"},
}

func TestResolveVoice(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		wantID string
	}{
		{"exact name", "Rachel", "21m00Tcm4TlvDq8ikWAM"},
		{"case insensitive", "rachel", "21m00Tcm4TlvDq8ikWAM"},
		{"minor typo", "Rachael", "21m00Tcm4TlvDq8ikWAM"},
		{"trailing space", "Brian ", "kgG7dCoKCfLehAPWkJOE"},
		{"exact ID accepted", "TxGEqnHWrfWFTfGW9XjX", "TxGEqnHWrfWFTfGW9XjX"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := ResolveVoice(tc.query, catalogue)
			if err != nil {
				t.Fatalf("ResolveVoice(%q) error: %v", tc.query, err)
			}
			if v.ID != tc.wantID {
				t.Errorf("ResolveVoice(%q) = %q, want %q", tc.query, v.ID, tc.wantID)
			}
		})
	}
}

func TestResolveVoice_NoMatch(t *testing.T) {
	if _, err := ResolveVoice("Zxqwv", catalogue); err == nil {
		t.Fatal("ResolveVoice() with unmatchable name succeeded, want error")
	}
}

func TestResolveVoice_EmptyInputs(t *testing.T) {
	if _, err := ResolveVoice("", catalogue); err == nil {
		t.Error("ResolveVoice(\"\") succeeded, want error")
	}
	if _, err := ResolveVoice("Rachel", nil); err == nil {
		t.Error("ResolveVoice() with empty catalogue succeeded, want error")
	}
}
