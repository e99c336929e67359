package answer

import (
	"testing"

	"github.com/profai/lectern/pkg/avatar"
)

func TestParseStructuredReply(t *testing.T) {
	content := `{"messages":[
		{"text":"Great question!","facialExpression":"smile","animation":"Talking_1"},
		{"text":"The French Revolution began in 1789.","facialExpression":"default","animation":"Talking_2"}
	]}`
	drafts, err := parseStructuredReply(content)
	if err != nil {
		t.Fatalf("parseStructuredReply() error: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("len(drafts) = %d, want 2", len(drafts))
	}
	if drafts[0].FacialExpression != avatar.ExpressionSmile {
		t.Errorf("drafts[0].FacialExpression = %q, want %q", drafts[0].FacialExpression, avatar.ExpressionSmile)
	}
	if drafts[1].Animation != avatar.AnimationTalking2 {
		t.Errorf("drafts[1].Animation = %q, want %q", drafts[1].Animation, avatar.AnimationTalking2)
	}
}

func TestParseStructuredReply_BareArray(t *testing.T) {
	content := `[{"text":"hello","facialExpression":"default","animation":"Idle"}]`
	drafts, err := parseStructuredReply(content)
	if err != nil {
		t.Fatalf("parseStructuredReply() error: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Animation != avatar.AnimationIdle {
		t.Errorf("drafts = %+v, want one Idle draft", drafts)
	}
}

func TestParseStructuredReply_TruncatesToLimit(t *testing.T) {
	content := `{"messages":[
		{"text":"one","facialExpression":"default","animation":"Talking_0"},
		{"text":"two","facialExpression":"default","animation":"Talking_0"},
		{"text":"three","facialExpression":"default","animation":"Talking_0"},
		{"text":"four","facialExpression":"default","animation":"Talking_0"}
	]}`
	drafts, err := parseStructuredReply(content)
	if err != nil {
		t.Fatalf("parseStructuredReply() error: %v", err)
	}
	if len(drafts) != maxUtterances {
		t.Errorf("len(drafts) = %d, want %d", len(drafts), maxUtterances)
	}
}

func TestParseStructuredReply_UnknownEnumsDefaulted(t *testing.T) {
	content := `{"messages":[{"text":"hi","facialExpression":"wink","animation":"Moonwalk"}]}`
	drafts, err := parseStructuredReply(content)
	if err != nil {
		t.Fatalf("parseStructuredReply() error: %v", err)
	}
	if drafts[0].FacialExpression != avatar.ExpressionDefault {
		t.Errorf("FacialExpression = %q, want %q", drafts[0].FacialExpression, avatar.ExpressionDefault)
	}
	if drafts[0].Animation != avatar.AnimationTalking1 {
		t.Errorf("Animation = %q, want %q", drafts[0].Animation, avatar.AnimationTalking1)
	}
}

func TestParseStructuredReply_SkipsEmptyTexts(t *testing.T) {
	content := `{"messages":[
		{"text":"  ","facialExpression":"default","animation":"Talking_0"},
		{"text":"kept","facialExpression":"default","animation":"Talking_0"}
	]}`
	drafts, err := parseStructuredReply(content)
	if err != nil {
		t.Fatalf("parseStructuredReply() error: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Text != "kept" {
		t.Errorf("drafts = %+v, want only the non-empty message", drafts)
	}
}

func TestParseStructuredReply_Undecodable(t *testing.T) {
	for _, content := range []string{"", "not json", `{"messages":[]}`, `{"messages":[{"text":""}]}`} {
		if _, err := parseStructuredReply(content); err == nil {
			t.Errorf("parseStructuredReply(%q) succeeded, want error", content)
		}
	}
}

func TestNewOpenAISource_Validation(t *testing.T) {
	if _, err := NewOpenAISource("", "gpt-4o-mini"); err == nil {
		t.Error("NewOpenAISource with empty key succeeded, want error")
	}
	if _, err := NewOpenAISource("sk-test", ""); err == nil {
		t.Error("NewOpenAISource with empty model succeeded, want error")
	}
}
