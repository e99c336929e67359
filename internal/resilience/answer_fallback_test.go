package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/profai/lectern/internal/answer"
	"github.com/profai/lectern/pkg/avatar"
)

// fakeSource is a canned answer.Source for failover tests.
type fakeSource struct {
	text  string
	err   error
	calls int
}

func (f *fakeSource) Answer(context.Context, string, string) ([]answer.Draft, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []answer.Draft{{
		Text:             f.text,
		FacialExpression: avatar.ExpressionDefault,
		Animation:        avatar.AnimationTalking1,
	}}, nil
}

func TestAnswerFallback_PrimarySuccess(t *testing.T) {
	primary := &fakeSource{text: "from primary"}
	secondary := &fakeSource{text: "from secondary"}

	f := NewAnswerFallback(primary, "service", BreakerConfig{})
	f.AddFallback("openai", secondary)

	drafts, err := f.Answer(context.Background(), "hi", "en")
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if drafts[0].Text != "from primary" {
		t.Errorf("Text = %q, want %q", drafts[0].Text, "from primary")
	}
	if secondary.calls != 0 {
		t.Errorf("secondary called %d times, want 0", secondary.calls)
	}
}

func TestAnswerFallback_FailsOverToSecondary(t *testing.T) {
	primary := &fakeSource{err: errors.New("connection refused")}
	secondary := &fakeSource{text: "from secondary"}

	f := NewAnswerFallback(primary, "service", BreakerConfig{})
	f.AddFallback("openai", secondary)

	drafts, err := f.Answer(context.Background(), "hi", "en")
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if drafts[0].Text != "from secondary" {
		t.Errorf("Text = %q, want %q", drafts[0].Text, "from secondary")
	}
	if primary.calls != 1 {
		t.Errorf("primary called %d times, want 1", primary.calls)
	}
}

func TestAnswerFallback_AllFail(t *testing.T) {
	primary := &fakeSource{err: errors.New("down")}
	secondary := &fakeSource{err: errors.New("also down")}

	f := NewAnswerFallback(primary, "service", BreakerConfig{})
	f.AddFallback("openai", secondary)

	if _, err := f.Answer(context.Background(), "hi", "en"); !errors.Is(err, ErrAllFailed) {
		t.Fatalf("Answer() error = %v, want ErrAllFailed", err)
	}
}

func TestAnswerFallback_BreakerSkipsFailingPrimary(t *testing.T) {
	primary := &fakeSource{err: errors.New("down")}
	secondary := &fakeSource{text: "from secondary"}

	f := NewAnswerFallback(primary, "service", BreakerConfig{MaxFailures: 2})
	f.AddFallback("openai", secondary)

	for range 4 {
		if _, err := f.Answer(context.Background(), "hi", "en"); err != nil {
			t.Fatalf("Answer() error: %v", err)
		}
	}
	// After two failures the primary's breaker opens and stops seeing calls.
	if primary.calls != 2 {
		t.Errorf("primary called %d times, want 2", primary.calls)
	}
	if secondary.calls != 4 {
		t.Errorf("secondary called %d times, want 4", secondary.calls)
	}
}

func TestAnswerFallback_PrimaryRecoversAfterReset(t *testing.T) {
	primary := &fakeSource{text: "from primary", err: errors.New("down")}
	secondary := &fakeSource{text: "from secondary"}

	f := NewAnswerFallback(primary, "service", BreakerConfig{
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
	})
	f.AddFallback("openai", secondary)

	// Trip the primary's breaker, then let the backend come back.
	if _, err := f.Answer(context.Background(), "hi", "en"); err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	primary.err = nil
	time.Sleep(20 * time.Millisecond)

	drafts, err := f.Answer(context.Background(), "hi", "en")
	if err != nil {
		t.Fatalf("Answer() error: %v", err)
	}
	if drafts[0].Text != "from primary" {
		t.Errorf("Text = %q, want %q (probe should reach the recovered primary)", drafts[0].Text, "from primary")
	}
}
