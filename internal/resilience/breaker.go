// Package resilience keeps the answer path available when a backend
// misbehaves. A per-backend [Breaker] stops the server from hammering an
// answer source that keeps failing, and [AnswerFallback] chains several
// sources so a healthy one takes over while the failing one recovers.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when a breaker rejects a call because its
// backend is considered down and the reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset
	// timeout elapses.
	StateOpen

	// StateHalfOpen admits a single probe call. Its outcome decides
	// whether the breaker closes again or re-opens.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a [Breaker]. The knobs map onto the answer section of
// the server configuration.
type BreakerConfig struct {
	// Name labels the breaker in logs and state-change notifications.
	Name string

	// MaxFailures is the number of consecutive failures before the
	// breaker opens. Zero or negative means 3.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before admitting a
	// probe call. Zero or negative means 30s.
	ResetTimeout time.Duration

	// OnStateChange, when set, is invoked after every state transition.
	// The callback must not call back into the breaker.
	OnStateChange func(name string, from, to State)
}

// Breaker is a three-state circuit breaker guarding one answer backend.
// It is safe for concurrent use.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a closed [Breaker], substituting defaults for unset
// config fields.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Breaker{cfg: cfg}
}

// Execute runs fn unless the breaker is open. In the half-open state exactly
// one probe call is admitted; its outcome closes or re-opens the breaker.
func (b *Breaker) Execute(fn func() error) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}
	err = fn()
	b.observe(probe, err)
	return err
}

// admit decides whether a call may proceed and whether it is the half-open
// probe.
func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.openedAt) < b.cfg.ResetTimeout {
			return false, ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
		b.probing = true
		return true, nil
	case StateHalfOpen:
		if b.probing {
			// A probe is already in flight.
			return false, ErrCircuitOpen
		}
		b.probing = true
		return true, nil
	default:
		return false, nil
	}
}

// observe records the outcome of an admitted call.
func (b *Breaker) observe(probe bool, callErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probing = false
		if callErr != nil {
			b.openedAt = time.Now()
			b.transition(StateOpen)
			return
		}
		b.failures = 0
		b.transition(StateClosed)
		return
	}

	if callErr == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.state == StateClosed && b.failures >= b.cfg.MaxFailures {
		b.openedAt = time.Now()
		b.transition(StateOpen)
	}
}

// transition moves the breaker to next and emits the state-change
// notification. Must be called with b.mu held.
func (b *Breaker) transition(next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next

	switch next {
	case StateOpen:
		slog.Warn("answer breaker opened",
			"breaker", b.cfg.Name, "consecutive_failures", b.failures)
	case StateHalfOpen:
		slog.Info("answer breaker probing backend", "breaker", b.cfg.Name)
	case StateClosed:
		slog.Info("answer breaker closed", "breaker", b.cfg.Name)
	}
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, prev, next)
	}
}
