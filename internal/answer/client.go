package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/profai/lectern/pkg/avatar"
)

const (
	// defaultTimeout bounds one answer-service round trip.
	defaultTimeout = 30 * time.Second

	// defaultRetries is how many times a failed call is retried. The answer
	// service is a local process that occasionally drops a request while
	// reloading its model; two quick retries cover that without masking a
	// real outage.
	defaultRetries = 2

	// defaultBackoff is the fixed delay between retries.
	defaultBackoff = 500 * time.Millisecond

	// maxBodySize caps how much of a response body is read. Answers are a
	// few sentences; a megabyte is generous.
	maxBodySize = 1 << 20
)

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetries sets how many times a failed call is retried. Zero disables
// retrying.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithBackoff sets the fixed delay between retries.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithHTTPClient substitutes the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client is a Source backed by the external answer-generation service.
// It is safe for concurrent use.
type Client struct {
	url        string
	timeout    time.Duration
	retries    int
	backoff    time.Duration
	httpClient *http.Client
}

var _ Source = (*Client)(nil)

// NewClient creates a Client for the answer service at url.
func NewClient(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, errors.New("answer: service URL must not be empty")
	}
	c := &Client{
		url:        url,
		timeout:    defaultTimeout,
		retries:    defaultRetries,
		backoff:    defaultBackoff,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// request is the answer-service request body.
type request struct {
	Message  string `json:"message"`
	Language string `json:"language"`
}

// response is the answer-service response body.
type response struct {
	Answer string `json:"answer"`
}

// Answer implements Source. The service returns a single answer string, which
// becomes exactly one draft with the neutral expression and talking
// animation. Transient failures are retried with a fixed backoff; a 4xx
// status is not, since repeating a rejected request cannot succeed.
func (c *Client) Answer(ctx context.Context, message, language string) ([]Draft, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying answer service", "attempt", attempt, "err", lastErr)
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		text, err := c.call(ctx, message, language)
		if err == nil {
			return []Draft{{
				Text:             text,
				FacialExpression: avatar.ExpressionDefault,
				Animation:        avatar.AnimationTalking1,
			}}, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && se.code >= 400 && se.code < 500 {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// statusError marks a non-2xx answer-service response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// call performs a single round trip to the answer service.
func (c *Client) call(ctx context.Context, message, language string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(request{Message: message, Language: language})
	if err != nil {
		return "", fmt.Errorf("answer: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("answer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("answer: call %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("answer: call %s: %w", c.url, &statusError{code: resp.StatusCode})
	}

	var ar response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&ar); err != nil {
		return "", fmt.Errorf("answer: decode response: %w", err)
	}
	if ar.Answer == "" {
		return "", errors.New("answer: service returned an empty answer")
	}
	return ar.Answer, nil
}
