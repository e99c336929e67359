package answer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/profai/lectern/pkg/avatar"
)

// maxUtterances caps how many drafts one reply may contain. The system
// prompt asks for at most this many; anything extra is truncated.
const maxUtterances = 3

// systemPrompt instructs the model to answer as the tutor and to shape its
// reply as the JSON document the pipeline consumes.
const systemPrompt = `You are a friendly virtual professor teaching a student one-on-one.
Always reply with a JSON object of the form {"messages": [...]} containing at
most 3 messages. Each message has a text, facialExpression, and animation
property. Answer in the language identified by the user's language tag.
The different facial expressions are: smile, sad, angry, surprised, funnyFace, and default.
The different animations are: Talking_0, Talking_1, Talking_2, Crying, Laughing, Idle, Terrified, and Angry.`

// OpenAIOption is a functional option for configuring an OpenAISource.
type OpenAIOption func(*openaiConfig)

// openaiConfig holds optional configuration for OpenAISource.
type openaiConfig struct {
	baseURL string
	timeout time.Duration
}

// WithOpenAIBaseURL overrides the default OpenAI API base URL.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openaiConfig) { c.baseURL = url }
}

// WithOpenAITimeout sets a per-request HTTP timeout.
func WithOpenAITimeout(d time.Duration) OpenAIOption {
	return func(c *openaiConfig) { c.timeout = d }
}

// OpenAISource is a Source that asks an OpenAI chat model for a structured
// multi-utterance reply in JSON mode. It is safe for concurrent use.
type OpenAISource struct {
	client oai.Client
	model  string
}

var _ Source = (*OpenAISource)(nil)

// NewOpenAISource constructs an OpenAISource for the given model.
func NewOpenAISource(apiKey, model string, opts ...OpenAIOption) (*OpenAISource, error) {
	if apiKey == "" {
		return nil, errors.New("answer: openai apiKey must not be empty")
	}
	if model == "" {
		return nil, errors.New("answer: openai model must not be empty")
	}

	cfg := &openaiConfig{timeout: 60 * time.Second}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &OpenAISource{client: oai.NewClient(reqOpts...), model: model}, nil
}

// structuredReply is the JSON document requested from the model.
type structuredReply struct {
	Messages []structuredMessage `json:"messages"`
}

// structuredMessage is one model-authored utterance draft.
type structuredMessage struct {
	Text             string `json:"text"`
	FacialExpression string `json:"facialExpression"`
	Animation        string `json:"animation"`
}

// Answer implements Source. It requests a JSON-mode completion and converts
// the result into at most maxUtterances drafts. Unknown expression or
// animation values from the model are replaced by the defaults rather than
// rejected — model output is not reliable enough to fail a whole request
// over an enum typo.
func (s *OpenAISource) Answer(ctx context.Context, message, language string) ([]Draft, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(fmt.Sprintf("[language: %s] %s", language, message)),
		},
		Temperature:         param.NewOpt(0.6),
		MaxCompletionTokens: param.NewOpt(int64(1000)),
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("answer: openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("answer: openai returned no choices")
	}

	drafts, err := parseStructuredReply(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

// parseStructuredReply decodes the model's JSON content into drafts,
// tolerating both the documented {"messages":[...]} shape and a bare array.
func parseStructuredReply(content string) ([]Draft, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("answer: openai returned empty content")
	}

	var reply structuredReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil || len(reply.Messages) == 0 {
		// The model sometimes returns the array directly.
		var msgs []structuredMessage
		if err2 := json.Unmarshal([]byte(content), &msgs); err2 != nil || len(msgs) == 0 {
			return nil, fmt.Errorf("answer: undecodable openai reply: %q", content)
		}
		reply.Messages = msgs
	}

	if len(reply.Messages) > maxUtterances {
		reply.Messages = reply.Messages[:maxUtterances]
	}

	drafts := make([]Draft, 0, len(reply.Messages))
	for _, m := range reply.Messages {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		d := Draft{
			Text:             m.Text,
			FacialExpression: avatar.Expression(m.FacialExpression),
			Animation:        avatar.Animation(m.Animation),
		}
		if !d.FacialExpression.IsValid() {
			slog.Debug("unknown facial expression from model", "value", m.FacialExpression)
			d.FacialExpression = avatar.ExpressionDefault
		}
		if !d.Animation.IsValid() {
			slog.Debug("unknown animation from model", "value", m.Animation)
			d.Animation = avatar.AnimationTalking1
		}
		drafts = append(drafts, d)
	}
	if len(drafts) == 0 {
		return nil, errors.New("answer: openai reply contained no usable messages")
	}
	return drafts, nil
}
