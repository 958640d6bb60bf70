// Package llm talks to an OpenAI-compatible chat completion server such as LM Studio.
//
// The rest of the module only sees the normalized Completion type; go-openai response
// shapes stay inside this package.
package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/go-go-golems/jarvis/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

const (
	RoleSystem    = go_openai.ChatMessageRoleSystem
	RoleUser      = go_openai.ChatMessageRoleUser
	RoleAssistant = go_openai.ChatMessageRoleAssistant

	// AutoModel asks Probe to adopt the first model the server lists.
	AutoModel = "auto"
)

var ErrEmptyCompletion = errors.New("completion has no choices")

type Message struct {
	Role    string
	Content string
}

type Request struct {
	Messages []Message
}

// Completion is the normalized result of a chat completion call.
type Completion struct {
	Text string
	// TotalTokens is the server-reported usage, valid when HasUsage is set.
	TotalTokens int
	HasUsage    bool
}

// Completer sends one non-streaming chat completion request.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

type Client struct {
	client       *go_openai.Client
	model        string
	maxTokens    int
	temperature  float32
	timeout      time.Duration
	probeTimeout time.Duration
	logger       zerolog.Logger
}

var _ Completer = (*Client)(nil)

type ClientOption func(*Client)

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(s *settings.LLMSettings, options ...ClientOption) *Client {
	config := go_openai.DefaultConfig(s.APIKey)
	config.BaseURL = s.APIBase
	config.HTTPClient = &http.Client{}

	ret := &Client{
		client:       go_openai.NewClientWithConfig(config),
		model:        s.Model,
		maxTokens:    s.MaxTokens,
		temperature:  float32(s.Temperature),
		timeout:      s.RequestTimeout,
		probeTimeout: s.ProbeTimeout,
		logger:       log.Logger,
	}
	if ret.model == "" {
		ret.model = AutoModel
	}
	for _, option := range options {
		option(ret)
	}
	ret.logger = ret.logger.With().Str("component", "llm").Logger()

	return ret
}

func (c *Client) Model() string {
	return c.model
}

// Probe checks that the server answers its model listing. With the model set to
// "auto", the first listed model is adopted.
func (c *Client) Probe(ctx context.Context) error {
	if c.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.probeTimeout)
		defer cancel()
	}

	models, err := c.client.ListModels(ctx)
	if err != nil {
		return errors.Wrap(err, "could not list models")
	}

	if c.model == AutoModel && len(models.Models) > 0 {
		c.model = models.Models[0].ID
		if c.model == "" {
			c.model = "local-model"
		}
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("available", len(models.Models)).
		Msg("model server reachable")

	return nil
}

func (c *Client) Complete(ctx context.Context, req Request) (*Completion, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msgs := make([]go_openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, go_openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stream:      false,
	})
	if err != nil {
		return nil, errors.Wrap(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	ret := &Completion{
		Text: resp.Choices[0].Message.Content,
	}
	if resp.Usage.TotalTokens > 0 {
		ret.TotalTokens = resp.Usage.TotalTokens
		ret.HasUsage = true
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("messages", len(msgs)).
		Int("total_tokens", ret.TotalTokens).
		Dur("duration", time.Since(start)).
		Msg("chat completion")

	return ret, nil
}
