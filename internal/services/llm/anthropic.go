package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"langtutor/internal/models"
)

const (
	anthropicSetup     = "Set ANTHROPIC_API_KEY in the environment or .env file. Keys are issued at https://console.anthropic.com/settings/keys."
	anthropicMaxTokens = 1000
)

// AnthropicClient uses the Messages API. System turns are folded into the
// request's system field in order; seeds are not supported.
type AnthropicClient struct {
	structured
	client anthropic.Client
	hasKey bool
}

func NewAnthropicClient(apiKey string, opts ...option.RequestOption) *AnthropicClient {
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	c := &AnthropicClient{
		client: anthropic.NewClient(append(base, opts...)...),
		hasKey: apiKey != "",
	}
	c.structured = newStructured("anthropic", c, anthropicSetup)
	return c
}

func (c *AnthropicClient) complete(ctx context.Context, req Request) (string, error) {
	if !c.hasKey {
		return "", fmt.Errorf("anthropic: %w", ErrNoAPIKey)
	}
	msg, err := c.client.Messages.New(ctx, c.params(req))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

func (c *AnthropicClient) stream(ctx context.Context, req Request) iter.Seq[string] {
	if !c.hasKey {
		return errorStream(fmt.Errorf("anthropic: %w", ErrNoAPIKey))
	}
	params := c.params(req)
	return adaptEvents(
		func() eventStream[anthropic.MessageStreamEventUnion] {
			return c.client.Messages.NewStreaming(ctx, params)
		},
		func(event anthropic.MessageStreamEventUnion) string {
			ev, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				return ""
			}
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok {
				return delta.Text
			}
			return ""
		},
	)
}

func (c *AnthropicClient) params(req Request) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case models.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := req.Sampling.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}
	p := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
		System:    system,
	}
	if t := req.Sampling.Temperature; t != nil {
		p.Temperature = anthropic.Float(*t)
	}
	return p
}
