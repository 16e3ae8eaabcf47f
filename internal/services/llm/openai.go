package llm

import (
	"context"
	"fmt"
	"iter"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"langtutor/internal/models"
)

const openAISetup = "Set OPENAI_API_KEY in the environment or .env file. Keys are issued at https://platform.openai.com/api-keys."

type OpenAIClient struct {
	structured
	client openai.Client
	hasKey bool
}

// NewOpenAIClient never fails. Without an apiKey every call reports a
// no_api_key failure instead of reaching the network.
func NewOpenAIClient(apiKey string, opts ...option.RequestOption) *OpenAIClient {
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	c := &OpenAIClient{
		client: openai.NewClient(append(base, opts...)...),
		hasKey: apiKey != "",
	}
	c.structured = newStructured("openai", c, openAISetup)
	return c
}

func (c *OpenAIClient) complete(ctx context.Context, req Request) (string, error) {
	if !c.hasKey {
		return "", fmt.Errorf("openai: %w", ErrNoAPIKey)
	}
	resp, err := c.client.Chat.Completions.New(ctx, c.params(req))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) stream(ctx context.Context, req Request) iter.Seq[string] {
	if !c.hasKey {
		return errorStream(fmt.Errorf("openai: %w", ErrNoAPIKey))
	}
	params := c.params(req)
	return adaptEvents(
		func() eventStream[openai.ChatCompletionChunk] {
			return c.client.Chat.Completions.NewStreaming(ctx, params)
		},
		func(chunk openai.ChatCompletionChunk) string {
			if len(chunk.Choices) == 0 {
				return ""
			}
			return chunk.Choices[0].Delta.Content
		},
	)
}

func (c *OpenAIClient) params(req Request) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case models.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	p := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: msgs,
	}
	if t := req.Sampling.Temperature; t != nil {
		p.Temperature = openai.Float(*t)
	}
	if req.Sampling.MaxTokens > 0 {
		p.MaxTokens = openai.Int(int64(req.Sampling.MaxTokens))
	}
	if s := req.Sampling.Seed; s != nil {
		p.Seed = openai.Int(*s)
	}
	return p
}
