package llm

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"

	"langtutor/internal/models"
)

const geminiSetup = "Set GEMINI_API_KEY in the environment or .env file. Keys are issued at https://aistudio.google.com/apikey."

// GeminiClient wraps the genai SDK against the Gemini API backend.
type GeminiClient struct {
	structured
	client  *genai.Client
	initErr error
}

// NewGeminiClient never fails; a construction error is reported by every
// later call. baseURL is optional.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string) *GeminiClient {
	c := &GeminiClient{}
	c.structured = newStructured("gemini", c, geminiSetup)
	if apiKey == "" {
		c.initErr = fmt.Errorf("gemini: %w", ErrNoAPIKey)
		return c
	}

	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	c.client, c.initErr = genai.NewClient(ctx, cfg)
	return c
}

func (c *GeminiClient) complete(ctx context.Context, req Request) (string, error) {
	if c.initErr != nil {
		return "", c.initErr
	}
	contents, cfg := c.params(req)
	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (c *GeminiClient) stream(ctx context.Context, req Request) iter.Seq[string] {
	if c.initErr != nil {
		return errorStream(c.initErr)
	}
	contents, cfg := c.params(req)
	return adaptPairs(
		func() iter.Seq2[*genai.GenerateContentResponse, error] {
			return c.client.Models.GenerateContentStream(ctx, req.Model, contents, cfg)
		},
		func(resp *genai.GenerateContentResponse) string {
			if resp == nil {
				return ""
			}
			return resp.Text()
		},
	)
}

func (c *GeminiClient) params(req Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{}
	var system []*genai.Part
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, &genai.Part{Text: m.Content})
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}

	if t := req.Sampling.Temperature; t != nil {
		cfg.Temperature = genai.Ptr(float32(*t))
	}
	if req.Sampling.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.Sampling.MaxTokens)
	}
	if s := req.Sampling.Seed; s != nil {
		cfg.Seed = genai.Ptr(int32(*s))
	}
	return contents, cfg
}
