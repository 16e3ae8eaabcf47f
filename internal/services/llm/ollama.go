package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

const ollamaSetup = "Start the local Ollama server with `ollama serve` and pull a model, e.g. `ollama pull llama3.2`."

// OllamaClient talks to a local Ollama daemon over its JSON API.
type OllamaClient struct {
	structured
	baseURL string
	http    *http.Client
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message *ollamaMessage `json:"message"`
	Done    bool           `json:"done"`
	Error   string         `json:"error"`
}

// NewOllamaClient builds a client for the daemon at baseURL. A nil
// httpClient means http.DefaultClient; per-call deadlines come from the
// request context.
func NewOllamaClient(baseURL string, httpClient *http.Client) *OllamaClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
	c.structured = newStructured("ollama", c, ollamaSetup)
	return c
}

// ListModels returns the names of locally installed models, or an empty list
// when the daemon cannot be reached.
func (c *OllamaClient) ListModels(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, ListTimeout)
	defer cancel()

	var out struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tags", nil, &out); err != nil {
		log.Error().Err(err).Msg("Error fetching models")
		return []string{}
	}

	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	return names
}

// CheckModelLoaded sends a one-token generation to see whether model answers.
func (c *OllamaClient) CheckModelLoaded(ctx context.Context, model string) bool {
	ctx, cancel := context.WithTimeout(ctx, LivenessTimeout)
	defer cancel()

	payload := map[string]any{
		"model":   model,
		"prompt":  "test",
		"stream":  false,
		"options": map[string]any{"num_predict": 1},
	}
	if err := c.do(ctx, http.MethodPost, "/api/generate", payload, nil); err != nil {
		log.Debug().Err(err).Str("model", model).Msg("Model liveness check failed")
		return false
	}
	return true
}

func (c *OllamaClient) complete(ctx context.Context, req Request) (string, error) {
	var out ollamaChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", c.chatRequest(req, false), &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	if out.Message == nil {
		return "", nil
	}
	return out.Message.Content, nil
}

func (c *OllamaClient) stream(ctx context.Context, req Request) iter.Seq[string] {
	open := func() (io.ReadCloser, error) {
		resp, err := c.send(ctx, http.MethodPost, "/api/chat", c.chatRequest(req, true))
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	}
	return adaptLines(open, func(line []byte) (string, bool) {
		var rec ollamaChatResponse
		if err := json.Unmarshal(line, &rec); err != nil {
			return "", false
		}
		if rec.Error != "" {
			return "Error: " + rec.Error, true
		}
		if rec.Message == nil {
			return "", false
		}
		return rec.Message.Content, true
	})
}

func (c *OllamaClient) chatRequest(req Request, stream bool) ollamaChatRequest {
	msgs := make([]ollamaMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}

	opts := map[string]any{}
	if t := req.Sampling.Temperature; t != nil {
		opts["temperature"] = *t
	}
	if req.Sampling.MaxTokens > 0 {
		opts["num_predict"] = req.Sampling.MaxTokens
	}
	if s := req.Sampling.Seed; s != nil {
		opts["seed"] = *s
	}
	if len(opts) == 0 {
		opts = nil
	}

	return ollamaChatRequest{Model: req.Model, Messages: msgs, Stream: stream, Options: opts}
}

// do sends a JSON request and decodes the response into out when non-nil.
func (c *OllamaClient) do(ctx context.Context, method, path string, payload, out any) error {
	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ollama response: %w", err)
	}
	return nil
}

// send returns the response only for 2xx statuses; the caller owns the body.
func (c *OllamaClient) send(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode ollama request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build ollama request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}
