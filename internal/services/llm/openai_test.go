package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v2/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langtutor/internal/models"
)

func openAISSE(words ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i, word := range words {
			chunk := fmt.Sprintf(`{"id":"c%d","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, i, word)
			fmt.Fprintf(w, "data: %s\n\n", chunk)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

func TestOpenAIStream(t *testing.T) {
	srv := httptest.NewServer(openAISSE("Bon", "jour", "!"))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", option.WithBaseURL(srv.URL+"/"))
	got := collect(c.StreamChat(context.Background(), "gpt-4o-mini", []models.ChatMessage{{Role: models.RoleUser, Content: "hi"}}, ""))
	assert.Equal(t, []string{"Bon", "jour", "!"}, got)
}

func TestOpenAIStream_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", option.WithBaseURL(srv.URL+"/"))
	got := collect(c.StreamChat(context.Background(), "gpt-4o-mini", nil, ""))
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0], "Error: "), got[0])
}

func TestOpenAIStream_MidStreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"id":"c0","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"partial"},"finish_reason":null}]}`+"\n\n")
		w.(http.Flusher).Flush()
		dropConnection(w)
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	got := collect(c.StreamChat(context.Background(), "gpt-4o-mini", []models.ChatMessage{{Role: models.RoleUser, Content: "hi"}}, ""))
	require.Len(t, got, 2, got)
	assert.Equal(t, "partial", got[0])
	assert.True(t, strings.HasPrefix(got[1], "Error: "), got[1])
}

func TestOpenAIComplete_SamplingParams(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":"Good morning"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("sk-test", option.WithBaseURL(srv.URL+"/"))
	got := c.Translate(context.Background(), "gpt-4o-mini", "Buongiorno", "Italian")
	assert.Equal(t, "Good morning", got)
	assert.Equal(t, 0.3, body["temperature"])
	assert.Equal(t, float64(500), body["max_tokens"])

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestOpenAI_NoAPIKey(t *testing.T) {
	c := NewOpenAIClient("")

	res := c.GenerateFlashcardWords(context.Background(), "gpt-4o-mini", "French", 5)
	require.False(t, res.OK())
	assert.Equal(t, models.SourceNoAPIKey, res.Source)
	assert.NotEmpty(t, res.Failure.SetupInstructions)

	got := collect(c.StreamChat(context.Background(), "gpt-4o-mini", nil, ""))
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "API key not configured")

	assert.True(t, strings.HasPrefix(c.Translate(context.Background(), "gpt-4o-mini", "x", "French"), "Translation error: "))
	assert.Nil(t, c.EnrichWord(context.Background(), "gpt-4o-mini", "x", "French"))
}
