package llm

import (
	"context"
	"errors"
	"iter"
	"time"

	"langtutor/internal/models"
)

const (
	// GenerateTimeout bounds every non-streaming generation call.
	GenerateTimeout = 30 * time.Second
	// LivenessTimeout bounds model liveness probes.
	LivenessTimeout = 5 * time.Second
	// ListTimeout bounds model listing.
	ListTimeout = 10 * time.Second
)

// ErrNoAPIKey is returned by hosted backends whose credential is not configured.
var ErrNoAPIKey = errors.New("API key not configured")

// Provider is the uniform interface the tutor modes talk to. Every variant
// shares the same prompt building and response extraction; they differ only
// in wire format.
type Provider interface {
	Name() string

	// StreamChat returns a lazy, single-use sequence of text fragments. The
	// request is sent when iteration starts. Transport failures surface as a
	// final "Error: ..." fragment.
	StreamChat(ctx context.Context, model string, messages []models.ChatMessage, targetLanguage string) iter.Seq[string]

	// GenerateFlashcardWords asks for exactly count beginner words.
	GenerateFlashcardWords(ctx context.Context, model, language string, count int) models.Result[[]models.FlashcardWord]

	// Translate renders text into English. It never fails: errors come back
	// as human-readable strings.
	Translate(ctx context.Context, model, text, sourceLanguage string) string

	// EnrichWord returns nil when the model output is unusable.
	EnrichWord(ctx context.Context, model, word, language string) *models.VocabularyEnrichment

	// GenerateHeadlines produces synthetic news when no feed is available.
	// Partial batches are accepted.
	GenerateHeadlines(ctx context.Context, model, language string, count int) models.Result[[]models.NewsHeadline]
}

// Sampling holds optional generation parameters. Backends ignore the ones
// they cannot express.
type Sampling struct {
	Temperature *float64
	MaxTokens   int
	Seed        *int64
}

// Request is one call to a backend.
type Request struct {
	Model    string
	Messages []models.ChatMessage
	Sampling Sampling
}

// backend is the wire-level half of a provider variant.
type backend interface {
	complete(ctx context.Context, req Request) (string, error)
	stream(ctx context.Context, req Request) iter.Seq[string]
}

// WithLanguageDirective returns a copy of messages with a system instruction
// pinning the reply language prepended. The input slice is left untouched.
func WithLanguageDirective(messages []models.ChatMessage, language string) []models.ChatMessage {
	if language == "" {
		return messages
	}
	out := make([]models.ChatMessage, 0, len(messages)+1)
	out = append(out, models.ChatMessage{Role: models.RoleSystem, Content: languageDirective(language)})
	return append(out, messages...)
}

func float(v float64) *float64 { return &v }
