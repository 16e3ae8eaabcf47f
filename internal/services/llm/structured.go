package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"langtutor/internal/extract"
	"langtutor/internal/models"
)

var (
	chatSampling      = Sampling{Temperature: float(0.7), MaxTokens: 1000}
	preciseSampling   = Sampling{Temperature: float(0.3), MaxTokens: 500}
	headlinesSampling = Sampling{Temperature: float(0.7), MaxTokens: 2000}
)

// structured implements the Provider capabilities on top of a backend. Each
// variant embeds one.
type structured struct {
	name    string
	backend backend
	setup   string
	now     func() time.Time
}

func newStructured(name string, b backend, setup string) structured {
	return structured{name: name, backend: b, setup: setup, now: time.Now}
}

func (s *structured) Name() string { return s.name }

func (s *structured) StreamChat(ctx context.Context, model string, messages []models.ChatMessage, targetLanguage string) iter.Seq[string] {
	return s.backend.stream(ctx, Request{
		Model:    model,
		Messages: WithLanguageDirective(messages, targetLanguage),
		Sampling: chatSampling,
	})
}

func (s *structured) GenerateFlashcardWords(ctx context.Context, model, language string, count int) models.Result[[]models.FlashcardWord] {
	categories := pickCategories(3)
	seed := varietySeed()
	req := Request{
		Model: model,
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: flashcardSystemPrompt},
			{Role: models.RoleUser, Content: flashcardPrompt(language, count, categories, seed, s.now())},
		},
		Sampling: Sampling{Temperature: float(0.9), MaxTokens: 1000, Seed: &seed},
	}

	res := s.flashcards(ctx, req, count)
	res.Categories = categories
	return res
}

func (s *structured) flashcards(ctx context.Context, req Request, count int) models.Result[[]models.FlashcardWord] {
	raw, fail := s.generate(ctx, req)
	if fail != nil {
		return models.Fail[[]models.FlashcardWord](fail)
	}

	ex, fail := extract.Extract(raw, extract.Options{
		Shape:    extract.Array,
		Required: []string{"word", "part_of_speech", "translation"},
		MinCount: count,
		Noun:     "words",
	})
	if fail != nil {
		s.logFailure("flashcards", req.Model, fail)
		return models.Fail[[]models.FlashcardWord](fail)
	}
	s.logExtraction("flashcards", req.Model, ex)

	words := make([]models.FlashcardWord, 0, len(ex.Items))
	for _, item := range ex.Items {
		words = append(words, models.FlashcardWord{
			Word:         extract.Text(item, "word"),
			PartOfSpeech: extract.Text(item, "part_of_speech"),
			Translation:  extract.Text(item, "translation"),
		})
	}
	return models.Ok(words, models.SourceGenerated, ex.Debug)
}

func (s *structured) Translate(ctx context.Context, model, text, sourceLanguage string) string {
	raw, fail := s.generate(ctx, Request{
		Model: model,
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: translateSystemPrompt},
			{Role: models.RoleUser, Content: translatePrompt(text, sourceLanguage)},
		},
		Sampling: preciseSampling,
	})
	if fail != nil {
		return "Translation error: " + strings.TrimPrefix(fail.Debug, "Error: ")
	}
	out := strings.TrimSpace(raw)
	if out == "" {
		return "Translation failed: No response content"
	}
	return out
}

func (s *structured) EnrichWord(ctx context.Context, model, word, language string) *models.VocabularyEnrichment {
	req := Request{
		Model: model,
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: enrichSystemPrompt},
			{Role: models.RoleUser, Content: enrichPrompt(word, language)},
		},
		Sampling: preciseSampling,
	}
	raw, fail := s.generate(ctx, req)
	if fail != nil {
		return nil
	}

	ex, fail := extract.Extract(raw, extract.Options{
		Shape:    extract.Object,
		Required: []string{"translation", "part_of_speech"},
		Noun:     "enrichment",
	})
	if fail != nil {
		s.logFailure("enrich", model, fail)
		return nil
	}

	return &models.VocabularyEnrichment{
		Translation:       extract.Text(ex.Object, "translation"),
		PartOfSpeech:      extract.Text(ex.Object, "part_of_speech"),
		ExampleSentence:   extract.Text(ex.Object, "example_sentence"),
		PronunciationHint: extract.Text(ex.Object, "pronunciation_hint"),
		Gender:            extract.Text(ex.Object, "gender"),
		Notes:             extract.Text(ex.Object, "notes"),
	}
}

func (s *structured) GenerateHeadlines(ctx context.Context, model, language string, count int) models.Result[[]models.NewsHeadline] {
	now := s.now()
	req := Request{
		Model: model,
		Messages: []models.ChatMessage{
			{Role: models.RoleSystem, Content: headlinesSystemPrompt},
			{Role: models.RoleUser, Content: headlinesPrompt(language, count, now)},
		},
		Sampling: headlinesSampling,
	}
	raw, fail := s.generate(ctx, req)
	if fail != nil {
		return models.Fail[[]models.NewsHeadline](fail)
	}

	ex, fail := extract.Extract(raw, extract.Options{
		Shape:        extract.Array,
		Required:     []string{"headline", "category", "summary", "source", "date"},
		MinCount:     count,
		AllowPartial: true,
		Noun:         "headlines",
	})
	if fail != nil {
		s.logFailure("headlines", model, fail)
		return models.Fail[[]models.NewsHeadline](fail)
	}
	s.logExtraction("headlines", model, ex)

	headlines := make([]models.NewsHeadline, 0, len(ex.Items))
	for _, item := range ex.Items {
		headlines = append(headlines, models.NewsHeadline{
			Headline: extract.Text(item, "headline"),
			Category: strings.ToLower(extract.Text(item, "category")),
			Summary:  extract.Text(item, "summary"),
			Source:   extract.Text(item, "source"),
			Date:     extract.Text(item, "date"),
		})
	}
	source := models.SourceGenerated
	if ex.Partial {
		source = models.SourcePartial
	}
	return models.Ok(headlines, source, ex.Debug)
}

// generate performs one bounded, non-streaming call.
func (s *structured) generate(ctx context.Context, req Request) (string, *models.Failure) {
	ctx, cancel := context.WithTimeout(ctx, GenerateTimeout)
	defer cancel()

	text, err := s.backend.complete(ctx, req)
	if err != nil {
		fail := s.failure(err)
		log.Error().Err(err).Str("provider", s.name).Str("model", req.Model).Msg("Generation request failed")
		return "", fail
	}
	return text, nil
}

func (s *structured) failure(err error) *models.Failure {
	if errors.Is(err, ErrNoAPIKey) {
		return &models.Failure{
			Kind:              models.ErrNoAPIKey,
			Debug:             fmt.Sprintf("%s API key not configured", s.name),
			SetupInstructions: s.setup,
		}
	}
	return &models.Failure{
		Kind:  models.ErrTransport,
		Debug: errorFragment(err),
	}
}

func (s *structured) logFailure(op, model string, fail *models.Failure) {
	log.Warn().
		Str("provider", s.name).
		Str("model", model).
		Str("op", op).
		Str("kind", string(fail.Kind)).
		Msg(fail.Debug)
}

func (s *structured) logExtraction(op, model string, ex extract.Extraction) {
	log.Debug().
		Str("provider", s.name).
		Str("model", model).
		Str("op", op).
		Int("produced", ex.Produced).
		Int("kept", len(ex.Items)).
		Bool("partial", ex.Partial).
		Msg("Structured response parsed")
}
