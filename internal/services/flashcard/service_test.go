package flashcard

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langtutor/internal/models"
	"langtutor/internal/repo"
)

type memStore struct {
	words   []models.Vocabulary
	reviews map[int64]float64
}

func (m *memStore) List(_ context.Context, language string) ([]models.Vocabulary, error) {
	var out []models.Vocabulary
	for _, w := range m.words {
		if language == "" || w.Language == language {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id int64) (models.Vocabulary, error) {
	for _, w := range m.words {
		if w.ID == id {
			return w, nil
		}
	}
	return models.Vocabulary{}, repo.ErrNotFound
}

func (m *memStore) UpdateReview(_ context.Context, id int64, confidence float64) error {
	if m.reviews == nil {
		m.reviews = map[int64]float64{}
	}
	m.reviews[id] = confidence
	return nil
}

func at(h int) *time.Time {
	t := time.Date(2024, 5, 1, h, 0, 0, 0, time.UTC)
	return &t
}

func sampleWords() []models.Vocabulary {
	return []models.Vocabulary{
		{ID: 1, Word: "chat", Translation: "cat", Language: "French", PartOfSpeech: "noun", ConfidenceScore: 0.8, LastReviewed: at(1)},
		{ID: 2, Word: "manger", Translation: "to eat", Language: "French", PartOfSpeech: "verb", ConfidenceScore: 0.2, LastReviewed: at(5)},
		{ID: 3, Word: "rouge", Translation: "red", Language: "French", ConfidenceScore: 0.2},
		{ID: 4, Word: "chien", Translation: "dog", Language: "French", PartOfSpeech: "noun", ConfidenceScore: 0.2, LastReviewed: at(2)},
		{ID: 5, Word: "perro", Translation: "dog", Language: "Spanish", ConfidenceScore: 0},
	}
}

func TestPrioritize(t *testing.T) {
	words := sampleWords()[:4]
	got := Prioritize(words)

	ids := make([]int64, len(got))
	for i, w := range got {
		ids[i] = w.ID
	}
	assert.Equal(t, []int64{3, 4, 2, 1}, ids)
	assert.Equal(t, int64(1), words[0].ID, "input untouched")
}

func TestFromVocabulary(t *testing.T) {
	svc := NewService(&memStore{words: sampleWords()})
	svc.shuffle = func([]Card) {}

	res, err := svc.FromVocabulary(context.Background(), "French", 2)
	require.NoError(t, err)
	assert.Equal(t, models.SourceDatabase, res.Source)
	require.Len(t, res.Value, 2)
	assert.Equal(t, "rouge", res.Value[0].Word)
	assert.Equal(t, "unknown", res.Value[0].PartOfSpeech)
	assert.Equal(t, int64(3), res.Value[0].VocabID)
	assert.Equal(t, "chien", res.Value[1].Word)
}

func TestFromVocabulary_Shuffles(t *testing.T) {
	svc := NewService(&memStore{words: sampleWords()})
	shuffled := false
	svc.shuffle = func(cards []Card) {
		shuffled = true
		cards[0], cards[len(cards)-1] = cards[len(cards)-1], cards[0]
	}

	res, err := svc.FromVocabulary(context.Background(), "French", 4)
	require.NoError(t, err)
	assert.True(t, shuffled)
	assert.Equal(t, "chat", res.Value[0].Word)
}

func TestFromVocabulary_NotEnoughWords(t *testing.T) {
	svc := NewService(&memStore{words: sampleWords()})

	_, err := svc.FromVocabulary(context.Background(), "Spanish", 3)
	assert.ErrorIs(t, err, ErrNotEnoughWords)

	_, err = svc.FromVocabulary(context.Background(), "French", 0)
	assert.ErrorIs(t, err, ErrNotEnoughWords)
}

func TestCheckAnswer(t *testing.T) {
	tests := []struct {
		answer, correct string
		want            bool
	}{
		{"cat", "cat", true},
		{"  Cat ", "cat", true},
		{"eat", "to eat", true},
		{"to eat", "eat", true},
		{"To Eat", "to eat", true},
		{"dog", "cat", false},
		{"to", "to eat", false},
		{"", "cat", false},
	}
	for _, tt := range tests {
		t.Run(tt.answer+"/"+tt.correct, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckAnswer(tt.answer, tt.correct))
		})
	}
}

func TestNextConfidence(t *testing.T) {
	assert.InDelta(t, 0.7, NextConfidence(0.5, true), 1e-9)
	assert.InDelta(t, 0.2, NextConfidence(0.5, false), 1e-9)
	assert.Equal(t, 1.0, NextConfidence(0.9, true))
	assert.Equal(t, 0.0, NextConfidence(0.1, false))
}

func TestAnswer(t *testing.T) {
	store := &memStore{words: sampleWords()}
	svc := NewService(store)
	ctx := context.Background()

	res, err := svc.Answer(ctx, 2, "", "eat")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.True(t, res.Recorded)
	assert.Equal(t, "to eat", res.Expected)
	assert.InDelta(t, 0.4, store.reviews[2], 1e-9)

	res, err = svc.Answer(ctx, 1, "", "dog")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.InDelta(t, 0.5, store.reviews[1], 1e-9)

	res, err = svc.Answer(ctx, 0, "house", " House")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.False(t, res.Recorded)

	_, err = svc.Answer(ctx, 99, "", "x")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestGrade(t *testing.T) {
	p, fb := Grade(4, 5)
	assert.Equal(t, 80, p)
	assert.Contains(t, fb, "Excellent")

	p, fb = Grade(3, 5)
	assert.Equal(t, 60, p)
	assert.Contains(t, fb, "Good job")

	p, _ = Grade(0, 0)
	assert.Equal(t, 0, p)
}

type wordProvider struct {
	res models.Result[[]models.FlashcardWord]
}

func (p wordProvider) Name() string { return "fake" }
func (p wordProvider) StreamChat(context.Context, string, []models.ChatMessage, string) iter.Seq[string] {
	return func(func(string) bool) {}
}
func (p wordProvider) GenerateFlashcardWords(context.Context, string, string, int) models.Result[[]models.FlashcardWord] {
	return p.res
}
func (p wordProvider) Translate(context.Context, string, string, string) string { return "" }
func (p wordProvider) EnrichWord(context.Context, string, string, string) *models.VocabularyEnrichment {
	return nil
}
func (p wordProvider) GenerateHeadlines(context.Context, string, string, int) models.Result[[]models.NewsHeadline] {
	return models.Result[[]models.NewsHeadline]{}
}

func TestGenerate(t *testing.T) {
	svc := NewService(&memStore{})
	ok := models.Ok([]models.FlashcardWord{{Word: "casa", PartOfSpeech: "noun", Translation: "house"}},
		models.SourceGenerated, "Successfully generated 1 words.")
	ok.Categories = []string{"home"}

	res := svc.Generate(context.Background(), wordProvider{res: ok}, "m", "Spanish", 1)
	require.True(t, res.OK())
	assert.Equal(t, []Card{{Word: "casa", Translation: "house", PartOfSpeech: "noun"}}, res.Value)
	assert.Equal(t, []string{"home"}, res.Categories)

	failed := models.Fail[[]models.FlashcardWord](&models.Failure{Kind: models.ErrJSON, Debug: "Generation failed"})
	res = svc.Generate(context.Background(), wordProvider{res: failed}, "m", "Spanish", 1)
	require.False(t, res.OK())
	assert.Equal(t, models.SourceJSONError, res.Source)
}
