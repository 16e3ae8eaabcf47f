package flashcard

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"langtutor/internal/models"
	"langtutor/internal/services/llm"
)

const (
	correctStep = 0.2
	wrongStep   = 0.3
)

var ErrNotEnoughWords = errors.New("not enough words in vocabulary")

// Card is one flashcard. VocabID is set for cards drawn from the vocabulary
// store so answers can be recorded against the entry.
type Card struct {
	Word         string  `json:"word"`
	Translation  string  `json:"translation"`
	PartOfSpeech string  `json:"part_of_speech"`
	VocabID      int64   `json:"vocab_id,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// AnswerResult is the outcome of one answered card.
type AnswerResult struct {
	Correct    bool    `json:"correct"`
	Expected   string  `json:"expected"`
	Confidence float64 `json:"confidence"`
	Recorded   bool    `json:"recorded"`
}

// Store is the part of the vocabulary repository the deck needs.
type Store interface {
	List(ctx context.Context, language string) ([]models.Vocabulary, error)
	Get(ctx context.Context, id int64) (models.Vocabulary, error)
	UpdateReview(ctx context.Context, id int64, confidence float64) error
}

type Service struct {
	store   Store
	shuffle func([]Card)
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		shuffle: func(cards []Card) {
			rand.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
		},
	}
}

// FromVocabulary builds a shuffled deck of the count saved words that most
// need practice.
func (s *Service) FromVocabulary(ctx context.Context, language string, count int) (models.Result[[]Card], error) {
	words, err := s.store.List(ctx, language)
	if err != nil {
		return models.Result[[]Card]{}, fmt.Errorf("load vocabulary: %w", err)
	}
	if count <= 0 || len(words) < count {
		return models.Result[[]Card]{}, fmt.Errorf("%w: have %d %s words, requested %d",
			ErrNotEnoughWords, len(words), language, count)
	}

	selected := Prioritize(words)[:count]
	cards := make([]Card, 0, count)
	for _, v := range selected {
		pos := v.PartOfSpeech
		if pos == "" {
			pos = "unknown"
		}
		cards = append(cards, Card{
			Word:         v.Word,
			Translation:  v.Translation,
			PartOfSpeech: pos,
			VocabID:      v.ID,
			Confidence:   v.ConfidenceScore,
		})
	}
	s.shuffle(cards)

	return models.Ok(cards, models.SourceDatabase,
		fmt.Sprintf("Loaded %d words from your vocabulary", count)), nil
}

// Generate asks p for count fresh beginner words.
func (s *Service) Generate(ctx context.Context, p llm.Provider, model, language string, count int) models.Result[[]Card] {
	res := p.GenerateFlashcardWords(ctx, model, language, count)
	if !res.OK() {
		log.Warn().Str("provider", p.Name()).Str("source", string(res.Source)).Msg("Flashcard generation failed")
		return models.Fail[[]Card](res.Failure)
	}

	cards := make([]Card, 0, len(res.Value))
	for _, w := range res.Value {
		cards = append(cards, Card{Word: w.Word, Translation: w.Translation, PartOfSpeech: w.PartOfSpeech})
	}
	out := models.Ok(cards, res.Source, res.Debug)
	out.Categories = res.Categories
	return out
}

// Answer checks answer for a card. Store-backed cards (vocabID > 0) are
// checked against the saved translation and their confidence is updated;
// generated cards are checked against expected only.
func (s *Service) Answer(ctx context.Context, vocabID int64, expected, answer string) (AnswerResult, error) {
	if vocabID <= 0 {
		return AnswerResult{Correct: CheckAnswer(answer, expected), Expected: expected}, nil
	}

	v, err := s.store.Get(ctx, vocabID)
	if err != nil {
		return AnswerResult{}, err
	}
	correct := CheckAnswer(answer, v.Translation)
	confidence := NextConfidence(v.ConfidenceScore, correct)
	if err := s.store.UpdateReview(ctx, vocabID, confidence); err != nil {
		return AnswerResult{}, fmt.Errorf("record review: %w", err)
	}

	log.Debug().Int64("vocab_id", vocabID).Bool("correct", correct).Float64("confidence", confidence).Msg("Review recorded")
	return AnswerResult{Correct: correct, Expected: v.Translation, Confidence: confidence, Recorded: true}, nil
}

// Prioritize orders words by ascending confidence, then by review age with
// never-reviewed words first. The input is not modified.
func Prioritize(words []models.Vocabulary) []models.Vocabulary {
	out := slices.Clone(words)
	slices.SortStableFunc(out, func(a, b models.Vocabulary) int {
		if c := cmp.Compare(a.ConfidenceScore, b.ConfidenceScore); c != 0 {
			return c
		}
		switch {
		case a.LastReviewed == nil && b.LastReviewed == nil:
			return 0
		case a.LastReviewed == nil:
			return -1
		case b.LastReviewed == nil:
			return 1
		}
		return a.LastReviewed.Compare(*b.LastReviewed)
	})
	return out
}

// CheckAnswer compares case- and space-insensitively and accepts an
// infinitive written with or without a leading "to ".
func CheckAnswer(answer, correct string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	correct = strings.ToLower(strings.TrimSpace(correct))

	switch {
	case answer == correct:
		return true
	case strings.HasPrefix(correct, "to ") && answer == correct[3:]:
		return true
	case strings.HasPrefix(answer, "to ") && answer[3:] == correct:
		return true
	}
	return false
}

// NextConfidence moves current up by 0.2 on a correct answer and down by 0.3
// on a wrong one, within [0, 1].
func NextConfidence(current float64, correct bool) float64 {
	if correct {
		return min(1.0, current+correctStep)
	}
	return max(0.0, current-wrongStep)
}

// Grade summarizes a finished round.
func Grade(score, total int) (percent int, feedback string) {
	if total <= 0 {
		return 0, "Keep practicing! You'll get better with time."
	}
	percent = score * 100 / total
	switch {
	case percent >= 80:
		feedback = "Excellent work! You're mastering this vocabulary!"
	case percent >= 60:
		feedback = "Good job! Keep practicing to improve further."
	default:
		feedback = "Keep practicing! You'll get better with time."
	}
	return percent, feedback
}
