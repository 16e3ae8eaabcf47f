package dictionary

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"langtutor/internal/ingest"
	"langtutor/internal/models"
	"langtutor/internal/repo"
	"langtutor/internal/services/llm"
)

// ErrInvalid marks entries that fail validation.
var ErrInvalid = errors.New("invalid vocabulary entry")

type Sort string

const (
	SortNewest        Sort = "newest"
	SortOldest        Sort = "oldest"
	SortAlphabetical  Sort = "alphabetical"
	SortTimesReviewed Sort = "times_reviewed"
)

// ParseSort maps a query value to a Sort. Empty means newest first.
func ParseSort(s string) (Sort, error) {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortNewest:
		return SortNewest, nil
	case SortOldest:
		return SortOldest, nil
	case SortAlphabetical:
		return SortAlphabetical, nil
	case SortTimesReviewed:
		return SortTimesReviewed, nil
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

// Query selects and orders a listing.
type Query struct {
	Language string
	Search   string
	Sort     Sort
}

// Stats describe a listing.
type Stats struct {
	Total      int            `json:"total"`
	Languages  map[string]int `json:"languages"`
	AvgReviews float64        `json:"avg_reviews"`
}

// Suggestion is the enrichment offered while adding a word.
type Suggestion struct {
	Enrichment *models.VocabularyEnrichment `json:"enrichment"`
	Exists     bool                         `json:"exists"`
}

type Service struct {
	repo repo.VocabularyRepository
}

func NewService(r repo.VocabularyRepository) *Service {
	return &Service{repo: r}
}

// List returns the entries matching q. Stats cover the returned entries
// except Languages, which counts the whole store.
func (s *Service) List(ctx context.Context, q Query) ([]models.Vocabulary, Stats, error) {
	words, err := s.repo.List(ctx, q.Language)
	if err != nil {
		return nil, Stats{}, err
	}
	words = SortWords(Search(words, q.Search), q.Sort)

	all := words
	if q.Language != "" || q.Search != "" {
		if all, err = s.repo.List(ctx, ""); err != nil {
			return nil, Stats{}, err
		}
	}

	stats := Stats{Total: len(words), Languages: map[string]int{}}
	for _, w := range all {
		stats.Languages[w.Language]++
	}
	if len(words) > 0 {
		sum := 0
		for _, w := range words {
			sum += w.TimesReviewed
		}
		stats.AvgReviews = float64(sum) / float64(len(words))
	}
	return words, stats, nil
}

// Add saves a new entry. A duplicate (word, language) is repo.ErrDuplicate.
func (s *Service) Add(ctx context.Context, v models.Vocabulary) (models.Vocabulary, error) {
	if err := v.Validate(); err != nil {
		return models.Vocabulary{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	v.ID = 0
	created, err := s.repo.Add(ctx, &v)
	if err != nil {
		return models.Vocabulary{}, err
	}
	if !created {
		return models.Vocabulary{}, fmt.Errorf("%q in %s: %w", v.Word, v.Language, repo.ErrDuplicate)
	}
	log.Info().Int64("id", v.ID).Str("word", v.Word).Str("language", v.Language).Msg("Vocabulary added")
	return v, nil
}

func (s *Service) Update(ctx context.Context, v models.Vocabulary) error {
	if strings.TrimSpace(v.Word) == "" || strings.TrimSpace(v.Translation) == "" {
		return fmt.Errorf("%w: missing word or translation", ErrInvalid)
	}
	ok, err := s.repo.Update(ctx, v)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("vocabulary %d: %w", v.ID, repo.ErrNotFound)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("vocabulary %d: %w", id, repo.ErrNotFound)
	}
	return nil
}

// Suggest asks p to fill in a word's details and reports whether the word
// is already saved. A nil Enrichment means no suggestion is available.
func (s *Service) Suggest(ctx context.Context, p llm.Provider, model, word, language string) (Suggestion, error) {
	exists, err := s.repo.WordExists(ctx, word, language)
	if err != nil {
		return Suggestion{}, err
	}
	return Suggestion{Enrichment: p.EnrichWord(ctx, model, word, language), Exists: exists}, nil
}

// Export writes the listing selected by q as an XLSX workbook.
func (s *Service) Export(ctx context.Context, w io.Writer, q Query) error {
	words, _, err := s.List(ctx, q)
	if err != nil {
		return err
	}
	return ingest.WriteXLSX(w, words)
}

// Search keeps entries whose word or translation contains term,
// case-insensitively.
func Search(words []models.Vocabulary, term string) []models.Vocabulary {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return words
	}
	out := make([]models.Vocabulary, 0, len(words))
	for _, w := range words {
		if strings.Contains(strings.ToLower(w.Word), term) || strings.Contains(strings.ToLower(w.Translation), term) {
			out = append(out, w)
		}
	}
	return out
}

// SortWords returns a sorted copy of words.
func SortWords(words []models.Vocabulary, by Sort) []models.Vocabulary {
	out := slices.Clone(words)
	switch by {
	case SortOldest:
		slices.SortStableFunc(out, func(a, b models.Vocabulary) int { return a.DateAdded.Compare(b.DateAdded) })
	case SortAlphabetical:
		slices.SortStableFunc(out, func(a, b models.Vocabulary) int {
			return cmp.Compare(strings.ToLower(a.Word), strings.ToLower(b.Word))
		})
	case SortTimesReviewed:
		slices.SortStableFunc(out, func(a, b models.Vocabulary) int { return cmp.Compare(b.TimesReviewed, a.TimesReviewed) })
	default:
		slices.SortStableFunc(out, func(a, b models.Vocabulary) int { return b.DateAdded.Compare(a.DateAdded) })
	}
	return out
}
