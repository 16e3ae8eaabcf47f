package news

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"langtutor/internal/models"
	"langtutor/internal/services/llm"
)

const (
	FeedBatchSize      = 10
	GeneratedBatchSize = 8
	CategoryAll        = "All"

	feedSetup = "Get a free API key at https://newsapi.org/register and set NEWS_API_KEY in the environment or .env file, then restart the server."
)

// HeadlineFeed is the real-news source.
type HeadlineFeed interface {
	Configured() bool
	TopHeadlines(ctx context.Context, lang string, count int) ([]models.NewsHeadline, error)
}

// NewsService sources headlines: cache, then the feed, then (for callers
// that ask for it) the model.
type NewsService struct {
	feed  HeadlineFeed
	cache *NewsCache
}

func NewNewsService(feed HeadlineFeed, cache *NewsCache) *NewsService {
	return &NewsService{feed: feed, cache: cache}
}

// GetHeadlines returns count feed headlines for language, serving from cache
// while the batch is fresh. Without a feed key it fails with no_api_key.
func (s *NewsService) GetHeadlines(ctx context.Context, language string, count int) models.Result[[]models.NewsHeadline] {
	code := LanguageCode(language)

	if hs, ok := s.cache.Get(ctx, code, count); ok {
		log.Debug().Str("lang", code).Int("count", count).Msg("News cache hit")
		return withCategories(models.Ok(hs, models.SourceCached,
			fmt.Sprintf("Loaded %d cached headlines for %s", len(hs), code)))
	}

	if s.feed == nil || !s.feed.Configured() {
		return models.Fail[[]models.NewsHeadline](&models.Failure{
			Kind:              models.ErrNoAPIKey,
			Debug:             "NewsAPI key not configured",
			SetupInstructions: feedSetup,
		})
	}

	hs, err := s.feed.TopHeadlines(ctx, code, count)
	if err != nil {
		log.Error().Err(err).Str("lang", code).Msg("News feed request failed")
		return models.Fail[[]models.NewsHeadline](&models.Failure{
			Kind:  models.ErrTransport,
			Debug: "Error: " + err.Error(),
		})
	}
	if len(hs) == 0 {
		return models.Fail[[]models.NewsHeadline](&models.Failure{
			Kind:  models.ErrValidation,
			Debug: fmt.Sprintf("NewsAPI returned no usable articles for language %s", code),
		})
	}

	s.cache.Put(ctx, code, count, hs)
	log.Info().Str("lang", code).Int("headlines", len(hs)).Msg("Fetched headlines from NewsAPI")
	return withCategories(models.Ok(hs, models.SourceNewsAPI,
		fmt.Sprintf("Fetched %d headlines from NewsAPI for %s", len(hs), code)))
}

// LoadHeadlines is the news mode's policy: the feed first and, only when no
// feed key is configured, a generated batch from p. Other feed failures are
// returned as they are.
func (s *NewsService) LoadHeadlines(ctx context.Context, p llm.Provider, model, language string) models.Result[[]models.NewsHeadline] {
	res := s.GetHeadlines(ctx, language, FeedBatchSize)
	if res.OK() || res.Failure.Kind != models.ErrNoAPIKey || p == nil {
		return res
	}

	log.Info().Str("provider", p.Name()).Str("model", model).Str("language", language).
		Msg("No NewsAPI key configured, generating headlines")
	return withCategories(p.GenerateHeadlines(ctx, model, language, GeneratedBatchSize))
}

// FilterByCategory keeps headlines in category, compared case-insensitively.
// An empty category or "All" keeps everything.
func FilterByCategory(headlines []models.NewsHeadline, category string) []models.NewsHeadline {
	if category == "" || strings.EqualFold(category, CategoryAll) {
		return headlines
	}
	out := make([]models.NewsHeadline, 0, len(headlines))
	for _, h := range headlines {
		if strings.EqualFold(h.Category, category) {
			out = append(out, h)
		}
	}
	return out
}

// Categories lists the distinct categories present, sorted.
func Categories(headlines []models.NewsHeadline) []string {
	var out []string
	for _, h := range headlines {
		c := strings.ToLower(h.Category)
		if c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}

func withCategories(res models.Result[[]models.NewsHeadline]) models.Result[[]models.NewsHeadline] {
	if res.OK() {
		res.Categories = Categories(res.Value)
	}
	return res
}
