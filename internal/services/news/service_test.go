package news

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langtutor/internal/cache"
	"langtutor/internal/models"
)

const feedBody = `{"status":"ok","totalResults":4,"articles":[
 {"source":{"name":"Le Monde"},"title":"Le gouvernement présente son budget","description":"Le gouvernement a présenté mardi son projet de loi de finances.","url":"https://example.com/1","publishedAt":"2024-05-01T08:00:00Z"},
 {"source":{"name":"Removed"},"title":"[Removed]","description":"[Removed]","url":"https://removed.com","publishedAt":"1970-01-01T00:00:00Z"},
 {"source":{"name":"L'Équipe"},"title":"Victoire en finale","description":"Le football français célèbre une victoire historique.","url":"https://example.com/2","publishedAt":"2024-05-01T09:00:00Z"},
 {"source":{"name":"Other"},"title":"Un titre","description":"[Removed]","url":"https://example.com/3","publishedAt":"2024-05-01T10:00:00Z"}
]}`

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T, apiKey string, handler http.HandlerFunc) (*NewsService, *clock, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	store, err := cache.NewMemoryCache(16)
	require.NoError(t, err)
	clk := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	nc := NewNewsCache(store, cache.HeadlinesTTL)
	nc.now = clk.now

	return NewNewsService(NewFeed(apiKey, srv.URL, srv.Client()), nc), clk, &calls
}

func okFeed(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("apiKey"))
		assert.Equal(t, "fr", q.Get("language"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.NotEmpty(t, q.Get("pageSize"))
		fmt.Fprint(w, feedBody)
	}
}

func TestGetHeadlines_FeedThenCache(t *testing.T) {
	svc, clk, calls := newTestService(t, "secret", okFeed(t))
	ctx := context.Background()

	first := svc.GetHeadlines(ctx, "French", 10)
	require.True(t, first.OK(), first.Debug)
	assert.Equal(t, models.SourceNewsAPI, first.Source)
	require.Len(t, first.Value, 2, "redacted articles dropped")
	assert.Equal(t, "politics", first.Value[0].Category)
	assert.Equal(t, "sports", first.Value[1].Category)
	assert.Equal(t, "2024-05-01", first.Value[0].Date)
	assert.Equal(t, "https://example.com/1", first.Value[0].URL)
	assert.Equal(t, []string{"politics", "sports"}, first.Categories)

	clk.t = clk.t.Add(29 * time.Minute)
	second := svc.GetHeadlines(ctx, "French", 10)
	require.True(t, second.OK())
	assert.Equal(t, models.SourceCached, second.Source)
	assert.Equal(t, first.Value, second.Value)
	assert.Equal(t, int32(1), calls.Load())

	clk.t = clk.t.Add(2 * time.Minute)
	third := svc.GetHeadlines(ctx, "French", 10)
	require.True(t, third.OK())
	assert.Equal(t, models.SourceNewsAPI, third.Source)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetHeadlines_KeyedByCount(t *testing.T) {
	svc, _, calls := newTestService(t, "secret", okFeed(t))
	ctx := context.Background()

	svc.GetHeadlines(ctx, "French", 10)
	svc.GetHeadlines(ctx, "fr", 10)
	assert.Equal(t, int32(1), calls.Load())

	svc.GetHeadlines(ctx, "French", 5)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetHeadlines_NoAPIKey(t *testing.T) {
	svc, _, calls := newTestService(t, "", okFeed(t))

	res := svc.GetHeadlines(context.Background(), "French", 10)
	require.False(t, res.OK())
	assert.Equal(t, models.SourceNoAPIKey, res.Source)
	assert.NotEmpty(t, res.Failure.SetupInstructions)
	assert.Equal(t, int32(0), calls.Load())
}

func TestGetHeadlines_FeedError(t *testing.T) {
	svc, _, _ := newTestService(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`)
	})

	res := svc.GetHeadlines(context.Background(), "French", 10)
	require.False(t, res.OK())
	assert.Equal(t, models.SourceError, res.Source)
	assert.Contains(t, res.Debug, "apiKeyInvalid")
}

func TestGetHeadlines_NothingUsable(t *testing.T) {
	svc, _, _ := newTestService(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","totalResults":1,"articles":[{"title":"[Removed]","description":"[Removed]"}]}`)
	})

	res := svc.GetHeadlines(context.Background(), "French", 10)
	require.False(t, res.OK())
	assert.Equal(t, models.SourceFailed, res.Source)
}

type headlineProvider struct {
	calls int
	res   models.Result[[]models.NewsHeadline]
}

func (p *headlineProvider) Name() string { return "fake" }
func (p *headlineProvider) StreamChat(context.Context, string, []models.ChatMessage, string) iter.Seq[string] {
	return func(func(string) bool) {}
}
func (p *headlineProvider) GenerateFlashcardWords(context.Context, string, string, int) models.Result[[]models.FlashcardWord] {
	return models.Result[[]models.FlashcardWord]{}
}
func (p *headlineProvider) Translate(context.Context, string, string, string) string { return "" }
func (p *headlineProvider) EnrichWord(context.Context, string, string, string) *models.VocabularyEnrichment {
	return nil
}
func (p *headlineProvider) GenerateHeadlines(_ context.Context, _, _ string, count int) models.Result[[]models.NewsHeadline] {
	p.calls++
	return p.res
}

func TestLoadHeadlines_FallsBackOnlyWithoutKey(t *testing.T) {
	gen := &headlineProvider{res: models.Ok([]models.NewsHeadline{
		{Headline: "H", Category: "science", Summary: "S", Source: "X", Date: "2024-05-01"},
	}, models.SourcePartial, "partial")}

	svc, _, _ := newTestService(t, "", okFeed(t))
	res := svc.LoadHeadlines(context.Background(), gen, "m", "French")
	require.True(t, res.OK())
	assert.Equal(t, models.SourcePartial, res.Source)
	assert.Equal(t, []string{"science"}, res.Categories)
	assert.Equal(t, 1, gen.calls)

	failing, _, _ := newTestService(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"status":"error","code":"unexpectedError","message":"boom"}`)
	})
	res = failing.LoadHeadlines(context.Background(), gen, "m", "French")
	assert.False(t, res.OK())
	assert.Equal(t, models.SourceError, res.Source)
	assert.Equal(t, 1, gen.calls, "other failures are not masked by generation")
}

func TestFilterByCategory(t *testing.T) {
	hs := []models.NewsHeadline{{Category: "sports"}, {Category: "Politics"}, {Category: "sports"}}
	assert.Len(t, FilterByCategory(hs, "All"), 3)
	assert.Len(t, FilterByCategory(hs, ""), 3)
	assert.Len(t, FilterByCategory(hs, "Sports"), 2)
	assert.Len(t, FilterByCategory(hs, "politics"), 1)
	assert.Empty(t, FilterByCategory(hs, "science"))
	assert.Equal(t, []string{"politics", "sports"}, Categories(hs))
}
