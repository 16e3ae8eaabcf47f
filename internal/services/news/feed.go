package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"langtutor/internal/models"
)

const (
	DefaultFeedEndpoint = "https://newsapi.org/v2/top-headlines"
	FeedTimeout         = 15 * time.Second

	removedPlaceholder = "[Removed]"
)

// Feed is a NewsAPI top-headlines client.
type Feed struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

type feedArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

type feedResponse struct {
	Status       string        `json:"status"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	TotalResults int           `json:"totalResults"`
	Articles     []feedArticle `json:"articles"`
}

func NewFeed(apiKey, endpoint string, httpClient *http.Client) *Feed {
	if endpoint == "" {
		endpoint = DefaultFeedEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Feed{apiKey: apiKey, endpoint: endpoint, http: httpClient}
}

func (f *Feed) Configured() bool { return f != nil && f.apiKey != "" }

// TopHeadlines fetches up to count recent articles in language code lang.
// Redacted articles are dropped and the rest are categorized by their
// description.
func (f *Feed) TopHeadlines(ctx context.Context, lang string, count int) ([]models.NewsHeadline, error) {
	ctx, cancel := context.WithTimeout(ctx, FeedTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("apiKey", f.apiKey)
	q.Set("language", lang)
	q.Set("pageSize", strconv.Itoa(count))
	q.Set("sortBy", "publishedAt")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", redactKey(err, f.apiKey))
	}
	defer resp.Body.Close()

	var body feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode newsapi response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || body.Status == "error" {
		return nil, fmt.Errorf("newsapi: status %d: %s: %s", resp.StatusCode, body.Code, body.Message)
	}

	out := make([]models.NewsHeadline, 0, len(body.Articles))
	for _, a := range body.Articles {
		if a.Title == "" || a.Title == removedPlaceholder || a.Description == removedPlaceholder {
			continue
		}
		basis := a.Description
		if basis == "" {
			basis = a.Title
		}
		out = append(out, models.NewsHeadline{
			Headline: a.Title,
			Category: Categorize(basis),
			Summary:  a.Description,
			Source:   a.Source.Name,
			Date:     publishedDate(a.PublishedAt),
			URL:      a.URL,
		})
	}
	return out, nil
}

// redactKey strips the API key from URL errors.
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}

func publishedDate(ts string) string {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.Format(time.DateOnly)
	}
	return ts
}
