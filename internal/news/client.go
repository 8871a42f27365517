package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kwondongha1116/spendwallet/internal/core"
)

const defaultBaseURL = "https://newsapi.org"

// HeadlineFetcher returns this week's top articles. Satisfied by Client
// and by test fakes.
type HeadlineFetcher interface {
	Headlines(ctx context.Context) ([]core.NewsArticle, error)
}

// Client fetches Korean business headlines, falling through progressively
// broader queries until one returns articles.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
	}
}

// NewClientWithBaseURL is used by tests to point at a fake server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

type apiResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"articles"`
}

// Headlines returns up to three articles. Queries are tried from most to
// least specific; an empty result from every strategy is not an error.
func (c *Client) Headlines(ctx context.Context) ([]core.NewsArticle, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("news api key not configured")
	}

	strategies := []struct {
		path   string
		params url.Values
	}{
		{"/v2/top-headlines", url.Values{"country": {"kr"}, "category": {"business"}, "pageSize": {"10"}}},
		{"/v2/top-headlines", url.Values{"country": {"kr"}, "pageSize": {"10"}}},
		{"/v2/everything", url.Values{
			"q": {"경제 OR 물가 OR 소비 OR 기술"}, "language": {"ko"},
			"pageSize": {"10"}, "sortBy": {"publishedAt"},
		}},
	}

	for _, s := range strategies {
		articles, err := c.fetch(ctx, s.path, s.params)
		if err != nil {
			slog.WarnContext(ctx, "headline query failed", "path", s.path, "error", err)
			continue
		}
		if len(articles) > 0 {
			if len(articles) > 3 {
				articles = articles[:3]
			}
			return articles, nil
		}
	}
	return nil, nil
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]core.NewsArticle, error) {
	params.Set("apiKey", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create news request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send news request: %w", err)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode news response: %w", err)
	}
	if parsed.Status != "ok" {
		return nil, fmt.Errorf("news api status %s (%s): %s", parsed.Status, parsed.Code, parsed.Message)
	}

	var articles []core.NewsArticle
	for _, a := range parsed.Articles {
		title := strings.TrimSpace(a.Title)
		if title == "" {
			continue
		}
		articles = append(articles, core.NewsArticle{Title: title, URL: strings.TrimSpace(a.URL)})
	}
	return articles, nil
}
