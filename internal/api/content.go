// Package api holds the outbound client for the hosted article store.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mtmath-games/internal/config"

	"github.com/valyala/fasthttp"
)

type ContentClient struct {
	baseURL string
	apiKey  string
	client  *fasthttp.Client
}

func NewContentClient(cfg *config.Config) *ContentClient {
	return &ContentClient{
		baseURL: cfg.ContentAPIURL,
		apiKey:  cfg.ContentAPIKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// Enabled reports whether a content API is configured at all.
func (c *ContentClient) Enabled() bool {
	return c.baseURL != ""
}

type ArticleListResponse struct {
	Articles []ArticleData `json:"articles"`
	Count    int           `json:"count"`
	HasMore  bool          `json:"hasMore"`
}

type ArticleData struct {
	Slug            string   `json:"slug"`
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Content         string   `json:"content"`
	Category        string   `json:"category"`
	Tags            []string `json:"tags"`
	Status          string   `json:"status"`
	DifficultyLevel int      `json:"difficulty_level"`
	NicheScore      int      `json:"niche_score"`
	CreatedAt       string   `json:"created_at"`
}

// ListArticles fetches one page of published articles.
func (c *ContentClient) ListArticles(ctx context.Context, page, pageSize int) (*ArticleListResponse, error) {
	url := fmt.Sprintf("%s/articles?status=published&page=%d&pageSize=%d", c.baseURL, page, pageSize)
	return doRequest[ArticleListResponse](ctx, c, url)
}

// GetArticle fetches a single article by slug.
func (c *ContentClient) GetArticle(ctx context.Context, slug string) (*ArticleData, error) {
	url := fmt.Sprintf("%s/articles/%s", c.baseURL, slug)
	return doRequest[ArticleData](ctx, c, url)
}

func doRequest[T any](ctx context.Context, client *ContentClient, url string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	if client.apiKey != "" {
		req.Header.Set("Authorization", client.apiKey)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("content API error: %d", resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
