package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ivanGusef/guardfeed/internal/config"
	"github.com/ivanGusef/guardfeed/internal/storage"
)

const showFields = "trailText,thumbnail"

// Fetcher reads pages from the Guardian content API search endpoint.
type Fetcher struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	query     string
	userAgent string
}

func NewFetcher(cfg *config.Config, opts ...Option) *Fetcher {
	o := buildOptions(cfg, cfg.Source.BaseURL, opts)
	return &Fetcher{
		client:    o.httpClient,
		baseURL:   strings.TrimSuffix(o.baseURL, "/"),
		apiKey:    cfg.Source.APIKey,
		query:     cfg.Source.Query,
		userAgent: cfg.Source.UserAgent,
	}
}

type searchEnvelope struct {
	Response searchResponse `json:"response"`
}

type searchResponse struct {
	Status      string         `json:"status"`
	Message     string         `json:"message"`
	Total       int            `json:"total"`
	PageSize    int            `json:"pageSize"`
	CurrentPage int            `json:"currentPage"`
	Pages       int            `json:"pages"`
	Results     []searchResult `json:"results"`
}

type searchResult struct {
	ID       string `json:"id"`
	WebTitle string `json:"webTitle"`
	Fields   struct {
		TrailText string `json:"trailText"`
		Thumbnail string `json:"thumbnail"`
	} `json:"fields"`
}

func (f *Fetcher) pageURL(page, pageSize int) string {
	params := url.Values{}
	params.Set("q", f.query)
	params.Set("api-key", f.apiKey)
	params.Set("page", strconv.Itoa(page))
	params.Set("page-size", strconv.Itoa(pageSize))
	params.Set("show-fields", showFields)
	return f.baseURL + "/search?" + params.Encode()
}

func (f *Fetcher) FetchPage(ctx context.Context, page, pageSize int) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.pageURL(page, pageSize), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	var envelope searchEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding page %d: %w", page, err)
	}

	r := envelope.Response
	if r.Status != "ok" {
		if r.Message != "" {
			return nil, fmt.Errorf("api status %q: %s", r.Status, r.Message)
		}
		return nil, fmt.Errorf("api status %q", r.Status)
	}

	items := make([]storage.Item, 0, len(r.Results))
	for _, res := range r.Results {
		items = append(items, storage.Item{
			ID:           res.ID,
			Headline:     res.WebTitle,
			TrailText:    res.Fields.TrailText,
			ThumbnailURL: res.Fields.Thumbnail,
		})
	}

	return &Page{
		TotalPages:  r.Pages,
		TotalItems:  r.Total,
		PageSize:    r.PageSize,
		CurrentPage: r.CurrentPage,
		Items:       items,
	}, nil
}
