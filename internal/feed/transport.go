package feed

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ivanGusef/guardfeed/internal/config"
	"github.com/ivanGusef/guardfeed/internal/storage"
)

// Page is one page of a remote listing together with the listing totals
// the remote reported alongside it.
type Page struct {
	TotalPages  int
	TotalItems  int
	PageSize    int
	CurrentPage int
	Items       []storage.Item
}

func (p *Page) Meta() storage.Meta {
	return storage.Meta{
		TotalPages: p.TotalPages,
		TotalItems: p.TotalItems,
		PageSize:   p.PageSize,
	}
}

// Transport fetches a single 1-indexed page. Every error is treated as
// transient by the Repository.
type Transport interface {
	FetchPage(ctx context.Context, page, pageSize int) (*Page, error)
}

type clientOptions struct {
	httpClient *http.Client
	baseURL    string
}

type Option func(*clientOptions)

// WithHTTPClient replaces the client built from the configured timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = client
	}
}

// WithBaseURL overrides the configured endpoint.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

func buildOptions(cfg *config.Config, baseURL string, opts []Option) clientOptions {
	o := clientOptions{baseURL: baseURL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.Source.HTTPTimeout}
	}
	return o
}

// NewTransport builds the transport for the configured source kind.
func NewTransport(cfg *config.Config, opts ...Option) (Transport, error) {
	switch cfg.Source.Kind {
	case config.SourceGuardian, "":
		return NewFetcher(cfg, opts...), nil
	case config.SourceRSS:
		return NewParser(cfg, opts...), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}
