package feed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/ivanGusef/guardfeed/internal/config"
	"github.com/ivanGusef/guardfeed/internal/storage"
)

var imgRegex = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["']`)

// Parser serves an RSS or Atom feed as a paged listing. The whole feed is
// fetched on every call and sliced locally.
type Parser struct {
	parser *gofeed.Parser
	url    string
}

func NewParser(cfg *config.Config, opts ...Option) *Parser {
	o := buildOptions(cfg, cfg.Source.RSSURL, opts)

	p := gofeed.NewParser()
	p.Client = o.httpClient
	p.UserAgent = cfg.Source.UserAgent

	return &Parser{parser: p, url: o.baseURL}
}

func (p *Parser) FetchPage(ctx context.Context, page, pageSize int) (*Page, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("invalid page size %d", pageSize)
	}

	feed, err := p.parser.ParseURLWithContext(p.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	all := make([]storage.Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		all = append(all, toItem(item))
	}

	return slicePage(all, page, pageSize), nil
}

// slicePage cuts the 1-indexed page out of all. A page past the end is empty.
func slicePage(all []storage.Item, page, pageSize int) *Page {
	total := len(all)
	out := &Page{
		TotalPages:  (total + pageSize - 1) / pageSize,
		TotalItems:  total,
		PageSize:    pageSize,
		CurrentPage: page,
		Items:       []storage.Item{},
	}

	start := (page - 1) * pageSize
	if page < 1 || start >= total {
		return out
	}
	end := min(start+pageSize, total)
	out.Items = append(out.Items, all[start:end]...)
	return out
}

func toItem(item *gofeed.Item) storage.Item {
	return storage.Item{
		ID:           itemID(item),
		Headline:     item.Title,
		TrailText:    item.Description,
		ThumbnailURL: thumbnail(item),
	}
}

func itemID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	if item.Link != "" {
		return item.Link
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(item.Title+"\x00"+item.Description)))
}

func thumbnail(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	for _, enclosure := range item.Enclosures {
		if enclosure.URL != "" && strings.HasPrefix(enclosure.Type, "image/") {
			return enclosure.URL
		}
	}

	for _, media := range item.Extensions["media"]["content"] {
		if u := media.Attrs["url"]; u != "" {
			return u
		}
	}

	if match := imgRegex.FindStringSubmatch(item.Content + " " + item.Description); len(match) > 1 {
		return match[1]
	}
	return ""
}
