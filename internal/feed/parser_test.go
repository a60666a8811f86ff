package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanGusef/guardfeed/internal/config"
	"github.com/ivanGusef/guardfeed/internal/storage"
)

const rssHead = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
<title>Football | The Guardian</title>
<link>https://www.theguardian.com/football</link>
<description>Latest football news</description>
`

func rssFeed(items ...string) string {
	return rssHead + strings.Join(items, "\n") + "\n</channel>\n</rss>"
}

func rssItem(n int) string {
	return fmt.Sprintf(`<item>
<title>Story %d</title>
<link>https://www.theguardian.com/football/story-%d</link>
<description>Trail %d</description>
<guid>https://www.theguardian.com/football/story-%d</guid>
</item>`, n, n, n, n)
}

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "guardfeed-test/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestParser_Pages(t *testing.T) {
	var items []string
	for i := 1; i <= 7; i++ {
		items = append(items, rssItem(i))
	}
	server := serveFeed(t, rssFeed(items...))
	p := NewParser(config.TestConfig(), WithBaseURL(server.URL))

	tests := []struct {
		page      int
		headlines []string
	}{
		{1, []string{"Story 1", "Story 2", "Story 3"}},
		{2, []string{"Story 4", "Story 5", "Story 6"}},
		{3, []string{"Story 7"}},
		{4, nil},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			page, err := p.FetchPage(context.Background(), tt.page, 3)
			require.NoError(t, err)

			assert.Equal(t, 3, page.TotalPages)
			assert.Equal(t, 7, page.TotalItems)
			assert.Equal(t, 3, page.PageSize)
			assert.Equal(t, tt.page, page.CurrentPage)
			assert.NotNil(t, page.Items)

			var got []string
			for _, it := range page.Items {
				got = append(got, it.Headline)
			}
			assert.Equal(t, tt.headlines, got)
		})
	}
}

func TestParser_ItemMapping(t *testing.T) {
	body := rssFeed(
		`<item>
<title>With enclosure</title>
<link>https://example.org/a</link>
<description>Trail A</description>
<guid>guid-a</guid>
<enclosure url="https://example.org/audio.mp3" type="audio/mpeg"/>
<enclosure url="https://example.org/a.jpg" type="image/jpeg"/>
</item>`,
		`<item>
<title>No guid</title>
<link>https://example.org/b</link>
<description>Trail B</description>
<media:content url="https://i.guim.co.uk/b.jpg" width="140"/>
</item>`,
		`<item>
<title>Inline image</title>
<description><![CDATA[<p><img src="https://example.org/c.png" alt=""/>Trail C</p>]]></description>
</item>`,
	)
	server := serveFeed(t, body)
	p := NewParser(config.TestConfig(), WithBaseURL(server.URL))

	page, err := p.FetchPage(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	assert.Equal(t, storage.Item{
		ID:           "guid-a",
		Headline:     "With enclosure",
		TrailText:    "Trail A",
		ThumbnailURL: "https://example.org/a.jpg",
	}, page.Items[0])

	assert.Equal(t, "https://example.org/b", page.Items[1].ID)
	assert.Equal(t, "https://i.guim.co.uk/b.jpg", page.Items[1].ThumbnailURL)

	assert.Len(t, page.Items[2].ID, 64, "items without guid or link get a content hash")
	assert.Equal(t, "https://example.org/c.png", page.Items[2].ThumbnailURL)
}

func TestParser_Errors(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	p := NewParser(config.TestConfig(), WithBaseURL(notFound.URL))
	_, err := p.FetchPage(context.Background(), 1, 5)
	assert.Error(t, err)

	garbage := serveFeed(t, "this is not a feed")
	p = NewParser(config.TestConfig(), WithBaseURL(garbage.URL))
	_, err = p.FetchPage(context.Background(), 1, 5)
	assert.Error(t, err)

	_, err = p.FetchPage(context.Background(), 1, 0)
	assert.Error(t, err)
}

func TestSlicePage_Empty(t *testing.T) {
	page := slicePage(nil, 1, 5)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 0, page.TotalItems)
	assert.Empty(t, page.Items)
}
