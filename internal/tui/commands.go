package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ivanGusef/guardfeed/internal/media"
	"github.com/ivanGusef/guardfeed/internal/state"
	"github.com/ivanGusef/guardfeed/internal/storage"
)

const clearCacheTimeout = 10 * time.Second

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// waitForState blocks on the next snapshot. It is re-issued after every
// stateMsg so exactly one read is outstanding.
func (a *App) waitForState() tea.Cmd {
	states := a.session.States()
	return func() tea.Msg {
		st, ok := <-states
		if !ok {
			return sessionClosedMsg{}
		}
		return stateMsg{state: st}
	}
}

// reconcileRows diffs off the update loop; Update decides whether the
// result is still wanted.
func (a *App) reconcileRows(seq uint64, old []state.Row, st *state.State) tea.Cmd {
	return func() tea.Msg {
		return reconciledMsg{result: a.reconciler.Compute(seq, old, st.Rows), state: st}
	}
}

func (a *App) indexItems(items []storage.Item) tea.Cmd {
	if a.index == nil {
		return nil
	}
	return func() tea.Msg {
		if err := a.index.Index(items); err != nil {
			return errorMsg{err: wrapErr("indexing stories", err)}
		}
		docs, err := a.index.DocCount()
		if err != nil {
			return errorMsg{err: wrapErr("counting indexed stories", err)}
		}
		return indexedMsg{docs: docs}
	}
}

func (a *App) runSearch(query string) tea.Cmd {
	query = strings.TrimSpace(query)
	if a.index == nil || query == "" {
		return func() tea.Msg { return searchResultsMsg{query: query} }
	}
	return func() tea.Msg {
		hits, err := a.index.Search(query, searchLimit)
		if err != nil {
			return searchResultsMsg{query: query, err: wrapErr("search", err)}
		}
		return searchResultsMsg{query: query, hits: hits}
	}
}

// scheduleSearch debounces typing in the search box.
func (a *App) scheduleSearch() tea.Cmd {
	a.searchSeq++
	seq := a.searchSeq
	wait := time.Duration(a.searchDebounceMilli) * time.Millisecond
	return tea.Tick(wait, func(time.Time) tea.Msg { return searchDebounceMsg{seq: seq} })
}

func (a *App) renderItem(item storage.Item) tea.Cmd {
	r, rerr := a.getRenderer()
	return func() tea.Msg {
		var content strings.Builder
		fmt.Fprintf(&content, "# %s\n\n", item.Headline)
		if item.TrailText != "" {
			content.WriteString(markdown(item.TrailText))
			content.WriteString("\n\n")
		}
		if item.ThumbnailURL != "" {
			fmt.Fprintf(&content, "---\n\n*Image:* %s\n", item.ThumbnailURL)
		}

		if rerr != nil {
			return itemRenderedMsg{id: item.ID, content: content.String()}
		}
		rendered, err := r.Render(content.String())
		if err != nil {
			return itemRenderedMsg{id: item.ID, content: fmt.Sprintf("Failed to render story: %v\n\n%s", err, content.String())}
		}
		return itemRenderedMsg{id: item.ID, content: rendered}
	}
}

// openStory launches the item's web page.
func (a *App) openStory(item storage.Item) tea.Cmd {
	open := a.open
	link := media.StoryURL(item)
	return func() tea.Msg {
		return openedMsg{link: link, err: open(link)}
	}
}

func (a *App) clearCache() tea.Cmd {
	session := a.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), clearCacheTimeout)
		defer cancel()
		return cacheClearedMsg{err: session.ClearCache(ctx)}
	}
}

// markdown converts trail HTML, falling back to the raw text.
func markdown(html string) string {
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return html
	}
	return strings.TrimSpace(md)
}

// plainText strips the light markdown left after conversion so a trail
// fits on one list line.
func plainText(html string) string {
	return strings.NewReplacer("**", "", "*", "", "_", "", "\\", "").Replace(markdown(html))
}
