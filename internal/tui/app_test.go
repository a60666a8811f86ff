package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanGusef/guardfeed/internal/config"
	"github.com/ivanGusef/guardfeed/internal/pipeline"
	"github.com/ivanGusef/guardfeed/internal/search"
	"github.com/ivanGusef/guardfeed/internal/state"
	"github.com/ivanGusef/guardfeed/internal/storage"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func stories(from, n int) []storage.Item {
	out := make([]storage.Item, n)
	for i := range out {
		out[i] = storage.Item{
			ID:        fmt.Sprintf("world/2024/story-%d", from+i),
			Headline:  fmt.Sprintf("Story number %d", from+i),
			TrailText: "<p>Some <strong>trail</strong> text</p>",
		}
	}
	return out
}

// stubSource serves a three page feed of five items per page.
type stubSource struct {
	mu     sync.Mutex
	pages  []int
	clears int
}

func (s *stubSource) Meta(context.Context) (storage.Meta, error) {
	return storage.Meta{TotalPages: 3, TotalItems: 15, PageSize: 5}, nil
}

func (s *stubSource) Items(context.Context) (storage.Pages, error) {
	return storage.Pages{Items: stories(0, 5), Last: 1}, nil
}

func (s *stubSource) Page(_ context.Context, page int) ([]storage.Item, error) {
	s.mu.Lock()
	s.pages = append(s.pages, page)
	s.mu.Unlock()
	return stories((page-1)*5, 5), nil
}

func (s *stubSource) ClearCaches(context.Context) error {
	s.mu.Lock()
	s.clears++
	s.mu.Unlock()
	return nil
}

func (s *stubSource) requested() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.pages...)
}

func newTestApp(t *testing.T) (*App, *stubSource) {
	t.Helper()
	src := &stubSource{}
	session := pipeline.New(src)
	t.Cleanup(session.Close)

	idx, err := search.NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	app := NewApp(config.TestConfig(), session, idx)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return app, src
}

// deliver runs a state through reconciliation the way the program would.
func deliver(t *testing.T, app *App, st *state.State) {
	t.Helper()
	app.handleState(st)
	seq := app.reconciler.Latest()
	app.Update(reconciledMsg{result: app.reconciler.Compute(seq, app.rows, st.Rows), state: st})
}

func loaded(items []storage.Item) *state.State {
	return state.Reduce(state.Initial(), state.InitialLoaded{
		Meta:  storage.Meta{TotalPages: 3, TotalItems: 15, PageSize: 5},
		Items: items,
	})
}

func TestApp_InitReadsFirstState(t *testing.T) {
	app, _ := newTestApp(t)

	batch, ok := app.Init()().(tea.BatchMsg)
	require.True(t, ok)
	require.Len(t, batch, 2)

	var sawState bool
	for _, cmd := range batch {
		msg := cmd()
		assert.NotContains(t, fmt.Sprintf("%T", msg), "AltScreen")
		if m, ok := msg.(stateMsg); ok {
			sawState = true
			assert.Same(t, state.Initial(), m.state)
		}
	}
	assert.True(t, sawState)
}

func TestNewApp_StartsBootstrapping(t *testing.T) {
	app, _ := newTestApp(t)

	assert.Equal(t, ViewFeed, app.view)
	assert.Same(t, state.Initial(), app.current)
	require.Len(t, app.rows, 1)
	assert.Equal(t, state.RowContentLoading, app.rows[0].Kind)
	assert.Equal(t, "ctrl+", app.keyHandler.modifierKey)
	assert.Contains(t, app.View(), MsgLoadingFeed)
}

func TestApp_WaitForStateEndsWhenSessionCloses(t *testing.T) {
	app, _ := newTestApp(t)

	msg := app.waitForState()()
	sm, ok := msg.(stateMsg)
	require.True(t, ok)
	assert.Same(t, state.Initial(), sm.state)

	app.session.Close()
	assert.IsType(t, sessionClosedMsg{}, app.waitForState()())

	_, cmd := app.Update(sessionClosedMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_AppliesReconciledRows(t *testing.T) {
	app, _ := newTestApp(t)
	st := loaded(stories(0, 5))

	deliver(t, app, st)

	assert.Equal(t, st.Rows, app.rows)
	assert.Len(t, app.rows, 6, "five items and the page loading row")
	assert.Equal(t, state.RowPageLoading, app.rows[5].Kind)

	view := app.View()
	assert.Contains(t, view, "Story number 0")
	assert.Contains(t, view, "Some trail text")
}

func TestApp_DropsStaleReconciliation(t *testing.T) {
	app, _ := newTestApp(t)

	first := loaded(stories(0, 5))
	second := state.Reduce(first, state.PageLoaded{Page: 2, Items: stories(5, 5)})
	third := state.Reduce(second, state.PageLoaded{Page: 3, Items: stories(10, 5)})

	old := app.rows
	var results []reconciledMsg
	for _, st := range []*state.State{first, second, third} {
		app.handleState(st)
		seq := app.reconciler.Latest()
		results = append(results, reconciledMsg{result: app.reconciler.Compute(seq, old, st.Rows), state: st})
	}

	// finish out of order: 2, 3, 1
	app.Update(results[1])
	assert.Equal(t, old, app.rows, "superseded result must not apply")

	app.Update(results[2])
	assert.Equal(t, third.Rows, app.rows)

	app.Update(results[0])
	assert.Equal(t, third.Rows, app.rows)
}

func TestApp_ScrollTargetConsumedOnce(t *testing.T) {
	app, _ := newTestApp(t)
	st := loaded(stories(0, 5))
	deliver(t, app, st)

	scrolled := state.Reduce(st, state.ScrollRequested{ItemID: "world/2024/story-3"})
	require.NotNil(t, scrolled.ScrollTarget)

	deliver(t, app, scrolled)
	assert.Equal(t, 3, app.cursor)

	app.moveCursor(-3)
	assert.Equal(t, 0, app.cursor)

	// same request seen again through a later state
	later := state.Reduce(scrolled, state.PageLoaded{Page: 2, Items: stories(5, 5)})
	deliver(t, app, later)
	assert.Equal(t, 0, app.cursor)

	again := state.Reduce(later, state.ScrollRequested{ItemID: "world/2024/story-3"})
	require.NotEqual(t, scrolled.ScrollTarget.RequestID, again.ScrollTarget.RequestID)
	deliver(t, app, again)
	assert.Equal(t, 3, app.cursor)
}

func TestApp_ScrollTargetNotFoundKeepsCursor(t *testing.T) {
	app, _ := newTestApp(t)
	st := loaded(stories(0, 5))
	deliver(t, app, st)
	app.moveCursor(1)

	missing := *st
	missing.ScrollTarget = &state.ScrollTarget{Position: -1, RequestID: uuid.New()}
	deliver(t, app, &missing)

	assert.Equal(t, 1, app.cursor)
	assert.Equal(t, StatusWarn, app.statusKind)
}

func TestApp_CursorFollowsSelectedRow(t *testing.T) {
	app, _ := newTestApp(t)
	first := loaded(stories(0, 5))
	deliver(t, app, first)
	app.moveCursor(2)

	// the same items with one new story on top
	reordered := state.Reduce(first, state.InitialLoaded{
		Meta:  first.Meta,
		Items: append(stories(100, 1), stories(0, 5)...),
	})
	deliver(t, app, reordered)

	item, ok := app.selectedItem()
	require.True(t, ok)
	assert.Equal(t, "world/2024/story-2", item.ID)
	assert.Equal(t, 3, app.cursor)
}

func TestApp_PrefetchNearEnd(t *testing.T) {
	app, _ := newTestApp(t)
	st := loaded(stories(0, 5))
	deliver(t, app, st)

	// six rows and a threshold of three
	assert.Zero(t, app.pendingPage)

	app.moveCursor(1)
	assert.Zero(t, app.pendingPage)

	app.moveCursor(1)
	assert.Equal(t, 2, app.pendingPage)
	assert.Equal(t, MsgLoadingPage(2), app.status)

	app.moveCursor(1)
	assert.Equal(t, 2, app.pendingPage, "one request at a time")

	next := state.Reduce(st, state.PageLoaded{Page: 2, Items: stories(5, 5)})
	app.handleState(next)
	assert.Zero(t, app.pendingPage)
}

func TestApp_NoPrefetchWhenFeedExhausted(t *testing.T) {
	app, _ := newTestApp(t)
	st := state.Reduce(state.Initial(), state.InitialLoaded{
		Meta:  storage.Meta{TotalPages: 1, TotalItems: 2, PageSize: 5},
		Items: stories(0, 2),
	})
	require.False(t, st.CanLoadMore)
	deliver(t, app, st)

	app.moveCursor(5)
	assert.Zero(t, app.pendingPage)
	assert.Contains(t, app.status, MsgEndOfFeed)
}

func TestApp_NoPrefetchWhileBootstrapping(t *testing.T) {
	app, _ := newTestApp(t)
	app.moveCursor(1)
	assert.Zero(t, app.pendingPage)
}

func TestApp_PrefetchReachesSession(t *testing.T) {
	app, src := newTestApp(t)
	app.session.Start("")

	var st *state.State
	require.Eventually(t, func() bool {
		st = app.session.Latest()
		return !st.Bootstrapping()
	}, waitFor, tick)
	deliver(t, app, st)

	app.keyHandler.HandleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")})
	require.Equal(t, 2, app.pendingPage)

	assert.Eventually(t, func() bool {
		return len(src.requested()) == 1 && src.requested()[0] == 2
	}, waitFor, tick)
	assert.Eventually(t, func() bool {
		return app.session.Latest().PagesLoaded == 2
	}, waitFor, tick)
}

func TestApp_IndexesItemsForSearch(t *testing.T) {
	app, _ := newTestApp(t)
	st := loaded(stories(0, 5))

	app.handleState(st)
	assert.Equal(t, 5, app.indexedCount)

	msg := app.indexItems(st.Items)()
	indexed, ok := msg.(indexedMsg)
	require.True(t, ok)
	assert.Equal(t, 5, indexed.docs)

	res, ok := app.runSearch("number 3")().(searchResultsMsg)
	require.True(t, ok)
	require.NoError(t, res.err)
	require.NotEmpty(t, res.hits)
	assert.Equal(t, "world/2024/story-3", res.hits[0].ID)
}

func TestApp_SearchResultsForStaleQueryIgnored(t *testing.T) {
	app, _ := newTestApp(t)
	app.searchInput.SetValue("cricket")

	app.Update(searchResultsMsg{query: "crick", hits: []search.Hit{{ID: "x"}}})
	assert.Empty(t, app.searchHits)

	app.Update(searchResultsMsg{query: "cricket", hits: []search.Hit{{ID: "y"}}})
	require.Len(t, app.searchHits, 1)
	assert.Equal(t, MsgResultsCount(1), app.status)
}

func TestApp_ClearCache(t *testing.T) {
	app, src := newTestApp(t)

	_, cmd := app.keyHandler.HandleKey(tea.KeyMsg{Type: tea.KeyCtrlX})
	require.NotNil(t, cmd)
	assert.Equal(t, MsgClearingCache, app.status)

	app.Update(cmd())
	assert.Equal(t, MsgCacheCleared, app.status)
	assert.Equal(t, 1, src.clears)
}

func TestApp_RenderItem(t *testing.T) {
	app, _ := newTestApp(t)
	deliver(t, app, loaded(stories(0, 5)))

	_, cmd := app.keyHandler.HandleKey(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, ViewReader, app.view)
	require.NotNil(t, app.reading)

	msg, ok := cmd().(itemRenderedMsg)
	require.True(t, ok)
	assert.Equal(t, "world/2024/story-0", msg.id)
	assert.Contains(t, msg.content, "Story number 0")

	app.Update(msg)
	assert.True(t, strings.Contains(app.View(), "Story number 0"))

	// a render for another story is dropped
	app.Update(itemRenderedMsg{id: "other", content: "nope"})
	assert.NotContains(t, app.View(), "nope")
}

func TestApp_ViewShowsEmptyFeed(t *testing.T) {
	app, _ := newTestApp(t)
	st := state.Reduce(state.Initial(), state.InitialLoaded{Meta: storage.Meta{}, Items: nil})
	deliver(t, app, st)

	require.Len(t, app.rows, 1)
	assert.Equal(t, state.RowContentEmpty, app.rows[0].Kind)
	assert.Contains(t, app.View(), "No stories for football")
}

func TestMarkdownConversion(t *testing.T) {
	assert.Equal(t, "Some **trail** text", markdown("<p>Some <strong>trail</strong> text</p>"))
	assert.Equal(t, "Some trail text", plainText("<p>Some <strong>trail</strong> text</p>"))
}

func TestApp_OpenStory(t *testing.T) {
	app, _ := newTestApp(t)
	var opened []string
	app.open = func(link string) error {
		opened = append(opened, link)
		return nil
	}
	deliver(t, app, loaded(stories(0, 5)))
	app.moveCursor(1)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, []string{"https://www.theguardian.com/world/2024/story-1"}, opened)
	assert.Equal(t, StatusSuccess, app.statusKind)
}

func TestApp_OpenStoryFailure(t *testing.T) {
	app, _ := newTestApp(t)
	app.open = func(string) error { return fmt.Errorf("no application found to open page") }
	deliver(t, app, loaded(stories(0, 5)))

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	require.NotNil(t, cmd)
	app.Update(cmd())
	assert.Equal(t, StatusError, app.statusKind)
}

func TestApp_OpenOnPlaceholderDoesNothing(t *testing.T) {
	app, _ := newTestApp(t)
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Nil(t, cmd)
}
