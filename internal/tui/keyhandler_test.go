package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanGusef/guardfeed/internal/search"
	"github.com/ivanGusef/guardfeed/internal/state"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeyHandler_ViewTransitions(t *testing.T) {
	tests := []struct {
		name         string
		initialView  View
		msg          tea.KeyMsg
		expectedView View
	}{
		{"feed to search on ctrl+s", ViewFeed, tea.KeyMsg{Type: tea.KeyCtrlS}, ViewSearch},
		{"feed to help on ?", ViewFeed, runes("?"), ViewHelp},
		{"help back to feed on ?", ViewHelp, runes("?"), ViewFeed},
		{"help back to feed on esc", ViewHelp, tea.KeyMsg{Type: tea.KeyEsc}, ViewFeed},
		{"reader back to feed on esc", ViewReader, tea.KeyMsg{Type: tea.KeyEsc}, ViewFeed},
		{"enter on placeholder stays in feed", ViewFeed, tea.KeyMsg{Type: tea.KeyEnter}, ViewFeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(t)
			app.view = tt.initialView

			model, _ := app.Update(tt.msg)
			assert.Equal(t, tt.expectedView, model.(*App).view)
		})
	}
}

func TestKeyHandler_Quit(t *testing.T) {
	for _, msg := range []tea.KeyMsg{runes("q"), {Type: tea.KeyCtrlC}} {
		app, _ := newTestApp(t)
		_, cmd := app.Update(msg)
		require.NotNil(t, cmd, msg.String())
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestKeyHandler_TopAndBottom(t *testing.T) {
	app, _ := newTestApp(t)
	deliver(t, app, loaded(stories(0, 5)))

	app.Update(runes("G"))
	assert.Equal(t, 5, app.cursor)
	assert.Equal(t, state.RowPageLoading, app.rows[app.cursor].Kind)

	app.Update(runes("g"))
	assert.Equal(t, 0, app.cursor)

	app.Update(runes("j"))
	app.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, app.cursor)

	app.Update(runes("k"))
	assert.Equal(t, 1, app.cursor)

	app.Update(tea.KeyMsg{Type: tea.KeyUp})
	app.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, app.cursor, "cursor stops at the first row")
}

func TestKeyHandler_SearchTypingIsNotACommand(t *testing.T) {
	app, _ := newTestApp(t)
	app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.True(t, app.searchInput.Focused())

	_, cmd := app.Update(runes("q"))
	assert.Equal(t, ViewSearch, app.view)
	assert.Equal(t, "q", app.searchInput.Value())
	assert.NotNil(t, cmd, "typing schedules a debounced search")
	assert.Equal(t, 1, app.searchSeq)
}

func TestKeyHandler_SearchDebounce(t *testing.T) {
	app, _ := newTestApp(t)
	app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	app.Update(runes("s"))
	app.Update(runes("t"))

	_, cmd := app.Update(searchDebounceMsg{seq: 1})
	assert.Nil(t, cmd, "superseded keystroke")

	_, cmd = app.Update(searchDebounceMsg{seq: 2})
	require.NotNil(t, cmd)
	res, ok := cmd().(searchResultsMsg)
	require.True(t, ok)
	assert.Equal(t, "st", res.query)
}

func TestKeyHandler_SelectSearchResultRequestsScroll(t *testing.T) {
	app, _ := newTestApp(t)
	app.session.Start("")
	deliver(t, app, loaded(stories(0, 5)))

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	app.searchInput.SetValue("story")
	app.Update(searchResultsMsg{query: "story", hits: []search.Hit{
		{ID: "world/2024/story-4", Headline: "Story number 4"},
		{ID: "world/2024/story-1", Headline: "Story number 1"},
	}})

	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.False(t, app.searchInput.Focused())

	app.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, app.searchCursor)

	app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewFeed, app.view)

	assert.Eventually(t, func() bool {
		st := app.session.Latest()
		return st.ScrollTarget != nil && st.ScrollTarget.Position == 1
	}, waitFor, tick)
}

func TestKeyHandler_HelpText(t *testing.T) {
	app, _ := newTestApp(t)

	assert.Contains(t, app.keyHandler.GetHelpForCurrentView(), "ctrl+s search")
	assert.Contains(t, app.keyHandler.GetHelpForCurrentView(), "ctrl+x clear cache")

	app.view = ViewReader
	assert.Contains(t, app.keyHandler.GetHelpForCurrentView(), "esc back")
}

func TestKeyHandler_EmptyModifier(t *testing.T) {
	app, _ := newTestApp(t)
	app.cfg.Keys.Modifier = ""
	kh := NewKeyHandler(app, app.cfg)
	assert.Equal(t, "", kh.modifierKey)
}
