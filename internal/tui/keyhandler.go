package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ivanGusef/guardfeed/internal/config"
)

type KeyHandler struct {
	app         *App
	bindings    config.KeyBindings
	modifierKey string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := ""
	if cfg.Keys.Modifier != "" {
		modifierKey = cfg.Keys.Modifier + "+"
	}
	return &KeyHandler{app: app, bindings: cfg.Keys.Bindings, modifierKey: modifierKey}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	return kh.app.view == ViewSearch && kh.app.searchInput.Focused()
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return kh.app, tea.Quit
	case "esc", kh.bindings.Back:
		return kh.navigateBack()
	case "enter":
		if len(kh.app.searchHits) > 0 {
			return kh.selectSearchResult(0)
		}
		return kh.app, kh.app.runSearch(kh.app.searchInput.Value())
	case "tab", "down":
		if len(kh.app.searchHits) > 0 {
			kh.app.searchInput.Blur()
			kh.app.searchCursor = 0
		}
		return kh.app, nil
	}

	prev := kh.app.searchInput.Value()
	var cmd tea.Cmd
	kh.app.searchInput, cmd = kh.app.searchInput.Update(msg)
	if kh.app.searchInput.Value() != prev {
		return kh.app, tea.Batch(cmd, kh.app.scheduleSearch())
	}
	return kh.app, cmd
}

// handleCustomKeys handles the configured action keys.
func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "ctrl+c", kh.bindings.Quit:
		return kh.app, tea.Quit, true
	case "esc", kh.bindings.Back:
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case kh.modifierKey + kh.bindings.Search:
		model, cmd := kh.enterSearchMode()
		return model, cmd, true
	case kh.modifierKey + kh.bindings.ClearCache:
		kh.app.setStatus(MsgClearingCache, StatusInfo)
		return kh.app, kh.app.clearCache(), true
	case kh.modifierKey + kh.bindings.Open:
		switch {
		case kh.app.view == ViewReader && kh.app.reading != nil:
			return kh.app, kh.app.openStory(*kh.app.reading), true
		case kh.app.view == ViewFeed:
			if item, ok := kh.app.selectedItem(); ok {
				return kh.app, kh.app.openStory(item), true
			}
		}
		return kh.app, nil, true
	case kh.bindings.Help:
		if kh.app.view == ViewHelp {
			kh.app.view = ViewFeed
		} else {
			kh.app.view = ViewHelp
		}
		return kh.app, nil, true
	}

	if kh.app.view == ViewFeed {
		return kh.handleFeedCustomKeys(key)
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleFeedCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case kh.bindings.Top:
		kh.app.cursor = 0
		kh.app.moveCursor(0)
		return kh.app, nil, true
	case kh.bindings.Bottom:
		kh.app.cursor = len(kh.app.rows) - 1
		kh.app.moveCursor(0)
		return kh.app, nil, true
	case "enter":
		item, ok := kh.app.selectedItem()
		if !ok {
			return kh.app, nil, true
		}
		kh.app.reading = &item
		kh.app.view = ViewReader
		kh.app.viewport.SetContent("")
		kh.app.setStatus(MsgRendering, StatusInfo)
		return kh.app, kh.app.renderItem(item), true
	}
	return kh.app, nil, false
}

// delegateToCharm handles movement and lets bubbles components consume the
// rest.
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewFeed:
		switch msg.String() {
		case "up", "k":
			kh.app.moveCursor(-1)
		case "down", "j":
			kh.app.moveCursor(1)
		case "pgup", "ctrl+u":
			kh.app.moveCursor(-kh.app.visibleRows())
		case "pgdown", "ctrl+d", " ":
			kh.app.moveCursor(kh.app.visibleRows())
		}
		return kh.app, nil

	case ViewReader:
		var cmd tea.Cmd
		kh.app.viewport, cmd = kh.app.viewport.Update(msg)
		return kh.app, cmd

	case ViewSearch:
		switch msg.String() {
		case "up", "k", "shift+tab":
			if kh.app.searchCursor == 0 {
				return kh.app, kh.app.searchInput.Focus()
			}
			kh.app.searchCursor--
		case "down", "j":
			if kh.app.searchCursor < len(kh.app.searchHits)-1 {
				kh.app.searchCursor++
			}
		case "tab", "/", "i":
			return kh.app, kh.app.searchInput.Focus()
		case "enter":
			if len(kh.app.searchHits) > 0 {
				return kh.selectSearchResult(kh.app.searchCursor)
			}
		}
		return kh.app, nil

	default:
		return kh.app, nil
	}
}

func (kh *KeyHandler) enterSearchMode() (tea.Model, tea.Cmd) {
	kh.app.view = ViewSearch
	kh.app.searchInput.Reset()
	kh.app.searchHits = nil
	kh.app.searchCursor = 0
	return kh.app, kh.app.searchInput.Focus()
}

// selectSearchResult returns to the feed and asks the session to bring the
// hit into view. The cursor moves once the resulting state arrives.
func (kh *KeyHandler) selectSearchResult(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(kh.app.searchHits) {
		return kh.app, nil
	}
	hit := kh.app.searchHits[i]
	kh.app.searchInput.Blur()
	kh.app.view = ViewFeed
	kh.app.session.RequestScrollTo(hit.ID)
	kh.app.setStatus("Jumping to "+truncateEnd(hit.Headline, 40), StatusInfo)
	return kh.app, nil
}

func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewReader:
		kh.app.reading = nil
		kh.app.view = ViewFeed
		kh.app.setStatus(kh.app.summary(), StatusInfo)
	case ViewSearch:
		kh.app.searchInput.Blur()
		kh.app.view = ViewFeed
	case ViewHelp:
		kh.app.view = ViewFeed
	}
	return kh.app, nil
}

// GetHelpForCurrentView returns the short key legend for the status bar.
func (kh *KeyHandler) GetHelpForCurrentView() string {
	b := kh.bindings
	switch kh.app.view {
	case ViewReader:
		return "↑/↓ scroll • " + kh.modifierKey + b.Open + " open • " + b.Back + " back • " + b.Quit + " quit"
	case ViewSearch:
		if kh.app.searchInput.Focused() {
			return "enter jump • tab results • esc back"
		}
		return "↑/↓ select • enter jump • tab edit • esc back"
	case ViewHelp:
		return b.Help + " close • " + b.Quit + " quit"
	default:
		return "enter read • " + kh.modifierKey + b.Search + " search • " +
			kh.modifierKey + b.ClearCache + " clear cache • " + b.Help + " help • " + b.Quit + " quit"
	}
}
