package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/ivanGusef/guardfeed/internal/config"
	"github.com/ivanGusef/guardfeed/internal/debuglog"
	"github.com/ivanGusef/guardfeed/internal/media"
	"github.com/ivanGusef/guardfeed/internal/pipeline"
	"github.com/ivanGusef/guardfeed/internal/reconcile"
	"github.com/ivanGusef/guardfeed/internal/search"
	"github.com/ivanGusef/guardfeed/internal/state"
	"github.com/ivanGusef/guardfeed/internal/storage"
)

const (
	headerHeight    = 3
	statusBarHeight = 2
	rowHeight       = 2
	searchLimit     = 10
)

// App is the Bubble Tea model for a feed session. It owns the rows on
// screen; the session owns everything else.
type App struct {
	cfg        *config.Config
	session    *pipeline.Session
	index      *search.Index
	reconciler reconcile.Reconciler
	keyHandler *KeyHandler
	log        *debuglog.Logger
	open       func(link string) error

	view   View
	width  int
	height int

	current *state.State
	rows    []state.Row
	cursor  int
	offset  int
	trails  map[string]string

	lastScroll   uuid.UUID
	pendingPage  int
	indexedCount int

	spinner     spinner.Model
	searchInput textinput.Model
	viewport    viewport.Model

	searchHits          []search.Hit
	searchCursor        int
	searchSeq           int
	searchDebounceMilli int

	reading         *storage.Item
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int

	status     string
	statusKind StatusKind
	err        error
}

func NewApp(cfg *config.Config, session *pipeline.Session, index *search.Index) *App {
	ApplyTheme(cfg.UI.Colors)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	si := textinput.New()
	si.Placeholder = "Search loaded headlines…"
	si.CharLimit = 200
	si.Width = 50

	vp := viewport.New(80, 20)

	a := &App{
		cfg:                 cfg,
		session:             session,
		index:               index,
		log:                 debuglog.For("tui"),
		open:                media.NewLauncher(cfg.UI.Opener).Open,
		view:                ViewFeed,
		width:               80,
		height:              24,
		current:             state.Initial(),
		rows:                state.Initial().Rows,
		trails:              make(map[string]string),
		spinner:             sp,
		searchInput:         si,
		viewport:            vp,
		searchDebounceMilli: 200,
		status:              MsgLoadingFeed,
	}
	a.keyHandler = NewKeyHandler(a, cfg)
	return a
}

// Init starts reading snapshots. The alternate screen is the program's
// concern (tea.WithAltScreen).
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.waitForState(), a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport.Width = msg.Width
		a.viewport.Height = max(msg.Height-headerHeight-statusBarHeight, 1)
		a.searchInput.Width = max(min(msg.Width-10, 80), 10)
		a.ensureVisible()
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case stateMsg:
		return a, a.handleState(msg.state)

	case sessionClosedMsg:
		return a, tea.Quit

	case reconciledMsg:
		accepted := a.reconciler.Accept(msg.result, func(res reconcile.Result) {
			a.applyRows(res, msg.state)
		})
		if !accepted {
			a.log.Debugf("dropped stale rows seq=%d latest=%d", msg.result.Seq, a.reconciler.Latest())
			return a, nil
		}
		a.maybePrefetch()
		return a, nil

	case indexedMsg:
		a.log.Debugf("search index holds %d docs", msg.docs)
		return a, nil

	case searchDebounceMsg:
		if msg.seq != a.searchSeq {
			return a, nil
		}
		return a, a.runSearch(a.searchInput.Value())

	case searchResultsMsg:
		if msg.err != nil {
			a.setStatus(msg.err.Error(), StatusError)
			return a, nil
		}
		if msg.query != strings.TrimSpace(a.searchInput.Value()) {
			return a, nil
		}
		a.searchHits = msg.hits
		a.searchCursor = 0
		if msg.query != "" && len(msg.hits) == 0 {
			a.setStatus(MsgNoResults, StatusWarn)
		} else {
			a.setStatus(MsgResultsCount(len(msg.hits)), StatusInfo)
		}
		return a, nil

	case itemRenderedMsg:
		if a.reading == nil || a.reading.ID != msg.id {
			return a, nil
		}
		a.viewport.SetContent(msg.content)
		a.viewport.GotoTop()
		a.setStatus("", StatusInfo)
		return a, nil

	case openedMsg:
		if msg.err != nil {
			a.setStatus(msg.err.Error(), StatusError)
			return a, nil
		}
		a.setStatus("Opened "+truncateMiddle(msg.link, 60), StatusSuccess)
		return a, nil

	case cacheClearedMsg:
		if msg.err != nil {
			a.setStatus(fmt.Sprintf("Clearing cache failed: %v", msg.err), StatusError)
			return a, nil
		}
		a.setStatus(MsgCacheCleared, StatusSuccess)
		return a, nil

	case errorMsg:
		a.err = msg.err
		a.setStatus(msg.err.Error(), StatusError)
		return a, nil
	}

	return a, nil
}

// handleState records a new snapshot and starts reconciling its rows
// against the rows on screen.
func (a *App) handleState(st *state.State) tea.Cmd {
	a.current = st
	if a.pendingPage > 0 && st.PagesLoaded >= a.pendingPage {
		a.pendingPage = 0
	}
	if !st.Bootstrapping() {
		a.setStatus(a.summary(), StatusInfo)
	}

	seq := a.reconciler.Begin()
	cmds := []tea.Cmd{a.waitForState(), a.reconcileRows(seq, a.rows, st)}
	if len(st.Items) != a.indexedCount {
		a.indexedCount = len(st.Items)
		cmds = append(cmds, a.indexItems(st.Items))
	}
	return tea.Batch(cmds...)
}

// applyRows installs accepted rows. The cursor follows the row it was on
// and then honors a scroll target not seen before.
func (a *App) applyRows(res reconcile.Result, st *state.State) {
	selected := ""
	if a.cursor >= 0 && a.cursor < len(a.rows) {
		selected = a.rows[a.cursor].ID()
	}

	a.rows = res.Rows
	counts := res.Script.Counts()
	a.log.Debugf("rows seq=%d n=%d insert=%d remove=%d move=%d update=%d",
		res.Seq, len(a.rows), counts[reconcile.OpInsert], counts[reconcile.OpRemove],
		counts[reconcile.OpMove], counts[reconcile.OpUpdate])

	if selected != "" {
		for i, row := range a.rows {
			if row.ID() == selected {
				a.cursor = i
				break
			}
		}
	}
	a.clampCursor()
	a.consumeScrollTarget(st)
	a.ensureVisible()
}

func (a *App) consumeScrollTarget(st *state.State) {
	target := st.ScrollTarget
	if target == nil || target.RequestID == a.lastScroll {
		return
	}
	a.lastScroll = target.RequestID
	if target.Position < 0 || target.Position >= len(a.rows) {
		a.setStatus("Story is not loaded", StatusWarn)
		return
	}
	a.cursor = target.Position
}

// maybePrefetch asks for the next page when the cursor is near the end and
// no page request is outstanding.
func (a *App) maybePrefetch() {
	st := a.current
	if st == nil || !st.CanLoadMore || st.Bootstrapping() || a.pendingPage != 0 {
		return
	}
	if len(a.rows)-1-a.cursor > a.cfg.UI.PrefetchThreshold {
		return
	}
	next := st.PagesLoaded + 1
	a.pendingPage = next
	a.setStatus(MsgLoadingPage(next), StatusInfo)
	a.log.Debugf("prefetching page %d cursor=%d rows=%d", next, a.cursor, len(a.rows))
	a.session.RequestPage(next)
}

func (a *App) moveCursor(delta int) {
	a.cursor += delta
	a.clampCursor()
	a.ensureVisible()
	a.maybePrefetch()
}

func (a *App) clampCursor() {
	if a.cursor >= len(a.rows) {
		a.cursor = len(a.rows) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) visibleRows() int {
	return max((a.height-headerHeight-statusBarHeight)/rowHeight, 1)
}

func (a *App) ensureVisible() {
	visible := a.visibleRows()
	if a.cursor < a.offset {
		a.offset = a.cursor
	}
	if a.cursor >= a.offset+visible {
		a.offset = a.cursor - visible + 1
	}
	if a.offset < 0 {
		a.offset = 0
	}
}

func (a *App) selectedItem() (storage.Item, bool) {
	if a.cursor < 0 || a.cursor >= len(a.rows) || a.rows[a.cursor].Kind != state.RowItem {
		return storage.Item{}, false
	}
	return a.rows[a.cursor].Item, true
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = text
	a.statusKind = kind
}

func (a *App) summary() string {
	st := a.current
	if st.CanLoadMore {
		return MsgFeedSummary(len(st.Items), st.Meta.TotalItems, st.PagesLoaded, st.Meta.TotalPages)
	}
	return MsgFeedSummary(len(st.Items), st.Meta.TotalItems, st.PagesLoaded, st.Meta.TotalPages) + " • " + MsgEndOfFeed
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wrap := a.cfg.UI.WordWrapWidth
	if wrap <= 0 || wrap > a.width-4 {
		wrap = a.width - 4
	}
	if wrap < 20 {
		wrap = 20
	}

	if a.glamourRenderer == nil || a.rendererWidth != wrap {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wrap
	}
	return a.glamourRenderer, nil
}

func (a *App) View() string {
	var body string
	switch a.view {
	case ViewReader:
		body = a.viewport.View()
	case ViewSearch:
		body = a.searchView()
	case ViewHelp:
		body = a.helpView()
	default:
		body = a.feedView()
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		TitleStyle.Render(AppName), " ", StatusInfoStyle.Render(a.cfg.Source.Query))
	separator := SeparatorStyle.Render(strings.Repeat("─", max(a.width, 1)))

	content := ContentWrapper(a.width, max(a.height-headerHeight-statusBarHeight, 1)).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, header, separator, content, a.statusBar())
}

// ContentWrapper returns a style that pins content to the given box.
func ContentWrapper(width, height int) lipgloss.Style {
	return EmptyStyle.Width(width).Height(height).MaxHeight(height)
}

func (a *App) statusBar() string {
	left := renderStatus(a.statusKind, a.status)
	right := HelpStyle.Render(a.keyHandler.GetHelpForCurrentView())
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		right = HelpStyle.Render(truncateEnd(a.keyHandler.GetHelpForCurrentView(), max(a.width-lipgloss.Width(left)-3, 0)))
		gap = 1
	}
	return StatusBarStyle.Render(left + strings.Repeat(" ", gap) + right)
}

func (a *App) feedView() string {
	if len(a.rows) == 1 && a.rows[0].Kind != state.RowItem && a.rows[0].Kind != state.RowPageLoading {
		return renderPlaceholder(a.width, max(a.height-headerHeight-statusBarHeight, 1), a.placeholder(a.rows[0]))
	}

	end := min(a.offset+a.visibleRows(), len(a.rows))
	lines := make([]string, 0, (end-a.offset)*rowHeight)
	for i := a.offset; i < end; i++ {
		lines = append(lines, a.rowView(a.rows[i], i == a.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (a *App) placeholder(row state.Row) string {
	switch row.Kind {
	case state.RowContentLoading:
		return a.spinner.View() + " " + MsgLoadingFeed
	case state.RowContentEmpty:
		return "No stories for " + a.cfg.Source.Query
	default:
		return ""
	}
}

func (a *App) rowView(row state.Row, selected bool) string {
	width := max(a.width-4, 1)
	switch row.Kind {
	case state.RowPageLoading:
		return PlaceholderStyle.Render(a.spinner.View()+" Loading more…") + "\n"
	case state.RowItem:
		headline := truncateEnd(row.Item.Headline, width)
		trail := truncateEnd(a.trail(row.Item), width)
		if selected {
			return SelectedItemStyle.Render(headline + "\n" + trail)
		}
		return ItemStyle.Render(headline) + "\n" + TrailStyle.Render(trail)
	default:
		return PlaceholderStyle.Render(a.placeholder(row))
	}
}

// trail returns the item's trail text as one plain line, cached per id.
func (a *App) trail(item storage.Item) string {
	if t, ok := a.trails[item.ID]; ok {
		return t
	}
	t := strings.Join(strings.Fields(plainText(item.TrailText)), " ")
	a.trails[item.ID] = t
	return t
}

func (a *App) searchView() string {
	rows := []string{
		renderPanelTitle("Search", "Headlines and trail text of loaded stories", a.width),
		"",
		renderSearchBox(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width),
		"",
	}
	for i, hit := range a.searchHits {
		line := truncateEnd(hit.Headline, max(a.width-6, 1))
		if i == a.searchCursor && !a.searchInput.Focused() {
			rows = append(rows, SelectedItemStyle.Render(line))
		} else {
			rows = append(rows, ItemStyle.Render(line))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a *App) helpView() string {
	b := a.cfg.Keys.Bindings
	mod := a.keyHandler.modifierKey
	return lipgloss.JoinVertical(lipgloss.Left,
		renderPanelTitle("Keys", "", a.width),
		"",
		renderKeyLegend([]keyEntry{
			{"↑/k ↓/j", "move"},
			{b.Top, "first story"},
			{b.Bottom, "last loaded story"},
			{"enter", "read story"},
			{mod + b.Open, "open story in browser"},
			{mod + b.Search, "search"},
			{mod + b.ClearCache, "clear cache"},
			{b.Back, "back"},
			{b.Quit, "quit"},
		}),
	)
}

type stateMsg struct {
	state *state.State
}

type sessionClosedMsg struct{}

type reconciledMsg struct {
	result reconcile.Result
	state  *state.State
}

type indexedMsg struct {
	docs int
}

type searchDebounceMsg struct {
	seq int
}

type searchResultsMsg struct {
	query string
	hits  []search.Hit
	err   error
}

type itemRenderedMsg struct {
	id      string
	content string
}

type openedMsg struct {
	link string
	err  error
}

type cacheClearedMsg struct {
	err error
}

type errorMsg struct {
	err error
}
