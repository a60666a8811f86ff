package state

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ivanGusef/guardfeed/internal/storage"
)

// Event is one of InitialLoaded, PageLoaded or ScrollRequested.
type Event interface {
	isEvent()
}

// InitialLoaded carries the first meta and items of a session. Pages is the
// number of leading pages the items cover; zero means one page.
type InitialLoaded struct {
	Meta       storage.Meta
	Items      []storage.Item
	Pages      int
	ScrollToID string
}

type PageLoaded struct {
	Page  int
	Items []storage.Item
}

type ScrollRequested struct {
	ItemID string
}

func (InitialLoaded) isEvent()   {}
func (PageLoaded) isEvent()      {}
func (ScrollRequested) isEvent() {}

func (e InitialLoaded) String() string {
	return fmt.Sprintf("InitialLoaded(items=%d pages=%d total=%d)", len(e.Items), e.Pages, e.Meta.TotalItems)
}

func (e PageLoaded) String() string {
	return fmt.Sprintf("PageLoaded(page=%d items=%d)", e.Page, len(e.Items))
}

func (e ScrollRequested) String() string {
	return fmt.Sprintf("ScrollRequested(%s)", e.ItemID)
}

// newRequestID is swapped in tests.
var newRequestID = uuid.New

// Reduce folds ev into s. s is never modified.
func Reduce(s *State, ev Event) *State {
	switch e := ev.(type) {
	case InitialLoaded:
		return reduceInitial(s, e)
	case PageLoaded:
		return reducePage(s, e)
	case ScrollRequested:
		return reduceScroll(s, e)
	default:
		panic(fmt.Sprintf("state: unknown event %T", ev))
	}
}

func reduceInitial(s *State, e InitialLoaded) *State {
	next := *s
	next.Meta = e.Meta
	next.Items = append([]storage.Item{}, e.Items...)
	next.PagesLoaded = max(s.PagesLoaded, e.Pages, 1)
	next.CanLoadMore = s.CanLoadMore && e.Meta.TotalPages > next.PagesLoaded

	if len(next.Items) == 0 {
		next.Rows = []Row{contentEmptyRow}
	} else {
		trailing := next.CanLoadMore && e.Meta.TotalItems > len(next.Items)
		next.Rows = project(next.Items, trailing)
	}

	if e.ScrollToID != "" {
		next.ScrollTarget = &ScrollTarget{
			Position:  next.IndexOf(e.ScrollToID),
			RequestID: newRequestID(),
		}
	}
	return &next
}

func reducePage(s *State, e PageLoaded) *State {
	next := *s
	next.Items = make([]storage.Item, 0, len(s.Items)+len(e.Items))
	next.Items = append(next.Items, s.Items...)
	next.Items = append(next.Items, e.Items...)
	next.PagesLoaded = s.PagesLoaded + 1
	next.CanLoadMore = s.CanLoadMore && s.Meta.TotalPages > next.PagesLoaded

	if len(next.Items) == 0 && s.Bootstrapping() {
		next.Rows = []Row{contentEmptyRow}
	} else {
		next.Rows = project(next.Items, next.CanLoadMore)
	}
	return &next
}

func reduceScroll(s *State, e ScrollRequested) *State {
	pos := s.IndexOf(e.ItemID)
	if pos < 0 {
		return s
	}
	next := *s
	next.ScrollTarget = &ScrollTarget{Position: pos, RequestID: newRequestID()}
	return &next
}

// project builds item rows, optionally followed by the page loading row.
func project(items []storage.Item, trailing bool) []Row {
	rows := make([]Row, 0, len(items)+1)
	for _, item := range items {
		rows = append(rows, ItemRow(item))
	}
	if trailing {
		rows = append(rows, pageLoadingRow)
	}
	return rows
}
