package tui

import "fmt"

// StatusKind indicates severity for status messages.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarn
	StatusError
)

// Canonical short status messages used across the app.
const (
	MsgLoadingFeed   = "Loading feed…"
	MsgClearingCache = "Clearing cache…"
	MsgCacheCleared  = "Cache cleared, restart to refetch"
	MsgNoResults     = "No results"
	MsgEndOfFeed     = "End of feed"
	MsgRendering     = "Rendering…"
)

func MsgLoadingPage(page int) string {
	return fmt.Sprintf("Loading page %d…", page)
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

// MsgFeedSummary describes how much of the feed is on screen.
func MsgFeedSummary(loaded, totalItems, pages, totalPages int) string {
	return fmt.Sprintf("%d/%d items • page %d/%d", loaded, totalItems, pages, totalPages)
}
