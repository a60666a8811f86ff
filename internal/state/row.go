package state

import (
	"fmt"

	"github.com/ivanGusef/guardfeed/internal/storage"
)

type RowKind int

const (
	RowContentLoading RowKind = iota
	RowContentEmpty
	RowPageLoading
	RowItem
)

func (k RowKind) String() string {
	switch k {
	case RowContentLoading:
		return "contentLoading"
	case RowContentEmpty:
		return "contentEmpty"
	case RowPageLoading:
		return "pageLoading"
	case RowItem:
		return "item"
	default:
		return fmt.Sprintf("RowKind(%d)", int(k))
	}
}

// Row is one displayable unit of the feed. Item is only meaningful for
// RowItem rows.
type Row struct {
	Kind RowKind
	Item storage.Item
}

var (
	contentLoadingRow = Row{Kind: RowContentLoading}
	contentEmptyRow   = Row{Kind: RowContentEmpty}
	pageLoadingRow    = Row{Kind: RowPageLoading}
)

func ItemRow(item storage.Item) Row {
	return Row{Kind: RowItem, Item: item}
}

// ID is the row identity: two rows are the same row iff their IDs match,
// whatever their content.
func (r Row) ID() string {
	switch r.Kind {
	case RowContentLoading:
		return "contentLoading"
	case RowContentEmpty:
		return "contentEmpty"
	case RowPageLoading:
		return "pageLoading"
	case RowItem:
		return ItemRowID(r.Item.ID)
	default:
		panic(fmt.Sprintf("state: unknown row kind %d", int(r.Kind)))
	}
}

func ItemRowID(itemID string) string {
	return "item:" + itemID
}
