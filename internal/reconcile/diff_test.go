package reconcile

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanGusef/guardfeed/internal/state"
	"github.com/ivanGusef/guardfeed/internal/storage"
)

func row(id string) state.Row {
	return state.ItemRow(storage.Item{ID: id, Headline: "Headline " + id})
}

func rows(ids ...string) []state.Row {
	out := make([]state.Row, len(ids))
	for i, id := range ids {
		switch id {
		case "pageLoading":
			out[i] = state.Row{Kind: state.RowPageLoading}
		case "contentLoading":
			out[i] = state.Row{Kind: state.RowContentLoading}
		case "contentEmpty":
			out[i] = state.Row{Kind: state.RowContentEmpty}
		default:
			out[i] = row(id)
		}
	}
	return out
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name   string
		old    []state.Row
		new    []state.Row
		counts map[OpKind]int
	}{
		{
			name:   "identical",
			old:    rows("a", "b", "pageLoading"),
			new:    rows("a", "b", "pageLoading"),
			counts: map[OpKind]int{},
		},
		{
			name:   "bootstrap to first page",
			old:    rows("contentLoading"),
			new:    rows("a", "b", "c", "pageLoading"),
			counts: map[OpKind]int{OpInsert: 4, OpRemove: 1},
		},
		{
			name:   "page appended before loading row",
			old:    rows("a", "b", "pageLoading"),
			new:    rows("a", "b", "c", "d", "pageLoading"),
			counts: map[OpKind]int{OpInsert: 2},
		},
		{
			name:   "last page drops loading row",
			old:    rows("a", "b", "pageLoading"),
			new:    rows("a", "b", "c"),
			counts: map[OpKind]int{OpInsert: 1, OpRemove: 1},
		},
		{
			name:   "moved row",
			old:    rows("a", "b", "c", "d"),
			new:    rows("b", "c", "d", "a"),
			counts: map[OpKind]int{OpMove: 1},
		},
		{
			name:   "empty to empty",
			old:    nil,
			new:    nil,
			counts: map[OpKind]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := Diff(tt.old, tt.new)
			assert.Equal(t, tt.counts, script.Counts())
			assert.Equal(t, tt.new, nilIfEmpty(Apply(tt.old, script)))
		})
	}
}

func nilIfEmpty(r []state.Row) []state.Row {
	if len(r) == 0 {
		return nil
	}
	return r
}

func TestDiff_ContentChangeIsUpdate(t *testing.T) {
	old := rows("a", "b", "c")
	new := rows("a", "b", "c")
	new[1].Item.Headline = "Rewritten"

	script := Diff(old, new)
	require.Len(t, script, 1)
	assert.Equal(t, Op{Kind: OpUpdate, OldIndex: 1, NewIndex: 1, Row: new[1]}, script[0])
	assert.Equal(t, new, Apply(old, script))
	assert.Equal(t, "Headline b", old[1].Item.Headline, "old list is not modified")
}

func TestApply_RandomLists(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))

	randomRows := func() []state.Row {
		perm := rnd.Perm(12)[:rnd.Intn(12)]
		out := make([]state.Row, 0, len(perm)+1)
		for _, n := range perm {
			r := row(fmt.Sprint(n))
			if rnd.Intn(4) == 0 {
				r.Item.TrailText = "changed"
			}
			out = append(out, r)
		}
		if rnd.Intn(2) == 0 {
			out = append(out, state.Row{Kind: state.RowPageLoading})
		}
		return out
	}

	for i := 0; i < 500; i++ {
		old, new := randomRows(), randomRows()
		got := Apply(old, Diff(old, new))
		require.Equal(t, len(new), len(got), "round %d", i)
		for j := range new {
			require.Equal(t, new[j], got[j], "round %d index %d", i, j)
		}
	}
}

func TestOpKindString(t *testing.T) {
	assert.Equal(t, "insert", OpInsert.String())
	assert.Equal(t, "move", OpMove.String())
	assert.Equal(t, "OpKind(7)", OpKind(7).String())
}
