// Package reconcile computes edit scripts between two row lists so the
// presentation layer can update incrementally.
package reconcile

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/ivanGusef/guardfeed/internal/state"
)

type OpKind int

const (
	OpInsert OpKind = iota
	OpRemove
	OpMove
	OpUpdate
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpMove:
		return "move"
	case OpUpdate:
		return "update"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// Op is one edit. OldIndex is -1 for inserts, NewIndex is -1 for removals.
// Row is the row as it appears in the new list.
type Op struct {
	Kind     OpKind
	OldIndex int
	NewIndex int
	Row      state.Row
}

type Script []Op

// Counts returns the number of ops of each kind.
func (s Script) Counts() map[OpKind]int {
	counts := make(map[OpKind]int, 4)
	for _, op := range s {
		counts[op.Kind]++
	}
	return counts
}

// Diff matches rows by identity. Rows kept in place but with different
// content become updates; rows whose identity appears in both lists outside
// the matched blocks become moves.
func Diff(old, new []state.Row) Script {
	a := identities(old)
	b := identities(new)

	matcher := difflib.NewMatcherWithJunk(a, b, false, nil)

	var script Script
	var removed []int
	var inserted []int
	for _, oc := range matcher.GetOpCodes() {
		switch oc.Tag {
		case 'e':
			for k := 0; k < oc.I2-oc.I1; k++ {
				i, j := oc.I1+k, oc.J1+k
				if old[i] != new[j] {
					script = append(script, Op{Kind: OpUpdate, OldIndex: i, NewIndex: j, Row: new[j]})
				}
			}
		case 'd':
			for i := oc.I1; i < oc.I2; i++ {
				removed = append(removed, i)
			}
		case 'i':
			for j := oc.J1; j < oc.J2; j++ {
				inserted = append(inserted, j)
			}
		case 'r':
			for i := oc.I1; i < oc.I2; i++ {
				removed = append(removed, i)
			}
			for j := oc.J1; j < oc.J2; j++ {
				inserted = append(inserted, j)
			}
		}
	}

	// pair identities that left one block and reappeared in another
	moved := make(map[string][]int)
	for _, i := range removed {
		moved[a[i]] = append(moved[a[i]], i)
	}
	consumed := make(map[int]bool)
	for _, j := range inserted {
		if from := moved[b[j]]; len(from) > 0 {
			i := from[0]
			moved[b[j]] = from[1:]
			consumed[i] = true
			script = append(script, Op{Kind: OpMove, OldIndex: i, NewIndex: j, Row: new[j]})
			continue
		}
		script = append(script, Op{Kind: OpInsert, OldIndex: -1, NewIndex: j, Row: new[j]})
	}
	for _, i := range removed {
		if !consumed[i] {
			script = append(script, Op{Kind: OpRemove, OldIndex: i, NewIndex: -1, Row: old[i]})
		}
	}
	return script
}

// Apply replays s against old and returns the resulting list. old is not
// modified.
func Apply(old []state.Row, s Script) []state.Row {
	kept := make([]bool, len(old))
	for i := range kept {
		kept[i] = true
	}

	size := len(old)
	placed := make(map[int]state.Row)
	for _, op := range s {
		switch op.Kind {
		case OpInsert:
			size++
			placed[op.NewIndex] = op.Row
		case OpRemove:
			size--
			kept[op.OldIndex] = false
		case OpMove, OpUpdate:
			kept[op.OldIndex] = false
			placed[op.NewIndex] = op.Row
		}
	}

	out := make([]state.Row, size)
	next := 0
	for j := range out {
		if row, ok := placed[j]; ok {
			out[j] = row
			continue
		}
		for !kept[next] {
			next++
		}
		out[j] = old[next]
		next++
	}
	return out
}

func identities(rows []state.Row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID()
	}
	return ids
}
