package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ivanGusef/guardfeed/internal/pipeline"
	"github.com/ivanGusef/guardfeed/internal/reconcile"
	"github.com/ivanGusef/guardfeed/internal/state"
)

// printPages drives a started session without a terminal: it reconciles
// every snapshot the way the interface does, asks for the next page once
// the rows on hand are current, and prints the rows when count pages are
// in or the feed has no more.
func printPages(ctx context.Context, w io.Writer, session *pipeline.Session, count int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		rec       reconcile.Reconciler
		rows      []state.Row
		shown     *state.State
		latest    *state.State
		requested int
		posts     = make(chan func())
		lastPlan  reconcile.Script
	)

	post := func(f func()) {
		select {
		case posts <- f:
		case <-ctx.Done():
		}
	}

	states := session.States()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case st, ok := <-states:
			if !ok {
				return fmt.Errorf("session closed before %d pages loaded", count)
			}
			latest = st
			if st.Bootstrapping() && st.Rows[0].Kind == state.RowContentLoading {
				continue
			}
			rec.Submit(rows, st.Rows, post, func(res reconcile.Result) {
				rows = res.Rows
				shown = st
				lastPlan = res.Script
			})

		case f := <-posts:
			f()
			if shown == nil || shown != latest {
				continue
			}
			if shown.PagesLoaded >= count || !shown.CanLoadMore {
				return writeRows(w, shown, rows, lastPlan)
			}
			if next := shown.PagesLoaded + 1; requested < next {
				requested = next
				session.RequestPage(next)
			}
		}
	}
}

func writeRows(w io.Writer, st *state.State, rows []state.Row, last reconcile.Script) error {
	target := -1
	if st.ScrollTarget != nil {
		target = st.ScrollTarget.Position
	}

	for i, row := range rows {
		var line string
		switch row.Kind {
		case state.RowItem:
			marker := " "
			if i == target {
				marker = ">"
			}
			line = fmt.Sprintf("%s %3d  %s  [%s]", marker, i+1, row.Item.Headline, row.Item.ID)
		case state.RowContentEmpty:
			line = "  no stories"
		case state.RowPageLoading:
			line = "  … more available"
		default:
			line = "  loading"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	counts := last.Counts()
	_, err := fmt.Fprintf(w, "\n%d of %d items, %d of %d pages (last update: +%d -%d ~%d)\n",
		len(st.Items), st.Meta.TotalItems, st.PagesLoaded, st.Meta.TotalPages,
		counts[reconcile.OpInsert], counts[reconcile.OpRemove], counts[reconcile.OpUpdate])
	return err
}
