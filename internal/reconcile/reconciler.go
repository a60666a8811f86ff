package reconcile

import (
	"sync/atomic"

	"github.com/ivanGusef/guardfeed/internal/state"
)

// Result is a finished reconciliation for request Seq.
type Result struct {
	Seq    uint64
	Rows   []state.Row
	Script Script
}

// Reconciler tags requests with increasing sequence numbers and lets only
// the newest finished computation through. Computations may run anywhere;
// Accept must run on the presentation goroutine.
type Reconciler struct {
	latest atomic.Uint64
}

// Begin starts a request and returns its sequence number.
func (r *Reconciler) Begin() uint64 {
	return r.latest.Add(1)
}

func (r *Reconciler) Latest() uint64 {
	return r.latest.Load()
}

// Compute diffs old against new for request seq.
func (r *Reconciler) Compute(seq uint64, old, new []state.Row) Result {
	return Result{Seq: seq, Rows: new, Script: Diff(old, new)}
}

// Accept calls apply with res unless a newer request has begun since res
// was submitted. It reports whether res was applied.
func (r *Reconciler) Accept(res Result, apply func(Result)) bool {
	if res.Seq != r.latest.Load() {
		return false
	}
	apply(res)
	return true
}

// Submit computes the diff on its own goroutine and hands the acceptance
// check to post, which must run it on the presentation goroutine.
func (r *Reconciler) Submit(old, new []state.Row, post func(func()), apply func(Result)) uint64 {
	seq := r.Begin()
	go func() {
		res := r.Compute(seq, old, new)
		post(func() {
			r.Accept(res, apply)
		})
	}()
	return seq
}
