package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanGusef/guardfeed/internal/state"
)

func TestReconciler_DiscardsStaleResults(t *testing.T) {
	var r Reconciler
	v0 := rows("contentLoading")
	v1 := rows("a", "pageLoading")
	v2 := rows("a", "b", "pageLoading")
	v3 := rows("a", "b", "c")

	s1 := r.Begin()
	s2 := r.Begin()
	s3 := r.Begin()
	require.Equal(t, []uint64{1, 2, 3}, []uint64{s1, s2, s3})

	// request 2 never completes
	res1 := r.Compute(s1, v0, v1)
	res3 := r.Compute(s3, v2, v3)

	var applied []Result
	apply := func(res Result) { applied = append(applied, res) }

	assert.False(t, r.Accept(res1, apply))
	assert.True(t, r.Accept(res3, apply))

	require.Len(t, applied, 1)
	assert.Equal(t, uint64(3), applied[0].Seq)
	assert.Equal(t, v3, applied[0].Rows)
}

func TestReconciler_OutOfOrderCompletion(t *testing.T) {
	var r Reconciler
	var applied []uint64
	apply := func(res Result) { applied = append(applied, res.Seq) }

	s1 := r.Begin()
	s2 := r.Begin()
	res2 := r.Compute(s2, nil, rows("a"))
	res1 := r.Compute(s1, nil, rows("b"))

	r.Accept(res2, apply)
	r.Accept(res1, apply)
	assert.Equal(t, []uint64{2}, applied)
}

func TestReconciler_Submit(t *testing.T) {
	var r Reconciler
	mailbox := make(chan func(), 8)
	post := func(fn func()) { mailbox <- fn }

	var applied []Result
	apply := func(res Result) { applied = append(applied, res) }

	old := rows("a", "pageLoading")
	mid := rows("a", "b", "pageLoading")
	last := rows("a", "b", "c")

	r.Submit(old, mid, post, apply)
	seq := r.Submit(mid, last, post, apply)
	assert.Equal(t, uint64(2), seq)
	assert.Equal(t, seq, r.Latest())

	// run posted callbacks on this goroutine, as a UI loop would
	for i := 0; i < 2; i++ {
		select {
		case fn := <-mailbox:
			fn()
		case <-time.After(2 * time.Second):
			t.Fatal("reconciliation never posted")
		}
	}

	require.Len(t, applied, 1)
	assert.Equal(t, uint64(2), applied[0].Seq)
	assert.Equal(t, last, Apply(mid, applied[0].Script))
}

func TestReconciler_ComputeKeepsRows(t *testing.T) {
	var r Reconciler
	next := rows("x", "y")
	res := r.Compute(r.Begin(), []state.Row{}, next)
	assert.Equal(t, next, res.Rows)
	assert.Len(t, res.Script, 2)
}
