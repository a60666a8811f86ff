// Package pipeline runs a feed session: one initial load followed by any
// number of page loads and scroll requests, all folded into feed states
// on a single delivery goroutine.
package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ivanGusef/guardfeed/internal/debuglog"
	"github.com/ivanGusef/guardfeed/internal/state"
	"github.com/ivanGusef/guardfeed/internal/storage"
)

// Source is the feed repository as seen by a session. Its reads return an
// error only when ctx is done.
type Source interface {
	Meta(ctx context.Context) (storage.Meta, error)
	Items(ctx context.Context) (storage.Pages, error)
	Page(ctx context.Context, page int) ([]storage.Item, error)
	ClearCaches(ctx context.Context) error
}

// trigger is a request received before the initial event was reduced.
type trigger struct {
	page   int
	itemID string
}

type Option func(*Session)

// WithContext derives the session context from parent instead of
// context.Background.
func WithContext(parent context.Context) Option {
	return func(s *Session) {
		s.parent = parent
	}
}

type Session struct {
	source Source
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *debuglog.Logger

	mu      sync.Mutex
	started bool
	ready   bool
	closed  bool
	pending []trigger
	inbox   []state.Event
	latest  *state.State

	signal chan struct{}
	states chan *state.State
}

func New(source Source, opts ...Option) *Session {
	s := &Session{
		source: source,
		parent: context.Background(),
		log:    debuglog.For("pipeline"),
		latest: state.Initial(),
		signal: make(chan struct{}, 1),
		states: make(chan *state.State, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(s.parent)
	s.states <- s.latest
	return s
}

// States delivers snapshots latest-wins: a snapshot nobody has read yet is
// replaced by a newer one. The first snapshot is state.Initial(). The
// channel is closed by Close.
func (s *Session) States() <-chan *state.State {
	return s.states
}

// Latest returns the most recently reduced state.
func (s *Session) Latest() *state.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Start begins the initial load, optionally scrolling to scrollToID once
// it lands. A session loads at most once: later calls only request the
// scroll.
func (s *Session) Start(scrollToID string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.started {
		s.mu.Unlock()
		s.log.Debugf("already started, scrolling to %q instead", scrollToID)
		if scrollToID != "" {
			s.RequestScrollTo(scrollToID)
		}
		return
	}
	s.started = true
	s.wg.Add(1)
	s.mu.Unlock()

	s.log.Infof("session starting")
	go s.run(scrollToID)
}

// RequestPage asks for page n. It never blocks.
func (s *Session) RequestPage(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
	case !s.ready:
		s.pending = append(s.pending, trigger{page: n})
	default:
		s.loadPageLocked(n)
	}
}

// RequestScrollTo asks for the row holding itemID to be brought into view.
// It never blocks.
func (s *Session) RequestScrollTo(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
	case !s.ready:
		s.pending = append(s.pending, trigger{itemID: itemID})
	default:
		s.enqueueLocked(state.ScrollRequested{ItemID: itemID})
	}
}

func (s *Session) ClearCache(ctx context.Context) error {
	return s.source.ClearCaches(ctx)
}

// Close cancels all in-flight work, waits for it to stop and closes the
// States channel. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	close(s.states)
	s.log.Infof("session closed")
}

func (s *Session) run(scrollToID string) {
	defer s.wg.Done()

	initial, err := s.loadInitial()
	if err != nil {
		s.log.Debugf("initial load abandoned: %v", err)
		return
	}
	initial.ScrollToID = scrollToID

	current := state.Reduce(state.Initial(), initial)
	s.publish(current)
	s.log.Infof("initial load reduced: %d items, %d pages", len(initial.Items), current.PagesLoaded)

	s.mu.Lock()
	s.ready = true
	for _, t := range s.pending {
		if t.itemID != "" {
			s.enqueueLocked(state.ScrollRequested{ItemID: t.itemID})
		} else {
			s.loadPageLocked(t.page)
		}
	}
	s.pending = nil
	s.mu.Unlock()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.signal:
		}

		for _, ev := range s.drain() {
			next := state.Reduce(current, ev)
			if !state.Changed(current, next) {
				s.log.Debugf("%v changed nothing", ev)
				continue
			}
			current = next
			s.publish(current)
		}
	}
}

// loadInitial fetches meta and the cached or first-page items concurrently.
func (s *Session) loadInitial() (state.InitialLoaded, error) {
	var (
		meta  storage.Meta
		pages storage.Pages
	)

	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error {
		var err error
		meta, err = s.source.Meta(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		pages, err = s.source.Items(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return state.InitialLoaded{}, err
	}

	return state.InitialLoaded{Meta: meta, Items: pages.Items, Pages: pages.Last}, nil
}

// loadPageLocked starts a fetch of page n. s.mu must be held and the
// session open.
func (s *Session) loadPageLocked(n int) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		items, err := s.source.Page(s.ctx, n)
		if err != nil {
			s.log.Debugf("page %d abandoned: %v", n, err)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.closed {
			s.enqueueLocked(state.PageLoaded{Page: n, Items: items})
		}
	}()
}

func (s *Session) enqueueLocked(ev state.Event) {
	s.inbox = append(s.inbox, ev)
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Session) drain() []state.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.inbox
	s.inbox = nil
	return events
}

// publish replaces any unread snapshot with st. Only the delivery
// goroutine calls it.
func (s *Session) publish(st *state.State) {
	s.mu.Lock()
	s.latest = st
	s.mu.Unlock()

	select {
	case <-s.states:
	default:
	}
	s.states <- st
}
