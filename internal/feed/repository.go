package feed

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ivanGusef/guardfeed/internal/backoff"
	"github.com/ivanGusef/guardfeed/internal/debuglog"
	"github.com/ivanGusef/guardfeed/internal/storage"
)

var repoLog = debuglog.For("repository")

// Repository serves the feed from the page cache when it can and from the
// transport otherwise, writing every fetched page through to the cache.
// Its reads never fail: transport errors are retried under the backoff
// policy until they succeed or the context ends.
type Repository struct {
	transport Transport
	cache     *storage.PageCache
	pageSize  int
	policy    backoff.Policy
	retryOpts []backoff.Option
	group     singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context a shared page fetch runs under. It ends when the
// last caller waiting on the fetch gives up, not when the first one does.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

type RepositoryOption func(*Repository)

func WithPolicy(policy backoff.Policy) RepositoryOption {
	return func(r *Repository) {
		r.policy = policy
	}
}

// WithRetryOptions passes extra options to every retry loop.
func WithRetryOptions(opts ...backoff.Option) RepositoryOption {
	return func(r *Repository) {
		r.retryOpts = append(r.retryOpts, opts...)
	}
}

func NewRepository(transport Transport, cache *storage.PageCache, pageSize int, opts ...RepositoryOption) *Repository {
	r := &Repository{
		transport: transport,
		cache:     cache,
		pageSize:  pageSize,
		policy:    backoff.DefaultPolicy(),
		flights:   make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Meta returns the cached metadata, fetching page 1 when there is none.
func (r *Repository) Meta(ctx context.Context) (storage.Meta, error) {
	return retry(ctx, r, "meta", func(ctx context.Context) (storage.Meta, error) {
		if meta, ok := r.cache.GetMeta(); ok {
			return meta, nil
		}
		page, err := r.loadAndCache(ctx, 1)
		if err != nil {
			return storage.Meta{}, err
		}
		return page.Meta(), nil
	})
}

// Items returns the cached pages from page 1 up to the first gap, fetching
// page 1 when it is not cached. Pages past a gap are left for Page to
// refetch so none is skipped or shown twice.
func (r *Repository) Items(ctx context.Context) (storage.Pages, error) {
	return retry(ctx, r, "items", func(ctx context.Context) (storage.Pages, error) {
		if pages, ok := r.cache.LeadingPages(); ok {
			return pages, nil
		}
		page, err := r.loadAndCache(ctx, 1)
		if err != nil {
			return storage.Pages{}, err
		}
		return storage.Pages{Items: page.Items, Last: 1}, nil
	})
}

// Page always goes to the transport.
func (r *Repository) Page(ctx context.Context, page int) ([]storage.Item, error) {
	return retry(ctx, r, "page "+strconv.Itoa(page), func(ctx context.Context) ([]storage.Item, error) {
		loaded, err := r.loadAndCache(ctx, page)
		if err != nil {
			return nil, err
		}
		return loaded.Items, nil
	})
}

func (r *Repository) ClearCaches(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.cache.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	repoLog.Infof("cache cleared")
	return nil
}

// loadAndCache fetches one page and writes meta then the page to the cache.
// Concurrent loads of the same page share a single fetch, which keeps
// running while any caller still waits for it. Cache write failures are
// logged and do not fail the load.
func (r *Repository) loadAndCache(ctx context.Context, page int) (*Page, error) {
	key := strconv.Itoa(page)
	f := r.join(ctx, key)
	defer r.leave(key, f)

	ch := r.group.DoChan(key, func() (any, error) {
		return r.fetchAndCache(f.ctx, page)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			repoLog.With("page", page).Debugf("fetch shared")
		}
		return res.Val.(*Page), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Repository) fetchAndCache(ctx context.Context, page int) (*Page, error) {
	loaded, err := r.transport.FetchPage(ctx, page, r.pageSize)
	if err != nil {
		return nil, err
	}
	if loaded.Items == nil {
		loaded.Items = []storage.Item{}
	}

	if err := r.cache.PutMeta(loaded.Meta()); err != nil {
		repoLog.With("page", page).Warnf("caching meta: %v", err)
	}
	if err := r.cache.PutPage(page, loaded.Items); err != nil {
		repoLog.With("page", page).Warnf("caching items: %v", err)
	}
	return loaded, nil
}

// join registers a caller for key. The fetch context keeps ctx's values
// but not its cancellation.
func (r *Repository) join(ctx context.Context, key string) *flight {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		r.flights[key] = f
	}
	f.waiters++
	return f
}

// leave cancels the fetch once nobody waits for it and forgets the call so
// the next caller starts a fresh one.
func (r *Repository) leave(key string, f *flight) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if r.flights[key] == f {
		delete(r.flights, key)
	}
	r.group.Forget(key)
}

func retry[T any](ctx context.Context, r *Repository, what string, op func(context.Context) (T, error)) (T, error) {
	notify := backoff.WithNotify(func(err error, attempt int, delay time.Duration) {
		repoLog.With("load", what).With("attempt", attempt).With("delay", delay).
			Warnf("load failed, retrying: %v", err)
	})
	opts := append([]backoff.Option{notify}, r.retryOpts...)
	return backoff.Forever(ctx, r.policy, op, opts...)
}
