package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/ivanGusef/guardfeed/internal/debuglog"
)

const metaKey = "meta"

var (
	pageKeyPattern = regexp.MustCompile(`^[0-9]+$`)
	cacheLog       = debuglog.For("cache")
)

// PageCache stores feed metadata and per-page item lists on a Backend.
// All operations on one instance are serialized.
//
// Unreadable or corrupt records are logged and treated as absent; they are
// never surfaced to callers.
type PageCache struct {
	mu      sync.Mutex
	backend Backend
}

func NewPageCache(backend Backend) *PageCache {
	return &PageCache{backend: backend}
}

func (c *PageCache) PutMeta(meta Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding meta: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.backend.Write(metaKey, data); err != nil {
		cacheLog.Warnf("could not write meta: %v", err)
		return err
	}
	return nil
}

func (c *PageCache) GetMeta() (Meta, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var meta Meta
	if !c.readRecord(metaKey, &meta) {
		return Meta{}, false
	}
	return meta, true
}

func (c *PageCache) PutPage(page int, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding page %d: %w", page, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.backend.Write(strconv.Itoa(page), data); err != nil {
		cacheLog.Warnf("could not write page %d: %v", page, err)
		return err
	}
	return nil
}

// GetAllPages concatenates every stored page ordered by page number.
// Pages that cannot be decoded are skipped. It reports false when no page
// could be read.
func (c *PageCache) GetAllPages() (Pages, bool) {
	return c.readPages(false)
}

// LeadingPages is GetAllPages cut at the first missing or unreadable page,
// so Last is the number of pages a reader can continue from. It reports
// false when page 1 is not readable.
func (c *PageCache) LeadingPages() (Pages, bool) {
	return c.readPages(true)
}

func (c *PageCache) readPages(leading bool) (Pages, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.backend.List(pageKeyPattern)
	if err != nil {
		cacheLog.Warnf("could not list pages: %v", err)
		return Pages{}, false
	}

	numbers := make([]int, 0, len(keys))
	for _, key := range keys {
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	pages := Pages{Items: []Item{}}
	for _, n := range numbers {
		if leading && n != pages.Last+1 {
			break
		}
		var items []Item
		if !c.readRecord(strconv.Itoa(n), &items) {
			if leading {
				break
			}
			continue
		}
		pages.Items = append(pages.Items, items...)
		pages.Last = n
	}
	if pages.Last == 0 {
		return Pages{}, false
	}
	return pages, true
}

// Clear removes the meta record and every page. It keeps going past
// individual failures and returns them joined.
func (c *PageCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.backend.List(nil)
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}

	var errs []error
	for _, key := range keys {
		if err := c.backend.Delete(key); err != nil {
			cacheLog.Warnf("could not delete %s: %v", key, err)
			errs = append(errs, err)
		}
	}
	if sw, ok := c.backend.(Sweeper); ok {
		if err := sw.Sweep(); err != nil {
			cacheLog.Warnf("could not remove partial writes: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// readRecord decodes key into v, logging anything other than a plain miss.
func (c *PageCache) readRecord(key string, v any) bool {
	data, err := c.backend.Read(key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		cacheLog.Warnf("could not read %s: %v", key, err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		cacheLog.Warnf("corrupt record %s: %v", key, err)
		return false
	}
	return true
}
