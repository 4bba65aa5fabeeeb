// Package listing implements the incrementally loaded job list. Pages are
// requested one at a time; the key of page N depends on page N-1, so pages
// always arrive in order and a short page ends the sequence.
package listing

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/job-dashboard/internal/backend"
	"github.com/jonathan/job-dashboard/internal/logger"
)

// DefaultPageSize is the fixed number of jobs per page.
const DefaultPageSize = 20

var (
	// ErrInFlight is returned by LoadMore while another page fetch is running.
	ErrInFlight = errors.New("page fetch already in flight")
	// ErrNoMorePages is returned by LoadMore once the last page is loaded.
	ErrNoMorePages = errors.New("no more pages")
	// ErrSuperseded is returned when the query changed while a fetch was running.
	// The fetched result is discarded.
	ErrSuperseded = errors.New("result superseded by a newer query")
)

// FetchFunc fetches one page for a fully built query.
type FetchFunc func(ctx context.Context, query url.Values) (*backend.JobList, error)

// PageKey returns the cache key of page n (1-based), or "" when page n must
// not be requested. Page 1 is keyed by the filter query alone. Page n>1 is
// requested only when page n-1 was full and the backend reported more than
// n-1 pages.
func PageKey(query url.Values, pageSize, n int, previous *backend.JobList) string {
	if n < 1 {
		return ""
	}
	if n > 1 {
		if previous == nil || len(previous.Items) < pageSize || previous.TotalPages <= n-1 {
			return ""
		}
	}
	return pageQuery(query, pageSize, n).Encode()
}

func pageQuery(query url.Values, pageSize, n int) url.Values {
	q := url.Values{}
	for k, v := range query {
		q[k] = append([]string(nil), v...)
	}
	q.Set("page", strconv.Itoa(n))
	q.Set("page_size", strconv.Itoa(pageSize))
	return q
}

// PageError records a failed fetch attempt.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return "page " + strconv.Itoa(e.Page) + ": " + e.Err.Error()
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// Pager accumulates pages for one query. It is safe for concurrent use.
type Pager struct {
	fetch    FetchFunc
	pageSize int
	group    singleflight.Group
	log      *zap.SugaredLogger

	mu       sync.Mutex
	query    url.Values
	key      string
	pages    []*backend.JobList
	err      *PageError
	inFlight string
	refresh  int
	requests int
}

// NewPager creates a pager. pageSize <= 0 selects DefaultPageSize.
func NewPager(fetch FetchFunc, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{
		fetch:    fetch,
		pageSize: pageSize,
		query:    url.Values{},
		key:      url.Values{}.Encode(),
		log:      logger.ComponentLogger("listing"),
	}
}

// SetQuery switches the pager to a new filter query. A different query
// discards every loaded page; the next LoadMore fetches page 1. It reports
// whether the query changed.
func (p *Pager) SetQuery(query url.Values) bool {
	key := query.Encode()

	p.mu.Lock()
	defer p.mu.Unlock()
	if key == p.key {
		return false
	}
	p.query = query
	p.key = key
	p.pages = nil
	p.err = nil
	p.inFlight = ""
	return true
}

// LoadMore fetches the next page. It returns ErrInFlight while another fetch
// is running and ErrNoMorePages once pagination has ended. A failed fetch
// keeps every earlier page and is reported by Err until the next success.
func (p *Pager) LoadMore(ctx context.Context) (*backend.JobList, error) {
	p.mu.Lock()
	if p.inFlight != "" {
		p.mu.Unlock()
		return nil, ErrInFlight
	}
	n := len(p.pages) + 1
	var previous *backend.JobList
	if len(p.pages) > 0 {
		previous = p.pages[len(p.pages)-1]
	}
	pageKey := PageKey(p.query, p.pageSize, n, previous)
	if pageKey == "" {
		p.mu.Unlock()
		return nil, ErrNoMorePages
	}
	filterKey := p.key
	query := pageQuery(p.query, p.pageSize, n)
	p.inFlight = pageKey
	p.mu.Unlock()

	list, err := p.fetchPage(ctx, pageKey, query)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight == pageKey {
		p.inFlight = ""
	}
	if filterKey != p.key || len(p.pages) != n-1 {
		p.log.Debugw("discarding stale page", logger.FieldPage, n)
		return nil, ErrSuperseded
	}
	if err != nil {
		p.err = &PageError{Page: n, Err: err}
		return nil, p.err
	}
	p.pages = append(p.pages, list)
	p.err = nil
	return list, nil
}

// Refresh revalidates every loaded page under the current query without
// resetting the accumulated list. The refresh counter increases on every
// call. If any page fails, the previously loaded pages are kept.
func (p *Pager) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.refresh++
	filterKey := p.key
	loaded := len(p.pages)
	query := p.query
	p.mu.Unlock()

	if loaded == 0 {
		return nil
	}

	results := make([]*backend.JobList, loaded)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < loaded; i++ {
		n := i + 1
		q := pageQuery(query, p.pageSize, n)
		g.Go(func() error {
			list, err := p.fetchPage(gctx, q.Encode(), q)
			if err != nil {
				return &PageError{Page: n, Err: err}
			}
			results[n-1] = list
			return nil
		})
	}
	err := g.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if filterKey != p.key {
		return ErrSuperseded
	}
	if err != nil {
		var pe *PageError
		if errors.As(err, &pe) {
			p.err = pe
		} else {
			p.err = &PageError{Page: 1, Err: err}
		}
		return p.err
	}

	// A revalidated page that came back short ends the list there. Pages
	// appended by LoadMore while the refresh ran are kept after the last
	// revalidated page when it still allows them.
	pages := make([]*backend.JobList, 0, len(p.pages))
	ended := false
	for i, list := range results {
		pages = append(pages, list)
		if PageKey(query, p.pageSize, i+2, list) == "" {
			ended = true
			break
		}
	}
	if !ended && len(p.pages) > loaded {
		pages = append(pages, p.pages[loaded:]...)
	}
	p.pages = pages
	p.err = nil
	return nil
}

func (p *Pager) fetchPage(ctx context.Context, pageKey string, query url.Values) (*backend.JobList, error) {
	v, err, shared := p.group.Do(pageKey, func() (interface{}, error) {
		p.mu.Lock()
		p.requests++
		p.mu.Unlock()
		return p.fetch(ctx, query)
	})
	if shared {
		p.log.Debugw("shared in-flight page fetch", logger.FieldQuery, pageKey)
	}
	if err != nil {
		return nil, err
	}
	list, ok := v.(*backend.JobList)
	if !ok || list == nil {
		return nil, errors.New("fetch returned no page")
	}
	return list, nil
}

// Items returns every loaded job in page order.
func (p *Pager) Items() []backend.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	var items []backend.Job
	for _, page := range p.pages {
		items = append(items, page.Items...)
	}
	return items
}

// HasMore reports whether another page can be requested.
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pages) == 0 {
		return true
	}
	return PageKey(p.query, p.pageSize, len(p.pages)+1, p.pages[len(p.pages)-1]) != ""
}

// Loading reports whether a LoadMore fetch is running.
func (p *Pager) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight != ""
}

// Err returns the error of the last failed fetch attempt, if any.
func (p *Pager) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		return nil
	}
	return p.err
}

// Pages returns how many pages are loaded.
func (p *Pager) Pages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pages)
}

// Total returns the backend's total count from the latest loaded page.
func (p *Pager) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pages) == 0 {
		return 0
	}
	return p.pages[len(p.pages)-1].Total
}

// Key returns the active filter query key.
func (p *Pager) Key() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.key
}

// RefreshCount returns how many times Refresh was called.
func (p *Pager) RefreshCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refresh
}

// Requests returns how many backend fetches the pager issued.
func (p *Pager) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}
