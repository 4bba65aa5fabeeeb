package listing

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-dashboard/internal/backend"
)

// fakeBackend serves total jobs split into pages and records every request.
type fakeBackend struct {
	mu       sync.Mutex
	total    int
	failPage int
	calls    []url.Values
	prefix   string
}

func (f *fakeBackend) fetch(_ context.Context, q url.Values) (*backend.JobList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)

	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	if page == f.failPage {
		return nil, errors.New("backend unreachable")
	}
	totalPages := (f.total + size - 1) / size
	list := &backend.JobList{Total: f.total, Page: page, PageSize: size, TotalPages: totalPages}
	for i := (page - 1) * size; i < page*size && i < f.total; i++ {
		list.Items = append(list.Items, backend.Job{ID: fmt.Sprintf("%s%d", f.prefix, i)})
	}
	return list, nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func drain(t *testing.T, p *Pager) {
	t.Helper()
	for i := 0; i < 100; i++ {
		_, err := p.LoadMore(context.Background())
		if errors.Is(err, ErrNoMorePages) {
			return
		}
		require.NoError(t, err)
	}
	t.Fatal("pager did not terminate")
}

func TestPageKey(t *testing.T) {
	q := url.Values{"status": {"saved"}}
	full := &backend.JobList{Items: make([]backend.Job, 20), TotalPages: 3}
	short := &backend.JobList{Items: make([]backend.Job, 5), TotalPages: 3}
	last := &backend.JobList{Items: make([]backend.Job, 20), TotalPages: 2}

	assert.Equal(t, "page=1&page_size=20&status=saved", PageKey(q, 20, 1, nil))
	assert.Equal(t, "page=2&page_size=20&status=saved", PageKey(q, 20, 2, full))
	assert.Empty(t, PageKey(q, 20, 2, nil), "page 2 needs page 1")
	assert.Empty(t, PageKey(q, 20, 2, short), "a short page ends pagination")
	assert.Empty(t, PageKey(q, 20, 3, last), "total_pages bounds pagination")
	assert.Empty(t, PageKey(q, 20, 2, &backend.JobList{TotalPages: 5}), "an empty page ends pagination")
	assert.Empty(t, PageKey(q, 20, 0, nil))
	assert.Equal(t, "saved", q.Get("status"))
	assert.False(t, q.Has("page"), "the filter query is not mutated")
}

func TestPager_ExactlyTotalPagesRequests(t *testing.T) {
	fb := &fakeBackend{total: 60}
	p := NewPager(fb.fetch, 20)
	p.SetQuery(url.Values{"sort_by": {"updated_at"}})

	drain(t, p)
	assert.Equal(t, 3, fb.callCount())
	assert.Equal(t, 3, p.Pages())
	assert.Len(t, p.Items(), 60)
	assert.False(t, p.HasMore())

	_, err := p.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrNoMorePages)
	assert.Equal(t, 3, fb.callCount(), "no request past the last page")
	assert.Equal(t, 3, p.Requests())
}

func TestPager_ShortPageTerminates(t *testing.T) {
	fb := &fakeBackend{total: 45}
	p := NewPager(fb.fetch, 20)

	drain(t, p)
	assert.Equal(t, 3, fb.callCount())
	assert.Len(t, p.Items(), 45)
	assert.Equal(t, 45, p.Total())
}

func TestPager_EmptyResult(t *testing.T) {
	fb := &fakeBackend{total: 0}
	p := NewPager(fb.fetch, 20)

	assert.True(t, p.HasMore())
	drain(t, p)
	assert.Equal(t, 1, fb.callCount())
	assert.Empty(t, p.Items())
	assert.False(t, p.HasMore())
}

func TestPager_PageParams(t *testing.T) {
	fb := &fakeBackend{total: 30}
	p := NewPager(fb.fetch, 0)
	p.SetQuery(url.Values{"min_priority": {"61"}})

	_, err := p.LoadMore(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, fb.callCount())
	assert.Equal(t, "1", fb.calls[0].Get("page"))
	assert.Equal(t, strconv.Itoa(DefaultPageSize), fb.calls[0].Get("page_size"))
	assert.Equal(t, "61", fb.calls[0].Get("min_priority"))
}

func TestPager_QueryChangeResetsToFirstPage(t *testing.T) {
	fb := &fakeBackend{total: 100}
	p := NewPager(fb.fetch, 20)
	p.SetQuery(url.Values{"search": {"go"}})

	for i := 0; i < 3; i++ {
		_, err := p.LoadMore(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, 3, p.Pages())

	assert.False(t, p.SetQuery(url.Values{"search": {"go"}}), "same query keeps pages")
	assert.Equal(t, 3, p.Pages())

	fb.prefix = "b"
	assert.True(t, p.SetQuery(url.Values{"search": {"rust"}}))
	assert.Equal(t, 0, p.Pages())

	_, err := p.LoadMore(context.Background())
	require.NoError(t, err)
	items := p.Items()
	require.Len(t, items, 20)
	assert.Equal(t, "b0", items[0].ID)
	assert.Equal(t, "1", fb.calls[len(fb.calls)-1].Get("page"))
}

func TestPager_FailureKeepsEarlierPages(t *testing.T) {
	fb := &fakeBackend{total: 100, failPage: 3}
	p := NewPager(fb.fetch, 20)

	for i := 0; i < 2; i++ {
		_, err := p.LoadMore(context.Background())
		require.NoError(t, err)
	}
	_, err := p.LoadMore(context.Background())
	require.Error(t, err)

	var pe *PageError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Page)
	assert.Equal(t, 2, p.Pages())
	assert.Len(t, p.Items(), 40)
	assert.Error(t, p.Err())
	assert.True(t, p.HasMore(), "the failed page can be retried")

	fb.failPage = 0
	_, err = p.LoadMore(context.Background())
	require.NoError(t, err)
	assert.NoError(t, p.Err())
	assert.Equal(t, 3, p.Pages())
}

func TestPager_InFlightSuppressesLoadMore(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	fetch := func(_ context.Context, q url.Values) (*backend.JobList, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return &backend.JobList{Items: make([]backend.Job, 20), TotalPages: 2}, nil
	}
	p := NewPager(fetch, 20)

	done := make(chan error, 1)
	go func() {
		_, err := p.LoadMore(context.Background())
		done <- err
	}()
	<-started
	assert.True(t, p.Loading())

	_, err := p.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, p.Loading())
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestPager_StaleResultDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(_ context.Context, q url.Values) (*backend.JobList, error) {
		if q.Get("search") == "old" {
			close(started)
			<-release
		}
		return &backend.JobList{Items: []backend.Job{{ID: q.Get("search")}}, TotalPages: 1}, nil
	}
	p := NewPager(fetch, 20)
	p.SetQuery(url.Values{"search": {"old"}})

	done := make(chan error, 1)
	go func() {
		_, err := p.LoadMore(context.Background())
		done <- err
	}()
	<-started

	p.SetQuery(url.Values{"search": {"new"}})
	_, err := p.LoadMore(context.Background())
	require.NoError(t, err)

	close(release)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	items := p.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].ID)
}

func TestPager_RefreshRevalidatesLoadedPages(t *testing.T) {
	fb := &fakeBackend{total: 100}
	p := NewPager(fb.fetch, 20)
	for i := 0; i < 2; i++ {
		_, err := p.LoadMore(context.Background())
		require.NoError(t, err)
	}
	before := fb.callCount()

	fb.prefix = "fresh"
	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, 1, p.RefreshCount())
	assert.Equal(t, before+2, fb.callCount(), "each loaded page is refetched once")
	assert.Equal(t, 2, p.Pages(), "scroll position is kept")
	assert.Equal(t, "fresh0", p.Items()[0].ID)
	assert.Equal(t, "fresh39", p.Items()[39].ID)
}

func TestPager_LoadMoreDuringRefreshIsKept(t *testing.T) {
	fb := &fakeBackend{total: 100}
	var block sync.Once
	started := make(chan struct{})
	release := make(chan struct{})
	var blocking bool
	var mu sync.Mutex
	fetch := func(ctx context.Context, q url.Values) (*backend.JobList, error) {
		mu.Lock()
		wait := blocking && q.Get("page") == "1"
		mu.Unlock()
		if wait {
			block.Do(func() { close(started) })
			<-release
		}
		return fb.fetch(ctx, q)
	}
	p := NewPager(fetch, 20)
	_, err := p.LoadMore(context.Background())
	require.NoError(t, err)

	mu.Lock()
	blocking = true
	mu.Unlock()
	done := make(chan error, 1)
	go func() { done <- p.Refresh(context.Background()) }()
	<-started

	_, err = p.LoadMore(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, p.Pages())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 2, p.Pages(), "page loaded during the refresh is kept")
	assert.Len(t, p.Items(), 40)

	_, err = p.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3", fb.calls[len(fb.calls)-1].Get("page"), "next load continues after the kept page")
	assert.Len(t, p.Items(), 60)
}

func TestPager_RefreshShrinksWhenDataShrinks(t *testing.T) {
	fb := &fakeBackend{total: 60}
	p := NewPager(fb.fetch, 20)
	drain(t, p)
	require.Equal(t, 3, p.Pages())

	fb.total = 30
	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, 2, p.Pages())
	assert.Len(t, p.Items(), 30)
	assert.False(t, p.HasMore())
}

func TestPager_RefreshFailureKeepsPages(t *testing.T) {
	fb := &fakeBackend{total: 100}
	p := NewPager(fb.fetch, 20)
	for i := 0; i < 3; i++ {
		_, err := p.LoadMore(context.Background())
		require.NoError(t, err)
	}

	fb.failPage = 2
	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, p.Pages())
	assert.Len(t, p.Items(), 60)
	assert.Error(t, p.Err())
	assert.Equal(t, 1, p.RefreshCount())
}

func TestPager_RefreshWithoutPages(t *testing.T) {
	fb := &fakeBackend{total: 10}
	p := NewPager(fb.fetch, 20)
	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, 1, p.RefreshCount())
	assert.Zero(t, fb.callCount())
}
