package paginator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "osintgram/pkg/errors"
	"osintgram/pkg/record"
)

// pagesFetcher serves pages in order, using "p<i>" as the cursor of page i.
type pagesFetcher struct {
	pages   [][]record.Record
	failAt  int
	failErr error
	cursors []string
}

func (f *pagesFetcher) fetch(_ context.Context, cursor string) (Page, error) {
	f.cursors = append(f.cursors, cursor)
	i := len(f.cursors) - 1
	if f.failErr != nil && i == f.failAt {
		return Page{}, f.failErr
	}
	next := ""
	if i+1 < len(f.pages) {
		next = fmt.Sprintf("p%d", i+1)
	}
	return Page{Items: f.pages[i], NextCursor: next}, nil
}

func items(ids ...int) []record.Record {
	out := make([]record.Record, len(ids))
	for i, id := range ids {
		out[i] = record.Record{"pk": id}
	}
	return out
}

func ids(recs []record.Record) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r["pk"].(int)
	}
	return out
}

func TestFetchAllConcatenatesPagesInOrder(t *testing.T) {
	f := &pagesFetcher{pages: [][]record.Record{items(1, 2), items(3), items(), items(4, 5)}}

	var counts []int
	res, err := FetchAll(context.Background(), f.fetch, Options{Observer: func(n int) { counts = append(counts, n) }})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(res.Items))
	assert.Equal(t, 4, res.Pages)
	assert.False(t, res.Truncated)
	assert.Equal(t, []string{"", "p1", "p2", "p3"}, f.cursors, "each cursor is used exactly once")
	assert.Equal(t, []int{2, 3, 3, 5}, counts)
}

func TestFetchAllThrottleReturnsPartial(t *testing.T) {
	throttle := errs.New(errs.ErrorTypeRateLimit, 429, "please wait")
	f := &pagesFetcher{
		pages:   [][]record.Record{items(1, 2), items(3), items(4)},
		failAt:  2,
		failErr: fmt.Errorf("followers page: %w", throttle),
	}

	res, err := FetchAll(context.Background(), f.fetch, Options{})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, ids(res.Items))
	assert.True(t, res.Truncated)
	assert.True(t, errs.IsThrottled(res.Err))
}

func TestFetchAllThrottleOnFirstPage(t *testing.T) {
	f := &pagesFetcher{pages: [][]record.Record{items(1)}, failAt: 0, failErr: errs.New(errs.ErrorTypeRateLimit, 429, "slow down")}

	res, err := FetchAll(context.Background(), f.fetch, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.True(t, res.Truncated)
}

func TestFetchAllPropagatesOtherErrors(t *testing.T) {
	boom := errs.New(errs.ErrorTypeServerError, 500, "boom")
	f := &pagesFetcher{pages: [][]record.Record{items(1), items(2)}, failAt: 1, failErr: boom}

	res, err := FetchAll(context.Background(), f.fetch, Options{})
	assert.True(t, errors.Is(err, boom))
	assert.Empty(t, res.Items)
}

func TestFetchAllMaxItems(t *testing.T) {
	f := &pagesFetcher{pages: [][]record.Record{items(1, 2, 3), items(4, 5, 6), items(7)}}

	res, err := FetchAll(context.Background(), f.fetch, Options{MaxItems: 4})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, ids(res.Items))
	assert.Len(t, f.cursors, 2, "paging stops once the cap is reached")
}

func TestFetchAllStopsOnRepeatedCursor(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, cursor string) (Page, error) {
		calls++
		return Page{Items: items(calls), NextCursor: "same"}, nil
	}

	res, err := FetchAll(context.Background(), fetch, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, res.Items, 2)
}

func TestFetchAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FetchAll(ctx, func(context.Context, string) (Page, error) {
		t.Fatal("fetch must not run on a cancelled context")
		return Page{}, nil
	}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
