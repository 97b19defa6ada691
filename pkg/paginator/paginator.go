// Package paginator drains cursor-based remote listings.
package paginator

import (
	"context"

	errs "osintgram/pkg/errors"
	"osintgram/pkg/record"
)

// Page is one response of a listing endpoint. An empty NextCursor means the
// listing is exhausted.
type Page struct {
	Items      []record.Record
	NextCursor string
}

// FetchFunc fetches the page starting at cursor ("" for the first page)
type FetchFunc func(ctx context.Context, cursor string) (Page, error)

// Options tunes a FetchAll run
type Options struct {
	// MaxItems stops paging once this many items were collected (0 = no cap)
	MaxItems int
	// Observer receives the running item count after each page
	Observer func(count int)
}

// Result is what FetchAll collected
type Result struct {
	Items     []record.Record
	Pages     int
	Truncated bool
	// Err is the throttle error that cut the run short, if any
	Err error
}

// FetchAll follows cursors until the listing is exhausted and returns every
// item in page order.
//
// A throttle error stops the run and returns the items gathered so far with
// Truncated set. Any other error is returned as is and the partial items are
// dropped.
func FetchAll(ctx context.Context, fetch FetchFunc, opts Options) (Result, error) {
	var res Result
	cursor := ""
	seen := map[string]bool{}

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			if errs.IsThrottled(err) {
				res.Truncated = true
				res.Err = err
				return res, nil
			}
			return Result{}, err
		}
		res.Pages++
		res.Items = append(res.Items, page.Items...)

		if opts.MaxItems > 0 && len(res.Items) >= opts.MaxItems {
			res.Items = res.Items[:opts.MaxItems]
			notify(opts.Observer, len(res.Items))
			return res, nil
		}
		notify(opts.Observer, len(res.Items))

		if page.NextCursor == "" || seen[page.NextCursor] {
			return res, nil
		}
		seen[page.NextCursor] = true
		cursor = page.NextCursor
	}
}

func notify(observer func(int), count int) {
	if observer != nil {
		observer(count)
	}
}
