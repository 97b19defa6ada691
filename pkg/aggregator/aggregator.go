// Package aggregator folds a flat record listing into the result set of an
// operation: filter, optional per-record lookup, grouping with counters,
// stable sort and limit.
package aggregator

import (
	"context"
	"errors"
	"sort"
	"strings"

	errs "osintgram/pkg/errors"
	"osintgram/pkg/record"
)

// Entry is one row of a result set. Count is 1 for ungrouped rows and the
// number of sightings for grouped ones. Record holds the first sighting.
type Entry struct {
	Key    string
	Count  int
	Record record.Record
}

// KeyFunc extracts the identity key of a record; false skips the record
type KeyFunc func(record.Record) (string, bool)

// SecondaryFetch performs the per-record remote lookup. Returning an error
// wrapping record.ErrMissingField skips the record.
type SecondaryFetch func(ctx context.Context, rec record.Record) ([]record.Record, error)

// LessFunc orders two entries ascending
type LessFunc func(a, b Entry) bool

// Options enumerates the aggregation steps; zero values disable a step
type Options struct {
	Filter         func(record.Record) bool
	SecondaryFetch SecondaryFetch
	GroupBy        KeyFunc
	SortBy         LessFunc
	Descending     bool
	// Limit keeps the first N entries after sorting (0 = all)
	Limit int
	// Observer receives the running entry count after each input record
	Observer func(count int)
}

// Output is the result of one Aggregate run
type Output struct {
	Entries   []Entry
	Skipped   int
	Truncated bool
	// Err is the throttle error that stopped the secondary lookups, if any
	Err error
}

// Records returns the record of every entry in order
func (o Output) Records() []record.Record {
	recs := make([]record.Record, len(o.Entries))
	for i, e := range o.Entries {
		recs[i] = e.Record
	}
	return recs
}

// Aggregate runs the configured steps over records. Secondary lookups are
// issued one at a time in input order.
func Aggregate(ctx context.Context, records []record.Record, opts Options) (Output, error) {
	var out Output
	index := make(map[string]int)

	// Without sort or grouping the first Limit entries are final, so lookups
	// can stop as soon as they are collected.
	earlyExit := opts.Limit > 0 && opts.SortBy == nil && opts.GroupBy == nil

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return Output{}, err
		}
		if opts.Filter != nil && !opts.Filter(rec) {
			continue
		}

		derived := []record.Record{rec}
		if opts.SecondaryFetch != nil {
			got, err := opts.SecondaryFetch(ctx, rec)
			switch {
			case err == nil:
				derived = got
			case errors.Is(err, record.ErrMissingField):
				out.Skipped++
				continue
			case errs.IsThrottled(err):
				out.Truncated = true
				out.Err = err
				return finish(out, opts), nil
			default:
				return Output{}, err
			}
		}

		for _, d := range derived {
			if opts.GroupBy == nil {
				out.Entries = append(out.Entries, Entry{Count: 1, Record: d})
				continue
			}
			key, ok := opts.GroupBy(d)
			if !ok {
				out.Skipped++
				continue
			}
			if i, seen := index[key]; seen {
				out.Entries[i].Count++
				continue
			}
			index[key] = len(out.Entries)
			out.Entries = append(out.Entries, Entry{Key: key, Count: 1, Record: d})
		}

		if opts.Observer != nil {
			opts.Observer(len(out.Entries))
		}
		if earlyExit && len(out.Entries) >= opts.Limit {
			break
		}
	}

	return finish(out, opts), nil
}

func finish(out Output, opts Options) Output {
	if opts.SortBy != nil {
		out.Entries = Sort(out.Entries, opts.SortBy, opts.Descending)
	}
	if opts.Limit > 0 && len(out.Entries) > opts.Limit {
		out.Entries = out.Entries[:opts.Limit]
	}
	return out
}

// Sort returns a stably sorted copy of entries
func Sort(entries []Entry, less LessFunc, descending bool) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		if descending {
			i, j = j, i
		}
		return less(sorted[i], sorted[j])
	})
	return sorted
}

// ByCount orders entries by their counter
func ByCount(a, b Entry) bool {
	return a.Count < b.Count
}

// ByInt orders entries by an integer field of their record; missing values sort first
func ByInt(path string) LessFunc {
	return func(a, b Entry) bool {
		x, _ := a.Record.Int(path)
		y, _ := b.Record.Int(path)
		return x < y
	}
}

// ByString orders entries by a string field, case-insensitively
func ByString(path string) LessFunc {
	return func(a, b Entry) bool {
		return strings.ToLower(a.Record.StringOr(path, "")) < strings.ToLower(b.Record.StringOr(path, ""))
	}
}

// FieldKey groups by the string value of a field
func FieldKey(path string) KeyFunc {
	return func(r record.Record) (string, bool) {
		return r.String(path)
	}
}

// HasField is a filter keeping records where path is present and non-null
func HasField(path string) func(record.Record) bool {
	return func(r record.Record) bool {
		return r.Has(path)
	}
}
