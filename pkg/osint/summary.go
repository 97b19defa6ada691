package osint

import (
	"context"
	"fmt"

	"osintgram/pkg/aggregator"
	errs "osintgram/pkg/errors"
	"osintgram/pkg/metadata"
	"osintgram/pkg/record"
	"osintgram/pkg/report"
)

func init() {
	register(Operation{Name: "info", Description: "Profile summary of the target", AllowPrivate: true, run: (*Runner).info})
	register(Operation{Name: "likes", Description: "Total likes on the target's posts", run: (*Runner).likes})
	register(Operation{Name: "comments", Description: "Total comments on the target's posts", run: (*Runner).commentTotal})
	register(Operation{Name: "mediatype", Description: "Count of the target's photos, videos and carousels", run: (*Runner).mediaTypes})
}

func (r *Runner) info(ctx context.Context, _ Options) error {
	target := r.target()

	info, err := r.client.UserInfo(ctx, target.ID)
	if err != nil {
		// the web profile alone is enough for a summary
		if errs.IsThrottled(err) {
			r.throttled("info", 0)
		} else if !errs.IsNotFound(err) {
			return err
		}
		info = nil
	}

	profile := metadata.ProfileFrom(target.Profile, info)
	fields := profile.Fields()
	entries := make([]aggregator.Entry, len(fields))
	for i, f := range fields {
		entries[i] = aggregator.Entry{Key: f[0], Count: 1, Record: record.Record{"field": f[0], "value": f[1]}}
	}

	return r.reporter.Table(report.Table{
		Operation: "info",
		Columns:   []report.Column{report.Field("Field", "field"), report.Field("Value", "value")},
		Entries:   entries,
		JSONKey:   "info",
		Document:  profile,
	}, r.export())
}

func (r *Runner) likes(ctx context.Context, _ Options) error {
	res, err := r.feed(ctx, "likes")
	if err != nil {
		return err
	}

	var total int64
	for _, rec := range res.Items {
		total += metadata.PostFrom(rec).Likes
	}
	posts := len(res.Items)

	return r.reporter.Summary(report.Summary{
		Operation: "likes",
		Lines: []string{fmt.Sprintf("%s got a total of %s likes in %s posts",
			r.target().Username, report.FormatCount(total), report.FormatCount(int64(posts)))},
		JSON:      map[string]any{"like_counter": total, "posts": posts},
		Empty:     posts == 0,
		Truncated: res.Truncated,
	}, r.export())
}

func (r *Runner) commentTotal(ctx context.Context, _ Options) error {
	res, err := r.feed(ctx, "comments")
	if err != nil {
		return err
	}

	var total int64
	for _, rec := range res.Items {
		total += metadata.PostFrom(rec).Comments
	}
	posts := len(res.Items)

	return r.reporter.Summary(report.Summary{
		Operation: "comments",
		Lines: []string{fmt.Sprintf("%s got a total of %s comments in %s posts",
			r.target().Username, report.FormatCount(total), report.FormatCount(int64(posts)))},
		JSON:      map[string]any{"comment_counter": total, "posts": posts},
		Empty:     posts == 0,
		Truncated: res.Truncated,
	}, r.export())
}

func (r *Runner) mediaTypes(ctx context.Context, _ Options) error {
	res, err := r.feed(ctx, "mediatype")
	if err != nil {
		return err
	}

	var counts metadata.MediaCounts
	for _, rec := range res.Items {
		counts.Add(metadata.PostFrom(rec).MediaType)
	}

	return r.reporter.Summary(report.Summary{
		Operation: "mediatype",
		Lines: []string{fmt.Sprintf("%s posted %s photos, %s videos and %s carousels",
			r.target().Username,
			report.FormatCount(int64(counts.Photos)),
			report.FormatCount(int64(counts.Videos)),
			report.FormatCount(int64(counts.Carousels)))},
		JSON:      map[string]any{"photos": counts.Photos, "videos": counts.Videos, "carousels": counts.Carousels},
		Empty:     counts.Total() == 0,
		Truncated: res.Truncated,
	}, r.export())
}
