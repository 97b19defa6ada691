package osint

import (
	"context"
	"strconv"

	"osintgram/pkg/aggregator"
	"osintgram/pkg/metadata"
	"osintgram/pkg/record"
	"osintgram/pkg/report"
)

func init() {
	register(Operation{Name: "addrs", Description: "Addresses of the target's geotagged posts", run: (*Runner).addrs})
	register(Operation{Name: "captions", Description: "Captions of the target's posts", run: (*Runner).captions})
	register(Operation{Name: "commentdata", Description: "Every comment on the target's posts", run: (*Runner).commentData})
	register(Operation{Name: "hashtags", Description: "Hashtags used by the target", run: (*Runner).hashtags})
	register(Operation{Name: "photodes", Description: "Descriptions of the target's photos", run: (*Runner).photoDescriptions})
	register(Operation{Name: "tagged", Description: "Accounts tagged by the target", run: (*Runner).tagged})
	register(Operation{Name: "wcommented", Description: "Accounts that commented on the target's posts", run: (*Runner).whoCommented})
	register(Operation{Name: "wtagged", Description: "Accounts that tagged the target", run: (*Runner).whoTagged})
}

func (r *Runner) addrs(ctx context.Context, _ Options) error {
	res, err := r.feed(ctx, "addrs")
	if err != nil {
		return err
	}

	// newest post first, so each place keeps its latest sighting
	located, err := aggregator.Aggregate(ctx, res.Items, aggregator.Options{
		Filter:     func(rec record.Record) bool { return metadata.PostFrom(rec).HasLocation },
		SortBy:     aggregator.ByInt("taken_at"),
		Descending: true,
	})
	if err != nil {
		return err
	}
	places, err := aggregator.Aggregate(ctx, located.Records(), aggregator.Options{GroupBy: coordinateKey})
	if err != nil {
		return err
	}

	out, err := r.aggregate(ctx, "addrs", "addresses", places.Records(), aggregator.Options{
		SecondaryFetch: func(ctx context.Context, rec record.Record) ([]record.Record, error) {
			post := metadata.PostFrom(rec)
			addr, err := r.geocoder.Reverse(ctx, post.Lat, post.Lng)
			if err != nil {
				return nil, err
			}
			return []record.Record{{
				"post":     post.URL(),
				"address":  addr,
				"time":     post.Taken(),
				"taken_at": post.TakenAt.Unix(),
			}}, nil
		},
		GroupBy:    aggregator.FieldKey("address"),
		SortBy:     aggregator.ByInt("taken_at"),
		Descending: true,
	})
	if err != nil {
		return err
	}

	return r.reporter.Table(report.Table{
		Operation: "addrs",
		Columns: []report.Column{
			report.Field("Post", "post"),
			report.Field("Address", "address"),
			report.Field("Time", "time"),
		},
		Entries: out.Entries,
		JSONKey: "address",
		JSONValue: func(e aggregator.Entry) any {
			return e.Record.Pick("address", "time", "post")
		},
		Truncated: res.Truncated || out.Truncated,
	}, r.export())
}

// coordinateKey identifies a geotagged post's place as "lat, lng"
func coordinateKey(rec record.Record) (string, bool) {
	post := metadata.PostFrom(rec)
	if !post.HasLocation {
		return "", false
	}
	return strconv.FormatFloat(post.Lat, 'f', -1, 64) + ", " + strconv.FormatFloat(post.Lng, 'f', -1, 64), true
}

func (r *Runner) captions(ctx context.Context, _ Options) error {
	res, err := r.feed(ctx, "captions")
	if err != nil {
		return err
	}

	out, err := aggregator.Aggregate(ctx, res.Items, aggregator.Options{
		Filter: func(rec record.Record) bool {
			return metadata.PostFrom(rec).Caption != ""
		},
	})
	if err != nil {
		return err
	}

	return r.reporter.Table(report.Table{
		Operation: "captions",
		Columns:   []report.Column{report.Field("Caption", "caption.text")},
		Entries:   out.Entries,
		JSONKey:   "captions",
		JSONValue: func(e aggregator.Entry) any {
			return e.Record.StringOr("caption.text", "")
		},
		Truncated: res.Truncated,
	}, r.export())
}

func (r *Runner) commentData(ctx context.Context, _ Options) error {
	res, err := r.feed(ctx, "commentdata")
	if err != nil {
		return err
	}

	out, err := r.aggregate(ctx, "commentdata", "comments", res.Items, aggregator.Options{
		SecondaryFetch: func(ctx context.Context, rec record.Record) ([]record.Record, error) {
			id, err := postID(rec)
			if err != nil {
				return nil, err
			}
			comments, err := r.comments(ctx, id)
			if err != nil {
				return nil, err
			}
			rows := make([]record.Record, 0, len(comments))
			for _, c := range comments {
				rows = append(rows, record.Record{
					"post_id":  id,
					"id":       c.StringOr("user.pk", c.StringOr("user_id", "")),
					"username": c.StringOr("user.username", ""),
					"comment":  c.StringOr("text", ""),
				})
			}
			return rows, nil
		},
	})
	if err != nil {
		return err
	}

	return r.reporter.Table(report.Table{
		Operation: "comment_data",
		Columns: []report.Column{
			report.Field("Post ID", "post_id"),
			report.Field("ID", "id"),
			report.Field("Username", "username"),
			report.Field("Comment", "comment"),
		},
		Entries:   out.Entries,
		JSONKey:   "comments",
		Truncated: res.Truncated || out.Truncated,
	}, r.export())
}

func (r *Runner) hashtags(ctx context.Context, _ Options) error {
	res, err := r.feed(ctx, "hashtags")
	if err != nil {
		return err
	}

	out, err := aggregator.Aggregate(ctx, res.Items, aggregator.Options{
		SecondaryFetch: func(_ context.Context, rec record.Record) ([]record.Record, error) {
			tags := metadata.Hashtags(metadata.PostFrom(rec).Caption)
			rows := make([]record.Record, len(tags))
			for i, tag := range tags {
				rows[i] = record.Record{"hashtag": tag}
			}
			return rows, nil
		},
		GroupBy:    aggregator.FieldKey("hashtag"),
		SortBy:     aggregator.ByCount,
		Descending: true,
	})
	if err != nil {
		return err
	}

	return r.reporter.Table(report.Table{
		Operation: "hashtags",
		Columns:   []report.Column{report.Counter("Count"), report.Field("Hashtag", "hashtag")},
		Entries:   out.Entries,
		JSONKey:   "hashtags",
		JSONValue: withCount("count"),
		Truncated: res.Truncated,
	}, r.export())
}

func (r *Runner) photoDescriptions(ctx context.Context, _ Options) error {
	res, err := r.feed(ctx, "photodes")
	if err != nil {
		return err
	}

	out, err := aggregator.Aggregate(ctx, res.Items, aggregator.Options{
		Filter: func(rec record.Record) bool {
			return metadata.PostFrom(rec).Description != ""
		},
		SecondaryFetch: func(_ context.Context, rec record.Record) ([]record.Record, error) {
			post := metadata.PostFrom(rec)
			return []record.Record{{"post": post.URL(), "description": post.Description}}, nil
		},
	})
	if err != nil {
		return err
	}

	return r.reporter.Table(report.Table{
		Operation: "photodes",
		Columns:   []report.Column{report.Field("Photo", "post"), report.Field("Description", "description")},
		Entries:   out.Entries,
		JSONKey:   "descriptions",
		Truncated: res.Truncated,
	}, r.export())
}

func (r *Runner) tagged(ctx context.Context, _ Options) error {
	res, err := r.feed(ctx, "tagged")
	if err != nil {
		return err
	}

	out, err := aggregator.Aggregate(ctx, res.Items, aggregator.Options{
		SecondaryFetch: func(_ context.Context, rec record.Record) ([]record.Record, error) {
			users := metadata.Tagged(rec)
			rows := make([]record.Record, len(users))
			for i, u := range users {
				rows[i] = u.Record()
			}
			return rows, nil
		},
		GroupBy:    aggregator.FieldKey("id"),
		SortBy:     aggregator.ByCount,
		Descending: true,
	})
	if err != nil {
		return err
	}

	return r.reporter.Table(report.Table{
		Operation: "tagged",
		Columns: []report.Column{
			report.Counter("Posts"),
			report.Field("Full Name", "full_name"),
			report.Field("Username", "username"),
			report.Field("ID", "id"),
		},
		Entries:   out.Entries,
		JSONKey:   "tagged",
		JSONValue: withCount("post"),
		Truncated: res.Truncated,
	}, r.export())
}

func (r *Runner) whoCommented(ctx context.Context, _ Options) error {
	res, err := r.feed(ctx, "wcommented")
	if err != nil {
		return err
	}

	out, err := r.aggregate(ctx, "wcommented", "commenters", res.Items, aggregator.Options{
		SecondaryFetch: func(ctx context.Context, rec record.Record) ([]record.Record, error) {
			id, err := postID(rec)
			if err != nil {
				return nil, err
			}
			comments, err := r.comments(ctx, id)
			if err != nil {
				return nil, err
			}
			rows := make([]record.Record, 0, len(comments))
			for _, c := range comments {
				author, ok := c.Map("user")
				if !ok {
					continue
				}
				if u, ok := metadata.UserFrom(author); ok {
					rows = append(rows, u.Record())
				}
			}
			return rows, nil
		},
		GroupBy:    aggregator.FieldKey("id"),
		SortBy:     aggregator.ByCount,
		Descending: true,
	})
	if err != nil {
		return err
	}

	return r.reporter.Table(report.Table{
		Operation: "users_who_commented",
		Columns: []report.Column{
			report.Counter("Comments"),
			report.Field("ID", "id"),
			report.Field("Username", "username"),
			report.Field("Full Name", "full_name"),
		},
		Entries:   out.Entries,
		JSONKey:   "users_who_commented",
		JSONValue: withCount("counter"),
		Truncated: res.Truncated || out.Truncated,
	}, r.export())
}

func (r *Runner) whoTagged(ctx context.Context, _ Options) error {
	res, err := r.drain(ctx, "wtagged", "posts", r.client.UserTags, r.target().ID, r.feedLimit)
	if err != nil {
		return err
	}

	out, err := aggregator.Aggregate(ctx, res.Items, aggregator.Options{
		SecondaryFetch: func(_ context.Context, rec record.Record) ([]record.Record, error) {
			owner, ok := rec.Map("user")
			if !ok {
				return nil, record.MissingField("user")
			}
			u, ok := metadata.UserFrom(owner)
			if !ok {
				return nil, record.MissingField("user.pk")
			}
			return []record.Record{u.Record()}, nil
		},
		GroupBy:    aggregator.FieldKey("id"),
		SortBy:     aggregator.ByCount,
		Descending: true,
	})
	if err != nil {
		return err
	}

	return r.reporter.Table(report.Table{
		Operation: "users_who_tagged",
		Columns: []report.Column{
			report.Counter("Photos"),
			report.Field("ID", "id"),
			report.Field("Username", "username"),
			report.Field("Full Name", "full_name"),
		},
		Entries:   out.Entries,
		JSONKey:   "users_who_tagged",
		JSONValue: withCount("counter"),
		Truncated: res.Truncated,
	}, r.export())
}
