package osint

import (
	"context"

	"osintgram/pkg/aggregator"
	errs "osintgram/pkg/errors"
	"osintgram/pkg/metadata"
	"osintgram/pkg/record"
	"osintgram/pkg/report"
)

func init() {
	register(Operation{Name: "followers", Description: "List the target's followers", run: (*Runner).followers})
	register(Operation{Name: "followings", Description: "List the accounts the target follows", run: (*Runner).followings})
	register(Operation{Name: "fwersemail", Description: "Emails of the target's followers", UsesLimit: true, run: harvest(emailHarvest(false))})
	register(Operation{Name: "fwingsemail", Description: "Emails of the accounts the target follows", UsesLimit: true, run: harvest(emailHarvest(true))})
	register(Operation{Name: "fwersnumber", Description: "Phone numbers of the target's followers", UsesLimit: true, run: harvest(phoneHarvest(false))})
	register(Operation{Name: "fwingsnumber", Description: "Phone numbers of the accounts the target follows", UsesLimit: true, run: harvest(phoneHarvest(true))})
}

var userColumns = []report.Column{
	report.Field("ID", "id"),
	report.Field("Username", "username"),
	report.Field("Full Name", "full_name"),
}

func (r *Runner) followers(ctx context.Context, _ Options) error {
	return r.network(ctx, "followers", "followers", r.client.Followers)
}

func (r *Runner) followings(ctx context.Context, _ Options) error {
	return r.network(ctx, "followings", "followings", r.client.Following)
}

func (r *Runner) network(ctx context.Context, operation, jsonKey string, list listFunc) error {
	res, err := r.drain(ctx, operation, operation, list, r.target().ID, 0)
	if err != nil {
		return err
	}

	out, err := r.aggregate(ctx, operation, operation, res.Items, aggregator.Options{
		SecondaryFetch: asUser,
	})
	if err != nil {
		return err
	}

	return r.reporter.Table(report.Table{
		Operation: operation,
		Columns:   userColumns,
		Entries:   out.Entries,
		JSONKey:   jsonKey,
		Truncated: res.Truncated,
	}, r.export())
}

// asUser reshapes a listing item into {id, username, full_name}
func asUser(_ context.Context, rec record.Record) ([]record.Record, error) {
	u, ok := metadata.UserFrom(rec)
	if !ok {
		return nil, record.MissingField("pk")
	}
	return []record.Record{u.Record()}, nil
}

// contactHarvest describes one contact-harvesting operation
type contactHarvest struct {
	operation string
	noun      string
	following bool
	// field is read from the user info record
	field  string
	column string
	// key names the contact in exported entries
	key     string
	jsonKey string
}

func emailHarvest(following bool) contactHarvest {
	h := contactHarvest{operation: "fwersemail", jsonKey: "followers_email", field: "public_email", column: "Email", key: "email", noun: "emails"}
	if following {
		h.operation, h.jsonKey = "fwingsemail", "followings_email"
	}
	h.following = following
	return h
}

func phoneHarvest(following bool) contactHarvest {
	h := contactHarvest{operation: "fwersnumber", jsonKey: "followers_phone_numbers", field: "contact_phone_number", column: "Phone number", key: "contact_phone_number", noun: "phone numbers"}
	if following {
		h.operation, h.jsonKey = "fwingsnumber", "followings_phone_numbers"
	}
	h.following = following
	return h
}

// harvest builds an operation that looks up every follower (or followed
// account) and keeps those exposing the contact field. Options.Limit stops
// the lookups once that many contacts were found.
func harvest(h contactHarvest) func(r *Runner, ctx context.Context, opts Options) error {
	return func(r *Runner, ctx context.Context, opts Options) error {
		list, noun := r.client.Followers, "followers"
		if h.following {
			list, noun = r.client.Following, "followings"
		}

		res, err := r.drain(ctx, h.operation, noun, list, r.target().ID, 0)
		if err != nil {
			return err
		}

		out, err := r.aggregate(ctx, h.operation, h.noun, res.Items, aggregator.Options{
			SecondaryFetch: r.contactLookup(h),
			Limit:          opts.Limit,
		})
		if err != nil {
			return err
		}

		return r.reporter.Table(report.Table{
			Operation: h.operation,
			Columns:   append(append([]report.Column{}, userColumns...), report.Field(h.column, h.key)),
			Entries:   out.Entries,
			JSONKey:   h.jsonKey,
			Truncated: res.Truncated || out.Truncated,
		}, r.export())
	}
}

func (r *Runner) contactLookup(h contactHarvest) aggregator.SecondaryFetch {
	return func(ctx context.Context, rec record.Record) ([]record.Record, error) {
		u, ok := metadata.UserFrom(rec)
		if !ok {
			return nil, record.MissingField("pk")
		}

		info, err := r.client.UserInfo(ctx, u.ID)
		if err != nil {
			// deleted or suspended accounts are skipped like accounts without contacts
			if errs.IsNotFound(err) {
				return nil, record.MissingField(h.field)
			}
			return nil, err
		}

		contact, ok := info.String(h.field)
		if !ok || contact == "" {
			return nil, record.MissingField(h.field)
		}

		out := u.Record()
		out[h.key] = contact
		return []record.Record{out}, nil
	}
}
