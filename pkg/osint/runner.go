package osint

import (
	"context"
	"fmt"
	"sort"

	"osintgram/pkg/aggregator"
	"osintgram/pkg/logger"
	"osintgram/pkg/paginator"
	"osintgram/pkg/record"
	"osintgram/pkg/report"
	"osintgram/pkg/session"
)

// Client is the remote surface the operations read from
type Client interface {
	UserInfo(ctx context.Context, userID string) (record.Record, error)
	Followers(ctx context.Context, userID, cursor string) ([]record.Record, string, error)
	Following(ctx context.Context, userID, cursor string) ([]record.Record, string, error)
	UserFeed(ctx context.Context, userID, cursor string) ([]record.Record, string, error)
	UserTags(ctx context.Context, userID, cursor string) ([]record.Record, string, error)
	MediaComments(ctx context.Context, mediaID, cursor string) ([]record.Record, string, error)
	Stories(ctx context.Context, userID string) ([]record.Record, error)
	DownloadMedia(ctx context.Context, url string) ([]byte, error)
}

// Geocoder resolves coordinates to an address
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

// Session exposes the selected target and its export settings
type Session interface {
	Guard() error
	Target() *session.Target
	Export() report.ExportTarget
}

// Progress displays a running count
type Progress interface {
	Observe(n int)
	Done()
}

type nopProgress struct{}

func (nopProgress) Observe(int) {}
func (nopProgress) Done()       {}

// Options are the per-invocation settings of an operation
type Options struct {
	// Limit caps harvested contacts or downloaded photos (0 = no cap)
	Limit int
}

// Runner executes operations against the session target
type Runner struct {
	client    Client
	geocoder  Geocoder
	session   Session
	reporter  *report.Reporter
	logger    logger.Logger
	feedLimit int

	progress   func(noun string) Progress
	onThrottle func(operation string, collected int)
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithFeedLimit caps how many feed posts an operation scans (0 = whole feed)
func WithFeedLimit(n int) RunnerOption {
	return func(r *Runner) { r.feedLimit = n }
}

// WithProgress installs a progress display factory
func WithProgress(f func(noun string) Progress) RunnerOption {
	return func(r *Runner) { r.progress = f }
}

// WithThrottleHook is called whenever an operation is cut short by throttling
func WithThrottleHook(f func(operation string, collected int)) RunnerOption {
	return func(r *Runner) { r.onThrottle = f }
}

// NewRunner creates an operation runner
func NewRunner(client Client, geocoder Geocoder, sess Session, reporter *report.Reporter, log logger.Logger, opts ...RunnerOption) *Runner {
	if log == nil {
		log = logger.NewNopLogger()
	}
	r := &Runner{
		client:   client,
		geocoder: geocoder,
		session:  sess,
		reporter: reporter,
		logger:   log,
		progress: func(string) Progress { return nopProgress{} },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Operation is a named command runnable on the target
type Operation struct {
	Name        string
	Description string
	// AllowPrivate lets the operation run on private targets not followed
	AllowPrivate bool
	// UsesLimit marks operations that honour Options.Limit
	UsesLimit bool
	run       func(r *Runner, ctx context.Context, opts Options) error
}

var registry = map[string]Operation{}

func register(op Operation) {
	registry[op.Name] = op
}

// Lookup finds an operation by name
func Lookup(name string) (Operation, bool) {
	op, ok := registry[name]
	return op, ok
}

// Operations lists every operation sorted by name
func Operations() []Operation {
	ops := make([]Operation, 0, len(registry))
	for _, op := range registry {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}

// Run executes the named operation. Operations that read the target's data
// check the private-profile guard first and fail with
// session.ErrPrivateProfile before any remote call.
func (r *Runner) Run(ctx context.Context, name string, opts Options) error {
	op, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("unknown operation %q", name)
	}

	if err := r.session.Guard(); err != nil {
		if !op.AllowPrivate || r.session.Target() == nil {
			return err
		}
	}

	log := r.logger.WithFields(map[string]interface{}{
		"operation": op.Name,
		"target":    r.session.Target().Username,
	})
	log.Debug("running operation")
	if err := op.run(r, ctx, opts); err != nil {
		log.WithError(err).Warn("operation failed")
		return err
	}
	return nil
}

func (r *Runner) target() *session.Target {
	return r.session.Target()
}

func (r *Runner) export() report.ExportTarget {
	return r.session.Export()
}

// listFunc is one of the client's cursor listings
type listFunc func(ctx context.Context, id, cursor string) ([]record.Record, string, error)

// drain pages through a listing of the target's data, showing progress
func (r *Runner) drain(ctx context.Context, operation, noun string, list listFunc, id string, max int) (paginator.Result, error) {
	p := r.progress(noun)
	res, err := paginator.FetchAll(ctx, func(ctx context.Context, cursor string) (paginator.Page, error) {
		items, next, err := list(ctx, id, cursor)
		return paginator.Page{Items: items, NextCursor: next}, err
	}, paginator.Options{MaxItems: max, Observer: p.Observe})
	p.Done()

	if err != nil {
		return res, err
	}
	if res.Truncated {
		r.throttled(operation, len(res.Items))
	}
	return res, nil
}

// feed returns the target's posts, capped by the feed limit
func (r *Runner) feed(ctx context.Context, operation string) (paginator.Result, error) {
	return r.drain(ctx, operation, "posts", r.client.UserFeed, r.target().ID, r.feedLimit)
}

// aggregate runs the aggregator with a progress display
func (r *Runner) aggregate(ctx context.Context, operation, noun string, records []record.Record, opts aggregator.Options) (aggregator.Output, error) {
	if opts.SecondaryFetch != nil {
		p := r.progress(noun)
		opts.Observer = p.Observe
		defer p.Done()
	}
	out, err := aggregator.Aggregate(ctx, records, opts)
	if err != nil {
		return out, err
	}
	if out.Truncated {
		r.throttled(operation, len(out.Entries))
	}
	return out, nil
}

func (r *Runner) throttled(operation string, collected int) {
	logger.LogThrottle(r.logger, operation, collected)
	if r.onThrottle != nil {
		r.onThrottle(operation, collected)
	}
}

// comments drains every comment of one post
func (r *Runner) comments(ctx context.Context, mediaID string) ([]record.Record, error) {
	res, err := paginator.FetchAll(ctx, func(ctx context.Context, cursor string) (paginator.Page, error) {
		items, next, err := r.client.MediaComments(ctx, mediaID, cursor)
		return paginator.Page{Items: items, NextCursor: next}, err
	}, paginator.Options{})
	if err != nil {
		return nil, err
	}
	if res.Truncated {
		return nil, res.Err
	}
	return res.Items, nil
}

// withCount adds the entry counter to its record under key
func withCount(key string) func(aggregator.Entry) any {
	return func(e aggregator.Entry) any {
		out := e.Record.Clone()
		out[key] = e.Count
		return out
	}
}

func postID(rec record.Record) (string, error) {
	id, ok := rec.String("id")
	if !ok {
		id, ok = rec.String("pk")
	}
	if !ok {
		return "", record.MissingField("id")
	}
	return id, nil
}
