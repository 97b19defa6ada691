// Package osint implements the named operations run against a target
// account. Each one drains a listing with the paginator, shapes it with the
// aggregator and hands the result to the reporter.
//
//	runner := osint.NewRunner(client, geocoder, sess, reporter, log,
//	    osint.WithFeedLimit(cfg.Instagram.FeedLimit))
//	err := runner.Run(ctx, "followers", osint.Options{})
//
// Every operation except info and propic refuses to run on a private profile
// the logged-in account does not follow.
package osint
