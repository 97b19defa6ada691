// Package ratelimit paces calls to remote services.
//
// TokenBucket spaces platform API calls according to rate_limit settings and
// tolerates short bursts. SlidingWindow enforces hard usage policies such as
// the one request per second allowed by public geocoding services.
//
// Both block in Wait until a slot is free or the context is done.
package ratelimit
