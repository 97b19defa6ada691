// Package retry re-attempts remote calls that failed on transport faults
// (network errors and 5xx responses) with exponential backoff.
//
// Throttling is deliberately not retried: a rate-limit error is returned to
// the caller at once so that listings can stop and keep what they collected.
//
//	cfg := retry.FromConfig(appCfg.Retry, log)
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return client.doOnce(ctx, req)
//	}, cfg)
package retry
