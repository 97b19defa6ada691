// Package instagram is a small client for the Instagram web and private APIs.
//
// Every call goes through the same path: the optional rate limiter, a single
// HTTP round trip carrying the session cookies, and translation of the status
// code and JSON error envelope into *errors.Error values. Transport faults are
// retried; throttling and checkpoint answers are returned at once.
//
// Listing calls (Followers, Following, UserFeed, UserTags, MediaComments)
// return one page of records plus the cursor of the next page, empty when the
// listing is exhausted.
package instagram
