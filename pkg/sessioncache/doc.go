// Package sessioncache stores the caller's Instagram login session on disk so
// later runs can skip the password login.
//
// The file (config/settings.json by default) is written atomically with mode
// 0600. Clearing it leaves an empty JSON object behind, which Load treats as
// "no session".
package sessioncache
