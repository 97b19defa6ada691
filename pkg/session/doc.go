// Package session holds the login and target state of one osintgram run.
//
// A session moves from Unauthenticated to Authenticated on Login and to
// TargetSelected on SelectTarget. ChangeTarget stays authenticated and only
// swaps the account under investigation along with its output directory.
// Operations call Guard before fetching anything so a private profile the
// caller does not follow fails fast with ErrPrivateProfile.
package session
