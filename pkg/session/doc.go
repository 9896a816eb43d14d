// Package session holds the stateful half of authentication in Redis: a
// token blacklist and per-user login records.
//
// Blacklisting is how logout revokes an otherwise self-contained token.
// An entry lives exactly as long as the token it voids would have, with a
// one-minute floor, so the blacklist never grows beyond the set of tokens
// that are still verifiable.
//
// Session records live under one key per user, so a new login displaces
// the previous one. Reads slide the record's TTL forward; an idle session
// expires on its own.
//
// Store methods return errors rather than deciding policy. The HTTP layer
// logs and absorbs them: a login or logout never fails because Redis was
// unreachable, it just degrades to token-only authentication.
package session
