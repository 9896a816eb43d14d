// Package auth implements the stateless half of authentication: signed
// identity tokens, password hashing, and the role/authority model.
//
// # Tokens
//
// Tokens are compact JWTs signed with HMAC-SHA512 using a server-held
// secret. The subject claim carries the username; userId and role ride as
// private claims. The issuer keeps no record of issued tokens. A token is
// valid exactly when its signature checks out and its expiry is in the
// future. Revocation lives elsewhere (pkg/session's blacklist).
//
//	issuer := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
//	token, err := issuer.Issue(user.ID, user.Username, user.Role)
//	claims, err := issuer.ParseClaims(token)
//	ok := issuer.Validate(token, "admin")
//
// Validate never returns an error: tampered, malformed, expired and
// mistyped tokens all collapse to false.
//
// # Passwords
//
// PasswordHasher wraps bcrypt. Hashing is salted per call, so equal inputs
// produce different encodings that all verify. Construct one hasher at
// startup and pass it down; nothing in this package is a mutable global.
//
// # Roles
//
// Role is a closed enumeration (1 = admin, 2 = operator) with a total
// mapping to authority sets. Unknown values degrade to the base user
// authority, never into a privileged set.
package auth
