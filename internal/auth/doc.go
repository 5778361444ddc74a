// Package auth provides authentication and authorisation for Foundry Core.
//
// The model is deliberately small: operators are declared in the config file
// (username plus Argon2id password hash plus role), there is no user
// database. POST /auth/token verifies a credential pair and issues a
// short-lived HS256 JWT; API middleware validates the token and enforces the
// role on each request.
//
// Three roles exist: viewer (read-only), operator (day-to-day factory
// control) and admin (everything, including destructive operations). Role
// checks are compile-time mappings, never lookups.
package auth
