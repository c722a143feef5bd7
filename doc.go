// Package authn implements credential verification, brute force lockout
// tracking, and short/long lived token issuance with one time use refresh
// rotation.
//
// Lockout:
//   - LoginAttempt records accumulate failures per (email, origin) pair in a
//     rolling window. Counting runs as a single atomic upsert so concurrent
//     failures never under count, and stale locks self heal on next access.
//
// Tokens:
//   - TokenService signs two independent HS256 configurations: a short lived
//     access token carrying {sub, uid, email, role} and a long lived refresh
//     token carrying the subject only. Refresh tokens are persisted as argon2id
//     hashes and redeemed at most once, rotation revokes the matched session
//     and issues a successor inside one transaction.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther to describe
//     register, login, lockout, and refresh events. Sinks run best-effort
//     (errors are logged) so you can forward to a database or queue without
//     blocking authentication.
package authn
