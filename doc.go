// Package bridge implements a credential migration gateway between two
// identity providers.
//
// Session exchange:
//   - A verified source-provider token is resolved to a target user record
//     (external id first, email fallback) and redeemed for a native target
//     session through a one-time sign-in artifact. No password involved.
//
// Lazy password migration:
//   - Password logins try the target store natively first. On failure the
//     plaintext is checked against the imported source hash; a match rehashes
//     the password natively, strips the imported hash, and logs the user in.
//     Accounts without imported password material get an OAuth hint instead
//     of a wrong-password error.
//
// Migration state is derived, never stored: DeriveMigrationState is the one
// predicate shared by every read path. Exchange bookkeeping (Tracker) is
// best-effort and detached so it can never block or fail authentication.
//
// The gateway is stateless per request, performs no internal retries, and
// treats every downstream timeout as a hard failure of that step.
package bridge
