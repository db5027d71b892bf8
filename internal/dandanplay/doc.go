// Package dandanplay implements the subset of the dandanplay API needed to
// overlay danmaku: login, episode matching, and comment retrieval.
//
// Session owns the bearer token lifecycle. Tokens are cached in memory and in
// token.json under the profile directory, treated as stale 60 seconds before
// their expiry, and refreshed by logging in with the configured application
// credentials. Client attaches the token to authenticated calls and, when the
// server answers 401, invalidates it, refreshes once, and retries the identical
// request exactly once.
//
// All requests share a token-bucket limiter so rapid file switching cannot
// flood the remote service.
package dandanplay
