// Package services defines the [Service] interface for image search providers and implements it for Twitter.
//
// # Twitter Implementation
//
// [TwitterClient] uses application-only OAuth2 (client credentials) via [clientcredentials.Config].
// The bearer token is fetched lazily on the first search and cached for the lifetime of the client.
// The API does not report token expiry up front, so a 401 on search is treated as an expired token:
// the client re-authenticates and retries, at most ten times per search.
//
// Requests are throttled with a [rate.Limiter] and routed through an optional outbound proxy.
//
// # Response Mapping
//
// [MapSearchResponse] converts the raw search payload into a [SearchResult].
// Statuses without attached media are dropped. Missing metadata fields map to zero values.
// Timestamps that fail to parse are kept verbatim in [Status.CreatedAtRaw].
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : blank consumer key or secret
//   - [shared.AuthError] : token exchange failed or the re-authentication budget ran out
//   - [shared.UpstreamError] : any other non-success search response, never retried
package services
