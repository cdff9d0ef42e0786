// Package musicbrainz is the client for the canonical metadata authority.
//
// Every outbound request carries the configured User-Agent and passes a
// token-bucket limiter that enforces the authority's minimum inter-request
// interval. 429 and 5xx responses are retried honouring Retry-After, and
// successful lookups are cached in memory for the configured TTL.
//
// Include sets are validated per entity before any network I/O; an include
// the authority would not honour fails with ErrInvalidInclude instead of
// quietly returning a thinner payload.
package musicbrainz
