// Package config loads tunebind's TOML configuration.
//
// Load layers a file over Default, expands ~ in paths, applies environment
// fallbacks (TUNEBIND_MUSICBRAINZ_USER_AGENT, SPOTIFY_CLIENT_ID,
// SPOTIFY_CLIENT_SECRET), and validates the result. The scoring floors live
// here so resolution policy can be tuned per install; the tie-break order
// does not.
package config
