// Package sources adapts external providers into the shapes the rest of
// tunebind consumes.
//
// Candidate sources (YTDLPSearch) turn a bound track into scored-ready
// provider candidates, preserving the provider's rank order. Collection
// sources (YouTubePlaylist, SpotifyPlaylist) enumerate the items of a
// watched collection for the scheduler's snapshot differ.
package sources
