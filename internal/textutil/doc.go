// Package textutil provides the text primitives shared by scoring, canonical
// identity, and path construction.
//
// Normalize and Tokens fold case and strip diacritics through golang.org/x/text
// so comparisons are stable across sources. TokenSimilarity is the measure
// every title, artist, and album gate uses. StripTransportNoise removes
// platform packaging from titles, and the Sanitize helpers make values safe
// as path segments.
package textutil
