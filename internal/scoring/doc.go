// Package scoring is the single scoring function every ingestion path uses.
//
// Score applies hard gates first (variant and preview tokens, duration
// tolerance, title and artist floors, compilation album mismatch, the
// correctness floor), then combines correctness (artist 40, title 30,
// duration 20, album 10) with completeness bonuses, country and source-tier
// bonuses, and title noise, and finally multiplies by the release bucket's
// priority. Rank turns a set of results into a total, input-order-independent
// ordering.
package scoring
