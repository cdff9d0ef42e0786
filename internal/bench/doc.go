// Package bench replays a fixture corpus through the binding resolver.
//
// A corpus is a YAML file holding canned authority data (releases with their
// tracks) and a list of intents with the release each must bind to. Every
// case is resolved several times with the authority's search results
// shuffled between runs; a case passes only when every run selects the
// expected pair.
package bench
