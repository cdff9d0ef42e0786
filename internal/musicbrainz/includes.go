package musicbrainz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidInclude reports an include set the authority would reject or
// silently ignore for the requested entity.
var ErrInvalidInclude = errors.New("musicbrainz: invalid include")

// Entity names used in lookup paths.
const (
	EntityRecording    = "recording"
	EntityRelease      = "release"
	EntityReleaseGroup = "release-group"
)

// Include sets requested by the binding resolver.
var (
	RecordingIncludes    = []string{"releases", "artists", "isrcs"}
	ReleaseIncludes      = []string{"release-groups", "media", "recordings", "artist-credits", "labels"}
	ReleaseGroupIncludes = []string{"releases", "artist-credits"}
)

var allowedIncludes = map[string]map[string]struct{}{
	EntityRecording:    setOf("releases", "artists", "artist-credits", "isrcs", "release-groups", "media"),
	EntityRelease:      setOf("recordings", "artists", "artist-credits", "media", "release-groups", "labels", "isrcs"),
	EntityReleaseGroup: setOf("releases", "artists", "artist-credits"),
}

// includes that only make sense alongside another include.
var includeRequires = map[string]map[string]string{
	EntityRecording: {"media": "releases", "release-groups": "releases"},
	EntityRelease:   {"isrcs": "recordings"},
}

// ValidateIncludes checks includes for entity and returns the canonical
// "+"-joined inc parameter.
func ValidateIncludes(entity string, includes []string) (string, error) {
	allowed, ok := allowedIncludes[entity]
	if !ok {
		return "", fmt.Errorf("%w: unknown entity %q", ErrInvalidInclude, entity)
	}
	seen := make(map[string]struct{}, len(includes))
	for _, inc := range includes {
		inc = strings.ToLower(strings.TrimSpace(inc))
		if inc == "" {
			continue
		}
		if _, ok := allowed[inc]; !ok {
			return "", fmt.Errorf("%w: %q is not valid for %s", ErrInvalidInclude, inc, entity)
		}
		seen[inc] = struct{}{}
	}
	for inc, needs := range includeRequires[entity] {
		if _, has := seen[inc]; !has {
			continue
		}
		if _, ok := seen[needs]; !ok {
			return "", fmt.Errorf("%w: %q on %s requires %q", ErrInvalidInclude, inc, entity, needs)
		}
	}
	out := make([]string, 0, len(seen))
	for inc := range seen {
		out = append(out, inc)
	}
	sort.Strings(out)
	return strings.Join(out, "+"), nil
}

func setOf(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
