package textutil

import (
	"regexp"
	"strings"
)

var (
	bracketedSegment = regexp.MustCompile(`[\(\[\{][^\)\]\}]*[\)\]\}]`)
	transportTokens  = regexp.MustCompile(`(?i)\b(official music video|official video|music video|lyric video|lyrics video|official audio|official lyric video|visualizer|visualiser|audio|lyrics|hd|hq|4k|topic)\b`)
	trailingSuffix   = regexp.MustCompile(`(?i)\s*-\s*(official video|official audio|topic)\s*$`)
	keptInBrackets   = regexp.MustCompile(`(?i)\b(live|acoustic|remix|demo|instrumental|remaster(ed)?|version|edit|mix)\b`)
)

// StripTransportNoise removes packaging tokens that video platforms attach to
// titles, such as "(Official Video)", "[Music Video]" or "visualizer".
// Bracketed segments that carry meaning ("(Live at Wembley)", "(Acoustic)")
// are unwrapped and kept.
func StripTransportNoise(title string) string {
	text := strings.TrimSpace(title)
	if text == "" {
		return ""
	}
	text = trailingSuffix.ReplaceAllString(text, " ")
	text = bracketedSegment.ReplaceAllStringFunc(text, func(segment string) string {
		inner := strings.TrimSpace(segment[1 : len(segment)-1])
		if keptInBrackets.MatchString(inner) {
			return " " + transportTokens.ReplaceAllString(inner, " ") + " "
		}
		return " "
	})
	text = transportTokens.ReplaceAllString(text, " ")
	text = strings.Trim(collapseSpaces(text), " -|")
	return collapseSpaces(text)
}
