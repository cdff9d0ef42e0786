package organizer

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"tunebind/internal/binding"
	"tunebind/internal/services"
	"tunebind/internal/textutil"
)

// MusicPath is the library location of pair under root:
// <artist>/<album>/NN Title.ext, with a "D-" prefix for discs after the first.
// Every segment comes from the bound values; a value with no usable
// characters is an error rather than a placeholder directory.
func MusicPath(root string, pair binding.BoundPair, ext string) (string, error) {
	artist := pair.AlbumArtist
	if strings.TrimSpace(artist) == "" {
		artist = pair.ArtistCredit
	}
	artistDir, err := segment("artist", artist)
	if err != nil {
		return "", err
	}
	albumDir, err := segment("album", pair.Album)
	if err != nil {
		return "", err
	}
	title, err := segment("title", pair.Title)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%02d %s", pair.TrackNumber, title)
	if pair.DiscNumber > 1 {
		name = fmt.Sprintf("%d-%s", pair.DiscNumber, name)
	}
	return filepath.Join(root, artistDir, albumDir, name+normalizeExt(ext)), nil
}

// VideoPath is the location of a video titled title under root; videos are
// stored flat.
func VideoPath(root, title, fallback, ext string) string {
	name := textutil.SanitizeFileName(title)
	if name == "" {
		name = textutil.SanitizeFileName(fallback)
	}
	if name == "" {
		name = "video"
	}
	return filepath.Join(root, name+normalizeExt(ext))
}

// segment sanitizes value. When sanitizing removes everything, as with "?"
// or "...", each rune is kept as an underscore so the result still derives
// from the bound value.
func segment(field, value string) (string, error) {
	if s := textutil.SanitizeFileName(value); s != "" {
		return s, nil
	}
	masked := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return '_'
	}, strings.TrimSpace(value))
	if masked = strings.TrimSpace(masked); masked != "" {
		return masked, nil
	}
	return "", services.WrapReason(services.ErrPostprocess, "organizer", "resolve target", "unplaceable_path",
		fmt.Sprintf("bound %s %q has no usable characters", field, value), nil)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
