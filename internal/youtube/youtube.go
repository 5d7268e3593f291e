// Package youtube normalizes YouTube video links into the
// privacy-enhanced embed form used by the new platform.
package youtube

import "strings"

// markers are the URL shapes a video id can be extracted from, checked in
// order.
var markers = []string{"watch?v=", "youtu.be/", "/live/", "/embed/", "/v/"}

// ExtractVideoID extracts the video id from any recognized YouTube URL
// shape. Returns "" when the URL carries no recognizable id.
func ExtractVideoID(url string) string {
	if strings.TrimSpace(url) == "" {
		return ""
	}

	for _, marker := range markers {
		idx := strings.Index(url, marker)
		if idx < 0 {
			continue
		}

		id := url[idx+len(marker):]
		if cut := strings.IndexAny(id, "&?"); cut >= 0 {
			id = id[:cut]
		}
		if id != "" {
			return id
		}
	}

	return ""
}

// ToEmbedURL converts any recognized YouTube URL into the
// youtube-nocookie embed form. Returns "" for unrecognized URLs.
func ToEmbedURL(url string) string {
	id := ExtractVideoID(url)
	if id == "" {
		return ""
	}
	return "https://www.youtube-nocookie.com/embed/" + id
}

// IsYouTubeURL reports whether the URL points at YouTube at all.
func IsYouTubeURL(url string) bool {
	if strings.TrimSpace(url) == "" {
		return false
	}
	return strings.Contains(url, "youtube.com") || strings.Contains(url, "youtu.be")
}
