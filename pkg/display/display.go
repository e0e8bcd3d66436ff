// Package display derives presentation values from post fields. Every function
// here is pure: it takes strings and returns a classification or a URL.
package display

import (
	"regexp"
	"strings"
)

const (
	TagDisease   = "[질병 정보]"
	TagTreatment = "[치료 후기]"
	TagFree      = "[자유 게시판]"

	previewLimit = 100
	ellipsis     = "..."
)

// CategoryTag classifies a board post by substrings of its title.
func CategoryTag(title string) string {
	switch {
	case strings.Contains(title, "질병"):
		return TagDisease
	case strings.Contains(title, "치료"):
		return TagTreatment
	default:
		return TagFree
	}
}

var youtubeRe = regexp.MustCompile(
	`(?:https?://)?(?:www\.|m\.)?(?:youtube\.com|youtu\.be|youtube-nocookie\.com)/(?:watch\?v=|embed/|v/|videos/|.+\?v=)?([^&=%?/#]{11})`,
)

// EmbedURL converts a YouTube link into its embeddable form. Links that do not
// look like YouTube videos yield ok == false.
func EmbedURL(link string) (embed string, ok bool) {
	m := youtubeRe.FindStringSubmatch(strings.TrimSpace(link))
	if m == nil {
		return "", false
	}
	return "https://www.youtube.com/embed/" + m[1], true
}

// Preview flattens newlines and cuts content to 100 characters.
func Preview(content string) string {
	return Truncate(strings.ReplaceAll(content, "\n", " "), previewLimit)
}

// Truncate cuts s to limit characters (not bytes) and appends "..." when it was longer.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + ellipsis
}

// ContentMissing reports whether a post has nothing to show: no text and no
// usable embed.
func ContentMissing(content, youtubeURL string) bool {
	if strings.TrimSpace(content) != "" {
		return false
	}
	_, ok := EmbedURL(youtubeURL)
	return !ok
}
