package media

import (
	"fmt"
	"regexp"
	"strings"
)

var watchURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(?:www\.|m\.)?youtube\.com/watch\?(?:.*&)?v=([\w-]{11})(?:[&#].*)?$`),
	regexp.MustCompile(`^https?://(?:www\.)?youtube\.com/shorts/([\w-]{11})(?:[?#].*)?$`),
	regexp.MustCompile(`^https?://youtu\.be/([\w-]{11})(?:[?#].*)?$`),
	regexp.MustCompile(`^https?://(?:www\.)?youtube\.com/embed/([\w-]{11})(?:[?#].*)?$`),
	regexp.MustCompile(`^https?://(?:www\.)?youtube\.com/live/([\w-]{11})(?:[?#].*)?$`),
}

var channelURLPattern = regexp.MustCompile(`^https?://(?:www\.)?youtube\.com/(?:@[\w.-]+|channel/UC[\w-]{22}|c/[\w.-]+)(?:/.*)?$`)

// ValidateURL checks the URL syntactically against the known YouTube video
// URL shapes before any network activity.
func ValidateURL(url string) error {
	if ExtractVideoID(url) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSource, url)
	}
	return nil
}

// ExtractVideoID returns the stable video identifier embedded in the URL, or
// an empty string when the URL matches no known shape.
func ExtractVideoID(url string) string {
	url = strings.TrimSpace(url)
	for _, pattern := range watchURLPatterns {
		if m := pattern.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

// ValidateChannelURL checks a channel URL against the known handle, channel-id
// and custom-name shapes.
func ValidateChannelURL(url string) error {
	if !channelURLPattern.MatchString(strings.TrimSpace(url)) {
		return fmt.Errorf("%w: %q is not a channel URL", ErrInvalidSource, url)
	}
	return nil
}

// WatchURL returns the canonical watch URL for a video id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ThumbnailURL returns the high-quality thumbnail URL for a video id.
func ThumbnailURL(id string) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", id)
}
