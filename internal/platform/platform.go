// Package platform classifies video links by origin.
package platform

import "regexp"

type Tag string

const (
	YouTube   Tag = "youtube"
	TikTok    Tag = "tiktok"
	Instagram Tag = "instagram"
	Facebook  Tag = "facebook"
	Twitter   Tag = "twitter"
	Unknown   Tag = "unknown"
)

type rule struct {
	tag Tag
	re  *regexp.Regexp
}

// First match wins; some hosts would match more than one pattern.
var rules = []rule{
	{YouTube, regexp.MustCompile(`(?i)(youtube\.com|youtu\.be)`)},
	{TikTok, regexp.MustCompile(`(?i)tiktok\.com`)},
	{Instagram, regexp.MustCompile(`(?i)instagram\.com`)},
	{Facebook, regexp.MustCompile(`(?i)facebook\.com|fb\.watch`)},
	{Twitter, regexp.MustCompile(`(?i)twitter\.com|x\.com`)},
}

// Classify maps a URL to its platform tag, Unknown when nothing matches.
func Classify(url string) Tag {
	for _, r := range rules {
		if r.re.MatchString(url) {
			return r.tag
		}
	}
	return Unknown
}

// Title is the display name.
func (t Tag) Title() string {
	switch t {
	case YouTube:
		return "YouTube"
	case TikTok:
		return "TikTok"
	case Instagram:
		return "Instagram"
	case Facebook:
		return "Facebook"
	case Twitter:
		return "Twitter"
	default:
		return "Unknown"
	}
}

// Known lists the supported platforms in classification order.
func Known() []Tag {
	out := make([]Tag, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.tag)
	}
	return out
}
