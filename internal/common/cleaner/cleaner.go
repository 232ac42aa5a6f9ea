package cleaner

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultMaxRunes caps free-text fields on a record
const DefaultMaxRunes = 5000

// Cleaner turns scraped HTML fragments into plain text using Bluemonday
type Cleaner struct {
	policy   *bluemonday.Policy
	maxRunes int
}

// NewCleaner creates a cleaner that strips all markup
func NewCleaner() *Cleaner {
	return &Cleaner{policy: bluemonday.StrictPolicy(), maxRunes: DefaultMaxRunes}
}

// CleanToText removes all HTML, decodes entities and collapses blank lines
func (c *Cleaner) CleanToText(s string) string {
	if s == "" {
		return ""
	}
	// keep line structure from block tags before stripping them
	for _, tag := range []string{"<br>", "<br/>", "<br />", "</p>", "</li>", "</div>"} {
		s = strings.ReplaceAll(s, tag, tag+"\n")
	}
	text := html.UnescapeString(c.policy.Sanitize(s))

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return c.truncate(strings.Join(out, "\n"))
}

// CleanMap strips markup from every string value in a decoded JSON object
func (c *Cleaner) CleanMap(data map[string]any) map[string]any {
	result := make(map[string]any, len(data))
	for k, v := range data {
		result[k] = c.cleanValue(v)
	}
	return result
}

func (c *Cleaner) cleanValue(v any) any {
	switch val := v.(type) {
	case string:
		return c.CleanToText(val)
	case map[string]any:
		return c.CleanMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = c.cleanValue(item)
		}
		return out
	default:
		return v
	}
}

func (c *Cleaner) truncate(s string) string {
	if c.maxRunes <= 0 || utf8.RuneCountInString(s) <= c.maxRunes {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:c.maxRunes])) + "…"
}
