package tags

import "strings"

// Strip removes the given tags from text, along with the spaces and tabs
// that follow each one, and trims the result.
func Strip(text string, tags []Tag) string {
	if len(tags) == 0 {
		return strings.TrimSpace(text)
	}
	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, t := range tags {
		if t.Start < pos {
			continue
		}
		b.WriteString(text[pos:t.Start])
		pos = t.End
		for pos < len(text) && (text[pos] == ' ' || text[pos] == '\t') {
			pos++
		}
	}
	b.WriteString(text[pos:])
	return strings.TrimSpace(b.String())
}
