package tags

import (
	"strings"
	"unicode/utf8"
)

// Tag is one recognized bracketed span.
type Tag struct {
	Kind   Kind
	Value  string // value of the head segment
	Fields map[Field]string
	Start  int // byte offset of '['
	End    int // byte offset just past ']'

	// Malformed marks a span that mentions a keyword but does not follow
	// the grammar. It is stripped and never applied.
	Malformed bool
}

// Field returns a field value, or def when absent or blank.
func (t Tag) Field(f Field, def string) string {
	if v := strings.TrimSpace(t.Fields[f]); v != "" {
		return v
	}
	return def
}

// Scan finds every recognized tag in text, in order of appearance.
// Brackets that do not mention a keyword are skipped.
func Scan(text string) []Tag {
	var tags []Tag
	for i := 0; i < len(text); {
		open := strings.IndexByte(text[i:], '[')
		if open < 0 {
			break
		}
		open += i
		end := strings.IndexByte(text[open+1:], ']')
		if end < 0 {
			break
		}
		end += open + 1

		// "[a [Spend: 1]" restarts at the innermost opening bracket.
		if inner := strings.LastIndexByte(text[open+1:end], '['); inner >= 0 {
			open += 1 + inner
		}

		if tag, ok := parseBody(text[open+1 : end]); ok {
			tag.Start, tag.End = open, end+1
			tags = append(tags, tag)
		}
		i = end + 1
	}
	return tags
}

type segment struct {
	sep  string // separator that preceded the segment; empty for the first
	text string
}

// splitSegments splits on ASCII and full-width commas, keeping separators.
func splitSegments(body string) []segment {
	var out []segment
	sep, start := "", 0
	for i, r := range body {
		if r == ',' || r == '，' {
			out = append(out, segment{sep: sep, text: body[start:i]})
			sep = string(r)
			start = i + utf8.RuneLen(r)
		}
	}
	return append(out, segment{sep: sep, text: body[start:]})
}

// cutKey splits "key: value" at the first ASCII or full-width colon.
// Without a colon the whole segment is the key.
func cutKey(s string) (key, value string, found bool) {
	i := strings.IndexAny(s, ":：")
	if i < 0 {
		return strings.TrimSpace(s), "", false
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return strings.TrimSpace(s[:i]), s[i+size:], true
}

// headTrim is cut from a value that follows a bare keyword prefix.
const headTrim = " \t=:："

// classify finds the kind of a bracket body and the value of its head.
// An exact "Keyword: value" head wins, then a keyword prefix of the head.
// A keyword elsewhere in the body yields a malformed tag.
func classify(body, head string) (kind Kind, value string, malformed, ok bool) {
	key, value, _ := cutKey(head)
	if kind, ok := KindForKeyword(key); ok {
		return kind, value, false, true
	}
	if kind, rest, ok := KindForPrefix(strings.TrimSpace(head)); ok {
		return kind, strings.TrimLeft(rest, headTrim), false, true
	}
	if kind, ok := mentionsKeyword(body); ok {
		return kind, "", true, true
	}
	return "", "", false, false
}

// parseBody classifies and splits the text between the brackets.
func parseBody(body string) (Tag, bool) {
	segments := splitSegments(body)
	kind, value, bad, ok := classify(body, segments[0].text)
	if !ok {
		return Tag{}, false
	}
	if bad {
		return Tag{Kind: kind, Fields: map[Field]string{}, Malformed: true}, true
	}
	g := grammars[kind]

	tag := Tag{Kind: kind, Value: value, Fields: make(map[Field]string)}
	var last Field // "" is the head value
	extend := func(seg segment) {
		if last == "" {
			tag.Value += seg.sep + seg.text
			return
		}
		tag.Fields[last] += seg.sep + seg.text
	}

	for _, seg := range segments[1:] {
		if k, v, hasKey := cutKey(seg.text); hasKey {
			if f, ok := fieldByKeyword[foldKey(k)]; ok && g.accepts(f) {
				tag.Fields[f] = v
				last = f
				continue
			}
		}
		if g.Positional != "" {
			if _, set := tag.Fields[g.Positional]; !set && last == "" {
				tag.Fields[g.Positional] = seg.text
				last = g.Positional
				continue
			}
		}
		extend(seg)
	}

	tag.Value = strings.TrimSpace(tag.Value)
	for f, v := range tag.Fields {
		tag.Fields[f] = strings.TrimSpace(v)
	}
	return tag, true
}
