// Package content turns extracted archive members into domain records:
// reference-scoped filtering of tab-separated note rows and glossary term
// lookup against an archive's file index.
package content

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidReference is returned for reference strings that do not parse.
var ErrInvalidReference = errors.New("invalid reference")

// ParsedReference scopes a request to a book and chapter, and optionally to
// a verse or inclusive verse range. A zero Verse means chapter-only.
type ParsedReference struct {
	Book     string
	Chapter  int
	Verse    int
	VerseEnd int
}

var refPattern = regexp.MustCompile(`^(\d+)(?::(\d+)(?:-(\d+))?)?$`)

// ParseReference parses ref strings of the form "3", "3:16" or "3:16-18".
func ParseReference(book, ref string) (ParsedReference, error) {
	m := refPattern.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return ParsedReference{}, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	out := ParsedReference{Book: strings.ToLower(strings.TrimSpace(book))}
	out.Chapter, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		out.Verse, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		out.VerseEnd, _ = strconv.Atoi(m[3])
	}
	return out, nil
}

// matches reports whether a chapter:verse pair falls inside the reference.
// Chapter-only references match every verse of the chapter.
func (r ParsedReference) matches(chapter, verse int) bool {
	if chapter != r.Chapter {
		return false
	}
	if r.Verse == 0 {
		return true
	}
	end := r.VerseEnd
	if end == 0 {
		end = r.Verse
	}
	return verse >= r.Verse && verse <= end
}
