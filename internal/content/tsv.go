package content

import (
	"regexp"
	"strconv"
	"strings"
)

// Row is one tab-separated record keyed by the header row's column names.
type Row map[string]string

// trailingRef pulls a chapter:verse pair out of the end of a Reference
// cell. Cells sometimes carry prefixed context (a book name or chapter
// label) ahead of the pair, which comparison must ignore.
var trailingRef = regexp.MustCompile(`(front|\d+):(intro|\d+)\s*$`)

// FilterTSV parses tab-separated text and returns the rows within scope of
// ref. The header row names the columns and must include "Reference".
// Included rows are: the book intro ("front:intro"), the requested
// chapter's intro ("<chapter>:intro"), and every row whose normalized
// reference matches the requested chapter and verse range. Malformed or
// empty input yields an empty result, never an error.
func FilterTSV(text string, ref ParsedReference) []Row {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return nil
	}

	header := strings.Split(strings.TrimRight(lines[0], "\r"), "\t")
	refCol := -1
	for i, name := range header {
		if name == "Reference" {
			refCol = i
			break
		}
	}
	if refCol < 0 {
		return nil
	}

	var out []Row
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		cells := strings.Split(line, "\t")
		if refCol >= len(cells) {
			continue
		}
		if !referenceInScope(cells[refCol], ref) {
			continue
		}
		row := make(Row, len(header))
		for i, name := range header {
			if i < len(cells) {
				row[name] = cells[i]
			}
		}
		out = append(out, row)
	}
	return out
}

// referenceInScope applies the inclusion rules for one Reference cell.
func referenceInScope(cell string, ref ParsedReference) bool {
	m := trailingRef.FindStringSubmatch(cell)
	if m == nil {
		return false
	}
	chapterPart, versePart := m[1], m[2]

	if chapterPart == "front" {
		// Book intro rows ride along with chapter 1 requests only.
		return versePart == "intro" && ref.Chapter == 1
	}
	chapter, err := strconv.Atoi(chapterPart)
	if err != nil || chapter != ref.Chapter {
		return false
	}
	if versePart == "intro" {
		return true
	}
	verse, err := strconv.Atoi(versePart)
	if err != nil {
		return false
	}
	return ref.matches(chapter, verse)
}
