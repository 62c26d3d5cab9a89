package genealogy

import (
	"regexp"
	"strings"
)

// An entry marker is one to four digits at the start of a line, a period,
// then whitespace. markerPattern stops before the whitespace so that a \r
// ending the marker line can still start the next one.
var (
	markerPattern     = regexp.MustCompile(`(?m)(?:^|\r)(\d{1,4})\.`)
	markerLinePattern = regexp.MustCompile(`^\d{1,4}\.\s`)
)

// Span is one raw entry cut out of the source text.
type Span struct {
	Number string // digits of the marker, verbatim
	Raw    string // span from the marker up to the next marker, trimmed
	Offset int    // byte offset of the marker in the source text
}

// IsMarkerLine reports whether line begins with an entry marker.
func IsMarkerLine(line string) bool {
	return markerLinePattern.MatchString(line)
}

// Segment splits text into marker-delimited spans in order of appearance.
// Numbers are not validated against each other; a line-leading date such as
// "1920. was a hard year" starts a new span like any other marker. Lines may
// end in \n, \r\n or \r. Text with no markers yields nil.
func Segment(text string) []Span {
	var locs [][]int
	for _, loc := range markerPattern.FindAllStringSubmatchIndex(text, -1) {
		if loc[1] < len(text) && isMarkerSpace(text[loc[1]]) {
			locs = append(locs, loc)
		}
	}
	if len(locs) == 0 {
		return nil
	}

	segs := make([]Span, 0, len(locs))
	for i, loc := range locs {
		// loc[2] is the first digit; loc[0] may sit on a preceding \r.
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][2]
		}
		segs = append(segs, Span{
			Number: text[loc[2]:loc[3]],
			Raw:    strings.TrimSpace(text[loc[2]:end]),
			Offset: loc[2],
		})
	}
	return segs
}

// isMarkerSpace matches the ASCII whitespace of the \s class.
func isMarkerSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}
