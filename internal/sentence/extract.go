package sentence

import "strings"

// Fields maps each tag found in a line to its raw, trimmed value.
// Tags whose marker does not occur are absent.
type Fields map[Tag]string

// Lookup returns the raw value for tag and whether its marker was found.
func (f Fields) Lookup(tag Tag) (string, bool) {
	v, ok := f[tag]
	return v, ok
}

// Normalize collapses every run of whitespace to a single space and trims
// both ends.
func Normalize(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// Extract splits a line into raw tag values. It performs no validation.
//
// Markers are located by plain substring search: a tag starts at the first
// occurrence of its marker, and its value runs up to the earliest occurrence,
// after that point, of any tag later in the grammar order. Marker text is not
// escaped, so a marker appearing inside a free-form value (for example an id
// containing "POLICY:") splits the line there. Use MarkersStrict to reject
// such lines instead.
func Extract(line string) Fields {
	line = Normalize(line)
	fields := make(Fields)

	// Pass one: first occurrence of every marker.
	starts := make([]int, len(grammar))
	for i, tag := range grammar {
		starts[i] = strings.Index(line, tag.Marker())
	}

	// Pass two: cut each present tag at the next later tag that occurs after it.
	for i, tag := range grammar {
		if starts[i] < 0 {
			continue
		}
		from := starts[i] + len(tag.Marker())
		end := len(line)
		for _, next := range grammar[i+1:] {
			if j := strings.Index(line[from:], next.Marker()); j >= 0 && from+j < end {
				end = from + j
			}
		}
		fields[tag] = strings.TrimSpace(line[from:end])
	}
	return fields
}

// checkMarkers enforces the strict marker policy on a normalized line: each
// marker may occur at most once, must start a token, and present markers
// must appear in grammar order.
func checkMarkers(line string) error {
	last := -1
	var lastTag Tag
	for _, tag := range grammar {
		marker := tag.Marker()
		if n := strings.Count(line, marker); n > 1 {
			return newError(GrammarError, tag, "marker %q occurs %d times", marker, n)
		}
		idx := strings.Index(line, marker)
		if idx < 0 {
			continue
		}
		if idx > 0 && line[idx-1] != ' ' {
			return newError(GrammarError, tag, "marker %q appears inside another value", marker)
		}
		if idx < last {
			return newError(GrammarError, tag, "marker %q appears before %q", marker, lastTag.Marker())
		}
		last, lastTag = idx, tag
	}
	return nil
}
