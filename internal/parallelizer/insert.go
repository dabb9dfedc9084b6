package parallelizer

import (
	"slices"
	"strings"
)

// Insertion is a line of text to place before line Line of a function body.
// Line is 0-based and relative to the first line of the function.
type Insertion struct {
	Text string `json:"text"`
	Line int    `json:"line"`
}

type numberedLine struct {
	index int // -1 for inserted lines
	text  string
}

// InsertLines splices insertions into raw, each one immediately before the
// original line it names. Inserted lines never serve as anchors, so several
// insertions on the same line appear in the order given. The batch is all or
// nothing: if any insertion names a line raw does not have, the result is "".
func InsertLines(raw string, insertions []Insertion) string {
	if len(insertions) == 0 {
		return raw
	}
	if raw == "" {
		return ""
	}

	src := strings.Split(raw, "\n")
	lines := make([]numberedLine, len(src))
	for i, text := range src {
		lines[i] = numberedLine{index: i, text: text}
	}

	for _, ins := range insertions {
		if ins.Line < 0 || ins.Line >= len(src) {
			return ""
		}
		pos := slices.IndexFunc(lines, func(l numberedLine) bool { return l.index == ins.Line })
		if pos < 0 {
			return ""
		}
		lines = slices.Insert(lines, pos, numberedLine{index: -1, text: ins.Text})
	}

	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.text
	}
	return strings.Join(out, "\n")
}
