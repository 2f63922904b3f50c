package caddy

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineDiff describes how a fragment changed, one "+"/"-" line per changed
// line. It is empty when nothing changed.
func LineDiff(before, after []byte) string {
	if string(before) == string(after) {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(strings.TrimSuffix(line, "\n"))
			out.WriteString("\n")
		}
	}
	return out.String()
}
