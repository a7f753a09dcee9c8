package blueprint

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns a line diff between the indented JSON encodings of two
// blocks, or "" when they encode identically.
func Diff(want, got Block) (string, error) {
	a, err := Encode(want)
	if err != nil {
		return "", err
	}
	b, err := Encode(got)
	if err != nil {
		return "", err
	}
	if string(a) == string(b) {
		return "", nil
	}

	dmp := diffmatchpatch.New()
	wantLines, gotLines, lines := dmp.DiffLinesToRunes(string(a), string(b))
	diffs := dmp.DiffMainRunes(wantLines, gotLines, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
		}
	}
	out := sb.String()
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out, nil
}

// Equal reports whether two blocks encode to the same JSON.
func Equal(a, b Block) bool {
	d, err := Diff(a, b)
	return err == nil && d == ""
}
