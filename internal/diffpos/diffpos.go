package diffpos

import (
	"regexp"
	"strconv"
	"strings"
)

var hunkHeader = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// Index holds the diff position of every addition line in one patch.
type Index struct {
	positions []int
}

// NewIndex scans patch once and records the position of each addition line.
func NewIndex(patch string) *Index {
	return &Index{positions: AddedLinePositions(patch)}
}

// Len returns the number of addition lines in the patch.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.positions)
}

// Positions returns a copy of the position table.
func (ix *Index) Positions() []int {
	if ix == nil {
		return nil
	}
	out := make([]int, len(ix.positions))
	copy(out, ix.positions)
	return out
}

// Resolve returns the diff position of the ordinal-th addition line (1-based).
func (ix *Index) Resolve(ordinal int) (int, bool) {
	if ix == nil || ordinal <= 0 || ordinal > len(ix.positions) {
		return 0, false
	}
	return ix.positions[ordinal-1], true
}

// AddedLinePositions returns, in order, the diff position of each addition
// line in patch. The result is strictly increasing.
func AddedLinePositions(patch string) []int {
	if patch == "" {
		return nil
	}
	var positions []int
	for i, line := range strings.Split(patch, "\n") {
		if isAddition(line) {
			positions = append(positions, i+1)
		}
	}
	return positions
}

// Resolve is a one-shot lookup for callers that do not keep an Index.
func Resolve(patch string, ordinal int) (int, bool) {
	return NewIndex(patch).Resolve(ordinal)
}

// FileLine returns the new-file line number of the ordinal-th addition line,
// counted from the hunk headers. It reports false when the ordinal is out of
// range or the addition precedes any hunk header.
func FileLine(patch string, ordinal int) (int, bool) {
	if ordinal <= 0 {
		return 0, false
	}
	next, seen := 0, 0
	for _, line := range strings.Split(patch, "\n") {
		if m := hunkHeader.FindStringSubmatch(line); m != nil {
			next, _ = strconv.Atoi(m[1])
			continue
		}
		switch {
		case isAddition(line):
			seen++
			if seen == ordinal {
				return next, next > 0
			}
			next++
		case strings.HasPrefix(line, " "):
			next++
		}
	}
	return 0, false
}

func isAddition(line string) bool {
	return strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++")
}
