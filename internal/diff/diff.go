// internal/diff/diff.go
package diff

import (
	"bytes"
	"fmt"
)

// Line represents a single line in a diff with its type and content
type Line struct {
	Type    LineType
	Content string
	OldNum  int
	NewNum  int
}

// LineType indicates whether a line was inserted, deleted, or is shared
type LineType int

const (
	Equal LineType = iota
	Inserted
	Deleted
)

func (t LineType) String() string {
	switch t {
	case Inserted:
		return "inserted"
	case Deleted:
		return "deleted"
	default:
		return "equal"
	}
}

// Span is a run of consecutive lines with the same tag.
type Span struct {
	Type  LineType
	Lines []string
}

// DiffResult contains the complete diff information
type DiffResult struct {
	Spans []Span
	Hunks []Hunk
	// Large is set when the changed region was too big to align and is
	// reported as deleted in full, then inserted in full.
	Large bool
	Stats struct {
		Additions int
		Deletions int
		Changes   int
	}
}

// Hunk represents a continuous section of changes
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// DefaultMaxCells bounds the LCS table of a single diff, about 128 MiB.
const DefaultMaxCells = 1 << 24

// Engine provides diffing capabilities
type Engine struct {
	contextLines int

	// MaxCells caps the LCS table built for the region between the common
	// prefix and suffix of two inputs.
	MaxCells int
}

// NewEngine creates a new diff engine with specified context lines
func NewEngine(contextLines int) *Engine {
	if contextLines < 0 {
		contextLines = 0
	}
	return &Engine{
		contextLines: contextLines,
		MaxCells:     DefaultMaxCells,
	}
}

// Diff aligns the lines of oldContent and newContent on their longest
// common subsequence.
func (e *Engine) Diff(oldContent, newContent []byte) *DiffResult {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	lines, large := e.lines(oldLines, newLines)

	result := &DiffResult{
		Spans: spans(lines),
		Hunks: e.hunks(lines),
		Large: large,
	}
	for _, line := range lines {
		switch line.Type {
		case Inserted:
			result.Stats.Additions++
		case Deleted:
			result.Stats.Deletions++
		}
	}
	result.Stats.Changes = result.Stats.Additions + result.Stats.Deletions
	return result
}

// lines aligns the two inputs. Only the region between their common prefix
// and suffix goes through the LCS table.
func (e *Engine) lines(oldLines, newLines [][]byte) ([]Line, bool) {
	pre := 0
	for pre < len(oldLines) && pre < len(newLines) && bytes.Equal(oldLines[pre], newLines[pre]) {
		pre++
	}
	suf := 0
	for suf < len(oldLines)-pre && suf < len(newLines)-pre &&
		bytes.Equal(oldLines[len(oldLines)-1-suf], newLines[len(newLines)-1-suf]) {
		suf++
	}
	oldMid := oldLines[pre : len(oldLines)-suf]
	newMid := newLines[pre : len(newLines)-suf]

	out := make([]Line, 0, len(oldLines)+len(newMid))
	for i := 0; i < pre; i++ {
		out = append(out, Line{Type: Equal, Content: string(oldLines[i]), OldNum: i + 1, NewNum: i + 1})
	}

	var mid []Line
	large := e.MaxCells > 0 && (len(oldMid)+1)*(len(newMid)+1) > e.MaxCells
	if large {
		mid = replaceAll(oldMid, newMid)
	} else {
		mid = e.align(oldMid, newMid, e.computeLCS(oldMid, newMid))
	}
	for _, line := range mid {
		if line.OldNum > 0 {
			line.OldNum += pre
		}
		if line.NewNum > 0 {
			line.NewNum += pre
		}
		out = append(out, line)
	}

	for k := suf; k > 0; k-- {
		i, j := len(oldLines)-k, len(newLines)-k
		out = append(out, Line{Type: Equal, Content: string(oldLines[i]), OldNum: i + 1, NewNum: j + 1})
	}
	return out, large
}

// replaceAll deletes every old line and inserts every new one.
func replaceAll(oldLines, newLines [][]byte) []Line {
	lines := make([]Line, 0, len(oldLines)+len(newLines))
	for i, l := range oldLines {
		lines = append(lines, Line{Type: Deleted, Content: string(l), OldNum: i + 1})
	}
	for j, l := range newLines {
		lines = append(lines, Line{Type: Inserted, Content: string(l), NewNum: j + 1})
	}
	return lines
}

// computeLCS fills a suffix table: matrix[i][j] is the LCS length of
// oldLines[i:] and newLines[j:].
func (e *Engine) computeLCS(oldLines, newLines [][]byte) [][]int {
	matrix := make([][]int, len(oldLines)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(newLines)+1)
	}

	for i := len(oldLines) - 1; i >= 0; i-- {
		for j := len(newLines) - 1; j >= 0; j-- {
			if bytes.Equal(oldLines[i], newLines[j]) {
				matrix[i][j] = matrix[i+1][j+1] + 1
			} else {
				matrix[i][j] = max(matrix[i+1][j], matrix[i][j+1])
			}
		}
	}

	return matrix
}

// align walks the table front to back. Deletions come before insertions
// at the same position.
func (e *Engine) align(oldLines, newLines [][]byte, lcs [][]int) []Line {
	lines := make([]Line, 0, len(oldLines)+len(newLines))
	i, j := 0, 0
	for i < len(oldLines) || j < len(newLines) {
		switch {
		case i < len(oldLines) && j < len(newLines) && bytes.Equal(oldLines[i], newLines[j]):
			lines = append(lines, Line{Type: Equal, Content: string(oldLines[i]), OldNum: i + 1, NewNum: j + 1})
			i++
			j++
		case i < len(oldLines) && (j == len(newLines) || lcs[i+1][j] >= lcs[i][j+1]):
			lines = append(lines, Line{Type: Deleted, Content: string(oldLines[i]), OldNum: i + 1})
			i++
		default:
			lines = append(lines, Line{Type: Inserted, Content: string(newLines[j]), NewNum: j + 1})
			j++
		}
	}
	return lines
}

// Empty reports whether the two sides were identical.
func (r *DiffResult) Empty() bool {
	return r == nil || r.Stats.Changes == 0
}

// Format returns a string representation of the diff
func (r *DiffResult) Format() string {
	var buf bytes.Buffer

	for _, hunk := range r.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldLines,
			hunk.NewStart, hunk.NewLines)

		for _, line := range hunk.Lines {
			buf.WriteString(Marker(line.Type))
			buf.WriteString(line.Content)
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// Marker is the prefix printed before a line of the given type.
func Marker(t LineType) string {
	switch t {
	case Inserted:
		return "+ "
	case Deleted:
		return "- "
	default:
		return "  "
	}
}
