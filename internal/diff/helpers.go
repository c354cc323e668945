package diff

import "bytes"

// splitLines drops one trailing newline so "a\n" is a single line. Empty
// content has no lines.
func splitLines(content []byte) [][]byte {
	if len(content) == 0 {
		return nil
	}
	return bytes.Split(bytes.TrimSuffix(content, []byte{'\n'}), []byte{'\n'})
}

func spans(lines []Line) []Span {
	var out []Span
	for _, line := range lines {
		if n := len(out); n > 0 && out[n-1].Type == line.Type {
			out[n-1].Lines = append(out[n-1].Lines, line.Content)
			continue
		}
		out = append(out, Span{Type: line.Type, Lines: []string{line.Content}})
	}
	return out
}

// hunks groups changed lines with up to contextLines of equal lines around
// them. Changes separated by no more than twice the context share a hunk.
func (e *Engine) hunks(lines []Line) []Hunk {
	var changes []int
	for i, line := range lines {
		if line.Type != Equal {
			changes = append(changes, i)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	var result []Hunk
	start := max(0, changes[0]-e.contextLines)
	end := changes[0]
	for _, c := range changes[1:] {
		if c-end-1 > 2*e.contextLines {
			result = append(result, newHunk(lines[start:min(len(lines), end+e.contextLines+1)]))
			start = c - e.contextLines
		}
		end = c
	}
	result = append(result, newHunk(lines[start:min(len(lines), end+e.contextLines+1)]))
	return result
}

func newHunk(lines []Line) Hunk {
	h := Hunk{Lines: append([]Line(nil), lines...)}
	for _, line := range lines {
		switch line.Type {
		case Equal:
			h.OldLines++
			h.NewLines++
		case Deleted:
			h.OldLines++
		case Inserted:
			h.NewLines++
		}
		if h.OldStart == 0 && line.OldNum > 0 {
			h.OldStart = line.OldNum
		}
		if h.NewStart == 0 && line.NewNum > 0 {
			h.NewStart = line.NewNum
		}
	}
	return h
}
