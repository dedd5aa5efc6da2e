package sbpatch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var hunkHeaderPattern = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Hunk is one change block of a unified diff. Starts are 1-based line
// numbers as written in the hunk header; Lines keep their ' ', '-' or
// '+' prefix.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []string
}

// Patch is a single-file unified diff.
type Patch struct {
	OldPath string
	NewPath string
	Hunks   []Hunk
}

// ParsePatch extracts the first file patch from unified-diff text.
// Subsequent file sections are ignored. Diffs without ---/+++ headers
// are accepted as long as they carry hunk headers.
func ParsePatch(diffText string) (*Patch, error) {
	p := &Patch{}
	var cur *Hunk

	flush := func() {
		if cur != nil && len(cur.Lines) > 0 {
			p.Hunks = append(p.Hunks, *cur)
		}
		cur = nil
	}

	// split via splitLines so a terminating newline does not leave a
	// phantom empty element that would read as blank context
	lines := splitLines(diffText)
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if strings.HasPrefix(line, "--- ") {
			if len(p.Hunks) > 0 || cur != nil {
				break // next file section
			}
			p.OldPath = strings.TrimSpace(line[4:])
			continue
		}
		if strings.HasPrefix(line, "+++ ") {
			if len(p.Hunks) > 0 || cur != nil {
				break
			}
			p.NewPath = strings.TrimSpace(line[4:])
			continue
		}

		if m := hunkHeaderPattern.FindStringSubmatch(line); m != nil {
			flush()
			cur = &Hunk{
				OldStart: atoiDefault(m[1], 0),
				OldCount: atoiDefault(m[2], 1),
				NewStart: atoiDefault(m[3], 0),
				NewCount: atoiDefault(m[4], 1),
			}
			continue
		}

		if cur == nil {
			continue
		}

		switch {
		case strings.HasPrefix(line, "\\"):
			// "\ No newline at end of file"
		case line == "":
			// some producers drop the space prefix on blank context
			cur.Lines = append(cur.Lines, " ")
		case line[0] == ' ' || line[0] == '+' || line[0] == '-':
			cur.Lines = append(cur.Lines, line)
		default:
			flush()
		}
	}
	flush()

	if len(p.Hunks) == 0 {
		return nil, ErrNoPatchFound
	}
	return p, nil
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Apply computes the post-patch text from base. fuzz is the number of
// context lines per hunk that may mismatch the base while the hunk is
// still considered applicable; removed lines must always match.
// Candidate positions are searched nearest-first around the position
// the hunk header declares.
func (p *Patch) Apply(base string, fuzz int) (string, error) {
	src := splitLines(base)
	var out []string
	srcIdx := 0

	for hi, h := range p.Hunks {
		pos, ok := locateHunk(src, h, srcIdx, fuzz)
		if !ok {
			return "", fmt.Errorf("hunk %d/%d at line %d: %w", hi+1, len(p.Hunks), h.OldStart, ErrPatchApplyFailed)
		}

		out = append(out, src[srcIdx:pos]...)
		srcIdx = pos

		for _, l := range h.Lines {
			switch l[0] {
			case '+':
				out = append(out, l[1:])
			case '-':
				srcIdx++
			default:
				// keep the base's own line so fuzzed context does not
				// rewrite what the document actually contains
				if srcIdx < len(src) {
					out = append(out, src[srcIdx])
					srcIdx++
				} else {
					out = append(out, l[1:])
				}
			}
		}
	}

	out = append(out, src[srcIdx:]...)
	return strings.Join(out, "\n"), nil
}

// locateHunk finds the 0-based position in src where h applies, never
// before floor (lines already consumed by earlier hunks).
func locateHunk(src []string, h Hunk, floor, fuzz int) (int, bool) {
	var old []string   // content the hunk expects in the base
	var context []bool // whether each expected line is context
	for _, l := range h.Lines {
		switch l[0] {
		case ' ':
			old = append(old, l[1:])
			context = append(context, true)
		case '-':
			old = append(old, l[1:])
			context = append(context, false)
		}
	}

	expected := h.OldStart - 1
	if h.OldCount == 0 {
		// "-l,0" means the hunk inserts after line l
		expected = h.OldStart
	}

	if len(old) == 0 {
		return clamp(expected, floor, len(src)), true
	}

	matches := func(pos int) bool {
		if pos < floor || pos+len(old) > len(src) {
			return false
		}
		mismatched := 0
		for j, want := range old {
			if src[pos+j] == want {
				continue
			}
			if !context[j] {
				return false
			}
			mismatched++
			if mismatched > fuzz {
				return false
			}
		}
		return true
	}

	// scan until both directions have left the valid position range, so
	// a bogus header start still reaches every candidate
	maxPos := len(src) - len(old)
	for d := 0; expected+d <= maxPos || expected-d >= floor; d++ {
		if matches(expected + d) {
			return expected + d, true
		}
		if d > 0 && matches(expected-d) {
			return expected - d, true
		}
	}
	return 0, false
}

// Reverse returns the patch that undoes p.
func (p *Patch) Reverse() *Patch {
	r := &Patch{OldPath: p.NewPath, NewPath: p.OldPath}
	for _, h := range p.Hunks {
		rh := Hunk{
			OldStart: h.NewStart,
			OldCount: h.NewCount,
			NewStart: h.OldStart,
			NewCount: h.OldCount,
		}
		for _, l := range h.Lines {
			switch l[0] {
			case '+':
				rh.Lines = append(rh.Lines, "-"+l[1:])
			case '-':
				rh.Lines = append(rh.Lines, "+"+l[1:])
			default:
				rh.Lines = append(rh.Lines, l)
			}
		}
		r.Hunks = append(r.Hunks, rh)
	}
	return r
}

// Format renders the patch back to unified-diff text.
func (p *Patch) Format() string {
	var b strings.Builder
	if p.OldPath != "" || p.NewPath != "" {
		fmt.Fprintf(&b, "--- %s\n", p.OldPath)
		fmt.Fprintf(&b, "+++ %s\n", p.NewPath)
	}
	for _, h := range p.Hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, l := range h.Lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// splitLines splits document text into its line sequence, trimming the
// artifact a trailing separator leaves behind. The empty document has
// zero lines.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

func joinLines(lines []Line) string {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return strings.Join(texts, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
