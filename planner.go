package sbpatch

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// PlanOps computes the ordered list of line-level operations that turn
// originalText into targetText. Anchors are expressed in the original
// line sequence and never shifted: unchanged runs advance the cursor,
// removed runs emit a Remove and advance it, added runs emit an Insert
// and leave it in place so a later run at the same position still
// anchors there.
//
// An empty plan means the document is already at the target state.
func PlanOps(originalText, targetText string) []Op {
	original := strings.Join(splitLines(originalText), "\n")
	target := strings.Join(splitLines(targetText), "\n")
	if original == target {
		return nil
	}

	dmp := diffmatchpatch.New()
	rOld, rNew, lineArray := dmp.DiffLinesToRunes(original, target)
	diffs := dmp.DiffMainRunes(rOld, rNew, false)
	diffs = dmp.DiffCleanupMerge(diffs)

	// Each rune stands for one line in lineArray; map it back and drop
	// the terminator the encoding carries.
	decode := func(s string) []string {
		var out []string
		for _, r := range s {
			if idx := int(r); idx >= 0 && idx < len(lineArray) {
				out = append(out, strings.TrimSuffix(lineArray[idx], "\n"))
			}
		}
		return out
	}

	var ops []Op
	index := 0
	anchor := -1 // start of the removed run just emitted, if any
	for _, d := range diffs {
		lines := decode(d.Text)
		if len(lines) == 0 {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			index += len(lines)
			anchor = -1
		case diffmatchpatch.DiffDelete:
			anchor = index
			ops = append(ops, Op{Kind: OpRemove, Index: index, Count: len(lines)})
			index += len(lines)
		case diffmatchpatch.DiffInsert:
			// an insert adjacent to a removal shares its anchor, so the
			// pair merges into a single replacement group
			at := index
			if anchor >= 0 {
				at = anchor
			}
			ops = append(ops, Op{Kind: OpInsert, Index: at, Lines: lines})
			anchor = -1
		}
	}
	return ops
}
