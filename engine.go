package sbpatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const defaultSettleDelay = 100 * time.Millisecond

// engine executes one planned patch against the live document. It is
// strictly sequential: the document is shared, externally rendered
// state, and concurrent simulated input would race on cursor focus.
type engine struct {
	input    SlowInput
	fast     FastMutator
	settle   time.Duration
	progress func(done, total int)
}

// run tries the structured bridge first, then simulated input. Only a
// capability-unavailable result folds into fallback; any other fast
// path error is fatal.
func (e *engine) run(ctx context.Context, snapshot []Line, target []string, groups []OpGroup) (string, error) {
	if e.fast != nil {
		err := e.applyFast(ctx, snapshot, target)
		switch {
		case err == nil:
			e.report(len(groups), len(groups))
			return "bridge", nil
		case errors.Is(err, ErrFastUnavailable):
			// silent fallback; the probe never surfaces to the caller
		default:
			return "", err
		}
	}

	if e.input == nil {
		return "", fmt.Errorf("document host exposes no input surface for the slow path")
	}
	if err := e.applySlow(ctx, snapshot, groups); err != nil {
		return "", err
	}
	return "input", nil
}

// applyFast pushes the full target line list through the mutation
// bridge: rewrite differing lines in the overlap, append the extra
// tail, and blank lines past the target's end. The bridge has no
// delete primitive, so shrinking leaves empty placeholder lines.
func (e *engine) applyFast(ctx context.Context, snapshot []Line, target []string) error {
	overlap := len(snapshot)
	if len(target) < overlap {
		overlap = len(target)
	}
	for i := 0; i < overlap; i++ {
		if snapshot[i].Text == target[i] {
			continue
		}
		if err := e.fast.UpdateLine(ctx, target[i], i); err != nil {
			return err
		}
	}
	for i := len(snapshot); i < len(target); i++ {
		if err := e.fast.InsertLine(ctx, target[i], i); err != nil {
			return err
		}
	}
	for i := len(target); i < len(snapshot); i++ {
		if err := e.fast.UpdateLine(ctx, "", i); err != nil {
			return err
		}
	}
	return e.fast.WaitForCommit(ctx)
}

func (e *engine) applySlow(ctx context.Context, snapshot []Line, groups []OpGroup) error {
	for i, g := range groups {
		if err := e.removeLines(ctx, snapshot, g); err != nil {
			return err
		}
		if err := e.insertLines(ctx, snapshot, g); err != nil {
			return err
		}
		e.report(i+1, len(groups))
	}
	return nil
}

// removeLines deletes g.Remove lines anchored at g.Index. After each
// removal the next doomed line slides down to the anchor position, so
// every iteration resolves live position g.Index using the snapshot
// record of the line that now occupies it.
func (e *engine) removeLines(ctx context.Context, snapshot []Line, g OpGroup) error {
	for r := 0; r < g.Remove; r++ {
		snapIdx := g.Index + r
		if snapIdx >= len(snapshot) {
			return fmt.Errorf("remove %d of %d at anchor %d: snapshot has only %d lines: %w",
				r+1, g.Remove, g.Index, len(snapshot), ErrLineNotFound)
		}
		ref := LineRef{ID: snapshot[snapIdx].ID, Index: g.Index, Text: snapshot[snapIdx].Text}

		h, err := ResolveLine(ctx, e.input, ref)
		if err != nil {
			return err
		}
		if err := h.ScrollIntoView(ctx); err != nil {
			return err
		}
		if err := h.Focus(ctx); err != nil {
			return err
		}
		if err := h.SelectContent(ctx); err != nil {
			return err
		}
		// two discrete deletions: the selected content, then the line
		// break left behind
		if err := e.input.Press(ctx, KeyDelete); err != nil {
			return err
		}
		if err := e.input.Press(ctx, KeyDelete); err != nil {
			return err
		}
		if err := e.input.Sleep(ctx, e.settle); err != nil {
			return err
		}
	}
	return nil
}

func (e *engine) insertLines(ctx context.Context, snapshot []Line, g OpGroup) error {
	if len(g.Insert) == 0 {
		return nil
	}
	if len(snapshot) == 0 {
		return fmt.Errorf("insert at anchor %d into empty document: %w", g.Index, ErrLineNotFound)
	}

	// joined with the separator so the editor's own line-splitting
	// produces one element per inserted line
	text := strings.Join(g.Insert, "\n")

	if g.Index == 0 {
		// anchor on what remains as the first line after this group's
		// removals and insert above it
		snapIdx := clamp(g.Remove, 0, len(snapshot)-1)
		ref := LineRef{ID: snapshot[snapIdx].ID, Index: 0, Text: snapshot[snapIdx].Text}

		h, err := ResolveLine(ctx, e.input, ref)
		if err != nil {
			return err
		}
		if err := h.ScrollIntoView(ctx); err != nil {
			return err
		}
		if err := h.Focus(ctx); err != nil {
			return err
		}
		if err := e.input.Press(ctx, KeyLineStart); err != nil {
			return err
		}
		if err := e.input.Type(ctx, text); err != nil {
			return err
		}
		// the break separates the typed lines from the anchor's
		// content, which becomes the line below
		if err := e.input.Press(ctx, KeyLineBreak); err != nil {
			return err
		}
		return e.input.Sleep(ctx, e.settle)
	}

	snapIdx := clamp(g.Index-1, 0, len(snapshot)-1)
	ref := LineRef{ID: snapshot[snapIdx].ID, Index: snapIdx, Text: snapshot[snapIdx].Text}

	h, err := ResolveLine(ctx, e.input, ref)
	if err != nil {
		return err
	}
	if err := h.ScrollIntoView(ctx); err != nil {
		return err
	}
	if err := h.Focus(ctx); err != nil {
		return err
	}
	if err := e.input.Press(ctx, KeyLineEnd); err != nil {
		return err
	}
	if err := e.input.Press(ctx, KeyLineBreak); err != nil {
		return err
	}
	if err := e.input.Type(ctx, text); err != nil {
		return err
	}
	return e.input.Sleep(ctx, e.settle)
}

func (e *engine) report(done, total int) {
	if e.progress != nil {
		e.progress(done, total)
	}
}
