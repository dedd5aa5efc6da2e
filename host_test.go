package sbpatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// fakeHost is an in-memory document host implementing all three
// provider roles with the editor semantics the Key contract promises.
// It records every mutating call so tests can assert on them.
type fakeHost struct {
	lines []Line
	rev   int

	fastEnabled bool
	fastBroken  bool
	fastErr     error // non-nil makes fast ops fail with this error
	committed   bool

	curLine   int
	curCol    int
	selecting bool
	selEmpty  bool

	mutations  []string
	snapshots  int
	idLookups  []IDSelector
	onSnapshot func(h *fakeHost)
}

func newFakeHost(texts ...string) *fakeHost {
	h := &fakeHost{}
	for i, t := range texts {
		h.lines = append(h.lines, Line{ID: "id" + strconv.Itoa(i), Text: t})
	}
	return h
}

func (h *fakeHost) text() string { return joinLines(h.lines) }

func (h *fakeHost) Snapshot(ctx context.Context, doc string) ([]Line, Revision, error) {
	h.snapshots++
	if h.onSnapshot != nil {
		h.onSnapshot(h)
	}
	out := make([]Line, len(h.lines))
	copy(out, h.lines)
	return out, Revision(strconv.Itoa(h.rev)), nil
}

func (h *fakeHost) Fast() (FastMutator, bool) {
	if !h.fastEnabled {
		return nil, false
	}
	return &fakeFast{h: h}, true
}

type fakeFast struct {
	h *fakeHost
}

func (f *fakeFast) fail() error {
	if f.h.fastErr != nil {
		return f.h.fastErr
	}
	if f.h.fastBroken {
		return fmt.Errorf("bridge call failed: %w", ErrFastUnavailable)
	}
	return nil
}

func (f *fakeFast) UpdateLine(ctx context.Context, text string, index int) error {
	if err := f.fail(); err != nil {
		return err
	}
	if index < 0 || index >= len(f.h.lines) {
		return fmt.Errorf("update index %d out of range", index)
	}
	f.h.lines[index].Text = text
	f.h.rev++
	f.h.mutations = append(f.h.mutations, fmt.Sprintf("update %d %q", index, text))
	return nil
}

func (f *fakeFast) InsertLine(ctx context.Context, text string, index int) error {
	if err := f.fail(); err != nil {
		return err
	}
	if index < 0 || index > len(f.h.lines) {
		return fmt.Errorf("insert index %d out of range", index)
	}
	rest := append([]Line{{Text: text}}, f.h.lines[index:]...)
	f.h.lines = append(f.h.lines[:index:index], rest...)
	f.h.rev++
	f.h.mutations = append(f.h.mutations, fmt.Sprintf("insert %d %q", index, text))
	return nil
}

func (f *fakeFast) WaitForCommit(ctx context.Context) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.h.committed = true
	return nil
}

func (h *fakeHost) LineByID(ctx context.Context, sel IDSelector, id string) (LineHandle, error) {
	h.idLookups = append(h.idLookups, sel)
	// only one addressing convention is live on this host
	if sel != SelectorDataID {
		return nil, ErrLineNotFound
	}
	for i, l := range h.lines {
		if l.ID != "" && l.ID == id {
			return &fakeLine{h: h, index: i}, nil
		}
	}
	return nil, ErrLineNotFound
}

func (h *fakeHost) LineAt(ctx context.Context, index int) (LineHandle, error) {
	if index < 0 || index >= len(h.lines) {
		return nil, ErrLineNotFound
	}
	return &fakeLine{h: h, index: index}, nil
}

func (h *fakeHost) LineByText(ctx context.Context, text string) (LineHandle, error) {
	for i, l := range h.lines {
		if l.Text == text {
			return &fakeLine{h: h, index: i}, nil
		}
	}
	return nil, ErrLineNotFound
}

func (h *fakeHost) Press(ctx context.Context, key Key) error {
	switch key {
	case KeySelectAll:
		h.selecting = true
		h.selEmpty = h.text() == ""
	case KeyDelete:
		if h.selecting {
			h.selecting = false
			if !h.selEmpty {
				h.lines[h.curLine].Text = ""
				h.curCol = 0
				h.mutate("clear %d", h.curLine)
			}
			return nil
		}
		h.collapse()
	case KeyLineStart:
		h.curCol = 0
	case KeyLineEnd:
		h.curCol = len(h.lines[h.curLine].Text)
	case KeyLineBreak:
		h.breakLine()
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

func (h *fakeHost) collapse() {
	switch {
	case h.curLine < len(h.lines)-1:
		h.lines[h.curLine].Text += h.lines[h.curLine+1].Text
		h.lines = append(h.lines[:h.curLine+1], h.lines[h.curLine+2:]...)
	case h.curLine > 0:
		h.curCol = len(h.lines[h.curLine-1].Text)
		h.lines[h.curLine-1].Text += h.lines[h.curLine].Text
		h.lines = h.lines[:h.curLine]
		h.curLine--
	default:
		return // single line, nothing to merge with
	}
	h.mutate("collapse %d", h.curLine)
}

func (h *fakeHost) breakLine() {
	text := h.lines[h.curLine].Text
	before, after := text[:h.curCol], text[h.curCol:]
	h.lines[h.curLine].Text = before
	rest := append([]Line{{Text: after}}, h.lines[h.curLine+1:]...)
	h.lines = append(h.lines[:h.curLine+1:h.curLine+1], rest...)
	h.curLine++
	h.curCol = 0
	h.mutate("break %d", h.curLine)
}

func (h *fakeHost) Type(ctx context.Context, text string) error {
	h.selecting = false
	parts := strings.Split(text, "\n")
	for i, part := range parts {
		cur := h.lines[h.curLine].Text
		h.lines[h.curLine].Text = cur[:h.curCol] + part + cur[h.curCol:]
		h.curCol += len(part)
		h.mutate("type %d %q", h.curLine, part)
		if i < len(parts)-1 {
			h.breakLine()
		}
	}
	return nil
}

func (h *fakeHost) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (h *fakeHost) mutate(format string, args ...any) {
	h.rev++
	h.mutations = append(h.mutations, fmt.Sprintf(format, args...))
}

type fakeLine struct {
	h     *fakeHost
	index int
}

func (l *fakeLine) ScrollIntoView(ctx context.Context) error { return nil }

func (l *fakeLine) Focus(ctx context.Context) error {
	l.h.curLine = l.index
	l.h.curCol = 0
	l.h.selecting = false
	return nil
}

func (l *fakeLine) SelectContent(ctx context.Context) error {
	l.h.selecting = true
	l.h.selEmpty = l.h.lines[l.index].Text == ""
	return nil
}
