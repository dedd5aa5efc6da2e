package sbpatch

import (
	"context"
	"time"
)

// SnapshotProvider reads the canonical state of a named document.
type SnapshotProvider interface {
	// Snapshot returns the document's lines in rendering order plus an
	// opaque revision marker.
	Snapshot(ctx context.Context, doc string) ([]Line, Revision, error)
}

// FastMutator is the structured line-mutation bridge. Indexes are
// 0-based positions in the live document. Methods return a wrapped
// ErrFastUnavailable when the bridge turns out to be absent or broken;
// the engine then falls back to simulated input.
type FastMutator interface {
	UpdateLine(ctx context.Context, text string, index int) error
	InsertLine(ctx context.Context, text string, index int) error
	WaitForCommit(ctx context.Context) error
}

// FastCapable is implemented by hosts that may expose the structured
// bridge. The probe runs at patch time; returning false is not an
// error.
type FastCapable interface {
	Fast() (FastMutator, bool)
}

// IDSelector names an addressing convention for a stable line
// identifier. The live schema may expose the identifier under any of
// these; the locator tries them in order.
type IDSelector string

const (
	SelectorDOMID   IDSelector = "dom-id"
	SelectorDataID  IDSelector = "data-id"
	SelectorDataLID IDSelector = "data-lid"
)

// Key is a named input action for the simulated input path.
//
// Contracts the engine relies on:
//   - KeyDelete removes the active selection if there is one (a no-op
//     when the selection is empty); otherwise it collapses the line
//     break adjoining the cursor, merging the (empty) current line
//     with its neighbor.
//   - KeyLineBreak splits the line at the cursor; the cursor ends at
//     the start of the second segment.
//   - KeyLineStart / KeyLineEnd move the cursor within the focused
//     line.
type Key string

const (
	KeySelectAll Key = "select-all"
	KeyDelete    Key = "delete"
	KeyLineStart Key = "line-start"
	KeyLineEnd   Key = "line-end"
	KeyLineBreak Key = "line-break"
)

// LineHandle addresses one concrete line element in the live document.
// A handle is only valid until the next mutation.
type LineHandle interface {
	ScrollIntoView(ctx context.Context) error
	Focus(ctx context.Context) error

	// SelectContent selects the line's entire content. Selecting an
	// empty line is a no-op.
	SelectContent(ctx context.Context) error
}

// DocumentSurface exposes single-strategy line lookups against the
// current live document. Each lookup returns ErrLineNotFound (wrapped
// or bare) on a miss so the locator can move to the next strategy.
type DocumentSurface interface {
	LineByID(ctx context.Context, sel IDSelector, id string) (LineHandle, error)
	LineAt(ctx context.Context, index int) (LineHandle, error)
	LineByText(ctx context.Context, text string) (LineHandle, error)
}

// SlowInput is the simulated input surface: line lookups plus focused
// key and text input. Type inserts literal text at the cursor; line
// separators in the text rely on the editor's own line-splitting.
type SlowInput interface {
	DocumentSurface

	Press(ctx context.Context, key Key) error
	Type(ctx context.Context, text string) error
	Sleep(ctx context.Context, d time.Duration) error
}
