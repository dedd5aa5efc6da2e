package sbpatch

import "time"

// Line is one line of a document as last observed. ID is the store's
// stable line identifier when the store exposes one; freshly inserted
// lines may not have an ID yet.
type Line struct {
	ID   string
	Text string
}

// Revision is an opaque marker attached to a snapshot. It is only ever
// compared for equality, never interpreted.
type Revision string

type OpKind int

const (
	OpRemove OpKind = iota
	OpInsert
)

// Op is a single planned edit, anchored at Index in the coordinate
// space of the original line sequence. Remove ops carry Count, insert
// ops carry Lines; the anchor is never recomputed after planning.
type Op struct {
	Kind  OpKind
	Index int
	Count int
	Lines []string
}

// OpGroup is the union of all ops sharing one anchor index: removals
// summed, insertions concatenated in discovery order.
type OpGroup struct {
	Index  int
	Remove int
	Insert []string
}

// LineRef is a logical reference to a line in the live document,
// resolved against the current document state, strongest key first.
type LineRef struct {
	ID    string
	Index int
	Text  string
}

type Options struct {
	// Fuzz is the number of mismatched context lines a hunk may
	// tolerate while still being considered applicable. 0 requires an
	// exact match.
	Fuzz int

	// CheckStaleness re-fetches the document's revision immediately
	// before mutating and aborts if it changed since the snapshot.
	CheckStaleness bool

	// SettleDelay is the pause after each slow-path mutation, letting
	// asynchronous re-rendering catch up. Zero means the default.
	SettleDelay time.Duration

	// DryRun computes the target text without touching the document.
	DryRun bool
}

// Result describes the outcome of a patch call.
type Result struct {
	// Target is the computed post-patch text.
	Target string

	// UpToDate is set when the document already matched the target and
	// no mutation was attempted.
	UpToDate bool

	// Strategy records which apply path ran: "bridge", "input" or
	// "none".
	Strategy string

	Groups   int
	Removed  int
	Inserted int
}
