package sbpatch

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ProgressUpdate reports apply progress in executed operation groups.
type ProgressUpdate func(done, total int)

// Session drives patches against one document host. Sessions hold no
// global state, so multiple sessions can coexist; a single session
// must not run concurrent patches against the same document.
type Session struct {
	snap     SnapshotProvider
	input    SlowInput
	progress ProgressUpdate
}

// NewSession builds a session from injected collaborators. input may
// be nil for read-only use (dry runs, or hosts whose structured bridge
// always succeeds).
func NewSession(snap SnapshotProvider, input SlowInput) (*Session, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot provider is required")
	}
	return &Session{snap: snap, input: input}, nil
}

func (s *Session) SetProgressCallback(cb ProgressUpdate) { s.progress = cb }

// Close releases any resources the providers own. Providers backed by
// the same host are closed once.
func (s *Session) Close() error {
	var firstErr error
	seen := make(map[io.Closer]bool)
	for _, p := range []any{s.input, s.snap} {
		c, ok := p.(io.Closer)
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Patch applies unified-diff text to the named document and verifies
// the outcome against the canonical state. The document is mutated
// incrementally: on error it may be left partially edited, and no
// rollback is attempted. The staleness check narrows the concurrent
// edit window but does not close it; no lock is held through the
// apply phase.
func (s *Session) Patch(ctx context.Context, doc string, diffText string, opts Options) (*Result, error) {
	lines, rev, err := s.snap.Snapshot(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("snapshot %q: %w", doc, err)
	}
	original := joinLines(lines)

	patch, err := ParsePatch(diffText)
	if err != nil {
		return nil, err
	}
	target, err := patch.Apply(original, opts.Fuzz)
	if err != nil {
		return nil, err
	}

	res := &Result{Target: target, Strategy: "none"}
	if opts.DryRun {
		return res, nil
	}

	ops := PlanOps(original, target)
	if len(ops) == 0 {
		res.UpToDate = true
		return res, nil
	}
	groups := GroupOps(ops)
	res.Groups = len(groups)
	for _, g := range groups {
		res.Removed += g.Remove
		res.Inserted += len(g.Insert)
	}

	if opts.CheckStaleness {
		_, now, err := s.snap.Snapshot(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("staleness re-check %q: %w", doc, err)
		}
		if now != rev {
			return nil, fmt.Errorf("document %q revision %q changed to %q: %w", doc, rev, now, ErrConcurrentModification)
		}
	}

	settle := opts.SettleDelay
	if settle <= 0 {
		settle = defaultSettleDelay
	}
	eng := &engine{
		input:    s.input,
		fast:     s.fastMutator(),
		settle:   settle,
		progress: s.progress,
	}

	strategy, err := eng.run(ctx, lines, splitLines(target), groups)
	if err != nil {
		return nil, err
	}
	res.Strategy = strategy

	if err := s.verify(ctx, doc, target, strategy); err != nil {
		return nil, err
	}
	return res, nil
}

// fastMutator probes the providers for the structured bridge. Absence
// is not an error.
func (s *Session) fastMutator() FastMutator {
	for _, p := range []any{s.input, s.snap} {
		if fc, ok := p.(FastCapable); ok {
			if fm, ok := fc.Fast(); ok && fm != nil {
				return fm
			}
		}
	}
	return nil
}

// verify re-reads the canonical document text. No slow-path step is
// individually trustworthy, so only this end-to-end re-read certifies
// success. The bridge's shrink path blanks excess lines instead of
// deleting them; exactly that residue is tolerated after a bridge
// apply.
func (s *Session) verify(ctx context.Context, doc, target, strategy string) error {
	lines, _, err := s.snap.Snapshot(ctx, doc)
	if err != nil {
		return fmt.Errorf("verify %q: %w", doc, err)
	}
	actual := joinLines(lines)
	if actual == target {
		return nil
	}
	if strategy == "bridge" && strings.TrimRight(actual, "\n") == target {
		return nil
	}
	return fmt.Errorf("document %q: %d lines read back vs %d planned (document may be partially edited): %w",
		doc, len(lines), len(splitLines(target)), ErrVerificationFailed)
}
