package sbpatch

import "errors"

var (
	// ErrNoPatchFound means the diff text contained no applicable
	// file patch.
	ErrNoPatchFound = errors.New("no patch found in diff text")

	// ErrPatchApplyFailed means the patch hunks could not be
	// reconciled with the base text within the fuzz tolerance.
	ErrPatchApplyFailed = errors.New("patch does not apply to base text")

	// ErrConcurrentModification means the document's revision changed
	// between the initial snapshot and the pre-mutation re-check.
	ErrConcurrentModification = errors.New("document changed since snapshot")

	// ErrLineNotFound means every locator strategy was exhausted
	// without resolving the referenced line.
	ErrLineNotFound = errors.New("line not found in live document")

	// ErrVerificationFailed means the document text after mutation did
	// not match the computed target; the document may be partially
	// edited.
	ErrVerificationFailed = errors.New("post-apply text does not match target")

	// ErrFastUnavailable marks the structured mutation bridge as
	// absent or broken. It is never surfaced to callers: the engine
	// folds it into slow-path fallback. Hosts return it (wrapped) from
	// FastMutator methods when the capability is missing; any other
	// error from the fast path is fatal.
	ErrFastUnavailable = errors.New("fast mutation bridge unavailable")
)
