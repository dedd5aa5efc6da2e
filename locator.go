package sbpatch

import (
	"context"
	"errors"
	"fmt"
)

// idSelectors are the addressing conventions tried against a stable
// line identifier, in order. Stores differ in where they expose it.
var idSelectors = []IDSelector{SelectorDOMID, SelectorDataID, SelectorDataLID}

// ResolveLine resolves a logical line reference to a concrete element
// of the live document, first success wins: the stable id under each
// addressing convention, then the line at the ordinal position, then
// the first visible line with exactly the referenced text.
//
// Every strategy runs against the current document, not a cached
// snapshot; line elements may have been re-rendered since the snapshot
// was taken.
func ResolveLine(ctx context.Context, doc DocumentSurface, ref LineRef) (LineHandle, error) {
	if ref.ID != "" {
		for _, sel := range idSelectors {
			h, err := doc.LineByID(ctx, sel, ref.ID)
			if err == nil && h != nil {
				return h, nil
			}
			if err != nil && !errors.Is(err, ErrLineNotFound) {
				return nil, err
			}
		}
	}

	if ref.Index >= 0 {
		h, err := doc.LineAt(ctx, ref.Index)
		if err == nil && h != nil {
			return h, nil
		}
		if err != nil && !errors.Is(err, ErrLineNotFound) {
			return nil, err
		}
	}

	if ref.Text != "" {
		h, err := doc.LineByText(ctx, ref.Text)
		if err == nil && h != nil {
			return h, nil
		}
		if err != nil && !errors.Is(err, ErrLineNotFound) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("line at index %d (id %q): %w", ref.Index, ref.ID, ErrLineNotFound)
}
