package sbpatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLineByID(t *testing.T) {
	host := newFakeHost("a", "b", "c")

	h, err := ResolveLine(context.Background(), host, LineRef{ID: "id1", Index: 9, Text: "nope"})
	require.NoError(t, err)
	assert.Equal(t, 1, h.(*fakeLine).index)

	// the dead conventions were attempted before the live one hit
	assert.Equal(t, []IDSelector{SelectorDOMID, SelectorDataID}, host.idLookups)
}

func TestResolveLineFallsBackToIndex(t *testing.T) {
	host := newFakeHost("a", "b", "c")

	h, err := ResolveLine(context.Background(), host, LineRef{ID: "gone", Index: 2, Text: "nope"})
	require.NoError(t, err)
	assert.Equal(t, 2, h.(*fakeLine).index)
	assert.Len(t, host.idLookups, len(idSelectors))
}

func TestResolveLineFallsBackToText(t *testing.T) {
	host := newFakeHost("a", "b", "c")

	h, err := ResolveLine(context.Background(), host, LineRef{ID: "gone", Index: 99, Text: "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, h.(*fakeLine).index)
}

func TestResolveLineSkipsIDWhenAbsent(t *testing.T) {
	host := newFakeHost("a", "b")

	h, err := ResolveLine(context.Background(), host, LineRef{Index: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, h.(*fakeLine).index)
	assert.Empty(t, host.idLookups)
}

func TestResolveLineExhausted(t *testing.T) {
	host := newFakeHost("a")

	_, err := ResolveLine(context.Background(), host, LineRef{ID: "gone", Index: 5, Text: "missing"})
	assert.ErrorIs(t, err, ErrLineNotFound)
}

type failingSurface struct {
	*fakeHost
	err error
}

func (s *failingSurface) LineByID(ctx context.Context, sel IDSelector, id string) (LineHandle, error) {
	return nil, s.err
}

func TestResolveLinePropagatesTransportErrors(t *testing.T) {
	boom := errors.New("rpc closed")
	host := &failingSurface{fakeHost: newFakeHost("a"), err: boom}

	_, err := ResolveLine(context.Background(), host, LineRef{ID: "id0", Index: 0})
	assert.ErrorIs(t, err, boom)
}
