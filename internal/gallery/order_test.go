package gallery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-gallery/internal/assets"
)

func listing(ids ...string) []assets.Asset {
	out := make([]assets.Asset, 0, len(ids))
	for _, id := range ids {
		out = append(out, assets.Asset{PublicID: id, URL: "u/" + id})
	}
	return out
}

func publicIDs(list []assets.Asset) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.PublicID)
	}
	return out
}

func TestOrderAppendKeepsAppendOrder(t *testing.T) {
	var o Order
	for _, id := range []string{"c", "a", "b"} {
		o.Append(id)
	}
	got := o.Reconcile(listing("a", "b", "c"))
	assert.Equal(t, []string{"c", "a", "b"}, publicIDs(got))
}

func TestOrderAppendIsIdempotent(t *testing.T) {
	var o Order
	o.Append("a")
	o.Append("a")
	assert.Equal(t, []string{"a"}, o.IDs())
}

func TestOrderMoveIsSplice(t *testing.T) {
	tests := []struct {
		from, to int
		want     []string
	}{
		{0, 2, []string{"B", "C", "A", "D"}},
		{2, 0, []string{"C", "A", "B", "D"}},
		{3, 1, []string{"A", "D", "B", "C"}},
		{1, 1, []string{"A", "B", "C", "D"}},
	}
	for _, tt := range tests {
		var o Order
		for _, id := range []string{"A", "B", "C", "D"} {
			o.Append(id)
		}
		require.NoError(t, o.Move(tt.from, tt.to))
		assert.Equal(t, tt.want, o.IDs(), "move(%d,%d)", tt.from, tt.to)
	}
}

func TestOrderMoveOutOfRange(t *testing.T) {
	for _, tc := range [][2]int{{5, 0}, {0, 4}, {-1, 0}, {0, -1}} {
		var o Order
		for _, id := range []string{"A", "B", "C", "D"} {
			o.Append(id)
		}
		err := o.Move(tc[0], tc[1])
		assert.True(t, errors.Is(err, ErrIndex), "move(%d,%d): %v", tc[0], tc[1], err)
		assert.Equal(t, []string{"A", "B", "C", "D"}, o.IDs())
	}

	var empty Order
	assert.ErrorIs(t, empty.Move(0, 0), ErrIndex)
}

func TestOrderRemoveUnknownIsNoop(t *testing.T) {
	var o Order
	o.Append("a")
	o.Remove("missing")
	assert.Equal(t, []string{"a"}, o.IDs())
	o.Remove("a")
	assert.Empty(t, o.IDs())
}

func TestOrderReconcileAppendsUnknownInListingOrder(t *testing.T) {
	var o Order
	o.Append("b")

	got := o.Reconcile(listing("x", "b", "y"))
	assert.Equal(t, []string{"b", "x", "y"}, publicIDs(got))
	assert.Equal(t, []string{"b", "x", "y"}, o.IDs())

	// The healed order is stable on the next read even if the store
	// returns a different sequence.
	got = o.Reconcile(listing("y", "x", "b"))
	assert.Equal(t, []string{"b", "x", "y"}, publicIDs(got))
}

func TestOrderReconcileKeepsStaleIDs(t *testing.T) {
	var o Order
	o.Append("a")
	o.Append("gone")
	o.Append("c")

	got := o.Reconcile(listing("a", "c"))
	assert.Equal(t, []string{"a", "c"}, publicIDs(got))
	assert.Equal(t, []string{"a", "gone", "c"}, o.IDs())
}

func TestOrderReconcileDuplicateListing(t *testing.T) {
	var o Order
	got := o.Reconcile(listing("a", "a", "b"))
	assert.Equal(t, []string{"a", "b"}, publicIDs(got))
	assert.Equal(t, 2, o.Len())
}
