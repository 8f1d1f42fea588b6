package linestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartsync/internal/cart"
)

func TestStore_UpsertAndGet(t *testing.T) {
	s := New()

	_, ok := s.Get("A123")
	assert.False(t, ok)

	require.NoError(t, s.Upsert(cart.LineItem{ProductID: "A123", Quantity: 2, UnitPrice: "3.50"}))
	line, ok := s.Get("A123")
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)

	require.NoError(t, s.Upsert(cart.LineItem{ProductID: "A123", Quantity: 5, UnitPrice: "3.50"}))
	line, _ = s.Get("A123")
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, 1, s.Len())
}

func TestStore_RejectsNegativeQuantity(t *testing.T) {
	s := New()
	require.NoError(t, s.Upsert(cart.LineItem{ProductID: "A", Quantity: 1}))

	err := s.Upsert(cart.LineItem{ProductID: "A", Quantity: -1})
	require.Error(t, err)
	assert.True(t, cart.IsInvalidQuantity(err))

	line, _ := s.Get("A")
	assert.Equal(t, 1, line.Quantity, "failed upsert must not change the line")
}

func TestStore_AllIsStable(t *testing.T) {
	s := New()
	for _, id := range []cart.ProductID{"c", "a", "b"} {
		require.NoError(t, s.Upsert(cart.LineItem{ProductID: id, Quantity: 1}))
	}
	// Updating an existing line keeps its position.
	require.NoError(t, s.Upsert(cart.LineItem{ProductID: "c", Quantity: 9}))

	assert.Equal(t, []cart.ProductID{"c", "a", "b"}, ids(s.All()))

	s.Delete("c")
	require.NoError(t, s.Upsert(cart.LineItem{ProductID: "c", Quantity: 1}))
	assert.Equal(t, []cart.ProductID{"a", "b", "c"}, ids(s.All()))
}

func TestStore_DeleteAbsent(t *testing.T) {
	s := New()
	s.Delete("nope")
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.All())
}

func TestStore_AllReturnsCopy(t *testing.T) {
	s := New()
	require.NoError(t, s.Upsert(cart.LineItem{ProductID: "A", Quantity: 1}))

	lines := s.All()
	lines[0].Quantity = 99

	line, _ := s.Get("A")
	assert.Equal(t, 1, line.Quantity)
}

func ids(lines []cart.LineItem) []cart.ProductID {
	out := make([]cart.ProductID, len(lines))
	for i, l := range lines {
		out[i] = l.ProductID
	}
	return out
}

func TestStore_RestoreKeepsPosition(t *testing.T) {
	s := New()
	for _, id := range []cart.ProductID{"a", "b", "c"} {
		require.NoError(t, s.Upsert(cart.LineItem{ProductID: id, Quantity: 1, UnitPrice: "1.00"}))
	}
	before, _ := s.Get("b")

	s.Delete("b")
	assert.Equal(t, []cart.ProductID{"a", "c"}, ids(s.All()))

	require.NoError(t, s.Restore(before))
	assert.Equal(t, []cart.ProductID{"a", "b", "c"}, ids(s.All()))

	got, _ := s.Get("b")
	assert.Equal(t, before, got)
}

func TestStore_RestoreWithoutHistoryAppends(t *testing.T) {
	s := New()
	require.NoError(t, s.Upsert(cart.LineItem{ProductID: "a", Quantity: 1}))
	require.NoError(t, s.Restore(cart.LineItem{ProductID: "z", Quantity: 2}))
	assert.Equal(t, []cart.ProductID{"a", "z"}, ids(s.All()))

	err := s.Restore(cart.LineItem{ProductID: "q", Quantity: -2})
	assert.True(t, cart.IsInvalidQuantity(err))
}
