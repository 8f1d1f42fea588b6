package cart

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Predicates(t *testing.T) {
	cause := errors.New("503 Service Unavailable")
	wrapped := fmt.Errorf("reconcile: %w", NewRequestFailed("A1", "update", cause))

	assert.True(t, IsRequestFailed(wrapped))
	assert.False(t, IsStale(wrapped))
	assert.ErrorIs(t, wrapped, cause)

	assert.True(t, IsStale(NewStaleResult("A1", 1, 2)))
	assert.True(t, IsInvalidQuantity(NewInvalidQuantity("A1", -3)))
	assert.True(t, IsMalformedNumeric(NewMalformedNumeric("A1", "abc", nil)))
	assert.False(t, IsRequestFailed(errors.New("plain")))
}

func TestError_Message(t *testing.T) {
	err := NewStaleResult("A1", 1, 2)
	assert.Equal(t, "STALE_RESULT: result for seq 1 superseded by seq 2 (product=A1)", err.Error())

	err = NewInvalidQuantity("", -1)
	assert.Equal(t, "INVALID_QUANTITY: quantity must not be negative, got -1", err.Error())
}
