package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf_UnwrapsChain(t *testing.T) {
	base := NotFound("product %s not found", "p1")
	wrapped := fmt.Errorf("add to cart: %w", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.Equal(t, "product p1 not found", base.Message)
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestInsufficientStock_CarriesNumbers(t *testing.T) {
	err := InsufficientStock("product p1", 3, 5)

	e, ok := As(fmt.Errorf("wrap: %w", err))
	require.True(t, ok)
	assert.Equal(t, 3, e.Available)
	assert.Equal(t, 5, e.Requested)
	assert.Contains(t, e.Error(), "available 3, requested 5")
}

func TestInternal_KeepsCauseOutOfMessage(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Internal(cause, "load cart")

	assert.Equal(t, "load cart", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "INTERNAL", err.Kind.String())
}
