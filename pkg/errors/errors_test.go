package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "context"))
	})

	t.Run("preserves the type of a wrapped app error", func(t *testing.T) {
		err := Wrap(NewNotFound("goal missing"), "reading goal")

		assert.True(t, IsNotFound(err))
		assert.Contains(t, err.Error(), "reading goal")
		assert.Contains(t, err.Error(), "goal missing")
	})

	t.Run("plain errors become internal", func(t *testing.T) {
		cause := stderrors.New("connection reset")
		err := Wrap(cause, "querying table")

		assert.True(t, IsInternal(err))
		assert.True(t, stderrors.Is(err, cause))
	})

	t.Run("sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", NewValidation("bad date"))

		assert.True(t, IsValidation(Wrap(err, "updating goal")))
	})
}

func TestTypePredicates(t *testing.T) {
	require.True(t, IsValidation(NewValidation("v")))
	require.True(t, IsNotFound(NewNotFound("n")))
	require.True(t, IsInternal(NewInternal("i", nil)))

	assert.False(t, IsValidation(NewNotFound("n")))
	assert.False(t, IsNotFound(stderrors.New("plain")))
	assert.False(t, IsInternal(nil))
}
