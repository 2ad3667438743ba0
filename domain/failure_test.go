package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFailure(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, NormalizeFailure(nil))
	})

	t.Run("plain error keeps its text", func(t *testing.T) {
		f := NormalizeFailure(errors.New("quota exceeded"))
		require.NotNil(t, f)
		assert.Equal(t, "quota exceeded", f.Message)
		assert.Equal(t, "Error: quota exceeded", f.Error())
	})

	t.Run("empty text falls back to generic", func(t *testing.T) {
		f := NormalizeFailure(errors.New("  "))
		assert.Equal(t, genericFailureMessage, f.Message)
	})

	t.Run("wrapped failure is reused", func(t *testing.T) {
		inner := &GenerationFailure{Message: "denied"}
		f := NormalizeFailure(fmt.Errorf("calling model: %w", inner))
		assert.Same(t, inner, f)
	})

	t.Run("cause is kept", func(t *testing.T) {
		cause := errors.New("boom")
		f := NormalizeFailure(cause)
		assert.ErrorIs(t, f, cause)
	})
}

func TestBackend(t *testing.T) {
	_, err := Unavailable(nil).Generator()
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Equal(t, "MissingCredential", err.Error())

	var zero Backend
	_, err = zero.Generator()
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.False(t, zero.IsAvailable())
}
