package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := NotFound("Task not found")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))

	wrapped := fmt.Errorf("load: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestForeignErrorsAreInternal(t *testing.T) {
	cause := errors.New("connection reset")

	assert.Equal(t, KindInternal, KindOf(cause))

	e := As(cause)
	assert.Equal(t, KindInternal, e.Kind)
	assert.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "connection reset")
}

func TestValidationFields(t *testing.T) {
	e := ValidationFields("Validation error", map[string]string{"title": "title is required"})

	assert.True(t, errors.Is(e, ErrValidation))
	assert.Equal(t, "title is required", e.Fields["title"])
	assert.Equal(t, "validation", e.Kind.String())
}
