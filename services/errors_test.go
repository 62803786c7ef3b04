package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_UnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", newError(ErrNotFound, "post %d not found", 3))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "post 3 not found", Message(err))

	var e *Error
	assert.True(t, errors.As(validationFailed("title", "bad title"), &e))
	assert.Equal(t, "title", e.Field)
	assert.ErrorIs(t, e, ErrValidation)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, ErrDuplicateEmail.Error(), Message(ErrDuplicateEmail))
	assert.Equal(t, ErrInvalidToken.Error(), Message(fmt.Errorf("x: %w", ErrInvalidToken)))
	assert.Equal(t, "internal server error", Message(errors.New("db exploded")))
}
