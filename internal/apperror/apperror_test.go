package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/gitmap/internal/apperror"
)

func TestSentinelMatching(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		err := apperror.ValidationFailed("name", "Repository name is required")
		assert.True(t, errors.Is(err, apperror.ErrValidation))
		assert.False(t, errors.Is(err, apperror.ErrNotFound))
	})

	t.Run("not found", func(t *testing.T) {
		err := apperror.NotFound("repository", 42)
		assert.True(t, errors.Is(err, apperror.ErrNotFound))
		assert.Contains(t, err.Error(), "42")
	})

	t.Run("conflict", func(t *testing.T) {
		err := apperror.Conflict("Repository name already exists")
		assert.True(t, errors.Is(err, apperror.ErrConflict))
	})

	t.Run("unauthorized", func(t *testing.T) {
		err := apperror.Unauthorized("Invalid token")
		assert.True(t, errors.Is(err, apperror.ErrUnauthorized))
	})
}

func TestMatchingThroughWrapping(t *testing.T) {
	// Services wrap registry errors with context; the handler must still be
	// able to classify them.
	inner := apperror.NotFound("file", 7)
	wrapped := fmt.Errorf("deleting file: %w", inner)

	assert.True(t, errors.Is(wrapped, apperror.ErrNotFound))

	var appErr *apperror.AppError
	assert.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, inner.Error(), appErr.Error())
}

func TestMessageSurvives(t *testing.T) {
	err := apperror.Conflict("File already exists")

	var appErr *apperror.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "File already exists", appErr.Message)
}
