package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.EqualError(t, appErr, "internal server error: boom")
}

func TestCloneMatchesTemplate(t *testing.T) {
	err := fmt.Errorf("tick: %w", Clone(ErrTickInProgress, "clock locked"))
	assert.True(t, stdErrors.Is(err, ErrTickInProgress))
	assert.False(t, stdErrors.Is(err, ErrNotFound))
	assert.Equal(t, "clock locked", FromError(err).Message)
}
