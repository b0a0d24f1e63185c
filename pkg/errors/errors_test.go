package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := WithField(ErrMissingRequiredField, "examName", "examName is required")

	assert.True(t, errors.Is(err, ErrMissingRequiredField))
	assert.False(t, errors.Is(err, ErrInvalidFieldValue))
	assert.Equal(t, "examName", err.Field)
	assert.Empty(t, ErrMissingRequiredField.Field)

	wrapped := fmt.Errorf("submit: %w", err)
	assert.True(t, errors.Is(wrapped, ErrMissingRequiredField))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	appErr := FromError(fmt.Errorf("handler: %w", Clone(ErrConflict, "stale")))
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "stale", appErr.Message)

	internal := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, internal.Code)
	assert.ErrorIs(t, internal, sql.ErrConnDone)
}
