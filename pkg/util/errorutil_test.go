package util

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError_NoRowsBecomesNotFound(t *testing.T) {
	for _, err := range []error{sql.ErrNoRows, pgx.ErrNoRows, fmt.Errorf("get: %w", pgx.ErrNoRows)} {
		domainErr := ToDomainError(err)
		require.NotNil(t, domainErr)
		assert.Equal(t, CodeNotFound, domainErr.Code)
		assert.Equal(t, http.StatusNotFound, domainErr.HTTPStatus)
	}
}

func TestToDomainError_KeepsDomainErrors(t *testing.T) {
	err := NewValidationError("invalid", map[string]any{"title": "required"})
	wrapped := fmt.Errorf("create: %w", err)

	domainErr := ToDomainError(wrapped)
	require.NotNil(t, domainErr)
	assert.Equal(t, CodeValidationFailed, domainErr.Code)
	assert.Equal(t, "required", domainErr.Details["title"])
	assert.True(t, IsValidation(wrapped))
}

func TestToDomainError_UnknownIsInternal(t *testing.T) {
	cause := errors.New("boom")
	domainErr := ToDomainError(cause)
	require.NotNil(t, domainErr)
	assert.Equal(t, CodeInternal, domainErr.Code)
	assert.ErrorIs(t, domainErr, cause)
	assert.Nil(t, ToDomainError(nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("ticket", nil)))
	assert.True(t, IsNotFound(sql.ErrNoRows))
	assert.False(t, IsNotFound(NewValidationError("bad", nil)))
	assert.False(t, IsNotFound(nil))
}
