package zikauth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailureClassification(t *testing.T) {
	for _, err := range []error{
		ErrMixedChannel, ErrMissingCredentials, ErrInvalidToken, ErrInvalidSession,
		ErrSessionUserMismatch, ErrCSRFMismatch, ErrRefreshReuse, ErrInvalidCredentials,
	} {
		assert.True(t, IsAuthFailure(err), err.Error())
		assert.True(t, IsAuthFailure(fmt.Errorf("handler: %w", err)))
		assert.False(t, IsUnavailable(err))
		assert.NotEmpty(t, FailureReason(err))
	}

	wrapped := fmt.Errorf("%w: %w", ErrSessionBackendUnavailable, errors.New("dial tcp: refused"))
	assert.True(t, IsUnavailable(wrapped))
	assert.False(t, IsAuthFailure(wrapped))
	assert.Empty(t, FailureReason(wrapped))

	assert.False(t, IsAuthFailure(ErrNoChannel))
	assert.False(t, IsAuthFailure(nil))
	assert.Equal(t, "refresh_reuse", FailureReason(ErrRefreshReuse))
}
