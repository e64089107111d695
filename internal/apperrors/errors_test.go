package apperrors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	err := New(KindConflict, CodeAlreadyOpened, "box already opened")
	wrapped := fmt.Errorf("open box: %w", err)

	assert.Equal(t, CodeAlreadyOpened, CodeOf(wrapped))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, Is(wrapped, CodeAlreadyOpened))
	assert.False(t, Is(nil, CodeAlreadyOpened))
}

func TestPlainErrorsArePersistenceFailures(t *testing.T) {
	err := errors.New("connection refused")

	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, KindPersistence, KindOf(err))
	assert.Nil(t, NextAvailableAt(err))
}

func TestRetryableCarriesNextAvailableAt(t *testing.T) {
	next := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	err := fmt.Errorf("check in: %w", Retryable(CodeAlreadyCheckedIn, "already checked in today", next))

	got := NextAvailableAt(err)
	if assert.NotNil(t, got) {
		assert.True(t, got.Equal(next))
	}
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestPersistenceUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := Persistence("failed to append ledger entry", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}
