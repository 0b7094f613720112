package ledger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairway/loopledger/ledger"
)

func TestStoreError_UnwrapsToStoreUnavailable(t *testing.T) {
	err := &ledger.StoreError{Op: "save", Entity: "loop", Err: errors.New("backend down")}

	assert.ErrorIs(t, err, ledger.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "save")
	assert.Contains(t, err.Error(), "loop")
	assert.Contains(t, err.Error(), "backend down")
}

func TestIsRetryable(t *testing.T) {
	// Store outages are worth retrying; a missing record or a bad range
	// key will fail the same way every time.
	retryable := &ledger.StoreError{Op: "refresh", Entity: "expense", Err: errors.New("timeout")}

	assert.True(t, ledger.IsRetryable(retryable))
	assert.True(t, ledger.IsRetryable(ledger.ErrStoreUnavailable))
	assert.False(t, ledger.IsRetryable(ledger.ErrRecordNotFound))
	assert.False(t, ledger.IsRetryable(ledger.ErrUnknownRangeKey))
	assert.False(t, ledger.IsRetryable(nil))
}
