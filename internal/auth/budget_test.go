package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/askgraph/askgraph/internal/errors"
)

func TestBudgetManager_NoBudgetIsUnlimited(t *testing.T) {
	bm := NewBudgetManager()
	assert.NoError(t, bm.Record("user-1", 1_000_000))
}

func TestBudgetManager_RecordWithinLimit(t *testing.T) {
	bm := NewBudgetManager()
	bm.SetLimit("user-1", 1000)

	require.NoError(t, bm.Record("user-1", 400))
	require.NoError(t, bm.Record("user-1", 600))

	usage := bm.Usage("user-1")
	require.NotNil(t, usage)
	assert.Equal(t, int64(1000), usage.Used)
}

func TestBudgetManager_RejectsOverspend(t *testing.T) {
	bm := NewBudgetManager()
	bm.SetLimit("user-1", 1000)

	require.NoError(t, bm.Record("user-1", 900))
	err := bm.Record("user-1", 200)

	require.Error(t, err)
	var enhanced *apperrors.EnhancedError
	require.True(t, errors.As(err, &enhanced))
	assert.Equal(t, apperrors.ErrCodeBudgetExceeded, enhanced.Code)

	// The rejected spend was not recorded.
	assert.Equal(t, int64(900), bm.Usage("user-1").Used)
}

func TestBudgetManager_ChargeRecordsUnconditionally(t *testing.T) {
	bm := NewBudgetManager()
	bm.SetLimit("user-1", 1000)

	// Actual spend is only known after the call, so an in-flight request may
	// overshoot the limit.
	bm.Charge("user-1", 1500)
	assert.Equal(t, int64(1500), bm.Usage("user-1").Used)

	// The next request is blocked.
	assert.Error(t, bm.Check("user-1", 1))
}

func TestBudgetManager_CheckDoesNotRecord(t *testing.T) {
	bm := NewBudgetManager()
	bm.SetLimit("user-1", 100)

	require.NoError(t, bm.Check("user-1", 50))
	assert.Equal(t, int64(0), bm.Usage("user-1").Used)

	assert.Error(t, bm.Check("user-1", 200))
}

func TestBudgetManager_ZeroLimitRemovesBudget(t *testing.T) {
	bm := NewBudgetManager()
	bm.SetLimit("user-1", 100)
	bm.SetLimit("user-1", 0)

	assert.Nil(t, bm.Usage("user-1"))
	assert.NoError(t, bm.Record("user-1", 1_000_000))
}
