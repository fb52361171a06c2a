package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay(t *testing.T) {
	entries := []LogEntry{
		{ID: 1, Sequence: 1, Action: ActionUpsert, Delta: 10, FromQty: 0, ToQty: 10},
		{ID: 2, Sequence: 2, Action: ActionAdjust, Delta: -3, FromQty: 10, ToQty: 7},
		{ID: 3, Sequence: 3, Action: ActionSale, Delta: -7, FromQty: 7, ToQty: 0},
		{ID: 4, Sequence: 4, Action: ActionUpsert, Delta: 4, FromQty: 0, ToQty: 4},
	}
	onHand, err := Replay(entries)
	require.NoError(t, err)
	assert.Equal(t, int64(4), onHand)

	onHand, err = Replay(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), onHand)
}

func TestReplayDetectsBrokenChain(t *testing.T) {
	_, err := Replay([]LogEntry{
		{ID: 1, Sequence: 1, Delta: 5, FromQty: 0, ToQty: 5},
		{ID: 2, Sequence: 2, Delta: 1, FromQty: 6, ToQty: 7},
	})
	assert.ErrorIs(t, err, ErrLedgerMismatch)

	_, err = Replay([]LogEntry{{ID: 1, Sequence: 1, Delta: 3, FromQty: 0, ToQty: 5}})
	assert.ErrorIs(t, err, ErrLedgerMismatch)

	_, err = Replay([]LogEntry{
		{ID: 1, Sequence: 2, Delta: 5, FromQty: 0, ToQty: 5},
		{ID: 2, Sequence: 1, Delta: 1, FromQty: 5, ToQty: 6},
	})
	assert.ErrorIs(t, err, ErrLedgerMismatch)
}
