package domain

import "fmt"

// Replay folds ledger entries, in sequence order, starting from zero and
// returns the resulting on-hand count. Every entry must satisfy
// to = from + delta and start where the previous one ended.
func Replay(entries []LogEntry) (int64, error) {
	var onHand int64
	for i, entry := range entries {
		if entry.ToQty-entry.FromQty != entry.Delta {
			return 0, fmt.Errorf("%w: entry %d delta %d does not match %d -> %d",
				ErrLedgerMismatch, entry.ID, entry.Delta, entry.FromQty, entry.ToQty)
		}
		if entry.FromQty != onHand {
			return 0, fmt.Errorf("%w: entry %d starts at %d, expected %d",
				ErrLedgerMismatch, entry.ID, entry.FromQty, onHand)
		}
		if i > 0 && entry.Sequence <= entries[i-1].Sequence {
			return 0, fmt.Errorf("%w: entry %d out of order", ErrLedgerMismatch, entry.ID)
		}
		onHand = entry.ToQty
	}
	return onHand, nil
}
