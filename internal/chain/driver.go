// Package chain adapts the external ledger behind a narrow driver interface.
// Gameplay code never sees gas, ABIs, or chain reorgs: it asks for balances
// in integer copper and item quantities, and issues mint/burn/transfer writes
// that either land or fail with an error.
package chain

import (
	"context"
	"errors"
)

// Tx is the caller-visible result of a ledger write.
type Tx struct {
	Hash    string `json:"hash"`
	Stubbed bool   `json:"stubbed,omitempty"`
}

// ErrTxRejected marks a write the ledger refused (reverted or timed out).
var ErrTxRejected = errors.New("ledger write rejected")

// Driver is the shard's contract with the external ledger. All gold amounts
// are integer copper. Writes are serialized by the caller; the driver makes
// no cross-call ordering promises of its own.
type Driver interface {
	// Reads.
	GoldBalance(ctx context.Context, addr string) (int64, error)
	ItemBalance(ctx context.Context, addr string, tokenID int64) (int64, error)
	NextItemID(ctx context.Context) (int64, error)

	// Gold writes.
	MintGold(ctx context.Context, addr string, copper int64) (*Tx, error)
	BurnGold(ctx context.Context, addr string, copper int64) (*Tx, error)
	TransferGold(ctx context.Context, from, to string, copper int64) (*Tx, error)

	// Item writes.
	MintItem(ctx context.Context, addr string, tokenID, qty int64) (*Tx, error)
	BurnItem(ctx context.Context, addr string, tokenID, qty int64) (*Tx, error)
	TransferItem(ctx context.Context, from, to string, tokenID, qty int64) (*Tx, error)

	// Character identity.
	MintCharacter(ctx context.Context, addr, name string) (int64, *Tx, error)

	// RebuildCache rescans historical transfer events in bounded block
	// windows and rebuilds the in-memory balance projection. Used where the
	// deployed contract's view functions are unreliable.
	RebuildCache(ctx context.Context) error
}
