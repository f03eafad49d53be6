// Package ledger reconciles on-chain gold with in-flight spends. A spend is
// reserved locally the moment gameplay commits to it, so a second purchase in
// the same session cannot double-spend while the chain write is still in
// flight. Reservations are released on confirmation or refund, and truncated
// if they ever exceed the on-chain balance.
package ledger

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Ledger tracks reserved copper per wallet.
type Ledger struct {
	mu       sync.Mutex
	reserved map[string]int64
	lastRec  map[string]time.Time
}

// New creates an empty gold ledger.
func New() *Ledger {
	return &Ledger{
		reserved: make(map[string]int64),
		lastRec:  make(map[string]time.Time),
	}
}

func norm(wallet string) string { return strings.ToLower(wallet) }

// Available returns the spendable copper given the wallet's on-chain balance,
// never negative.
func (l *Ledger) Available(wallet string, onChain int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	avail := onChain - l.reserved[norm(wallet)]
	if avail < 0 {
		return 0
	}
	return avail
}

// Reserved returns the wallet's pending-spend total.
func (l *Ledger) Reserved(wallet string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reserved[norm(wallet)]
}

// RecordSpend reserves copper against the wallet.
func (l *Ledger) RecordSpend(wallet string, copper int64) {
	if copper <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reserved[norm(wallet)] += copper
}

// RecordRefund releases a reservation, flooring at zero.
func (l *Ledger) RecordRefund(wallet string, copper int64) {
	if copper <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := norm(wallet)
	l.reserved[key] -= copper
	if l.reserved[key] <= 0 {
		delete(l.reserved, key)
	}
}

// Reconcile compares the reservation with the on-chain balance. A reservation
// larger than the balance means a write landed (or drifted) out from under us;
// it is truncated and the drift logged. Reconcile never grows a reservation.
func (l *Ledger) Reconcile(wallet string, onChain int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := norm(wallet)
	l.lastRec[key] = time.Now()
	if r := l.reserved[key]; r > onChain {
		slog.Warn("gold ledger drift: truncating reservation",
			"wallet", key,
			"reserved", r,
			"on_chain", onChain,
		)
		if onChain <= 0 {
			delete(l.reserved, key)
		} else {
			l.reserved[key] = onChain
		}
	}
}
