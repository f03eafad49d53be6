package merchant

import (
	"context"
	"log/slog"
	"time"
)

// Phase intervals. Independent timers so a slow chain sync doesn't delay
// repricing.
const (
	syncInterval     = 60 * time.Second
	repriceInterval  = 30 * time.Second
	restockInterval  = 120 * time.Second
	announceInterval = 300 * time.Second
)

// Run drives the four merchant phases until the context is canceled. One
// merchant's failure is logged and never stops the others.
func (m *Manager) Run(ctx context.Context) {
	sync := time.NewTicker(syncInterval)
	reprice := time.NewTicker(repriceInterval)
	restock := time.NewTicker(restockInterval)
	announce := time.NewTicker(announceInterval)
	defer sync.Stop()
	defer reprice.Stop()
	defer restock.Stop()
	defer announce.Stop()

	slog.Info("merchant scheduler started", "merchants", len(m.all()))

	for {
		select {
		case <-ctx.Done():
			slog.Info("merchant scheduler stopped")
			return

		case <-sync.C:
			for _, st := range m.all() {
				if err := m.syncInventory(ctx, st); err != nil {
					slog.Warn("merchant inventory sync failed", "merchant", st.Name, "err", err)
				}
			}

		case <-reprice.C:
			for _, st := range m.all() {
				m.reprice(st)
			}

		case <-restock.C:
			for _, st := range m.all() {
				if err := m.restock(ctx, st); err != nil {
					slog.Warn("merchant restock failed", "merchant", st.Name, "err", err)
				}
			}

		case <-announce.C:
			for _, st := range m.all() {
				m.announce(st)
			}
		}
	}
}
