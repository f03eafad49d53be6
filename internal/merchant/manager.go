package merchant

import (
	"context"
	"fmt"
	"sync"

	"github.com/emberwild/shard/internal/catalog"
	"github.com/emberwild/shard/internal/chain"
	"github.com/emberwild/shard/internal/events"
)

const defaultTargetStock = 10

// State is one merchant's economic model: target stock levels, the current
// inventory projection, and the last computed price table. Guarded by its
// own mutex so a slow chain sync never blocks sales at another merchant.
type State struct {
	Name   string
	ZoneID string
	Wallet string // custodial wallet; empty for local-only merchants

	mu     sync.Mutex
	target map[int64]int64
	stock  map[int64]int64
	prices map[int64]int64
}

// Manager owns every merchant's state and the phase scheduler.
type Manager struct {
	catalog *catalog.Catalog
	chain   chain.Driver
	bus     *events.Bus

	mu        sync.RWMutex
	merchants map[string]*State
}

func NewManager(cat *catalog.Catalog, driver chain.Driver, bus *events.Bus) *Manager {
	return &Manager{
		catalog:   cat,
		chain:     driver,
		bus:       bus,
		merchants: make(map[string]*State),
	}
}

func key(zoneID, name string) string { return zoneID + "/" + name }

// Register adds a merchant with its stocked token ids. Initial stock starts
// at target; the first inventory sync corrects it from chain balances.
func (m *Manager) Register(zoneID, name, wallet string, tokens []int64) *State {
	st := &State{
		Name:   name,
		ZoneID: zoneID,
		Wallet: wallet,
		target: make(map[int64]int64, len(tokens)),
		stock:  make(map[int64]int64, len(tokens)),
		prices: make(map[int64]int64, len(tokens)),
	}
	for _, tok := range tokens {
		st.target[tok] = defaultTargetStock
		st.stock[tok] = defaultTargetStock
		if def, err := m.catalog.ItemByTokenID(tok); err == nil {
			st.prices[tok] = def.ValueCopper
		}
	}

	m.mu.Lock()
	m.merchants[key(zoneID, name)] = st
	m.mu.Unlock()
	return st
}

// Get returns the merchant's state, or nil.
func (m *Manager) Get(zoneID, name string) *State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.merchants[key(zoneID, name)]
}

func (m *Manager) all() []*State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*State, 0, len(m.merchants))
	for _, st := range m.merchants {
		out = append(out, st)
	}
	return out
}

// Quote returns the current sell and buy price for one unit of the token at
// this merchant, plus remaining stock.
func (m *Manager) Quote(zoneID, name string, tokenID int64) (sell, buy, stock int64, err error) {
	st := m.Get(zoneID, name)
	if st == nil {
		return 0, 0, 0, fmt.Errorf("no merchant %q in zone %q", name, zoneID)
	}
	def, err := m.catalog.ItemByTokenID(tokenID)
	if err != nil {
		return 0, 0, 0, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	target, carried := st.target[tokenID]
	if !carried {
		return 0, 0, 0, fmt.Errorf("merchant %q does not trade item %d", name, tokenID)
	}
	s := st.stock[tokenID]
	return SellPrice(def.ValueCopper, s, target), BuyPrice(def.ValueCopper, s, target), s, nil
}

// Carries reports whether the merchant trades the token at all. Merchants
// buy back anything they carry, nothing else.
func (m *Manager) Carries(zoneID, name string, tokenID int64) bool {
	st := m.Get(zoneID, name)
	if st == nil {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.target[tokenID]
	return ok
}

// RecordSale decrements local stock after a player purchase.
func (m *Manager) RecordSale(zoneID, name string, tokenID, qty int64) {
	if st := m.Get(zoneID, name); st != nil {
		st.mu.Lock()
		if st.stock[tokenID] >= qty {
			st.stock[tokenID] -= qty
		} else {
			st.stock[tokenID] = 0
		}
		st.mu.Unlock()
	}
}

// RecordPurchase increments local stock after buying from a player.
func (m *Manager) RecordPurchase(zoneID, name string, tokenID, qty int64) {
	if st := m.Get(zoneID, name); st != nil {
		st.mu.Lock()
		st.stock[tokenID] += qty
		st.mu.Unlock()
	}
}

// Stock returns the merchant's current stock projection for a token.
func (m *Manager) Stock(zoneID, name string, tokenID int64) int64 {
	st := m.Get(zoneID, name)
	if st == nil {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.stock[tokenID]
}

// Listing is one row of a merchant's shopfront.
type Listing struct {
	TokenID   int64  `json:"tokenId"`
	Name      string `json:"name"`
	SellPrice int64  `json:"sellPrice"`
	BuyPrice  int64  `json:"buyPrice"`
	Stock     int64  `json:"stock"`
}

// Listings returns the merchant's full shopfront, priced at current stock.
func (m *Manager) Listings(zoneID, name string) []Listing {
	st := m.Get(zoneID, name)
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]Listing, 0, len(st.target))
	for tok, target := range st.target {
		def, err := m.catalog.ItemByTokenID(tok)
		if err != nil {
			continue
		}
		s := st.stock[tok]
		out = append(out, Listing{
			TokenID:   tok,
			Name:      def.Name,
			SellPrice: SellPrice(def.ValueCopper, s, target),
			BuyPrice:  BuyPrice(def.ValueCopper, s, target),
			Stock:     s,
		})
	}
	return out
}

// syncInventory refreshes the stock projection from chain balances. Local
// merchants (no wallet) keep their projection as-is.
func (m *Manager) syncInventory(ctx context.Context, st *State) error {
	if st.Wallet == "" {
		return nil
	}
	st.mu.Lock()
	tokens := make([]int64, 0, len(st.target))
	for tok := range st.target {
		tokens = append(tokens, tok)
	}
	st.mu.Unlock()

	for _, tok := range tokens {
		bal, err := m.chain.ItemBalance(ctx, st.Wallet, tok)
		if err != nil {
			return fmt.Errorf("sync %s item %d: %w", st.Name, tok, err)
		}
		st.mu.Lock()
		st.stock[tok] = bal
		st.mu.Unlock()
	}
	return nil
}

// reprice recomputes the cached price table from current stock.
func (m *Manager) reprice(st *State) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for tok, target := range st.target {
		def, err := m.catalog.ItemByTokenID(tok)
		if err != nil {
			continue
		}
		st.prices[tok] = SellPrice(def.ValueCopper, st.stock[tok], target)
	}
}

// restock mints inventory for tokens below 30% of target, at most 5 units
// per phase per token.
func (m *Manager) restock(ctx context.Context, st *State) error {
	st.mu.Lock()
	type need struct{ tok, qty int64 }
	var needs []need
	for tok, target := range st.target {
		s := st.stock[tok]
		if s*10 < target*3 {
			qty := target - s
			if qty > 5 {
				qty = 5
			}
			if qty > 0 {
				needs = append(needs, need{tok, qty})
			}
		}
	}
	st.mu.Unlock()

	for _, n := range needs {
		if st.Wallet != "" {
			if _, err := m.chain.MintItem(ctx, st.Wallet, n.tok, n.qty); err != nil {
				return fmt.Errorf("restock %s item %d: %w", st.Name, n.tok, err)
			}
		}
		st.mu.Lock()
		st.stock[n.tok] += n.qty
		st.mu.Unlock()
	}
	return nil
}

// announce emits a zone event naming the best current discount, or the first
// out-of-stock item if nothing is discounted.
func (m *Manager) announce(st *State) {
	st.mu.Lock()
	var bestTok int64
	var bestPct int64 = 100
	var outTok int64 = -1
	for tok, target := range st.target {
		def, err := m.catalog.ItemByTokenID(tok)
		if err != nil || def.ValueCopper == 0 {
			continue
		}
		if st.stock[tok] == 0 && outTok == -1 {
			outTok = tok
		}
		price := SellPrice(def.ValueCopper, st.stock[tok], target)
		pct := price * 100 / def.ValueCopper
		if pct < bestPct {
			bestPct, bestTok = pct, tok
		}
	}
	st.mu.Unlock()

	if m.bus == nil {
		return
	}
	switch {
	case bestPct < 100:
		def, _ := m.catalog.ItemByTokenID(bestTok)
		m.bus.Publish(events.Event{
			ZoneID:   st.ZoneID,
			Category: events.CategoryMerchant,
			Description: fmt.Sprintf("%s calls out: %s going for %d%% of value!",
				st.Name, def.Name, bestPct),
			Details: map[string]any{"tokenId": bestTok, "pct": bestPct},
		})
	case outTok >= 0:
		def, _ := m.catalog.ItemByTokenID(outTok)
		m.bus.Publish(events.Event{
			ZoneID:      st.ZoneID,
			Category:    events.CategoryMerchant,
			Description: fmt.Sprintf("%s is out of %s.", st.Name, def.Name),
			Details:     map[string]any{"tokenId": outTok},
		})
	}
}
