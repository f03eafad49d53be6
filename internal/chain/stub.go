package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Stub is an in-process ledger projection for tests and offline development.
// It mirrors the live driver's semantics (balances can never go negative,
// burns of missing tokens are rejected) without touching a chain.
type Stub struct {
	mu         sync.Mutex
	gold       map[string]int64
	items      map[string]map[int64]int64
	nextItemID int64
	nextCharID int64
	txSeq      int64

	// FailWrites, when set, is consulted before every write; returning an
	// error rejects the write. Tests use it to exercise rollback paths.
	FailWrites func(op string, addr string, tokenID int64) error
}

// NewStub creates an empty stub ledger.
func NewStub() *Stub {
	return &Stub{
		gold:       make(map[string]int64),
		items:      make(map[string]map[int64]int64),
		nextItemID: 1000,
		nextCharID: 1,
	}
}

func norm(addr string) string { return strings.ToLower(addr) }

func (s *Stub) tx() *Tx {
	s.txSeq++
	return &Tx{Hash: fmt.Sprintf("0xstub%08d", s.txSeq), Stubbed: true}
}

func (s *Stub) failed(op, addr string, tokenID int64) error {
	if s.FailWrites == nil {
		return nil
	}
	return s.FailWrites(op, addr, tokenID)
}

// GoldBalance returns the projected copper balance.
func (s *Stub) GoldBalance(_ context.Context, addr string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gold[norm(addr)], nil
}

// ItemBalance returns the projected quantity of one token.
func (s *Stub) ItemBalance(_ context.Context, addr string, tokenID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[norm(addr)][tokenID], nil
}

// NextItemID returns the next unused dynamic token id.
func (s *Stub) NextItemID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextItemID, nil
}

// MintGold credits copper to addr.
func (s *Stub) MintGold(_ context.Context, addr string, copper int64) (*Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("mintGold", addr, 0); err != nil {
		return nil, err
	}
	s.gold[norm(addr)] += copper
	return s.tx(), nil
}

// BurnGold debits copper from addr, rejecting overdrafts.
func (s *Stub) BurnGold(_ context.Context, addr string, copper int64) (*Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("burnGold", addr, 0); err != nil {
		return nil, err
	}
	if s.gold[norm(addr)] < copper {
		return nil, fmt.Errorf("%w: insufficient gold (%d < %d)", ErrTxRejected, s.gold[norm(addr)], copper)
	}
	s.gold[norm(addr)] -= copper
	return s.tx(), nil
}

// TransferGold moves copper between wallets.
func (s *Stub) TransferGold(_ context.Context, from, to string, copper int64) (*Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("transferGold", from, 0); err != nil {
		return nil, err
	}
	if s.gold[norm(from)] < copper {
		return nil, fmt.Errorf("%w: insufficient gold for transfer", ErrTxRejected)
	}
	s.gold[norm(from)] -= copper
	s.gold[norm(to)] += copper
	return s.tx(), nil
}

// MintItem credits qty of tokenID to addr.
func (s *Stub) MintItem(_ context.Context, addr string, tokenID, qty int64) (*Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("mintItem", addr, tokenID); err != nil {
		return nil, err
	}
	if s.items[norm(addr)] == nil {
		s.items[norm(addr)] = make(map[int64]int64)
	}
	s.items[norm(addr)][tokenID] += qty
	if tokenID >= s.nextItemID {
		s.nextItemID = tokenID + 1
	}
	return s.tx(), nil
}

// BurnItem debits qty of tokenID from addr, rejecting shortfalls.
func (s *Stub) BurnItem(_ context.Context, addr string, tokenID, qty int64) (*Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("burnItem", addr, tokenID); err != nil {
		return nil, err
	}
	if s.items[norm(addr)][tokenID] < qty {
		return nil, fmt.Errorf("%w: insufficient item %d", ErrTxRejected, tokenID)
	}
	s.items[norm(addr)][tokenID] -= qty
	return s.tx(), nil
}

// TransferItem moves qty of tokenID between wallets.
func (s *Stub) TransferItem(_ context.Context, from, to string, tokenID, qty int64) (*Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("transferItem", from, tokenID); err != nil {
		return nil, err
	}
	if s.items[norm(from)][tokenID] < qty {
		return nil, fmt.Errorf("%w: insufficient item %d for transfer", ErrTxRejected, tokenID)
	}
	s.items[norm(from)][tokenID] -= qty
	if s.items[norm(to)] == nil {
		s.items[norm(to)] = make(map[int64]int64)
	}
	s.items[norm(to)][tokenID] += qty
	return s.tx(), nil
}

// MintCharacter issues a character NFT id to addr.
func (s *Stub) MintCharacter(_ context.Context, addr, name string) (int64, *Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("mintCharacter", addr, 0); err != nil {
		return 0, nil, err
	}
	id := s.nextCharID
	s.nextCharID++
	return id, s.tx(), nil
}

// RebuildCache is a no-op: the stub's projection is its only state.
func (s *Stub) RebuildCache(context.Context) error { return nil }

var _ Driver = (*Stub)(nil)
