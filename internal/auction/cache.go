// Package auction maintains a read cache of auction-house listings projected
// from contract events. The contract's view functions are unreliable on the
// deployed chain, so reads are served from this cache and never from the
// contract; the projection is rebuilt deterministically from logs.
package auction

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const auctionABI = `[
  {"type":"event","name":"ListingCreated","inputs":[{"name":"listingId","type":"uint256","indexed":true},{"name":"seller","type":"address","indexed":true},{"name":"tokenId","type":"uint256"},{"name":"quantity","type":"uint256"},{"name":"price","type":"uint256"}]},
  {"type":"event","name":"ListingSold","inputs":[{"name":"listingId","type":"uint256","indexed":true},{"name":"buyer","type":"address","indexed":true},{"name":"price","type":"uint256"}]},
  {"type":"event","name":"ListingCancelled","inputs":[{"name":"listingId","type":"uint256","indexed":true}]}
]`

// Bounded log windows; public RPC providers reject unbounded ranges.
const scanWindow = 2048

const schema = `
CREATE TABLE IF NOT EXISTS listings (
	listing_id    INTEGER PRIMARY KEY,
	seller        TEXT    NOT NULL,
	token_id      INTEGER NOT NULL,
	quantity      INTEGER NOT NULL,
	price_copper  INTEGER NOT NULL,
	status        TEXT    NOT NULL,
	buyer         TEXT    NOT NULL DEFAULT '',
	updated_block INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);
CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings(seller);

CREATE TABLE IF NOT EXISTS applied_events (
	tx_hash   TEXT    NOT NULL,
	log_index INTEGER NOT NULL,
	PRIMARY KEY (tx_hash, log_index)
);

CREATE TABLE IF NOT EXISTS scan_state (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	last_block INTEGER NOT NULL
);
`

// Listing statuses.
const (
	StatusActive    = "active"
	StatusSold      = "sold"
	StatusCancelled = "cancelled"
)

// Listing is one cached auction-house entry.
type Listing struct {
	ListingID    int64  `db:"listing_id" json:"listingId"`
	Seller       string `db:"seller" json:"seller"`
	TokenID      int64  `db:"token_id" json:"tokenId"`
	Quantity     int64  `db:"quantity" json:"quantity"`
	PriceCopper  int64  `db:"price_copper" json:"priceCopper"`
	Status       string `db:"status" json:"status"`
	Buyer        string `db:"buyer" json:"buyer,omitempty"`
	UpdatedBlock int64  `db:"updated_block" json:"updatedBlock"`
}

// LogSource is the slice of the RPC client the cache needs. *ethclient.Client
// satisfies it.
type LogSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Cache projects auction contract events into sqlite.
type Cache struct {
	db       *sqlx.DB
	src      LogSource
	contract common.Address
	meta     abi.ABI
}

// Open creates or opens the cache database at path (":memory:" works) and
// prepares the schema.
func Open(path string, src LogSource, contract string) (*Cache, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open auction cache: %w", err)
	}
	// modernc sqlite mishandles concurrent writers on one connection pool.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare auction schema: %w", err)
	}
	meta, err := abi.JSON(strings.NewReader(auctionABI))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("parse auction ABI: %w", err)
	}
	return &Cache{
		db:       db,
		src:      src,
		contract: common.HexToAddress(contract),
		meta:     meta,
	}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Rebuild scans logs from the last applied block to the head in bounded
// windows. Replaying the same history is a no-op: every event is keyed by
// (tx hash, log index) and applied at most once.
func (c *Cache) Rebuild(ctx context.Context) error {
	if c.src == nil {
		return nil // stubbed chain: nothing to scan
	}
	head, err := c.src.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("head block: %w", err)
	}

	var last int64
	_ = c.db.GetContext(ctx, &last, `SELECT last_block FROM scan_state WHERE id = 1`)

	topics := []common.Hash{
		c.meta.Events["ListingCreated"].ID,
		c.meta.Events["ListingSold"].ID,
		c.meta.Events["ListingCancelled"].ID,
	}

	start := time.Now()
	applied := 0
	for from := uint64(last); from <= head; from += scanWindow {
		to := from + scanWindow - 1
		if to > head {
			to = head
		}
		logs, err := c.src.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: []common.Address{c.contract},
			Topics:    [][]common.Hash{topics},
		})
		if err != nil {
			return fmt.Errorf("filter logs %d-%d: %w", from, to, err)
		}
		for _, lg := range logs {
			ok, err := c.Apply(ctx, lg)
			if err != nil {
				return err
			}
			if ok {
				applied++
			}
		}
	}

	if _, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scan_state (id, last_block) VALUES (1, ?)`, int64(head)); err != nil {
		return fmt.Errorf("save scan state: %w", err)
	}

	slog.Info("auction cache rebuilt",
		"applied", applied,
		"head", head,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// Apply projects one contract log into the cache. Returns false when the
// event was already applied.
func (c *Cache) Apply(ctx context.Context, lg types.Log) (bool, error) {
	res, err := c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO applied_events (tx_hash, log_index) VALUES (?, ?)`,
		lg.TxHash.Hex(), lg.Index)
	if err != nil {
		return false, fmt.Errorf("record event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if len(lg.Topics) == 0 {
		return false, nil
	}
	switch lg.Topics[0] {
	case c.meta.Events["ListingCreated"].ID:
		return true, c.applyCreated(ctx, lg)
	case c.meta.Events["ListingSold"].ID:
		return true, c.applySold(ctx, lg)
	case c.meta.Events["ListingCancelled"].ID:
		return true, c.applyCancelled(ctx, lg)
	}
	return false, nil
}

func (c *Cache) applyCreated(ctx context.Context, lg types.Log) error {
	if len(lg.Topics) < 3 || len(lg.Data) < 96 {
		return nil
	}
	listingID := new(big.Int).SetBytes(lg.Topics[1].Bytes()).Int64()
	seller := strings.ToLower(common.BytesToAddress(lg.Topics[2].Bytes()).Hex())
	tokenID := new(big.Int).SetBytes(lg.Data[:32]).Int64()
	qty := new(big.Int).SetBytes(lg.Data[32:64]).Int64()
	price := new(big.Int).SetBytes(lg.Data[64:96]).Int64()

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO listings
			(listing_id, seller, token_id, quantity, price_copper, status, buyer, updated_block)
		VALUES (?, ?, ?, ?, ?, ?, '', ?)`,
		listingID, seller, tokenID, qty, price, StatusActive, lg.BlockNumber)
	return err
}

func (c *Cache) applySold(ctx context.Context, lg types.Log) error {
	if len(lg.Topics) < 3 {
		return nil
	}
	listingID := new(big.Int).SetBytes(lg.Topics[1].Bytes()).Int64()
	buyer := strings.ToLower(common.BytesToAddress(lg.Topics[2].Bytes()).Hex())

	_, err := c.db.ExecContext(ctx,
		`UPDATE listings SET status = ?, buyer = ?, updated_block = ? WHERE listing_id = ?`,
		StatusSold, buyer, lg.BlockNumber, listingID)
	return err
}

func (c *Cache) applyCancelled(ctx context.Context, lg types.Log) error {
	if len(lg.Topics) < 2 {
		return nil
	}
	listingID := new(big.Int).SetBytes(lg.Topics[1].Bytes()).Int64()

	_, err := c.db.ExecContext(ctx,
		`UPDATE listings SET status = ?, updated_block = ? WHERE listing_id = ?`,
		StatusCancelled, lg.BlockNumber, listingID)
	return err
}

// Active lists open listings, cheapest first.
func (c *Cache) Active(ctx context.Context) ([]Listing, error) {
	var out []Listing
	err := c.db.SelectContext(ctx, &out,
		`SELECT * FROM listings WHERE status = ? ORDER BY price_copper ASC, listing_id ASC`,
		StatusActive)
	return out, err
}

// ByID fetches one listing regardless of status.
func (c *Cache) ByID(ctx context.Context, listingID int64) (*Listing, error) {
	var l Listing
	if err := c.db.GetContext(ctx, &l,
		`SELECT * FROM listings WHERE listing_id = ?`, listingID); err != nil {
		return nil, fmt.Errorf("listing %d: %w", listingID, err)
	}
	return &l, nil
}

// BySeller lists every listing a wallet has posted, newest first.
func (c *Cache) BySeller(ctx context.Context, seller string) ([]Listing, error) {
	var out []Listing
	err := c.db.SelectContext(ctx, &out,
		`SELECT * FROM listings WHERE seller = ? ORDER BY listing_id DESC`,
		strings.ToLower(seller))
	return out, err
}

// Watch refreshes the cache on an interval until the context ends.
func (c *Cache) Watch(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := c.Rebuild(ctx); err != nil {
				slog.Warn("auction cache refresh failed", "err", err)
			}
		}
	}
}
