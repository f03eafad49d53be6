package auction

import (
	"context"
	"math/big"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

const auctionContract = "0x00000000000000000000000000000000000a0c71"

type fakeSource struct {
	head uint64
	logs []types.Log
}

func (f *fakeSource) BlockNumber(ctx context.Context) (uint64, error) { return f.head, nil }

func (f *fakeSource) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var out []types.Log
	for _, lg := range f.logs {
		if lg.BlockNumber >= q.FromBlock.Uint64() && lg.BlockNumber <= q.ToBlock.Uint64() {
			out = append(out, lg)
		}
	}
	return out, nil
}

func word(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func addrTopic(hex string) common.Hash {
	return common.BytesToHash(common.HexToAddress(hex).Bytes())
}

func openCache(t *testing.T, src LogSource) *Cache {
	t.Helper()
	c, err := Open(":memory:", src, auctionContract)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func createdLog(c *Cache, block uint64, tx byte, listingID int64, seller string, tokenID, qty, price int64) types.Log {
	data := append(append(word(tokenID), word(qty)...), word(price)...)
	return types.Log{
		Topics:      []common.Hash{c.meta.Events["ListingCreated"].ID, common.BigToHash(big.NewInt(listingID)), addrTopic(seller)},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.BytesToHash([]byte{tx}),
		Index:       0,
	}
}

func soldLog(c *Cache, block uint64, tx byte, listingID int64, buyer string, price int64) types.Log {
	return types.Log{
		Topics:      []common.Hash{c.meta.Events["ListingSold"].ID, common.BigToHash(big.NewInt(listingID)), addrTopic(buyer)},
		Data:        word(price),
		BlockNumber: block,
		TxHash:      common.BytesToHash([]byte{tx}),
		Index:       0,
	}
}

func cancelledLog(c *Cache, block uint64, tx byte, listingID int64) types.Log {
	return types.Log{
		Topics:      []common.Hash{c.meta.Events["ListingCancelled"].ID, common.BigToHash(big.NewInt(listingID))},
		BlockNumber: block,
		TxHash:      common.BytesToHash([]byte{tx}),
		Index:       0,
	}
}

const (
	sellerA = "0x1111111111111111111111111111111111111111"
	buyerB  = "0x2222222222222222222222222222222222222222"
)

func TestRebuildProjectsListingLifecycle(t *testing.T) {
	src := &fakeSource{head: 10}
	c := openCache(t, src)
	src.logs = []types.Log{
		createdLog(c, 1, 1, 1, sellerA, 301, 5, 2_500),
		createdLog(c, 2, 2, 2, sellerA, 302, 1, 900),
		soldLog(c, 3, 3, 1, buyerB, 2_500),
		createdLog(c, 4, 4, 3, buyerB, 303, 2, 5_000),
		cancelledLog(c, 5, 5, 3),
	}

	require.NoError(t, c.Rebuild(context.Background()))

	active, err := c.Active(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, int64(2), active[0].ListingID)
	require.Equal(t, int64(900), active[0].PriceCopper)

	sold, err := c.ByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusSold, sold.Status)
	require.Equal(t, buyerB, sold.Buyer)

	gone, err := c.ByID(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, gone.Status)
}

func TestRebuildIsIdempotentAcrossRestarts(t *testing.T) {
	src := &fakeSource{head: 10}
	c := openCache(t, src)
	src.logs = []types.Log{
		createdLog(c, 1, 1, 7, sellerA, 305, 4, 1_200),
		soldLog(c, 2, 2, 7, buyerB, 1_200),
	}

	// Replaying the same history any number of times converges on the same
	// projection.
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Rebuild(context.Background()))
	}

	var eventCount int
	require.NoError(t, c.db.Get(&eventCount, `SELECT COUNT(*) FROM applied_events`))
	require.Equal(t, 2, eventCount)

	l, err := c.ByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, StatusSold, l.Status)
}

func TestIncrementalRebuildPicksUpNewEvents(t *testing.T) {
	src := &fakeSource{head: 5}
	c := openCache(t, src)
	src.logs = []types.Log{createdLog(c, 1, 1, 9, sellerA, 310, 1, 700)}
	require.NoError(t, c.Rebuild(context.Background()))

	src.head = 20
	src.logs = append(src.logs, soldLog(c, 12, 2, 9, buyerB, 700))
	require.NoError(t, c.Rebuild(context.Background()))

	l, err := c.ByID(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, StatusSold, l.Status)
	require.Equal(t, buyerB, l.Buyer)
}

func TestBySellerIncludesClosedListings(t *testing.T) {
	src := &fakeSource{head: 5}
	c := openCache(t, src)
	src.logs = []types.Log{
		createdLog(c, 1, 1, 1, sellerA, 301, 1, 100),
		createdLog(c, 2, 2, 2, sellerA, 302, 1, 200),
		cancelledLog(c, 3, 3, 1),
	}
	require.NoError(t, c.Rebuild(context.Background()))

	mine, err := c.BySeller(context.Background(), sellerA)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, int64(2), mine[0].ListingID) // newest first
}
