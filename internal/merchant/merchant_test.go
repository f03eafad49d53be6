package merchant

import (
	"context"
	"testing"

	"github.com/emberwild/shard/internal/catalog"
	"github.com/emberwild/shard/internal/chain"
	"github.com/emberwild/shard/internal/events"
	"github.com/stretchr/testify/require"
)

func TestSellPriceScarcityCurve(t *testing.T) {
	// Target 10, base 20: stock 4 is scarce.
	require.EqualValues(t, 32, SellPrice(20, 4, 10))
	// Overstocked to 18 discounts at half slope.
	require.EqualValues(t, 12, SellPrice(20, 18, 10))
	// Discount floor is half of base.
	require.EqualValues(t, 10, SellPrice(20, 100, 10))
	// Empty shelf doubles.
	require.EqualValues(t, 40, SellPrice(20, 0, 10))
	// At target, base price.
	require.EqualValues(t, 20, SellPrice(20, 10, 10))
}

func TestBuyPriceNeverExceedsHalfBase(t *testing.T) {
	// Overstocked: current 12, base 20 -> floor(12 * 0.5) = 6.
	require.EqualValues(t, 6, BuyPrice(20, 18, 10))
	// Scarce: current 32 capped at base 20 -> 10.
	require.EqualValues(t, 10, BuyPrice(20, 4, 10))
}

func testManager(t *testing.T) (*Manager, *chain.Stub) {
	t.Helper()
	cat, err := catalog.Load("")
	require.NoError(t, err)
	stub := chain.NewStub()
	return NewManager(cat, stub, events.NewBus(100)), stub
}

func TestQuoteAndSaleTracking(t *testing.T) {
	m, _ := testManager(t)
	m.Register("wild-meadow", "Provisioner Edda", "", []int64{catalog.TokCookedMeat})

	sell, _, stock, err := m.Quote("wild-meadow", "Provisioner Edda", catalog.TokCookedMeat)
	require.NoError(t, err)
	require.EqualValues(t, 10, stock)
	require.EqualValues(t, 40, sell, "base value at target stock")

	m.RecordSale("wild-meadow", "Provisioner Edda", catalog.TokCookedMeat, 6)
	sell, _, stock, err = m.Quote("wild-meadow", "Provisioner Edda", catalog.TokCookedMeat)
	require.NoError(t, err)
	require.EqualValues(t, 4, stock)
	require.EqualValues(t, 64, sell, "scarcity raises the price")

	_, _, _, err = m.Quote("wild-meadow", "Provisioner Edda", catalog.TokIronSword)
	require.Error(t, err, "merchant does not carry the sword")
}

func TestRestockMintsUpToFive(t *testing.T) {
	m, stub := testManager(t)
	st := m.Register("wild-meadow", "Provisioner Edda", "0xmerchant", []int64{catalog.TokCookedMeat})

	st.mu.Lock()
	st.stock[catalog.TokCookedMeat] = 2 // below 30% of target 10
	st.mu.Unlock()

	ctx := context.Background()
	require.NoError(t, m.restock(ctx, st))

	require.EqualValues(t, 7, m.Stock("wild-meadow", "Provisioner Edda", catalog.TokCookedMeat),
		"2 on hand + min(5, 10-2) minted")
	bal, err := stub.ItemBalance(ctx, "0xmerchant", catalog.TokCookedMeat)
	require.NoError(t, err)
	require.EqualValues(t, 5, bal)
}

func TestSyncReadsChainBalances(t *testing.T) {
	m, stub := testManager(t)
	st := m.Register("wild-meadow", "Provisioner Edda", "0xmerchant", []int64{catalog.TokCookedMeat})

	ctx := context.Background()
	_, err := stub.MintItem(ctx, "0xmerchant", catalog.TokCookedMeat, 3)
	require.NoError(t, err)

	require.NoError(t, m.syncInventory(ctx, st))
	require.EqualValues(t, 3, m.Stock("wild-meadow", "Provisioner Edda", catalog.TokCookedMeat))
}
