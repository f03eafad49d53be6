// Package merchant runs the shard's autonomous economy agents. Each merchant
// NPC carries a wallet, holds real on-chain inventory, and reprices stock on
// a scarcity curve: empty shelves double prices, overstock halves them.
package merchant

// Price curve bounds.
const (
	scarcityFloor = 0.5
	scarcityCeil  = 2.0
	buyback       = 0.5
)

// SellPrice is what the merchant charges for one unit: the item's base value
// scaled by scarcity, clamped to [0.5x, 2x]. Shortage raises the price
// linearly up to double; surplus discounts at half slope so overstock decays
// gently toward the floor.
func SellPrice(baseCopper, stock, target int64) int64 {
	if target <= 0 {
		return baseCopper
	}
	ratio := float64(stock) / float64(target)
	var factor float64
	if ratio <= 1 {
		factor = 1 + (1 - ratio)
	} else {
		factor = 1 - (ratio-1)*0.5
	}
	if factor < scarcityFloor {
		factor = scarcityFloor
	}
	if factor > scarcityCeil {
		factor = scarcityCeil
	}
	return int64(float64(baseCopper) * factor)
}

// BuyPrice is what the merchant pays a player for one unit: half of the
// current sell price, but never more than half the base value, so players
// can't farm the scarcity premium by selling into an empty shelf.
func BuyPrice(baseCopper, stock, target int64) int64 {
	current := SellPrice(baseCopper, stock, target)
	if current > baseCopper {
		current = baseCopper
	}
	return int64(float64(current) * buyback)
}
