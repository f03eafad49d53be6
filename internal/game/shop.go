package game

import (
	"context"
	"fmt"

	"github.com/emberwild/shard/internal/currency"
	"github.com/emberwild/shard/internal/events"
	"github.com/emberwild/shard/internal/merchant"
	"github.com/emberwild/shard/internal/world"
)

// TradeResult reports one buy or sell against a merchant.
type TradeResult struct {
	TokenID    int64  `json:"tokenId"`
	ItemName   string `json:"itemName"`
	Quantity   int64  `json:"quantity"`
	UnitCopper int64  `json:"unitCopper"`
	Total      int64  `json:"totalCopper"`
	TotalLabel string `json:"totalLabel"`
	StockLeft  int64  `json:"stockLeft"`
}

// Buy purchases qty units from a merchant at the current dynamic price. Gold
// moves player -> merchant wallet (or burns for walletless merchants); items
// mint to the player.
func (s *Service) Buy(ctx context.Context, wallet, zoneID, entityID, merchantID string, tokenID, qty int64) (*TradeResult, error) {
	if qty <= 0 {
		return nil, errInvalid("quantity must be positive")
	}
	var result *TradeResult
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		npc := z.Get(merchantID)
		if npc == nil || npc.Type != world.TypeMerchant {
			return errNotFound("no merchant %q in zone %q", merchantID, zoneID)
		}
		if e.DistanceTo(npc) > interactRange {
			return errRule("too far from %s", npc.Name)
		}

		sell, _, stock, err := s.Merchants.Quote(z.ID, npc.Name, tokenID)
		if err != nil {
			return errRule("%v", err)
		}
		if stock < qty {
			return &RuleError{Code: CodeInsufficient,
				Message: fmt.Sprintf("%s has %d in stock", npc.Name, stock),
				Hints:   map[string]any{"stock": stock}}
		}

		total := sell * qty
		avail, err := s.availableGold(ctx, wallet)
		if err != nil {
			return err
		}
		if avail < total {
			return errInsufficient("costs %s, available %s",
				currency.FormatCopper(total), currency.FormatCopper(avail))
		}

		st := s.Merchants.Get(z.ID, npc.Name)
		s.Ledger.RecordSpend(wallet, total)
		if st != nil && st.Wallet != "" {
			_, err = s.Chain.TransferGold(ctx, wallet, st.Wallet, total)
		} else {
			_, err = s.Chain.BurnGold(ctx, wallet, total)
		}
		if err != nil {
			s.Ledger.RecordRefund(wallet, total)
			return errLedger("purchase payment", err)
		}
		s.Ledger.RecordRefund(wallet, total)

		if st != nil && st.Wallet != "" {
			_, err = s.Chain.TransferItem(ctx, st.Wallet, wallet, tokenID, qty)
		} else {
			_, err = s.Chain.MintItem(ctx, wallet, tokenID, qty)
		}
		if err != nil {
			// Payment landed but delivery failed: first-class incident.
			s.publishStuckTrade(z, wallet, npc.Name, tokenID, qty, err)
			return errLedger("item delivery", err)
		}

		s.Merchants.RecordSale(z.ID, npc.Name, tokenID, qty)

		def, _ := s.Catalog.ItemByTokenID(tokenID)
		name := fmt.Sprintf("item %d", tokenID)
		if def != nil {
			name = def.Name
		}
		s.diary(wallet, z, e, "buy", fmt.Sprintf("%s bought %dx %s from %s", e.Name, qty, name, npc.Name),
			map[string]any{"totalCopper": total})

		result = &TradeResult{
			TokenID:    tokenID,
			ItemName:   name,
			Quantity:   qty,
			UnitCopper: sell,
			Total:      total,
			TotalLabel: currency.FormatCopper(total),
			StockLeft:  stock - qty,
		}
		return nil
	})
	return result, err
}

// Sell sells qty units to a merchant at the buyback price. Items burn (or
// transfer to the merchant's wallet); gold mints to the player.
func (s *Service) Sell(ctx context.Context, wallet, zoneID, entityID, merchantID string, tokenID, qty int64) (*TradeResult, error) {
	if qty <= 0 {
		return nil, errInvalid("quantity must be positive")
	}
	var result *TradeResult
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		npc := z.Get(merchantID)
		if npc == nil || npc.Type != world.TypeMerchant {
			return errNotFound("no merchant %q in zone %q", merchantID, zoneID)
		}
		if e.DistanceTo(npc) > interactRange {
			return errRule("too far from %s", npc.Name)
		}
		if !s.Merchants.Carries(z.ID, npc.Name, tokenID) {
			return errRule("%s does not trade that item", npc.Name)
		}

		_, buy, _, err := s.Merchants.Quote(z.ID, npc.Name, tokenID)
		if err != nil {
			return errRule("%v", err)
		}

		bal, err := s.Chain.ItemBalance(ctx, wallet, tokenID)
		if err != nil {
			return errLedger("item balance", err)
		}
		if bal < qty {
			return errInsufficient("holding %d, selling %d", bal, qty)
		}

		st := s.Merchants.Get(z.ID, npc.Name)
		if st != nil && st.Wallet != "" {
			_, err = s.Chain.TransferItem(ctx, wallet, st.Wallet, tokenID, qty)
		} else {
			_, err = s.Chain.BurnItem(ctx, wallet, tokenID, qty)
		}
		if err != nil {
			return errLedger("sell transfer", err)
		}

		total := buy * qty
		if _, err := s.Chain.MintGold(ctx, wallet, total); err != nil {
			s.publishStuckTrade(z, wallet, npc.Name, tokenID, qty, err)
			return errLedger("sell payout", err)
		}

		s.Merchants.RecordPurchase(z.ID, npc.Name, tokenID, qty)

		def, _ := s.Catalog.ItemByTokenID(tokenID)
		name := fmt.Sprintf("item %d", tokenID)
		if def != nil {
			name = def.Name
		}
		s.diary(wallet, z, e, "sell", fmt.Sprintf("%s sold %dx %s to %s", e.Name, qty, name, npc.Name),
			map[string]any{"totalCopper": total})

		result = &TradeResult{
			TokenID:    tokenID,
			ItemName:   name,
			Quantity:   qty,
			UnitCopper: buy,
			Total:      total,
			TotalLabel: currency.FormatCopper(total),
			StockLeft:  s.Merchants.Stock(z.ID, npc.Name, tokenID),
		}
		return nil
	})
	return result, err
}

// Shopfront returns the merchant's current listings for browsing.
func (s *Service) Shopfront(zoneID, merchantID string) ([]merchant.Listing, error) {
	var listings []merchant.Listing
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		npc := z.Get(merchantID)
		if npc == nil || npc.Type != world.TypeMerchant {
			return errNotFound("no merchant %q in zone %q", merchantID, zoneID)
		}
		listings = s.Merchants.Listings(z.ID, npc.Name)
		return nil
	})
	return listings, err
}

func (s *Service) publishStuckTrade(z *world.Zone, wallet, merchantName string, tokenID, qty int64, cause error) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(events.Event{
		Tick: z.Tick, ZoneID: z.ID, Category: events.CategoryStuck,
		Description: fmt.Sprintf("trade with %s left %s short", merchantName, wallet),
		Wallet:      wallet,
		Details:     map[string]any{"tokenId": tokenID, "qty": qty, "cause": cause.Error()},
	})
}
