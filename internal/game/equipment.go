package game

import (
	"context"
	"fmt"

	"github.com/emberwild/shard/internal/currency"
	"github.com/emberwild/shard/internal/world"
)

// Equip validates on-chain ownership and places the item in its slot,
// displacing whatever was there.
func (s *Service) Equip(ctx context.Context, wallet, zoneID, entityID string, tokenID int64) (*world.Entity, error) {
	var out *world.Entity
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		def, err := s.Catalog.ItemByTokenID(tokenID)
		if err != nil {
			return errNotFound("unknown item %d", tokenID)
		}
		if def.Slot == "" {
			return errRule("%s is not equippable", def.Name)
		}
		bal, err := s.Chain.ItemBalance(ctx, wallet, tokenID)
		if err != nil {
			return errLedger("item balance", err)
		}
		if bal < 1 {
			return errInsufficient("%s is not in this wallet", def.Name)
		}

		if e.Equipment == nil {
			e.Equipment = make(map[string]*world.EquippedItem)
		}
		it := &world.EquippedItem{
			TokenID:       tokenID,
			Name:          def.Name,
			Slot:          def.Slot,
			Durability:    def.MaxDurability,
			MaxDurability: def.MaxDurability,
		}
		if roll := s.craftRollFor(wallet, tokenID); roll != nil {
			it.Quality = roll.Quality
			it.BonusAffix = roll.BonusAffix
			if len(roll.RolledStats) > 0 {
				it.RolledStats = make(map[string]int, len(roll.RolledStats))
				for stat, v := range roll.RolledStats {
					it.RolledStats[stat] = v
				}
			}
			if it.BonusAffix != "" {
				it.Name = def.Name + " " + it.BonusAffix
			}
		}
		e.Equipment[def.Slot] = it
		s.Runtime.RecalculateVitals(e)
		s.diary(wallet, z, e, "equip", fmt.Sprintf("%s equipped %s", e.Name, def.Name), nil)
		out = e
		return nil
	})
	return out, err
}

// Unequip clears a slot and recomputes vitals.
func (s *Service) Unequip(ctx context.Context, wallet, zoneID, entityID, slot string) (*world.Entity, error) {
	var out *world.Entity
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		if _, ok := e.Equipment[slot]; !ok {
			return errRule("nothing equipped in slot %q", slot)
		}
		delete(e.Equipment, slot)
		s.Runtime.RecalculateVitals(e)
		out = e
		return nil
	})
	return out, err
}

// RepairResult reports a paid repair.
type RepairResult struct {
	Slot       string `json:"slot"`
	Durability int    `json:"durability"`
	CostCopper int64  `json:"costCopper"`
	CostLabel  string `json:"costLabel"`
}

// Repair restores an equipped item to full durability for copper. Cost
// scales with the item's value and missing durability; payment burns gold
// and records the spend in the ledger immediately.
func (s *Service) Repair(ctx context.Context, wallet, zoneID, entityID, slot string) (*RepairResult, error) {
	var result *RepairResult
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		it, ok := e.Equipment[slot]
		if !ok || it == nil {
			return errRule("nothing equipped in slot %q", slot)
		}
		if it.Durability >= it.MaxDurability {
			return errRule("%s is not damaged", it.Name)
		}
		def, err := s.Catalog.ItemByTokenID(it.TokenID)
		if err != nil {
			return errNotFound("unknown item %d", it.TokenID)
		}

		missing := it.MaxDurability - it.Durability
		cost := def.ValueCopper * int64(missing) / int64(it.MaxDurability) / 4
		if cost < 1 {
			cost = 1
		}

		avail, err := s.availableGold(ctx, wallet)
		if err != nil {
			return err
		}
		if avail < cost {
			return errInsufficient("repair costs %s, available %s",
				currency.FormatCopper(cost), currency.FormatCopper(avail))
		}

		// Reserve before the chain write so a concurrent spend can't double
		// count the same copper.
		s.Ledger.RecordSpend(wallet, cost)
		if _, err := s.Chain.BurnGold(ctx, wallet, cost); err != nil {
			s.Ledger.RecordRefund(wallet, cost)
			return errLedger("repair payment", err)
		}
		s.Ledger.RecordRefund(wallet, cost) // burn confirmed; reservation no longer needed

		wasBroken := it.Broken
		it.Durability = it.MaxDurability
		it.Broken = false
		if wasBroken {
			s.Runtime.RecalculateVitals(e)
		}
		s.diary(wallet, z, e, "repair", fmt.Sprintf("%s repaired %s", e.Name, it.Name),
			map[string]any{"costCopper": cost})

		result = &RepairResult{
			Slot:       slot,
			Durability: it.Durability,
			CostCopper: cost,
			CostLabel:  currency.FormatCopper(cost),
		}
		return nil
	})
	return result, err
}
