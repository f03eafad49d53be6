package world

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/emberwild/shard/internal/events"
)

// Ticks a skinnable corpse remains skinnable after the kill.
const skinWindowTicks = 30

// handleDeath settles a death: mobs pay out XP and loot and may leave a
// corpse; players respawn at the graveyard with an XP debt.
func (r *Runtime) handleDeath(ctx context.Context, z *Zone, victim *Entity, killerID string) {
	switch {
	case victim.Hostile():
		r.handleMobDeath(ctx, z, victim, killerID)
	case victim.IsPlayer():
		r.handlePlayerDeath(z, victim)
	default:
		z.Remove(victim.ID)
	}
}

func (r *Runtime) handleMobDeath(ctx context.Context, z *Zone, mob *Entity, killerID string) {
	z.Remove(mob.ID)

	killer := z.Get(killerID)
	if killer != nil && killer.IsPlayer() {
		killer.Kills++
		r.awardPartyXP(ctx, z, killer, mob.XPReward)
		r.dropLoot(ctx, z, mob, killer)
	}

	if mob.Skinnable {
		corpse := NewEntity(TypeCorpse, mob.Name+" Corpse", mob.X, mob.Y)
		corpse.MobName = mob.MobName
		corpse.SkinTier = mob.SkinTier
		corpse.SkinnableUntil = z.Tick + skinWindowTicks
		corpse.DecayAtTick = z.Tick + corpseDecayTicks
		z.Add(corpse)
	}

	name := "the wilds"
	wallet := ""
	if killer != nil {
		name = killer.Name
		wallet = killer.Wallet
	}
	r.publish(z, events.CategoryDeath, fmt.Sprintf("%s was slain by %s", mob.Name, name), wallet,
		map[string]any{"mob": mob.MobName, "boss": mob.Boss})
}

// awardPartyXP splits the reward across the killer's party: each member gets
// share/n where share grows 10% per additional member, capped at 5 members.
// A solo player keeps the full reward.
func (r *Runtime) awardPartyXP(ctx context.Context, z *Zone, killer *Entity, xp int64) {
	members := z.PartyMembers(killer.PartyID)
	if len(members) <= 1 {
		r.GrantXP(ctx, z, killer, xp)
		return
	}
	if len(members) > 5 {
		// Keep the killer in the paid set; everyone else caps out in a
		// stable order.
		sort.Slice(members, func(i, j int) bool {
			if members[i].ID == killer.ID || members[j].ID == killer.ID {
				return members[i].ID == killer.ID
			}
			return members[i].ID < members[j].ID
		})
		members = members[:5]
	}
	n := int64(len(members))
	bonus := xp * (100 + 10*(n-1)) / 100
	each := bonus / n
	for _, m := range members {
		r.GrantXP(ctx, z, m, each)
	}
}

// dropLoot rolls the mob's loot table and mints drops to the killer's
// wallet. Gold drops mint directly; item mint failures are logged and
// surfaced as events but never undo the kill.
func (r *Runtime) dropLoot(ctx context.Context, z *Zone, mob *Entity, killer *Entity) {
	if killer.Wallet == "" || mob.LootTable == "" {
		return
	}
	table, err := r.Catalog.LootTableByName(mob.LootTable)
	if err != nil {
		slog.Warn("loot table missing", "zone", z.ID, "mob", mob.MobName, "table", mob.LootTable)
		return
	}

	if table.MaxCopper > 0 {
		copper := r.rollRange(table.MinCopper, table.MaxCopper)
		if _, err := r.Chain.MintGold(ctx, killer.Wallet, copper); err != nil {
			slog.Error("loot gold mint failed", "wallet", killer.Wallet, "copper", copper, "err", err)
		} else {
			r.publish(z, events.CategoryLoot, fmt.Sprintf("%s looted %d copper from %s", killer.Name, copper, mob.Name),
				killer.Wallet, map[string]any{"copper": copper})
		}
	}

	for _, entry := range table.Entries {
		if r.roll() >= entry.Chance {
			continue
		}
		qty := r.rollRange(entry.MinQty, entry.MaxQty)
		if qty <= 0 {
			continue
		}
		if _, err := r.Chain.MintItem(ctx, killer.Wallet, entry.TokenID, qty); err != nil {
			slog.Error("loot mint failed", "wallet", killer.Wallet, "tokenId", entry.TokenID, "err", err)
			r.publish(z, events.CategoryStuck, "loot mint failed", killer.Wallet,
				map[string]any{"tokenId": entry.TokenID, "qty": qty})
			continue
		}
		itemName := fmt.Sprintf("item %d", entry.TokenID)
		if def, err := r.Catalog.ItemByTokenID(entry.TokenID); err == nil {
			itemName = def.Name
		}
		r.publish(z, events.CategoryLoot, fmt.Sprintf("%s looted %dx %s from %s", killer.Name, qty, itemName, mob.Name),
			killer.Wallet, map[string]any{"tokenId": entry.TokenID, "qty": qty})
	}
}

// handlePlayerDeath moves the player to the graveyard with restored vitals,
// cleared effects, and an XP debt.
func (r *Runtime) handlePlayerDeath(z *Zone, player *Entity) {
	debt := ApplyXPDebt(player)
	player.ActiveEffects = nil
	r.RecalculateVitals(player)
	player.HP = player.MaxHP
	player.Essence = player.MaxEssence
	z.MoveEntity(player, z.Layout.GraveyardX, z.Layout.GraveyardY)

	r.publish(z, events.CategoryDeath, fmt.Sprintf("%s died and awoke at the graveyard", player.Name), player.Wallet,
		map[string]any{"xpDebt": debt})
}
