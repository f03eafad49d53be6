package world

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"github.com/emberwild/shard/internal/catalog"
	"github.com/emberwild/shard/internal/chain"
	"github.com/emberwild/shard/internal/events"
	"github.com/emberwild/shard/internal/techniques"
)

// Regen fractions applied each tick to out-of-combat entities.
const (
	hpRegenDivisor      = 50 // 2% of max hp per tick
	essenceRegenDivisor = 33 // ~3% of max essence per tick
	combatCooldownTicks = 10 // ticks since last damage before regen resumes
	corpseDecayTicks    = 60
)

// Runtime owns every zone and drives the simulation. Zones are created
// lazily from catalog layouts; entity placement inside a zone derives from
// the layout seed, so replicas materialize identical worlds.
type Runtime struct {
	Catalog *catalog.Catalog
	Chain   chain.Driver
	Bus     *events.Bus
	Reg     *techniques.Registry

	mu    sync.RWMutex
	zones map[string]*Zone

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewRuntime creates a runtime. seed fixes the combat/loot RNG, which tests
// rely on; pass 0 for an arbitrary seed in production wiring.
func NewRuntime(cat *catalog.Catalog, driver chain.Driver, bus *events.Bus, reg *techniques.Registry, seed int64) *Runtime {
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Runtime{
		Catalog: cat,
		Chain:   driver,
		Bus:     bus,
		Reg:     reg,
		zones:   make(map[string]*Zone),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Roll returns a float in [0, 1) from the shared RNG.
func (r *Runtime) Roll() float64 { return r.roll() }

// RollRange returns an int64 in [lo, hi] from the shared RNG.
func (r *Runtime) RollRange(lo, hi int64) int64 { return r.rollRange(lo, hi) }

// roll returns a float in [0, 1) from the shared RNG.
func (r *Runtime) roll() float64 {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng.Float64()
}

// rollRange returns an int64 in [lo, hi].
func (r *Runtime) rollRange(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return lo + r.rng.Int63n(hi-lo+1)
}

// GetOrCreateZone returns the live zone, materializing it from its catalog
// layout on first touch.
func (r *Runtime) GetOrCreateZone(id string) (*Zone, error) {
	r.mu.RLock()
	z, ok := r.zones[id]
	r.mu.RUnlock()
	if ok {
		return z, nil
	}

	layout, err := r.Catalog.ZoneLayout(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if z, ok := r.zones[id]; ok {
		return z, nil
	}
	z = newZone(layout)
	r.materialize(z)
	r.zones[id] = z
	slog.Info("zone materialized", "zone", id, "entities", len(z.Entities))
	return z, nil
}

// Zones returns the ids of every live zone.
func (r *Runtime) Zones() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.zones))
	for id := range r.zones {
		out = append(out, id)
	}
	return out
}

// WithZone runs fn under the zone's lock, creating the zone if needed. All
// action-pipeline mutations go through here.
func (r *Runtime) WithZone(id string, fn func(z *Zone) error) error {
	z, err := r.GetOrCreateZone(id)
	if err != nil {
		return err
	}
	z.Mu.Lock()
	defer z.Mu.Unlock()
	return fn(z)
}

// FindPlayer locates a wallet's player entity across all live zones.
func (r *Runtime) FindPlayer(wallet string) (*Zone, *Entity) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, z := range r.zones {
		z.Mu.Lock()
		e := z.PlayerByWallet(wallet)
		z.Mu.Unlock()
		if e != nil {
			return z, e
		}
	}
	return nil, nil
}

// materialize places stations, NPCs, portals, nodes, and mobs per the zone
// layout. Caller holds the runtime write lock; the zone is not yet shared.
func (r *Runtime) materialize(z *Zone) {
	layout := z.Layout

	for _, s := range layout.Stations {
		z.Add(NewEntity(s.Type, s.Name, s.X, s.Y))
	}
	for _, n := range layout.NPCs {
		e := NewEntity(n.Type, n.Name, n.X, n.Y)
		e.Stock = n.Stock
		e.Profession = n.Profession
		z.Add(e)
	}
	for _, p := range layout.Portals {
		e := NewEntity(TypePortal, fmt.Sprintf("Portal to %s", p.ToZone), p.X, p.Y)
		e.ToZone = p.ToZone
		z.Add(e)
	}

	for i, spec := range layout.Nodes {
		for _, pt := range layout.ScatterPoints(spec.Count, int64(i)+100) {
			e := NewEntity(spec.NodeType, spec.ResourceName, pt.X, pt.Y)
			e.ResourceName = spec.ResourceName
			e.ResourceTokenID = spec.TokenID
			e.NodeTier = spec.Tier
			e.Charges = spec.Charges
			e.MaxCharges = spec.Charges
			e.RespawnTicks = spec.RespawnTicks
			z.Add(e)
		}
	}

	for i, spawn := range layout.MobSpawns {
		tpl, err := r.Catalog.MobTemplate(spawn.Template)
		if err != nil {
			slog.Warn("mob template missing, skipping spawn", "zone", z.ID, "template", spawn.Template)
			continue
		}
		for _, pt := range layout.ScatterPoints(spawn.Count, int64(i)+500) {
			z.Add(r.spawnMob(tpl, pt.X, pt.Y))
		}
	}
}

func (r *Runtime) spawnMob(tpl *catalog.MobTemplate, x, y float64) *Entity {
	entityType := TypeMob
	if tpl.Boss {
		entityType = TypeBoss
	}
	e := NewEntity(entityType, tpl.Name, x, y)
	e.MobName = tpl.Name
	e.Level = tpl.Level
	e.HP = tpl.MaxHP
	e.MaxHP = tpl.MaxHP
	e.Damage = tpl.Damage
	e.XPReward = tpl.XPReward
	e.AggroRadius = tpl.AggroRadius
	e.LootTable = tpl.LootTable
	e.Boss = tpl.Boss
	e.Skinnable = tpl.Skinnable
	e.SkinTier = tpl.SkinTier
	e.SpawnX, e.SpawnY = x, y
	return e
}

// TickAll advances every live zone by one tick.
func (r *Runtime) TickAll(ctx context.Context) {
	r.mu.RLock()
	zones := make([]*Zone, 0, len(r.zones))
	for _, z := range r.zones {
		zones = append(zones, z)
	}
	r.mu.RUnlock()

	for _, z := range zones {
		z.Mu.Lock()
		r.tickZone(ctx, z)
		z.Mu.Unlock()
	}
}

// tickZone advances one zone. Order matters: effects resolve before AI so a
// DoT death this tick is settled before the mob acts, and node respawn runs
// after AI so a node never respawns and depletes in the same tick.
func (r *Runtime) tickZone(ctx context.Context, z *Zone) {
	z.Tick++
	z.rebuildIndex()

	r.tickEffects(ctx, z)
	r.expireCooldowns(z)
	r.tickRegen(z)
	r.tickAI(ctx, z)
	r.tickNodes(z)
	r.tickCorpses(z)
}

// expireCooldowns drops cooldown entries whose tick has passed, keeping the
// map from growing without bound on long-lived characters.
func (r *Runtime) expireCooldowns(z *Zone) {
	for _, e := range z.Entities {
		for techID, until := range e.Cooldowns {
			if z.Tick >= until {
				delete(e.Cooldowns, techID)
			}
		}
	}
}

func (r *Runtime) tickRegen(z *Zone) {
	for _, e := range z.Entities {
		if e.MaxHP == 0 || !e.Alive() {
			continue
		}
		if e.Type == TypeCorpse {
			continue
		}
		if e.LastDamagedTick > 0 && z.Tick-e.LastDamagedTick < combatCooldownTicks {
			continue
		}
		if e.HP < e.MaxHP {
			e.HP = min(e.MaxHP, e.HP+max(1, e.MaxHP/hpRegenDivisor))
		}
		if e.MaxEssence > 0 && e.Essence < e.MaxEssence {
			e.Essence = min(e.MaxEssence, e.Essence+max(1, e.MaxEssence/essenceRegenDivisor))
		}
	}
}

// tickNodes regenerates depleted resource nodes exactly at
// depletedAtTick + respawnTicks.
func (r *Runtime) tickNodes(z *Zone) {
	for _, e := range z.Entities {
		if e.Type != TypeOreNode && e.Type != TypeFlowerNode {
			continue
		}
		if e.Charges > 0 || e.RespawnTicks == 0 {
			continue
		}
		if z.Tick-e.DepletedAtTick >= e.RespawnTicks {
			e.Charges = e.MaxCharges
			e.DepletedAtTick = 0
		}
	}
}

func (r *Runtime) tickCorpses(z *Zone) {
	for id, e := range z.Entities {
		if e.Type == TypeCorpse && z.Tick >= e.DecayAtTick {
			z.Remove(id)
		}
	}
}

func (r *Runtime) publish(z *Zone, category, description, wallet string, details map[string]any) {
	if r.Bus == nil {
		return
	}
	r.Bus.Publish(events.Event{
		Tick:        z.Tick,
		ZoneID:      z.ID,
		Category:    category,
		Description: description,
		Wallet:      wallet,
		Details:     details,
	})
}

func equalWallet(a, b string) bool {
	return strings.EqualFold(a, b)
}
