package world

import (
	"context"
	"sort"
	"testing"

	"github.com/emberwild/shard/internal/catalog"
	"github.com/emberwild/shard/internal/chain"
	"github.com/emberwild/shard/internal/events"
	"github.com/emberwild/shard/internal/techniques"
	"github.com/stretchr/testify/require"
)

func testRuntime(t *testing.T) (*Runtime, *chain.Stub) {
	t.Helper()
	cat, err := catalog.Load("")
	require.NoError(t, err)
	stub := chain.NewStub()
	rt := NewRuntime(cat, stub, events.NewBus(100), techniques.NewRegistry(cat), 42)
	return rt, stub
}

// bareZone builds an empty zone so tests control exactly which entities
// exist, instead of materializing the full layout.
func bareZone(id string) *Zone {
	return newZone(&catalog.ZoneLayout{
		ID: id, Name: id, Width: 200, Height: 200, Seed: 7001,
		GraveyardX: 20, GraveyardY: 20,
	})
}

func testPlayer(rt *Runtime, wallet string) *Entity {
	p := NewEntity(TypePlayer, "Tester", 100, 100)
	p.Wallet = wallet
	p.Level = 5
	p.XP = XPRequired(5)
	p.RaceID = "human"
	p.ClassID = "warrior"
	p.BaseStats = BaseStatsFor("human", "warrior", 5)
	rt.RecalculateVitals(p)
	p.HP = p.MaxHP
	p.Essence = p.MaxEssence
	return p
}

func TestHotEffectLifecycle(t *testing.T) {
	rt, _ := testRuntime(t)
	z := bareZone("test")
	p := testPlayer(rt, "0xaaa")
	p.HP = p.MaxHP - 100
	z.Add(p)

	rt.AddEffect(z, p, &ActiveEffect{
		Type: EffectHoT, Name: "Regrowth", HotHealPerTick: 5, DurationTicks: 6,
	})
	start := p.HP

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		require.Len(t, p.ActiveEffects, 1, "effect present while ticking")
		rt.tickZone(ctx, z)
	}
	// 6 ticks of 5 hp, plus passive regen each tick.
	regen := 6 * max(1, p.MaxHP/hpRegenDivisor)
	require.Equal(t, start+30+regen, p.HP)
	require.Empty(t, p.ActiveEffects, "effect removed after its duration")
}

func TestDotKillsMobAndCreditsCaster(t *testing.T) {
	rt, stub := testRuntime(t)
	z := bareZone("test")
	z.Tick = 50

	caster := testPlayer(rt, "0xcaster")
	z.Add(caster)
	xpBefore := caster.XP

	mob := NewEntity(TypeMob, "Gray Wolf", 105, 100)
	mob.MobName = "Gray Wolf"
	mob.HP = 30
	mob.MaxHP = 30
	mob.XPReward = 35
	mob.LootTable = "wolf"
	mob.Skinnable = true
	mob.SkinTier = 1
	z.Add(mob)

	rt.AddEffect(z, mob, &ActiveEffect{
		Type: EffectDoT, Name: "Ignite", CasterID: caster.ID, DotDamage: 10, DurationTicks: 4,
	})

	ctx := context.Background()
	rt.tickZone(ctx, z)
	require.Equal(t, 20, mob.HP)
	rt.tickZone(ctx, z)
	require.Equal(t, 10, mob.HP)
	rt.tickZone(ctx, z)

	require.Nil(t, z.Get(mob.ID), "mob removed on death")
	require.Equal(t, xpBefore+35, caster.XP, "caster credited with the kill")
	require.EqualValues(t, 1, caster.Kills)

	// Loot gold minted to the caster's wallet on the stub ledger.
	bal, err := stub.GoldBalance(ctx, "0xcaster")
	require.NoError(t, err)
	require.Positive(t, bal)

	// Skinnable mob leaves a corpse.
	var corpse *Entity
	for _, e := range z.Entities {
		if e.Type == TypeCorpse {
			corpse = e
		}
	}
	require.NotNil(t, corpse)
	require.Equal(t, "Gray Wolf", corpse.MobName)
	require.Greater(t, corpse.SkinnableUntil, z.Tick)
}

func TestNodeRespawnExactTick(t *testing.T) {
	rt, _ := testRuntime(t)
	z := bareZone("test")

	node := NewEntity(TypeFlowerNode, "Lavender", 50, 50)
	node.Charges = 0
	node.MaxCharges = 3
	node.RespawnTicks = 10
	node.DepletedAtTick = 5
	z.Add(node)

	ctx := context.Background()
	z.Tick = 5
	for z.Tick < 14 {
		rt.tickZone(ctx, z)
		require.Zero(t, node.Charges, "no respawn before the deadline (tick %d)", z.Tick)
	}
	rt.tickZone(ctx, z) // advances to tick 15 = depletedAt + respawnTicks
	require.Equal(t, 3, node.Charges)
}

func TestVitalsExcludeBrokenEquipment(t *testing.T) {
	rt, _ := testRuntime(t)
	p := testPlayer(rt, "0xaaa")
	base := p.EffectiveStats[catalog.StatStamina]

	p.Equipment = map[string]*EquippedItem{
		"chest": {TokenID: catalog.TokLeatherVest, Name: "Leather Vest", Slot: "chest", Durability: 10, MaxDurability: 60},
	}
	rt.RecalculateVitals(p)
	require.Equal(t, base+2, p.EffectiveStats[catalog.StatStamina])

	p.Equipment["chest"].Wear(-10)
	require.True(t, p.Equipment["chest"].Broken)
	rt.RecalculateVitals(p)
	require.Equal(t, base, p.EffectiveStats[catalog.StatStamina], "broken items grant nothing")
}

func TestVitalsIncludeRolledStats(t *testing.T) {
	rt, _ := testRuntime(t)
	p := testPlayer(rt, "0xaaa")
	base := p.EffectiveStats[catalog.StatStamina]

	p.Equipment = map[string]*EquippedItem{
		"chest": {TokenID: catalog.TokLeatherVest, Name: "Leather Vest of the Bear", Slot: "chest",
			Durability: 60, MaxDurability: 60, Quality: "rare", BonusAffix: "of the Bear",
			RolledStats: map[string]int{catalog.StatStamina: 2}},
	}
	rt.RecalculateVitals(p)
	require.Equal(t, base+4, p.EffectiveStats[catalog.StatStamina], "item bonus plus rolled bonus")

	p.Equipment["chest"].Wear(-60)
	rt.RecalculateVitals(p)
	require.Equal(t, base, p.EffectiveStats[catalog.StatStamina], "broken items lose rolled bonuses too")
}

func TestBuffAndDebuffModifyEffectiveStats(t *testing.T) {
	rt, _ := testRuntime(t)
	z := bareZone("test")
	p := testPlayer(rt, "0xaaa")
	z.Add(p)
	base := p.EffectiveStats[catalog.StatStrength]

	rt.AddEffect(z, p, &ActiveEffect{
		Type: EffectBuff, DurationTicks: 5,
		StatModifiers: map[string]int{catalog.StatStrength: 4},
	})
	require.Equal(t, base+4, p.EffectiveStats[catalog.StatStrength])

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		rt.tickZone(ctx, z)
	}
	require.Equal(t, base, p.EffectiveStats[catalog.StatStrength], "stats restored on expiry")
}

func TestShieldAbsorbsBeforeHP(t *testing.T) {
	rt, _ := testRuntime(t)
	z := bareZone("test")
	p := testPlayer(rt, "0xaaa")
	z.Add(p)

	rt.AddEffect(z, p, &ActiveEffect{Type: EffectShield, DurationTicks: 10, ShieldHP: 40, ShieldMaxHP: 40})
	hp := p.HP

	rt.ApplyDamage(context.Background(), z, p, 25, "")
	require.Equal(t, hp, p.HP, "shield soaks the full hit")
	require.Equal(t, 15, p.ActiveEffects[0].ShieldHP)

	rt.ApplyDamage(context.Background(), z, p, 25, "")
	require.Equal(t, hp-10, p.HP, "overflow past the shield lands on hp")
}

func TestLevelUpGrantsSignatureTechnique(t *testing.T) {
	rt, _ := testRuntime(t)
	z := bareZone("test")

	p := NewEntity(TypePlayer, "Apprentice", 100, 100)
	p.Wallet = "0xabc1234567890def1234567890abcdef12345678"
	p.Level = 14
	p.XP = XPRequired(14)
	p.RaceID = "elf"
	p.ClassID = "mage"
	p.BaseStats = BaseStatsFor("elf", "mage", 14)
	rt.RecalculateVitals(p)
	p.HP = p.MaxHP
	z.Add(p)

	rt.GrantXP(context.Background(), z, p, XPRequired(15)-XPRequired(14))

	require.Equal(t, 15, p.Level)
	require.Equal(t, "essence_signature_abc12345_mage", p.SignatureTechniqueID)
	require.True(t, p.HasLearned(p.SignatureTechniqueID))
	require.Empty(t, p.UltimateTechniqueID, "ultimate waits for level 30")

	tech, err := rt.Reg.Resolve(p.SignatureTechniqueID)
	require.NoError(t, err)
	require.Equal(t, "rare", tech.QualityTier)
}

func TestPlayerDeathRespawnsAtGraveyardWithXPDebt(t *testing.T) {
	rt, _ := testRuntime(t)
	z := bareZone("test")
	p := testPlayer(rt, "0xaaa")
	p.XP = XPRequired(5) + 300
	z.Add(p)

	rt.ApplyDamage(context.Background(), z, p, p.HP+100, "")

	require.Equal(t, z.Layout.GraveyardX, p.X)
	require.Equal(t, z.Layout.GraveyardY, p.Y)
	require.Equal(t, p.MaxHP, p.HP)
	require.Equal(t, 5, p.Level, "death never de-levels")

	// Debt is a tenth of the level bracket (level 5 -> 6 spans 500 xp).
	require.Equal(t, XPRequired(5)+300-50, p.XP)
}

func TestDotKillingPlayerStripsEffects(t *testing.T) {
	rt, _ := testRuntime(t)
	z := bareZone("test")
	p := testPlayer(rt, "0xaaa")
	z.Add(p)
	baseStr := p.EffectiveStats[catalog.StatStrength]

	rt.AddEffect(z, p, &ActiveEffect{Type: EffectDoT, Name: "Venom", DotDamage: 10, DurationTicks: 8})
	rt.AddEffect(z, p, &ActiveEffect{
		Type: EffectBuff, Name: "War Cry", DurationTicks: 8,
		StatModifiers: map[string]int{catalog.StatStrength: 4},
	})
	p.HP = 5

	rt.tickZone(context.Background(), z)

	require.Equal(t, z.Layout.GraveyardX, p.X)
	require.Equal(t, z.Layout.GraveyardY, p.Y)
	require.Equal(t, p.MaxHP, p.HP)
	require.Empty(t, p.ActiveEffects, "death strips every effect")
	require.Equal(t, baseStr, p.EffectiveStats[catalog.StatStrength], "buff does not follow through respawn")
}

func TestXPDebtFlooredAtLevelStart(t *testing.T) {
	p := &Entity{Type: TypePlayer, Level: 5, XP: XPRequired(5) + 10}
	debt := ApplyXPDebt(p)
	require.EqualValues(t, 10, debt)
	require.Equal(t, XPRequired(5), p.XP)
}

func TestPartyXPSplit(t *testing.T) {
	rt, _ := testRuntime(t)
	z := bareZone("test")

	a := testPlayer(rt, "0xaaa")
	a.PartyID = "party-1"
	b := testPlayer(rt, "0xbbb")
	b.PartyID = "party-1"
	z.Add(a)
	z.Add(b)
	xpA, xpB := a.XP, b.XP

	mob := NewEntity(TypeMob, "Wild Boar", 101, 100)
	mob.HP = 1
	mob.MaxHP = 1
	mob.XPReward = 100
	z.Add(mob)

	rt.ApplyDamage(context.Background(), z, mob, 5, a.ID)

	// 100 xp, two members: 10% party bonus then even split = 55 each.
	require.Equal(t, xpA+55, a.XP)
	require.Equal(t, xpB+55, b.XP)
}

func TestPartyXPCapNeverDropsKiller(t *testing.T) {
	rt, _ := testRuntime(t)
	z := bareZone("test")

	wallets := []string{"0xa1", "0xa2", "0xa3", "0xa4", "0xa5", "0xa6"}
	players := make([]*Entity, 0, len(wallets))
	for _, w := range wallets {
		p := testPlayer(rt, w)
		p.PartyID = "party-1"
		z.Add(p)
		players = append(players, p)
	}
	killer := players[3]
	before := make(map[string]int64, len(players))
	for _, p := range players {
		before[p.ID] = p.XP
	}

	mob := NewEntity(TypeMob, "Wild Boar", killer.X+1, killer.Y)
	mob.HP = 1
	mob.MaxHP = 1
	mob.XPReward = 100
	z.Add(mob)

	rt.ApplyDamage(context.Background(), z, mob, 5, killer.ID)

	// Five paid members: 100 xp with a 40% party bonus splits to 28 each.
	require.Equal(t, before[killer.ID]+28, killer.XP, "killer always gets a share")
	paid := 0
	for _, p := range players {
		if p.XP > before[p.ID] {
			require.Equal(t, before[p.ID]+28, p.XP)
			paid++
		}
	}
	require.Equal(t, 5, paid)
}

func TestEntitiesWithinRadius(t *testing.T) {
	rt, _ := testRuntime(t)
	z := bareZone("test")
	_ = rt

	near := NewEntity(TypeMob, "Near", 100, 102)
	near.HP = 10
	far := NewEntity(TypeMob, "Far", 100, 150)
	far.HP = 10
	z.Add(near)
	z.Add(far)

	got := z.EntitiesWithin(100, 100, 5, func(e *Entity) bool { return e.Hostile() })
	require.Len(t, got, 1)
	require.Equal(t, "Near", got[0].Name)
}

func TestZoneMaterializationIsDeterministic(t *testing.T) {
	rtA, _ := testRuntime(t)
	rtB, _ := testRuntime(t)

	za, err := rtA.GetOrCreateZone("wild-meadow")
	require.NoError(t, err)
	zb, err := rtB.GetOrCreateZone("wild-meadow")
	require.NoError(t, err)

	require.Equal(t, len(za.Entities), len(zb.Entities))

	positions := func(z *Zone) [][2]float64 {
		var out [][2]float64
		for _, e := range z.Entities {
			if e.Type == TypeFlowerNode {
				out = append(out, [2]float64{e.X, e.Y})
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i][0] != out[j][0] {
				return out[i][0] < out[j][0]
			}
			return out[i][1] < out[j][1]
		})
		return out
	}
	require.Equal(t, positions(za), positions(zb))
}

func TestMobAggroAndMelee(t *testing.T) {
	rt, _ := testRuntime(t)
	z := bareZone("test")

	p := testPlayer(rt, "0xaaa")
	p.X, p.Y = 100, 100
	z.Add(p)

	mob := NewEntity(TypeMob, "Gray Wolf", 101, 100)
	mob.HP = 40
	mob.MaxHP = 40
	mob.Damage = 5
	mob.AggroRadius = 6
	mob.SpawnX, mob.SpawnY = 101, 100
	z.Add(mob)

	hp := p.HP
	rt.tickZone(context.Background(), z)
	require.Equal(t, hp-5, p.HP, "mob in melee range attacks")
	require.Equal(t, p.ID, mob.TargetID)
}
