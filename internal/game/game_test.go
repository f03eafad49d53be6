package game

import (
	"context"
	"fmt"
	"testing"

	"github.com/emberwild/shard/internal/catalog"
	"github.com/emberwild/shard/internal/chain"
	"github.com/emberwild/shard/internal/events"
	"github.com/emberwild/shard/internal/ledger"
	"github.com/emberwild/shard/internal/merchant"
	"github.com/emberwild/shard/internal/store"
	"github.com/emberwild/shard/internal/techniques"
	"github.com/emberwild/shard/internal/world"
	"github.com/stretchr/testify/require"
)

const wallet = "0xabc1234567890def1234567890abcdef12345678"

type fixture struct {
	svc  *Service
	stub *chain.Stub
	bus  *events.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.Load("")
	require.NoError(t, err)
	stub := chain.NewStub()
	bus := events.NewBus(200)
	rt := world.NewRuntime(cat, stub, bus, techniques.NewRegistry(cat), 42)
	merchants := merchant.NewManager(cat, stub, bus)
	svc := NewService(rt, cat, stub, ledger.New(), store.New(nil), bus, merchants)
	return &fixture{svc: svc, stub: stub, bus: bus}
}

// spawnWarrior places a level-5 warrior and returns its entity id.
func (f *fixture) spawnWarrior(t *testing.T, zoneID string) string {
	t.Helper()
	res, err := f.svc.Spawn(context.Background(), wallet, &SpawnRequest{
		ZoneID: zoneID, Name: "Brakka", RaceID: "orc", ClassID: "warrior", Level: 5,
	})
	require.NoError(t, err)
	require.False(t, res.Restored)
	return res.Spawned.ID
}

// find locates the first entity matching pred and returns its id and
// position.
func (f *fixture) find(t *testing.T, zoneID string, pred func(*world.Entity) bool) (string, float64, float64) {
	t.Helper()
	var id string
	var x, y float64
	require.NoError(t, f.svc.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		for _, e := range z.Entities {
			if pred(e) {
				id, x, y = e.ID, e.X, e.Y
				return nil
			}
		}
		return nil
	}))
	require.NotEmpty(t, id, "no matching entity in %s", zoneID)
	return id, x, y
}

// place teleports an entity, bypassing movement validation; tests position
// actors precisely.
func (f *fixture) place(t *testing.T, zoneID, entityID string, x, y float64) {
	t.Helper()
	require.NoError(t, f.svc.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e := z.Get(entityID)
		require.NotNil(t, e)
		z.MoveEntity(e, x, y)
		return nil
	}))
}

func (f *fixture) grantProfessions(t *testing.T, zoneID, entityID string, profs ...string) {
	t.Helper()
	require.NoError(t, f.svc.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e := z.Get(entityID)
		e.Professions = append(e.Professions, profs...)
		return nil
	}))
}

func TestGatherCraftConsume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.spawnWarrior(t, "wild-meadow")
	f.grantProfessions(t, "wild-meadow", id, "herbalism", "alchemy", "cooking")

	// Equip a tier-2 sickle held on chain.
	_, err := f.stub.MintItem(ctx, wallet, catalog.TokIronSickle, 1)
	require.NoError(t, err)
	_, err = f.svc.Equip(ctx, wallet, "wild-meadow", id, catalog.TokIronSickle)
	require.NoError(t, err)

	// Stand next to a Lavender node (tier 2, 3 charges).
	nodeID, nx, ny := f.find(t, "wild-meadow", func(e *world.Entity) bool {
		return e.Type == world.TypeFlowerNode && e.ResourceName == "Lavender"
	})
	f.place(t, "wild-meadow", id, nx+1, ny)

	// Three gathers exhaust the node and cost 3 durability.
	for i := 1; i <= 3; i++ {
		res, err := f.svc.Herb(ctx, wallet, "wild-meadow", id, nodeID)
		require.NoError(t, err, "gather %d", i)
		require.Equal(t, 3-i, res.ChargesLeft)
		require.Equal(t, 60-i, res.ToolDurability)
	}
	_, err = f.svc.Herb(ctx, wallet, "wild-meadow", id, nodeID)
	rule, ok := AsRule(err)
	require.True(t, ok)
	require.Contains(t, rule.Message, "depleted")

	bal, err := f.stub.ItemBalance(ctx, wallet, catalog.TokLavender)
	require.NoError(t, err)
	require.EqualValues(t, 3, bal)

	// Brew a stamina elixir at the alchemy lab (2 Lavender + 1 Mint).
	_, err = f.stub.MintItem(ctx, wallet, catalog.TokMint, 1)
	require.NoError(t, err)
	labID, lx, ly := f.find(t, "wild-meadow", func(e *world.Entity) bool {
		return e.Type == world.TypeAlchemyLab
	})
	f.place(t, "wild-meadow", id, lx+1, ly)

	craft, err := f.svc.Craft(ctx, wallet, "wild-meadow", id, labID, "brew_stamina_elixir")
	require.NoError(t, err)
	require.EqualValues(t, catalog.TokStaminaElixir, craft.OutputTokenID)

	bal, _ = f.stub.ItemBalance(ctx, wallet, catalog.TokLavender)
	require.EqualValues(t, 1, bal, "2 of 3 lavender burned")
	bal, _ = f.stub.ItemBalance(ctx, wallet, catalog.TokMint)
	require.Zero(t, bal)
	bal, _ = f.stub.ItemBalance(ctx, wallet, catalog.TokStaminaElixir)
	require.EqualValues(t, 1, bal)

	// Consuming cooked meat restores 30 hp, capped at max.
	_, err = f.stub.MintItem(ctx, wallet, catalog.TokCookedMeat, 1)
	require.NoError(t, err)
	require.NoError(t, f.svc.Runtime.WithZone("wild-meadow", func(z *world.Zone) error {
		z.Get(id).HP -= 50
		return nil
	}))
	eaten, err := f.svc.Consume(ctx, wallet, "wild-meadow", id, catalog.TokCookedMeat)
	require.NoError(t, err)
	require.Equal(t, 30, eaten.Healed)
}

func TestGatherRejectsLowTierTool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.spawnWarrior(t, "wild-meadow")
	f.grantProfessions(t, "wild-meadow", id, "herbalism")

	_, err := f.stub.MintItem(ctx, wallet, catalog.TokCopperSickle, 1)
	require.NoError(t, err)
	_, err = f.svc.Equip(ctx, wallet, "wild-meadow", id, catalog.TokCopperSickle)
	require.NoError(t, err)

	nodeID, nx, ny := f.find(t, "wild-meadow", func(e *world.Entity) bool {
		return e.Type == world.TypeFlowerNode && e.ResourceName == "Lavender"
	})
	f.place(t, "wild-meadow", id, nx+1, ny)

	_, err = f.svc.Herb(ctx, wallet, "wild-meadow", id, nodeID)
	rule, ok := AsRule(err)
	require.True(t, ok)
	require.Equal(t, CodeRule, rule.Code)
	require.EqualValues(t, 2, rule.Hints["requiredTier"])
}

func TestCooldownEnforcement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Spawn(ctx, wallet, &SpawnRequest{
		ZoneID: "wild-meadow", Name: "Vel", RaceID: "elf", ClassID: "mage", Level: 10,
	})
	require.NoError(t, err)
	id := res.Spawned.ID

	require.NoError(t, f.svc.LearnTechnique(ctx, wallet, "wild-meadow", id, "barrier"))

	setTick := func(tick int64) {
		require.NoError(t, f.svc.Runtime.WithZone("wild-meadow", func(z *world.Zone) error {
			z.Tick = tick
			return nil
		}))
	}

	setTick(100)
	used, err := f.svc.UseTechnique(ctx, wallet, "wild-meadow", id, "barrier", "")
	require.NoError(t, err)
	require.True(t, used.Success)
	require.EqualValues(t, 120, used.CooldownExpiresAtTick, "cooldown 20 from tick 100")

	setTick(119)
	_, err = f.svc.UseTechnique(ctx, wallet, "wild-meadow", id, "barrier", "")
	rule, ok := AsRule(err)
	require.True(t, ok)
	require.Equal(t, CodeCooldown, rule.Code)
	require.Contains(t, rule.Message, "remainingSeconds=1")

	setTick(120)
	used, err = f.svc.UseTechnique(ctx, wallet, "wild-meadow", id, "barrier", "")
	require.NoError(t, err)
	require.True(t, used.Success)
}

func TestCraftRollReplayable(t *testing.T) {
	q1, a1, s1 := rollCraft(wallet, "forge_iron_sword", 12345)
	q2, a2, s2 := rollCraft(wallet, "forge_iron_sword", 12345)
	require.Equal(t, q1, q2)
	require.Equal(t, a1, a2)
	require.Equal(t, s1, s2)

	require.Contains(t, qualityTiers, q1)
	if q1 == "common" {
		require.Empty(t, a1)
		require.Empty(t, s1)
	} else {
		require.NotEmpty(t, a1)
		require.Len(t, s1, 1, "one affixed stat above common")
	}
}

func TestCraftRollCarriesIntoEquip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.spawnWarrior(t, "ashen-hills")
	f.grantProfessions(t, "ashen-hills", id, "blacksmithing")

	_, err := f.stub.MintItem(ctx, wallet, catalog.TokIronBar, 3)
	require.NoError(t, err)
	_, err = f.stub.MintItem(ctx, wallet, catalog.TokWolfPelt, 1)
	require.NoError(t, err)

	forgeID, gx, gy := f.find(t, "ashen-hills", func(e *world.Entity) bool {
		return e.Type == world.TypeForge
	})
	f.place(t, "ashen-hills", id, gx+1, gy)

	craft, err := f.svc.Craft(ctx, wallet, "ashen-hills", id, forgeID, "forge_iron_sword")
	require.NoError(t, err)
	require.Contains(t, qualityTiers, craft.Quality)
	if craft.Quality == "common" {
		require.Empty(t, craft.BonusAffix)
		require.Empty(t, craft.RolledStats)
	} else {
		require.NotEmpty(t, craft.BonusAffix)
		require.NotEmpty(t, craft.RolledStats)
	}

	// Equipping the crafted sword attaches the roll and counts its bonuses.
	e, err := f.svc.Equip(ctx, wallet, "ashen-hills", id, catalog.TokIronSword)
	require.NoError(t, err)
	it := e.Equipment["weapon"]
	require.NotNil(t, it)
	require.Equal(t, craft.Quality, it.Quality)
	require.Equal(t, craft.BonusAffix, it.BonusAffix)
	require.Equal(t, craft.RolledStats, it.RolledStats)
	for stat, bonus := range it.RolledStats {
		require.GreaterOrEqual(t, e.EffectiveStats[stat], e.BaseStats[stat]+bonus)
	}
}

func TestCraftMintFailureRecordsStuckMaterials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.spawnWarrior(t, "wild-meadow")
	f.grantProfessions(t, "wild-meadow", id, "cooking")

	_, err := f.stub.MintItem(ctx, wallet, catalog.TokRawMeat, 1)
	require.NoError(t, err)

	fireID, fx, fy := f.find(t, "wild-meadow", func(e *world.Entity) bool {
		return e.Type == world.TypeCampfire
	})
	f.place(t, "wild-meadow", id, fx+1, fy)

	// Output mint fails after the raw meat has burned.
	f.stub.FailWrites = func(op, addr string, tokenID int64) error {
		if op == "mintItem" && tokenID == catalog.TokCookedMeat {
			return fmt.Errorf("reverted")
		}
		return nil
	}

	_, err = f.svc.Craft(ctx, wallet, "wild-meadow", id, fireID, "cook_meat")
	rule, ok := AsRule(err)
	require.True(t, ok)
	require.Equal(t, CodeLedger, rule.Code)

	// The raw meat is gone; the incident event carries what was burned.
	bal, _ := f.stub.ItemBalance(ctx, wallet, catalog.TokRawMeat)
	require.Zero(t, bal)
	var stuck []events.Event
	for _, ev := range f.bus.Recent("wild-meadow", 0) {
		if ev.Category == events.CategoryStuck {
			stuck = append(stuck, ev)
		}
	}
	require.Len(t, stuck, 1)
	require.Equal(t, "cook_meat", stuck[0].Details["recipeId"])
}

func TestGatherMintFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.spawnWarrior(t, "wild-meadow")
	f.grantProfessions(t, "wild-meadow", id, "herbalism")

	_, err := f.stub.MintItem(ctx, wallet, catalog.TokIronSickle, 1)
	require.NoError(t, err)
	_, err = f.svc.Equip(ctx, wallet, "wild-meadow", id, catalog.TokIronSickle)
	require.NoError(t, err)

	nodeID, nx, ny := f.find(t, "wild-meadow", func(e *world.Entity) bool {
		return e.Type == world.TypeFlowerNode && e.ResourceName == "Mint"
	})
	f.place(t, "wild-meadow", id, nx+1, ny)

	f.stub.FailWrites = func(op, addr string, tokenID int64) error {
		if op == "mintItem" {
			return fmt.Errorf("reverted")
		}
		return nil
	}

	_, err = f.svc.Herb(ctx, wallet, "wild-meadow", id, nodeID)
	rule, ok := AsRule(err)
	require.True(t, ok)
	require.Equal(t, CodeLedger, rule.Code)

	// Charge and durability restored.
	require.NoError(t, f.svc.Runtime.WithZone("wild-meadow", func(z *world.Zone) error {
		node := z.Get(nodeID)
		require.Equal(t, 3, node.Charges)
		tool := z.Get(id).Equipment["tool"]
		require.Equal(t, 60, tool.Durability)
		return nil
	}))
}

func TestBuyAndSellAtDynamicPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.spawnWarrior(t, "wild-meadow")

	merchantID, mx, my := f.find(t, "wild-meadow", func(e *world.Entity) bool {
		return e.Type == world.TypeMerchant
	})
	require.NoError(t, f.svc.Runtime.WithZone("wild-meadow", func(z *world.Zone) error {
		npc := z.Get(merchantID)
		f.svc.Merchants.Register(z.ID, npc.Name, "", npc.Stock)
		return nil
	}))
	f.place(t, "wild-meadow", id, mx+1, my)

	_, err := f.stub.MintGold(ctx, wallet, 10_000)
	require.NoError(t, err)

	// Cooked meat base 40c at target stock sells for 40.
	bought, err := f.svc.Buy(ctx, wallet, "wild-meadow", id, merchantID, catalog.TokCookedMeat, 1)
	require.NoError(t, err)
	require.EqualValues(t, 40, bought.UnitCopper)

	gold, _ := f.stub.GoldBalance(ctx, wallet)
	require.EqualValues(t, 10_000-40, gold)
	meat, _ := f.stub.ItemBalance(ctx, wallet, catalog.TokCookedMeat)
	require.EqualValues(t, 1, meat)

	// Selling one back pays the buyback rate and restocks the merchant.
	sold, err := f.svc.Sell(ctx, wallet, "wild-meadow", id, merchantID, catalog.TokCookedMeat, 1)
	require.NoError(t, err)
	require.Positive(t, sold.UnitCopper)
	require.Less(t, sold.UnitCopper, bought.UnitCopper)

	meat, _ = f.stub.ItemBalance(ctx, wallet, catalog.TokCookedMeat)
	require.Zero(t, meat)
}

func TestOwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.spawnWarrior(t, "wild-meadow")

	_, err := f.svc.Move(ctx, "0xsomeoneelse", "wild-meadow", id, 50, 50)
	rule, ok := AsRule(err)
	require.True(t, ok)
	require.Equal(t, CodeForbidden, rule.Code)
}

func TestSpawnRestoresSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.spawnWarrior(t, "wild-meadow")

	// Progress a little, then log out.
	require.NoError(t, f.svc.Runtime.WithZone("wild-meadow", func(z *world.Zone) error {
		z.Get(id).Kills = 3
		return nil
	}))
	require.NoError(t, f.svc.Logout(ctx, wallet, "wild-meadow", id))

	res, err := f.svc.Spawn(ctx, wallet, &SpawnRequest{ZoneID: "ashen-hills", Name: "Brakka"})
	require.NoError(t, err)
	require.True(t, res.Restored)
	require.Equal(t, "wild-meadow", res.Zone, "save zone wins over requested zone")
	require.EqualValues(t, 3, res.Spawned.Kills)
	require.Equal(t, 5, res.Spawned.Level)
	require.Equal(t, "warrior", res.Spawned.ClassID)
}

func TestPortalTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.spawnWarrior(t, "wild-meadow")

	_, px, py := f.find(t, "wild-meadow", func(e *world.Entity) bool {
		return e.Type == world.TypePortal
	})
	f.place(t, "wild-meadow", id, px+1, py)

	res, err := f.svc.TransitionAuto(ctx, wallet, "wild-meadow", id)
	require.NoError(t, err)
	require.Equal(t, "ashen-hills", res.ToZone)

	z, e := f.svc.Runtime.FindPlayer(wallet)
	require.Equal(t, "ashen-hills", z.ID)
	require.Equal(t, id, e.ID)
}

func TestQuestTurnInBurnsItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.spawnWarrior(t, "wild-meadow")

	_, err := f.stub.MintItem(ctx, wallet, catalog.TokLavender, 3)
	require.NoError(t, err)

	_, qx, qy := f.find(t, "wild-meadow", func(e *world.Entity) bool {
		return e.Type == world.TypeQuestGiver
	})
	f.place(t, "wild-meadow", id, qx+1, qy)

	reward, err := f.svc.CompleteQuest(ctx, wallet, "wild-meadow", id, "lavender-for-the-lab")
	require.NoError(t, err)
	require.EqualValues(t, 300, reward.RewardCopper)

	bal, _ := f.stub.ItemBalance(ctx, wallet, catalog.TokLavender)
	require.Zero(t, bal, "turn-in consumed the lavender")
	gold, _ := f.stub.GoldBalance(ctx, wallet)
	require.EqualValues(t, 300, gold)

	_, err = f.svc.CompleteQuest(ctx, wallet, "wild-meadow", id, "lavender-for-the-lab")
	require.Error(t, err, "no double completion")
}
