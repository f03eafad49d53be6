package agent

import (
	"context"
	"fmt"
	"math"

	"github.com/emberwild/shard/internal/game"
	"github.com/emberwild/shard/internal/store"
	"github.com/emberwild/shard/internal/world"
)

// How close a policy walks toward its goal per iteration. Kept under the
// zone's interact range so one more step always lands in range.
const policyStep = 4.0

// seen is one entity copied out from under the zone lock, so policy
// decisions never hold it.
type seen struct {
	id     string
	typ    string
	name   string
	x, y   float64
	dist   float64
	hp     int
	maxHP  int
}

// act runs the focus policy for one iteration and returns a short label of
// what was done.
func (r *Runner) act(ctx context.Context, cfg *store.AgentConfig, zoneID, entityID string) (string, error) {
	switch cfg.Focus {
	case "combat":
		return r.actCombat(ctx, zoneID, entityID, cfg.Strategy)
	case "crafting", "alchemy", "cooking", "enchanting":
		return r.actCrafting(ctx, zoneID, entityID)
	case "trading":
		return r.actTrading(ctx, zoneID, entityID)
	case "questing":
		return r.actQuesting(ctx, zoneID, entityID)
	case "idle":
		return "idle", nil
	default: // gathering
		return r.actGathering(ctx, zoneID, entityID)
	}
}

// travelToward walks the agent to the nearest portal and steps through it
// when in range, pursuing cfg.TargetZone.
func (r *Runner) travelToward(ctx context.Context, cfg *store.AgentConfig) (string, error) {
	svc := r.mgr.svc
	goal, self, err := r.observe(cfg.ZoneID, cfg.EntityID, func(e *world.Entity) bool {
		return e.Type == world.TypePortal && e.ToZone == cfg.TargetZone
	})
	if err != nil {
		return "", err
	}
	if goal == nil {
		return "", fmt.Errorf("no portal to %s in zone %s", cfg.TargetZone, cfg.ZoneID)
	}
	if goal.dist > 5.0 {
		if err := r.stepToward(ctx, cfg.ZoneID, cfg.EntityID, self, goal); err != nil {
			return "", err
		}
		return fmt.Sprintf("walking to portal (%0.f away)", goal.dist), nil
	}
	res, err := svc.UsePortal(ctx, r.wallet, cfg.ZoneID, cfg.EntityID, goal.id)
	if err != nil {
		return "", err
	}
	cfg.ZoneID = res.ToZone
	cfg.EntityID = res.Entity.ID
	cfg.TargetZone = ""
	r.mgr.store.SaveAgentConfig(r.wallet, cfg)
	return fmt.Sprintf("traveled to %s", res.ToZone), nil
}

func (r *Runner) actGathering(ctx context.Context, zoneID, entityID string) (string, error) {
	goal, self, err := r.observe(zoneID, entityID, func(e *world.Entity) bool {
		return (e.Type == world.TypeOreNode || e.Type == world.TypeFlowerNode) && e.Charges > 0
	})
	if err != nil {
		return "", err
	}
	if goal == nil {
		return "no gatherable nodes up", nil
	}
	if goal.dist > 5.0 {
		if err := r.stepToward(ctx, zoneID, entityID, self, goal); err != nil {
			return "", err
		}
		return fmt.Sprintf("walking to %s", goal.name), nil
	}
	var err2 error
	if goal.typ == world.TypeOreNode {
		_, err2 = r.mgr.svc.Mine(ctx, r.wallet, zoneID, entityID, goal.id)
	} else {
		_, err2 = r.mgr.svc.Herb(ctx, r.wallet, zoneID, entityID, goal.id)
	}
	if err2 != nil {
		return "", err2
	}
	return fmt.Sprintf("gathered %s", goal.name), nil
}

func (r *Runner) actCombat(ctx context.Context, zoneID, entityID, strategy string) (string, error) {
	goal, self, err := r.observe(zoneID, entityID, func(e *world.Entity) bool {
		if e.Type != world.TypeMob && e.Type != world.TypeBoss {
			return false
		}
		if strategy == "defensive" && e.Type == world.TypeBoss {
			return false
		}
		return e.Alive()
	})
	if err != nil {
		return "", err
	}
	// Defensive agents disengage and recover when hurt.
	if strategy == "defensive" && self.hp*2 < self.maxHP {
		return "recovering", nil
	}
	if goal == nil {
		return "no hostiles nearby", nil
	}
	if goal.dist > 2.0 {
		if err := r.stepToward(ctx, zoneID, entityID, self, goal); err != nil {
			return "", err
		}
		return fmt.Sprintf("closing on %s", goal.name), nil
	}
	res, err := r.mgr.svc.Attack(ctx, r.wallet, zoneID, entityID, goal.id)
	if err != nil {
		return "", err
	}
	if res.Killed {
		return fmt.Sprintf("killed %s", goal.name), nil
	}
	return fmt.Sprintf("attacked %s for %d", goal.name, res.Damage), nil
}

// actCrafting walks to the nearest crafting station and attempts the first
// recipe whose materials the wallet holds.
func (r *Runner) actCrafting(ctx context.Context, zoneID, entityID string) (string, error) {
	goal, self, err := r.observe(zoneID, entityID, func(e *world.Entity) bool {
		switch e.Type {
		case world.TypeForge, world.TypeAlchemyLab, world.TypeCampfire,
			world.TypeTanningRack, world.TypeJewelerBench:
			return true
		}
		return false
	})
	if err != nil {
		return "", err
	}
	if goal == nil {
		return "no crafting station in zone", nil
	}
	if goal.dist > 5.0 {
		if err := r.stepToward(ctx, zoneID, entityID, self, goal); err != nil {
			return "", err
		}
		return fmt.Sprintf("walking to %s", goal.typ), nil
	}
	recipeID, err := r.craftableRecipe(ctx, goal.typ)
	if err != nil {
		return "", err
	}
	if recipeID == "" {
		return "no craftable recipe with current materials", nil
	}
	res, err := r.mgr.svc.Craft(ctx, r.wallet, zoneID, entityID, goal.id, recipeID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("crafted %s", res.OutputName), nil
}

// craftableRecipe scans the catalog for a recipe matching the station whose
// materials the wallet can cover.
func (r *Runner) craftableRecipe(ctx context.Context, stationType string) (string, error) {
	for _, rec := range r.mgr.svc.Catalog.Recipes() {
		if rec.Station != stationType {
			continue
		}
		ok := true
		for _, mat := range rec.Materials {
			bal, err := r.mgr.chain.ItemBalance(ctx, r.wallet, mat.TokenID)
			if err != nil || bal < mat.Qty {
				ok = false
				break
			}
		}
		if ok {
			return rec.ID, nil
		}
	}
	return "", nil
}

// actQuesting walks to the zone's quest giver and turns in the first quest
// whose requirement the character already meets.
func (r *Runner) actQuesting(ctx context.Context, zoneID, entityID string) (string, error) {
	goal, self, err := r.observe(zoneID, entityID, func(e *world.Entity) bool {
		return e.Type == world.TypeQuestGiver
	})
	if err != nil {
		return "", err
	}
	if goal == nil {
		return "no quest giver in zone", nil
	}
	if goal.dist > 5.0 {
		if err := r.stepToward(ctx, zoneID, entityID, self, goal); err != nil {
			return "", err
		}
		return fmt.Sprintf("walking to %s", goal.name), nil
	}
	quests, err := r.mgr.svc.Quests(ctx, r.wallet, zoneID, entityID)
	if err != nil {
		return "", err
	}
	for _, q := range quests {
		if done, _ := q["completed"].(bool); done {
			continue
		}
		def, ok := q["quest"].(game.QuestDef)
		if !ok {
			continue
		}
		reward, err := r.mgr.svc.CompleteQuest(ctx, r.wallet, zoneID, entityID, def.ID)
		if err != nil {
			continue // requirement not met yet
		}
		return fmt.Sprintf("turned in %s for %dc", def.Name, reward.RewardCopper), nil
	}
	return "no quest ready to turn in", nil
}

// actTrading sells whatever gathered materials a nearby merchant buys.
func (r *Runner) actTrading(ctx context.Context, zoneID, entityID string) (string, error) {
	goal, self, err := r.observe(zoneID, entityID, func(e *world.Entity) bool {
		return e.Type == world.TypeMerchant
	})
	if err != nil {
		return "", err
	}
	if goal == nil {
		return "no merchant in zone", nil
	}
	if goal.dist > 5.0 {
		if err := r.stepToward(ctx, zoneID, entityID, self, goal); err != nil {
			return "", err
		}
		return fmt.Sprintf("walking to %s", goal.name), nil
	}
	for _, item := range r.mgr.svc.Catalog.Items() {
		if item.Kind != "material" {
			continue
		}
		bal, err := r.mgr.chain.ItemBalance(ctx, r.wallet, item.TokenID)
		if err != nil || bal == 0 {
			continue
		}
		res, err := r.mgr.svc.Sell(ctx, r.wallet, zoneID, entityID, goal.id, item.TokenID, bal)
		if err != nil {
			continue // merchant may not carry it
		}
		return fmt.Sprintf("sold %dx %s for %dc", bal, item.Name, res.Total), nil
	}
	return "nothing to sell", nil
}

// observe copies the agent's position and the nearest entity matching pred
// out from under the zone lock.
func (r *Runner) observe(zoneID, entityID string, pred func(*world.Entity) bool) (*seen, *seen, error) {
	var goal, self *seen
	err := r.mgr.svc.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		me := z.Get(entityID)
		if me == nil {
			return fmt.Errorf("entity %s not in zone %s", entityID, zoneID)
		}
		self = &seen{id: me.ID, x: me.X, y: me.Y, hp: me.HP, maxHP: me.MaxHP}
		best := math.MaxFloat64
		for _, e := range z.Entities {
			if e.ID == me.ID || !pred(e) {
				continue
			}
			if d := me.DistanceTo(e); d < best {
				best = d
				goal = &seen{id: e.ID, typ: e.Type, name: e.Name, x: e.X, y: e.Y, dist: d}
			}
		}
		return nil
	})
	return goal, self, err
}

// stepToward walks one bounded step toward the goal through the normal move
// pipeline, so walkability and clamping apply.
func (r *Runner) stepToward(ctx context.Context, zoneID, entityID string, self, goal *seen) error {
	dx, dy := goal.x-self.x, goal.y-self.y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return nil
	}
	step := math.Min(policyStep, dist)
	_, err := r.mgr.svc.Move(ctx, r.wallet, zoneID, entityID, self.x+dx/dist*step, self.y+dy/dist*step)
	return err
}
