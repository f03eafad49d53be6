package game

import (
	"context"
	"fmt"
	"math"

	"github.com/emberwild/shard/internal/catalog"
	"github.com/emberwild/shard/internal/events"
	"github.com/emberwild/shard/internal/world"
)

const (
	unarmedRange  = 2.0
	unarmedDamage = 2
	critMult      = 1.5
)

// AttackResult reports one resolved weapon swing.
type AttackResult struct {
	Damage   int    `json:"damage"`
	Crit     bool   `json:"crit"`
	Dodged   bool   `json:"dodged"`
	TargetHP int    `json:"targetHp"`
	Killed   bool   `json:"killed"`
	TargetID string `json:"targetId"`
}

// Attack resolves a basic weapon attack against a hostile target.
func (s *Service) Attack(ctx context.Context, wallet, zoneID, entityID, targetID string) (*AttackResult, error) {
	var result *AttackResult
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		attacker, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		target := z.Get(targetID)
		if target == nil {
			return errNotFound("target %q not found", targetID)
		}
		if !target.Hostile() {
			return errRule("%s cannot be attacked", target.Name)
		}
		if !target.Alive() {
			return errRule("%s is already dead", target.Name)
		}

		weaponRange, weaponDamage := unarmedRange, unarmedDamage
		if w, ok := attacker.Equipment["weapon"]; ok && w != nil && !w.Broken {
			if def, err := s.Catalog.ItemByTokenID(w.TokenID); err == nil {
				weaponRange, weaponDamage = def.Range, def.BaseDamage
			}
		}
		if attacker.DistanceTo(target) > weaponRange {
			return &RuleError{Code: CodeRule, Message: "target out of range",
				Hints: map[string]any{"range": weaponRange, "distance": attacker.DistanceTo(target)}}
		}

		result = &AttackResult{TargetID: target.ID}

		// Agile targets slip the occasional swing.
		dodge := 0.02 + float64(target.EffectiveStats[catalog.StatAgility])*0.002
		if s.Runtime.Roll() < dodge {
			result.Dodged = true
			result.TargetHP = target.HP
			return nil
		}

		str := attacker.EffectiveStats[catalog.StatStrength]
		dmg := weaponDamage + int(math.Floor(float64(str)*0.5))
		crit := 0.05 + float64(attacker.EffectiveStats[catalog.StatAgility])*0.002
		if s.Runtime.Roll() < crit {
			dmg = int(float64(dmg) * critMult)
			result.Crit = true
		}

		s.Runtime.ApplyDamage(ctx, z, target, dmg, attacker.ID)
		result.Damage = dmg
		result.TargetHP = target.HP
		result.Killed = !target.Alive()
		if result.Killed {
			s.diary(wallet, z, attacker, "kill", fmt.Sprintf("%s slew %s", attacker.Name, target.Name), nil)
			s.persist(z, attacker)
		}
		return nil
	})
	return result, err
}

// TechniqueResult reports a resolved technique use.
type TechniqueResult struct {
	Success                bool               `json:"success"`
	Technique              *catalog.Technique `json:"technique"`
	CasterEssence          int                `json:"casterEssence"`
	CooldownExpiresAtTick  int64              `json:"cooldownExpiresAtTick"`
	Damage                 int                `json:"damage,omitempty"`
	Healed                 int                `json:"healed,omitempty"`
	TargetsHit             []string           `json:"targetsHit,omitempty"`
	Killed                 bool               `json:"killed,omitempty"`
}

// UseTechnique validates and applies a technique: learned, essence,
// cooldown, target rules; then instant damage/heal and attached effects.
func (s *Service) UseTechnique(ctx context.Context, wallet, zoneID, casterID, techID, targetID string) (*TechniqueResult, error) {
	var result *TechniqueResult
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		caster, err := ownedEntity(z, casterID, wallet)
		if err != nil {
			return err
		}
		tech, err := s.Runtime.Reg.Resolve(techID)
		if err != nil {
			return errNotFound("unknown technique %q", techID)
		}
		if !caster.HasLearned(techID) {
			return errRule("%s has not learned %s", caster.Name, tech.Name)
		}
		if caster.Level < tech.LevelRequired {
			return errRule("%s requires level %d", tech.Name, tech.LevelRequired)
		}
		if until, ok := caster.Cooldowns[techID]; ok && z.Tick < until {
			remaining := until - z.Tick
			return &RuleError{Code: CodeCooldown,
				Message: fmt.Sprintf("%s is on cooldown (remainingSeconds=%d)", tech.Name, remaining),
				Hints:   map[string]any{"remainingSeconds": remaining, "readyAtTick": until}}
		}
		if caster.Essence < tech.EssenceCost {
			return errInsufficient("not enough essence: need %d, have %d", tech.EssenceCost, caster.Essence)
		}

		target, err := resolveTarget(z, caster, tech, targetID)
		if err != nil {
			return err
		}

		caster.Essence -= tech.EssenceCost
		if caster.Cooldowns == nil {
			caster.Cooldowns = make(map[string]int64)
		}
		caster.Cooldowns[techID] = z.Tick + tech.CooldownTicks

		result = &TechniqueResult{
			Success:               true,
			Technique:             tech,
			CooldownExpiresAtTick: caster.Cooldowns[techID],
		}

		targets := []*world.Entity{target}
		if tech.TargetType == catalog.TargetArea && tech.MaxTargets > 1 {
			targets = areaTargets(z, caster, target, tech)
		}

		for _, tgt := range targets {
			s.applyTechnique(ctx, z, caster, tgt, tech, result)
			result.TargetsHit = append(result.TargetsHit, tgt.ID)
		}
		result.CasterEssence = caster.Essence
		return nil
	})
	return result, err
}

func resolveTarget(z *world.Zone, caster *world.Entity, tech *catalog.Technique, targetID string) (*world.Entity, error) {
	switch tech.TargetType {
	case catalog.TargetSelf:
		return caster, nil
	case catalog.TargetAlly:
		if targetID == "" || targetID == caster.ID {
			return caster, nil
		}
		ally := z.Get(targetID)
		if ally == nil || !ally.IsPlayer() {
			return nil, errNotFound("ally %q not found", targetID)
		}
		return ally, nil
	default: // enemy and area both need a hostile primary target
		target := z.Get(targetID)
		if target == nil {
			return nil, errNotFound("target %q not found", targetID)
		}
		if !target.Hostile() || !target.Alive() {
			return nil, errRule("%s is not a valid target", target.Name)
		}
		return target, nil
	}
}

func areaTargets(z *world.Zone, caster *world.Entity, primary *world.Entity, tech *catalog.Technique) []*world.Entity {
	nearby := z.EntitiesWithin(primary.X, primary.Y, tech.AreaRadius, func(e *world.Entity) bool {
		return e.Hostile() && e.Alive() && e.ID != primary.ID
	})
	targets := []*world.Entity{primary}
	for _, e := range nearby {
		if len(targets) >= tech.MaxTargets {
			break
		}
		targets = append(targets, e)
	}
	return targets
}

func (s *Service) applyTechnique(ctx context.Context, z *world.Zone, caster, target *world.Entity,
	tech *catalog.Technique, result *TechniqueResult) {

	for _, fx := range tech.Effects {
		switch fx.Kind {
		case "damage":
			base := math.Floor(5 + float64(caster.PrimaryStat())*0.5)
			dmg := int(base * tech.DamageMultiplier)
			s.Runtime.ApplyDamage(ctx, z, target, dmg, caster.ID)
			result.Damage += dmg
			if tech.Lifesteal > 0 {
				result.Healed += s.Runtime.ApplyHeal(caster, int(float64(dmg)*tech.Lifesteal))
			}
			if !target.Alive() {
				result.Killed = true
			}

		case "heal":
			result.Healed += s.Runtime.ApplyHeal(target, fx.Amount)

		case "hot":
			s.Runtime.AddEffect(z, target, &world.ActiveEffect{
				TechniqueID: tech.ID, Name: tech.Name, Type: world.EffectHoT,
				CasterID: caster.ID, DurationTicks: fx.DurationTicks, HotHealPerTick: fx.PerTick,
			})

		case "dot":
			s.Runtime.AddEffect(z, target, &world.ActiveEffect{
				TechniqueID: tech.ID, Name: tech.Name, Type: world.EffectDoT,
				CasterID: caster.ID, DurationTicks: fx.DurationTicks, DotDamage: fx.PerTick,
			})

		case "shield":
			s.Runtime.AddEffect(z, target, &world.ActiveEffect{
				TechniqueID: tech.ID, Name: tech.Name, Type: world.EffectShield,
				CasterID: caster.ID, DurationTicks: fx.DurationTicks,
				ShieldHP: fx.Amount, ShieldMaxHP: fx.Amount,
			})

		case "statBuff", "statDebuff":
			effectType := world.EffectBuff
			if fx.Kind == "statDebuff" {
				effectType = world.EffectDebuff
			}
			s.Runtime.AddEffect(z, target, &world.ActiveEffect{
				TechniqueID: tech.ID, Name: tech.Name, Type: effectType,
				CasterID: caster.ID, DurationTicks: fx.DurationTicks,
				StatModifiers: fx.StatModifiers,
			})
		}
	}

	if s.Bus != nil && result.Damage > 0 {
		s.Bus.Publish(events.Event{
			Tick: z.Tick, ZoneID: z.ID, Category: events.CategoryCombat,
			Description: fmt.Sprintf("%s hit %s with %s for %d", caster.Name, target.Name, tech.Name, result.Damage),
			Wallet:      caster.Wallet,
		})
	}
}
