package world

import (
	"context"

	"github.com/google/uuid"
)

// AddEffect attaches an effect instance to the target and recomputes vitals
// when the effect carries stat modifiers.
func (r *Runtime) AddEffect(z *Zone, target *Entity, fx *ActiveEffect) {
	if fx.ID == "" {
		fx.ID = uuid.NewString()
	}
	fx.AppliedAtTick = z.Tick
	fx.RemainingTicks = fx.DurationTicks
	target.ActiveEffects = append(target.ActiveEffects, fx)
	if len(fx.StatModifiers) > 0 {
		r.RecalculateVitals(target)
	}
}

// tickEffects applies one tick of every active effect in the zone, then
// drops expired ones. An effect with duration D added at tick T ticks at
// T+1..T+D and is gone afterwards.
func (r *Runtime) tickEffects(ctx context.Context, z *Zone) {
	// Snapshot ids: death handling during DoT resolution mutates the map.
	ids := make([]string, 0, len(z.Entities))
	for id := range z.Entities {
		ids = append(ids, id)
	}

	for _, id := range ids {
		e := z.Entities[id]
		if e == nil || len(e.ActiveEffects) == 0 {
			continue
		}

		kept := e.ActiveEffects[:0]
		statsChanged := false
		stripped := false
		for _, fx := range e.ActiveEffects {
			switch fx.Type {
			case EffectHoT:
				if e.Alive() && e.HP < e.MaxHP {
					e.HP = min(e.MaxHP, e.HP+fx.HotHealPerTick)
				}
			case EffectDoT:
				if e.Alive() {
					r.ApplyDamage(ctx, z, e, fx.DotDamage, fx.CasterID)
				}
			}

			// A lethal DoT on a player runs the death handler, which strips
			// every effect and restores vitals. kept aliases the pre-death
			// list, so reassigning it would revive the stripped effects.
			if len(e.ActiveEffects) == 0 {
				stripped = true
				break
			}

			fx.RemainingTicks--
			if fx.RemainingTicks > 0 && e.Alive() {
				kept = append(kept, fx)
			} else if len(fx.StatModifiers) > 0 || fx.Type == EffectShield {
				statsChanged = true
			}
		}
		if stripped {
			continue
		}
		e.ActiveEffects = kept
		if statsChanged {
			r.RecalculateVitals(e)
		}
	}
}

// ApplyDamage routes damage through shields, clamps hp at zero, and invokes
// death handling when the target drops. attackerID may be empty for
// environmental damage.
func (r *Runtime) ApplyDamage(ctx context.Context, z *Zone, target *Entity, dmg int, attackerID string) {
	if dmg <= 0 || !target.Alive() {
		return
	}

	// Shields absorb first, oldest shield first.
	for _, fx := range target.ActiveEffects {
		if fx.Type != EffectShield || fx.ShieldHP <= 0 {
			continue
		}
		absorbed := min(fx.ShieldHP, dmg)
		fx.ShieldHP -= absorbed
		dmg -= absorbed
		if dmg == 0 {
			break
		}
	}

	target.LastDamagedTick = z.Tick
	if dmg == 0 {
		return
	}

	target.HP -= dmg
	if target.HP > 0 {
		// Mobs retaliate against whoever last hurt them.
		if target.Hostile() && attackerID != "" {
			target.TargetID = attackerID
		}
		return
	}
	target.HP = 0
	r.handleDeath(ctx, z, target, attackerID)
}

// ApplyHeal restores hp, clamped to max.
func (r *Runtime) ApplyHeal(target *Entity, amount int) int {
	if amount <= 0 || !target.Alive() {
		return 0
	}
	healed := min(amount, target.MaxHP-target.HP)
	target.HP += healed
	return healed
}
