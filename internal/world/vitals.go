package world

import "github.com/emberwild/shard/internal/catalog"

// RecalculateVitals recomputes effectiveStats from base stats, equipment
// bonuses (broken items excluded), and active buff/debuff modifiers, then
// re-derives max hp/essence and clamps the current values.
func (r *Runtime) RecalculateVitals(e *Entity) {
	eff := make(map[string]int, len(e.BaseStats))
	for stat, v := range e.BaseStats {
		eff[stat] = v
	}

	for _, it := range e.Equipment {
		if it == nil || it.Broken {
			continue
		}
		def, err := r.Catalog.ItemByTokenID(it.TokenID)
		if err != nil {
			continue
		}
		for stat, bonus := range def.StatBonuses {
			eff[stat] += bonus
		}
		for stat, bonus := range it.RolledStats {
			eff[stat] += bonus
		}
	}

	for _, fx := range e.ActiveEffects {
		for stat, mod := range fx.StatModifiers {
			eff[stat] += mod
		}
	}

	// Stats never drop below 1; a fully enfeebled character still stands.
	for stat, v := range eff {
		if v < 1 {
			eff[stat] = 1
		}
	}
	e.EffectiveStats = eff

	e.MaxHP = 50 + eff[catalog.StatStamina]*10 + e.Level*10
	e.MaxEssence = 30 + eff[catalog.StatIntellect]*5 + eff[catalog.StatSpirit]*5 + e.Level*5

	if e.HP > e.MaxHP {
		e.HP = e.MaxHP
	}
	if e.Essence > e.MaxEssence {
		e.Essence = e.MaxEssence
	}
}

// PrimaryStat returns the class's primary combat stat value from effective
// stats, used as the technique damage base.
func (e *Entity) PrimaryStat() int {
	stat := classPrimaryStat(e.ClassID)
	if e.EffectiveStats != nil {
		return e.EffectiveStats[stat]
	}
	return e.BaseStats[stat]
}

func classPrimaryStat(classID string) string {
	switch classID {
	case "mage":
		return catalog.StatIntellect
	case "ranger", "rogue":
		return catalog.StatAgility
	case "druid":
		return catalog.StatSpirit
	default: // warrior and anything unrecognized
		return catalog.StatStrength
	}
}
