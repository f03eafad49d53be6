package world

import (
	"context"
	"fmt"

	"github.com/emberwild/shard/internal/catalog"
	"github.com/emberwild/shard/internal/events"
	"github.com/emberwild/shard/internal/techniques"
)

// MaxLevel caps character progression.
const MaxLevel = 50

// XPRequired is the total XP needed to reach the given level. Level 1 is 0;
// the table is quadratic so each level costs 100 more XP than the last.
func XPRequired(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(50 * level * (level - 1))
}

// LevelForXP returns the level implied by a total XP amount.
func LevelForXP(xp int64) int {
	level := 1
	for level < MaxLevel && xp >= XPRequired(level+1) {
		level++
	}
	return level
}

// Per-level stat growth by class: the primary stat grows fastest, stamina
// grows for everyone.
var classGrowth = map[string]map[string]int{
	"warrior": {catalog.StatStrength: 3, catalog.StatStamina: 2, catalog.StatAgility: 1},
	"mage":    {catalog.StatIntellect: 3, catalog.StatSpirit: 2, catalog.StatStamina: 1},
	"ranger":  {catalog.StatAgility: 3, catalog.StatStrength: 1, catalog.StatStamina: 1},
	"druid":   {catalog.StatSpirit: 3, catalog.StatIntellect: 2, catalog.StatStamina: 1},
	"rogue":   {catalog.StatAgility: 3, catalog.StatStrength: 2, catalog.StatStamina: 1},
}

// Flat racial bonuses applied on top of the class baseline.
var raceBonus = map[string]map[string]int{
	"human":    {catalog.StatSpirit: 1, catalog.StatStamina: 1},
	"orc":      {catalog.StatStrength: 2},
	"elf":      {catalog.StatAgility: 1, catalog.StatIntellect: 1},
	"dwarf":    {catalog.StatStamina: 2},
	"halfling": {catalog.StatAgility: 2},
}

// BaseStatsFor computes the deterministic stat block for a race/class at a
// level. Every stat starts at 10; growth applies per level past 1.
func BaseStatsFor(raceID, classID string, level int) map[string]int {
	stats := map[string]int{
		catalog.StatStrength:  10,
		catalog.StatAgility:   10,
		catalog.StatIntellect: 10,
		catalog.StatStamina:   10,
		catalog.StatSpirit:    10,
	}
	for stat, bonus := range raceBonus[raceID] {
		stats[stat] += bonus
	}
	growth, ok := classGrowth[classID]
	if !ok {
		growth = classGrowth["warrior"]
	}
	for stat, perLevel := range growth {
		stats[stat] += perLevel * (level - 1)
	}
	return stats
}

// GrantXP credits XP and resolves any level-ups: stats regrow, vitals refill,
// and the signature/ultimate techniques unlock at their thresholds.
func (r *Runtime) GrantXP(ctx context.Context, z *Zone, e *Entity, amount int64) {
	if amount <= 0 || !e.IsPlayer() {
		return
	}
	e.XP += amount

	for e.Level < MaxLevel && e.XP >= XPRequired(e.Level+1) {
		e.Level++
		e.BaseStats = BaseStatsFor(e.RaceID, e.ClassID, e.Level)
		r.RecalculateVitals(e)
		e.HP = e.MaxHP
		e.Essence = e.MaxEssence

		r.publish(z, events.CategoryLevel, fmt.Sprintf("%s reached level %d", e.Name, e.Level), e.Wallet,
			map[string]any{"level": e.Level})

		r.unlockGeneratedTechniques(z, e)
	}
}

// unlockGeneratedTechniques adds the wallet-bound signature and ultimate
// techniques once their level thresholds are met. Safe to call repeatedly;
// generation is deterministic so a re-unlock is a no-op.
func (r *Runtime) unlockGeneratedTechniques(z *Zone, e *Entity) {
	if e.Wallet == "" || e.ClassID == "" {
		return
	}
	if e.Level >= techniques.SignatureLevel && e.SignatureTechniqueID == "" {
		t := r.Reg.EnsureGenerated(e.Wallet, e.ClassID, techniques.TierSignature)
		e.SignatureTechniqueID = t.ID
		if !e.HasLearned(t.ID) {
			e.LearnedTechniques = append(e.LearnedTechniques, t.ID)
		}
		r.publish(z, events.CategoryLevel, fmt.Sprintf("%s awakened signature technique %s", e.Name, t.Name), e.Wallet,
			map[string]any{"techniqueId": t.ID})
	}
	if e.Level >= techniques.UltimateLevel && e.UltimateTechniqueID == "" {
		t := r.Reg.EnsureGenerated(e.Wallet, e.ClassID, techniques.TierUltimate)
		e.UltimateTechniqueID = t.ID
		if !e.HasLearned(t.ID) {
			e.LearnedTechniques = append(e.LearnedTechniques, t.ID)
		}
		r.publish(z, events.CategoryLevel, fmt.Sprintf("%s awakened ultimate technique %s", e.Name, t.Name), e.Wallet,
			map[string]any{"techniqueId": t.ID})
	}
}

// ApplyXPDebt deducts a tenth of the current level bracket's span, never
// dropping below the level's floor, so death can't de-level a character.
func ApplyXPDebt(e *Entity) int64 {
	floor := XPRequired(e.Level)
	span := XPRequired(e.Level+1) - floor
	debt := span / 10
	if e.XP-debt < floor {
		debt = e.XP - floor
	}
	if debt < 0 {
		debt = 0
	}
	e.XP -= debt
	return debt
}
