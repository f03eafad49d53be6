package techniques

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/emberwild/shard/internal/catalog"
)

// Tiers of generated techniques.
const (
	TierSignature = "signature" // unlocked at level 15, rare quality
	TierUltimate  = "ultimate"  // unlocked at level 30, epic quality
)

// Level thresholds at which generated techniques unlock.
const (
	SignatureLevel = 15
	UltimateLevel  = 30
)

// Class archetype weights for the generated technique's type.
var classTypeWeights = map[string]map[string]float64{
	"warrior": {catalog.TechAttack: 0.70, catalog.TechBuff: 0.20, catalog.TechDebuff: 0.10},
	"mage":    {catalog.TechAttack: 0.60, catalog.TechDebuff: 0.20, catalog.TechBuff: 0.10, catalog.TechHealing: 0.10},
	"ranger":  {catalog.TechAttack: 0.55, catalog.TechDebuff: 0.25, catalog.TechBuff: 0.20},
	"druid":   {catalog.TechHealing: 0.40, catalog.TechAttack: 0.25, catalog.TechBuff: 0.20, catalog.TechDebuff: 0.15},
	"rogue":   {catalog.TechAttack: 0.65, catalog.TechDebuff: 0.25, catalog.TechBuff: 0.10},
}

var defaultTypeWeights = map[string]float64{
	catalog.TechAttack: 0.45, catalog.TechBuff: 0.20,
	catalog.TechDebuff: 0.20, catalog.TechHealing: 0.15,
}

// typeOrder fixes the iteration order of the weighted pick.
var typeOrder = []string{catalog.TechAttack, catalog.TechBuff, catalog.TechDebuff, catalog.TechHealing}

var classLore = map[string]string{
	"warrior": "valor",
	"mage":    "arcane",
	"ranger":  "wind",
	"druid":   "wild",
	"rogue":   "shadow",
}

// Name tables per lore category. Indices are drawn from the seeded PRNG so
// names are as stable as the numbers.
var namePrefixes = map[string][]string{
	"valor":   {"Crimson", "Iron", "Unbroken", "Banner", "Oath"},
	"arcane":  {"Prismatic", "Rune", "Void", "Aether", "Gleaming"},
	"wind":    {"Hawk's", "Gale", "Far", "Whistling", "Keen"},
	"wild":    {"Thorn", "Moon", "Root", "Verdant", "Briar"},
	"shadow":  {"Dusk", "Silent", "Pale", "Veiled", "Hollow"},
	"essence": {"First", "Ember", "True", "Still", "Waking"},
}

var nameCores = map[string][]string{
	catalog.TechAttack:  {"Strike", "Edge", "Fury", "Breaker", "Lance"},
	catalog.TechBuff:    {"Ward", "Bulwark", "Hymn", "Aegis", "Mantle"},
	catalog.TechDebuff:  {"Hex", "Brand", "Shackle", "Gloom", "Mire"},
	catalog.TechHealing: {"Mending", "Bloom", "Grace", "Renewal", "Spring"},
}

var nameSuffixes = map[string][]string{
	TierSignature: {"", " of the Adept", " of Resolve", " Unbound"},
	TierUltimate:  {" of the Exalted", " Eternal", " of Ruin", " Ascendant"},
}

// seedFor derives the 32-bit PRNG seed from the identity triple.
func seedFor(wallet, classID, tier string) uint32 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", strings.ToLower(wallet), classID, tier)))
	return binary.BigEndian.Uint32(sum[:4])
}

// hex8 is the first 8 hex chars of the wallet, used in the technique id.
func hex8(wallet string) string {
	w := strings.ToLower(strings.TrimPrefix(strings.ToLower(wallet), "0x"))
	if len(w) > 8 {
		w = w[:8]
	}
	return w
}

// Generate synthesizes the wallet's signature or ultimate technique. Pure and
// deterministic: identical inputs produce an identical struct across runs.
func Generate(wallet, classID, tier string) *catalog.Technique {
	rng := newMulberry32(seedFor(wallet, classID, tier))

	weights, ok := classTypeWeights[classID]
	if !ok {
		weights = defaultTypeWeights
	}
	techType := rng.pick(typeOrder, weights)

	lore, ok := classLore[classID]
	if !ok {
		lore = "essence"
	}

	t := &catalog.Technique{
		ID:           fmt.Sprintf("essence_%s_%s_%s", tier, hex8(wallet), classID),
		Type:         techType,
		ClassID:      classID,
		LoreCategory: lore,
	}

	switch tier {
	case TierUltimate:
		t.QualityTier = "epic"
		t.LevelRequired = UltimateLevel
		t.EssenceCost = rng.rangeI(40, 60)
		t.CooldownTicks = int64(rng.rangeI(30, 60))
	default:
		t.QualityTier = "rare"
		t.LevelRequired = SignatureLevel
		t.EssenceCost = rng.rangeI(20, 35)
		t.CooldownTicks = int64(rng.rangeI(15, 30))
	}

	ultimate := tier == TierUltimate

	switch techType {
	case catalog.TechAttack:
		// Attacks may go wide: area targeting trades raw multiplier for reach.
		if rng.next() < 0.30 {
			t.TargetType = catalog.TargetArea
			t.MaxTargets = rng.rangeI(3, 5)
			t.AreaRadius = rng.rangeF(3, 6)
		} else {
			t.TargetType = catalog.TargetEnemy
		}
		if ultimate {
			t.DamageMultiplier = round2(rng.rangeF(2.8, 4.0))
		} else {
			t.DamageMultiplier = round2(rng.rangeF(1.8, 2.6))
		}
		t.Effects = append(t.Effects, catalog.TechniqueEffect{Kind: "damage"})
		if rng.next() < 0.35 {
			t.Lifesteal = round2(rng.rangeF(0.10, 0.25))
		}

	case catalog.TechBuff:
		t.TargetType = catalog.TargetSelf
		amount := rng.rangeI(4, 8)
		if ultimate {
			amount = rng.rangeI(8, 14)
		}
		stat := []string{catalog.StatStrength, catalog.StatAgility, catalog.StatIntellect, catalog.StatStamina, catalog.StatSpirit}[rng.intn(5)]
		t.Effects = append(t.Effects, catalog.TechniqueEffect{
			Kind:          "statBuff",
			DurationTicks: int64(rng.rangeI(8, 16)),
			StatModifiers: map[string]int{stat: amount},
		})

	case catalog.TechDebuff:
		t.TargetType = catalog.TargetEnemy
		amount := rng.rangeI(3, 7)
		if ultimate {
			amount = rng.rangeI(7, 12)
		}
		stat := []string{catalog.StatStrength, catalog.StatAgility, catalog.StatIntellect, catalog.StatStamina, catalog.StatSpirit}[rng.intn(5)]
		t.Effects = append(t.Effects, catalog.TechniqueEffect{
			Kind:          "statDebuff",
			DurationTicks: int64(rng.rangeI(8, 16)),
			StatModifiers: map[string]int{stat: -amount},
		})

	case catalog.TechHealing:
		if rng.next() < 0.5 {
			t.TargetType = catalog.TargetSelf
		} else {
			t.TargetType = catalog.TargetAlly
		}
		heal := rng.rangeI(25, 45)
		if ultimate {
			heal = rng.rangeI(50, 90)
		}
		t.Effects = append(t.Effects, catalog.TechniqueEffect{Kind: "heal", Amount: heal})
	}

	// Secondary combo within the tier power budget.
	if combo := rng.next(); combo < 0.45 {
		switch rng.intn(4) {
		case 0:
			t.Effects = append(t.Effects, catalog.TechniqueEffect{
				Kind: "dot", PerTick: rng.rangeI(3, 8), DurationTicks: int64(rng.rangeI(3, 6)),
			})
		case 1:
			t.Effects = append(t.Effects, catalog.TechniqueEffect{
				Kind: "shield", Amount: rng.rangeI(20, 50), DurationTicks: int64(rng.rangeI(6, 12)),
			})
		case 2:
			t.Effects = append(t.Effects, catalog.TechniqueEffect{
				Kind: "hot", PerTick: rng.rangeI(3, 6), DurationTicks: int64(rng.rangeI(4, 8)),
			})
		case 3:
			t.Effects = append(t.Effects, catalog.TechniqueEffect{
				Kind: "statBuff", DurationTicks: int64(rng.rangeI(6, 10)),
				StatModifiers: map[string]int{catalog.StatSpirit: rng.rangeI(2, 5)},
			})
		}
	}

	prefixes := namePrefixes[lore]
	cores := nameCores[techType]
	suffixes := nameSuffixes[tier]
	if suffixes == nil {
		suffixes = nameSuffixes[TierSignature]
	}
	t.Name = prefixes[rng.intn(len(prefixes))] + " " + cores[rng.intn(len(cores))] + suffixes[rng.intn(len(suffixes))]
	t.Description = fmt.Sprintf("A %s %s technique awakened from the bearer's own essence.", t.QualityTier, t.Type)

	return t
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
