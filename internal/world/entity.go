// Package world owns the live simulation state: zones, entities, effects,
// vitals, leveling, and death. It is mutated only by the tick loop and the
// action pipeline, both of which hold the owning zone's lock.
package world

import (
	"github.com/emberwild/shard/internal/catalog"
	"github.com/google/uuid"
)

// Entity types.
const (
	TypePlayer     = "player"
	TypeMob        = "mob"
	TypeBoss       = "boss"
	TypeMerchant   = "merchant"
	TypeQuestGiver = "quest-giver"
	TypeTrainer    = "trainer"
	TypeCorpse     = "corpse"
	TypePortal     = "portal"
	TypeOreNode    = "ore-node"
	TypeFlowerNode = "flower-node"

	// Station entity types match catalog.StationSpec.Type.
	TypeForge        = "forge"
	TypeAlchemyLab   = "alchemy-lab"
	TypeCampfire     = "campfire"
	TypeTanningRack  = "tanning-rack"
	TypeJewelerBench = "jeweler-bench"
)

// Effect types carried on entities.
const (
	EffectBuff   = "buff"
	EffectDebuff = "debuff"
	EffectHoT    = "hot"
	EffectDoT    = "dot"
	EffectShield = "shield"
)

// EquippedItem is one occupied equipment slot. Durability, quality, and the
// rolled bonuses are tracked here, off-chain; the chain only records
// ownership of the token.
type EquippedItem struct {
	TokenID       int64          `json:"tokenId"`
	Name          string         `json:"name"`
	Slot          string         `json:"slot"`
	Durability    int            `json:"durability"`
	MaxDurability int            `json:"maxDurability"`
	Broken        bool           `json:"broken"`
	Quality       string         `json:"quality,omitempty"`
	RolledStats   map[string]int `json:"rolledStats,omitempty"`
	BonusAffix    string         `json:"bonusAffix,omitempty"`
}

// Wear adjusts durability by delta (negative wears, positive restores) and
// keeps the broken flag in step. Broken items grant no bonuses and cannot
// gather until repaired. Items without durability never break.
func (it *EquippedItem) Wear(delta int) {
	if it.MaxDurability == 0 {
		return
	}
	it.Durability += delta
	if it.Durability < 0 {
		it.Durability = 0
	}
	if it.Durability > it.MaxDurability {
		it.Durability = it.MaxDurability
	}
	it.Broken = it.Durability <= 0
}

// ActiveEffect is one applied effect instance on an entity.
type ActiveEffect struct {
	ID             string         `json:"id"`
	TechniqueID    string         `json:"techniqueId"`
	Name           string         `json:"name"`
	Type           string         `json:"type"`
	CasterID       string         `json:"casterId"`
	AppliedAtTick  int64          `json:"appliedAtTick"`
	DurationTicks  int64          `json:"durationTicks"`
	RemainingTicks int64          `json:"remainingTicks"`
	StatModifiers  map[string]int `json:"statModifiers,omitempty"`
	HotHealPerTick int            `json:"hotHealPerTick,omitempty"`
	DotDamage      int            `json:"dotDamage,omitempty"`
	ShieldHP       int            `json:"shieldHp,omitempty"`
	ShieldMaxHP    int            `json:"shieldMaxHp,omitempty"`
}

// Entity is anything that lives in a zone. One struct covers the whole union
// (players, mobs, stations, nodes, corpses, portals); type-irrelevant fields
// stay zero and are omitted from JSON.
type Entity struct {
	ID   string  `json:"id"`
	Type string  `json:"type"`
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`

	HP         int `json:"hp,omitempty"`
	MaxHP      int `json:"maxHp,omitempty"`
	Essence    int `json:"essence,omitempty"`
	MaxEssence int `json:"maxEssence,omitempty"`

	Wallet           string `json:"walletAddress,omitempty"`
	CharacterTokenID int64  `json:"characterTokenId,omitempty"`
	Level            int    `json:"level,omitempty"`
	XP               int64  `json:"xp,omitempty"`
	RaceID           string `json:"raceId,omitempty"`
	ClassID          string `json:"classId,omitempty"`
	Gender           string `json:"gender,omitempty"`
	Kills            int64  `json:"kills,omitempty"`
	PartyID          string `json:"partyId,omitempty"`
	GuildID          string `json:"guildId,omitempty"`

	BaseStats      map[string]int `json:"baseStats,omitempty"`
	EffectiveStats map[string]int `json:"effectiveStats,omitempty"`

	Equipment            map[string]*EquippedItem `json:"equipment,omitempty"`
	LearnedTechniques    []string                 `json:"learnedTechniques,omitempty"`
	ActiveEffects        []*ActiveEffect          `json:"activeEffects,omitempty"`
	Cooldowns            map[string]int64         `json:"cooldowns,omitempty"` // techniqueId -> tick when usable again
	CompletedQuests      []string                 `json:"completedQuests,omitempty"`
	Professions          []string                 `json:"professions,omitempty"`
	SignatureTechniqueID string                   `json:"signatureTechniqueId,omitempty"`
	UltimateTechniqueID  string                   `json:"ultimateTechniqueId,omitempty"`

	// Mob fields.
	MobName         string  `json:"mobName,omitempty"`
	XPReward        int64   `json:"xpReward,omitempty"`
	Damage          int     `json:"damage,omitempty"`
	AggroRadius     float64 `json:"aggroRadius,omitempty"`
	LootTable       string  `json:"lootTable,omitempty"`
	Boss            bool    `json:"boss,omitempty"`
	Skinnable       bool    `json:"skinnable,omitempty"`
	SkinTier        int     `json:"skinTier,omitempty"`
	TargetID        string  `json:"targetId,omitempty"`
	LastDamagedTick int64   `json:"-"`
	SpawnX          float64 `json:"-"`
	SpawnY          float64 `json:"-"`

	// Resource node fields.
	Charges         int    `json:"charges,omitempty"`
	MaxCharges      int    `json:"maxCharges,omitempty"`
	DepletedAtTick  int64  `json:"depletedAtTick,omitempty"`
	RespawnTicks    int64  `json:"respawnTicks,omitempty"`
	ResourceName    string `json:"resourceName,omitempty"`
	ResourceTokenID int64  `json:"resourceTokenId,omitempty"`
	NodeTier        int    `json:"nodeTier,omitempty"`

	// Corpse fields. SkinnableUntil and DecayAtTick are absolute ticks.
	Skinned        bool  `json:"skinned,omitempty"`
	SkinnableUntil int64 `json:"skinnableUntil,omitempty"`
	DecayAtTick    int64 `json:"decayAtTick,omitempty"`

	// Portal fields.
	ToZone string `json:"toZone,omitempty"`

	// NPC fields.
	Stock      []int64 `json:"stock,omitempty"`
	Profession string  `json:"profession,omitempty"`
}

// NewEntity allocates an entity with a fresh id.
func NewEntity(entityType, name string, x, y float64) *Entity {
	return &Entity{ID: uuid.NewString(), Type: entityType, Name: name, X: x, Y: y}
}

// Alive reports whether the entity has hit points left.
func (e *Entity) Alive() bool {
	return e.HP > 0
}

// IsPlayer reports whether the entity is a player character.
func (e *Entity) IsPlayer() bool {
	return e.Type == TypePlayer
}

// Hostile reports whether the entity is an attackable mob.
func (e *Entity) Hostile() bool {
	return e.Type == TypeMob || e.Type == TypeBoss
}

// HasLearned reports whether the technique id is in the learned set.
func (e *Entity) HasLearned(techID string) bool {
	for _, id := range e.LearnedTechniques {
		if id == techID {
			return true
		}
	}
	return false
}

// HasProfession reports whether the profession has been learned.
func (e *Entity) HasProfession(id string) bool {
	for _, p := range e.Professions {
		if p == id {
			return true
		}
	}
	return false
}

// EquippedTool returns the equipped tool of the given kind, if any. The
// lookup goes through the catalog because durability lives on the entity but
// the tool kind lives on the item definition.
func (e *Entity) EquippedTool(cat *catalog.Catalog, toolKind string) *EquippedItem {
	it, ok := e.Equipment["tool"]
	if !ok || it == nil {
		return nil
	}
	def, err := cat.ItemByTokenID(it.TokenID)
	if err != nil || def.ToolKind != toolKind {
		return nil
	}
	return it
}

// DistanceTo returns the euclidean distance to another entity.
func (e *Entity) DistanceTo(other *Entity) float64 {
	return distance(e.X, e.Y, other.X, other.Y)
}
