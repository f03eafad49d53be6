// Package catalog holds the shard's read-only game data: items, recipes,
// techniques, mob templates, loot tables, and zone layouts. Catalogs are
// loaded once at startup and never mutated afterwards; every lookup miss is
// a typed error, never a panic.
package catalog

// Stat names used across items, techniques, and entity stat blocks.
const (
	StatStrength  = "strength"
	StatAgility   = "agility"
	StatIntellect = "intellect"
	StatStamina   = "stamina"
	StatSpirit    = "spirit"
)

// Item kinds.
const (
	ItemWeapon     = "weapon"
	ItemArmor      = "armor"
	ItemTool       = "tool"
	ItemConsumable = "consumable"
	ItemMaterial   = "material"
)

// Tool kinds recognized by the gathering professions.
const (
	ToolPickaxe      = "pickaxe"
	ToolSickle       = "sickle"
	ToolSkinningKnife = "skinning-knife"
)

// Item is one entry of the on-chain item collection. TokenID matches the
// ERC-1155 token id of the item contract.
type Item struct {
	TokenID       int64          `json:"tokenId"`
	Name          string         `json:"name"`
	Kind          string         `json:"kind"`
	Slot          string         `json:"slot,omitempty"` // weapon, head, chest, legs, feet, hands
	ToolKind      string         `json:"toolKind,omitempty"`
	Tier          int            `json:"tier,omitempty"`
	WeaponClass   string         `json:"weaponClass,omitempty"` // melee, ranged
	BaseDamage    int            `json:"baseDamage,omitempty"`
	Range         float64        `json:"range,omitempty"`
	StatBonuses   map[string]int `json:"statBonuses,omitempty"`
	MaxDurability int            `json:"maxDurability,omitempty"`
	HPRestore     int            `json:"hpRestore,omitempty"` // consumables
	ValueCopper   int64          `json:"valueCopper"`
}

// RecipeMaterial is one input of a recipe.
type RecipeMaterial struct {
	TokenID int64 `json:"tokenId"`
	Qty     int64 `json:"qty"`
}

// Recipe describes a crafting transformation at a station.
type Recipe struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Profession    string           `json:"profession"` // blacksmithing, alchemy, cooking, leatherworking, jewelcrafting
	Station       string           `json:"station"`    // forge, alchemy-lab, campfire, tanning-rack, jeweler-bench
	Materials     []RecipeMaterial `json:"materials"`
	OutputTokenID int64            `json:"outputTokenId"`
	OutputQty     int64            `json:"outputQty"`
	LevelRequired int              `json:"levelRequired"`
	QualityRolls  bool             `json:"qualityRolls"` // equipment recipes roll quality tiers
}

// Technique kinds and target types.
const (
	TechAttack  = "attack"
	TechBuff    = "buff"
	TechDebuff  = "debuff"
	TechHealing = "healing"

	TargetSelf  = "self"
	TargetAlly  = "ally"
	TargetEnemy = "enemy"
	TargetArea  = "area"
)

// TechniqueEffect is one structured outcome of a technique. Kind selects
// which fields apply; the rest stay zero.
type TechniqueEffect struct {
	Kind          string         `json:"kind"` // damage, heal, hot, dot, shield, statBuff, statDebuff
	Amount        int            `json:"amount,omitempty"`
	PerTick       int            `json:"perTick,omitempty"`
	DurationTicks int64          `json:"durationTicks,omitempty"`
	StatModifiers map[string]int `json:"statModifiers,omitempty"`
}

// Technique is a usable skill: catalog-authored or procedurally generated.
type Technique struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description,omitempty"`
	Type             string            `json:"type"`
	TargetType       string            `json:"targetType"`
	ClassID          string            `json:"classId,omitempty"` // empty = any class
	LevelRequired    int               `json:"levelRequired"`
	EssenceCost      int               `json:"essenceCost"`
	CooldownTicks    int64             `json:"cooldownTicks"`
	DamageMultiplier float64           `json:"damageMultiplier,omitempty"`
	Lifesteal        float64           `json:"lifesteal,omitempty"` // fraction of dealt damage healed
	MaxTargets       int               `json:"maxTargets,omitempty"`
	AreaRadius       float64           `json:"areaRadius,omitempty"`
	Effects          []TechniqueEffect `json:"effects"`
	QualityTier      string            `json:"qualityTier,omitempty"` // common, uncommon, rare, epic
	LoreCategory     string            `json:"loreCategory,omitempty"`
}

// LootEntry is one possible drop from a loot table.
type LootEntry struct {
	TokenID int64   `json:"tokenId"`
	Chance  float64 `json:"chance"`
	MinQty  int64   `json:"minQty"`
	MaxQty  int64   `json:"maxQty"`
}

// LootTable describes what a mob drops on death.
type LootTable struct {
	Name      string      `json:"name"`
	Entries   []LootEntry `json:"entries"`
	MinCopper int64       `json:"minCopper"`
	MaxCopper int64       `json:"maxCopper"`
}

// MobTemplate is the spawner blueprint for a hostile mob.
type MobTemplate struct {
	Name        string  `json:"name"`
	Level       int     `json:"level"`
	MaxHP       int     `json:"maxHp"`
	Damage      int     `json:"damage"`
	XPReward    int64   `json:"xpReward"`
	AggroRadius float64 `json:"aggroRadius"`
	Skinnable   bool    `json:"skinnable"`
	SkinTier    int     `json:"skinTier,omitempty"`
	LootTable   string  `json:"lootTable"`
	Boss        bool    `json:"boss,omitempty"`
}

// StationSpec places a crafting station in a zone.
type StationSpec struct {
	Type string  `json:"type"` // forge, alchemy-lab, campfire, tanning-rack, jeweler-bench
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// NPCSpec places a merchant, trainer, or quest giver in a zone.
type NPCSpec struct {
	Type       string  `json:"type"` // merchant, trainer, quest-giver
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Profession string  `json:"profession,omitempty"` // trainers
	Stock      []int64 `json:"stock,omitempty"`      // merchant item token ids
}

// PortalSpec links a zone to a neighbor.
type PortalSpec struct {
	ToZone string  `json:"toZone"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// NodeSpec scatters resource nodes of one type across a zone.
type NodeSpec struct {
	NodeType     string `json:"nodeType"` // ore-node, flower-node
	ResourceName string `json:"resourceName"`
	Tier         int    `json:"tier"`
	TokenID      int64  `json:"tokenId"` // minted on gather
	Count        int    `json:"count"`
	Charges      int    `json:"charges"`
	RespawnTicks int64  `json:"respawnTicks"`
}

// MobSpawnSpec scatters mobs of one template across a zone.
type MobSpawnSpec struct {
	Template string `json:"template"`
	Count    int    `json:"count"`
}

// ZoneLayout is the externally authored shape of one zone.
type ZoneLayout struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Width      float64        `json:"width"`
	Height     float64        `json:"height"`
	Seed       int64          `json:"seed"`
	GraveyardX float64        `json:"graveyardX"`
	GraveyardY float64        `json:"graveyardY"`
	Stations   []StationSpec  `json:"stations,omitempty"`
	NPCs       []NPCSpec      `json:"npcs,omitempty"`
	Portals    []PortalSpec   `json:"portals,omitempty"`
	Nodes      []NodeSpec     `json:"nodes,omitempty"`
	MobSpawns  []MobSpawnSpec `json:"mobSpawns,omitempty"`
}
