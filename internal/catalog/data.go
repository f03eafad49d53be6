package catalog

// Built-in catalog tables. These mirror the deployed data files and keep a
// bare checkout runnable; production overrides them with JSON files.

// Token id ranges: 1-99 weapons/armor, 100-199 tools, 200-299 materials,
// 300-399 consumables, 400+ quest/misc.
const (
	TokRustySword     = 1
	TokIronSword      = 2
	TokOakBow         = 3
	TokApprenticeWand = 4
	TokLeatherVest    = 10
	TokIronChestplate = 11
	TokLeatherBoots   = 12
	TokIronHelm       = 13
	TokCopperRing     = 14

	TokCopperPickaxe = 100
	TokIronPickaxe   = 101
	TokCopperSickle  = 102
	TokIronSickle    = 103
	TokSkinningKnife = 104

	TokCopperOre   = 200
	TokIronOre     = 201
	TokSilverleaf  = 210
	TokLavender    = 211
	TokMint        = 212
	TokWolfPelt    = 220
	TokBoarHide    = 221
	TokRawMeat     = 230
	TokIronBar     = 240

	TokCookedMeat    = 300
	TokStaminaElixir = 301
	TokHealingDraught = 302
)

func defaultItems() []Item {
	return []Item{
		{TokenID: TokRustySword, Name: "Rusty Sword", Kind: ItemWeapon, Slot: "weapon", WeaponClass: "melee", BaseDamage: 4, Range: 2, MaxDurability: 40, ValueCopper: 150},
		{TokenID: TokIronSword, Name: "Iron Sword", Kind: ItemWeapon, Slot: "weapon", WeaponClass: "melee", BaseDamage: 9, Range: 2, MaxDurability: 80, StatBonuses: map[string]int{StatStrength: 2}, ValueCopper: 900},
		{TokenID: TokOakBow, Name: "Oak Bow", Kind: ItemWeapon, Slot: "weapon", WeaponClass: "ranged", BaseDamage: 7, Range: 8, MaxDurability: 60, StatBonuses: map[string]int{StatAgility: 2}, ValueCopper: 800},
		{TokenID: TokApprenticeWand, Name: "Apprentice Wand", Kind: ItemWeapon, Slot: "weapon", WeaponClass: "ranged", BaseDamage: 6, Range: 7, MaxDurability: 50, StatBonuses: map[string]int{StatIntellect: 3}, ValueCopper: 850},

		{TokenID: TokLeatherVest, Name: "Leather Vest", Kind: ItemArmor, Slot: "chest", MaxDurability: 60, StatBonuses: map[string]int{StatStamina: 2}, ValueCopper: 400},
		{TokenID: TokIronChestplate, Name: "Iron Chestplate", Kind: ItemArmor, Slot: "chest", MaxDurability: 100, StatBonuses: map[string]int{StatStamina: 4, StatStrength: 1}, ValueCopper: 1200},
		{TokenID: TokLeatherBoots, Name: "Leather Boots", Kind: ItemArmor, Slot: "feet", MaxDurability: 50, StatBonuses: map[string]int{StatAgility: 1}, ValueCopper: 250},
		{TokenID: TokIronHelm, Name: "Iron Helm", Kind: ItemArmor, Slot: "head", MaxDurability: 80, StatBonuses: map[string]int{StatStamina: 2}, ValueCopper: 700},
		{TokenID: TokCopperRing, Name: "Copper Ring", Kind: ItemArmor, Slot: "hands", MaxDurability: 40, StatBonuses: map[string]int{StatSpirit: 1}, ValueCopper: 300},

		{TokenID: TokCopperPickaxe, Name: "Copper Pickaxe", Kind: ItemTool, Slot: "tool", ToolKind: ToolPickaxe, Tier: 1, MaxDurability: 30, ValueCopper: 200},
		{TokenID: TokIronPickaxe, Name: "Iron Pickaxe", Kind: ItemTool, Slot: "tool", ToolKind: ToolPickaxe, Tier: 2, MaxDurability: 60, ValueCopper: 650},
		{TokenID: TokCopperSickle, Name: "Copper Sickle", Kind: ItemTool, Slot: "tool", ToolKind: ToolSickle, Tier: 1, MaxDurability: 30, ValueCopper: 200},
		{TokenID: TokIronSickle, Name: "Iron Sickle", Kind: ItemTool, Slot: "tool", ToolKind: ToolSickle, Tier: 2, MaxDurability: 60, ValueCopper: 650},
		{TokenID: TokSkinningKnife, Name: "Skinning Knife", Kind: ItemTool, Slot: "tool", ToolKind: ToolSkinningKnife, Tier: 1, MaxDurability: 40, ValueCopper: 250},

		{TokenID: TokCopperOre, Name: "Copper Ore", Kind: ItemMaterial, Tier: 1, ValueCopper: 20},
		{TokenID: TokIronOre, Name: "Iron Ore", Kind: ItemMaterial, Tier: 2, ValueCopper: 45},
		{TokenID: TokSilverleaf, Name: "Silverleaf", Kind: ItemMaterial, Tier: 1, ValueCopper: 15},
		{TokenID: TokLavender, Name: "Lavender", Kind: ItemMaterial, Tier: 2, ValueCopper: 30},
		{TokenID: TokMint, Name: "Mint", Kind: ItemMaterial, Tier: 1, ValueCopper: 12},
		{TokenID: TokWolfPelt, Name: "Wolf Pelt", Kind: ItemMaterial, Tier: 1, ValueCopper: 35},
		{TokenID: TokBoarHide, Name: "Boar Hide", Kind: ItemMaterial, Tier: 1, ValueCopper: 30},
		{TokenID: TokRawMeat, Name: "Raw Meat", Kind: ItemMaterial, Tier: 1, ValueCopper: 10},
		{TokenID: TokIronBar, Name: "Iron Bar", Kind: ItemMaterial, Tier: 2, ValueCopper: 110},

		{TokenID: TokCookedMeat, Name: "Cooked Meat", Kind: ItemConsumable, HPRestore: 30, ValueCopper: 40},
		{TokenID: TokStaminaElixir, Name: "Stamina Elixir", Kind: ItemConsumable, HPRestore: 25, ValueCopper: 120},
		{TokenID: TokHealingDraught, Name: "Healing Draught", Kind: ItemConsumable, HPRestore: 50, ValueCopper: 200},
	}
}

func defaultRecipes() []Recipe {
	return []Recipe{
		{ID: "smelt_iron_bar", Name: "Smelt Iron Bar", Profession: "blacksmithing", Station: "forge",
			Materials: []RecipeMaterial{{TokenID: TokIronOre, Qty: 2}}, OutputTokenID: TokIronBar, OutputQty: 1, LevelRequired: 1},
		{ID: "forge_iron_sword", Name: "Forge Iron Sword", Profession: "blacksmithing", Station: "forge",
			Materials: []RecipeMaterial{{TokenID: TokIronBar, Qty: 3}, {TokenID: TokWolfPelt, Qty: 1}},
			OutputTokenID: TokIronSword, OutputQty: 1, LevelRequired: 5, QualityRolls: true},
		{ID: "forge_iron_helm", Name: "Forge Iron Helm", Profession: "blacksmithing", Station: "forge",
			Materials: []RecipeMaterial{{TokenID: TokIronBar, Qty: 2}}, OutputTokenID: TokIronHelm, OutputQty: 1, LevelRequired: 4, QualityRolls: true},
		{ID: "brew_stamina_elixir", Name: "Brew Stamina Elixir", Profession: "alchemy", Station: "alchemy-lab",
			Materials: []RecipeMaterial{{TokenID: TokLavender, Qty: 2}, {TokenID: TokMint, Qty: 1}},
			OutputTokenID: TokStaminaElixir, OutputQty: 1, LevelRequired: 3},
		{ID: "brew_healing_draught", Name: "Brew Healing Draught", Profession: "alchemy", Station: "alchemy-lab",
			Materials: []RecipeMaterial{{TokenID: TokSilverleaf, Qty: 3}, {TokenID: TokMint, Qty: 2}},
			OutputTokenID: TokHealingDraught, OutputQty: 1, LevelRequired: 1},
		{ID: "cook_meat", Name: "Cook Meat", Profession: "cooking", Station: "campfire",
			Materials: []RecipeMaterial{{TokenID: TokRawMeat, Qty: 1}}, OutputTokenID: TokCookedMeat, OutputQty: 1, LevelRequired: 1},
		{ID: "tan_leather_vest", Name: "Tan Leather Vest", Profession: "leatherworking", Station: "tanning-rack",
			Materials: []RecipeMaterial{{TokenID: TokWolfPelt, Qty: 2}, {TokenID: TokBoarHide, Qty: 1}},
			OutputTokenID: TokLeatherVest, OutputQty: 1, LevelRequired: 2, QualityRolls: true},
		{ID: "cut_copper_ring", Name: "Cut Copper Ring", Profession: "jewelcrafting", Station: "jeweler-bench",
			Materials: []RecipeMaterial{{TokenID: TokCopperOre, Qty: 3}}, OutputTokenID: TokCopperRing, OutputQty: 1, LevelRequired: 2, QualityRolls: true},
	}
}

func defaultTechniques() []Technique {
	return []Technique{
		{ID: "strike", Name: "Strike", Type: TechAttack, TargetType: TargetEnemy,
			LevelRequired: 1, EssenceCost: 5, CooldownTicks: 3, DamageMultiplier: 1.2,
			Effects: []TechniqueEffect{{Kind: "damage"}}},
		{ID: "rend", Name: "Rend", Type: TechAttack, TargetType: TargetEnemy, ClassID: "warrior",
			LevelRequired: 4, EssenceCost: 12, CooldownTicks: 8, DamageMultiplier: 0.6,
			Effects: []TechniqueEffect{{Kind: "damage"}, {Kind: "dot", PerTick: 4, DurationTicks: 4}}},
		{ID: "whirlwind", Name: "Whirlwind", Type: TechAttack, TargetType: TargetArea, ClassID: "warrior",
			LevelRequired: 8, EssenceCost: 20, CooldownTicks: 12, DamageMultiplier: 0.8,
			MaxTargets: 4, AreaRadius: 4,
			Effects: []TechniqueEffect{{Kind: "damage"}}},
		{ID: "firebolt", Name: "Firebolt", Type: TechAttack, TargetType: TargetEnemy, ClassID: "mage",
			LevelRequired: 1, EssenceCost: 8, CooldownTicks: 4, DamageMultiplier: 1.5,
			Effects: []TechniqueEffect{{Kind: "damage"}}},
		{ID: "ignite", Name: "Ignite", Type: TechAttack, TargetType: TargetEnemy, ClassID: "mage",
			LevelRequired: 6, EssenceCost: 15, CooldownTicks: 10, DamageMultiplier: 0.5,
			Effects: []TechniqueEffect{{Kind: "damage"}, {Kind: "dot", PerTick: 6, DurationTicks: 5}}},
		{ID: "mend", Name: "Mend", Type: TechHealing, TargetType: TargetAlly,
			LevelRequired: 2, EssenceCost: 10, CooldownTicks: 5,
			Effects: []TechniqueEffect{{Kind: "heal", Amount: 20}}},
		{ID: "regrowth", Name: "Regrowth", Type: TechHealing, TargetType: TargetAlly, ClassID: "druid",
			LevelRequired: 5, EssenceCost: 14, CooldownTicks: 10,
			Effects: []TechniqueEffect{{Kind: "hot", PerTick: 5, DurationTicks: 6}}},
		{ID: "stoneskin", Name: "Stoneskin", Type: TechBuff, TargetType: TargetSelf,
			LevelRequired: 3, EssenceCost: 12, CooldownTicks: 15,
			Effects: []TechniqueEffect{{Kind: "statBuff", DurationTicks: 10, StatModifiers: map[string]int{StatStamina: 5}}}},
		{ID: "barrier", Name: "Barrier", Type: TechBuff, TargetType: TargetSelf, ClassID: "mage",
			LevelRequired: 7, EssenceCost: 18, CooldownTicks: 20,
			Effects: []TechniqueEffect{{Kind: "shield", Amount: 40, DurationTicks: 12}}},
		{ID: "enfeeble", Name: "Enfeeble", Type: TechDebuff, TargetType: TargetEnemy,
			LevelRequired: 4, EssenceCost: 10, CooldownTicks: 10,
			Effects: []TechniqueEffect{{Kind: "statDebuff", DurationTicks: 8, StatModifiers: map[string]int{StatStrength: -4}}}},
	}
}

func defaultLootTables() []LootTable {
	return []LootTable{
		{Name: "wolf", MinCopper: 8, MaxCopper: 25, Entries: []LootEntry{
			{TokenID: TokRawMeat, Chance: 0.8, MinQty: 1, MaxQty: 2},
			{TokenID: TokWolfPelt, Chance: 0.25, MinQty: 1, MaxQty: 1},
		}},
		{Name: "boar", MinCopper: 10, MaxCopper: 30, Entries: []LootEntry{
			{TokenID: TokRawMeat, Chance: 0.9, MinQty: 1, MaxQty: 3},
			{TokenID: TokBoarHide, Chance: 0.3, MinQty: 1, MaxQty: 1},
		}},
		{Name: "bandit", MinCopper: 25, MaxCopper: 80, Entries: []LootEntry{
			{TokenID: TokRustySword, Chance: 0.1, MinQty: 1, MaxQty: 1},
			{TokenID: TokLeatherBoots, Chance: 0.12, MinQty: 1, MaxQty: 1},
		}},
		{Name: "dire-alpha", MinCopper: 200, MaxCopper: 500, Entries: []LootEntry{
			{TokenID: TokIronSword, Chance: 0.35, MinQty: 1, MaxQty: 1},
			{TokenID: TokWolfPelt, Chance: 1.0, MinQty: 2, MaxQty: 4},
		}},
	}
}

func defaultMobTemplates() []MobTemplate {
	return []MobTemplate{
		{Name: "Gray Wolf", Level: 2, MaxHP: 40, Damage: 5, XPReward: 35, AggroRadius: 6, Skinnable: true, SkinTier: 1, LootTable: "wolf"},
		{Name: "Wild Boar", Level: 3, MaxHP: 55, Damage: 7, XPReward: 50, AggroRadius: 5, Skinnable: true, SkinTier: 1, LootTable: "boar"},
		{Name: "Meadow Bandit", Level: 5, MaxHP: 80, Damage: 10, XPReward: 90, AggroRadius: 8, LootTable: "bandit"},
		{Name: "Dire Alpha", Level: 10, MaxHP: 400, Damage: 22, XPReward: 600, AggroRadius: 10, Skinnable: true, SkinTier: 2, LootTable: "dire-alpha", Boss: true},
	}
}

func defaultZoneLayouts() []ZoneLayout {
	return []ZoneLayout{
		{
			ID: "wild-meadow", Name: "Wild Meadow", Width: 200, Height: 200, Seed: 7001,
			GraveyardX: 20, GraveyardY: 20,
			Stations: []StationSpec{
				{Type: "campfire", Name: "Meadow Campfire", X: 30, Y: 40},
				{Type: "alchemy-lab", Name: "Herbalist's Lab", X: 45, Y: 38},
			},
			NPCs: []NPCSpec{
				{Type: "merchant", Name: "Provisioner Edda", X: 35, Y: 35, Stock: []int64{TokCopperSickle, TokCopperPickaxe, TokSkinningKnife, TokCookedMeat}},
				{Type: "trainer", Name: "Herbalist Maren", X: 44, Y: 36, Profession: "herbalism"},
				{Type: "quest-giver", Name: "Warden Col", X: 32, Y: 42},
			},
			Portals: []PortalSpec{{ToZone: "ashen-hills", X: 195, Y: 100}},
			Nodes: []NodeSpec{
				{NodeType: "flower-node", ResourceName: "Lavender", Tier: 2, TokenID: TokLavender, Count: 10, Charges: 3, RespawnTicks: 120},
				{NodeType: "flower-node", ResourceName: "Mint", Tier: 1, TokenID: TokMint, Count: 14, Charges: 3, RespawnTicks: 90},
				{NodeType: "flower-node", ResourceName: "Silverleaf", Tier: 1, TokenID: TokSilverleaf, Count: 12, Charges: 3, RespawnTicks: 90},
			},
			MobSpawns: []MobSpawnSpec{
				{Template: "Gray Wolf", Count: 8},
				{Template: "Wild Boar", Count: 6},
			},
		},
		{
			ID: "ashen-hills", Name: "Ashen Hills", Width: 240, Height: 240, Seed: 7002,
			GraveyardX: 25, GraveyardY: 210,
			Stations: []StationSpec{
				{Type: "forge", Name: "Hillside Forge", X: 60, Y: 200},
				{Type: "tanning-rack", Name: "Hunter's Rack", X: 66, Y: 198},
				{Type: "jeweler-bench", Name: "Lapidary Bench", X: 70, Y: 202},
			},
			NPCs: []NPCSpec{
				{Type: "merchant", Name: "Smith Torvald", X: 58, Y: 198, Stock: []int64{TokIronPickaxe, TokIronSickle, TokIronSword, TokIronHelm}},
				{Type: "trainer", Name: "Prospector Hild", X: 62, Y: 196, Profession: "mining"},
				{Type: "trainer", Name: "Skinner Jori", X: 68, Y: 196, Profession: "skinning"},
			},
			Portals: []PortalSpec{{ToZone: "wild-meadow", X: 5, Y: 120}},
			Nodes: []NodeSpec{
				{NodeType: "ore-node", ResourceName: "Copper Ore", Tier: 1, TokenID: TokCopperOre, Count: 16, Charges: 4, RespawnTicks: 150},
				{NodeType: "ore-node", ResourceName: "Iron Ore", Tier: 2, TokenID: TokIronOre, Count: 10, Charges: 4, RespawnTicks: 200},
			},
			MobSpawns: []MobSpawnSpec{
				{Template: "Meadow Bandit", Count: 7},
				{Template: "Dire Alpha", Count: 1},
			},
		},
	}
}
