package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// NotFoundError reports a lookup miss in one of the catalogs.
type NotFoundError struct {
	Catalog string
	Key     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found in catalog", e.Catalog, e.Key)
}

// Catalog bundles every read-only table. Construct with Load; all lookup
// methods are safe for concurrent use because nothing mutates after load.
type Catalog struct {
	items      map[int64]*Item
	itemByName map[string]*Item
	recipes    map[string]*Recipe
	techniques map[string]*Technique
	loot       map[string]*LootTable
	mobs       map[string]*MobTemplate
	layouts    map[string]*ZoneLayout
}

// Load builds the catalog from JSON files under dir (items.json, recipes.json,
// techniques.json, loot.json, mobs.json, zones.json). Missing files fall back
// to the built-in tables so a bare checkout still runs.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{
		items:      make(map[int64]*Item),
		itemByName: make(map[string]*Item),
		recipes:    make(map[string]*Recipe),
		techniques: make(map[string]*Technique),
		loot:       make(map[string]*LootTable),
		mobs:       make(map[string]*MobTemplate),
		layouts:    make(map[string]*ZoneLayout),
	}

	items := defaultItems()
	if err := loadFile(dir, "items.json", &items); err != nil {
		return nil, err
	}
	for i := range items {
		it := &items[i]
		c.items[it.TokenID] = it
		c.itemByName[it.Name] = it
	}

	recipes := defaultRecipes()
	if err := loadFile(dir, "recipes.json", &recipes); err != nil {
		return nil, err
	}
	for i := range recipes {
		c.recipes[recipes[i].ID] = &recipes[i]
	}

	techniques := defaultTechniques()
	if err := loadFile(dir, "techniques.json", &techniques); err != nil {
		return nil, err
	}
	for i := range techniques {
		c.techniques[techniques[i].ID] = &techniques[i]
	}

	loot := defaultLootTables()
	if err := loadFile(dir, "loot.json", &loot); err != nil {
		return nil, err
	}
	for i := range loot {
		c.loot[loot[i].Name] = &loot[i]
	}

	mobs := defaultMobTemplates()
	if err := loadFile(dir, "mobs.json", &mobs); err != nil {
		return nil, err
	}
	for i := range mobs {
		c.mobs[mobs[i].Name] = &mobs[i]
	}

	layouts := defaultZoneLayouts()
	if err := loadFile(dir, "zones.json", &layouts); err != nil {
		return nil, err
	}
	for i := range layouts {
		c.layouts[layouts[i].ID] = &layouts[i]
	}

	slog.Info("catalog loaded",
		"items", len(c.items),
		"recipes", len(c.recipes),
		"techniques", len(c.techniques),
		"loot_tables", len(c.loot),
		"mob_templates", len(c.mobs),
		"zones", len(c.layouts),
	)
	return c, nil
}

// loadFile overwrites dst with the contents of dir/name when the file exists.
// Absent files are not an error; malformed files are.
func loadFile(dir, name string, dst any) error {
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ItemByTokenID resolves an item by its on-chain token id.
func (c *Catalog) ItemByTokenID(tokenID int64) (*Item, error) {
	if it, ok := c.items[tokenID]; ok {
		return it, nil
	}
	return nil, &NotFoundError{Catalog: "item", Key: fmt.Sprint(tokenID)}
}

// ItemByName resolves an item by its display name.
func (c *Catalog) ItemByName(name string) (*Item, error) {
	if it, ok := c.itemByName[name]; ok {
		return it, nil
	}
	return nil, &NotFoundError{Catalog: "item", Key: name}
}

// RecipeByID resolves a crafting recipe.
func (c *Catalog) RecipeByID(id string) (*Recipe, error) {
	if r, ok := c.recipes[id]; ok {
		return r, nil
	}
	return nil, &NotFoundError{Catalog: "recipe", Key: id}
}

// TechniqueByID resolves a catalog-authored technique. Generated signature
// and ultimate techniques live in the techniques registry, not here.
func (c *Catalog) TechniqueByID(id string) (*Technique, error) {
	if t, ok := c.techniques[id]; ok {
		return t, nil
	}
	return nil, &NotFoundError{Catalog: "technique", Key: id}
}

// LootTableByName resolves a mob loot table.
func (c *Catalog) LootTableByName(name string) (*LootTable, error) {
	if lt, ok := c.loot[name]; ok {
		return lt, nil
	}
	return nil, &NotFoundError{Catalog: "loot table", Key: name}
}

// MobTemplate resolves a mob spawner blueprint.
func (c *Catalog) MobTemplate(name string) (*MobTemplate, error) {
	if m, ok := c.mobs[name]; ok {
		return m, nil
	}
	return nil, &NotFoundError{Catalog: "mob template", Key: name}
}

// ZoneLayout resolves a zone's authored layout.
func (c *Catalog) ZoneLayout(zoneID string) (*ZoneLayout, error) {
	if z, ok := c.layouts[zoneID]; ok {
		return z, nil
	}
	return nil, &NotFoundError{Catalog: "zone layout", Key: zoneID}
}

// ZoneIDs lists every zone the shard should simulate.
func (c *Catalog) ZoneIDs() []string {
	ids := make([]string, 0, len(c.layouts))
	for id := range c.layouts {
		ids = append(ids, id)
	}
	return ids
}

// Items returns every item for the public catalog endpoint.
func (c *Catalog) Items() []*Item {
	out := make([]*Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	return out
}

// Recipes returns every recipe.
func (c *Catalog) Recipes() []*Recipe {
	out := make([]*Recipe, 0, len(c.recipes))
	for _, r := range c.recipes {
		out = append(out, r)
	}
	return out
}

// Techniques returns every authored technique for the public catalog endpoint.
func (c *Catalog) Techniques() []*Technique {
	out := make([]*Technique, 0, len(c.techniques))
	for _, t := range c.techniques {
		out = append(out, t)
	}
	return out
}
