package game

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/emberwild/shard/internal/catalog"
	"github.com/emberwild/shard/internal/chain"
	"github.com/emberwild/shard/internal/events"
	"github.com/emberwild/shard/internal/world"
)

// Profession -> station entity type, for validating where a recipe runs.
var stationForProfession = map[string]string{
	"blacksmithing":  world.TypeForge,
	"alchemy":        world.TypeAlchemyLab,
	"cooking":        world.TypeCampfire,
	"leatherworking": world.TypeTanningRack,
	"jewelcrafting":  world.TypeJewelerBench,
}

// CraftResult reports one completed craft.
type CraftResult struct {
	RecipeID      string         `json:"recipeId"`
	OutputTokenID int64          `json:"outputTokenId"`
	OutputName    string         `json:"outputName"`
	Quantity      int64          `json:"quantity"`
	Quality       string         `json:"quality,omitempty"`
	BonusAffix    string         `json:"bonusAffix,omitempty"`
	RolledStats   map[string]int `json:"rolledStats,omitempty"`
	HPRestoration int            `json:"hpRestoration,omitempty"`
	Tx            *chain.Tx      `json:"tx,omitempty"`
}

// Craft runs a recipe at a station: preflight every material balance, burn
// materials in order, then mint the output. A mint failure after burns is a
// stuck-materials incident: it is recorded with enough context to reconcile
// manually, never silently retried.
func (s *Service) Craft(ctx context.Context, wallet, zoneID, entityID, stationID, recipeID string) (*CraftResult, error) {
	var result *CraftResult
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		recipe, err := s.Catalog.RecipeByID(recipeID)
		if err != nil {
			return errNotFound("unknown recipe %q", recipeID)
		}
		if !e.HasProfession(recipe.Profession) {
			return errRule("%s profession not learned", recipe.Profession)
		}
		if e.Level < recipe.LevelRequired {
			return errRule("%s requires level %d", recipe.Name, recipe.LevelRequired)
		}

		station := z.Get(stationID)
		wantType := stationForProfession[recipe.Profession]
		if station == nil || station.Type != wantType {
			return errRule("%s needs a %s", recipe.Name, wantType)
		}
		if e.DistanceTo(station) > interactRange {
			return errRule("too far from %s", station.Name)
		}

		// Preflight: every material balance before any burn.
		for _, mat := range recipe.Materials {
			bal, err := s.Chain.ItemBalance(ctx, wallet, mat.TokenID)
			if err != nil {
				return errLedger("material balance", err)
			}
			if bal < mat.Qty {
				def, _ := s.Catalog.ItemByTokenID(mat.TokenID)
				name := fmt.Sprintf("item %d", mat.TokenID)
				if def != nil {
					name = def.Name
				}
				return &RuleError{Code: CodeInsufficient,
					Message: fmt.Sprintf("need %dx %s, have %d", mat.Qty, name, bal),
					Hints:   map[string]any{"tokenId": mat.TokenID, "required": mat.Qty, "held": bal}}
			}
		}

		// Burn materials in recipe order.
		var burned []catalog.RecipeMaterial
		for _, mat := range recipe.Materials {
			if _, err := s.Chain.BurnItem(ctx, wallet, mat.TokenID, mat.Qty); err != nil {
				// Burns before this one are gone; surface the partial state.
				s.recordStuckMaterials(z, wallet, recipe, burned, err)
				return errLedger("burn materials", err)
			}
			burned = append(burned, mat)
		}

		tx, err := s.Chain.MintItem(ctx, wallet, recipe.OutputTokenID, recipe.OutputQty)
		if err != nil {
			s.recordStuckMaterials(z, wallet, recipe, burned, err)
			return errLedger("mint output", err)
		}

		outDef, _ := s.Catalog.ItemByTokenID(recipe.OutputTokenID)
		outName := recipe.Name
		hpRestore := 0
		if outDef != nil {
			outName = outDef.Name
			hpRestore = outDef.HPRestore
		}

		result = &CraftResult{
			RecipeID:      recipe.ID,
			OutputTokenID: recipe.OutputTokenID,
			OutputName:    outName,
			Quantity:      recipe.OutputQty,
			HPRestoration: hpRestore,
			Tx:            tx,
		}
		if recipe.QualityRolls {
			quality, affix, stats := rollCraft(wallet, recipe.ID, time.Now().UnixNano())
			result.Quality = quality
			result.BonusAffix = affix
			result.RolledStats = stats
			s.recordCraftRoll(wallet, recipe.OutputTokenID, &craftRoll{
				Quality: quality, BonusAffix: affix, RolledStats: stats,
			})
		}

		if s.Bus != nil {
			s.Bus.Publish(events.Event{
				Tick: z.Tick, ZoneID: z.ID, Category: events.CategoryCraft,
				Description: fmt.Sprintf("%s crafted %s", e.Name, outName),
				Wallet:      wallet,
			})
		}
		s.diary(wallet, z, e, "craft", fmt.Sprintf("%s crafted %s", e.Name, outName),
			map[string]any{"recipeId": recipe.ID, "quality": result.Quality})
		return nil
	})
	return result, err
}

// recordStuckMaterials emits the first-class "burned but not minted" outcome
// with the data an operator needs to compensate.
func (s *Service) recordStuckMaterials(z *world.Zone, wallet string, recipe *catalog.Recipe,
	burned []catalog.RecipeMaterial, cause error) {

	if s.Bus == nil {
		return
	}
	lost := make([]map[string]any, 0, len(burned))
	for _, mat := range burned {
		lost = append(lost, map[string]any{"tokenId": mat.TokenID, "qty": mat.Qty})
	}
	s.Bus.Publish(events.Event{
		Tick: z.Tick, ZoneID: z.ID, Category: events.CategoryStuck,
		Description: fmt.Sprintf("craft %s lost materials for %s", recipe.ID, wallet),
		Wallet:      wallet,
		Details: map[string]any{
			"recipeId": recipe.ID,
			"burned":   lost,
			"cause":    cause.Error(),
		},
	})
}

// Quality tiers in ascending order; the index doubles as the stat points an
// affixed piece carries.
var qualityTiers = []string{"common", "uncommon", "rare", "epic"}

var affixTable = []struct {
	name string
	stat string
}{
	{"of the Bear", catalog.StatStamina},
	{"of the Wolf", catalog.StatStrength},
	{"of the Hawk", catalog.StatAgility},
	{"of the Owl", catalog.StatIntellect},
	{"of the Stag", catalog.StatSpirit},
}

// rollCraft draws the quality tier, bonus affix, and rolled stat bonuses for
// one crafted instance from a hash of the crafter, the recipe, and a nonce,
// so audits can replay the roll. Common pieces carry no affix; above common,
// one affixed stat worth the tier index in points.
func rollCraft(wallet, recipeID string, nonce int64) (quality, affix string, stats map[string]int) {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", strings.ToLower(wallet), recipeID, nonce)))
	roll := float64(binary.BigEndian.Uint32(sum[:4])) / 4294967296.0
	tier := 0
	switch {
	case roll < 0.60:
		tier = 0
	case roll < 0.85:
		tier = 1
	case roll < 0.97:
		tier = 2
	default:
		tier = 3
	}
	quality = qualityTiers[tier]
	if tier == 0 {
		return quality, "", nil
	}
	pick := affixTable[binary.BigEndian.Uint32(sum[4:8])%uint32(len(affixTable))]
	return quality, pick.name, map[string]int{pick.stat: tier}
}

// ConsumeResult reports one consumed item.
type ConsumeResult struct {
	TokenID int64 `json:"tokenId"`
	Healed  int   `json:"healed"`
	HP      int   `json:"hp"`
	MaxHP   int   `json:"maxHp"`
}

// Consume burns one consumable and applies its restoration, capped at max.
func (s *Service) Consume(ctx context.Context, wallet, zoneID, entityID string, tokenID int64) (*ConsumeResult, error) {
	var result *ConsumeResult
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		def, err := s.Catalog.ItemByTokenID(tokenID)
		if err != nil {
			return errNotFound("unknown item %d", tokenID)
		}
		if def.Kind != catalog.ItemConsumable {
			return errRule("%s is not consumable", def.Name)
		}
		bal, err := s.Chain.ItemBalance(ctx, wallet, tokenID)
		if err != nil {
			return errLedger("item balance", err)
		}
		if bal < 1 {
			return errInsufficient("no %s held", def.Name)
		}
		if _, err := s.Chain.BurnItem(ctx, wallet, tokenID, 1); err != nil {
			return errLedger("consume burn", err)
		}

		healed := s.Runtime.ApplyHeal(e, def.HPRestore)
		result = &ConsumeResult{TokenID: tokenID, Healed: healed, HP: e.HP, MaxHP: e.MaxHP}
		s.diary(wallet, z, e, "consume", fmt.Sprintf("%s consumed %s", e.Name, def.Name), nil)
		return nil
	})
	return result, err
}
