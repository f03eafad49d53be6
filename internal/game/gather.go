package game

import (
	"context"
	"fmt"

	"github.com/emberwild/shard/internal/catalog"
	"github.com/emberwild/shard/internal/chain"
	"github.com/emberwild/shard/internal/events"
	"github.com/emberwild/shard/internal/world"
)

// GatherResult reports one successful gather.
type GatherResult struct {
	TokenID        int64     `json:"tokenId"`
	ItemName       string    `json:"itemName"`
	Quantity       int64     `json:"quantity"`
	ChargesLeft    int       `json:"chargesLeft"`
	ToolDurability int       `json:"toolDurability"`
	ToolBroken     bool      `json:"toolBroken"`
	Tx             *chain.Tx `json:"tx,omitempty"`
}

// Mine gathers from an ore node with an equipped pickaxe.
func (s *Service) Mine(ctx context.Context, wallet, zoneID, entityID, nodeID string) (*GatherResult, error) {
	return s.gatherNode(ctx, wallet, zoneID, entityID, nodeID, world.TypeOreNode, "mining", catalog.ToolPickaxe)
}

// Herb gathers from a flower node with an equipped sickle.
func (s *Service) Herb(ctx context.Context, wallet, zoneID, entityID, nodeID string) (*GatherResult, error) {
	return s.gatherNode(ctx, wallet, zoneID, entityID, nodeID, world.TypeFlowerNode, "herbalism", catalog.ToolSickle)
}

func (s *Service) gatherNode(ctx context.Context, wallet, zoneID, entityID, nodeID,
	nodeType, profession, toolKind string) (*GatherResult, error) {

	var result *GatherResult
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		node := z.Get(nodeID)
		if node == nil || node.Type != nodeType {
			return errNotFound("no %s %q in zone %q", nodeType, nodeID, zoneID)
		}
		if !e.HasProfession(profession) {
			return errRule("%s profession not learned", profession)
		}
		tool := e.EquippedTool(s.Catalog, toolKind)
		if tool == nil {
			return errRule("no %s equipped", toolKind)
		}
		if tool.Broken {
			return errRule("%s is broken; repair it first", tool.Name)
		}
		toolDef, err := s.Catalog.ItemByTokenID(tool.TokenID)
		if err != nil {
			return errNotFound("unknown tool item %d", tool.TokenID)
		}
		if toolDef.Tier < node.NodeTier {
			return &RuleError{Code: CodeRule,
				Message: fmt.Sprintf("%s (tier %d) cannot work a tier %d node", tool.Name, toolDef.Tier, node.NodeTier),
				Hints:   map[string]any{"requiredTier": node.NodeTier, "toolTier": toolDef.Tier}}
		}
		if e.DistanceTo(node) > interactRange {
			return errRule("too far from %s", node.Name)
		}
		if node.Charges <= 0 {
			return errRule("%s is depleted", node.Name)
		}

		// Deplete first; roll back if the mint fails.
		node.Charges--
		if node.Charges == 0 {
			node.DepletedAtTick = z.Tick
		}
		tool.Wear(-1)

		tx, err := s.Chain.MintItem(ctx, wallet, node.ResourceTokenID, 1)
		if err != nil {
			node.Charges++
			if node.Charges > 0 {
				node.DepletedAtTick = 0
			}
			tool.Wear(1)
			return errLedger("gather mint", err)
		}

		if tool.Broken {
			s.Runtime.RecalculateVitals(e)
		}

		itemName := node.ResourceName
		s.publishGather(z, e, itemName)
		s.diary(wallet, z, e, "gather", fmt.Sprintf("%s gathered %s", e.Name, itemName),
			map[string]any{"tokenId": node.ResourceTokenID})

		result = &GatherResult{
			TokenID:        node.ResourceTokenID,
			ItemName:       itemName,
			Quantity:       1,
			ChargesLeft:    node.Charges,
			ToolDurability: tool.Durability,
			ToolBroken:     tool.Broken,
			Tx:             tx,
		}
		return nil
	})
	return result, err
}

// Skin harvests a skinnable corpse with an equipped skinning knife.
func (s *Service) Skin(ctx context.Context, wallet, zoneID, entityID, corpseID string) (*GatherResult, error) {
	var result *GatherResult
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		corpse := z.Get(corpseID)
		if corpse == nil || corpse.Type != world.TypeCorpse {
			return errNotFound("no corpse %q in zone %q", corpseID, zoneID)
		}
		if !e.HasProfession("skinning") {
			return errRule("skinning profession not learned")
		}
		tool := e.EquippedTool(s.Catalog, catalog.ToolSkinningKnife)
		if tool == nil {
			return errRule("no skinning-knife equipped")
		}
		if tool.Broken {
			return errRule("%s is broken; repair it first", tool.Name)
		}
		toolDef, err := s.Catalog.ItemByTokenID(tool.TokenID)
		if err != nil {
			return errNotFound("unknown tool item %d", tool.TokenID)
		}
		if toolDef.Tier < corpse.SkinTier {
			return errRule("a tier %d knife is needed for this hide", corpse.SkinTier)
		}
		if e.DistanceTo(corpse) > interactRange {
			return errRule("too far from the corpse")
		}
		if corpse.Skinned {
			return errRule("corpse already skinned")
		}
		if z.Tick > corpse.SkinnableUntil {
			return errRule("the hide has spoiled")
		}

		tokenID := skinTokenFor(corpse.MobName)
		corpse.Skinned = true
		tool.Wear(-1)

		tx, err := s.Chain.MintItem(ctx, wallet, tokenID, 1)
		if err != nil {
			corpse.Skinned = false
			tool.Wear(1)
			return errLedger("skin mint", err)
		}

		itemName := fmt.Sprintf("item %d", tokenID)
		if def, err := s.Catalog.ItemByTokenID(tokenID); err == nil {
			itemName = def.Name
		}
		s.publishGather(z, e, itemName)
		s.diary(wallet, z, e, "skin", fmt.Sprintf("%s skinned a %s", e.Name, corpse.MobName), nil)

		result = &GatherResult{
			TokenID:        tokenID,
			ItemName:       itemName,
			Quantity:       1,
			ToolDurability: tool.Durability,
			ToolBroken:     tool.Broken,
			Tx:             tx,
		}
		return nil
	})
	return result, err
}

// skinTokenFor maps a mob to its hide token. Unknown skinnables yield wolf
// pelts rather than failing the harvest.
func skinTokenFor(mobName string) int64 {
	switch mobName {
	case "Wild Boar":
		return catalog.TokBoarHide
	default:
		return catalog.TokWolfPelt
	}
}

func (s *Service) publishGather(z *world.Zone, e *world.Entity, itemName string) {
	if s.Bus == nil {
		return
	}
	s.Bus.Publish(events.Event{
		Tick: z.Tick, ZoneID: z.ID, Category: events.CategoryGather,
		Description: fmt.Sprintf("%s gathered %s", e.Name, itemName),
		Wallet:      e.Wallet,
	})
}

// LearnProfession teaches the character a gathering or crafting profession
// from a trainer in range.
func (s *Service) LearnProfession(ctx context.Context, wallet, zoneID, entityID, professionID string) error {
	return s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		if e.HasProfession(professionID) {
			return errRule("%s already learned", professionID)
		}
		trainer := nearestTrainer(z, e, professionID)
		if trainer == nil {
			return errRule("no %s trainer in range", professionID)
		}
		e.Professions = append(e.Professions, professionID)
		s.diary(wallet, z, e, "learn", fmt.Sprintf("%s learned %s from %s", e.Name, professionID, trainer.Name), nil)
		s.persist(z, e)
		return nil
	})
}

func nearestTrainer(z *world.Zone, from *world.Entity, professionID string) *world.Entity {
	trainers := z.EntitiesWithin(from.X, from.Y, interactRange, func(e *world.Entity) bool {
		return e.Type == world.TypeTrainer && e.Profession == professionID
	})
	if len(trainers) == 0 {
		return nil
	}
	return trainers[0]
}
