package game

import (
	"context"
	"fmt"

	"github.com/emberwild/shard/internal/store"
	"github.com/emberwild/shard/internal/techniques"
	"github.com/emberwild/shard/internal/world"
)

// Starter techniques every fresh character knows, plus class openers.
var starterTechniques = map[string][]string{
	"":        {"strike"},
	"warrior": {"strike", "rend"},
	"mage":    {"strike", "firebolt"},
	"druid":   {"strike", "mend"},
	"ranger":  {"strike"},
	"rogue":   {"strike"},
}

// SpawnRequest creates or restores a player character in a zone.
type SpawnRequest struct {
	ZoneID  string  `json:"zoneId"`
	Name    string  `json:"name"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	RaceID  string  `json:"raceId,omitempty"`
	ClassID string  `json:"classId,omitempty"`
	Gender  string  `json:"gender,omitempty"`
	Level   int     `json:"level,omitempty"`
}

// SpawnResult reports the placed entity and whether a save was restored.
type SpawnResult struct {
	Spawned  *world.Entity `json:"spawned"`
	Restored bool          `json:"restored"`
	Zone     string        `json:"zone"`
}

// Spawn places the wallet's character into the world. An existing save
// restores zone, position, progression, and techniques; otherwise a fresh
// character is initialized from the level table.
func (s *Service) Spawn(ctx context.Context, wallet string, req *SpawnRequest) (*SpawnResult, error) {
	if req.Name == "" {
		return nil, errInvalid("name is required")
	}
	if req.ZoneID == "" {
		return nil, errInvalid("zoneId is required")
	}
	if z, existing := s.Runtime.FindPlayer(wallet); existing != nil {
		return nil, errRule("wallet already controls %q in zone %q; logout first", existing.Name, z.ID)
	}

	var save *store.CharacterSave
	if s.Store != nil {
		if loaded, err := s.Store.LoadCharacter(ctx, wallet); err == nil && loaded.Name == req.Name {
			save = loaded
		}
	}

	zoneID := req.ZoneID
	if save != nil && save.Zone != "" {
		zoneID = save.Zone
	}

	var result *SpawnResult
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e := world.NewEntity(world.TypePlayer, req.Name, req.X, req.Y)
		e.Wallet = wallet
		e.Cooldowns = make(map[string]int64)

		if save != nil {
			e.Level = save.Level
			e.XP = save.XP
			e.RaceID = save.RaceID
			e.ClassID = save.ClassID
			e.Gender = save.Gender
			e.Kills = int64(save.Kills)
			e.X, e.Y = save.X, save.Y
			e.CompletedQuests = save.CompletedQuests
			e.LearnedTechniques = save.LearnedTechniques
			e.Professions = save.Professions
			e.SignatureTechniqueID = save.SignatureTechniqueID
			e.UltimateTechniqueID = save.UltimateTechniqueID
			e.CharacterTokenID = save.CharacterTokenID
		} else {
			e.Level = req.Level
			if e.Level < 1 {
				e.Level = 1
			}
			e.XP = world.XPRequired(e.Level)
			e.RaceID = req.RaceID
			e.ClassID = req.ClassID
			e.Gender = req.Gender
			techs, ok := starterTechniques[e.ClassID]
			if !ok {
				techs = starterTechniques[""]
			}
			e.LearnedTechniques = append([]string(nil), techs...)
			if e.X == 0 && e.Y == 0 {
				e.X, e.Y = z.Layout.GraveyardX, z.Layout.GraveyardY
			}
		}

		e.BaseStats = world.BaseStatsFor(e.RaceID, e.ClassID, e.Level)
		s.Runtime.RecalculateVitals(e)
		e.HP = e.MaxHP
		e.Essence = e.MaxEssence

		// Generated techniques re-register on restore so combat can resolve
		// them; regeneration is deterministic.
		if e.SignatureTechniqueID != "" {
			s.Runtime.Reg.EnsureGenerated(wallet, e.ClassID, techniques.TierSignature)
		}
		if e.UltimateTechniqueID != "" {
			s.Runtime.Reg.EnsureGenerated(wallet, e.ClassID, techniques.TierUltimate)
		}

		x, y := z.Layout.ClampToBounds(e.X, e.Y)
		e.X, e.Y = x, y
		z.Add(e)

		if save == nil && s.Store != nil {
			s.Store.SaveReputation(wallet, "meadow-wardens", 0)
		}
		s.diary(wallet, z, e, "spawn", fmt.Sprintf("%s arrived in %s", e.Name, z.Name), nil)
		s.persist(z, e)

		result = &SpawnResult{Spawned: e, Restored: save != nil, Zone: z.ID}
		return nil
	})
	return result, err
}

// Logout persists the character and removes it from the world.
func (s *Service) Logout(ctx context.Context, wallet, zoneID, entityID string) error {
	return s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		s.persist(z, e)
		s.diary(wallet, z, e, "logout", fmt.Sprintf("%s left the world", e.Name), nil)
		z.Remove(e.ID)
		return nil
	})
}

// Move validates ownership and walkability, then repositions the entity.
func (s *Service) Move(ctx context.Context, wallet, zoneID, entityID string, x, y float64) (*world.Entity, error) {
	var moved *world.Entity
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		nx, ny := z.Layout.ClampToBounds(x, y)
		if !z.Layout.Walkable(nx, ny) {
			return errRule("destination (%.1f, %.1f) is not walkable", nx, ny)
		}
		z.MoveEntity(e, nx, ny)
		moved = e
		return nil
	})
	return moved, err
}

// CreateCharacter mints the character identity NFT and returns its token id.
// Spawn is a separate step so agents can mint before entering the world.
func (s *Service) CreateCharacter(ctx context.Context, wallet, name string) (int64, error) {
	if name == "" {
		return 0, errInvalid("name is required")
	}
	tokenID, _, err := s.Chain.MintCharacter(ctx, wallet, name)
	if err != nil {
		return 0, errLedger("mint character", err)
	}
	return tokenID, nil
}
