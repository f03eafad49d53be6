package game

import (
	"context"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/emberwild/shard/internal/catalog"
	"github.com/emberwild/shard/internal/currency"
	"github.com/emberwild/shard/internal/world"
)

// ZoneState is the client-facing snapshot of one zone.
type ZoneState struct {
	ZoneID   string          `json:"zoneId"`
	Name     string          `json:"name"`
	Tick     int64           `json:"tick"`
	Entities []*world.Entity `json:"entities"`
}

// State snapshots a zone. Entities are copied out under the lock; callers
// get a consistent view as of one tick.
func (s *Service) State(zoneID string) (*ZoneState, error) {
	var snap *ZoneState
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		snap = &ZoneState{ZoneID: z.ID, Name: z.Name, Tick: z.Tick}
		for _, e := range z.Entities {
			copied := *e
			snap.Entities = append(snap.Entities, &copied)
		}
		return nil
	})
	return snap, err
}

// CharacterSheet is the wallet-facing character summary with balances.
type CharacterSheet struct {
	Entity        *world.Entity  `json:"entity"`
	Zone          string         `json:"zone"`
	GoldCopper    int64          `json:"goldCopper"`
	GoldLabel     string         `json:"goldLabel"`
	XPToNextLevel int64          `json:"xpToNextLevel"`
	Reputation    map[string]int `json:"reputation,omitempty"`
}

// Character resolves the wallet's live character and balances.
func (s *Service) Character(ctx context.Context, wallet string) (*CharacterSheet, error) {
	z, e := s.Runtime.FindPlayer(wallet)
	if e == nil {
		return nil, errNotFound("no live character for this wallet")
	}
	avail, err := s.availableGold(ctx, wallet)
	if err != nil {
		return nil, err
	}

	sheet := &CharacterSheet{
		Entity:        e,
		Zone:          z.ID,
		GoldCopper:    avail,
		GoldLabel:     currency.FormatCopper(avail),
		XPToNextLevel: world.XPRequired(e.Level+1) - e.XP,
	}
	if s.Store != nil {
		sheet.Reputation = s.Store.Reputation(ctx, wallet)
	}
	return sheet, nil
}

// LearnTechnique teaches a catalog technique the character qualifies for.
func (s *Service) LearnTechnique(ctx context.Context, wallet, zoneID, entityID, techID string) error {
	return s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		tech, err := s.Catalog.TechniqueByID(techID)
		if err != nil {
			return errNotFound("unknown technique %q", techID)
		}
		if e.HasLearned(techID) {
			return errRule("%s already learned", tech.Name)
		}
		if tech.ClassID != "" && tech.ClassID != e.ClassID {
			return errRule("%s is a %s technique", tech.Name, tech.ClassID)
		}
		if e.Level < tech.LevelRequired {
			return errRule("%s requires level %d", tech.Name, tech.LevelRequired)
		}
		e.LearnedTechniques = append(e.LearnedTechniques, techID)
		s.persist(z, e)
		return nil
	})
}

// KnownTechniques resolves the character's learned techniques, generated
// ones included.
func (s *Service) KnownTechniques(wallet, zoneID, entityID string) ([]*catalog.Technique, error) {
	var out []*catalog.Technique
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		for _, id := range e.LearnedTechniques {
			if t, err := s.Runtime.Reg.Resolve(id); err == nil {
				out = append(out, t)
			}
		}
		return nil
	})
	return out, err
}

// LeaderboardRow is one ranked character.
type LeaderboardRow struct {
	Name    string `json:"name"`
	Wallet  string `json:"wallet"`
	Level   int    `json:"level"`
	XP      int64  `json:"xp"`
	XPLabel string `json:"xpLabel"`
	Kills   int64  `json:"kills"`
	Zone    string `json:"zone"`
}

// Leaderboard ranks live characters by level, then XP, then kills.
func (s *Service) Leaderboard(limit int) []LeaderboardRow {
	if limit <= 0 {
		limit = 25
	}
	var rows []LeaderboardRow
	for _, zoneID := range s.Runtime.Zones() {
		_ = s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
			for _, e := range z.Entities {
				if e.IsPlayer() {
					rows = append(rows, LeaderboardRow{
						Name: e.Name, Wallet: e.Wallet, Level: e.Level,
						XP: e.XP, XPLabel: humanize.Comma(e.XP),
						Kills: e.Kills, Zone: z.ID,
					})
				}
			}
			return nil
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Level != rows[j].Level {
			return rows[i].Level > rows[j].Level
		}
		if rows[i].XP != rows[j].XP {
			return rows[i].XP > rows[j].XP
		}
		return rows[i].Kills > rows[j].Kills
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
