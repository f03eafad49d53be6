package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/emberwild/shard/internal/catalog"
	"github.com/emberwild/shard/internal/chain"
	"github.com/emberwild/shard/internal/events"
	"github.com/emberwild/shard/internal/ledger"
	"github.com/emberwild/shard/internal/merchant"
	"github.com/emberwild/shard/internal/store"
	"github.com/emberwild/shard/internal/world"
	"github.com/google/uuid"
)

// Interaction ranges in world units.
const (
	interactRange = 5.0
	portalRange   = 6.0
)

// Service composes the pipeline's dependencies. One instance serves every
// request; per-zone serialization happens inside Runtime.WithZone.
type Service struct {
	Runtime   *world.Runtime
	Catalog   *catalog.Catalog
	Chain     chain.Driver
	Ledger    *ledger.Ledger
	Store     *store.Store
	Bus       *events.Bus
	Merchants *merchant.Manager

	// Crafted-instance rolls keyed by wallet and token. Item tokens are
	// fungible on chain, so quality and affix rolls live shard-side until
	// the piece is equipped.
	rollMu     sync.Mutex
	craftRolls map[string]*craftRoll
}

// craftRoll is the per-instance outcome a quality-rolling recipe produced,
// carried from craft to equip.
type craftRoll struct {
	Quality     string
	BonusAffix  string
	RolledStats map[string]int
}

func NewService(rt *world.Runtime, cat *catalog.Catalog, driver chain.Driver, led *ledger.Ledger,
	st *store.Store, bus *events.Bus, merchants *merchant.Manager) *Service {
	return &Service{
		Runtime:    rt,
		Catalog:    cat,
		Chain:      driver,
		Ledger:     led,
		Store:      st,
		Bus:        bus,
		Merchants:  merchants,
		craftRolls: make(map[string]*craftRoll),
	}
}

func rollKey(wallet string, tokenID int64) string {
	return fmt.Sprintf("%s|%d", strings.ToLower(wallet), tokenID)
}

// recordCraftRoll remembers the latest roll for the wallet's copy of the
// token; equipping that token picks it up.
func (s *Service) recordCraftRoll(wallet string, tokenID int64, roll *craftRoll) {
	s.rollMu.Lock()
	s.craftRolls[rollKey(wallet, tokenID)] = roll
	s.rollMu.Unlock()
}

func (s *Service) craftRollFor(wallet string, tokenID int64) *craftRoll {
	s.rollMu.Lock()
	defer s.rollMu.Unlock()
	return s.craftRolls[rollKey(wallet, tokenID)]
}

// ownedEntity resolves an entity and checks the wallet controls it. Caller
// holds the zone lock.
func ownedEntity(z *world.Zone, entityID, wallet string) (*world.Entity, error) {
	e := z.Get(entityID)
	if e == nil {
		return nil, errNotFound("entity %q not found in zone %q", entityID, z.ID)
	}
	if !e.IsPlayer() {
		return nil, errForbidden("entity %q is not a player character", entityID)
	}
	if !walletEqual(e.Wallet, wallet) {
		return nil, errForbidden("entity %q is not controlled by this wallet", entityID)
	}
	return e, nil
}

func walletEqual(a, b string) bool { return strings.EqualFold(a, b) }

// diary appends a narrative entry for the wallet's character.
func (s *Service) diary(wallet string, z *world.Zone, e *world.Entity, action, headline string, details map[string]any) {
	if s.Store == nil || wallet == "" {
		return
	}
	s.Store.AppendDiary(wallet, &store.DiaryEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		ZoneID:    z.ID,
		X:         e.X,
		Y:         e.Y,
		Action:    action,
		Headline:  headline,
		Details:   details,
	})
}

// persist writes the entity's character save.
func (s *Service) persist(z *world.Zone, e *world.Entity) {
	if s.Store == nil || e.Wallet == "" {
		return
	}
	s.Store.SaveCharacter(e.Wallet, &store.CharacterSave{
		Name:                 e.Name,
		Level:                e.Level,
		XP:                   e.XP,
		RaceID:               e.RaceID,
		ClassID:              e.ClassID,
		Gender:               e.Gender,
		Zone:                 z.ID,
		X:                    e.X,
		Y:                    e.Y,
		Kills:                int(e.Kills),
		CompletedQuests:      e.CompletedQuests,
		LearnedTechniques:    e.LearnedTechniques,
		Professions:          e.Professions,
		SignatureTechniqueID: e.SignatureTechniqueID,
		UltimateTechniqueID:  e.UltimateTechniqueID,
		CharacterTokenID:     e.CharacterTokenID,
	})
}

// nearestOfType finds the closest entity of the given type within range of
// the player, or nil.
func nearestOfType(z *world.Zone, from *world.Entity, entityType string, within float64) *world.Entity {
	candidates := z.EntitiesWithin(from.X, from.Y, within, func(e *world.Entity) bool {
		return e.Type == entityType
	})
	var best *world.Entity
	bestD := within + 1
	for _, c := range candidates {
		if d := from.DistanceTo(c); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

// availableGold reads the wallet's spendable copper: on-chain balance minus
// ledger reservations.
func (s *Service) availableGold(ctx context.Context, wallet string) (int64, error) {
	onChain, err := s.Chain.GoldBalance(ctx, wallet)
	if err != nil {
		return 0, errLedger("gold balance", err)
	}
	return s.Ledger.Available(wallet, onChain), nil
}
