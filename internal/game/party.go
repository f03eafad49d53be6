package game

import (
	"context"

	"github.com/emberwild/shard/internal/world"
	"github.com/google/uuid"
)

const maxPartySize = 5

// PartyInfo is the caller-visible party roster.
type PartyInfo struct {
	PartyID string   `json:"partyId"`
	Members []string `json:"members"`
}

// CreateParty forms a new party with the character as its only member.
func (s *Service) CreateParty(ctx context.Context, wallet, zoneID, entityID string) (*PartyInfo, error) {
	var info *PartyInfo
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		if e.PartyID != "" {
			return errRule("%s is already in a party", e.Name)
		}
		e.PartyID = uuid.NewString()
		info = partyInfo(z, e.PartyID)
		return nil
	})
	return info, err
}

// JoinParty adds the character to another player's party, found by name in
// the same zone.
func (s *Service) JoinParty(ctx context.Context, wallet, zoneID, entityID, leaderName string) (*PartyInfo, error) {
	var info *PartyInfo
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		if e.PartyID != "" {
			return errRule("%s is already in a party", e.Name)
		}

		var leader *world.Entity
		for _, other := range z.Entities {
			if other.IsPlayer() && other.Name == leaderName && other.PartyID != "" {
				leader = other
				break
			}
		}
		if leader == nil {
			return errNotFound("no partied player named %q in this zone", leaderName)
		}
		if len(z.PartyMembers(leader.PartyID)) >= maxPartySize {
			return errRule("party is full (max %d)", maxPartySize)
		}
		e.PartyID = leader.PartyID
		info = partyInfo(z, e.PartyID)
		return nil
	})
	return info, err
}

// LeaveParty removes the character from its party.
func (s *Service) LeaveParty(ctx context.Context, wallet, zoneID, entityID string) error {
	return s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		if e.PartyID == "" {
			return errRule("%s is not in a party", e.Name)
		}
		e.PartyID = ""
		return nil
	})
}

// Party returns the character's current party roster.
func (s *Service) Party(ctx context.Context, wallet, zoneID, entityID string) (*PartyInfo, error) {
	var info *PartyInfo
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		if e.PartyID == "" {
			return errRule("%s is not in a party", e.Name)
		}
		info = partyInfo(z, e.PartyID)
		return nil
	})
	return info, err
}

func partyInfo(z *world.Zone, partyID string) *PartyInfo {
	info := &PartyInfo{PartyID: partyID}
	for _, m := range z.PartyMembers(partyID) {
		info.Members = append(info.Members, m.Name)
	}
	return info
}
