package game

import (
	"context"
	"fmt"

	"github.com/emberwild/shard/internal/world"
)

// TransitionResult reports a zone change.
type TransitionResult struct {
	FromZone string        `json:"fromZone"`
	ToZone   string        `json:"toZone"`
	Entity   *world.Entity `json:"entity"`
}

// UsePortal moves the character through a specific portal. The character
// arrives at the destination zone's return portal, or its graveyard if the
// link is one-way.
func (s *Service) UsePortal(ctx context.Context, wallet, zoneID, entityID, portalID string) (*TransitionResult, error) {
	var toZone string
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		portal := z.Get(portalID)
		if portal == nil || portal.Type != world.TypePortal {
			return errNotFound("no portal %q in zone %q", portalID, zoneID)
		}
		if e.DistanceTo(portal) > portalRange {
			return errRule("too far from the portal")
		}
		toZone = portal.ToZone
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, wallet, zoneID, entityID, toZone)
}

// TransitionAuto finds the nearest in-range portal and steps through it.
func (s *Service) TransitionAuto(ctx context.Context, wallet, zoneID, entityID string) (*TransitionResult, error) {
	var toZone string
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		portal := nearestOfType(z, e, world.TypePortal, portalRange)
		if portal == nil {
			return errRule("no portal in range")
		}
		toZone = portal.ToZone
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, wallet, zoneID, entityID, toZone)
}

// transition lifts the entity out of one zone and drops it into another.
// Zones lock one at a time, never nested, so cross-zone moves can't deadlock
// against the tick loop.
func (s *Service) transition(ctx context.Context, wallet, fromZoneID, entityID, toZoneID string) (*TransitionResult, error) {
	var moved *world.Entity
	err := s.Runtime.WithZone(fromZoneID, func(z *world.Zone) error {
		e, err := ownedEntity(z, entityID, wallet)
		if err != nil {
			return err
		}
		z.Remove(e.ID)
		moved = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.Runtime.WithZone(toZoneID, func(dst *world.Zone) error {
		// Arrive at the return portal when one links back, else the graveyard.
		x, y := dst.Layout.GraveyardX, dst.Layout.GraveyardY
		for _, p := range dst.Layout.Portals {
			if p.ToZone == fromZoneID {
				x, y = p.X, p.Y
				break
			}
		}
		moved.X, moved.Y = x, y
		dst.Add(moved)
		s.diary(wallet, dst, moved, "travel", fmt.Sprintf("%s traveled to %s", moved.Name, dst.Name), nil)
		s.persist(dst, moved)
		return nil
	})
	if err != nil {
		// Destination unknown: put the traveler back rather than losing them.
		restoreErr := s.Runtime.WithZone(fromZoneID, func(z *world.Zone) error {
			z.Add(moved)
			return nil
		})
		if restoreErr != nil {
			return nil, restoreErr
		}
		return nil, err
	}

	return &TransitionResult{FromZone: fromZoneID, ToZone: toZoneID, Entity: moved}, nil
}

// Portals lists the portals in a zone.
func (s *Service) Portals(zoneID string) ([]*world.Entity, error) {
	var out []*world.Entity
	err := s.Runtime.WithZone(zoneID, func(z *world.Zone) error {
		for _, e := range z.Entities {
			if e.Type == world.TypePortal {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}
