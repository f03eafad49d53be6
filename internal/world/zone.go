package world

import (
	"math"
	"sync"

	"github.com/emberwild/shard/internal/catalog"
)

// gridCell is the spatial index cell size in world units. It matches the
// extent the client renders as one chunk, so a radius query touches a
// handful of cells instead of every entity.
const gridCell = 16.0

// Zone is one simulated area. All access goes through the zone's mutex; the
// tick loop and the action pipeline both lock it via Runtime.WithZone.
type Zone struct {
	ID     string
	Name   string
	Layout *catalog.ZoneLayout

	Mu       sync.Mutex
	Tick     int64
	Entities map[string]*Entity

	grid map[[2]int][]*Entity
}

func newZone(layout *catalog.ZoneLayout) *Zone {
	return &Zone{
		ID:       layout.ID,
		Name:     layout.Name,
		Layout:   layout,
		Entities: make(map[string]*Entity),
	}
}

// Add inserts the entity. Caller holds the zone lock.
func (z *Zone) Add(e *Entity) {
	z.Entities[e.ID] = e
	z.grid = nil
}

// Remove deletes the entity by id. Caller holds the zone lock.
func (z *Zone) Remove(id string) {
	delete(z.Entities, id)
	z.grid = nil
}

// Get returns the entity by id, or nil.
func (z *Zone) Get(id string) *Entity {
	return z.Entities[id]
}

// PlayerByWallet finds the player entity owned by the wallet, or nil.
func (z *Zone) PlayerByWallet(wallet string) *Entity {
	for _, e := range z.Entities {
		if e.IsPlayer() && equalWallet(e.Wallet, wallet) {
			return e
		}
	}
	return nil
}

// rebuildIndex recomputes the spatial grid. Called at the top of each tick
// and lazily after membership changes.
func (z *Zone) rebuildIndex() {
	z.grid = make(map[[2]int][]*Entity, len(z.Entities))
	for _, e := range z.Entities {
		key := cellOf(e.X, e.Y)
		z.grid[key] = append(z.grid[key], e)
	}
}

// EntitiesWithin returns entities within radius of (x, y) that match the
// predicate (nil matches all). Caller holds the zone lock.
func (z *Zone) EntitiesWithin(x, y, radius float64, pred func(*Entity) bool) []*Entity {
	if z.grid == nil {
		z.rebuildIndex()
	}
	lo := cellOf(x-radius, y-radius)
	hi := cellOf(x+radius, y+radius)

	var out []*Entity
	for cx := lo[0]; cx <= hi[0]; cx++ {
		for cy := lo[1]; cy <= hi[1]; cy++ {
			for _, e := range z.grid[[2]int{cx, cy}] {
				if distance(x, y, e.X, e.Y) > radius {
					continue
				}
				if pred != nil && !pred(e) {
					continue
				}
				out = append(out, e)
			}
		}
	}
	return out
}

// MoveEntity updates a position, keeping the index consistent.
func (z *Zone) MoveEntity(e *Entity, x, y float64) {
	if z.grid != nil {
		old := cellOf(e.X, e.Y)
		next := cellOf(x, y)
		if old != next {
			cell := z.grid[old]
			for i, g := range cell {
				if g.ID == e.ID {
					z.grid[old] = append(cell[:i], cell[i+1:]...)
					break
				}
			}
			z.grid[next] = append(z.grid[next], e)
		}
	}
	e.X, e.Y = x, y
}

// PartyMembers returns the living players in the party, including the given
// member if present.
func (z *Zone) PartyMembers(partyID string) []*Entity {
	if partyID == "" {
		return nil
	}
	var out []*Entity
	for _, e := range z.Entities {
		if e.IsPlayer() && e.PartyID == partyID && e.Alive() {
			out = append(out, e)
		}
	}
	return out
}

func cellOf(x, y float64) [2]int {
	return [2]int{int(math.Floor(x / gridCell)), int(math.Floor(y / gridCell))}
}

func distance(x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	return math.Sqrt(dx*dx + dy*dy)
}
