// Package events is the shard's typed domain-event channel. Producers never
// block: each subscriber owns a bounded queue and slow consumers lose their
// oldest events rather than stalling the tick loop.
package events

import (
	"sync"
	"time"
)

// Event categories.
const (
	CategoryCombat   = "combat"
	CategoryDeath    = "death"
	CategoryLoot     = "loot"
	CategoryCraft    = "craft"
	CategoryGather   = "gather"
	CategoryMerchant = "merchant"
	CategoryAgent    = "agent"
	CategoryLevel    = "level"
	CategoryEconomy  = "economy"
	CategoryStuck    = "stuck-materials"
)

// Event is one notable occurrence in the world.
type Event struct {
	Tick        int64          `json:"tick"`
	ZoneID      string         `json:"zoneId,omitempty"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Wallet      string         `json:"wallet,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Bus fans events out to subscribers and keeps a bounded recent-event ring
// for the HTTP surface.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int

	recent []Event
	keep   int
}

// NewBus creates a bus retaining the last keep events for queries.
func NewBus(keep int) *Bus {
	if keep <= 0 {
		keep = 1000
	}
	return &Bus{subs: make(map[int]chan Event), keep: keep}
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.recent = append(b.recent, ev)
	if len(b.recent) > b.keep {
		b.recent = b.recent[len(b.recent)-b.keep:]
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Queue full: drop the oldest, then deliver.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// Subscribe registers a queue of the given depth. Cancel with the returned
// function; the channel closes on cancel.
func (b *Bus) Subscribe(depth int) (<-chan Event, func()) {
	if depth <= 0 {
		depth = 64
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, depth)
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Recent returns up to limit retained events, oldest first, optionally
// filtered by zone.
func (b *Bus) Recent(zoneID string, limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Event
	for _, ev := range b.recent {
		if zoneID != "" && ev.ZoneID != zoneID {
			continue
		}
		out = append(out, ev)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
