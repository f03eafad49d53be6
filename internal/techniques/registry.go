package techniques

import (
	"sync"

	"github.com/emberwild/shard/internal/catalog"
)

// Registry resolves technique ids to definitions. Catalog-authored techniques
// come from the static catalog; generated signature/ultimate techniques are
// registered the first time they are materialized so combat can resolve them
// by id afterwards.
type Registry struct {
	catalog *catalog.Catalog

	mu        sync.RWMutex
	generated map[string]*catalog.Technique
}

// NewRegistry creates a registry over the static catalog.
func NewRegistry(c *catalog.Catalog) *Registry {
	return &Registry{catalog: c, generated: make(map[string]*catalog.Technique)}
}

// Resolve returns the technique for id, consulting the static catalog first
// and then the generated set.
func (r *Registry) Resolve(id string) (*catalog.Technique, error) {
	if t, err := r.catalog.TechniqueByID(id); err == nil {
		return t, nil
	}
	r.mu.RLock()
	t, ok := r.generated[id]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}
	return nil, &catalog.NotFoundError{Catalog: "technique", Key: id}
}

// EnsureGenerated materializes (or re-materializes, identically) the wallet's
// technique for the given tier and registers it for lookup.
func (r *Registry) EnsureGenerated(wallet, classID, tier string) *catalog.Technique {
	t := Generate(wallet, classID, tier)
	r.mu.Lock()
	r.generated[t.ID] = t
	r.mu.Unlock()
	return t
}

// Generated lists every registered generated technique (status endpoints).
func (r *Registry) Generated() []*catalog.Technique {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*catalog.Technique, 0, len(r.generated))
	for _, t := range r.generated {
		out = append(out, t)
	}
	return out
}
