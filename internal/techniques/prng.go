// Package techniques generates and resolves character techniques. Signature
// and ultimate techniques are synthesized deterministically from the owning
// wallet, class, and tier: the same triple always yields a byte-identical
// technique, on any shard, at any time.
package techniques

// mulberry32 is a tiny deterministic PRNG. The sequence is fixed by the
// 32-bit seed and is identical across platforms, which is the whole point:
// technique generation must replay bit-for-bit.
type mulberry32 struct {
	state uint32
}

func newMulberry32(seed uint32) *mulberry32 {
	return &mulberry32{state: seed}
}

// next returns a float64 in [0, 1).
func (m *mulberry32) next() float64 {
	m.state += 0x6D2B79F5
	z := m.state
	z = (z ^ (z >> 15)) * (z | 1)
	z ^= z + (z^(z>>7))*(z|61)
	return float64(z^(z>>14)) / 4294967296.0
}

// intn returns an int in [0, n).
func (m *mulberry32) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(m.next() * float64(n))
}

// rangeF returns a float64 in [lo, hi).
func (m *mulberry32) rangeF(lo, hi float64) float64 {
	return lo + m.next()*(hi-lo)
}

// rangeI returns an int in [lo, hi].
func (m *mulberry32) rangeI(lo, hi int) int {
	return lo + m.intn(hi-lo+1)
}

// pick selects one weighted key. Weights are walked in the given key order so
// selection stays deterministic.
func (m *mulberry32) pick(keys []string, weights map[string]float64) string {
	total := 0.0
	for _, k := range keys {
		total += weights[k]
	}
	roll := m.next() * total
	for _, k := range keys {
		roll -= weights[k]
		if roll < 0 {
			return k
		}
	}
	return keys[len(keys)-1]
}
