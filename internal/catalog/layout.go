// Zone layout placement using simplex noise. Node and mob positions are
// derived deterministically from the zone seed so every shard restart (and
// every shard replica) materializes identical zones from the same layout.
package catalog

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Point is a placed world coordinate inside a zone.
type Point struct {
	X float64
	Y float64
}

// ScatterPoints places count points inside the zone bounds, biased toward
// high-noise regions so placements cluster naturally instead of forming a
// grid. salt separates independent layers (one per node spec / mob spec).
func (z *ZoneLayout) ScatterPoints(count int, salt int64) []Point {
	if count <= 0 {
		return nil
	}
	noise := opensimplex.NewNormalized(z.Seed + salt)

	// Sample a coarse lattice, keep the best-scoring cells.
	const lattice = 24
	type scored struct {
		p Point
		v float64
	}
	cells := make([]scored, 0, lattice*lattice)
	for i := 0; i < lattice; i++ {
		for j := 0; j < lattice; j++ {
			x := (float64(i) + 0.5) / lattice * z.Width
			y := (float64(j) + 0.5) / lattice * z.Height
			v := noise.Eval2(x*0.05, y*0.05)
			cells = append(cells, scored{p: Point{X: x, Y: y}, v: v})
		}
	}

	// Selection sort of the top `count` cells keeps placement stable without
	// depending on sort tie-breaking across Go versions.
	points := make([]Point, 0, count)
	used := make([]bool, len(cells))
	for len(points) < count && len(points) < len(cells) {
		best, bestV := -1, -1.0
		for idx, c := range cells {
			if used[idx] {
				continue
			}
			if c.v > bestV {
				best, bestV = idx, c.v
			}
		}
		used[best] = true
		// Jitter inside the cell, still seed-deterministic.
		jx := noise.Eval2(cells[best].p.X*0.31, cells[best].p.Y*0.17) - 0.5
		jy := noise.Eval2(cells[best].p.Y*0.29, cells[best].p.X*0.13) - 0.5
		p := Point{
			X: clamp(cells[best].p.X+jx*z.Width/lattice, 1, z.Width-1),
			Y: clamp(cells[best].p.Y+jy*z.Height/lattice, 1, z.Height-1),
		}
		points = append(points, p)
	}
	return points
}

// Walkable reports whether a coordinate is inside the zone and not blocked.
// Impassable pockets come from deep noise troughs, matching the rendered
// rock/water features the client draws from the same seed.
func (z *ZoneLayout) Walkable(x, y float64) bool {
	if x < 0 || y < 0 || x > z.Width || y > z.Height {
		return false
	}
	noise := opensimplex.NewNormalized(z.Seed)
	return noise.Eval2(x*0.05, y*0.05) > 0.08
}

// ClampToBounds pulls a coordinate back inside the zone rectangle.
func (z *ZoneLayout) ClampToBounds(x, y float64) (float64, float64) {
	return clamp(x, 0, z.Width), clamp(y, 0, z.Height)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
