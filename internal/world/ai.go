package world

import "context"

// Mob behavior tuning.
const (
	mobMeleeRange  = 2.0
	mobMoveSpeed   = 1.5 // world units per tick while chasing
	mobWanderStep  = 1.0
	mobLeashRadius = 25.0 // chase distance from spawn before giving up
)

// tickAI runs mob behavior: acquire a target in aggro range, chase, attack
// in melee range, leash back to spawn, otherwise wander.
func (r *Runtime) tickAI(ctx context.Context, z *Zone) {
	ids := make([]string, 0, len(z.Entities))
	for id := range z.Entities {
		ids = append(ids, id)
	}

	for _, id := range ids {
		mob := z.Entities[id]
		if mob == nil || !mob.Hostile() || !mob.Alive() {
			continue
		}

		target := z.Get(mob.TargetID)
		if target == nil || !target.Alive() || !target.IsPlayer() {
			mob.TargetID = ""
			target = r.acquireTarget(z, mob)
		}

		if target == nil {
			r.wander(z, mob)
			continue
		}

		if distance(mob.SpawnX, mob.SpawnY, mob.X, mob.Y) > mobLeashRadius {
			// Leashed: drop aggro and walk home.
			mob.TargetID = ""
			r.stepToward(z, mob, mob.SpawnX, mob.SpawnY, mobMoveSpeed)
			continue
		}

		mob.TargetID = target.ID
		if mob.DistanceTo(target) <= mobMeleeRange {
			r.ApplyDamage(ctx, z, target, mob.Damage, mob.ID)
		} else {
			r.stepToward(z, mob, target.X, target.Y, mobMoveSpeed)
		}
	}
}

func (r *Runtime) acquireTarget(z *Zone, mob *Entity) *Entity {
	if mob.AggroRadius <= 0 {
		return nil
	}
	candidates := z.EntitiesWithin(mob.X, mob.Y, mob.AggroRadius, func(e *Entity) bool {
		return e.IsPlayer() && e.Alive()
	})
	var nearest *Entity
	best := mob.AggroRadius + 1
	for _, c := range candidates {
		if d := mob.DistanceTo(c); d < best {
			nearest, best = c, d
		}
	}
	return nearest
}

// wander takes a small random step around the spawn anchor, skipping
// unwalkable terrain. Mobs idle most ticks.
func (r *Runtime) wander(z *Zone, mob *Entity) {
	if r.roll() > 0.2 {
		return
	}
	nx := mob.X + (r.roll()*2-1)*mobWanderStep
	ny := mob.Y + (r.roll()*2-1)*mobWanderStep
	if distance(mob.SpawnX, mob.SpawnY, nx, ny) > mobLeashRadius/2 {
		nx, ny = mob.SpawnX, mob.SpawnY
	}
	if z.Layout.Walkable(nx, ny) {
		z.MoveEntity(mob, nx, ny)
	}
}

func (r *Runtime) stepToward(z *Zone, e *Entity, tx, ty, speed float64) {
	d := distance(e.X, e.Y, tx, ty)
	if d == 0 {
		return
	}
	if d < speed {
		speed = d
	}
	nx := e.X + (tx-e.X)/d*speed
	ny := e.Y + (ty-e.Y)/d*speed
	nx, ny = z.Layout.ClampToBounds(nx, ny)
	if z.Layout.Walkable(nx, ny) {
		z.MoveEntity(e, nx, ny)
	}
}
