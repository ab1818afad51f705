package sim

import "math"

// SpawnWeaponProjectiles implements spec §4.3 create_weapon_projectiles.
// It returns the newly spawned projectiles (ids assigned by the caller's
// NextProjectileID counter) and the advanced rng state.
func SpawnWeaponProjectiles(shooter *PlayerState, aimX, aimY float64, w WeaponType, nextID int, rngState uint32) ([]Projectile, uint32) {
	stats := GetWeaponStats(w)

	length := math.Hypot(aimX, aimY)
	nx, ny := aimX, aimY
	if length < 0.001 {
		nx, ny = float64(shooter.Facing), 0
		length = 1
	} else {
		nx /= length
		ny /= length
	}

	spawnX := shooter.X + PlayerWidth/2 + nx*PlayerWidth/2
	spawnY := shooter.Y + PlayerHeight/2 + ny*PlayerHeight/2

	baseAngle := math.Atan2(ny, nx)
	spreadRad := stats.SpreadDeg * math.Pi / 180

	out := make([]Projectile, 0, stats.Pellets)
	for i := 0; i < stats.Pellets; i++ {
		angle := baseAngle
		if stats.Pellets > 1 {
			t := float64(i)/float64(stats.Pellets-1)*2 - 1 // [-1, 1]
			angle = baseAngle + t*spreadRad

			var jitter float64
			jitter, rngState = NextRandom(rngState)
			jitter = (jitter*2 - 1) * spreadRad * 0.1
			angle += jitter
		}

		out = append(out, Projectile{
			ID:       nextID + i,
			OwnerID:  shooter.ID,
			X:        spawnX,
			Y:        spawnY,
			VX:       math.Cos(angle) * stats.Speed,
			VY:       math.Sin(angle) * stats.Speed,
			Lifetime: stats.Lifetime,
			Weapon:   w,
		})
	}

	return out, rngState
}

// projectileOutOfBounds applies the margin rule of spec §4.3/§4.4.
func projectileOutOfBounds(proj *Projectile, m *GameMap, arenaLeft, arenaRight float64) bool {
	const margin = 50.0
	return proj.X < arenaLeft-margin || proj.X > arenaRight+margin ||
		proj.Y < -margin || proj.Y > m.Height+margin
}

// projectileHitsPlatform applies the 4px above-surface buffer rule.
func projectileHitsPlatform(proj *Projectile, m *GameMap) bool {
	const buffer = 4.0
	for _, plat := range m.Platforms {
		if proj.X >= plat.X && proj.X <= plat.X+plat.W &&
			proj.Y >= plat.Top()-buffer && proj.Y <= plat.Top() {
			return true
		}
	}
	return false
}

// projectileHitsWall applies arena-wall-crossing removal.
func projectileHitsWall(proj *Projectile, arenaLeft, arenaRight float64) bool {
	return proj.X < arenaLeft || proj.X > arenaRight
}

const projectileHitRadius = 10.0

// projectileOverlapsPlayer is the AABB overlap check spec §4.3 "Player
// hit" requires, treating the projectile as a small square hitbox.
func projectileOverlapsPlayer(proj *Projectile, p *PlayerState) bool {
	return aabbOverlap(
		proj.X-projectileHitRadius, proj.Y-projectileHitRadius, projectileHitRadius*2, projectileHitRadius*2,
		p.X, p.Y, PlayerWidth, PlayerHeight,
	)
}

const pickupRadius = 16.0

// pickupOverlapsPlayer implements the pickup-equip AABB rule of spec
// §4.3: the pickup has a 16px radius, the player has its full hitbox.
func pickupOverlapsPlayer(pickup *WeaponPickup, p *PlayerState) bool {
	return aabbOverlap(
		pickup.X-pickupRadius, pickup.Y-pickupRadius, pickupRadius*2, pickupRadius*2,
		p.X, p.Y, PlayerWidth, PlayerHeight,
	)
}
