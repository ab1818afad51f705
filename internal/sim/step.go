package sim

import "math"

// NewInitialState builds the tick-0 GameState for a fresh match (spec §3,
// §4.4's implicit initial-state constructor).
func NewInitialState(cfg *MatchConfig) GameState {
	s := GameState{
		Tick:             0,
		RNGState:         cfg.Seed,
		NextProjectileID: 1,
		ArenaLeft:        0,
		ArenaRight:       cfg.Map.Width,
		Winner:           -1,
	}
	for id := 0; id < cfg.PlayerCount; id++ {
		spawn := SpawnPoint{}
		if id < len(cfg.Map.SpawnPoints) {
			spawn = cfg.Map.SpawnPoints[id]
		}
		s.Players = append(s.Players, newPlayerState(id, cfg.InitialLives, spawn))
		s.Score = append(s.Score, ScoreEntry{PlayerID: id, Kills: 0})
	}
	for i, wsp := range cfg.Map.WeaponSpawnPoints {
		w := WeaponRotation[i%len(WeaponRotation)]
		s.WeaponPickup = append(s.WeaponPickup, WeaponPickup{ID: i, X: wsp.X, Y: wsp.Y, Weapon: w})
	}
	return s
}

func newPlayerState(id, lives int, spawn SpawnPoint) PlayerState {
	facing := 1
	if id%2 == 1 {
		facing = -1
	}
	return PlayerState{
		ID:         id,
		X:          spawn.X,
		Y:          spawn.Y,
		Facing:     facing,
		Health:     100,
		Lives:      lives,
		StateFlags: FlagAlive,
		JumpsLeft:  MaxJumps,
		Weapon:     WeaponNone,
		Stomp:      StompState{StompedBy: -1, StompingOn: -1},
	}
}

// Step is the single deterministic transition (spec §4.4). Sub-step order
// is contractual; reordering breaks replay equivalence.
func Step(prev GameState, inputs, prevInputs map[int]Input, cfg *MatchConfig) GameState {
	// 1. Terminal states.
	if prev.MatchOver {
		return prev
	}

	resolved := resolveInputs(prev.Players, inputs, prevInputs)

	if prev.DeathLingerTimer > 0 {
		next := prev.Clone()
		for i := range next.Players {
			p := &next.Players[i]
			if !p.Alive() {
				continue
			}
			in := resolved[p.ID]
			ApplyPlayerInput(p, in, prevInputOrNull(prevInputs, p.ID))
			ApplyGravity(p)
			MoveAndCollide(p, &cfg.Map, next.ArenaLeft, next.ArenaRight, in.Buttons)
		}
		moveProjectiles(&next, cfg)
		next.DeathLingerTimer--
		if next.DeathLingerTimer <= 0 {
			next.MatchOver = true
		}
		next.Tick++
		return next
	}

	next := prev.Clone()

	// 3. Tick timers.
	for i := range next.Players {
		p := &next.Players[i]
		if p.ShootCooldown > 0 {
			p.ShootCooldown--
		}
		if p.Invincible() {
			if p.RespawnTimer > 0 {
				p.RespawnTimer--
			}
			if p.RespawnTimer <= 0 {
				p.setInvincible(false)
			}
		}
		if p.Stomp.Cooldown > 0 {
			p.Stomp.Cooldown--
		}
		if p.Stomp.ImmunityTicks > 0 {
			p.Stomp.ImmunityTicks--
		}
	}

	// 4. Input -> motion, with stomp input-scrubbing.
	effective := make(map[int]Input, len(next.Players))
	for i := range next.Players {
		p := &next.Players[i]
		if !p.Alive() {
			continue
		}
		in := resolved[p.ID]
		if cfg.StompEnabled {
			in = scrubStompInput(p, in)
		}
		effective[p.ID] = in
		ApplyPlayerInput(p, in, prevInputOrNull(prevInputs, p.ID))
	}

	// 5. Gravity (non-rider alive players).
	for i := range next.Players {
		p := &next.Players[i]
		if !p.Alive() || (cfg.StompEnabled && p.Stomp.StompingOn != -1) {
			continue
		}
		ApplyGravity(p)
	}

	// 6. Collide (non-rider alive players).
	for i := range next.Players {
		p := &next.Players[i]
		if !p.Alive() || (cfg.StompEnabled && p.Stomp.StompingOn != -1) {
			continue
		}
		in := effective[p.ID]
		MoveAndCollide(p, &cfg.Map, next.ArenaLeft, next.ArenaRight, in.Buttons)
	}

	// 7. Stomp resolution (configurable feature, no-op if disabled).
	if cfg.StompEnabled {
		resolveStomps(&next, &cfg.Map)
	}

	// 8. Weapon pickups.
	resolvePickupEquips(&next)

	// 9. Shoot.
	resolveShooting(&next, effective)

	// 10. Projectile motion.
	moveKills := moveProjectiles(&next, cfg)

	// 11. Player hits.
	hitKills := resolvePlayerHits(&next, cfg)
	kills := append(moveKills, hitKills...)

	// 12. Lives & elimination.
	applyElimination(&next, kills)

	// 13. Respawn (only when not lingering/over).
	if next.DeathLingerTimer == 0 && !next.MatchOver {
		resolveRespawns(&next, cfg)
	}

	// 14. Sudden death.
	if next.Tick >= cfg.SuddenDeathStartTick {
		applySuddenDeath(&next, cfg)
	}

	// 15. Time-up.
	if next.Tick >= cfg.MatchDurationTicks && !next.MatchOver && next.DeathLingerTimer == 0 {
		next.MatchOver = true
		next.Winner = decideWinnerByLivesThenHealth(&next)
	}

	// 16. Score + pickup timers tick + tick advance.
	for _, k := range kills {
		next.addScore(k.killerID)
	}
	tickPickups(&next)
	next.Tick++

	return next
}

type killEvent struct {
	killerID int
	victimID int
}

// resolveInputs implements the missing-input rule of spec §4.4 step 2:
// input_t = inputs[id] ?? prev_inputs[id] ?? NULL.
func resolveInputs(players []PlayerState, inputs, prevInputs map[int]Input) map[int]Input {
	out := make(map[int]Input, len(players))
	for _, p := range players {
		if in, ok := inputs[p.ID]; ok {
			out[p.ID] = in
			continue
		}
		if in, ok := prevInputs[p.ID]; ok {
			out[p.ID] = in
			continue
		}
		out[p.ID] = Input{}
	}
	return out
}

func prevInputOrNull(prevInputs map[int]Input, id int) Input {
	if in, ok := prevInputs[id]; ok {
		return in
	}
	return Input{}
}

func resolvePickupEquips(s *GameState) {
	for pi := range s.WeaponPickup {
		pickup := &s.WeaponPickup[pi]
		if pickup.RespawnTimer > 0 {
			continue
		}
		for i := range s.Players {
			p := &s.Players[i]
			if !p.Alive() {
				continue
			}
			if pickupOverlapsPlayer(pickup, p) {
				stats := GetWeaponStats(pickup.Weapon)
				p.Weapon = pickup.Weapon
				p.Ammo = stats.Ammo
				p.ShootCooldown = 0
				pickup.RespawnTimer = WeaponPickupRespawnTicks
				break // at most one player picks up per pickup per tick
			}
		}
	}
}

func resolveShooting(s *GameState, effective map[int]Input) {
	for i := range s.Players {
		p := &s.Players[i]
		if !p.Alive() || p.Weapon == WeaponNone || p.Ammo <= 0 || p.ShootCooldown > 0 {
			continue
		}
		in := effective[p.ID]
		if in.Buttons&ButtonShoot == 0 {
			continue
		}
		stats := GetWeaponStats(p.Weapon)
		var spawned []Projectile
		spawned, s.RNGState = SpawnWeaponProjectiles(p, in.AimX, in.AimY, p.Weapon, s.NextProjectileID, s.RNGState)
		s.Projectiles = append(s.Projectiles, spawned...)
		s.NextProjectileID += len(spawned)
		p.ShootCooldown = stats.Cooldown
		p.Ammo--
		if p.Ammo <= 0 {
			p.Weapon = WeaponNone
		}
	}
}

func moveProjectiles(s *GameState, cfg *MatchConfig) []killEvent {
	var kills []killEvent
	kept := s.Projectiles[:0]
	for _, pr := range s.Projectiles {
		pr.X += pr.VX
		pr.Y += pr.VY
		pr.Lifetime--

		remove := false
		switch {
		case pr.Lifetime <= 0:
			remove = true
		case projectileOutOfBounds(&pr, &cfg.Map, s.ArenaLeft, s.ArenaRight):
			remove = true
		case projectileHitsPlatform(&pr, &cfg.Map):
			remove = true
		case projectileHitsWall(&pr, s.ArenaLeft, s.ArenaRight):
			remove = true
		}

		if remove {
			if pr.Weapon == WeaponRocket {
				kills = append(kills, applySplash(s, pr.X, pr.Y, pr.OwnerID)...)
			}
			continue
		}
		kept = append(kept, pr)
	}
	s.Projectiles = kept
	return kills
}

func resolvePlayerHits(s *GameState, cfg *MatchConfig) []killEvent {
	var kills []killEvent
	kept := s.Projectiles[:0]
	for _, pr := range s.Projectiles {
		consumed := false
		for i := range s.Players {
			p := &s.Players[i]
			if p.ID == pr.OwnerID || !p.Alive() || p.Invincible() {
				continue
			}
			if !projectileOverlapsPlayer(&pr, p) {
				continue
			}
			stats := GetWeaponStats(pr.Weapon)
			p.Health -= stats.Damage
			if p.Health <= 0 {
				p.Health = 0
				p.setAlive(false)
				kills = append(kills, killEvent{killerID: pr.OwnerID, victimID: p.ID})
			}
			if pr.Weapon == WeaponRocket {
				kills = append(kills, applySplash(s, pr.X, pr.Y, pr.OwnerID)...)
			}
			consumed = true
			break
		}
		if !consumed {
			kept = append(kept, pr)
		}
	}
	s.Projectiles = kept
	return kills
}

// applySplash deals rocket splash damage, returning any kills it caused.
// During death-linger (spec §9's minimal variant) projectiles still fly but
// deal no damage, so it's a no-op while s.DeathLingerTimer > 0.
func applySplash(s *GameState, cx, cy float64, ownerID int) []killEvent {
	if s.DeathLingerTimer > 0 {
		return nil
	}
	var kills []killEvent
	for i := range s.Players {
		p := &s.Players[i]
		if p.ID == ownerID || !p.Alive() || p.Invincible() {
			continue
		}
		dist := ManhattanDistance(cx, cy, p.X+PlayerWidth/2, p.Y+PlayerHeight/2)
		stats := GetWeaponStats(WeaponRocket)
		if dist >= stats.SplashRadius {
			continue
		}
		dmg := int(math.Round(float64(stats.SplashDamage) * (1 - dist/stats.SplashRadius)))
		p.Health -= dmg
		if p.Health <= 0 {
			p.Health = 0
			p.setAlive(false)
			kills = append(kills, killEvent{killerID: ownerID, victimID: p.ID})
		}
	}
	return kills
}

// applyElimination implements spec §4.4 step 12: each player newly killed
// this tick (by kills) loses a life if they have one; a sole survivor or
// full wipe starts the death-linger window. Only players named in kills are
// touched, so a player still waiting out their respawn timer from an
// earlier tick's death is never re-decremented.
func applyElimination(s *GameState, kills []killEvent) {
	for _, k := range kills {
		for i := range s.Players {
			p := &s.Players[i]
			if p.ID != k.victimID {
				continue
			}
			if p.Lives > 0 {
				p.Lives--
			}
			p.VX, p.VY = 0, 0
			break
		}
	}

	aliveWithLives := 0
	var soleSurvivor int
	for _, p := range s.Players {
		if p.Lives > 0 {
			aliveWithLives++
			soleSurvivor = p.ID
		}
	}
	if s.DeathLingerTimer > 0 || s.MatchOver {
		return
	}
	if aliveWithLives == 1 {
		s.DeathLingerTimer = DeathLingerTicks
		s.Winner = soleSurvivor
	} else if aliveWithLives == 0 {
		s.DeathLingerTimer = DeathLingerTicks
		s.Winner = 0
	}
}

func resolveRespawns(s *GameState, cfg *MatchConfig) {
	suddenDeath := s.Tick >= cfg.SuddenDeathStartTick
	for i := range s.Players {
		p := &s.Players[i]
		if p.Alive() || p.Lives <= 0 {
			continue
		}
		p.RespawnTimer++
		if p.RespawnTimer < RespawnTicks {
			continue
		}

		var spawnX, spawnY float64
		if suddenDeath {
			center := cfg.Map.Width / 2
			offset := 30.0
			if p.ID == 1 {
				offset = -30
			}
			spawnX = center + offset
			spawnY = cfg.Map.Height / 2
		} else if len(cfg.Map.SpawnPoints) > 0 {
			var idx int
			idx, s.RNGState = IntRange(s.RNGState, 0, len(cfg.Map.SpawnPoints)-1)
			spawnX = cfg.Map.SpawnPoints[idx].X
			spawnY = cfg.Map.SpawnPoints[idx].Y
		}

		p.X, p.Y = spawnX, spawnY
		p.VX, p.VY = 0, 0
		p.Health = 100
		p.setAlive(true)
		p.setInvincible(true)
		p.RespawnTimer = InvincibleTicks
		p.Weapon = WeaponNone
		p.Ammo = 0
		p.ShootCooldown = 0
		p.JumpsLeft = MaxJumps
		p.WallSliding = false
		p.WallDir = 0
		p.Stomp = StompState{StompedBy: -1, StompingOn: -1}
	}
}

func applySuddenDeath(s *GameState, cfg *MatchConfig) {
	span := float64(cfg.MatchDurationTicks - cfg.SuddenDeathStartTick)
	progress := 1.0
	if span > 0 {
		progress = float64(s.Tick-cfg.SuddenDeathStartTick) / span
	}
	if progress > 1 {
		progress = 1
	}
	s.ArenaLeft = progress * cfg.Map.Width / 2
	s.ArenaRight = cfg.Map.Width - progress*cfg.Map.Width/2

	var kills []killEvent
	for i := range s.Players {
		p := &s.Players[i]
		if !p.Alive() {
			continue
		}
		if p.X < s.ArenaLeft || p.X+PlayerWidth > s.ArenaRight {
			p.Health = 0
			p.setAlive(false)
			kills = append(kills, killEvent{killerID: -1, victimID: p.ID})
		}
	}
	if len(kills) > 0 {
		applyElimination(s, kills)
	}

	if progress >= 1 && !s.MatchOver {
		s.MatchOver = true
		s.Winner = decideWinnerByLivesThenHealth(s)
	}
}

func decideWinnerByLivesThenHealth(s *GameState) int {
	best := s.Players[0]
	for _, p := range s.Players[1:] {
		if p.Lives > best.Lives {
			best = p
		} else if p.Lives == best.Lives && p.Health > best.Health {
			best = p
		}
	}
	return best.ID
}

func tickPickups(s *GameState) {
	for i := range s.WeaponPickup {
		pu := &s.WeaponPickup[i]
		if pu.RespawnTimer <= 0 {
			continue
		}
		pu.RespawnTimer--
		if pu.RespawnTimer == 0 {
			idx := 0
			for wi, w := range WeaponRotation {
				if w == pu.Weapon {
					idx = wi
					break
				}
			}
			pu.Weapon = WeaponRotation[(idx+1)%len(WeaponRotation)]
		}
	}
}
