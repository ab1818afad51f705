package sim

import "testing"

func TestResolveInputsMissingFallsBackToPrevious(t *testing.T) {
	players := []PlayerState{{ID: 0}, {ID: 1}}
	prev := map[int]Input{0: {Buttons: ButtonRight}}
	cur := map[int]Input{1: {Buttons: ButtonLeft}}
	out := resolveInputs(players, cur, prev)
	if out[0].Buttons != ButtonRight {
		t.Fatalf("expected player 0 to fall back to previous input, got %v", out[0])
	}
	if out[1].Buttons != ButtonLeft {
		t.Fatalf("expected player 1 to use its current input, got %v", out[1])
	}
}

func TestResolveInputsBothMissingIsNull(t *testing.T) {
	players := []PlayerState{{ID: 0}}
	out := resolveInputs(players, map[int]Input{}, map[int]Input{})
	if out[0] != (Input{}) {
		t.Fatalf("expected null input when both current and previous are absent, got %v", out[0])
	}
}

func TestJumpIsEdgeTriggeredNotLevel(t *testing.T) {
	p := PlayerState{StateFlags: FlagAlive, Grounded: true, JumpsLeft: MaxJumps}
	held := Input{Buttons: ButtonJump}
	ApplyPlayerInput(&p, held, held) // already held last tick: no edge
	if p.VY == JumpVelocity {
		t.Fatalf("held jump button triggered a jump on a non-edge tick")
	}
	p2 := PlayerState{StateFlags: FlagAlive, Grounded: true, JumpsLeft: MaxJumps}
	ApplyPlayerInput(&p2, held, Input{}) // rising edge
	if p2.VY != JumpVelocity {
		t.Fatalf("rising edge of jump button did not trigger a jump, VY=%v", p2.VY)
	}
}

func TestOneWayPlatformLetsPlayerRiseThrough(t *testing.T) {
	m := GameMap{Width: 800, Height: 450, Platforms: []Platform{{X: 0, Y: 300, W: 800, H: 20}}}
	p := &PlayerState{StateFlags: FlagAlive, X: 100, Y: 310, VY: -5} // feet already below platform top moving up
	MoveAndCollide(p, &m, 0, 800, 0)
	if p.Grounded {
		t.Fatalf("player rising through a one-way platform from below was incorrectly grounded")
	}
}

func TestOneWayPlatformCatchesPlayerFallingOnto(t *testing.T) {
	m := GameMap{Width: 800, Height: 450, Platforms: []Platform{{X: 0, Y: 300, W: 800, H: 20}}}
	p := &PlayerState{StateFlags: FlagAlive, X: 100, Y: 300 - PlayerHeight - 1, VY: 5}
	MoveAndCollide(p, &m, 0, 800, 0)
	if !p.Grounded {
		t.Fatalf("player falling onto a one-way platform's top surface was not caught")
	}
	if p.Y != 300-PlayerHeight {
		t.Fatalf("player not snapped to platform top, Y=%v", p.Y)
	}
}

func TestArenaBoundaryClampsPosition(t *testing.T) {
	m := GameMap{Width: 800, Height: 450}
	p := &PlayerState{StateFlags: FlagAlive, X: -50, VX: -10}
	MoveAndCollide(p, &m, 0, 800, 0)
	if p.X != 0 {
		t.Fatalf("player position not clamped to arena left edge, X=%v", p.X)
	}
	if p.VX != 0 {
		t.Fatalf("horizontal velocity not zeroed at arena wall, VX=%v", p.VX)
	}
}

func TestMatchOverStateIsIdempotent(t *testing.T) {
	cfg := DefaultMatchConfig(1, testMap())
	s := NewInitialState(&cfg)
	s.MatchOver = true
	s.Winner = 0
	next := Step(s, map[int]Input{}, map[int]Input{}, &cfg)
	if next.Tick != s.Tick || next.Winner != s.Winner || !next.MatchOver {
		t.Fatalf("Step mutated a terminal MatchOver state: %+v -> %+v", s, next)
	}
}

func TestLivesNeverIncrease(t *testing.T) {
	cfg := DefaultMatchConfig(7, testMap())
	cfg.InitialLives = 3
	s := NewInitialState(&cfg)
	last := make([]int, len(s.Players))
	for i, p := range s.Players {
		last[i] = p.Lives
	}
	in := map[int]Input{0: {Buttons: ButtonShoot, AimX: 1}, 1: {Buttons: ButtonShoot, AimX: -1}}
	for tick := 0; tick < 500 && !s.MatchOver; tick++ {
		s = Step(s, in, in, &cfg)
		for i, p := range s.Players {
			if p.Lives > last[i] {
				t.Fatalf("player %d lives increased from %d to %d at tick %d", p.ID, last[i], p.Lives, s.Tick)
			}
			last[i] = p.Lives
		}
	}
}

func TestDeathLingerWindowPrecedesMatchOver(t *testing.T) {
	cfg := DefaultMatchConfig(3, testMap())
	s := NewInitialState(&cfg)
	s.Players[1].Health = 0
	s.Players[1].setAlive(false)
	s.DeathLingerTimer = 0
	applyElimination(&s, []killEvent{{killerID: 0, victimID: 1}})
	if s.MatchOver {
		t.Fatalf("match ended immediately instead of entering the death-linger window")
	}
	if s.DeathLingerTimer != DeathLingerTicks {
		t.Fatalf("expected death-linger timer to start at %d, got %d", DeathLingerTicks, s.DeathLingerTimer)
	}
	cfg2 := cfg
	for i := 0; i < DeathLingerTicks; i++ {
		s = Step(s, map[int]Input{}, map[int]Input{}, &cfg2)
	}
	if !s.MatchOver {
		t.Fatalf("match did not end after the death-linger window elapsed")
	}
	if s.Winner != 0 {
		t.Fatalf("expected surviving player 0 to win, got winner %d", s.Winner)
	}
}

func TestWeaponPickupEquipsOnOverlap(t *testing.T) {
	cfg := DefaultMatchConfig(1, testMap())
	s := NewInitialState(&cfg)
	s.WeaponPickup = []WeaponPickup{{ID: 0, X: s.Players[0].X, Y: s.Players[0].Y, Weapon: WeaponShotgun}}
	resolvePickupEquips(&s)
	if s.Players[0].Weapon != WeaponShotgun {
		t.Fatalf("player standing on a pickup did not equip it")
	}
	if s.Players[0].Ammo != GetWeaponStats(WeaponShotgun).Ammo {
		t.Fatalf("equipped weapon did not grant full ammo")
	}
	if s.WeaponPickup[0].RespawnTimer != WeaponPickupRespawnTicks {
		t.Fatalf("picked-up weapon did not start its respawn timer")
	}
}

func TestRocketSplashDamagesNearbyPlayers(t *testing.T) {
	cfg := DefaultMatchConfig(1, testMap())
	s := NewInitialState(&cfg)
	s.Players[1].X = s.Players[0].X + 10
	s.Players[1].Y = s.Players[0].Y
	startHealth := s.Players[1].Health
	applySplash(&s, s.Players[0].X+PlayerWidth/2, s.Players[0].Y+PlayerHeight/2, s.Players[0].ID)
	if s.Players[1].Health >= startHealth {
		t.Fatalf("nearby player took no splash damage from a rocket detonation")
	}
}

func TestKillOnlyDecrementsLifeOnceAcrossRespawnWindow(t *testing.T) {
	cfg := DefaultMatchConfig(9, testMap())
	cfg.InitialLives = 2
	s := NewInitialState(&cfg)
	s.Players[1].X = s.Players[0].X
	s.Players[1].Y = s.Players[0].Y
	s.Players[1].Health = GetWeaponStats(WeaponSniper).Damage // one hit away from death
	s.Projectiles = []Projectile{{
		ID: 1, OwnerID: 0, X: s.Players[1].X, Y: s.Players[1].Y, Weapon: WeaponSniper, Lifetime: 5,
	}}

	null := map[int]Input{}
	s = Step(s, null, null, &cfg)
	if s.Players[1].Health != 0 {
		t.Fatalf("expected victim health to hit 0 on the killing tick, got %d", s.Players[1].Health)
	}
	if s.Players[1].Alive() {
		t.Fatalf("expected victim to be dead on the killing tick")
	}
	if s.Players[1].Lives != 1 {
		t.Fatalf("expected exactly one life lost on the killing tick, got %d", s.Players[1].Lives)
	}
	if s.MatchOver {
		t.Fatalf("match ended after a single life lost with InitialLives=2")
	}

	// Step through the rest of the respawn window; lives must not drop
	// again while the player waits to respawn. The killing tick already
	// consumed the first respawn-timer increment, so only RespawnTicks-2
	// further ticks remain before the one that triggers the respawn.
	for i := 0; i < RespawnTicks-2; i++ {
		s = Step(s, null, null, &cfg)
		if s.Players[1].Lives != 1 {
			t.Fatalf("life count changed while waiting to respawn at tick %d: %d", s.Tick, s.Players[1].Lives)
		}
		if s.Players[1].Alive() {
			t.Fatalf("player respawned early at tick %d", s.Tick)
		}
	}

	s = Step(s, null, null, &cfg)
	if !s.Players[1].Alive() {
		t.Fatalf("player did not respawn after the full respawn window elapsed")
	}
	if s.Players[1].Lives != 1 {
		t.Fatalf("respawn changed life count, got %d", s.Players[1].Lives)
	}
	if !s.Players[1].Invincible() {
		t.Fatalf("respawned player did not receive the invincibility grant")
	}
	if s.Players[1].Health != 100 {
		t.Fatalf("respawned player did not reset to full health, got %d", s.Players[1].Health)
	}
}

func TestSuddenDeathShrinksArenaOverTime(t *testing.T) {
	cfg := DefaultMatchConfig(1, testMap())
	s := NewInitialState(&cfg)
	s.Tick = cfg.SuddenDeathStartTick
	applySuddenDeath(&s, &cfg)
	leftAtStart := s.ArenaLeft
	s.Tick = cfg.SuddenDeathStartTick + (cfg.MatchDurationTicks-cfg.SuddenDeathStartTick)/2
	applySuddenDeath(&s, &cfg)
	if s.ArenaLeft <= leftAtStart {
		t.Fatalf("arena did not shrink further as sudden death progressed: %v -> %v", leftAtStart, s.ArenaLeft)
	}
}
