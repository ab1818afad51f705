package sim

// Stomp is the optional feature described in spec §9: present in one
// source variant, absent in another. It is gated by MatchConfig.StompEnabled
// and, when enabled, its sub-step runs exactly between collide and
// weapon-pickup (spec §4.4 step 7). When disabled Step calls nothing in
// this file and PlayerState.Stomp never leaves its zero value — except
// that "no rider"/"no victim" is represented as -1,
// so newly constructed players must set StompedBy/StompingOn to -1
// rather than leaving them at the int zero value of 0 (see
// newPlayerState in step.go).

const (
	stompHeadBand        = 16.0
	stompDamageInterval   = 15
	stompDamagePerTick    = 2
	stompAutoRunDuration  = 30
	stompShakeIncrement   = 0.2
	stompShakeDecay       = 0.03
	stompShakeThreshold   = 1.0
	stompImmunityWindow   = 90
	stompLaunchVY         = -10.0
	stompEjectVY          = -6.0
)

// resolveStomps implements spec §4.4 step 7 in full when enabled.
func resolveStomps(s *GameState, m *GameMap) {
	detectNewStomps(s)
	processActiveStomps(s, m)
}

func detectNewStomps(s *GameState) {
	for i := range s.Players {
		faller := &s.Players[i]
		if !faller.Alive() || faller.Stomp.StompingOn != -1 || faller.VY <= 0 {
			continue
		}
		for j := range s.Players {
			if i == j {
				continue
			}
			victim := &s.Players[j]
			if !victim.Alive() || victim.Invincible() || victim.Stomp.ImmunityTicks > 0 {
				continue
			}
			if victim.Stomp.StompedBy != -1 {
				continue // already ridden
			}
			feetAfter := faller.Y + PlayerHeight + faller.VY
			headTop := victim.Y
			headBottom := victim.Y + stompHeadBand
			if feetAfter < headTop || feetAfter > headBottom {
				continue
			}
			overlapX := faller.X < victim.X+PlayerWidth && faller.X+PlayerWidth > victim.X
			if !overlapX {
				continue
			}

			faller.Stomp.StompingOn = victim.ID
			victim.Stomp.StompedBy = faller.ID
			faller.VX, faller.VY = 0, 0
			victim.Stomp.AutoRunTimer = 0
			victim.Stomp.ShakeProgress = 0
			break
		}
	}
}

func processActiveStomps(s *GameState, m *GameMap) {
	for i := range s.Players {
		rider := &s.Players[i]
		if rider.Stomp.StompingOn == -1 {
			continue
		}
		victim := s.player(rider.Stomp.StompingOn)
		if victim == nil || !victim.Alive() {
			rider.Stomp.StompingOn = -1
			continue
		}

		rider.X = victim.X
		rider.Y = victim.Y - PlayerHeight
		rider.VX, rider.VY = 0, 0

		if s.Tick%stompDamageInterval == 0 {
			victim.Health -= stompDamagePerTick
		}

		victim.Stomp.AutoRunTimer--
		if victim.Stomp.AutoRunTimer <= 0 {
			var r int
			r, s.RNGState = IntRange(s.RNGState, 0, 1)
			if r == 0 {
				victim.Stomp.AutoRunDir = -1
			} else {
				victim.Stomp.AutoRunDir = 1
			}
			victim.Stomp.AutoRunTimer = stompAutoRunDuration
		}

		if victim.VX != 0 {
			sign := 1
			if victim.VX < 0 {
				sign = -1
			}
			if sign != victim.Stomp.lastShakeDir() {
				victim.Stomp.ShakeProgress += stompShakeIncrement
				victim.Stomp.shakeDir = sign
			}
		}
		if victim.Stomp.ShakeProgress > 0 {
			victim.Stomp.ShakeProgress -= stompShakeDecay
			if victim.Stomp.ShakeProgress < 0 {
				victim.Stomp.ShakeProgress = 0
			}
		}

		if victim.Health <= 0 {
			rider.VY = stompEjectVY
			rider.Stomp.StompingOn = -1
			victim.Stomp.StompedBy = -1
			continue
		}

		if victim.Stomp.ShakeProgress >= stompShakeThreshold {
			rider.VY = stompLaunchVY
			rider.Stomp.StompingOn = -1
			victim.Stomp.StompedBy = -1
			victim.Stomp.ImmunityTicks = stompImmunityWindow
			victim.Stomp.ShakeProgress = 0
		}
	}
}

// scrubStompInput implements the input-scrubbing spec §4.4 step 4
// requires for stomp participants: riders keep only the Shoot button;
// stomped victims get a synthesized auto-run input instead of their own.
func scrubStompInput(p *PlayerState, resolved Input) Input {
	if p.Stomp.StompingOn != -1 {
		return Input{Buttons: resolved.Buttons & ButtonShoot, AimX: resolved.AimX, AimY: resolved.AimY}
	}
	if p.Stomp.StompedBy != -1 {
		b := Buttons(0)
		if p.Stomp.AutoRunDir < 0 {
			b = ButtonLeft
		} else if p.Stomp.AutoRunDir > 0 {
			b = ButtonRight
		}
		return Input{Buttons: b}
	}
	return resolved
}
