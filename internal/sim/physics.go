package sim

import "math"

// ApplyPlayerInput implements spec §4.2 apply_player_input. It mutates p
// in place; callers operate on the live GameState.Players slice.
func ApplyPlayerInput(p *PlayerState, input, prevInput Input) {
	if !p.Alive() {
		return
	}

	targetVX := 0.0
	if input.Buttons&ButtonLeft != 0 {
		targetVX -= PlayerSpeed
	}
	if input.Buttons&ButtonRight != 0 {
		targetVX += PlayerSpeed
	}

	if targetVX != 0 {
		if p.VX < targetVX {
			p.VX = math.Min(p.VX+Acceleration, targetVX)
		} else if p.VX > targetVX {
			p.VX = math.Max(p.VX-Acceleration, targetVX)
		}
	} else {
		if p.VX > 0 {
			p.VX = math.Max(p.VX-Deceleration, 0)
		} else if p.VX < 0 {
			p.VX = math.Min(p.VX+Deceleration, 0)
		}
	}

	jumpEdge := input.Buttons&ButtonJump != 0 && prevInput.Buttons&ButtonJump == 0
	if jumpEdge {
		switch {
		case p.WallSliding && p.JumpsLeft > 0:
			p.VX = -float64(p.WallDir) * WallJumpVX
			p.VY = WallJumpVY
			p.JumpsLeft--
		case p.JumpsLeft > 0:
			p.VY = JumpVelocity
			p.JumpsLeft--
		}
	}

	if input.AimX != 0 {
		if input.AimX > 0 {
			p.Facing = 1
		} else {
			p.Facing = -1
		}
	}
}

// ApplyGravity implements spec §4.2 apply_gravity.
func ApplyGravity(p *PlayerState) {
	if !p.Alive() {
		return
	}
	vyCap := MaxFallSpeed
	if p.WallSliding {
		vyCap = WallSlideSpeed
	}
	p.VY = math.Min(p.VY+GravityAccel, vyCap)
}

// MoveAndCollide implements spec §4.2 move_and_collide.
func MoveAndCollide(p *PlayerState, m *GameMap, arenaLeft, arenaRight float64, buttons Buttons) {
	feetBefore := p.Y + PlayerHeight

	xPrime := p.X + p.VX
	yPrime := p.Y + p.VY

	feetAfter := yPrime + PlayerHeight
	p.Grounded = false

	for _, plat := range m.Platforms {
		top := plat.Top()
		if feetBefore > top {
			continue // rising through or already below: one-way, no collision
		}
		if feetBefore <= top && top <= feetAfter {
			left := xPrime
			right := xPrime + PlayerWidth
			if right >= plat.X && left <= plat.X+plat.W {
				yPrime = top - PlayerHeight
				p.VY = 0
				p.Grounded = true
			}
		}
	}

	if xPrime < arenaLeft {
		xPrime = arenaLeft
		p.VX = 0
	}
	if xPrime > arenaRight-PlayerWidth {
		xPrime = arenaRight - PlayerWidth
		p.VX = 0
	}
	if yPrime < 0 {
		yPrime = 0
		p.VY = 0
	}
	if yPrime > m.Height-PlayerHeight {
		yPrime = m.Height - PlayerHeight
		p.VY = 0
		p.Grounded = true
	}

	p.X = xPrime
	p.Y = yPrime

	p.WallSliding = false
	p.WallDir = 0
	if !p.Grounded && p.VY > 0 {
		if buttons&ButtonLeft != 0 && p.X <= arenaLeft {
			p.WallSliding = true
			p.WallDir = -1
		} else if buttons&ButtonRight != 0 && p.X >= arenaRight-PlayerWidth {
			p.WallSliding = true
			p.WallDir = 1
		}
	}

	if p.Grounded {
		p.JumpsLeft = MaxJumps
	} else if p.WallSliding && p.JumpsLeft == 0 {
		p.JumpsLeft = 1
	}
}

// aabbOverlap reports whether two axis-aligned boxes, given as top-left
// corner plus width/height, overlap.
func aabbOverlap(ax, ay, aw, ah, bx, by, bw, bh float64) bool {
	return ax < bx+bw && ax+aw > bx && ay < by+bh && ay+ah > by
}

// ManhattanDistance is used for splash falloff (spec §4.3).
func ManhattanDistance(ax, ay, bx, by float64) float64 {
	return math.Abs(ax-bx) + math.Abs(ay-by)
}
