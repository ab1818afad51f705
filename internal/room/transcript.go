package room

import "fightcore/internal/sim"

// maskTaunt implements spec.md §9's Taunt-bit discipline: the cosmetic
// Taunt button is stripped before an input is recorded into the
// transcript, so proof replay is stable across client versions that vary
// only on cosmetic input.
func maskTaunt(in sim.Input) sim.Input {
	return sim.Input{Buttons: in.Buttons.MaskTaunt(), AimX: in.AimX, AimY: in.AimY}
}
