package prediction

import (
	"log"

	"fightcore/internal/sim"
)

// Prediction mirrors a GameState locally, stepping it ahead of the server
// on local inputs and rolling back to authoritative snapshots as they
// arrive (spec.md §4.7).
type Prediction struct {
	LocalID      int
	State        sim.GameState
	PredictedTick int
	Config       *sim.MatchConfig

	inputs      *InputBuffer
	lastButtons [2]sim.Buttons
}

// New constructs a Prediction mirroring initial at tick 0.
func New(localID int, initial sim.GameState, cfg *sim.MatchConfig) *Prediction {
	return &Prediction{
		LocalID:       localID,
		State:         initial,
		PredictedTick: initial.Tick,
		Config:        cfg,
		inputs:        NewInputBuffer(),
	}
}

// PredictTick advances the local mirror by one tick using localInput,
// with the remote player's input treated as NULL (spec.md §4.7
// predict_tick).
func (p *Prediction) PredictTick(localInput sim.Input) {
	p.PredictedTick++
	p.inputs.Put(p.PredictedTick, localInput)

	remoteID := 1 - p.LocalID
	inputs := map[int]sim.Input{p.LocalID: localInput, remoteID: {}}
	prevInputs := map[int]sim.Input{p.LocalID: p.lastLocalInput(), remoteID: {}}

	p.State = sim.Step(p.State, inputs, prevInputs, p.Config)
	p.lastButtons[p.LocalID] = localInput.Buttons
}

func (p *Prediction) lastLocalInput() sim.Input {
	if in, ok := p.inputs.Get(p.PredictedTick - 1); ok {
		return in
	}
	return sim.Input{}
}

// ApplyServerSnapshot reconciles the local mirror against an
// authoritative server state, per spec.md §4.7's three branches.
// serverLastButtons are the buttons the server actually applied on
// serverTick, used as prev_input for exact jump edge-detection during
// replay (spec.md §9 reconciliation corner case (a)).
func (p *Prediction) ApplyServerSnapshot(serverState sim.GameState, serverTick int, serverLastButtons [2]sim.Buttons) {
	if serverTick >= p.PredictedTick {
		p.State = serverState
		p.PredictedTick = serverTick
		p.inputs.PruneBelow(serverTick)
		p.lastButtons = serverLastButtons
		return
	}

	if p.PredictedTick-serverTick > sim.MaxReplay {
		log.Printf("prediction: replay gap %d exceeds MAX_REPLAY=%d, hard-snapping", p.PredictedTick-serverTick, sim.MaxReplay)
		p.State = serverState
		p.PredictedTick = serverTick
		p.inputs.PruneBelow(serverTick)
		p.lastButtons = serverLastButtons
		return
	}

	state := serverState
	remoteID := 1 - p.LocalID
	prevLocal := serverLastButtons[p.LocalID]
	for t := serverTick + 1; t <= p.PredictedTick; t++ {
		localInput, _ := p.inputs.Get(t)
		inputs := map[int]sim.Input{p.LocalID: localInput, remoteID: {}}
		prevInputs := map[int]sim.Input{p.LocalID: {Buttons: prevLocal}, remoteID: {}}
		state = sim.Step(state, inputs, prevInputs, p.Config)
		prevLocal = localInput.Buttons
	}
	p.State = state
	p.inputs.PruneBelow(serverTick)
}
