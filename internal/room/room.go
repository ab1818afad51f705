// Package room implements the server-authoritative per-match object: a
// self-correcting 60Hz tick loop over internal/sim, tick-aligned input
// queueing, per-tick broadcast, and round/match orchestration (spec.md
// §4.6). Grounded on the teacher's engine.go Start/Stop/tick shape,
// generalized from a single global engine to one Room per match.
package room

import (
	"context"
	"log"
	"sync"
	"time"

	"fightcore/internal/protocol"
	"fightcore/internal/sim"
)

const (
	roundEndGraceTicks = 60
)

// Conn is the minimal send capability a transport must provide. The
// websocket hub in internal/api implements this; tests can use a fake.
type Conn interface {
	Send(msg []byte) error
}

// Config bundles the static parameters a Room is constructed with.
type Config struct {
	RoomID     string
	Maps       []sim.GameMap
	MapOrder   []int // Fisher-Yates-shuffled indices into Maps
	Usernames  [2]string
	Characters [2]string
	Wallets    [2]string // opaque passthrough; wallet integration itself is out of scope
	Mode       string
	Match      sim.MatchConfig // per-match defaults; Seed/Map are overwritten per round

	// OnTick, if set, is called after every sim.Step with its wall-clock
	// duration — an optional observability hook so internal/api can record
	// per-tick metrics without internal/room importing internal/api.
	OnTick func(time.Duration)
}

// Room owns one match between exactly two players (spec.md §3/§4.6).
type Room struct {
	mu sync.Mutex

	cfg  Config
	conn [2]Conn

	state sim.GameState

	rawInput    [2]sim.Input
	accInput    [2]sim.Input
	prevApplied [2]sim.Input

	inputQueue [2]map[int]sim.Input

	roundWins  [2]int
	roundIndex int
	mapCursor  int

	transcript [][2]sim.Input
	rounds     []RoundTranscript
	seed       uint32
	mapIndex   int

	countdownRemaining int
	graceRemaining     int
	roundOver          bool
	matchEnded         bool

	loopStart time.Time
	rngSeed   uint32
}

// New constructs a Room in the "waiting" state; call StartRound to begin
// the first countdown once both connections are attached.
func New(cfg Config, seed uint32) *Room {
	r := &Room{
		cfg:        cfg,
		inputQueue: [2]map[int]sim.Input{make(map[int]sim.Input), make(map[int]sim.Input)},
		rngSeed:    seed,
	}
	return r
}

// ID returns the room's identifier.
func (r *Room) ID() string { return r.cfg.RoomID }

// Attach registers the transport connection for a player slot.
func (r *Room) Attach(playerID int, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conn[playerID] = c
}

// AttachedCount reports how many of the two player slots have a live
// connection, used by the lobby to decide when a room is ready to start.
func (r *Room) AttachedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.conn {
		if c != nil {
			n++
		}
	}
	return n
}

// SetPlayerInfo records the per-player metadata (spec.md §3's
// MatchRecord fields) a player brings at seat time; wallet and character
// are opaque passthrough, never interpreted by the simulation.
func (r *Room) SetPlayerInfo(playerID int, username, character, wallet string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.Usernames[playerID] = username
	r.cfg.Characters[playerID] = character
	r.cfg.Wallets[playerID] = wallet
}

// StartRound begins a new round: picks the next map in rotation, builds a
// fresh initial state, resets the countdown, and clears per-round state.
func (r *Room) StartRound() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startRoundLocked()
}

func (r *Room) startRoundLocked() {
	if r.roundIndex > 0 {
		// A prior round just concluded; retain its transcript before
		// clearing it for the round about to start (spec.md §6: "for each
		// round, {seed, map_index, transcript}").
		r.rounds = append(r.rounds, RoundTranscript{
			Seed:     r.seed,
			MapIndex: r.mapIndex,
			Ticks:    r.transcript,
		})
	}

	r.mapIndex = r.cfg.MapOrder[r.mapCursor%len(r.cfg.MapOrder)]
	r.mapCursor++

	r.seed = r.rngSeed
	r.rngSeed = r.rngSeed*0x6D2B79F5 + 1 // advance independently of sim RNG so each round's seed differs

	cfg := r.cfg.Match
	cfg.Seed = r.seed
	cfg.Map = r.cfg.Maps[r.mapIndex]
	r.cfg.Match = cfg

	r.state = sim.NewInitialState(&cfg)
	r.rawInput = [2]sim.Input{}
	r.accInput = [2]sim.Input{}
	r.prevApplied = [2]sim.Input{}
	r.inputQueue = [2]map[int]sim.Input{make(map[int]sim.Input), make(map[int]sim.Input)}
	r.transcript = nil
	r.countdownRemaining = sim.CountdownTicks
	r.graceRemaining = 0
	r.roundOver = false
	r.loopStart = time.Now()

	r.broadcast(protocol.RoundStart{Round: r.roundIndex + 1, Seed: r.seed, MapIndex: r.mapIndex})
}

// HandleInput ingests one client input message (spec.md §4.6
// handle_input). Tick-tagged inputs within the alignment window are
// queued; everything else overwrites the live input immediately.
func (r *Room) HandleInput(playerID int, msg protocol.InputMessage) {
	if err := msg.Validate(); err != nil {
		return // protocol error: dropped silently per spec.md §7
	}
	in := msg.ToSimInput()

	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.Tick != nil {
		tick := *msg.Tick
		if tick > r.state.Tick && tick <= r.state.Tick+sim.MaxQueueWindow && len(r.inputQueue[playerID]) < sim.MaxQueuedInputs {
			r.inputQueue[playerID][tick] = in
			return
		}
	}
	r.rawInput[playerID] = in
	r.accInput[playerID] = in
}

// Run drives the self-correcting tick loop until ctx is cancelled or the
// match ends. Intended to be launched as its own goroutine per room.
func (r *Room) Run(ctx context.Context) {
	tickDt := time.Second / time.Duration(r.cfg.Match.TickRate)
	ticker := time.NewTicker(tickDt)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.mu.Lock()
			target := int(now.Sub(r.loopStart) / tickDt)
			caughtUp := 0
			for r.state.Tick < target && caughtUp < sim.MaxCatchUpTicks {
				done := r.runTickLocked()
				caughtUp++
				if done {
					r.mu.Unlock()
					return
				}
			}
			r.mu.Unlock()
		}
	}
}

// runTickLocked runs exactly one tick under r.mu and returns true if the
// match has fully concluded (Ended already broadcast).
func (r *Room) runTickLocked() bool {
	nextTick := r.state.Tick + 1
	for pid := 0; pid < 2; pid++ {
		if in, ok := r.inputQueue[pid][nextTick]; ok {
			r.accInput[pid] = in
		}
	}

	var inputs map[int]sim.Input
	if r.countdownRemaining > 0 {
		inputs = map[int]sim.Input{0: {}, 1: {}}
		r.countdownRemaining--
	} else {
		inputs = map[int]sim.Input{0: r.accInput[0], 1: r.accInput[1]}
	}
	prevInputs := map[int]sim.Input{0: r.prevApplied[0], 1: r.prevApplied[1]}

	wasOver := r.state.MatchOver
	stepStart := time.Now()
	next := sim.Step(r.state, inputs, prevInputs, &r.cfg.Match)
	if r.cfg.OnTick != nil {
		r.cfg.OnTick(time.Since(stepStart))
	}

	r.transcript = append(r.transcript, [2]sim.Input{
		maskTaunt(inputs[0]),
		maskTaunt(inputs[1]),
	})

	r.prevApplied[0], r.prevApplied[1] = inputs[0], inputs[1]
	r.state = next

	r.accInput[0], r.accInput[1] = r.rawInput[0], r.rawInput[1]
	for pid := 0; pid < 2; pid++ {
		for tick := range r.inputQueue[pid] {
			if tick <= nextTick {
				delete(r.inputQueue[pid], tick)
			}
		}
	}

	lastButtons := [2]sim.Buttons{inputs[0].Buttons, inputs[1].Buttons}
	r.broadcast(protocol.StateFromSim(&r.state, lastButtons))

	if !wasOver && r.state.MatchOver && !r.roundOver {
		r.roundOver = true
		r.graceRemaining = roundEndGraceTicks
		r.roundWins[r.state.Winner]++
		r.broadcast(protocol.RoundEnd{Round: r.roundIndex + 1, Winner: r.state.Winner, RoundWins: r.roundWins})
		return false
	}

	if r.roundOver {
		if r.graceRemaining > 0 {
			r.graceRemaining--
			return false
		}
		return r.concludeRoundLocked()
	}

	return false
}

// concludeRoundLocked decides whether to start the next round or end the
// match, once a round's grace window has elapsed.
func (r *Room) concludeRoundLocked() bool {
	r.roundIndex++
	if r.roundWins[0] >= sim.WinsNeeded || r.roundWins[1] >= sim.WinsNeeded {
		winner := 0
		if r.roundWins[1] > r.roundWins[0] {
			winner = 1
		}
		r.broadcast(protocol.Ended{
			Winner:    winner,
			Scores:    [2]int{scoreOf(&r.state, 0), scoreOf(&r.state, 1)},
			RoundWins: r.roundWins,
			RoomID:    r.cfg.RoomID,
			Mode:      r.cfg.Mode,
		})
		r.matchEnded = true

		record := r.matchRecordLocked()
		log.Printf("🏁 room %s match complete: winner=%d scores=%v rounds=%d",
			r.cfg.RoomID, record.Winner, record.Scores, len(record.Rounds))

		return true
	}

	r.startRoundLocked()
	return false
}

func scoreOf(s *sim.GameState, id int) int {
	for _, sc := range s.Score {
		if sc.PlayerID == id {
			return sc.Kills
		}
	}
	return 0
}

// broadcast serializes payload and sends it to both attached connections,
// logging (not failing) on a disconnected peer.
func (r *Room) broadcast(payload any) {
	msgType := wireType(payload)
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		log.Printf("room %s: encode %s: %v", r.cfg.RoomID, msgType, err)
		return
	}
	for pid, c := range r.conn {
		if c == nil {
			continue
		}
		if err := c.Send(data); err != nil {
			log.Printf("room %s: send to player %d: %v", r.cfg.RoomID, pid, err)
		}
	}
}

func wireType(payload any) string {
	switch payload.(type) {
	case protocol.State:
		return "state"
	case protocol.RoundStart:
		return "round_start"
	case protocol.RoundEnd:
		return "round_end"
	case protocol.Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// Transcript returns the recorded per-tick input pairs for the round in
// progress (or just concluded), Taunt-bit already stripped.
func (r *Room) Transcript() [][2]sim.Input {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][2]sim.Input, len(r.transcript))
	copy(out, r.transcript)
	return out
}

// MatchRecord returns the externalized record for a concluded match
// (spec.md §6 persisted-state collaborator boundary).
func (r *Room) MatchRecord() MatchRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matchRecordLocked()
}

// matchRecordLocked builds the record directly from fields already held
// under r.mu; it must never call a method (like Transcript) that tries to
// acquire r.mu itself, since sync.Mutex isn't reentrant.
func (r *Room) matchRecordLocked() MatchRecord {
	rounds := make([]RoundTranscript, len(r.rounds), len(r.rounds)+1)
	copy(rounds, r.rounds)
	ticks := make([][2]sim.Input, len(r.transcript))
	copy(ticks, r.transcript)
	rounds = append(rounds, RoundTranscript{Seed: r.seed, MapIndex: r.mapIndex, Ticks: ticks})

	return MatchRecord{
		Seed:            r.seed,
		Usernames:       r.cfg.Usernames,
		WalletAddresses: r.cfg.Wallets,
		Characters:      r.cfg.Characters,
		RoundWins:       r.roundWins,
		Scores:          [2]int{scoreOf(&r.state, 0), scoreOf(&r.state, 1)},
		Winner:          r.state.Winner,
		Mode:            r.cfg.Mode,
		Rounds:          rounds,
	}
}

// RoundTranscript is one round's replayable record (spec.md §6: "for each
// round, {seed, map_index, transcript}").
type RoundTranscript struct {
	Seed     uint32
	MapIndex int
	Ticks    [][2]sim.Input
}

// MatchRecord is the collaborator-facing summary spec.md §3/§6 name;
// persistence, ELO, and proving consume this but are out of scope here.
type MatchRecord struct {
	Seed            uint32
	Usernames       [2]string
	WalletAddresses [2]string
	Characters      [2]string
	RoundWins       [2]int
	Scores          [2]int
	Winner          int
	Mode            string
	Rounds          []RoundTranscript
}
