// Package protocol defines the JSON-over-WebSocket wire schema shared by
// room, lobby, and any client: message envelopes, the input button
// bitmask, and validation (spec.md §4.8).
package protocol

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"

	"fightcore/internal/sim"
)

// Envelope is the tagged-union wrapper every message is sent inside,
// generalizing the teacher's {"event":...,"data":...} convention to
// spec's {"type":...} naming.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client -> server message payloads.

type SetUsername struct {
	Name string `json:"name"`
}

type SetWallet struct {
	Address string `json:"address"`
}

type CreateRoom struct {
	IsPrivate bool   `json:"is_private"`
	Mode      string `json:"mode"`
	Character string `json:"character"`
}

type Quickplay struct {
	Mode      string `json:"mode"`
	Character string `json:"character"`
}

type JoinRoom struct {
	ID        string `json:"id"`
	Character string `json:"character"`
}

type JoinCode struct {
	Code      string `json:"code"`
	Character string `json:"character"`
}

// InputMessage is the per-tick client input message. Tick is a pointer so
// "absent" (untagged input, takes effect next tick) is distinguishable
// from the zero tick.
type InputMessage struct {
	Tick    *int    `json:"tick,omitempty"`
	Buttons int     `json:"buttons"`
	AimX    float64 `json:"aim_x"`
	AimY    float64 `json:"aim_y"`
}

// Validate enforces spec.md §4.8's server-side validator: buttons in
// [0,0x1F], finite aims.
func (m InputMessage) Validate() error {
	if m.Buttons < 0 || m.Buttons > int(sim.ButtonsMax) {
		return errors.Errorf("buttons %d out of range [0,%d]", m.Buttons, sim.ButtonsMax)
	}
	if math.IsNaN(m.AimX) || math.IsInf(m.AimX, 0) || math.IsNaN(m.AimY) || math.IsInf(m.AimY, 0) {
		return errors.New("aim_x/aim_y must be finite")
	}
	return nil
}

// ToSimInput converts a validated wire message to the sim package's
// internal Input representation.
func (m InputMessage) ToSimInput() sim.Input {
	return sim.Input{Buttons: sim.Buttons(m.Buttons), AimX: m.AimX, AimY: m.AimY}
}

// Server -> client message payloads.

type RoomSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinCode string `json:"join_code,omitempty"`
	Players  int    `json:"players"`
	Mode     string `json:"mode"`
}

type Lobby struct {
	Rooms []RoomSummary `json:"rooms"`
}

type Waiting struct {
	RoomID   string `json:"room_id"`
	Name     string `json:"name"`
	JoinCode string `json:"join_code"`
}

type Matched struct {
	PlayerID    int      `json:"player_id"`
	Seed        uint32   `json:"seed"`
	RoomID      string   `json:"room_id"`
	Usernames   []string `json:"usernames"`
	MapIndex    int      `json:"map_index"`
	TotalRounds int      `json:"total_rounds"`
	Mode        string   `json:"mode"`
	Characters  []string `json:"characters"`
}

// PlayerStateWire mirrors sim.PlayerState with explicit JSON field names
// (the sim package's Go-idiomatic field names aren't the wire contract).
type PlayerStateWire struct {
	ID            int     `json:"id"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	VX            float64 `json:"vx"`
	VY            float64 `json:"vy"`
	Facing        int     `json:"facing"`
	Health        int     `json:"health"`
	Lives         int     `json:"lives"`
	ShootCooldown int     `json:"shoot_cooldown"`
	Grounded      bool    `json:"grounded"`
	StateFlags    int     `json:"state_flags"`
	RespawnTimer  int     `json:"respawn_timer"`
	Weapon        int     `json:"weapon"`
	Ammo          int     `json:"ammo"`
	JumpsLeft     int     `json:"jumps_left"`
	WallSliding   bool    `json:"wall_sliding"`
	WallDir       int     `json:"wall_dir"`
}

type ProjectileWire struct {
	ID       int     `json:"id"`
	OwnerID  int      `json:"owner_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	VX       float64 `json:"vx"`
	VY       float64 `json:"vy"`
	Lifetime int     `json:"lifetime"`
	Weapon   int     `json:"weapon"`
}

type WeaponPickupWire struct {
	ID           int     `json:"id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Weapon       int     `json:"weapon"`
	RespawnTimer int     `json:"respawn_timer"`
}

type ScoreWire struct {
	PlayerID int `json:"player_id"`
	Kills    int `json:"kills"`
}

// State is the server's per-tick broadcast (spec.md §4.6).
type State struct {
	Tick             int                `json:"tick"`
	Players          []PlayerStateWire  `json:"players"`
	Projectiles      []ProjectileWire   `json:"projectiles"`
	WeaponPickups    []WeaponPickupWire `json:"weapon_pickups"`
	Scores           []ScoreWire        `json:"scores"`
	ArenaLeft        float64            `json:"arena_left"`
	ArenaRight       float64            `json:"arena_right"`
	MatchOver        bool               `json:"match_over"`
	Winner           int                `json:"winner"`
	DeathLingerTimer int                `json:"death_linger_timer"`
	RNGState         uint32             `json:"rng_state"`
	NextProjectileID int                `json:"next_projectile_id"`
	LastButtons      [2]int             `json:"last_buttons"`
}

// StateFromSim converts a sim.GameState plus the buttons actually applied
// this tick into the wire State message.
func StateFromSim(s *sim.GameState, lastButtons [2]sim.Buttons) State {
	out := State{
		Tick:             s.Tick,
		ArenaLeft:        s.ArenaLeft,
		ArenaRight:       s.ArenaRight,
		MatchOver:        s.MatchOver,
		Winner:           s.Winner,
		DeathLingerTimer: s.DeathLingerTimer,
		RNGState:         s.RNGState,
		NextProjectileID: s.NextProjectileID,
		LastButtons:      [2]int{int(lastButtons[0]), int(lastButtons[1])},
	}
	for _, p := range s.Players {
		out.Players = append(out.Players, PlayerStateWire{
			ID: p.ID, X: p.X, Y: p.Y, VX: p.VX, VY: p.VY, Facing: p.Facing,
			Health: p.Health, Lives: p.Lives, ShootCooldown: p.ShootCooldown,
			Grounded: p.Grounded, StateFlags: int(p.StateFlags), RespawnTimer: p.RespawnTimer,
			Weapon: int(p.Weapon), Ammo: p.Ammo, JumpsLeft: p.JumpsLeft,
			WallSliding: p.WallSliding, WallDir: p.WallDir,
		})
	}
	for _, pr := range s.Projectiles {
		out.Projectiles = append(out.Projectiles, ProjectileWire{
			ID: pr.ID, OwnerID: pr.OwnerID, X: pr.X, Y: pr.Y, VX: pr.VX, VY: pr.VY,
			Lifetime: pr.Lifetime, Weapon: int(pr.Weapon),
		})
	}
	for _, wp := range s.WeaponPickup {
		out.WeaponPickups = append(out.WeaponPickups, WeaponPickupWire{
			ID: wp.ID, X: wp.X, Y: wp.Y, Weapon: int(wp.Weapon), RespawnTimer: wp.RespawnTimer,
		})
	}
	for _, sc := range s.Score {
		out.Scores = append(out.Scores, ScoreWire{PlayerID: sc.PlayerID, Kills: sc.Kills})
	}
	return out
}

type RoundEnd struct {
	Round     int   `json:"round"`
	Winner    int   `json:"winner"`
	RoundWins [2]int `json:"round_wins"`
}

type RoundStart struct {
	Round    int    `json:"round"`
	Seed     uint32 `json:"seed"`
	MapIndex int    `json:"map_index"`
}

type Ended struct {
	Winner    int      `json:"winner"`
	Scores    [2]int   `json:"scores"`
	RoundWins [2]int   `json:"round_wins"`
	RoomID    string   `json:"room_id"`
	Mode      string   `json:"mode"`
}

type ErrorMsg struct {
	Message string `json:"message"`
}

// Encode wraps a typed payload in an Envelope and marshals it.
func Encode(msgType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s payload", msgType)
	}
	env := Envelope{Type: msgType, Data: data}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s envelope", msgType)
	}
	return out, nil
}
