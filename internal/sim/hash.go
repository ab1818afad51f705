package sim

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"sort"
)

// Hash computes the canonical FNV-1a-32 digest of a GameState (spec
// §4.5). The feed order is contractual: tick, players sorted by id,
// projectiles sorted by id, rng_state, score entries sorted by player
// id, next_projectile_id, arena bounds, match_over, winner. Two states
// that differ only in fields not named here hash equal.
func Hash(s *GameState) uint32 {
	h := fnv.New32a()
	var buf [8]byte

	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		h.Write(buf[:])
	}
	writeFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	writeBool := func(v bool) {
		if v {
			buf[0] = 1
		} else {
			buf[0] = 0
		}
		h.Write(buf[:1])
	}

	writeInt(s.Tick)

	players := append([]PlayerState(nil), s.Players...)
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	for _, p := range players {
		writeInt(p.ID)
		writeFloat(p.X)
		writeFloat(p.Y)
		writeFloat(p.VX)
		writeFloat(p.VY)
		writeInt(p.Facing)
		writeInt(p.Health)
		writeInt(p.ShootCooldown)
		writeBool(p.Grounded)
		writeInt(int(p.StateFlags))
		writeInt(p.RespawnTimer)
		writeInt(p.Lives)
	}

	projs := append([]Projectile(nil), s.Projectiles...)
	sort.Slice(projs, func(i, j int) bool { return projs[i].ID < projs[j].ID })
	for _, pr := range projs {
		writeInt(pr.ID)
		writeFloat(pr.X)
		writeFloat(pr.Y)
		writeFloat(pr.VX)
		writeFloat(pr.VY)
		writeInt(pr.Lifetime)
		writeInt(int(pr.Weapon))
	}

	writeInt(int(s.RNGState))

	score := append([]ScoreEntry(nil), s.Score...)
	sort.Slice(score, func(i, j int) bool { return score[i].PlayerID < score[j].PlayerID })
	for _, sc := range score {
		writeInt(sc.PlayerID)
		writeInt(sc.Kills)
	}

	writeInt(s.NextProjectileID)
	writeFloat(s.ArenaLeft)
	writeFloat(s.ArenaRight)
	writeBool(s.MatchOver)
	writeInt(s.Winner)

	return h.Sum32()
}
