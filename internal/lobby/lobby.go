// Package lobby coordinates many concurrent *room.Room instances:
// matchmaking (create/quickplay/join_room/join_code/list_rooms), map
// rotation selection, and per-room goroutine supervision. Grounded on the
// teacher's WebSocketHub register/unregister pattern, generalized from
// "client connections" to "rooms" (spec.md's §4.6 "Added: Lobby /
// matchmaker" in SPEC_FULL.md).
package lobby

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"fightcore/internal/protocol"
	"fightcore/internal/room"
	"fightcore/internal/sim"
)

// Entry tracks one live or waiting room alongside its supervising
// goroutine's cancellation.
type Entry struct {
	Room     *room.Room
	Cancel   context.CancelFunc
	JoinCode string
	Name     string
	Mode     string
	Players  int
}

// Lobby owns the set of live rooms and hands out matches.
type Lobby struct {
	mu    sync.Mutex
	rooms map[string]*Entry

	maps       []sim.GameMap
	matchCfg   sim.MatchConfig
	group      *errgroup.Group
	groupCtx   context.Context
	maxRooms   int
	quickplay  *Entry // room currently waiting for a second player, if any

	onTick func(time.Duration)
}

// SetTickObserver installs a callback invoked after every sim.Step across
// every room this lobby creates from this point on, so internal/api can
// record per-tick metrics without an import cycle back into internal/room.
func (l *Lobby) SetTickObserver(f func(time.Duration)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onTick = f
}

// New constructs a Lobby bound to ctx: all supervised room goroutines are
// children of ctx and are cancelled together on shutdown.
func New(ctx context.Context, maps []sim.GameMap, matchCfg sim.MatchConfig, maxRooms int) *Lobby {
	g, gctx := errgroup.WithContext(ctx)
	return &Lobby{
		rooms:    make(map[string]*Entry),
		maps:     maps,
		matchCfg: matchCfg,
		group:    g,
		groupCtx: gctx,
		maxRooms: maxRooms,
	}
}

// ListRooms returns a snapshot suitable for protocol.Lobby.
func (l *Lobby) ListRooms() []protocol.RoomSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]protocol.RoomSummary, 0, len(l.rooms))
	for id, e := range l.rooms {
		out = append(out, protocol.RoomSummary{
			ID: id, Name: e.Name, Players: e.Players, Mode: e.Mode,
		})
	}
	return out
}

// Create makes a new, empty room and returns its entry, which carries the
// room and its join code. Every room gets a join code. A private room
// differs from a public one only in having no display Name: it is still
// listed by ListRooms and can still be joined by id through JoinRoom.
func (l *Lobby) Create(mode string, private bool) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.rooms) >= l.maxRooms {
		return nil, errors.New("room capacity reached")
	}

	id := uuid.NewString()
	code := shortCode(id)
	entry := l.newEntryLocked(id, code, mode)
	if !private {
		entry.Name = fmt.Sprintf("room-%s", code)
	}
	l.rooms[id] = entry
	return entry, nil
}

// Quickplay pairs the caller with a waiting quickplay room if one exists,
// otherwise creates one and waits for a second player.
func (l *Lobby) Quickplay(mode string) (*Entry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.quickplay != nil && l.quickplay.Mode == mode {
		e := l.quickplay
		l.quickplay = nil
		return e, true, nil
	}

	if len(l.rooms) >= l.maxRooms {
		return nil, false, errors.New("room capacity reached")
	}

	id := uuid.NewString()
	entry := l.newEntryLocked(id, "", mode)
	entry.Name = "quickplay"
	l.rooms[id] = entry
	l.quickplay = entry
	return entry, false, nil
}

// JoinRoom looks up a room by id; private rooms are not excluded.
func (l *Lobby) JoinRoom(id string) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.rooms[id]
	if !ok {
		return nil, errors.Errorf("room %s not found", id)
	}
	return e, nil
}

// JoinCode looks up a room (private or public) by its join code.
func (l *Lobby) JoinCode(code string) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.rooms {
		if e.JoinCode == code {
			return e, nil
		}
	}
	return nil, errors.Errorf("join code %s not found", code)
}

// StartMatch launches a room's supervised goroutine once both players are
// attached, running StartRound then the tick loop until the match ends.
func (l *Lobby) StartMatch(e *Entry) {
	ctx, cancel := context.WithCancel(l.groupCtx)
	e.Cancel = cancel
	l.group.Go(func() error {
		defer l.remove(e)
		defer func() {
			// A panicking room is logged and dropped; returning an error here
			// would cancel the group context and with it every other room.
			if rec := recover(); rec != nil {
				log.Printf("lobby: room %s panicked: %v", e.Room.ID(), rec)
			}
		}()
		e.Room.StartRound()
		e.Room.Run(ctx)
		return nil
	})
}

// Wait blocks until every supervised room goroutine has returned (used by
// graceful shutdown).
func (l *Lobby) Wait() error {
	return l.group.Wait()
}

func (l *Lobby) remove(e *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, cur := range l.rooms {
		if cur == e {
			delete(l.rooms, id)
			return
		}
	}
}

func (l *Lobby) newEntryLocked(id, code, mode string) *Entry {
	mapOrder, _ := sim.ShuffleIndices(len(l.maps), seedFromID(id))
	cfg := room.Config{
		RoomID:   id,
		Maps:     l.maps,
		MapOrder: mapOrder,
		Mode:     mode,
		Match:    l.matchCfg,
		OnTick:   l.onTick,
	}
	return &Entry{
		Room:     room.New(cfg, seedFromID(id)),
		JoinCode: code,
		Mode:     mode,
	}
}

func shortCode(id string) string {
	if len(id) < 6 {
		return id
	}
	return id[:6]
}

// seedFromID derives a deterministic-looking but distinct match seed from
// a room id, so different rooms don't share a PRNG stream by accident.
func seedFromID(id string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(id); i++ {
		h ^= uint32(id[i])
		h *= 16777619
	}
	return h
}
