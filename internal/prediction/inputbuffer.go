// Package prediction is the client-side prediction/reconciliation layer
// (spec.md §4.7/§4.9): local-authoritative stepping ahead of the server,
// rollback-and-replay against authoritative snapshots, and remote-player
// interpolation. It is a pure library package — no networking — so any
// Go client binary or test harness can link against it directly. Shape
// grounded on other_examples' 952f767a_annel0-mmo-game PredictionService
// buffer-capping/eviction idiom; the rollback-and-replay algorithm itself
// is original to this port (that example's reconciliation is a stub).
package prediction

import "fightcore/internal/sim"

// InputBuffer is a tick-indexed ring of local inputs, capped at
// sim.MaxInputBuffer entries (spec.md §4.9).
type InputBuffer struct {
	entries map[int]sim.Input
	order   []int // insertion order, oldest first, for pruning
}

// NewInputBuffer returns an empty buffer.
func NewInputBuffer() *InputBuffer {
	return &InputBuffer{entries: make(map[int]sim.Input)}
}

// Put stores in at tick, evicting the oldest entry if the cap is
// exceeded.
func (b *InputBuffer) Put(tick int, in sim.Input) {
	if _, exists := b.entries[tick]; !exists {
		b.order = append(b.order, tick)
	}
	b.entries[tick] = in
	for len(b.entries) > sim.MaxInputBuffer {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.entries, oldest)
	}
}

// Get returns the stored input at tick, or the zero Input if absent.
func (b *InputBuffer) Get(tick int) (sim.Input, bool) {
	in, ok := b.entries[tick]
	return in, ok
}

// PruneBelow discards every entry for a tick < floor, keeping floor and
// later ticks.
func (b *InputBuffer) PruneBelow(floor int) {
	kept := b.order[:0]
	for _, t := range b.order {
		if t < floor {
			delete(b.entries, t)
			continue
		}
		kept = append(kept, t)
	}
	b.order = kept
}

// Len reports the number of buffered entries.
func (b *InputBuffer) Len() int { return len(b.entries) }
