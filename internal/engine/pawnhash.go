package engine

import (
	"github.com/marlinchess/marlin/internal/board"
)

// PawnEntry caches a pawn-structure subscore keyed by the pawn hash.
type PawnEntry struct {
	Key   uint64
	Score board.Score
	Valid bool
}

// PawnTable is a direct-mapped, single-slot pawn hash table. Each
// worker owns one, so no synchronization is needed.
type PawnTable struct {
	entries []PawnEntry
	mask    uint64
}

// NewPawnTable creates a pawn hash table with the given size in MB.
func NewPawnTable(sizeMB int) *PawnTable {
	const entrySize = 24
	numEntries := sizeMB * 1024 * 1024 / entrySize

	size := 1
	for size*2 <= numEntries {
		size *= 2
	}
	return &PawnTable{
		entries: make([]PawnEntry, size),
		mask:    uint64(size - 1),
	}
}

// Probe returns the cached subscore for the key, if stored.
func (pt *PawnTable) Probe(key uint64) (board.Score, bool) {
	entry := &pt.entries[key&pt.mask]
	if entry.Valid && entry.Key == key {
		return entry.Score, true
	}
	return board.Score{}, false
}

// Store saves a subscore for the key, overwriting the slot.
func (pt *PawnTable) Store(key uint64, s board.Score) {
	entry := &pt.entries[key&pt.mask]
	entry.Key = key
	entry.Score = s
	entry.Valid = true
}

// Clear empties the table.
func (pt *PawnTable) Clear() {
	for i := range pt.entries {
		pt.entries[i] = PawnEntry{}
	}
}
