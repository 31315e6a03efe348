package engine

import (
	"github.com/marlinchess/marlin/internal/board"
)

// Bound classifies a stored search result.
type Bound uint8

const (
	BoundExact Bound = iota // score is exact
	BoundLower              // search failed high, score is a lower bound
	BoundUpper              // search failed low, score is an upper bound
)

// TTEntry is one transposition table slot. The upper hash bits verify
// the match; a torn concurrent write fails that check or yields a
// move the picker rejects as not pseudo-legal.
type TTEntry struct {
	Key      uint32
	BestMove board.Move
	Score    int16
	Depth    int8
	Bound    Bound
	Age      uint8
}

// ttBucket pairs a depth-preferred slot with an always-replace slot.
type ttBucket [2]TTEntry

// TranspositionTable is the shared search cache. It is read and
// written from all workers without locks; the per-entry key check
// makes the benign races safe.
type TranspositionTable struct {
	buckets []ttBucket
	mask    uint64
	age     uint8
}

// NewTranspositionTable creates a table of the given size in MB,
// rounded down to a power-of-two bucket count.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	tt := &TranspositionTable{}
	tt.resize(sizeMB)
	return tt
}

func (tt *TranspositionTable) resize(sizeMB int) {
	const bucketSize = 24
	numBuckets := uint64(sizeMB) * 1024 * 1024 / bucketSize

	size := uint64(1)
	for size*2 <= numBuckets {
		size *= 2
	}
	tt.buckets = make([]ttBucket, size)
	tt.mask = size - 1
	tt.age = 0
}

// Resize reallocates the table. The previous contents are dropped.
func (tt *TranspositionTable) Resize(sizeMB int) {
	tt.resize(sizeMB)
}

// Probe returns the entry matching the hash from either slot.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	bucket := &tt.buckets[hash&tt.mask]
	key := uint32(hash >> 32)

	// Key 0 marks an empty slot; the one-in-four-billion hash whose
	// upper half is zero just never caches.
	for i := 0; i < 2; i++ {
		entry := bucket[i]
		if entry.Key == key && entry.Key != 0 {
			return entry, true
		}
	}
	return TTEntry{}, false
}

// Store writes a result. The first slot is depth-preferred: it is
// replaced when it matches the hash, is empty, is shallower than the
// new entry, or has aged out relative to its depth advantage. The
// second slot always replaces.
func (tt *TranspositionTable) Store(hash uint64, depth, score int, bound Bound, bestMove board.Move) {
	bucket := &tt.buckets[hash&tt.mask]
	key := uint32(hash >> 32)

	entry := TTEntry{
		Key:      key,
		BestMove: bestMove,
		Score:    int16(score),
		Depth:    int8(depth),
		Bound:    bound,
		Age:      tt.age,
	}

	first := &bucket[0]
	stale := int(tt.age-first.Age) > 2*(int(first.Depth)-depth)
	if first.Key == key || first.Key == 0 || int(first.Depth) <= depth || stale {
		*first = entry
		return
	}
	bucket[1] = entry
}

// NewSearch advances the replacement age.
func (tt *TranspositionTable) NewSearch() {
	tt.age++
}

// Clear empties the table.
func (tt *TranspositionTable) Clear() {
	for i := range tt.buckets {
		tt.buckets[i] = ttBucket{}
	}
	tt.age = 0
}

// HashFull estimates the permille of the table holding entries from
// the current search.
func (tt *TranspositionTable) HashFull() int {
	sample := 1000
	if uint64(sample) > uint64(len(tt.buckets)) {
		sample = len(tt.buckets)
	}
	used := 0
	for i := 0; i < sample; i++ {
		if tt.buckets[i][0].Key != 0 && tt.buckets[i][0].Age == tt.age {
			used++
		}
	}
	if sample == 0 {
		return 0
	}
	return used * 1000 / sample
}

// ScoreToTT converts a search score for storage: mate scores become
// distance-from-here so they stay meaningful at other plies.
func ScoreToTT(score, ply int) int {
	if score >= MinMate {
		return score + ply
	}
	if score <= -MinMate {
		return score - ply
	}
	return score
}

// ScoreFromTT inverts ScoreToTT at the probing ply.
func ScoreFromTT(score, ply int) int {
	if score >= MinMate {
		return score - ply
	}
	if score <= -MinMate {
		return score + ply
	}
	return score
}
