package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marlinchess/marlin/internal/board"
)

func TestTTStoreProbe(t *testing.T) {
	tt := NewTranspositionTable(1)

	hash := uint64(0xDEADBEEFCAFE1234)
	m := board.NewMove(board.E2, board.E4)

	tt.Store(hash, 8, 42, BoundExact, m)

	entry, ok := tt.Probe(hash)
	require.True(t, ok)
	assert.Equal(t, m, entry.BestMove)
	assert.Equal(t, int16(42), entry.Score)
	assert.Equal(t, int8(8), entry.Depth)
	assert.Equal(t, BoundExact, entry.Bound)

	_, ok = tt.Probe(hash ^ 0xFFFF000000000000)
	assert.False(t, ok, "different upper bits must miss")
}

func TestTTDepthPreferred(t *testing.T) {
	tt := NewTranspositionTable(1)

	// Two hashes landing in the same bucket: same low bits.
	base := uint64(0x1111111100000042)
	other := uint64(0x2222222200000042) & ^tt.mask
	other |= base & tt.mask

	tt.Store(base, 10, 100, BoundExact, board.NewMove(board.E2, board.E4))
	// A shallower entry for a colliding hash must not evict the deep
	// slot; it goes to the always-replace slot.
	tt.Store(other, 2, -50, BoundUpper, board.NewMove(board.D2, board.D4))

	entry, ok := tt.Probe(base)
	require.True(t, ok, "deep entry must survive the collision")
	assert.Equal(t, int8(10), entry.Depth)

	entry, ok = tt.Probe(other)
	require.True(t, ok, "shallow entry must land in the second slot")
	assert.Equal(t, int8(2), entry.Depth)
}

func TestTTAgedEntriesYield(t *testing.T) {
	tt := NewTranspositionTable(1)

	base := uint64(0x1111111100000042)
	other := uint64(0x2222222200000042) & ^tt.mask
	other |= base & tt.mask

	tt.Store(base, 10, 100, BoundExact, board.NoMove)

	// Many searches later the deep entry is stale and a shallow entry
	// takes the depth-preferred slot.
	for i := 0; i < 30; i++ {
		tt.NewSearch()
	}
	tt.Store(other, 2, -50, BoundUpper, board.NoMove)

	entry, ok := tt.Probe(other)
	require.True(t, ok)
	assert.Equal(t, int8(2), entry.Depth)
}

func TestTTMateScoreAdjustment(t *testing.T) {
	// A mate found at ply 5, scored MateScore-8 from there, is stored
	// distance-from-node and read back correctly at another ply.
	score := MateScore - 8
	stored := ScoreToTT(score, 5)
	assert.Equal(t, score, ScoreFromTT(stored, 5))

	readAtPly3 := ScoreFromTT(stored, 3)
	assert.Equal(t, MateScore-6, readAtPly3, "mate distance must rebase to the probing ply")

	score = -(MateScore - 8)
	stored = ScoreToTT(score, 5)
	assert.Equal(t, score, ScoreFromTT(stored, 5))

	// Normal scores pass through untouched.
	assert.Equal(t, 123, ScoreToTT(123, 40))
	assert.Equal(t, -321, ScoreFromTT(-321, 40))
}

func TestTTClear(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0xABCDEF9876543210)
	tt.Store(hash, 5, 7, BoundLower, board.NoMove)

	tt.Clear()
	_, ok := tt.Probe(hash)
	assert.False(t, ok)
}
