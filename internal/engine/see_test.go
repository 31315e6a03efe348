package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marlinchess/marlin/internal/board"
)

func seeOf(t *testing.T, fen, moveStr string) int {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)
	m, err := board.ParseMove(moveStr, pos)
	require.NoError(t, err)
	return SEE(pos, m)
}

func TestSEESimpleWin(t *testing.T) {
	// Rook takes an undefended pawn.
	got := seeOf(t, "4k3/8/8/3p4/8/8/8/3RK3 w - - 0 1", "d1d5")
	assert.Equal(t, board.SeeValue[board.Pawn], got)
}

func TestSEEDefendedPawn(t *testing.T) {
	// Rook takes a pawn defended by a pawn: wins 100, loses the rook.
	got := seeOf(t, "4k3/4p3/3p4/8/8/8/8/3RK3 w - - 0 1", "d1d6")
	assert.Equal(t, board.SeeValue[board.Pawn]-board.SeeValue[board.Rook], got)
}

func TestSEEEqualTrade(t *testing.T) {
	// Knight takes knight, recaptured: a clean swap.
	got := seeOf(t, "4k3/8/2p5/3n4/8/4N3/8/4K3 w - - 0 1", "e3d5")
	assert.Equal(t, 0, got)
}

func TestSEEXray(t *testing.T) {
	// Doubled rooks against a defended pawn: the x-ray recapture
	// makes the exchange non-losing.
	got := seeOf(t, "4k3/4r3/8/8/8/4p3/4R3/4R1K1 w - - 0 1", "e2e3")
	assert.GreaterOrEqual(t, got, 0)
}

func TestSEELosingCapture(t *testing.T) {
	// Queen grabs a rook-defended pawn.
	got := seeOf(t, "3rk3/3p4/8/8/8/8/3Q4/4K3 w - - 0 1", "d2d7")
	assert.Less(t, got, 0)
}

func TestSEEStableUnderNoAttackers(t *testing.T) {
	// With no recapture available the gain is exactly the victim.
	got := seeOf(t, "4k3/8/8/8/8/8/3q4/3RK3 w - - 0 1", "d1d2")
	assert.Equal(t, board.SeeValue[board.Queen], got)
}
