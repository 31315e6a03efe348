package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marlinchess/marlin/internal/board"
)

// drain pulls every move out of a picker.
func drain(mp *MovePicker) []board.Move {
	var moves []board.Move
	for m := mp.Next(); m != board.NoMove; m = mp.Next() {
		moves = append(moves, m)
	}
	return moves
}

func TestPickerCoversAllPseudoLegalMoves(t *testing.T) {
	pos, err := board.ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -")
	require.NoError(t, err)

	hist := NewHistoryTables()
	mp := NewMovePicker(pos, hist, 0, board.NoMove, board.NoMove)
	picked := drain(mp)

	expected := pos.GeneratePseudoLegalMoves()
	assert.Equal(t, expected.Len(), len(picked), "picker must emit every pseudo-legal move")

	seen := make(map[board.Move]bool)
	for _, m := range picked {
		assert.False(t, seen[m], "duplicate move %v", m)
		seen[m] = true
	}
	for i := 0; i < expected.Len(); i++ {
		assert.True(t, seen[expected.Get(i)], "missing move %v", expected.Get(i))
	}
}

func TestPickerTTMoveFirst(t *testing.T) {
	pos := board.NewPosition()
	hist := NewHistoryTables()

	ttMove := board.NewMove(board.E2, board.E4)
	mp := NewMovePicker(pos, hist, 0, ttMove, board.NoMove)
	assert.Equal(t, ttMove, mp.Next(), "the TT move comes first")

	picked := drain(mp)
	for _, m := range picked {
		assert.NotEqual(t, ttMove, m, "the TT move must not repeat")
	}
}

func TestPickerRejectsForeignTTMove(t *testing.T) {
	pos := board.NewPosition()
	hist := NewHistoryTables()

	// A TT move from a hash collision: there is no piece on a5.
	mp := NewMovePicker(pos, hist, 0, board.NewMove(board.A5, board.A6), board.NoMove)
	picked := drain(mp)
	assert.Equal(t, pos.GeneratePseudoLegalMoves().Len(), len(picked))
	for _, m := range picked {
		assert.NotEqual(t, board.NewMove(board.A5, board.A6), m)
	}
}

func TestPickerGoodCapturesBeforeQuiets(t *testing.T) {
	// White can trade pawns with exd5 (SEE 0, not losing) or push
	// elsewhere.
	pos, err := board.ParseFEN("rnbqkbnr/ppp2ppp/8/3pp3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 3")
	require.NoError(t, err)

	hist := NewHistoryTables()
	mp := NewMovePicker(pos, hist, 0, board.NoMove, board.NoMove)

	first := mp.Next()
	assert.True(t, first.IsCapture(pos), "a non-losing capture is emitted before quiets, got %v", first)
}

func TestPickerKillersAfterCaptures(t *testing.T) {
	pos := board.NewPosition()
	hist := NewHistoryTables()

	killer := board.NewMove(board.G1, board.F3)
	hist.UpdateKillers(killer, 0)

	mp := NewMovePicker(pos, hist, 0, board.NoMove, board.NoMove)
	picked := drain(mp)

	// No captures exist at the start position, so the killer leads.
	require.NotEmpty(t, picked)
	assert.Equal(t, killer, picked[0])
}

func TestQuiescencePickerOnlyNoisy(t *testing.T) {
	pos, err := board.ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -")
	require.NoError(t, err)

	hist := NewHistoryTables()
	mp := NewQuiescencePicker(pos, hist, board.NoMove)
	picked := drain(mp)

	require.NotEmpty(t, picked)
	for _, m := range picked {
		assert.True(t, m.IsNoisy(pos), "%v is quiet", m)
		if m.IsCapture(pos) && !m.IsPromotion() {
			assert.GreaterOrEqual(t, SEE(pos, m), 0, "losing capture %v must be skipped in quiescence", m)
		}
	}
}
