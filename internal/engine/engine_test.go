package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marlinchess/marlin/internal/board"
)

func isLegal(pos *board.Position, m board.Move) bool {
	legal := pos.GenerateLegalMoves()
	for i := 0; i < legal.Len(); i++ {
		if legal.Get(i) == m {
			return true
		}
	}
	return false
}

func searchPosition(t *testing.T, fen string, limits Limits, threads int) (board.Move, int) {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)

	eng := NewEngine(16, threads)
	eng.SetPositionHistory([]uint64{pos.Hash})

	var lastScore int
	eng.OnInfo = func(info SearchInfo) {
		lastScore = info.Score
	}
	m := eng.Search(context.Background(), pos, limits)
	return m, lastScore
}

func TestSearchDepthOneStartpos(t *testing.T) {
	m, score := searchPosition(t, board.StartFEN, Limits{Depth: 1}, 1)

	pos := board.NewPosition()
	assert.True(t, isLegal(pos, m), "bestmove %v must be legal", m)
	assert.LessOrEqual(t, score, 200)
	assert.GreaterOrEqual(t, score, -200)
}

func TestSearchAvoidsStalemate(t *testing.T) {
	m, score := searchPosition(t, "8/8/8/8/8/4k3/4P3/4K3 w - - 0 1", Limits{Depth: 10}, 1)

	pos, err := board.ParseFEN("8/8/8/8/8/4k3/4P3/4K3 w - - 0 1")
	require.NoError(t, err)
	require.True(t, isLegal(pos, m), "bestmove %v must be legal", m)
	assert.Equal(t, board.King, pos.PieceAt(m.From()).Type(), "only king moves exist that do not lose the pawn")
	assert.GreaterOrEqual(t, score, 0)
}

func TestSearchFindsMateInOne(t *testing.T) {
	m, score := searchPosition(t, "6k1/5ppp/8/8/8/8/5PPP/Q5K1 w - - 0 1", Limits{Depth: 4}, 1)

	assert.Equal(t, board.NewMove(board.A1, board.A8), m, "bestmove must be a1a8")
	assert.Equal(t, MateScore-1, score, "score must be mate in one")
}

func TestSearchStalemateReturnsZero(t *testing.T) {
	pos, err := board.ParseFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	require.NoError(t, err)
	require.False(t, pos.InCheck())
	require.False(t, pos.HasLegalMoves())

	eng := NewEngine(16, 1)
	eng.SetPositionHistory([]uint64{pos.Hash})
	lastScore := -1
	eng.OnInfo = func(info SearchInfo) {
		lastScore = info.Score
	}
	m := eng.Search(context.Background(), pos, Limits{Depth: 3})
	assert.Equal(t, board.NoMove, m, "stalemate has no best move")
	assert.Equal(t, 0, lastScore, "stalemate scores zero")
}

func TestSearchMoveTime(t *testing.T) {
	fen := "r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4"
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)

	eng := NewEngine(16, 1)
	eng.SetPositionHistory([]uint64{pos.Hash})

	start := time.Now()
	m := eng.Search(context.Background(), pos, Limits{MoveTime: 500 * time.Millisecond})
	elapsed := time.Since(start)

	assert.True(t, isLegal(pos, m), "bestmove %v must be legal", m)
	assert.Greater(t, eng.Nodes(), uint64(1000))
	assert.Less(t, elapsed, 3*time.Second, "search must respect the deadline")
}

func TestSearchMultiThreadAgrees(t *testing.T) {
	single, singleScore := searchPosition(t, board.StartFEN, Limits{Depth: 8}, 1)
	multi, multiScore := searchPosition(t, board.StartFEN, Limits{Depth: 8}, 2)

	pos := board.NewPosition()
	assert.True(t, isLegal(pos, single), "single-thread bestmove %v must be legal", single)
	assert.True(t, isLegal(pos, multi), "multi-thread bestmove %v must be legal", multi)

	// Lazy SMP may legitimately pick a different move; the scores
	// should still be in the same neighborhood.
	assert.InDelta(t, singleScore, multiScore, 150)
}

func TestRepetitionIsDraw(t *testing.T) {
	eng := NewEngine(16, 1)
	w := eng.workers[0]

	pos := board.NewPosition()
	var hashes []uint64
	hashes = append(hashes, pos.Hash)
	for _, s := range []string{"g1f3", "g8f6", "f3g1", "f6g8"} {
		m, err := board.ParseMove(s, pos)
		require.NoError(t, err)
		pos.MakeMove(m)
		hashes = append(hashes, pos.Hash)
	}

	// The knights returned home: the root hash reappears.
	w.SetRootHistory(hashes)
	w.InitSearch(pos)
	assert.True(t, w.isDraw(), "a position repeated once in the history is scored as a draw")
}

func TestFiftyMoveRuleIsDraw(t *testing.T) {
	pos, err := board.ParseFEN("8/5k2/8/8/8/8/1R3K2/8 w - - 100 80")
	require.NoError(t, err)

	eng := NewEngine(16, 1)
	w := eng.workers[0]
	w.SetRootHistory([]uint64{pos.Hash})
	w.InitSearch(pos)
	assert.True(t, w.isDraw())
}

func TestPerftFromEngine(t *testing.T) {
	eng := NewEngine(16, 1)
	pos := board.NewPosition()
	assert.Equal(t, uint64(400), eng.Perft(pos, 2))
	assert.Equal(t, uint64(8902), eng.Perft(pos, 3))
}

func TestStopInterruptsSearch(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16, 1)
	eng.SetPositionHistory([]uint64{pos.Hash})

	done := make(chan board.Move, 1)
	go func() {
		done <- eng.Search(context.Background(), pos, Limits{Infinite: true})
	}()

	time.Sleep(200 * time.Millisecond)
	eng.Stop()

	select {
	case m := <-done:
		assert.True(t, isLegal(pos, m), "stopped search must still produce a legal move")
	case <-time.After(5 * time.Second):
		t.Fatal("search did not stop")
	}
}
