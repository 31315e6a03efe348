package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marlinchess/marlin/internal/board"
)

// mirrorFEN flips a FEN vertically and swaps the colors, producing
// the color-mirrored position.
func mirrorFEN(fen string) string {
	parts := strings.Fields(fen)

	swapCase := func(s string) string {
		var sb strings.Builder
		for _, c := range s {
			switch {
			case c >= 'a' && c <= 'z':
				sb.WriteRune(c - 32)
			case c >= 'A' && c <= 'Z':
				sb.WriteRune(c + 32)
			default:
				sb.WriteRune(c)
			}
		}
		return sb.String()
	}

	ranks := strings.Split(parts[0], "/")
	for i, j := 0, len(ranks)-1; i < j; i, j = i+1, j-1 {
		ranks[i], ranks[j] = ranks[j], ranks[i]
	}
	placement := swapCase(strings.Join(ranks, "/"))

	side := "w"
	if parts[1] == "w" {
		side = "b"
	}

	castling := parts[2]
	if castling != "-" {
		castling = swapCase(castling)
		// Keep the conventional KQkq order.
		order := []byte{'K', 'Q', 'k', 'q'}
		var sb strings.Builder
		for _, c := range order {
			if strings.IndexByte(castling, c) >= 0 {
				sb.WriteByte(c)
			}
		}
		castling = sb.String()
	}

	ep := parts[3]
	if ep != "-" {
		rank := ep[1]
		ep = string(ep[0]) + string('1'+('8'-rank))
	}

	out := []string{placement, side, castling, ep}
	out = append(out, parts[4:]...)
	return strings.Join(out, " ")
}

func TestEvaluateSymmetry(t *testing.T) {
	fens := []string{
		board.StartFEN,
		"r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1",
		"8/5pk1/6p1/8/8/1P6/1KP5/8 b - - 12 40",
	}
	for _, fen := range fens {
		pos, err := board.ParseFEN(fen)
		require.NoError(t, err)
		mirror, err := board.ParseFEN(mirrorFEN(fen))
		require.NoError(t, err, "mirror of %q", fen)

		// Both sides see the same position, so the side-to-move
		// scores must agree.
		assert.Equal(t, Evaluate(pos, nil), Evaluate(mirror, nil), "eval asymmetry for %q", fen)
	}
}

func TestEvaluateStartposSmall(t *testing.T) {
	pos := board.NewPosition()
	v := Evaluate(pos, nil)
	assert.LessOrEqual(t, v, 100)
	assert.GreaterOrEqual(t, v, -100)
}

func TestEvaluateMaterialEdge(t *testing.T) {
	// White is a queen up; the eval must say so decisively.
	pos, err := board.ParseFEN("6k1/5ppp/8/8/8/8/5PPP/Q5K1 w - - 0 1")
	require.NoError(t, err)
	assert.Greater(t, Evaluate(pos, nil), 800)

	// Same position from Black's seat is as badly lost.
	pos.MakeNullMove()
	assert.Less(t, Evaluate(pos, nil), -800)
}

func TestEvaluateDrawishEndgame(t *testing.T) {
	// KR vs KB: the rook side's material edge is zeroed out.
	pos, err := board.ParseFEN("8/8/4kb2/8/8/3RK3/8/8 w - - 0 1")
	require.NoError(t, err)
	v := Evaluate(pos, nil)
	assert.Less(t, abs(v), 150, "drawish endgame should evaluate near zero, got %d", v)
}

func TestEvaluateHalfmoveScale(t *testing.T) {
	fresh, err := board.ParseFEN("4k3/8/8/8/8/8/4R3/4K3 w - - 0 1")
	require.NoError(t, err)
	stale, err := board.ParseFEN("4k3/8/8/8/8/8/4R3/4K3 w - - 90 80")
	require.NoError(t, err)

	assert.Greater(t, Evaluate(fresh, nil), Evaluate(stale, nil),
		"a high halfmove clock must shrink the advantage")
}

func TestPawnTableCachesScore(t *testing.T) {
	pos, err := board.ParseFEN("r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4")
	require.NoError(t, err)

	pt := NewPawnTable(1)
	_, ok := pt.Probe(pos.PawnKey)
	assert.False(t, ok, "fresh table must miss")

	direct := Evaluate(pos, nil)
	cached := Evaluate(pos, pt)
	assert.Equal(t, direct, cached)

	s, ok := pt.Probe(pos.PawnKey)
	require.True(t, ok, "pawn score must be cached after evaluation")
	assert.Equal(t, cached, Evaluate(pos, pt))
	_ = s
}
