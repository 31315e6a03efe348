package uci

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marlinchess/marlin/internal/engine"
)

// lockedBuffer serializes writes from the command loop and the search
// goroutine.
type lockedBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (lb *lockedBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.sb.Write(p)
}

func (lb *lockedBuffer) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.sb.String()
}

func runSession(t *testing.T, commands string) string {
	t.Helper()
	out := &lockedBuffer{}
	d := NewDriver(engine.NewEngine(16, 1), out)
	d.Run(context.Background(), strings.NewReader(commands))
	return out.String()
}

func TestHandshake(t *testing.T) {
	got := runSession(t, "uci\nisready\nquit\n")

	assert.Contains(t, got, "id name Marlin")
	assert.Contains(t, got, "option name Hash type spin")
	assert.Contains(t, got, "option name Threads type spin")
	assert.Contains(t, got, "option name Move Overhead type spin")
	assert.Contains(t, got, "option name SyzygyPath type string")
	assert.Contains(t, got, "uciok")
	assert.Contains(t, got, "readyok")
}

func TestGoDepthEmitsBestmove(t *testing.T) {
	got := runSession(t, "position startpos\ngo depth 3\nquit\n")

	assert.Contains(t, got, "info depth")
	assert.Contains(t, got, " pv ")
	require.Contains(t, got, "bestmove ")

	// The emitted move must be well-formed UCI.
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "bestmove ") {
			move := strings.TrimPrefix(line, "bestmove ")
			assert.Regexp(t, `^[a-h][1-8][a-h][1-8][qrbn]?$`, move)
		}
	}
}

func TestGoMateInOne(t *testing.T) {
	got := runSession(t, "position fen 6k1/5ppp/8/8/8/8/5PPP/Q5K1 w - - 0 1\ngo depth 4\nquit\n")

	assert.Contains(t, got, "score mate 1")
	assert.Contains(t, got, "bestmove a1a8")
}

func TestPositionWithMoves(t *testing.T) {
	got := runSession(t, "position startpos moves e2e4 e7e5\ngo depth 2\nquit\n")
	assert.Contains(t, got, "bestmove ")
}

func TestMalformedInputIsDropped(t *testing.T) {
	// Bad FEN, bad moves and unknown commands must not crash the
	// loop or corrupt the position.
	got := runSession(t,
		"position fen not/a/fen w - - 0 1\n"+
			"position startpos moves e2e5\n"+
			"frobnicate\n"+
			"position startpos\ngo depth 2\nquit\n")
	assert.Contains(t, got, "bestmove ")
}

func TestEvalCommand(t *testing.T) {
	got := runSession(t, "position startpos\neval\nquit\n")
	assert.Contains(t, got, "info string eval cp ")
}

func TestSetOptionHashAndThreads(t *testing.T) {
	got := runSession(t,
		"setoption name Hash value 8\n"+
			"setoption name Threads value 2\n"+
			"setoption name Move Overhead value 50\n"+
			"position startpos\ngo depth 3\nquit\n")
	assert.Contains(t, got, "bestmove ")
}
