package tablebase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marlinchess/marlin/internal/board"
)

// countingProber records how many times it was probed.
type countingProber struct {
	result ProbeResult
	probes int
}

func (cp *countingProber) Probe(*board.Position) ProbeResult {
	cp.probes++
	return cp.result
}

func (cp *countingProber) ProbeRoot(*board.Position) RootResult { return RootResult{} }
func (cp *countingProber) MaxPieces() int                       { return 7 }
func (cp *countingProber) Available() bool                      { return true }

func TestCachedProberPersists(t *testing.T) {
	inner := &countingProber{result: ProbeResult{Found: true, WDL: WDLWin, DTZ: 12}}

	cache, err := NewCachedProber(inner, t.TempDir())
	require.NoError(t, err)
	defer cache.Close()

	pos, err := board.ParseFEN("8/8/8/4k3/8/4K3/4P3/8 w - - 0 1")
	require.NoError(t, err)

	first := cache.Probe(pos)
	assert.Equal(t, inner.result, first)
	assert.Equal(t, 1, inner.probes)

	// The second probe is served from disk.
	second := cache.Probe(pos)
	assert.Equal(t, inner.result, second)
	assert.Equal(t, 1, inner.probes, "cached probe must not hit the backend")
}

func TestCachedProberDoesNotCacheMisses(t *testing.T) {
	inner := &countingProber{result: ProbeResult{}}

	cache, err := NewCachedProber(inner, t.TempDir())
	require.NoError(t, err)
	defer cache.Close()

	pos, err := board.ParseFEN("8/8/8/4k3/8/4K3/4P3/8 w - - 0 1")
	require.NoError(t, err)

	cache.Probe(pos)
	cache.Probe(pos)
	assert.Equal(t, 2, inner.probes, "a not-found result may be transient and is retried")
}

func TestWDLToScore(t *testing.T) {
	assert.Equal(t, TBWin-4, WDLToScore(WDLWin, 4))
	assert.Equal(t, -TBWin+4, WDLToScore(WDLLoss, 4))
	assert.Equal(t, 0, WDLToScore(WDLDraw, 10))
	assert.Less(t, abs(WDLToScore(WDLCursedWin, 2)), 50, "a cursed win is practically a draw")
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
