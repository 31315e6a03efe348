// Package tablebase provides endgame tablebase probing for the
// search: an online prober backed by the Lichess tablebase API and a
// persistent on-disk cache in front of it.
package tablebase

import (
	"github.com/marlinchess/marlin/internal/board"
)

// WDL is a win/draw/loss classification from the probed side's view.
type WDL int

const (
	WDLLoss        WDL = -2
	WDLBlessedLoss WDL = -1 // lost, but the fifty-move rule may save it
	WDLDraw        WDL = 0
	WDLCursedWin   WDL = 1 // won, but the fifty-move rule may spoil it
	WDLWin         WDL = 2
)

// TBWin is the score band for tablebase wins: below any mate score,
// above any evaluation.
const TBWin = 25000

// ProbeResult is a positional lookup result.
type ProbeResult struct {
	Found bool
	WDL   WDL
	DTZ   int // distance to a zeroing move
}

// RootResult is a root lookup result carrying the best move.
type RootResult struct {
	Found bool
	Move  board.Move
	WDL   WDL
	DTZ   int
}

// Prober is the probing interface the search consumes.
type Prober interface {
	// Probe classifies a position.
	Probe(pos *board.Position) ProbeResult

	// ProbeRoot returns the tablebase-best move for a position. More
	// expensive than Probe; called at the search root only.
	ProbeRoot(pos *board.Position) RootResult

	// MaxPieces returns the largest piece count supported.
	MaxPieces() int

	// Available reports whether probing can succeed at all.
	Available() bool
}

// WDLToScore converts a WDL to a search score at the given ply.
func WDLToScore(wdl WDL, ply int) int {
	switch wdl {
	case WDLWin:
		return TBWin - ply
	case WDLCursedWin:
		return 4 // nominally won, practically drawish
	case WDLBlessedLoss:
		return -4
	case WDLLoss:
		return -TBWin + ply
	default:
		return 0
	}
}

// RootScore converts a root result to a reportable score, pulled
// toward zero by the distance to the zeroing move.
func RootScore(r RootResult) int {
	switch {
	case r.WDL > 0:
		return TBWin - r.DTZ
	case r.WDL < 0:
		return -TBWin + r.DTZ
	default:
		return 0
	}
}

// NoopProber is a Prober that never finds anything.
type NoopProber struct{}

func (NoopProber) Probe(*board.Position) ProbeResult  { return ProbeResult{} }
func (NoopProber) ProbeRoot(*board.Position) RootResult { return RootResult{} }
func (NoopProber) MaxPieces() int                     { return 0 }
func (NoopProber) Available() bool                    { return false }
