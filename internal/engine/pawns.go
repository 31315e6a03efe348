package engine

import (
	"github.com/marlinchess/marlin/internal/board"
)

// Pawn-structure terms. These depend only on the pawn bitboards, so
// the computed subscore is memoized in the pawn hash table keyed by
// the position's pawn key. King shelter and storm depend on the king
// square too and are computed per node in kingPawnScore.

// Passed pawn bonus by relative rank.
var passedPawnBonus = [8]board.Score{
	{0, 0}, {4, 10}, {8, 16}, {16, 32}, {36, 60}, {80, 120}, {140, 190}, {0, 0},
}

// Candidate passers, whose helpers are not outnumbered by the blockers
// on the adjacent files, get a fraction of the passed bonus.
var candidatePawnBonus = [8]board.Score{
	{0, 0}, {2, 5}, {4, 8}, {8, 14}, {16, 26}, {30, 46}, {0, 0}, {0, 0},
}

// Connected pawn bonus by relative rank, scaled up for phalanxes and
// down for opposed pawns.
var connectedPawnBonus = [8]int32{0, 3, 5, 8, 14, 24, 42, 0}

var (
	isolatedPawnPenalty = board.S(12, 16)
	doubledPawnPenalty  = board.S(10, 22)
	backwardPawnPenalty = board.S(8, 12)
	centerPawnBonus     = board.S(12, 4)
)

// pawnScore returns the cached pawn-structure subscore from White's
// perspective, computing and storing it on a miss.
func pawnScore(pos *board.Position, pt *PawnTable) board.Score {
	if pt != nil {
		if s, ok := pt.Probe(pos.PawnKey); ok {
			return s
		}
	}
	s := evaluatePawns(pos, board.White).Sub(evaluatePawns(pos, board.Black))
	if pt != nil {
		pt.Store(pos.PawnKey, s)
	}
	return s
}

func evaluatePawns(pos *board.Position, us board.Color) board.Score {
	var s board.Score
	them := us.Other()
	ourPawns := pos.Pieces[us][board.Pawn]
	theirPawns := pos.Pieces[them][board.Pawn]

	supported := ourPawns & ourPawns.PawnCaptures(us)
	phalanx := ourPawns & (ourPawns.East() | ourPawns.West())

	s = s.Add(centerPawnBonus.Scale(int32((ourPawns & board.Center).PopCount())))

	for bb := ourPawns; bb != 0; {
		sq := bb.PopLSB()
		rank := sq.RelativeRank(us)
		file := sq.File()

		blockers := board.PassedSpan(us, sq) & theirPawns
		if blockers == 0 {
			s = s.Add(passedPawnBonus[rank])
		} else if board.FrontSpan(us, sq)&theirPawns == 0 {
			// Not blocked on its own file: a candidate if its
			// supporters are not outnumbered by the defenders.
			defenders := (board.AdjacentFiles(file) & theirPawns & blockers).PopCount()
			helpers := (board.AdjacentFiles(file) & ourPawns &
				(board.PassedSpan(them, sq) | board.SquareBB(sq).PawnCaptures(them))).PopCount()
			if helpers >= defenders {
				s = s.Add(candidatePawnBonus[rank])
			}
		}

		if board.AdjacentFiles(file)&ourPawns == 0 {
			s = s.Sub(isolatedPawnPenalty)
		}

		if board.FrontSpan(us, sq)&ourPawns != 0 {
			s = s.Sub(doubledPawnPenalty)
		}

		// Backward: no pawn alongside or behind on adjacent files,
		// and the stop square is covered by an enemy pawn.
		behindOrLevel := board.AdjacentFiles(file) &^ board.PassedSpan(us, sq)
		stop := board.SquareBB(sq).Forward(us)
		if behindOrLevel&ourPawns == 0 && stop&theirPawns.PawnCaptures(them) != 0 {
			s = s.Sub(backwardPawnPenalty)
		}

		// Connected pawns, stronger as they advance, stronger side by
		// side, weaker when opposed.
		sup := supported&board.SquareBB(sq) != 0
		pha := phalanx&board.SquareBB(sq) != 0
		if sup || pha {
			v := connectedPawnBonus[rank]
			if pha {
				v += connectedPawnBonus[rank] / 2
			}
			if board.FrontSpan(us, sq)&theirPawns != 0 {
				v /= 2
			}
			s = s.Add(board.S(v, v*(int32(rank)+1)/4))
		}
	}
	return s
}

// King shelter and storm values indexed by the rank distance from the
// king's rank to the nearest pawn on a file (capped at 6; 7 = none).
var shelterBonus = [8]int32{-10, 32, 20, 6, -4, -10, -14, -22}
var stormPenalty = [8]int32{4, -36, -18, -10, -4, 0, 0, 0}

var kingPawnProximity = [8]int32{0, 0, -4, -10, -16, -22, -28, -34}

// kingPawnScore evaluates the pawn cover in front of the king and the
// distance to the nearest friendly pawn. Not cacheable by pawn key:
// it depends on the king square.
func kingPawnScore(pos *board.Position, us board.Color) board.Score {
	var s board.Score
	them := us.Other()
	ksq := pos.KingSquare[us]
	kfile := ksq.File()
	krank := ksq.RelativeRank(us)

	ourPawns := pos.Pieces[us][board.Pawn]
	theirPawns := pos.Pieces[them][board.Pawn]

	for f := max(0, kfile-1); f <= min(7, kfile+1); f++ {
		fileMask := board.FileMask[f]

		dist := 7
		for bb := ourPawns & fileMask; bb != 0; {
			r := bb.PopLSB().RelativeRank(us)
			if r > krank && r-krank < dist {
				dist = r - krank
			}
		}
		s = s.Add(board.S(shelterBonus[min(dist, 7)], 0))

		dist = 7
		for bb := theirPawns & fileMask; bb != 0; {
			r := bb.PopLSB().RelativeRank(us)
			if r > krank && r-krank < dist {
				dist = r - krank
			}
		}
		s = s.Add(board.S(stormPenalty[min(dist, 7)], 0))
	}

	// Endgame kings want to stay near their pawns.
	if ourPawns != 0 {
		best := 7
		for bb := ourPawns; bb != 0; {
			sq := bb.PopLSB()
			d := chebyshev(ksq, sq)
			if d < best {
				best = d
			}
		}
		s = s.Add(board.S(0, kingPawnProximity[best]))
	}

	return s
}

func chebyshev(a, b board.Square) int {
	df := abs(a.File() - b.File())
	dr := abs(a.Rank() - b.Rank())
	return max(df, dr)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
