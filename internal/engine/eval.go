// Package engine implements the search and evaluation core.
package engine

import (
	"github.com/marlinchess/marlin/internal/board"
)

// Search score constants. Mate scores are encoded MateScore - ply;
// anything at or above MinMate is a forced mate.
const (
	Infinity  = 30000
	MateScore = 29000
	MinMate   = MateScore - 1000
	MaxPly    = 128
)

// Mobility bonuses indexed by the number of reachable squares,
// x-ray-discounted. Knights top out at 8 targets, bishops at 13,
// rooks at 14, queens at 27.
var knightMobility = [9]board.Score{
	{-34, -40}, {-20, -26}, {-8, -12}, {-2, -4}, {4, 2},
	{10, 8}, {16, 12}, {22, 14}, {26, 16},
}

var bishopMobility = [14]board.Score{
	{-28, -38}, {-16, -22}, {-6, -10}, {0, -2}, {6, 6}, {12, 12},
	{16, 18}, {18, 22}, {20, 26}, {22, 28}, {24, 30}, {26, 30},
	{28, 32}, {30, 32},
}

var rookMobility = [15]board.Score{
	{-30, -40}, {-18, -20}, {-10, -6}, {-6, 2}, {-4, 10}, {-2, 18},
	{0, 24}, {4, 28}, {8, 32}, {12, 36}, {14, 40}, {16, 42},
	{18, 44}, {20, 46}, {22, 46},
}

var queenMobility = [28]board.Score{
	{-20, -30}, {-12, -20}, {-8, -12}, {-4, -6}, {-2, 0}, {0, 6},
	{2, 10}, {4, 14}, {6, 18}, {8, 22}, {10, 24}, {12, 26},
	{13, 28}, {14, 30}, {15, 32}, {16, 34}, {17, 34}, {18, 36},
	{19, 36}, {20, 38}, {21, 38}, {22, 40}, {23, 40}, {24, 40},
	{25, 42}, {26, 42}, {27, 42}, {28, 44},
}

// King danger weights per attacking piece kind, accumulated per
// attack on the king zone.
var kingAttackWeight = [6]int{0, 8, 7, 10, 16, 0}

const (
	safeCheckKnight = 24
	safeCheckBishop = 16
	safeCheckRook   = 28
	safeCheckQueen  = 36

	noQueenAttackerDiscount = 60
)

// Piece arrangement bonuses.
var (
	bishopPairBonus    = board.S(28, 54)
	rookOn7thBonus     = board.S(24, 36)
	rookOpenFileBonus  = board.S(30, 14)
	rookSemiOpenBonus  = board.S(14, 10)
	knightOutpostBonus = board.S(28, 16)
	bishopOutpostBonus = board.S(18, 10)
	longDiagonalBonus  = board.S(16, 8)
	bishopPawnsPenalty = board.S(3, 5) // per own pawn on the bishop's color
	tempoBonus         = int32(14)
)

var longDiagonals = board.Bitboard(0x8142241818244281)

// Evaluate returns the static evaluation in centipawns from the side
// to move's perspective. pawnTable caches the pawn-structure subscore
// keyed by the position's pawn hash; pass a per-thread table.
func Evaluate(pos *board.Position, pawnTable *PawnTable) int {
	// Material and piece-square terms come from the incrementally
	// maintained accumulators.
	score := pos.Material.Add(pos.PSQT)

	if isDrawishEndgame(pos) {
		// Pawnless configurations like KR vs KB play out as draws;
		// drop the material term so only activity remains.
		score = score.Sub(pos.Material)
	}

	score = score.Add(evaluatePieces(pos, board.White).Sub(evaluatePieces(pos, board.Black)))
	score = score.Add(pawnScore(pos, pawnTable))
	score = score.Add(kingPawnScore(pos, board.White).Sub(kingPawnScore(pos, board.Black)))

	// Flip to the side to move before tapering, so the rounding of the
	// blend is the same for both colors.
	if pos.SideToMove == board.Black {
		score = score.Neg()
	}
	v := score.Taper(pos.Phase())

	// Encourage progress as the fifty-move counter climbs.
	hm := pos.HalfMoveClock
	if hm > 100 {
		hm = 100
	}
	v = v * (100 - hm) / 100

	return v + int(tempoBonus)
}

// evaluatePieces runs the single mobility and king-safety pass for
// one color: every non-pawn piece contributes its mobility bucket and
// its pressure on the enemy king zone.
func evaluatePieces(pos *board.Position, us board.Color) board.Score {
	var s board.Score
	them := us.Other()
	occupied := pos.AllOccupied

	enemyKing := pos.KingSquare[them]
	kingZone := board.KingZone(enemyKing)

	ourPawns := pos.Pieces[us][board.Pawn]
	theirPawns := pos.Pieces[them][board.Pawn]
	pawnSafe := ^theirPawns.PawnCaptures(them) // squares no enemy pawn attacks

	attackers := 0
	danger := 0
	queenAttacks := board.Bitboard(0)
	allAttacks := ourPawns.PawnCaptures(us)

	// Knights.
	for bb := pos.Pieces[us][board.Knight]; bb != 0; {
		sq := bb.PopLSB()
		attacks := board.KnightAttacks(sq)
		allAttacks |= attacks
		s = s.Add(knightMobility[(attacks & pawnSafe &^ pos.Occupied[us]).PopCount()])

		if zone := attacks & kingZone; zone != 0 {
			attackers++
			danger += kingAttackWeight[board.Knight] * zone.PopCount()
		}
		if isOutpost(pos, us, sq) {
			s = s.Add(knightOutpostBonus)
		}
	}

	// Bishops x-ray through the own queen.
	xrayOcc := occupied &^ pos.Pieces[us][board.Queen]
	for bb := pos.Pieces[us][board.Bishop]; bb != 0; {
		sq := bb.PopLSB()
		attacks := board.BishopAttacks(sq, xrayOcc)
		allAttacks |= attacks
		s = s.Add(bishopMobility[min((attacks&^pos.Occupied[us]).PopCount(), 13)])

		if zone := attacks & kingZone; zone != 0 {
			attackers++
			danger += kingAttackWeight[board.Bishop] * zone.PopCount()
		}
		if isOutpost(pos, us, sq) {
			s = s.Add(bishopOutpostBonus)
		}
		if board.SquareBB(sq)&longDiagonals != 0 &&
			(board.BishopAttacks(sq, occupied)&board.Center).PopCount() >= 2 {
			s = s.Add(longDiagonalBonus)
		}

		// Bishops hemmed in by own pawns on their color complex.
		ownColorPawns := ourPawns & sameColorSquares(sq)
		s = s.Sub(bishopPawnsPenalty.Scale(int32(ownColorPawns.PopCount())))
	}

	if pos.Pieces[us][board.Bishop].PopCount() >= 2 {
		s = s.Add(bishopPairBonus)
	}

	// Rooks x-ray through own queen and rooks.
	rookXray := occupied &^ (pos.Pieces[us][board.Queen] | pos.Pieces[us][board.Rook])
	for bb := pos.Pieces[us][board.Rook]; bb != 0; {
		sq := bb.PopLSB()
		attacks := board.RookAttacks(sq, rookXray)
		allAttacks |= attacks
		s = s.Add(rookMobility[min((attacks&^pos.Occupied[us]).PopCount(), 14)])

		if zone := attacks & kingZone; zone != 0 {
			attackers++
			danger += kingAttackWeight[board.Rook] * zone.PopCount()
		}

		file := board.FileMask[sq.File()]
		if file&ourPawns == 0 {
			if file&theirPawns == 0 {
				s = s.Add(rookOpenFileBonus)
			} else {
				s = s.Add(rookSemiOpenBonus)
			}
		}

		// Rook on the seventh only counts with the enemy king on the
		// eighth or enemy pawns still on the seventh.
		if sq.RelativeRank(us) == 6 &&
			(enemyKing.RelativeRank(us) == 7 || theirPawns&relativeRankMask(us, 6) != 0) {
			s = s.Add(rookOn7thBonus)
		}
	}

	// Queens: no x-ray discount.
	for bb := pos.Pieces[us][board.Queen]; bb != 0; {
		sq := bb.PopLSB()
		attacks := board.QueenAttacks(sq, occupied)
		allAttacks |= attacks
		queenAttacks |= attacks
		s = s.Add(queenMobility[min((attacks&^pos.Occupied[us]).PopCount(), 27)])

		if zone := attacks & kingZone; zone != 0 {
			attackers++
			danger += kingAttackWeight[board.Queen] * zone.PopCount()
		}
	}

	// King danger fires with two zone attackers, or one when the side
	// still has a queen on the board.
	hasQueen := pos.Pieces[us][board.Queen] != 0
	threshold := 2
	if hasQueen {
		threshold = 1
	}
	if attackers >= threshold {
		danger += safeCheckDanger(pos, us, allAttacks, queenAttacks)
		if !hasQueen {
			danger -= noQueenAttackerDiscount
		}
		if danger > 0 {
			s = s.Add(board.S(int32(danger), int32(danger/2)))
		}
	}

	return s
}

// safeCheckDanger credits checks deliverable on squares the defender
// does not cover.
func safeCheckDanger(pos *board.Position, us board.Color, ourAttacks, ourQueenAttacks board.Bitboard) int {
	them := us.Other()
	ksq := pos.KingSquare[them]
	occupied := pos.AllOccupied

	theirPawnAttacks := pos.Pieces[them][board.Pawn].PawnCaptures(them)
	defended := theirPawnAttacks
	for bb := pos.Pieces[them][board.Knight]; bb != 0; {
		defended |= board.KnightAttacks(bb.PopLSB())
	}
	for bb := pos.Pieces[them][board.Bishop]; bb != 0; {
		defended |= board.BishopAttacks(bb.PopLSB(), occupied)
	}
	for bb := pos.Pieces[them][board.Rook]; bb != 0; {
		defended |= board.RookAttacks(bb.PopLSB(), occupied)
	}
	defended |= board.KingAttacks(ksq)

	safe := ourAttacks &^ defended &^ pos.Occupied[us]

	danger := 0
	knightChecks := board.KnightAttacks(ksq) & safe
	for bb := pos.Pieces[us][board.Knight]; bb != 0; {
		if board.KnightAttacks(bb.PopLSB())&knightChecks != 0 {
			danger += safeCheckKnight
			break
		}
	}

	bishopRays := board.BishopAttacks(ksq, occupied)
	rookRays := board.RookAttacks(ksq, occupied)

	if bishopRays&safe != 0 {
		for bb := pos.Pieces[us][board.Bishop]; bb != 0; {
			if board.BishopAttacks(bb.PopLSB(), occupied)&bishopRays&safe != 0 {
				danger += safeCheckBishop
				break
			}
		}
	}
	if rookRays&safe != 0 {
		for bb := pos.Pieces[us][board.Rook]; bb != 0; {
			if board.RookAttacks(bb.PopLSB(), occupied)&rookRays&safe != 0 {
				danger += safeCheckRook
				break
			}
		}
	}
	if ourQueenAttacks&(bishopRays|rookRays)&safe != 0 {
		danger += safeCheckQueen
	}
	return danger
}

// isOutpost reports whether a minor piece of color us on sq sits on a
// pawn-supported square no enemy pawn can ever attack.
func isOutpost(pos *board.Position, us board.Color, sq board.Square) bool {
	rank := sq.RelativeRank(us)
	if rank < 3 || rank > 5 {
		return false
	}
	if board.PawnAttacks(sq, us.Other())&pos.Pieces[us][board.Pawn] == 0 {
		return false
	}
	// No enemy pawn on an adjacent file in front of the square.
	span := board.PassedSpan(us, sq) &^ board.FrontSpan(us, sq)
	return span&pos.Pieces[us.Other()][board.Pawn] == 0
}

// sameColorSquares returns the light or dark square set matching sq.
func sameColorSquares(sq board.Square) board.Bitboard {
	const lightSquares = board.Bitboard(0x55AA55AA55AA55AA)
	if board.SquareBB(sq)&lightSquares != 0 {
		return lightSquares
	}
	return ^lightSquares
}

func relativeRankMask(us board.Color, rank int) board.Bitboard {
	if us == board.White {
		return board.RankMask[rank]
	}
	return board.RankMask[7-rank]
}

// isDrawishEndgame recognizes pawnless configurations where the
// nominal material edge cannot be converted: a lone rook against a
// minor, or rook plus minor against a rook.
func isDrawishEndgame(pos *board.Position) bool {
	if pos.Pieces[board.White][board.Pawn]|pos.Pieces[board.Black][board.Pawn] != 0 {
		return false
	}
	if pos.Pieces[board.White][board.Queen]|pos.Pieces[board.Black][board.Queen] != 0 {
		return false
	}

	wRooks := pos.Pieces[board.White][board.Rook].PopCount()
	bRooks := pos.Pieces[board.Black][board.Rook].PopCount()
	wMinors := (pos.Pieces[board.White][board.Knight] | pos.Pieces[board.White][board.Bishop]).PopCount()
	bMinors := (pos.Pieces[board.Black][board.Knight] | pos.Pieces[board.Black][board.Bishop]).PopCount()

	// KR vs KB / KN, either color.
	if wRooks == 1 && wMinors == 0 && bRooks == 0 && bMinors == 1 {
		return true
	}
	if bRooks == 1 && bMinors == 0 && wRooks == 0 && wMinors == 1 {
		return true
	}
	// KRB / KRN vs KR, either color.
	if wRooks == 1 && wMinors == 1 && bRooks == 1 && bMinors == 0 {
		return true
	}
	if bRooks == 1 && bMinors == 1 && wRooks == 1 && wMinors == 0 {
		return true
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
