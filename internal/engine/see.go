package engine

import (
	"github.com/marlinchess/marlin/internal/board"
)

// SEE statically evaluates the exchange started by a capture or
// promotion: both sides recapture on the target square with their
// least valuable attacker until neither profits, and the minimax gain
// for the moving side is returned in centipawns.
func SEE(pos *board.Position, m board.Move) int {
	from, to := m.From(), m.To()

	attacker := pos.PieceAt(from)
	if attacker == board.NoPiece {
		return 0
	}

	var gain int
	if m.IsEnPassant() {
		gain = board.SeeValue[board.Pawn]
	} else if victim := pos.PieceAt(to); victim != board.NoPiece {
		gain = board.SeeValue[victim.Type()]
	} else if !m.IsPromotion() {
		return 0
	}
	if m.IsPromotion() {
		gain += board.SeeValue[m.Promotion()] - board.SeeValue[board.Pawn]
	}

	return seeSwap(pos, to, from, attacker, gain)
}

// seeSwap runs the swap algorithm: alternate least-valuable
// recaptures on target, removing each attacker from the occupancy so
// x-ray attackers behind it come into play, then minimax the gains.
func seeSwap(pos *board.Position, target, firstFrom board.Square, firstAttacker board.Piece, initialGain int) int {
	var gain [32]int
	d := 0
	gain[0] = initialGain

	occupied := pos.AllOccupied &^ board.SquareBB(firstFrom)
	attackerValue := board.SeeValue[firstAttacker.Type()]
	side := firstAttacker.Color().Other()

	for {
		d++
		gain[d] = attackerValue - gain[d-1]
		if max(-gain[d-1], gain[d]) < 0 {
			break
		}

		sq, piece := leastValuableAttacker(pos, target, side, occupied)
		if sq == board.NoSquare {
			break
		}
		occupied &^= board.SquareBB(sq)
		attackerValue = board.SeeValue[piece.Type()]
		side = side.Other()
	}

	for d--; d > 0; d-- {
		gain[d-1] = -max(-gain[d-1], gain[d])
	}
	return gain[0]
}

// leastValuableAttacker finds the cheapest piece of side attacking
// target under the given occupancy, pawns first, king last.
func leastValuableAttacker(pos *board.Position, target board.Square, side board.Color, occupied board.Bitboard) (board.Square, board.Piece) {
	if attackers := pos.Pieces[side][board.Pawn] & board.PawnAttacks(target, side.Other()) & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Pawn, side)
	}
	if attackers := pos.Pieces[side][board.Knight] & board.KnightAttacks(target) & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Knight, side)
	}

	bishopRays := board.BishopAttacks(target, occupied)
	if attackers := pos.Pieces[side][board.Bishop] & bishopRays & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Bishop, side)
	}

	rookRays := board.RookAttacks(target, occupied)
	if attackers := pos.Pieces[side][board.Rook] & rookRays & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Rook, side)
	}
	if attackers := pos.Pieces[side][board.Queen] & (bishopRays | rookRays) & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.Queen, side)
	}
	if attackers := pos.Pieces[side][board.King] & board.KingAttacks(target) & occupied; attackers != 0 {
		return attackers.LSB(), board.NewPiece(board.King, side)
	}
	return board.NoSquare, board.NoPiece
}
