package board

// Move generation is split into a quiet and a noisy generator so the
// search can stage them lazily. Noisy covers captures, en passant,
// every promotion, and pawn pushes onto the seventh rank; quiet is
// everything else. Generated moves are pseudo-legal: they may leave
// the own king in check and are filtered by make-then-test.

// GenerateLegalMoves generates all legal moves for the position.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := &MoveList{}
	p.GenerateNoisyMoves(ml)
	p.GenerateQuietMoves(ml)
	return p.filterLegalMoves(ml)
}

// GeneratePseudoLegalMoves generates all pseudo-legal moves.
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	ml := &MoveList{}
	p.GenerateNoisyMoves(ml)
	p.GenerateQuietMoves(ml)
	return ml
}

// GenerateNoisyMoves appends captures, en passant, promotions and
// pawn pushes to the seventh rank.
func (p *Position) GenerateNoisyMoves(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	occupied := p.AllOccupied
	enemies := p.Occupied[them]

	p.generatePawnNoisy(ml, us, enemies, occupied)

	knights := p.Pieces[us][Knight]
	for knights != 0 {
		from := knights.PopLSB()
		attacks := KnightAttacks(from) & enemies
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		attacks := BishopAttacks(from, occupied) & enemies
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		attacks := RookAttacks(from, occupied) & enemies
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		attacks := QueenAttacks(from, occupied) & enemies
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	from := p.KingSquare[us]
	attacks := KingAttacks(from) & enemies
	for attacks != 0 {
		ml.Add(NewMove(from, attacks.PopLSB()))
	}
}

// GenerateQuietMoves appends non-capture, non-promotion moves,
// excluding pawn pushes to the seventh rank.
func (p *Position) GenerateQuietMoves(ml *MoveList) {
	us := p.SideToMove
	occupied := p.AllOccupied
	empty := ^occupied

	p.generatePawnQuiet(ml, us, empty)

	knights := p.Pieces[us][Knight]
	for knights != 0 {
		from := knights.PopLSB()
		attacks := KnightAttacks(from) & empty
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		attacks := BishopAttacks(from, occupied) & empty
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		attacks := RookAttacks(from, occupied) & empty
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		attacks := QueenAttacks(from, occupied) & empty
		for attacks != 0 {
			ml.Add(NewMove(from, attacks.PopLSB()))
		}
	}

	from := p.KingSquare[us]
	attacks := KingAttacks(from) & empty
	for attacks != 0 {
		ml.Add(NewMove(from, attacks.PopLSB()))
	}

	p.generateCastlingMoves(ml, us)
}

func (p *Position) generatePawnNoisy(ml *MoveList, us Color, enemies, occupied Bitboard) {
	pawns := p.Pieces[us][Pawn]
	empty := ^occupied

	var attackL, attackR, push1 Bitboard
	var promoRank, seventhRank Bitboard
	var pushDir int
	if us == White {
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		push1 = pawns.North() & empty
		promoRank = Rank8
		seventhRank = Rank7
		pushDir = 8
	} else {
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		push1 = pawns.South() & empty
		promoRank = Rank1
		seventhRank = Rank2
		pushDir = -8
	}

	// Captures without promotion.
	for bb := attackL &^ promoRank; bb != 0; {
		to := bb.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir+1), to))
	}
	for bb := attackR &^ promoRank; bb != 0; {
		to := bb.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir-1), to))
	}

	// Promotions, capturing and pushing, queen through knight.
	for bb := attackL & promoRank; bb != 0; {
		to := bb.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir+1), to)
	}
	for bb := attackR & promoRank; bb != 0; {
		to := bb.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir-1), to)
	}
	for bb := push1 & promoRank; bb != 0; {
		to := bb.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir), to)
	}

	// Pushes onto the seventh rank count as noisy for ordering.
	for bb := push1 & seventhRank; bb != 0; {
		to := bb.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir), to))
	}

	// En passant.
	if p.EnPassant != NoSquare {
		epBB := SquareBB(p.EnPassant)
		var epAttackers Bitboard
		if us == White {
			epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
		} else {
			epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
		}
		for epAttackers != 0 {
			ml.Add(NewEnPassant(epAttackers.PopLSB(), p.EnPassant))
		}
	}
}

func (p *Position) generatePawnQuiet(ml *MoveList, us Color, empty Bitboard) {
	pawns := p.Pieces[us][Pawn]

	var push1, push2 Bitboard
	var promoRank, seventhRank Bitboard
	var pushDir int
	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		promoRank = Rank8
		seventhRank = Rank7
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		promoRank = Rank1
		seventhRank = Rank2
		pushDir = -8
	}

	for bb := push1 &^ (promoRank | seventhRank); bb != 0; {
		to := bb.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir), to))
	}
	for push2 != 0 {
		to := push2.PopLSB()
		ml.Add(NewMove(Square(int(to)-2*pushDir), to))
	}
}

func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

// generateCastlingMoves appends castling moves whose path is clear
// and unattacked. Castling legality is fully decided here; the
// make-then-test filter never rejects one.
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	them := us.Other()

	if us == White {
		if p.CastlingRights&WhiteKingSideCastle != 0 &&
			p.AllOccupied&(SquareBB(F1)|SquareBB(G1)) == 0 &&
			!p.IsSquareAttacked(E1, them) && !p.IsSquareAttacked(F1, them) && !p.IsSquareAttacked(G1, them) {
			ml.Add(NewCastling(E1, G1))
		}
		if p.CastlingRights&WhiteQueenSideCastle != 0 &&
			p.AllOccupied&(SquareBB(B1)|SquareBB(C1)|SquareBB(D1)) == 0 &&
			!p.IsSquareAttacked(E1, them) && !p.IsSquareAttacked(D1, them) && !p.IsSquareAttacked(C1, them) {
			ml.Add(NewCastling(E1, C1))
		}
	} else {
		if p.CastlingRights&BlackKingSideCastle != 0 &&
			p.AllOccupied&(SquareBB(F8)|SquareBB(G8)) == 0 &&
			!p.IsSquareAttacked(E8, them) && !p.IsSquareAttacked(F8, them) && !p.IsSquareAttacked(G8, them) {
			ml.Add(NewCastling(E8, G8))
		}
		if p.CastlingRights&BlackQueenSideCastle != 0 &&
			p.AllOccupied&(SquareBB(B8)|SquareBB(C8)|SquareBB(D8)) == 0 &&
			!p.IsSquareAttacked(E8, them) && !p.IsSquareAttacked(D8, them) && !p.IsSquareAttacked(C8, them) {
			ml.Add(NewCastling(E8, C8))
		}
	}
}

// filterLegalMoves drops moves that leave the own king in check.
func (p *Position) filterLegalMoves(ml *MoveList) *MoveList {
	result := &MoveList{}
	for i := 0; i < ml.Len(); i++ {
		if p.IsLegal(ml.Get(i)) {
			result.Add(ml.Get(i))
		}
	}
	return result
}

// IsLegal reports whether a pseudo-legal move leaves the own king
// safe, by making it and testing.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]

	// King moves: test the destination with the king lifted off, so
	// sliding attacks through the king's old square count.
	if m.From() == ksq {
		if m.IsCastling() {
			return true // fully validated at generation
		}
		occ := p.AllOccupied &^ SquareBB(ksq)
		return p.AttackersByColor(m.To(), them, occ) == 0
	}

	undo := p.MakeMove(m)
	attacked := p.IsSquareAttacked(ksq, them)
	p.UnmakeMove(m, undo)
	return !attacked
}

// PseudoLegal reports whether the move could have been generated for
// this position. The transposition table and the history tables hand
// the search moves from other positions (hash collisions, stale
// entries); this is the gate that rejects them.
func (p *Position) PseudoLegal(m Move) bool {
	if m == NoMove {
		return false
	}
	us := p.SideToMove
	from, to := m.From(), m.To()
	piece := p.PieceAt(from)
	if piece == NoPiece || piece.Color() != us {
		return false
	}
	if p.Occupied[us]&SquareBB(to) != 0 {
		return false
	}
	pt := piece.Type()

	if m.IsCastling() {
		if pt != King {
			return false
		}
		ml := MoveList{}
		p.generateCastlingMoves(&ml, us)
		return ml.Contains(m)
	}

	if m.IsEnPassant() {
		return pt == Pawn && to == p.EnPassant &&
			PawnAttacks(from, us)&SquareBB(to) != 0
	}

	if pt == Pawn {
		promoRank := 7
		if us == Black {
			promoRank = 0
		}
		if m.IsPromotion() != (to.Rank() == promoRank) {
			return false
		}
		if PawnAttacks(from, us)&SquareBB(to) != 0 {
			return p.Occupied[us.Other()]&SquareBB(to) != 0
		}
		// Pushes must stay on the file and cross empty squares.
		dir := 8
		startRank := 1
		if us == Black {
			dir = -8
			startRank = 6
		}
		if int(to)-int(from) == dir {
			return p.IsEmpty(to)
		}
		if int(to)-int(from) == 2*dir {
			mid := Square(int(from) + dir)
			return from.Rank() == startRank && p.IsEmpty(mid) && p.IsEmpty(to)
		}
		return false
	}

	if m.IsPromotion() {
		return false
	}

	var attacks Bitboard
	switch pt {
	case Knight:
		attacks = KnightAttacks(from)
	case Bishop:
		attacks = BishopAttacks(from, p.AllOccupied)
	case Rook:
		attacks = RookAttacks(from, p.AllOccupied)
	case Queen:
		attacks = QueenAttacks(from, p.AllOccupied)
	case King:
		attacks = KingAttacks(from)
	}
	return attacks&SquareBB(to) != 0
}

// HasLegalMoves returns true if the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	ml := p.GeneratePseudoLegalMoves()
	for i := 0; i < ml.Len(); i++ {
		if p.IsLegal(ml.Get(i)) {
			return true
		}
	}
	return false
}

// IsCheckmate returns true if the side to move is mated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the side to move is stalemated.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}
