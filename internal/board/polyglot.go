package board

// Polyglot hashing for opening-book lookups. The key stream differs
// from the engine's internal Zobrist keys; it exists only so book
// probes agree with books produced by other tools using the same
// generator.
var (
	polyglotPieces     [12][64]uint64 // black pieces first, as the format orders them
	polyglotCastling   [4]uint64
	polyglotEnPassant  [8]uint64
	polyglotSideToMove uint64
)

func init() {
	rng := prng{state: 0x37B4A4B3F0D1C0D0}

	for piece := 0; piece < 12; piece++ {
		for sq := 0; sq < 64; sq++ {
			polyglotPieces[piece][sq] = rng.next()
		}
	}
	for i := 0; i < 4; i++ {
		polyglotCastling[i] = rng.next()
	}
	for i := 0; i < 8; i++ {
		polyglotEnPassant[i] = rng.next()
	}
	polyglotSideToMove = rng.next()
}

// PolyglotHash computes the opening-book key for the position.
func (p *Position) PolyglotHash() uint64 {
	var hash uint64

	// Piece ordering in the format: bp bN bB bR bQ bK wP wN wB wR wQ wK.
	pieceKind := [2][6]int{
		{6, 7, 8, 9, 10, 11}, // White
		{0, 1, 2, 3, 4, 5},   // Black
	}

	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			bb := p.Pieces[c][pt]
			for bb != 0 {
				hash ^= polyglotPieces[pieceKind[c][pt]][bb.PopLSB()]
			}
		}
	}

	if p.CastlingRights&WhiteKingSideCastle != 0 {
		hash ^= polyglotCastling[0]
	}
	if p.CastlingRights&WhiteQueenSideCastle != 0 {
		hash ^= polyglotCastling[1]
	}
	if p.CastlingRights&BlackKingSideCastle != 0 {
		hash ^= polyglotCastling[2]
	}
	if p.CastlingRights&BlackQueenSideCastle != 0 {
		hash ^= polyglotCastling[3]
	}

	// The en passant key counts only when a capture is actually
	// possible, matching the book format.
	if p.EnPassant != NoSquare {
		file := p.EnPassant.File()
		capturers := SquareBB(p.EnPassant).PawnCaptures(p.SideToMove.Other()) & p.Pieces[p.SideToMove][Pawn]
		if capturers != 0 {
			hash ^= polyglotEnPassant[file]
		}
	}

	if p.SideToMove == White {
		hash ^= polyglotSideToMove
	}
	return hash
}
