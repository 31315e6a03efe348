package board

// Score is a tapered evaluation term: a middlegame and an endgame
// component carried together. The final blend by game phase happens
// once, at the end of evaluation.
type Score struct {
	Mg, Eg int32
}

// S builds a tapered score.
func S(mg, eg int32) Score {
	return Score{Mg: mg, Eg: eg}
}

// Add returns a + b.
func (a Score) Add(b Score) Score {
	return Score{a.Mg + b.Mg, a.Eg + b.Eg}
}

// Sub returns a - b.
func (a Score) Sub(b Score) Score {
	return Score{a.Mg - b.Mg, a.Eg - b.Eg}
}

// Neg returns -a.
func (a Score) Neg() Score {
	return Score{-a.Mg, -a.Eg}
}

// Scale returns a*n.
func (a Score) Scale(n int32) Score {
	return Score{a.Mg * n, a.Eg * n}
}

// Taper blends the two components by phase. Phase 0 is a full
// middlegame, 256 a bare endgame.
func (a Score) Taper(phase int) int {
	return (int(a.Mg)*(256-phase) + int(a.Eg)*phase) >> 8
}

// MaterialValue holds the tapered material weights per piece type.
var MaterialValue = [6]Score{
	{100, 128},  // Pawn
	{420, 406},  // Knight
	{442, 442},  // Bishop
	{610, 666},  // Rook
	{1276, 1280}, // Queen
	{0, 0},      // King
}

// SeeValue holds scalar piece values for exchange evaluation and
// pruning margins.
var SeeValue = [7]int{100, 420, 442, 610, 1276, 20000, 0}

// PhaseWeight maps a piece type to its contribution to the game
// phase. The weights sum to 256 over the full non-pawn starting
// material: 2 queens, 4 rooks, 4 bishops, 4 knights.
var PhaseWeight = [6]int{0, 10, 12, 22, 40, 0}

// Piece-square tables, one half-board (files a-d) per rank from rank 1
// to rank 8; files e-h mirror horizontally. Entries are from White's
// view and flipped vertically for Black.
var pawnPSQT = [32]Score{
	{0, 0}, {0, 0}, {0, 0}, {0, 0},
	{-7, 5}, {5, 3}, {-6, 6}, {2, 10},
	{-11, 3}, {-5, 2}, {4, -3}, {9, -4},
	{-9, 8}, {-3, 4}, {6, -4}, {18, -8},
	{-4, 16}, {4, 14}, {10, 4}, {22, -2},
	{6, 44}, {18, 40}, {28, 28}, {34, 22},
	{52, 90}, {60, 84}, {62, 70}, {66, 58},
	{0, 0}, {0, 0}, {0, 0}, {0, 0},
}

var knightPSQT = [32]Score{
	{-52, -40}, {-14, -28}, {-22, -18}, {-16, -10},
	{-18, -24}, {-16, -12}, {-4, -12}, {4, -2},
	{-12, -20}, {0, -8}, {8, 0}, {14, 12},
	{-6, -8}, {8, 2}, {20, 14}, {24, 22},
	{2, -6}, {12, 4}, {30, 16}, {34, 24},
	{-8, -14}, {18, -2}, {36, 10}, {44, 16},
	{-26, -22}, {-10, -8}, {24, -4}, {28, 10},
	{-110, -46}, {-48, -24}, {-30, -10}, {-14, -8},
}

var bishopPSQT = [32]Score{
	{-10, -20}, {4, -8}, {-4, -10}, {-8, -2},
	{8, -16}, {12, -8}, {12, -4}, {2, 4},
	{2, -6}, {12, 0}, {12, 6}, {12, 12},
	{-2, -4}, {4, 2}, {10, 10}, {20, 12},
	{-8, 0}, {6, 6}, {12, 8}, {24, 14},
	{-12, 2}, {8, 6}, {18, 6}, {16, 8},
	{-24, -4}, {-16, 2}, {-6, 4}, {-4, 6},
	{-40, -12}, {-28, -4}, {-24, 0}, {-20, 0},
}

var rookPSQT = [32]Score{
	{-16, -12}, {-10, -8}, {-4, -6}, {2, -10},
	{-26, -10}, {-10, -10}, {-8, -6}, {-2, -8},
	{-20, -6}, {-10, -4}, {-6, -4}, {-4, -4},
	{-16, 2}, {-8, 2}, {-10, 4}, {-4, 0},
	{-8, 6}, {0, 4}, {6, 6}, {10, 4},
	{-4, 8}, {10, 6}, {16, 6}, {18, 6},
	{2, 10}, {6, 12}, {20, 10}, {24, 10},
	{6, 8}, {10, 8}, {14, 10}, {16, 10},
}

var queenPSQT = [32]Score{
	{0, -36}, {-4, -28}, {0, -24}, {8, -20},
	{-4, -24}, {4, -18}, {10, -14}, {10, -6},
	{-4, -12}, {4, -6}, {8, 0}, {6, 4},
	{0, -2}, {4, 8}, {6, 12}, {4, 22},
	{-2, 6}, {2, 14}, {4, 22}, {4, 32},
	{-6, 2}, {4, 10}, {6, 20}, {8, 28},
	{-12, 4}, {-20, 18}, {0, 18}, {2, 26},
	{-20, -6}, {-10, 4}, {-6, 12}, {-2, 16},
}

var kingPSQT = [32]Score{
	{46, -66}, {56, -38}, {18, -26}, {2, -40},
	{42, -30}, {40, -14}, {6, 0}, {-16, 6},
	{-14, -22}, {16, -2}, {-22, 14}, {-36, 22},
	{-32, -18}, {-8, 4}, {-34, 22}, {-52, 32},
	{-26, -8}, {-4, 14}, {-26, 28}, {-40, 36},
	{-14, -2}, {6, 22}, {-14, 30}, {-24, 34},
	{-18, -10}, {0, 14}, {-12, 22}, {-18, 24},
	{-30, -48}, {-16, -18}, {-22, -6}, {-28, 0},
}

// psqt is the expanded [color][piece][square] table built at init.
var psqt [2][6][64]Score

func init() {
	half := [6]*[32]Score{&pawnPSQT, &knightPSQT, &bishopPSQT, &rookPSQT, &queenPSQT, &kingPSQT}
	for pt := Pawn; pt <= King; pt++ {
		for sq := A1; sq <= H8; sq++ {
			file := sq.File()
			if file > 3 {
				file = 7 - file
			}
			s := half[pt][sq.Rank()*4+file]
			psqt[White][pt][sq] = s
			psqt[Black][pt][sq.Mirror()] = s
		}
	}
}

// PSQTValue returns the piece-square bonus for a piece of the given
// color standing on sq, from White's perspective for White and from
// Black's (pre-flipped) for Black.
func PSQTValue(c Color, pt PieceType, sq Square) Score {
	return psqt[c][pt][sq]
}
