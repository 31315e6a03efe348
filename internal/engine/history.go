package engine

import (
	"github.com/marlinchess/marlin/internal/board"
)

// PieceToHistory scores (piece, to-square) pairs. Continuation
// history keeps one of these per prior (piece, to-square), which is
// why they are allocated lazily: the full grid is 12*64 of them.
type PieceToHistory [12][64]int32

// HistoryTables holds one worker's move-ordering state: killers per
// ply, the main piece-to history, counter moves, and the two
// continuation histories (counter-move and follow-up).
type HistoryTables struct {
	killers      [MaxPly][2]board.Move
	history      [12][64]int32
	counterMoves [12][64]board.Move
	contHist     [12][64]*PieceToHistory
}

// NewHistoryTables creates empty tables.
func NewHistoryTables() *HistoryTables {
	return &HistoryTables{}
}

// Clear resets killers, counters and history scores and drops the
// continuation histories, so a new game does not inherit stale move
// ordering.
func (h *HistoryTables) Clear() {
	for i := range h.killers {
		h.killers[i][0] = board.NoMove
		h.killers[i][1] = board.NoMove
	}
	for i := range h.counterMoves {
		for j := range h.counterMoves[i] {
			h.counterMoves[i][j] = board.NoMove
		}
	}
	for i := range h.history {
		for j := range h.history[i] {
			h.history[i][j] = 0
		}
	}
	for i := range h.contHist {
		for j := range h.contHist[i] {
			h.contHist[i][j] = nil
		}
	}
}

// gravity applies the self-normalizing history update: the current
// value decays in proportion to the bonus magnitude, keeping every
// entry within +-16384.
func gravity(cur *int32, delta int32) {
	d := delta
	if d < 0 {
		d = -d
	}
	*cur += delta*32 - *cur*d/512
}

// historyBonus maps a search depth to an update magnitude.
func historyBonus(depth int) int32 {
	b := int32(depth) * int32(depth)
	if b > 400 {
		b = 400
	}
	return b
}

// Killers returns the two killer moves for a ply.
func (h *HistoryTables) Killers(ply int) (board.Move, board.Move) {
	return h.killers[ply][0], h.killers[ply][1]
}

// UpdateKillers records a quiet fail-high move at a ply.
func (h *HistoryTables) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly || h.killers[ply][0] == m {
		return
	}
	h.killers[ply][1] = h.killers[ply][0]
	h.killers[ply][0] = m
}

// HistoryScore returns the main history score for a piece moving to a
// square.
func (h *HistoryTables) HistoryScore(piece board.Piece, to board.Square) int32 {
	return h.history[piece][to]
}

// UpdateHistory applies a gravity update to the main history.
func (h *HistoryTables) UpdateHistory(piece board.Piece, to board.Square, depth int, good bool) {
	bonus := historyBonus(depth)
	if !good {
		bonus = -bonus
	}
	gravity(&h.history[piece][to], bonus)
}

// CounterMove returns the stored reply to the previous move.
func (h *HistoryTables) CounterMove(prevPiece board.Piece, prevTo board.Square) board.Move {
	if prevPiece == board.NoPiece {
		return board.NoMove
	}
	return h.counterMoves[prevPiece][prevTo]
}

// UpdateCounterMove records m as the reply to the previous move.
func (h *HistoryTables) UpdateCounterMove(prevPiece board.Piece, prevTo board.Square, m board.Move) {
	if prevPiece == board.NoPiece {
		return
	}
	h.counterMoves[prevPiece][prevTo] = m
}

// ContHist returns the continuation history table for a prior
// (piece, to-square), allocating it on first use.
func (h *HistoryTables) ContHist(piece board.Piece, to board.Square) *PieceToHistory {
	if piece == board.NoPiece {
		return nil
	}
	if h.contHist[piece][to] == nil {
		h.contHist[piece][to] = &PieceToHistory{}
	}
	return h.contHist[piece][to]
}

// ContHistScore reads a continuation history entry, tolerating a nil
// table.
func ContHistScore(t *PieceToHistory, piece board.Piece, to board.Square) int32 {
	if t == nil || piece == board.NoPiece {
		return 0
	}
	return t[piece][to]
}

// UpdateContHist applies a gravity update to a continuation history
// entry.
func UpdateContHist(t *PieceToHistory, piece board.Piece, to board.Square, depth int, good bool) {
	if t == nil || piece == board.NoPiece {
		return
	}
	bonus := historyBonus(depth)
	if !good {
		bonus = -bonus
	}
	gravity(&t[piece][to], bonus)
}
