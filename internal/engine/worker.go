package engine

import (
	"math"
	"sync/atomic"

	"github.com/marlinchess/marlin/internal/board"
	"github.com/marlinchess/marlin/internal/tablebase"
)

// lmrTable holds the precomputed late-move reduction base, indexed by
// depth and by the number of moves already searched.
var lmrTable [64][64]int

func init() {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmrTable[d][m] = int(0.75 + math.Log(float64(d))*math.Log(float64(m))/2.25)
		}
	}
}

// lmpThreshold returns the move count after which quiet moves are
// pruned at a shallow depth.
func lmpThreshold(depth int, improving bool) int {
	n := 3 + depth*depth
	if !improving {
		n /= 2
	}
	return n
}

// PVTable is the triangular principal-variation store.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// plyState is the per-ply search stack entry.
type plyState struct {
	currentMove board.Move
	movedPiece  board.Piece
	contHist    *PieceToHistory
}

// Worker is one Lazy-SMP search thread. Workers share only the
// transposition table; position, histories, pawn table and counters
// are private.
type Worker struct {
	id  int
	pos *board.Position

	tt        *TranspositionTable
	pawnTable *PawnTable
	hist      *HistoryTables

	stack     [MaxPly]plyState
	evalStack [MaxPly]int
	pv        PVTable

	// Game history plus the hashes pushed during the current line,
	// for repetition detection.
	posHistory    [MaxPly + 640]uint64
	posHistoryLen int
	rootHistory   []uint64

	nodes    uint64
	seldepth int

	stopFlag *atomic.Bool
	timeman  *TimeManager // nil on helper workers
	main     bool

	tbProber     tablebase.Prober
	tbProbeDepth int
}

// NewWorker creates a search worker sharing the given table.
func NewWorker(id int, tt *TranspositionTable, stopFlag *atomic.Bool) *Worker {
	return &Worker{
		id:        id,
		tt:        tt,
		pawnTable: NewPawnTable(2),
		hist:      NewHistoryTables(),
		stopFlag:  stopFlag,
		main:      id == 0,
	}
}

// SetTablebase configures endgame tablebase probing.
func (w *Worker) SetTablebase(prober tablebase.Prober, probeDepth int) {
	w.tbProber = prober
	if probeDepth < 1 {
		probeDepth = 1
	}
	w.tbProbeDepth = probeDepth
}

// SetRootHistory installs the game's position hashes for repetition
// detection.
func (w *Worker) SetRootHistory(hashes []uint64) {
	w.rootHistory = append(w.rootHistory[:0], hashes...)
}

// Nodes returns the nodes searched since the last reset.
func (w *Worker) Nodes() uint64 {
	return w.nodes
}

// Seldepth returns the deepest ply reached, quiescence included.
func (w *Worker) Seldepth() int {
	return w.seldepth
}

// Reset prepares the worker for a new search.
func (w *Worker) Reset() {
	w.nodes = 0
	w.seldepth = 0
}

// ClearTables clears the heuristic tables for a new game.
func (w *Worker) ClearTables() {
	w.hist.Clear()
	w.pawnTable.Clear()
}

// InitSearch binds the worker to its private position copy.
func (w *Worker) InitSearch(pos *board.Position) {
	w.pos = pos.Copy()

	n := len(w.rootHistory)
	if n > 640 {
		copy(w.posHistory[:640], w.rootHistory[n-640:])
		n = 640
	} else {
		copy(w.posHistory[:n], w.rootHistory)
	}
	w.posHistory[n] = w.pos.Hash
	w.posHistoryLen = n + 1
}

// PV returns the principal variation of the last completed root
// search.
func (w *Worker) PV() []board.Move {
	pv := make([]board.Move, w.pv.length[0])
	copy(pv, w.pv.moves[0][:w.pv.length[0]])
	return pv
}

// SearchRoot runs one full-depth search from the root with the given
// window and returns the best move and score.
func (w *Worker) SearchRoot(depth, alpha, beta int) (board.Move, int) {
	score := w.negamax(depth, 0, alpha, beta, board.NoMove, board.NoMove, false)

	var best board.Move
	if w.pv.length[0] > 0 {
		best = w.pv.moves[0][0]
	}
	return best, score
}

// stopped polls the abort state. The main worker also enforces the
// hard deadline here, every 1024 nodes.
func (w *Worker) stopped() bool {
	if w.stopFlag.Load() {
		return true
	}
	if w.main && w.timeman != nil && w.nodes&1023 == 0 && w.timeman.HardExpired() {
		w.stopFlag.Store(true)
		return true
	}
	return false
}

// isDraw reports fifty-move, insufficient material, and repetition
// draws. A single repetition inside the search line counts: the
// opponent can force the threefold.
func (w *Worker) isDraw() bool {
	if w.pos.HalfMoveClock >= 100 {
		return true
	}
	if w.pos.IsInsufficientMaterial() {
		return true
	}
	hash := w.pos.Hash
	count := 0
	for i := 0; i < w.posHistoryLen; i++ {
		if w.posHistory[i] == hash {
			count++
			if count >= 2 {
				return true
			}
		}
	}
	return false
}

// negamax is the alpha-beta principal-variation search. excluded is
// the move skipped during a singular-extension probe; cutNode marks
// nodes expected to fail high.
func (w *Worker) negamax(depth, ply, alpha, beta int, prevMove, excluded board.Move, cutNode bool) int {
	if ply >= MaxPly-1 {
		return Evaluate(w.pos, w.pawnTable)
	}
	if w.stopped() {
		return 0
	}
	w.nodes++

	isPV := beta-alpha > 1
	w.pv.length[ply] = ply

	if ply > 0 {
		if w.isDraw() {
			return 0
		}

		// Mate distance pruning: even an immediate mate here cannot
		// improve on a shorter mate already found.
		alpha = max(alpha, -MateScore+ply)
		beta = min(beta, MateScore-ply-1)
		if alpha >= beta {
			return alpha
		}
	}

	inCheck := w.pos.InCheck()
	if inCheck {
		depth++
	}
	if depth <= 0 {
		return w.quiescence(ply, alpha, beta)
	}

	// Endgame tablebase probe: exact WDL for low-piece positions with
	// no capture or pawn progress pending and castling gone.
	if ply > 0 && excluded == board.NoMove && w.tbProber != nil &&
		depth >= w.tbProbeDepth && w.pos.HalfMoveClock == 0 &&
		w.pos.CastlingRights == board.NoCastling &&
		w.pos.AllOccupied.PopCount() <= w.tbProber.MaxPieces() {
		if result := w.tbProber.Probe(w.pos); result.Found {
			score := tablebase.WDLToScore(result.WDL, ply)
			w.tt.Store(w.pos.Hash, MaxPly-1, ScoreToTT(score, ply), BoundExact, board.NoMove)
			return score
		}
	}

	// Transposition table probe, skipped under a singular exclusion
	// because the cached result includes the excluded move.
	var ttMove board.Move
	var ttEntry TTEntry
	ttHit := false
	if excluded == board.NoMove {
		ttEntry, ttHit = w.tt.Probe(w.pos.Hash)
		if ttHit {
			ttMove = ttEntry.BestMove
			if ttMove != board.NoMove && !w.pos.PseudoLegal(ttMove) {
				ttMove = board.NoMove
			}
			if ply > 0 && int(ttEntry.Depth) >= depth {
				score := ScoreFromTT(int(ttEntry.Score), ply)
				switch ttEntry.Bound {
				case BoundExact:
					return score
				case BoundLower:
					if score >= beta {
						return score
					}
				case BoundUpper:
					if score <= alpha {
						return score
					}
				}
			}
		}
	}

	// Internal iterative reduction: a deep node with no TT entry is
	// cheaper to redo one ply shallower than to search blind.
	if depth >= 6 && !ttHit && ply > 0 && !inCheck {
		depth--
	}

	// Static evaluation feeds the pruning gates and the improving
	// flag. In check there is no meaningful stand-pat; in a singular
	// re-search the value from the outer call is still on the stack.
	staticEval := -Infinity
	if !inCheck {
		if excluded != board.NoMove {
			staticEval = w.evalStack[ply]
		} else {
			staticEval = Evaluate(w.pos, w.pawnTable)
			w.evalStack[ply] = staticEval
		}
	}
	improving := !inCheck && ply >= 2 && staticEval > w.evalStack[ply-2]

	// Whole-node pruning. None of it is sound in check, at the root,
	// in a PV node, near mate scores, or under a singular exclusion.
	pruningOK := !inCheck && !isPV && ply > 0 && excluded == board.NoMove &&
		abs(beta) < MinMate

	if pruningOK {
		// Reverse futility: a static eval still over beta after a
		// generous depth margin will not come back down.
		margin := 70 * depth
		if improving {
			margin -= 25
		}
		if depth <= 8 && staticEval-margin >= beta {
			return staticEval
		}

		// Alpha futility: hopelessly below alpha at shallow depth.
		if depth <= 5 && staticEval+3000 <= alpha {
			return staticEval
		}

		// Razoring: close to the horizon and far below alpha, verify
		// with quiescence and trust a confirming fail-low.
		if depth < 3 && staticEval+180*depth < alpha {
			score := w.quiescence(ply, alpha, beta)
			if score <= alpha {
				return score
			}
		}

		// Null move: hand the opponent a free move; if the reduced
		// search still fails high the position is good enough to cut.
		// Unsound without real material (zugzwang) and directly after
		// another null move.
		if depth >= 3 && staticEval >= beta && prevMove != board.NoMove &&
			w.pos.HasNonPawnMaterial() {
			r := 4 + depth/6 + min(3, (staticEval-beta)/300)
			undo := w.pos.MakeNullMove()
			w.posHistory[w.posHistoryLen] = w.pos.Hash
			w.posHistoryLen++
			score := -w.negamax(depth-r, ply+1, -beta, -beta+1, board.NoMove, board.NoMove, !cutNode)
			w.posHistoryLen--
			w.pos.UnmakeNullMove(undo)
			if score >= beta {
				if score >= MinMate {
					score = beta // do not trust null-move mates
				}
				return score
			}
		}
	}

	// Singular extension probe, sharing one re-search with multi-cut:
	// exclude the TT move and search at half depth below its score.
	// If everything else fails low the TT move is singular and gets
	// extended; if even the rest clears beta, several moves beat it
	// and the node cuts immediately.
	singular := false
	if depth >= 8 && ply > 0 && excluded == board.NoMove && ttHit &&
		ttMove != board.NoMove && int(ttEntry.Depth) >= depth-3 &&
		(ttEntry.Bound == BoundLower || ttEntry.Bound == BoundExact) {
		ttVal := ScoreFromTT(int(ttEntry.Score), ply)
		if abs(ttVal) < MinMate {
			target := ttVal - 2*depth
			score := w.negamax((depth-1)/2, ply, target-1, target, prevMove, ttMove, cutNode)
			if score < target {
				singular = true
			} else if target >= beta {
				return beta
			}
		}
	}

	picker := NewMovePicker(w.pos, w.hist, ply, ttMove, prevMove)

	var quietsTried [64]board.Move
	quietCount := 0
	movesSearched := 0
	bestScore := -Infinity
	bestMove := board.NoMove
	bound := BoundUpper

	us := w.pos.SideToMove
	them := us.Other()

	for m := picker.Next(); m != board.NoMove; m = picker.Next() {
		if m == excluded {
			continue
		}

		quiet := !m.IsNoisy(w.pos)
		piece := w.pos.PieceAt(m.From())

		// Shallow-depth move pruning, once a best move exists.
		if ply > 0 && quiet && bestScore > -MinMate && !inCheck {
			if depth <= 8 && movesSearched >= lmpThreshold(depth, improving) {
				continue
			}
			if depth <= 6 && movesSearched > 0 && staticEval+100+90*depth <= alpha {
				continue
			}
			hist := w.hist.HistoryScore(piece, m.To())
			if depth <= 3 && movesSearched > 0 && hist < -2000 {
				continue
			}
			if depth <= 3 && movesSearched > 0 {
				ch1 := ContHistScore(w.contHistAt(ply-1), piece, m.To())
				ch2 := ContHistScore(w.contHistAt(ply-2), piece, m.To())
				if ch1 < -1500 && ch2 < -1500 {
					continue
				}
			}
		}

		undo := w.pos.MakeMove(m)
		if w.pos.IsSquareAttacked(w.pos.KingSquare[us], them) {
			w.pos.UnmakeMove(m, undo)
			continue
		}

		w.stack[ply] = plyState{
			currentMove: m,
			movedPiece:  piece,
			contHist:    w.hist.ContHist(piece, m.To()),
		}
		w.posHistory[w.posHistoryLen] = w.pos.Hash
		w.posHistoryLen++
		movesSearched++

		newDepth := depth - 1
		if singular && m == ttMove {
			newDepth++
		}

		var score int
		if movesSearched == 1 {
			score = -w.negamax(newDepth, ply+1, -beta, -alpha, m, board.NoMove, false)
		} else {
			// Late-move reduction for quiets beyond the first few.
			r := 0
			if quiet && depth >= 3 && movesSearched > 3 && !inCheck {
				r = lmrTable[min(depth, 63)][min(movesSearched, 63)]
				if !improving {
					r++
				}
				if isPV {
					r--
				}
				if m == picker.killer1 || m == picker.killer2 || m == picker.counter {
					r--
				}
				hist := w.hist.HistoryScore(piece, m.To())
				if hist > 4000 {
					r--
				} else if hist < -4000 {
					r++
				}
				if r < 0 {
					r = 0
				}
				if r > newDepth-1 {
					r = newDepth - 1
				}
			}

			score = -w.negamax(newDepth-r, ply+1, -alpha-1, -alpha, m, board.NoMove, true)
			if score > alpha && r > 0 {
				score = -w.negamax(newDepth, ply+1, -alpha-1, -alpha, m, board.NoMove, !cutNode)
			}
			if isPV && score > alpha && score < beta {
				score = -w.negamax(newDepth, ply+1, -beta, -alpha, m, board.NoMove, false)
			}
		}

		w.posHistoryLen--
		w.pos.UnmakeMove(m, undo)

		if w.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = m

			if score > alpha {
				alpha = score
				bound = BoundExact

				w.pv.moves[ply][ply] = m
				copy(w.pv.moves[ply][ply+1:w.pv.length[ply+1]], w.pv.moves[ply+1][ply+1:w.pv.length[ply+1]])
				w.pv.length[ply] = w.pv.length[ply+1]
			}
		}

		if score >= beta {
			if quiet {
				w.updateQuietHeuristics(m, piece, prevMove, ply, depth, quietsTried[:quietCount])
			}
			if excluded == board.NoMove {
				w.tt.Store(w.pos.Hash, depth, ScoreToTT(score, ply), BoundLower, bestMove)
			}
			return beta
		}

		if quiet && quietCount < len(quietsTried) {
			quietsTried[quietCount] = m
			quietCount++
		}
	}

	if movesSearched == 0 {
		if excluded != board.NoMove {
			// Every move was excluded or pruned in the singular
			// probe; report a fail-low for it.
			return alpha
		}
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	if excluded == board.NoMove {
		w.tt.Store(w.pos.Hash, depth, ScoreToTT(bestScore, ply), bound, bestMove)
	}
	return bestScore
}

// contHistAt returns the continuation history table installed at an
// earlier ply, or nil past the root.
func (w *Worker) contHistAt(ply int) *PieceToHistory {
	if ply < 0 {
		return nil
	}
	return w.stack[ply].contHist
}

// updateQuietHeuristics rewards a quiet fail-high move in every
// ordering table and penalizes the quiets tried before it.
func (w *Worker) updateQuietHeuristics(m board.Move, piece board.Piece, prevMove board.Move, ply, depth int, earlier []board.Move) {
	w.hist.UpdateKillers(m, ply)
	w.hist.UpdateHistory(piece, m.To(), depth, true)

	if prevMove != board.NoMove {
		prevPiece := w.pos.PieceAt(prevMove.To())
		w.hist.UpdateCounterMove(prevPiece, prevMove.To(), m)
	}
	UpdateContHist(w.contHistAt(ply-1), piece, m.To(), depth, true)
	UpdateContHist(w.contHistAt(ply-2), piece, m.To(), depth, true)

	for _, q := range earlier {
		qPiece := w.pos.PieceAt(q.From())
		w.hist.UpdateHistory(qPiece, q.To(), depth, false)
		UpdateContHist(w.contHistAt(ply-1), qPiece, q.To(), depth, false)
		UpdateContHist(w.contHistAt(ply-2), qPiece, q.To(), depth, false)
	}
}

// quiescence resolves captures and promotions below the horizon so
// the static evaluation is only ever taken in quiet positions.
func (w *Worker) quiescence(ply, alpha, beta int) int {
	if ply >= MaxPly-1 {
		return Evaluate(w.pos, w.pawnTable)
	}
	if w.stopped() {
		return 0
	}
	w.nodes++
	if ply > w.seldepth {
		w.seldepth = ply
	}

	originalAlpha := alpha

	var ttMove board.Move
	if ttEntry, ok := w.tt.Probe(w.pos.Hash); ok {
		ttMove = ttEntry.BestMove
		score := ScoreFromTT(int(ttEntry.Score), ply)
		switch ttEntry.Bound {
		case BoundExact:
			return score
		case BoundLower:
			if score >= beta {
				return score
			}
		case BoundUpper:
			if score <= alpha {
				return score
			}
		}
	}

	inCheck := w.pos.InCheck()

	// In check every evasion is searched and there is no stand-pat.
	if inCheck {
		return w.quiescenceEvasions(ply, alpha, beta)
	}

	standPat := Evaluate(w.pos, w.pawnTable)
	if standPat >= beta {
		return standPat
	}
	if standPat > alpha {
		alpha = standPat
	}
	// Even winning a queen cannot bring this position back to alpha.
	if standPat+board.SeeValue[board.Queen]+200 < alpha {
		return standPat
	}

	bestScore := standPat
	bestMove := board.NoMove
	us := w.pos.SideToMove
	them := us.Other()

	picker := NewQuiescencePicker(w.pos, w.hist, ttMove)
	for m := picker.Next(); m != board.NoMove; m = picker.Next() {
		// Delta pruning: the captured material plus a margin still
		// leaves the score under alpha. Unsafe in won-material-only
		// endings, where any capture can change the result class.
		if !m.IsPromotion() && w.pos.HasNonPawnMaterial() {
			captured := board.Pawn
			if !m.IsEnPassant() {
				if victim := w.pos.PieceAt(m.To()); victim != board.NoPiece {
					captured = victim.Type()
				}
			}
			if standPat+board.SeeValue[captured]+200 <= alpha {
				continue
			}
		}

		undo := w.pos.MakeMove(m)
		if w.pos.IsSquareAttacked(w.pos.KingSquare[us], them) {
			w.pos.UnmakeMove(m, undo)
			continue
		}
		score := -w.quiescence(ply+1, -beta, -alpha)
		w.pos.UnmakeMove(m, undo)

		if w.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				if alpha >= beta {
					break
				}
			}
		}
	}

	bound := BoundUpper
	if bestScore >= beta {
		bound = BoundLower
	} else if bestScore > originalAlpha {
		bound = BoundExact
	}
	w.tt.Store(w.pos.Hash, 0, ScoreToTT(bestScore, ply), bound, bestMove)

	return bestScore
}

// quiescenceEvasions searches every legal move when in check inside
// quiescence; with no legal move the position is mate.
func (w *Worker) quiescenceEvasions(ply, alpha, beta int) int {
	moves := w.pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		return -MateScore + ply
	}

	bestScore := -Infinity
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := w.pos.MakeMove(m)
		score := -w.quiescence(ply+1, -beta, -alpha)
		w.pos.UnmakeMove(m, undo)

		if w.stopFlag.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				alpha = score
				if alpha >= beta {
					break
				}
			}
		}
	}
	return bestScore
}
