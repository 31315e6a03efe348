package engine

import (
	"github.com/marlinchess/marlin/internal/board"
)

// Move picker stages, in emission order. Each Next call runs the
// machine until a move falls out, so generation and sorting happen
// only when a cutoff has not already ended the node.
type pickStage uint8

const (
	stageTTMove pickStage = iota
	stageGenNoisy
	stageGoodNoisy
	stageKiller1
	stageKiller2
	stageCounter
	stageGenQuiet
	stageQuiet
	stageBadNoisy
	stageDone
)

// Noisy moves score okCaptureOffset+SEE when the exchange does not
// lose material, and below quietOffset when it does, so losing
// captures sink behind every quiet move. Quiets score
// quietOffset+history.
const (
	okCaptureOffset int32 = 1 << 20
	quietOffset     int32 = 0

	underpromoScore int32 = quietOffset + 200
)

// MovePicker yields the moves of one node lazily in heuristic order:
// TT move, winning noisy moves, killers, counter move, quiets by
// history, losing noisy moves.
type MovePicker struct {
	pos  *board.Position
	hist *HistoryTables

	ttMove  board.Move
	killer1 board.Move
	killer2 board.Move
	counter board.Move

	stage     pickStage
	noisyOnly bool

	noisy       board.MoveList
	noisyScores [256]int32
	noisyIdx    int

	quiet       board.MoveList
	quietScores [256]int32
	quietIdx    int
}

// NewMovePicker prepares a picker for a main-search node. prevMove is
// the move that led here, used to look up the counter move.
func NewMovePicker(pos *board.Position, hist *HistoryTables, ply int, ttMove, prevMove board.Move) *MovePicker {
	mp := &MovePicker{
		pos:   pos,
		hist:  hist,
		stage: stageTTMove,
	}
	if pos.PseudoLegal(ttMove) {
		mp.ttMove = ttMove
	}
	mp.killer1, mp.killer2 = hist.Killers(ply)
	if prevMove != board.NoMove {
		prevPiece := pos.PieceAt(prevMove.To())
		mp.counter = hist.CounterMove(prevPiece, prevMove.To())
	}
	return mp
}

// NewQuiescencePicker prepares a picker that emits only the noisy
// moves worth trying in quiescence: the TT move and non-losing
// captures and promotions. Bad noisy moves are never emitted.
func NewQuiescencePicker(pos *board.Position, hist *HistoryTables, ttMove board.Move) *MovePicker {
	mp := &MovePicker{
		pos:       pos,
		hist:      hist,
		stage:     stageTTMove,
		noisyOnly: true,
	}
	if pos.PseudoLegal(ttMove) && ttMove.IsNoisy(pos) {
		mp.ttMove = ttMove
	}
	return mp
}

// Next returns the next move to try, or NoMove when exhausted.
func (mp *MovePicker) Next() board.Move {
	for {
		switch mp.stage {
		case stageTTMove:
			mp.stage = stageGenNoisy
			if mp.ttMove != board.NoMove {
				return mp.ttMove
			}

		case stageGenNoisy:
			mp.pos.GenerateNoisyMoves(&mp.noisy)
			mp.scoreNoisy()
			mp.stage = stageGoodNoisy

		case stageGoodNoisy:
			m := mp.pickBest(&mp.noisy, mp.noisyScores[:], &mp.noisyIdx)
			if m == board.NoMove || mp.noisyScores[mp.noisyIdx-1] < quietOffset {
				if m != board.NoMove {
					mp.noisyIdx-- // leave the losing move for the bad-noisy stage
				}
				if mp.noisyOnly {
					mp.stage = stageDone
				} else {
					mp.stage = stageKiller1
				}
				continue
			}
			if m == mp.ttMove {
				continue
			}
			return m

		case stageKiller1:
			mp.stage = stageKiller2
			if mp.emitQuietSpecial(mp.killer1) {
				return mp.killer1
			}

		case stageKiller2:
			mp.stage = stageCounter
			if mp.killer2 != mp.killer1 && mp.emitQuietSpecial(mp.killer2) {
				return mp.killer2
			}

		case stageCounter:
			mp.stage = stageGenQuiet
			if mp.counter != mp.killer1 && mp.counter != mp.killer2 && mp.emitQuietSpecial(mp.counter) {
				return mp.counter
			}

		case stageGenQuiet:
			mp.pos.GenerateQuietMoves(&mp.quiet)
			mp.scoreQuiet()
			mp.stage = stageQuiet

		case stageQuiet:
			m := mp.pickBest(&mp.quiet, mp.quietScores[:], &mp.quietIdx)
			if m == board.NoMove {
				mp.stage = stageBadNoisy
				continue
			}
			if m == mp.ttMove || m == mp.killer1 || m == mp.killer2 || m == mp.counter {
				continue
			}
			return m

		case stageBadNoisy:
			m := mp.pickBest(&mp.noisy, mp.noisyScores[:], &mp.noisyIdx)
			if m == board.NoMove {
				mp.stage = stageDone
				continue
			}
			if m == mp.ttMove {
				continue
			}
			return m

		case stageDone:
			return board.NoMove
		}
	}
}

// emitQuietSpecial validates a killer or counter move for emission:
// it must exist, be pseudo-legal here, be quiet, not repeat the TT
// move, and not be in the noisy list (pawn pushes to the seventh rank
// are generated there).
func (mp *MovePicker) emitQuietSpecial(m board.Move) bool {
	return m != board.NoMove && m != mp.ttMove &&
		mp.pos.PseudoLegal(m) && !m.IsNoisy(mp.pos) && !mp.noisy.Contains(m)
}

// scoreNoisy scores captures and promotions by static exchange
// evaluation. Underpromotions get a fixed score so they surface after
// the real captures but before the losing ones.
func (mp *MovePicker) scoreNoisy() {
	for i := 0; i < mp.noisy.Len(); i++ {
		m := mp.noisy.Get(i)
		if m.IsPromotion() && m.Promotion() != board.Queen {
			mp.noisyScores[i] = underpromoScore + int32(m.Promotion())
			continue
		}
		see := int32(SEE(mp.pos, m))
		if see >= 0 {
			mp.noisyScores[i] = okCaptureOffset + see
		} else {
			mp.noisyScores[i] = quietOffset - 1 + see
		}
	}
}

// scoreQuiet scores quiet moves by the main history table.
func (mp *MovePicker) scoreQuiet() {
	for i := 0; i < mp.quiet.Len(); i++ {
		m := mp.quiet.Get(i)
		piece := mp.pos.PieceAt(m.From())
		mp.quietScores[i] = quietOffset + mp.hist.HistoryScore(piece, m.To())
	}
}

// pickBest selection-sorts one step: it swaps the best remaining
// entry to *idx and returns it, advancing the index.
func (mp *MovePicker) pickBest(list *board.MoveList, scores []int32, idx *int) board.Move {
	if *idx >= list.Len() {
		return board.NoMove
	}
	best := *idx
	for j := *idx + 1; j < list.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != *idx {
		list.Swap(*idx, best)
		scores[*idx], scores[best] = scores[best], scores[*idx]
	}
	m := list.Get(*idx)
	*idx++
	return m
}
