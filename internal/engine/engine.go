package engine

import (
	"context"
	"math/bits"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seekerror/logw"

	"github.com/marlinchess/marlin/internal/board"
	"github.com/marlinchess/marlin/internal/book"
	"github.com/marlinchess/marlin/internal/tablebase"
)

// SearchInfo is the per-iteration report sent to the protocol layer.
type SearchInfo struct {
	Depth    int
	Seldepth int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int
}

// Engine drives the Lazy-SMP search: the main worker owns iterative
// deepening, deadlines and output; helpers run the same loop from
// staggered depths and contribute only through the shared
// transposition table.
type Engine struct {
	tt      *TranspositionTable
	workers []*Worker

	stopFlag atomic.Bool

	book       *book.Book
	tablebase  tablebase.Prober
	probeDepth int

	overhead time.Duration

	rootHistory []uint64

	// OnInfo, when set, receives one report per completed iteration
	// of the main worker.
	OnInfo func(SearchInfo)
}

// NewEngine creates an engine with the given hash size and worker
// count.
func NewEngine(hashMB, threads int) *Engine {
	e := &Engine{
		tt:       NewTranspositionTable(hashMB),
		overhead: 10 * time.Millisecond,
	}
	e.SetThreads(threads)
	return e
}

// SetThreads resizes the worker pool.
func (e *Engine) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	e.workers = make([]*Worker, n)
	for i := range e.workers {
		e.workers[i] = NewWorker(i, e.tt, &e.stopFlag)
		if e.tablebase != nil {
			e.workers[i].SetTablebase(e.tablebase, e.probeDepth)
		}
	}
}

// SetHashSize reallocates the transposition table.
func (e *Engine) SetHashSize(mb int) {
	e.tt.Resize(mb)
}

// SetMoveOverhead sets the per-move communication allowance.
func (e *Engine) SetMoveOverhead(d time.Duration) {
	e.overhead = d
}

// SetBook installs an opening book.
func (e *Engine) SetBook(b *book.Book) {
	e.book = b
}

// SetTablebase installs an endgame tablebase prober.
func (e *Engine) SetTablebase(tb tablebase.Prober, probeDepth int) {
	e.tablebase = tb
	e.probeDepth = probeDepth
	for _, w := range e.workers {
		w.SetTablebase(tb, probeDepth)
	}
}

// SetPositionHistory installs the game's hashes for repetition
// detection; the last entry is the root position.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.rootHistory = append(e.rootHistory[:0], hashes...)
}

// NewGame clears the transposition table and every worker's heuristic
// state.
func (e *Engine) NewGame() {
	e.tt.Clear()
	for _, w := range e.workers {
		w.ClearTables()
	}
}

// Stop aborts the current search.
func (e *Engine) Stop() {
	e.stopFlag.Store(true)
}

// Evaluate returns the static evaluation of a position, for the UCI
// eval command.
func (e *Engine) Evaluate(pos *board.Position) int {
	return Evaluate(pos, e.workers[0].pawnTable)
}

// Nodes returns the node total across workers.
func (e *Engine) Nodes() uint64 {
	var total uint64
	for _, w := range e.workers {
		total += w.Nodes()
	}
	return total
}

// Search finds the best move under the given limits. It blocks until
// the search finishes or Stop is called, and always returns a legal
// move when one exists.
func (e *Engine) Search(ctx context.Context, pos *board.Position, limits Limits) board.Move {
	if e.book != nil {
		if m, ok := e.book.Probe(pos); ok {
			logw.Infof(ctx, "book move %v", m)
			return m
		}
	}

	// Root tablebase probe: with few enough pieces and no counters or
	// castling pending, the tablebase move ends the search outright.
	if e.tablebase != nil && pos.HalfMoveClock == 0 &&
		pos.CastlingRights == board.NoCastling &&
		pos.AllOccupied.PopCount() <= e.tablebase.MaxPieces() {
		if result := e.tablebase.ProbeRoot(pos); result.Found && result.Move != board.NoMove {
			logw.Infof(ctx, "tablebase move %v score %d", result.Move, tablebase.RootScore(result))
			return result.Move
		}
	}

	gamePly := 2 * (pos.FullMoveNumber - 1)
	if pos.SideToMove == board.Black {
		gamePly++
	}
	tm := NewTimeManager(limits, pos.SideToMove, gamePly, e.overhead)

	e.stopFlag.Store(false)
	e.tt.NewSearch()

	maxDepth := MaxPly - 1
	if limits.Depth > 0 && limits.Depth < maxDepth {
		maxDepth = limits.Depth
	}

	for _, w := range e.workers {
		w.Reset()
		w.SetRootHistory(e.rootHistory)
		w.InitSearch(pos)
	}
	main := e.workers[0]
	main.timeman = tm

	// Helpers run free: they start deeper by the count of trailing
	// zeros of their index plus one and stop when the flag flips.
	var wg sync.WaitGroup
	stopHelpers := atomic.Bool{}
	for i := 1; i < len(e.workers); i++ {
		w := e.workers[i]
		startDepth := 1 + bits.TrailingZeros(uint(i)) + 1
		if startDepth > maxDepth {
			startDepth = maxDepth
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.iterate(w, startDepth, maxDepth, limits, nil, &stopHelpers)
		}()
	}

	bestMove := e.iterate(main, 1, maxDepth, limits, tm, &stopHelpers)

	stopHelpers.Store(true)
	e.stopFlag.Store(true)
	wg.Wait()
	main.timeman = nil

	if bestMove == board.NoMove {
		// Stopped before depth 1 completed; fall back to any legal
		// move rather than forfeit.
		legal := pos.GenerateLegalMoves()
		if legal.Len() > 0 {
			bestMove = legal.Get(0)
		}
	}
	return bestMove
}

// iterate runs iterative deepening with aspiration windows on one
// worker. For the main worker it reports iterations, enforces the
// soft deadline, and returns the best move of the last completed
// iteration.
func (e *Engine) iterate(w *Worker, startDepth, maxDepth int, limits Limits, tm *TimeManager, stopHelpers *atomic.Bool) board.Move {
	var bestMove, lastBest board.Move
	var prevScore int
	stability := 0
	start := time.Now()

	for depth := startDepth; depth <= maxDepth; depth++ {
		if e.stopFlag.Load() || (!w.main && stopHelpers.Load()) {
			break
		}

		move, score, completed := e.aspirate(w, depth, prevScore)
		if !completed {
			break
		}
		prevScore = score
		bestMove = move

		if !w.main {
			continue
		}

		if move == lastBest {
			stability++
		} else {
			stability = 0
			lastBest = move
		}

		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    depth,
				Seldepth: w.Seldepth(),
				Score:    score,
				Nodes:    e.Nodes(),
				Time:     time.Since(start),
				PV:       w.PV(),
				HashFull: e.tt.HashFull(),
			})
		}

		// Stop conditions: a proven mate, the node budget, the soft
		// deadline weighted by best-move stability.
		if abs(score) >= MinMate {
			break
		}
		if limits.Nodes > 0 && e.Nodes() >= limits.Nodes {
			break
		}
		if tm != nil && tm.SoftExpired(stability) {
			break
		}
	}

	if w.main {
		e.stopFlag.Store(true)
	}
	return bestMove
}

// aspirate searches one depth inside an aspiration window around the
// previous score, widening on failure until the score fits. Returns
// completed=false when the iteration was aborted.
func (e *Engine) aspirate(w *Worker, depth, prevScore int) (board.Move, int, bool) {
	alpha, beta := -Infinity, Infinity
	delta := 25

	if depth >= 5 {
		alpha = max(-Infinity, prevScore-delta)
		beta = min(Infinity, prevScore+delta)
	}

	var move board.Move
	var score int
	for {
		move, score = w.SearchRoot(depth, alpha, beta)
		if e.stopFlag.Load() && move == board.NoMove {
			return board.NoMove, 0, false
		}
		if e.stopFlag.Load() {
			// The window result may be from a truncated search; keep
			// the move only if the iteration finished inside it.
			return move, score, score > alpha && score < beta
		}

		if score <= alpha {
			beta = (alpha + beta) / 2
			alpha = max(-Infinity, alpha-delta)
		} else if score >= beta {
			beta = min(Infinity, beta+delta)
		} else {
			return move, score, true
		}
		delta *= 2
		if delta > 2*Infinity {
			alpha, beta = -Infinity, Infinity
		}
	}
}

// Perft counts leaf nodes to the given depth, for move generator
// validation from the protocol layer.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
	}
	return nodes
}
