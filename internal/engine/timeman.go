package engine

import (
	"time"

	"github.com/marlinchess/marlin/internal/board"
)

// Limits carries the UCI go-command search constraints.
type Limits struct {
	Time      [2]time.Duration // remaining clock per color
	Inc       [2]time.Duration // increment per color
	MovesToGo int              // moves to the next time control, 0 = sudden death
	MoveTime  time.Duration    // fixed time for this move
	Depth     int              // maximum depth, 0 = none
	Nodes     uint64           // maximum nodes, 0 = none
	Infinite  bool
}

// TimeManager computes and enforces the soft and hard deadlines of a
// search. The soft deadline ends the iterative-deepening loop between
// iterations; the hard deadline aborts mid-search.
type TimeManager struct {
	start    time.Time
	soft     time.Duration
	hard     time.Duration
	limited  bool
	overhead time.Duration
}

// NewTimeManager starts the clock for one search. overhead is the
// per-move communication allowance from the Move Overhead option;
// gamePly estimates how far the game has progressed.
func NewTimeManager(limits Limits, us board.Color, gamePly int, overhead time.Duration) *TimeManager {
	tm := &TimeManager{
		start:    time.Now(),
		overhead: overhead,
	}

	if limits.MoveTime > 0 {
		tm.limited = true
		tm.soft = limits.MoveTime - overhead
		tm.hard = limits.MoveTime - overhead
		if tm.soft < time.Millisecond {
			tm.soft = time.Millisecond
			tm.hard = time.Millisecond
		}
		return tm
	}

	clock := limits.Time[us]
	if limits.Infinite || clock == 0 {
		return tm
	}
	tm.limited = true

	inc := limits.Inc[us]
	mtg := limits.MovesToGo
	if mtg == 0 {
		// Sudden death: assume fewer moves remain as the game ages.
		mtg = 40 - gamePly/4
		if mtg < 12 {
			mtg = 12
		}
	}

	perMove := (clock-inc)/time.Duration(mtg) + inc - overhead
	if perMove < time.Millisecond {
		perMove = time.Millisecond
	}

	tm.soft = perMove / 5
	tm.hard = 2 * perMove

	ceiling := clock - overhead
	if ceiling < time.Millisecond {
		ceiling = time.Millisecond
	}
	if tm.soft > ceiling {
		tm.soft = ceiling
	}
	if tm.hard > ceiling {
		tm.hard = ceiling
	}
	return tm
}

// Elapsed returns the time since the search started.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.start)
}

// HardExpired reports whether the search must abort now.
func (tm *TimeManager) HardExpired() bool {
	return tm.limited && tm.Elapsed() >= tm.hard
}

// SoftExpired decides between iterations whether another one should
// start. A best move that has been stable for several iterations
// releases time early; an unstable one is given more of the budget.
func (tm *TimeManager) SoftExpired(stability int) bool {
	if !tm.limited {
		return false
	}
	soft := tm.soft
	switch {
	case stability >= 8:
		soft = soft * 6 / 10
	case stability >= 4:
		soft = soft * 8 / 10
	case stability <= 1:
		soft = soft * 2
		if soft > tm.hard {
			soft = tm.hard
		}
	}
	return tm.Elapsed() >= soft
}
