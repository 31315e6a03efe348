package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marlinchess/marlin/internal/board"
)

func TestTimeManagerMoveTime(t *testing.T) {
	tm := NewTimeManager(Limits{MoveTime: 500 * time.Millisecond}, board.White, 10, 10*time.Millisecond)

	assert.Equal(t, 490*time.Millisecond, tm.soft)
	assert.Equal(t, 490*time.Millisecond, tm.hard)
	assert.False(t, tm.HardExpired())
}

func TestTimeManagerClock(t *testing.T) {
	limits := Limits{}
	limits.Time[board.White] = 60 * time.Second
	limits.Inc[board.White] = time.Second
	limits.MovesToGo = 20

	tm := NewTimeManager(limits, board.White, 10, 10*time.Millisecond)

	// perMove = (60s-1s)/20 + 1s - 10ms = 3.94s
	perMove := (60*time.Second-time.Second)/20 + time.Second - 10*time.Millisecond
	assert.Equal(t, perMove/5, tm.soft)
	assert.Equal(t, 2*perMove, tm.hard)
}

func TestTimeManagerClampsToClock(t *testing.T) {
	limits := Limits{}
	limits.Time[board.Black] = 100 * time.Millisecond
	limits.MovesToGo = 1

	tm := NewTimeManager(limits, board.Black, 80, 10*time.Millisecond)

	ceiling := 90 * time.Millisecond
	assert.LessOrEqual(t, tm.hard, ceiling, "hard deadline must never exceed the clock")
	assert.LessOrEqual(t, tm.soft, ceiling)
}

func TestTimeManagerInfinite(t *testing.T) {
	tm := NewTimeManager(Limits{Infinite: true}, board.White, 0, 10*time.Millisecond)
	assert.False(t, tm.HardExpired())
	assert.False(t, tm.SoftExpired(0))
}

func TestTimeManagerStabilityScaling(t *testing.T) {
	limits := Limits{}
	limits.Time[board.White] = 10 * time.Second
	limits.MovesToGo = 10

	tm := NewTimeManager(limits, board.White, 10, 0)

	// Force the elapsed clock: a search that has used 70% of the soft
	// budget keeps going at moderate stability and stops when very
	// stable.
	tm.start = time.Now().Add(-tm.soft * 7 / 10)
	assert.True(t, tm.SoftExpired(8), "a very stable best move releases time early")
	assert.False(t, tm.SoftExpired(4))
}
