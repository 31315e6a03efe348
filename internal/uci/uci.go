// Package uci implements the UCI protocol front-end over the engine.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/seekerror/logw"

	"github.com/marlinchess/marlin/internal/board"
	"github.com/marlinchess/marlin/internal/book"
	"github.com/marlinchess/marlin/internal/engine"
	"github.com/marlinchess/marlin/internal/tablebase"
)

// Driver runs the line-oriented UCI loop. Protocol replies go to the
// output writer; diagnostics go to the log. Malformed input is logged
// and dropped without touching engine state.
type Driver struct {
	engine   *engine.Engine
	position *board.Position
	hashes   []uint64 // game history for repetition detection

	out io.Writer

	syzygyPath       string
	syzygyProbeDepth int
	syzygy           *tablebase.SyzygyProber

	bookPath string
	ownBook  bool

	searchDone chan struct{}
}

// NewDriver creates a protocol driver around an engine.
func NewDriver(eng *engine.Engine, out io.Writer) *Driver {
	return &Driver{
		engine:           eng,
		position:         board.NewPosition(),
		out:              out,
		syzygyProbeDepth: 1,
	}
}

// Run consumes commands from in until quit or EOF.
func (d *Driver) Run(ctx context.Context, in io.Reader) {
	d.hashes = []uint64{d.position.Hash}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "uci":
			d.identify()
		case "isready":
			d.reply("readyok")
		case "ucinewgame":
			d.newGame()
		case "setoption":
			d.setOption(ctx, args)
		case "position":
			d.setPosition(ctx, args)
		case "go":
			d.handleGo(ctx, args)
		case "stop":
			d.stop()
		case "quit":
			d.stop()
			logw.Infof(ctx, "quit")
			return
		case "eval":
			d.reply("info string eval cp %d", d.engine.Evaluate(d.position))
		case "d":
			fmt.Fprintln(d.out, d.position.String())
		case "perft":
			d.perft(args)
		default:
			logw.Warningf(ctx, "unknown command %q", line)
		}
	}
	if err := scanner.Err(); err != nil {
		logw.Errorf(ctx, "input stream broken: %v", err)
	}
	d.stop()
}

func (d *Driver) reply(format string, args ...interface{}) {
	fmt.Fprintf(d.out, format+"\n", args...)
}

func (d *Driver) identify() {
	d.reply("id name Marlin")
	d.reply("id author The Marlin Authors")
	d.reply("")
	d.reply("option name Hash type spin default 64 min 1 max 65536")
	d.reply("option name Threads type spin default 1 min 1 max 256")
	d.reply("option name Move Overhead type spin default 10 min 0 max 1000")
	d.reply("option name SyzygyPath type string default <empty>")
	d.reply("option name SyzygyProbeDepth type spin default 1 min 0 max 64")
	d.reply("option name Book type string default <empty>")
	d.reply("option name OwnBook type check default false")
	d.reply("uciok")
}

func (d *Driver) newGame() {
	d.stop()
	d.engine.NewGame()
	d.position = board.NewPosition()
	d.hashes = []uint64{d.position.Hash}
}

// setOption handles "setoption name <name> value <v>"; names may
// contain spaces.
func (d *Driver) setOption(ctx context.Context, args []string) {
	var name, value string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			if *target != "" {
				*target += " "
			}
			*target += arg
		}
	}

	switch strings.ToLower(name) {
	case "hash":
		mb, err := strconv.Atoi(value)
		if err != nil || mb < 1 || mb > 65536 {
			logw.Errorf(ctx, "invalid Hash value %q", value)
			return
		}
		d.engine.SetHashSize(mb)
	case "threads":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 256 {
			logw.Errorf(ctx, "invalid Threads value %q", value)
			return
		}
		d.engine.SetThreads(n)
	case "move overhead":
		ms, err := strconv.Atoi(value)
		if err != nil || ms < 0 || ms > 1000 {
			logw.Errorf(ctx, "invalid Move Overhead value %q", value)
			return
		}
		d.engine.SetMoveOverhead(time.Duration(ms) * time.Millisecond)
	case "syzygypath":
		d.syzygyPath = value
		d.initSyzygy(ctx)
	case "syzygyprobedepth":
		depth, err := strconv.Atoi(value)
		if err != nil || depth < 0 || depth > 64 {
			logw.Errorf(ctx, "invalid SyzygyProbeDepth value %q", value)
			return
		}
		d.syzygyProbeDepth = depth
		d.initSyzygy(ctx)
	case "book":
		d.bookPath = value
		d.loadBook(ctx)
	case "ownbook":
		d.ownBook = strings.EqualFold(value, "true")
		d.loadBook(ctx)
	default:
		logw.Warningf(ctx, "unknown option %q", name)
	}
}

func (d *Driver) initSyzygy(ctx context.Context) {
	if d.syzygyPath == "" || d.syzygyPath == "<empty>" {
		return
	}
	if d.syzygy != nil {
		d.syzygy.Close()
	}
	d.syzygy = tablebase.NewSyzygyProber(ctx, d.syzygyPath)
	if d.syzygy.Available() {
		d.engine.SetTablebase(d.syzygy, d.syzygyProbeDepth)
	}
}

func (d *Driver) loadBook(ctx context.Context) {
	if !d.ownBook || d.bookPath == "" || d.bookPath == "<empty>" {
		d.engine.SetBook(nil)
		return
	}
	b, err := book.LoadPolyglot(d.bookPath)
	if err != nil {
		logw.Errorf(ctx, "failed to load book %q: %v", d.bookPath, err)
		return
	}
	logw.Infof(ctx, "loaded book %q (%d positions)", d.bookPath, b.Size())
	d.engine.SetBook(b)
}

// setPosition handles "position [startpos|fen F] [moves ...]".
func (d *Driver) setPosition(ctx context.Context, args []string) {
	if len(args) == 0 {
		return
	}

	movesIdx := -1
	for i, arg := range args {
		if arg == "moves" {
			movesIdx = i
			break
		}
	}
	fenEnd, moveStart := len(args), len(args)
	if movesIdx >= 0 {
		fenEnd, moveStart = movesIdx, movesIdx+1
	}

	var pos *board.Position
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		parsed, err := board.ParseFEN(strings.Join(args[1:fenEnd], " "))
		if err != nil {
			logw.Errorf(ctx, "invalid FEN: %v", err)
			return
		}
		pos = parsed
	default:
		logw.Errorf(ctx, "invalid position command: %v", args)
		return
	}

	hashes := []uint64{pos.Hash}
	for _, moveStr := range args[moveStart:] {
		m, err := board.ParseMove(moveStr, pos)
		if err != nil {
			logw.Errorf(ctx, "invalid move %q: %v", moveStr, err)
			return
		}
		if !pos.PseudoLegal(m) || !pos.IsLegal(m) {
			logw.Errorf(ctx, "illegal move %q", moveStr)
			return
		}
		pos.MakeMove(m)
		hashes = append(hashes, pos.Hash)
	}

	d.position = pos
	d.hashes = hashes
}

// handleGo parses search limits and launches the search asynchronously.
func (d *Driver) handleGo(ctx context.Context, args []string) {
	if d.searchDone != nil {
		d.stop()
	}

	limits := parseLimits(args)
	d.engine.SetPositionHistory(d.hashes)
	d.engine.OnInfo = func(info engine.SearchInfo) {
		d.sendInfo(info)
	}

	pos := d.position.Copy()
	done := make(chan struct{})
	d.searchDone = done

	go func() {
		defer close(done)
		best := d.engine.Search(ctx, pos, limits)
		d.reply("bestmove %s", best)
	}()
}

func parseLimits(args []string) engine.Limits {
	limits := engine.Limits{}

	ms := func(s string) time.Duration {
		v, _ := strconv.Atoi(s)
		return time.Duration(v) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		hasNext := i+1 < len(args)
		switch args[i] {
		case "wtime":
			if hasNext {
				limits.Time[board.White] = ms(args[i+1])
				i++
			}
		case "btime":
			if hasNext {
				limits.Time[board.Black] = ms(args[i+1])
				i++
			}
		case "winc":
			if hasNext {
				limits.Inc[board.White] = ms(args[i+1])
				i++
			}
		case "binc":
			if hasNext {
				limits.Inc[board.Black] = ms(args[i+1])
				i++
			}
		case "movetime":
			if hasNext {
				limits.MoveTime = ms(args[i+1])
				i++
			}
		case "movestogo":
			if hasNext {
				limits.MovesToGo, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "depth":
			if hasNext {
				limits.Depth, _ = strconv.Atoi(args[i+1])
				i++
			}
		case "nodes":
			if hasNext {
				limits.Nodes, _ = strconv.ParseUint(args[i+1], 10, 64)
				i++
			}
		case "infinite":
			limits.Infinite = true
		}
	}
	return limits
}

// sendInfo formats one iteration report.
func (d *Driver) sendInfo(info engine.SearchInfo) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d seldepth %d", info.Depth, info.Seldepth)

	if info.Score >= engine.MinMate {
		fmt.Fprintf(&sb, " score mate %d", (engine.MateScore-info.Score+1)/2)
	} else if info.Score <= -engine.MinMate {
		fmt.Fprintf(&sb, " score mate %d", -(engine.MateScore+info.Score+1)/2)
	} else {
		fmt.Fprintf(&sb, " score cp %d", info.Score)
	}

	millis := info.Time.Milliseconds()
	fmt.Fprintf(&sb, " time %d nodes %d", millis, info.Nodes)
	if millis > 0 {
		fmt.Fprintf(&sb, " nps %d", info.Nodes*1000/uint64(millis))
	}
	fmt.Fprintf(&sb, " multipv 1")

	if len(info.PV) > 0 {
		sb.WriteString(" pv")
		for _, m := range info.PV {
			sb.WriteString(" ")
			sb.WriteString(m.String())
		}
	}
	fmt.Fprintln(d.out, sb.String())
}

// stop aborts a running search and waits for its bestmove.
func (d *Driver) stop() {
	if d.searchDone == nil {
		return
	}
	d.engine.Stop()
	<-d.searchDone
	d.searchDone = nil
}

func (d *Driver) perft(args []string) {
	depth := 5
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			depth = v
		}
	}
	start := time.Now()
	nodes := d.engine.Perft(d.position, depth)
	elapsed := time.Since(start)

	d.reply("info string perft %d nodes %d time %dms", depth, nodes, elapsed.Milliseconds())
}
