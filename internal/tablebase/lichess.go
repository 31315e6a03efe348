package tablebase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/marlinchess/marlin/internal/board"
)

// LichessProber queries the Lichess tablebase API. It needs network
// access and respects a short timeout so a dead connection degrades
// to "not found" instead of stalling the search.
type LichessProber struct {
	client    *http.Client
	baseURL   string
	maxPieces int
}

// NewLichessProber creates an online prober for standard chess.
func NewLichessProber() *LichessProber {
	return &LichessProber{
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL:   "https://tablebase.lichess.ovh/standard",
		maxPieces: 7,
	}
}

type lichessResponse struct {
	Category string `json:"category"`
	DTZ      int    `json:"dtz"`
	Moves    []struct {
		UCI      string `json:"uci"`
		Category string `json:"category"`
		DTZ      int    `json:"dtz"`
	} `json:"moves"`
}

func (lp *LichessProber) query(pos *board.Position) (*lichessResponse, error) {
	fen := strings.ReplaceAll(pos.ToFEN(), " ", "_")
	resp, err := lp.client.Get(fmt.Sprintf("%s?fen=%s", lp.baseURL, fen))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tablebase: status %d", resp.StatusCode)
	}

	var parsed lichessResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// categoryWDL maps an API category to a WDL from the side to move's
// view.
func categoryWDL(category string) (WDL, bool) {
	switch category {
	case "win":
		return WDLWin, true
	case "cursed-win", "maybe-win":
		return WDLCursedWin, true
	case "draw":
		return WDLDraw, true
	case "blessed-loss", "maybe-loss":
		return WDLBlessedLoss, true
	case "loss":
		return WDLLoss, true
	default:
		return WDLDraw, false
	}
}

func (lp *LichessProber) Probe(pos *board.Position) ProbeResult {
	if pos.AllOccupied.PopCount() > lp.maxPieces {
		return ProbeResult{}
	}
	parsed, err := lp.query(pos)
	if err != nil {
		return ProbeResult{}
	}
	wdl, ok := categoryWDL(parsed.Category)
	if !ok {
		return ProbeResult{}
	}
	dtz := parsed.DTZ
	if dtz < 0 {
		dtz = -dtz
	}
	return ProbeResult{Found: true, WDL: wdl, DTZ: dtz}
}

func (lp *LichessProber) ProbeRoot(pos *board.Position) RootResult {
	if pos.AllOccupied.PopCount() > lp.maxPieces {
		return RootResult{}
	}
	parsed, err := lp.query(pos)
	if err != nil || len(parsed.Moves) == 0 {
		return RootResult{}
	}
	wdl, ok := categoryWDL(parsed.Category)
	if !ok {
		return RootResult{}
	}

	// The API sorts moves best-first for the side to move.
	m, err := board.ParseMove(parsed.Moves[0].UCI, pos)
	if err != nil || m == board.NoMove {
		return RootResult{}
	}
	dtz := parsed.DTZ
	if dtz < 0 {
		dtz = -dtz
	}
	return RootResult{Found: true, Move: m, WDL: wdl, DTZ: dtz}
}

func (lp *LichessProber) MaxPieces() int {
	return lp.maxPieces
}

func (lp *LichessProber) Available() bool {
	return true
}
