package tablebase

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/seekerror/logw"

	"github.com/marlinchess/marlin/internal/board"
)

// SyzygyProber serves probes for a configured Syzygy path. Parsing
// the table files natively is out of scope; the path determines which
// piece counts are considered supported, and the lookups themselves
// go through the cached online prober. Positions outside the local
// support are not probed at all, keeping behavior consistent with a
// file-backed prober.
type SyzygyProber struct {
	path      string
	maxPieces int
	backend   Prober
}

// NewSyzygyProber scans the path for tablebase files and wires the
// cached online backend for the supported piece counts.
func NewSyzygyProber(ctx context.Context, path string) *SyzygyProber {
	sp := &SyzygyProber{path: path}

	sp.maxPieces = scanMaxPieces(path)
	if sp.maxPieces == 0 {
		logw.Infof(ctx, "no tablebase files under %s; probing disabled", path)
		return sp
	}

	cached, err := NewCachedProber(NewLichessProber(), DefaultCacheDir())
	if err != nil {
		logw.Warningf(ctx, "tablebase cache unavailable: %v", err)
	}
	sp.backend = cached

	logw.Infof(ctx, "tablebases enabled at %s (up to %d pieces)", path, sp.maxPieces)
	return sp
}

// scanMaxPieces derives the supported piece count from the table
// files present: a file like KRvKN.rtbw names its material.
func scanMaxPieces(path string) int {
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0
	}
	maxPieces := 0
	for _, entry := range entries {
		name := entry.Name()
		if filepath.Ext(name) != ".rtbw" && filepath.Ext(name) != ".rtbz" {
			continue
		}
		material := strings.TrimSuffix(name, filepath.Ext(name))
		pieces := len(material) - strings.Count(material, "v")
		if pieces > maxPieces {
			maxPieces = pieces
		}
	}
	if maxPieces > 7 {
		maxPieces = 7
	}
	return maxPieces
}

func (sp *SyzygyProber) Probe(pos *board.Position) ProbeResult {
	if sp.backend == nil || pos.AllOccupied.PopCount() > sp.maxPieces {
		return ProbeResult{}
	}
	return sp.backend.Probe(pos)
}

func (sp *SyzygyProber) ProbeRoot(pos *board.Position) RootResult {
	if sp.backend == nil || pos.AllOccupied.PopCount() > sp.maxPieces {
		return RootResult{}
	}
	return sp.backend.ProbeRoot(pos)
}

func (sp *SyzygyProber) MaxPieces() int {
	return sp.maxPieces
}

func (sp *SyzygyProber) Available() bool {
	return sp.backend != nil
}

// Close releases the underlying cache, if any.
func (sp *SyzygyProber) Close() error {
	if cp, ok := sp.backend.(*CachedProber); ok {
		return cp.Close()
	}
	return nil
}
