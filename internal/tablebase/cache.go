package tablebase

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/marlinchess/marlin/internal/board"
)

// CachedProber persists probe results on disk so repeated endgame
// positions, common across games and searches, never hit the network
// twice. Keys are position hashes; values pack the WDL and DTZ.
type CachedProber struct {
	inner Prober
	db    *badger.DB
}

// DefaultCacheDir returns the probe cache location under the user
// cache directory.
func DefaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "marlin", "tbcache")
}

// NewCachedProber wraps a prober with a persistent cache at dir. A
// cache that fails to open degrades to pass-through probing.
func NewCachedProber(inner Prober, dir string) (*CachedProber, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return &CachedProber{inner: inner}, err
	}
	return &CachedProber{inner: inner, db: db}, nil
}

// Close releases the cache database.
func (cp *CachedProber) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

func cacheKey(hash uint64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], hash)
	return key[:]
}

// encodeResult packs a probe result into five bytes: found flag, WDL
// biased by 2, and the DTZ.
func encodeResult(r ProbeResult) []byte {
	var buf [5]byte
	if r.Found {
		buf[0] = 1
	}
	buf[1] = byte(int(r.WDL) + 2)
	binary.BigEndian.PutUint16(buf[2:4], uint16(r.DTZ))
	return buf[:]
}

func decodeResult(data []byte) (ProbeResult, bool) {
	if len(data) < 5 {
		return ProbeResult{}, false
	}
	return ProbeResult{
		Found: data[0] == 1,
		WDL:   WDL(int(data[1]) - 2),
		DTZ:   int(binary.BigEndian.Uint16(data[2:4])),
	}, true
}

func (cp *CachedProber) Probe(pos *board.Position) ProbeResult {
	if cp.db == nil {
		return cp.inner.Probe(pos)
	}

	key := cacheKey(pos.Hash)
	var cached ProbeResult
	hit := false
	err := cp.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			cached, hit = decodeResult(val)
			return nil
		})
	})
	if err == nil && hit {
		return cached
	}

	result := cp.inner.Probe(pos)
	if result.Found {
		// Only found results are cached; a miss may be a transient
		// network failure.
		_ = cp.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key, encodeResult(result))
		})
	}
	return result
}

func (cp *CachedProber) ProbeRoot(pos *board.Position) RootResult {
	// Root probes need the move list and are rare; always delegate.
	return cp.inner.ProbeRoot(pos)
}

func (cp *CachedProber) MaxPieces() int {
	return cp.inner.MaxPieces()
}

func (cp *CachedProber) Available() bool {
	return cp.inner.Available()
}
