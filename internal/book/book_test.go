package book

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marlinchess/marlin/internal/board"
)

// encodeEntry builds one Polyglot record.
func encodeEntry(key uint64, from, to board.Square, weight uint16) []byte {
	var record [16]byte
	binary.BigEndian.PutUint64(record[0:8], key)

	moveData := uint16(to.File()) | uint16(to.Rank())<<3 |
		uint16(from.File())<<6 | uint16(from.Rank())<<9
	binary.BigEndian.PutUint16(record[8:10], moveData)
	binary.BigEndian.PutUint16(record[10:12], weight)
	return record[:]
}

func TestBookProbe(t *testing.T) {
	pos := board.NewPosition()
	key := pos.PolyglotHash()

	var buf bytes.Buffer
	buf.Write(encodeEntry(key, board.E2, board.E4, 100))
	buf.Write(encodeEntry(key, board.D2, board.D4, 50))

	b, err := LoadPolyglotReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Size())

	m, ok := b.Probe(pos)
	require.True(t, ok)
	e2e4 := board.NewMove(board.E2, board.E4)
	d2d4 := board.NewMove(board.D2, board.D4)
	assert.True(t, m == e2e4 || m == d2d4, "book move %v not in book", m)

	moves := b.Moves(pos)
	require.Len(t, moves, 2)
	assert.Equal(t, e2e4, moves[0].Move, "heavier move sorts first")
}

func TestBookMissOutOfBook(t *testing.T) {
	pos := board.NewPosition()

	var buf bytes.Buffer
	buf.Write(encodeEntry(0x1234, board.E2, board.E4, 1))

	b, err := LoadPolyglotReader(&buf)
	require.NoError(t, err)

	_, ok := b.Probe(pos)
	assert.False(t, ok)
}

func TestBookRejectsIllegalEntry(t *testing.T) {
	pos := board.NewPosition()
	key := pos.PolyglotHash()

	// e2e5 is not a legal move; the probe must not return it.
	var buf bytes.Buffer
	buf.Write(encodeEntry(key, board.E2, board.E5, 10))

	b, err := LoadPolyglotReader(&buf)
	require.NoError(t, err)

	_, ok := b.Probe(pos)
	assert.False(t, ok)
}

func TestBookTruncatedFile(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(encodeEntry(0x42, board.E2, board.E4, 1))
	buf.Write([]byte{1, 2, 3}) // trailing garbage

	_, err := LoadPolyglotReader(&buf)
	assert.Error(t, err)
}
