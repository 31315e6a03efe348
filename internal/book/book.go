// Package book implements Polyglot opening book probing.
package book

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"

	"github.com/marlinchess/marlin/internal/board"
)

// Entry is one weighted book move for a position.
type Entry struct {
	Move   board.Move
	Weight uint16
}

// Book maps Polyglot position keys to their book moves.
type Book struct {
	entries map[uint64][]Entry
}

// LoadPolyglot reads a Polyglot book file.
func LoadPolyglot(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadPolyglotReader(file)
}

// LoadPolyglotReader reads Polyglot records: 8 bytes key, 2 bytes
// move, 2 bytes weight, 4 bytes learn data (ignored), all big-endian.
func LoadPolyglotReader(r io.Reader) (*Book, error) {
	b := &Book{entries: make(map[uint64][]Entry)}

	var record [16]byte
	for {
		if _, err := io.ReadFull(r, record[:]); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("book: malformed record: %w", err)
		}

		key := binary.BigEndian.Uint64(record[0:8])
		moveData := binary.BigEndian.Uint16(record[8:10])
		weight := binary.BigEndian.Uint16(record[10:12])

		if m := decodeMove(moveData); m != board.NoMove {
			b.entries[key] = append(b.entries[key], Entry{Move: m, Weight: weight})
		}
	}
	return b, nil
}

// decodeMove converts the Polyglot move encoding: to-file, to-rank,
// from-file, from-rank in 3-bit groups, then the promotion piece.
// Castling is encoded king-takes-rook and converted to the two-square
// king move.
func decodeMove(data uint16) board.Move {
	to := board.NewSquare(int(data&7), int((data>>3)&7))
	from := board.NewSquare(int((data>>6)&7), int((data>>9)&7))
	promo := (data >> 12) & 7

	switch {
	case from == board.E1 && to == board.H1:
		to = board.G1
	case from == board.E1 && to == board.A1:
		to = board.C1
	case from == board.E8 && to == board.H8:
		to = board.G8
	case from == board.E8 && to == board.A8:
		to = board.C8
	}

	if promo > 0 && promo <= 4 {
		promoTypes := [5]board.PieceType{0, board.Knight, board.Bishop, board.Rook, board.Queen}
		return board.NewPromotion(from, to, promoTypes[promo])
	}
	return board.NewMove(from, to)
}

// Probe returns a book move for the position by weighted random
// selection, or false when the position is out of book.
func (b *Book) Probe(pos *board.Position) (board.Move, bool) {
	if b == nil {
		return board.NoMove, false
	}
	entries := b.entries[pos.PolyglotHash()]
	if len(entries) == 0 {
		return board.NoMove, false
	}

	total := uint32(0)
	for _, e := range entries {
		total += uint32(e.Weight)
	}
	pick := entries[0]
	if total > 0 {
		r := rand.Uint32() % total
		acc := uint32(0)
		for _, e := range entries {
			acc += uint32(e.Weight)
			if r < acc {
				pick = e
				break
			}
		}
	}

	if m := matchLegal(pos, pick.Move); m != board.NoMove {
		return m, true
	}
	return board.NoMove, false
}

// Moves returns every book move for the position, best weight first.
func (b *Book) Moves(pos *board.Position) []Entry {
	if b == nil {
		return nil
	}
	entries := b.entries[pos.PolyglotHash()]
	result := make([]Entry, len(entries))
	copy(result, entries)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Weight > result[j].Weight
	})
	return result
}

// Size returns the number of book positions.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// matchLegal maps a decoded book move onto the matching legal move so
// it carries the right flags, or NoMove when illegal here.
func matchLegal(pos *board.Position, m board.Move) board.Move {
	legal := pos.GenerateLegalMoves()
	for i := 0; i < legal.Len(); i++ {
		lm := legal.Get(i)
		if lm.From() != m.From() || lm.To() != m.To() {
			continue
		}
		if m.IsPromotion() != lm.IsPromotion() {
			continue
		}
		if m.IsPromotion() && m.Promotion() != lm.Promotion() {
			continue
		}
		return lm
	}
	return board.NoMove
}
