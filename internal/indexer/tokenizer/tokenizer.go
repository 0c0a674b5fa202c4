// Package tokenizer turns document and query bytes into (term ID, byte
// offset) pairs. Three modes exist: single UTF-8 characters, overlapping
// character pairs, and whitespace-separated words.
package tokenizer

import (
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer/dictionary"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
)

// Mode is the persisted parse type of an inverted index.
type Mode uint32

const (
	OneGram   Mode = 0
	TwoGram   Mode = 1
	Separated Mode = 2
)

func (m Mode) String() string {
	switch m {
	case OneGram:
		return "1-gram"
	case TwoGram:
		return "2-gram"
	case Separated:
		return "separated"
	default:
		return fmt.Sprintf("mode(%d)", uint32(m))
	}
}

// ErrUnknownTerm is returned in lookup mode when a term has no ID. Queries
// treat it as an empty result.
var ErrUnknownTerm = errors.New("unknown term")

// Token is one parsed term. Offset is the byte offset of the term's first
// character within the parsed buffer.
type Token struct {
	TermID uint32
	Offset uint32
}

// Parse tokenises buf. With create set new terms are added to dict;
// otherwise an unknown term stops parsing with ErrUnknownTerm.
//
// In TwoGram mode a buffer holding exactly one character yields a single
// token whose TermID is dictionary.NotFound.
func Parse(mode Mode, buf []byte, dict *dictionary.Dictionary, create bool) ([]Token, error) {
	switch mode {
	case OneGram, TwoGram:
		return parseCharacters(mode, buf, dict, create)
	case Separated:
		return parseSeparated(buf, dict, create)
	default:
		return nil, fmt.Errorf("parse %s: %w", mode, apperrors.ErrUnknownTag)
	}
}

// IsContinuation reports whether b continues a multi-byte UTF-8 sequence.
func IsContinuation(b byte) bool {
	return b&0xC0 == 0x80
}

// Pack packs the bytes of one UTF-8 character big-endian into a u32.
func Pack(char []byte) uint32 {
	var v uint32
	for _, b := range char {
		v = v<<8 | uint32(b)
	}
	return v
}

// MaxCharLen is the longest byte sequence Pack can hold.
const MaxCharLen = 4

// Characters calls fn with the start offset and packed key of each UTF-8
// character in buf. A sequence starts at every byte that is not a
// continuation byte, and at offset 0 regardless. A sequence longer than
// MaxCharLen fails with ErrParse.
func Characters(buf []byte, fn func(start int, key uint32) error) error {
	start := 0
	for i := 1; i <= len(buf); i++ {
		if i < len(buf) && IsContinuation(buf[i]) {
			continue
		}
		if i-start > MaxCharLen {
			return fmt.Errorf("%d-byte character at offset %d: %w", i-start, start, apperrors.ErrParse)
		}
		if err := fn(start, Pack(buf[start:i])); err != nil {
			return err
		}
		start = i
	}
	return nil
}

// Validate reports the first character of buf that Characters rejects.
func Validate(buf []byte) error {
	return Characters(buf, func(int, uint32) error { return nil })
}

func parseCharacters(mode Mode, buf []byte, dict *dictionary.Dictionary, create bool) ([]Token, error) {
	if err := Validate(buf); err != nil {
		return nil, err
	}
	var (
		tokens    []Token
		prev      uint32
		prevStart int
		havePrev  bool
		chars     int
	)
	err := Characters(buf, func(start int, key uint32) error {
		chars++
		if mode == OneGram {
			id := dict.GramID(uint64(key), create)
			if id == dictionary.NotFound {
				return ErrUnknownTerm
			}
			tokens = append(tokens, Token{TermID: id, Offset: uint32(start)})
			return nil
		}
		if havePrev {
			id := dict.GramID(uint64(prev)<<32|uint64(key), create)
			if id == dictionary.NotFound {
				return ErrUnknownTerm
			}
			tokens = append(tokens, Token{TermID: id, Offset: uint32(prevStart)})
		}
		prev, prevStart, havePrev = key, start, true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if mode == TwoGram && len(tokens) == 0 && chars == 1 {
		tokens = append(tokens, Token{TermID: dictionary.NotFound})
	}
	return tokens, nil
}

// IsSpace matches the ASCII whitespace set: space, \t, \n, \v, \f and \r.
func IsSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func parseSeparated(buf []byte, dict *dictionary.Dictionary, create bool) ([]Token, error) {
	var tokens []Token
	start := -1
	for i := 0; i <= len(buf); i++ {
		if i < len(buf) && !IsSpace(buf[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start < 0 {
			continue
		}
		id := dict.TermID(string(buf[start:i]), create)
		if id == dictionary.NotFound {
			return nil, ErrUnknownTerm
		}
		tokens = append(tokens, Token{TermID: id, Offset: uint32(start)})
		start = -1
	}
	return tokens, nil
}

// Fields splits a query on ASCII whitespace.
func Fields(query string) []string {
	var fields []string
	start := -1
	for i := 0; i <= len(query); i++ {
		if i < len(query) && !IsSpace(query[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			fields = append(fields, query[start:i])
			start = -1
		}
	}
	return fields
}
