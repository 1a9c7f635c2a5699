package matcher

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for an empty pattern or an out-of-range
// start offset.
var ErrInvalidArgument = errors.New("invalid argument")

// alphabetSize is the number of distinct byte values.
const alphabetSize = 256

// Searcher finds a fixed byte pattern in a source.
//
// Search returns the index of the first occurrence at or after start, or -1
// when the pattern does not occur. A start outside [0, len(source)] is an
// error; a source that is too short to hold the pattern is simply "not found".
type Searcher interface {
	// Search returns the first occurrence of the pattern in source[start:].
	Search(source []byte, start int) (int, error)

	// SearchAll returns every non-overlapping occurrence in ascending order.
	SearchAll(source []byte, start int) ([]int, error)

	// Pattern returns a copy of the search pattern.
	Pattern() []byte

	// Len returns the pattern length.
	Len() int
}

// Matcher implements Searcher with the Horspool simplification of
// Boyer-Moore: a single bad-character table indexed by the source byte
// aligned with the last pattern byte.
//
// Thread Safety: Search methods only read the pattern and table and are safe
// for concurrent use. Reset is not.
type Matcher struct {
	pattern []byte
	shift   [alphabetSize]int
}

// New creates a Horspool matcher for pattern. The pattern is copied.
func New(pattern []byte) (*Matcher, error) {
	m := &Matcher{}
	if err := m.Reset(pattern); err != nil {
		return nil, err
	}
	return m, nil
}

// MustNew is like New but panics on an empty pattern.
// Intended for package-level pattern variables.
func MustNew(pattern []byte) *Matcher {
	m, err := New(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// Reset replaces the pattern and rebuilds the shift table in full.
func (m *Matcher) Reset(pattern []byte) error {
	if len(pattern) == 0 {
		return fmt.Errorf("%w: empty pattern", ErrInvalidArgument)
	}

	m.pattern = append([]byte(nil), pattern...)
	buildShiftTable(&m.shift, m.pattern)
	return nil
}

// Pattern returns a copy of the search pattern.
func (m *Matcher) Pattern() []byte {
	return append([]byte(nil), m.pattern...)
}

// Len returns the pattern length.
func (m *Matcher) Len() int {
	return len(m.pattern)
}

// Shift returns the bad-character shift for byte b.
func (m *Matcher) Shift(b byte) int {
	return m.shift[b]
}

// Search returns the index of the first occurrence of the pattern in
// source[start:], or -1 if there is none.
func (m *Matcher) Search(source []byte, start int) (int, error) {
	if err := checkStart(source, start); err != nil {
		return -1, err
	}
	return m.search(source, start), nil
}

// SearchAll returns all non-overlapping occurrences in ascending order.
// After a hit at i the next search starts at i+Len().
func (m *Matcher) SearchAll(source []byte, start int) ([]int, error) {
	if err := checkStart(source, start); err != nil {
		return nil, err
	}
	return collect(source, start, len(m.pattern), m.search), nil
}

// SearchOverlapping returns all occurrences, including overlapping ones,
// in ascending order. After a hit at i the next search starts at i+1.
func (m *Matcher) SearchOverlapping(source []byte, start int) ([]int, error) {
	if err := checkStart(source, start); err != nil {
		return nil, err
	}
	return collect(source, start, 1, m.search), nil
}

// Index returns the first occurrence of the pattern in source, or -1.
func (m *Matcher) Index(source []byte) int {
	return m.search(source, 0)
}

// search aligns the pattern end with each candidate window and compares
// backwards from the last pattern byte.
func (m *Matcher) search(source []byte, start int) int {
	n := len(m.pattern)
	last := n - 1

	for pos := start; pos+n <= len(source); {
		j := last
		for j >= 0 && source[pos+j] == m.pattern[j] {
			j--
		}
		if j < 0 {
			return pos
		}
		pos += m.shift[source[pos+last]]
	}

	return -1
}

// buildShiftTable fills shift so that shift[b] is the distance from the last
// occurrence of b in pattern[:len-1] to the end of the pattern, or the
// pattern length if b does not occur there. Every entry is at least 1.
func buildShiftTable(shift *[alphabetSize]int, pattern []byte) {
	n := len(pattern)
	for i := range shift {
		shift[i] = n
	}
	for i := 0; i < n-1; i++ {
		shift[pattern[i]] = n - 1 - i
	}
}

// checkStart validates a search start offset.
func checkStart(source []byte, start int) error {
	if start < 0 || start > len(source) {
		return fmt.Errorf("%w: start %d outside [0, %d]", ErrInvalidArgument, start, len(source))
	}
	return nil
}

// collect repeatedly runs search, advancing by step after each hit.
func collect(source []byte, start, step int, search func([]byte, int) int) []int {
	var hits []int
	for pos := start; pos <= len(source); {
		idx := search(source, pos)
		if idx < 0 {
			break
		}
		hits = append(hits, idx)
		pos = idx + step
	}
	return hits
}
