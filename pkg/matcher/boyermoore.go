package matcher

import "fmt"

// BoyerMoore implements Searcher with the full Boyer-Moore algorithm: the
// bad-character rule over the mismatching byte combined with the
// good-suffix rule. It does fewer comparisons than Matcher on long,
// self-similar patterns at the cost of an extra table of len(pattern)+1 ints.
type BoyerMoore struct {
	pattern []byte
	last    [alphabetSize]int // last index of each byte in pattern, -1 if absent
	suffix  []int             // good-suffix shift, indexed by mismatch position+1
}

// NewBoyerMoore creates a Boyer-Moore searcher for pattern. The pattern is copied.
func NewBoyerMoore(pattern []byte) (*BoyerMoore, error) {
	bm := &BoyerMoore{}
	if err := bm.Reset(pattern); err != nil {
		return nil, err
	}
	return bm, nil
}

// Reset replaces the pattern and rebuilds both tables.
func (bm *BoyerMoore) Reset(pattern []byte) error {
	if len(pattern) == 0 {
		return fmt.Errorf("%w: empty pattern", ErrInvalidArgument)
	}

	bm.pattern = append([]byte(nil), pattern...)
	for i := range bm.last {
		bm.last[i] = -1
	}
	for i, b := range bm.pattern {
		bm.last[b] = i
	}
	bm.suffix = goodSuffixTable(bm.pattern)
	return nil
}

// Pattern returns a copy of the search pattern.
func (bm *BoyerMoore) Pattern() []byte {
	return append([]byte(nil), bm.pattern...)
}

// Len returns the pattern length.
func (bm *BoyerMoore) Len() int {
	return len(bm.pattern)
}

// Search returns the index of the first occurrence of the pattern in
// source[start:], or -1 if there is none.
func (bm *BoyerMoore) Search(source []byte, start int) (int, error) {
	if err := checkStart(source, start); err != nil {
		return -1, err
	}
	return bm.search(source, start), nil
}

// SearchAll returns all non-overlapping occurrences in ascending order.
func (bm *BoyerMoore) SearchAll(source []byte, start int) ([]int, error) {
	if err := checkStart(source, start); err != nil {
		return nil, err
	}
	return collect(source, start, len(bm.pattern), bm.search), nil
}

func (bm *BoyerMoore) search(source []byte, start int) int {
	m := len(bm.pattern)

	for pos := start; pos+m <= len(source); {
		j := m - 1
		for j >= 0 && source[pos+j] == bm.pattern[j] {
			j--
		}
		if j < 0 {
			return pos
		}

		// Bad character may be negative when the byte occurs to the right
		// of j; the good-suffix shift is always at least 1.
		bad := j - bm.last[source[pos+j]]
		good := bm.suffix[j+1]
		if bad > good {
			pos += bad
		} else {
			pos += good
		}
	}

	return -1
}

// goodSuffixTable computes the strong good-suffix shifts.
// shift[i] is how far to move the window when pattern[i:] matched and
// pattern[i-1] did not.
func goodSuffixTable(p []byte) []int {
	m := len(p)
	shift := make([]int, m+1)
	border := make([]int, m+1)

	// Case 1: the matched suffix occurs elsewhere preceded by a different byte.
	i, j := m, m+1
	border[i] = j
	for i > 0 {
		for j <= m && p[i-1] != p[j-1] {
			if shift[j] == 0 {
				shift[j] = j - i
			}
			j = border[j]
		}
		i--
		j--
		border[i] = j
	}

	// Case 2: only a prefix of the pattern matches part of the suffix.
	j = border[0]
	for i := 0; i <= m; i++ {
		if shift[i] == 0 {
			shift[i] = j
		}
		if i == j {
			j = border[j]
		}
	}

	return shift
}
