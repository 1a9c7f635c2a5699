package matcher

import "fmt"

// Algorithm selects the search implementation returned by Compile.
type Algorithm int

const (
	// Horspool uses the bad-character table only. It is the default and is
	// the better choice for the short delimiters typical of framing.
	Horspool Algorithm = iota

	// BoyerMooreFull adds the good-suffix rule.
	BoyerMooreFull
)

// String returns the configuration name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case Horspool:
		return "horspool"
	case BoyerMooreFull:
		return "boyer-moore"
	default:
		return "unknown"
	}
}

// ParseAlgorithm parses a configuration name. An empty name selects Horspool.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "", "horspool":
		return Horspool, nil
	case "boyer-moore", "bm":
		return BoyerMooreFull, nil
	default:
		return Horspool, fmt.Errorf("%w: unknown search algorithm %q", ErrInvalidArgument, name)
	}
}

// Config for searcher initialization.
type Config struct {
	// Pattern to search for. Must not be empty.
	Pattern []byte

	// Algorithm selects the implementation (default Horspool).
	Algorithm Algorithm
}

// Compile creates a Searcher for the given config.
func Compile(cfg Config) (Searcher, error) {
	switch cfg.Algorithm {
	case Horspool:
		m, err := New(cfg.Pattern)
		if err != nil {
			return nil, err
		}
		return m, nil
	case BoyerMooreFull:
		bm, err := NewBoyerMoore(cfg.Pattern)
		if err != nil {
			return nil, err
		}
		return bm, nil
	default:
		return nil, fmt.Errorf("%w: unknown search algorithm %d", ErrInvalidArgument, cfg.Algorithm)
	}
}
