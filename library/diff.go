package library

import (
	"fmt"
	"math"
)

type Mode string

const (
	// ModeDefault treats a song as new when it is missing from the
	// destination or when the sizes differ by at least the threshold.
	ModeDefault Mode = "default"
	// ModeLegacy only looks at stems.
	ModeLegacy Mode = "legacy"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDefault, ModeLegacy:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown sync mode: %s", s)
	}
}

// Diff returns the source entries to bring into dst, sorted by stem.
// threshold is the relative size difference, in (0, 1], from which two
// files with the same stem are considered different songs. A threshold of
// 0 would mark every song with a matching stem as different.
func Diff(src, dst Library, mode Mode, threshold float64) []Entry {
	var out []Entry
	for _, e := range src.Sorted() {
		other, ok := dst[e.Stem]
		if !ok {
			out = append(out, e)
			continue
		}

		if mode == ModeDefault && sizesDiffer(e.Size, other.Size, threshold) {
			out = append(out, e)
		}
	}

	return out
}

func sizesDiffer(a, b int64, threshold float64) bool {
	largest := max(a, b)
	if largest <= 0 {
		return a != b
	}

	return math.Abs(float64(a-b))/float64(largest) >= threshold
}
