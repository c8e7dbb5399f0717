package board

import "math"

const (
	// PositionStep is the spacing used when appending and when renumbering.
	PositionStep int64 = 100

	// MinPositionGap is the smallest difference between two stored neighbours
	// that still leaves an integer strictly between them.
	MinPositionGap int64 = 2

	// MaxPosition bounds appends; past it the column is renumbered.
	MaxPosition int64 = math.MaxInt64 / 4
)

// PositionAt returns the position for an item inserted at index into the
// ordered sibling positions. ok is false when there is no usable gap and the
// siblings must be renumbered first.
func PositionAt(siblings []int64, index int) (position int64, ok bool) {
	switch {
	case len(siblings) == 0:
		return PositionStep, true
	case index <= 0:
		return between(0, siblings[0])
	case index >= len(siblings):
		last := siblings[len(siblings)-1]
		if last > MaxPosition-PositionStep {
			return 0, false
		}
		return last + PositionStep, true
	default:
		return between(siblings[index-1], siblings[index])
	}
}

// Renumbered returns n evenly spaced positions starting at PositionStep.
func Renumbered(n int) []int64 {
	positions := make([]int64, n)
	for i := range positions {
		positions[i] = int64(i+1) * PositionStep
	}
	return positions
}

func between(lo, hi int64) (int64, bool) {
	if hi-lo < MinPositionGap {
		return 0, false
	}
	return lo + (hi-lo)/2, true
}
