package mobility

// Circle is an inclusive index range [Start, End] of a location sequence whose
// endpoints hold the same location: the person came back to where they were
// after an excursion. Circles are also called metaflows in flow analysis.
type Circle struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of stays covered by the circle, endpoints included
func (c Circle) Len() int {
	return c.End - c.Start + 1
}

// Encloses reports whether o lies strictly inside c
func (c Circle) Encloses(o Circle) bool {
	return c.Start < o.Start && c.End > o.End
}

// MineCircles extracts movement circles from a location sequence.
//
// Scanning left to right, the nearest later occurrence of seq[i] closes the
// circle (i, j); the circles strictly inside it are mined recursively and
// follow it in the output. The outer scan then resumes at j, so a closing
// index can open the next circle. Indices without a later occurrence are
// skipped. Sequences shorter than 3 have no circles.
func MineCircles[T comparable](seq []T) []Circle {
	var circles []Circle
	mineRange(seq, 0, len(seq), &circles)
	return circles
}

// ExtractMetaflows is the entry point used by standalone flow analysis. It
// shares the mining rules of MineCircles, and always returns a non-nil slice.
func ExtractMetaflows[T comparable](seq []T) []Circle {
	flows := MineCircles(seq)
	if flows == nil {
		flows = []Circle{}
	}
	return flows
}

// mineRange mines seq[lo:hi] in place. Indices stay absolute, so nested levels
// need no re-indexing and no sub-slice copies.
func mineRange[T comparable](seq []T, lo, hi int, out *[]Circle) {
	if hi-lo < 3 {
		return
	}

	i := lo
	for i < hi {
		j := i + 1
		for j < hi && seq[j] != seq[i] {
			j++
		}
		if j == hi {
			i++
			continue
		}

		*out = append(*out, Circle{Start: i, End: j})
		mineRange(seq, i+1, j, out)
		i = j
	}
}
