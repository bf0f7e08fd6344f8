package grading

// Similarity compares two strings position by position and returns the
// fraction of matching characters over the longer string's length.
// Characters past the shorter string's end never match. Equal strings
// yield 1.0, the empty pair included; a non-empty string against an
// empty one yields 0.0.
//
// This is intentionally not an edit distance: tolerance thresholds used
// by existing exams were calibrated against this positional metric.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ar := []rune(a)
	br := []rune(b)
	if len(ar) == 0 || len(br) == 0 {
		return 0.0
	}
	short, long := len(ar), len(br)
	if short > long {
		short, long = long, short
	}
	matches := 0
	for i := 0; i < short; i++ {
		if ar[i] == br[i] {
			matches++
		}
	}
	return float64(matches) / float64(long)
}
