package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarityIdentical(t *testing.T) {
	// equality wins outright, the empty pair included
	for _, s := range []string{"", "a", "hello", "Bonjour le monde"} {
		assert.Equal(t, 1.0, Similarity(s, s), "similarity(%q, %q)", s, s)
	}
}

func TestSimilarityEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Similarity("hello", ""))
	assert.Equal(t, 0.0, Similarity("", "hello"))
}

func TestSimilarityPositional(t *testing.T) {
	// 4 of 5 positions match
	assert.InDelta(t, 0.8, Similarity("hello", "hallo"), 1e-9)
	// matches counted over the shorter string, divided by the longer length
	assert.InDelta(t, 0.5, Similarity("abc", "abcdef"), 1e-9)
	// positional, not anagram-aware
	assert.Equal(t, 0.0, Similarity("ab", "ba"))
}

func TestSimilarityNotEditDistance(t *testing.T) {
	// a single leading insertion shifts every position; edit distance would
	// call these near-identical
	assert.InDelta(t, 0.0, Similarity("hello", "xhello"), 1e-9)
}
