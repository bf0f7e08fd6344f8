package grading

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreeTextExactMatchIsCaseInsensitive(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Modality: ModalityFreeText, Points: 3, Answer: "Paris", Tolerance: 20}

	res := g.Grade(context.Background(), q, Submission{Text: "paris"})
	assert.True(t, res.Correct)
	assert.Equal(t, 3, res.EarnedPoints)
}

func TestFreeTextToleranceThreshold(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Modality: ModalityFreeText, Points: 2, Answer: "Paris", Tolerance: 20}

	// similarity("parris", "paris") = 3/6 = 0.5, below the 0.8 threshold
	res := g.Grade(context.Background(), q, Submission{Text: "parris"})
	assert.False(t, res.Correct)
	assert.Equal(t, 0, res.EarnedPoints)

	// similarity("colout", "colour") = 5/6 ≈ 0.83, above the threshold
	q = Q{Modality: ModalityFreeText, Points: 2, Answer: "colour", Tolerance: 20}
	res = g.Grade(context.Background(), q, Submission{Text: "colout"})
	assert.True(t, res.Correct)
	assert.Equal(t, 2, res.EarnedPoints)
}

func TestFreeTextNoToleranceNoFuzz(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Modality: ModalityFreeText, Points: 1, Answer: "colour"}

	res := g.Grade(context.Background(), q, Submission{Text: "colout"})
	assert.False(t, res.Correct)
}

func TestFreeTextEmptySubmission(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Modality: ModalityFreeText, Points: 1, Answer: "Paris", Tolerance: 100}

	res := g.Grade(context.Background(), q, Submission{})
	assert.False(t, res.Correct)
	assert.Equal(t, 0, res.EarnedPoints)
}

func TestSingleSelect(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Modality: ModalityChoice, Points: 2, CorrectOptionIDs: []string{"B"}}

	assert.True(t, g.Grade(context.Background(), q, Submission{OptionIDs: []string{"B"}}).Correct)
	assert.False(t, g.Grade(context.Background(), q, Submission{OptionIDs: []string{"A"}}).Correct)
	// single-answer questions require exactly one selection
	assert.False(t, g.Grade(context.Background(), q, Submission{OptionIDs: []string{"A", "B"}}).Correct)
	assert.False(t, g.Grade(context.Background(), q, Submission{}).Correct)
}

func TestMultiSelectSetEquality(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Modality: ModalityChoice, Points: 4, MultiSelect: true, CorrectOptionIDs: []string{"A", "B"}}

	res := g.Grade(context.Background(), q, Submission{OptionIDs: []string{"B", "A"}})
	assert.True(t, res.Correct)
	assert.Equal(t, 4, res.EarnedPoints)

	// missing a correct option
	assert.False(t, g.Grade(context.Background(), q, Submission{OptionIDs: []string{"A"}}).Correct)
	// an extra wrong option breaks equality
	assert.False(t, g.Grade(context.Background(), q, Submission{OptionIDs: []string{"A", "B", "C"}}).Correct)
	assert.False(t, g.Grade(context.Background(), q, Submission{}).Correct)
}

func TestUnknownModality(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Modality: "essay", Points: 5}

	res := g.Grade(context.Background(), q, Submission{Text: "anything"})
	assert.False(t, res.Correct)
	assert.Equal(t, 0, res.EarnedPoints)
}

type alwaysRight struct{}

func (alwaysRight) Grade(_ context.Context, q Q, _ Submission) Result {
	return Result{Correct: true, EarnedPoints: q.Points}
}

func TestWithStrategy(t *testing.T) {
	g := NewDefaultGrader(WithStrategy("essay", alwaysRight{}))

	res := g.Grade(context.Background(), Q{Modality: "essay", Points: 5}, Submission{})
	assert.True(t, res.Correct)
	assert.Equal(t, 5, res.EarnedPoints)
}
