package grading

import (
	"context"
	"strings"
)

// Modalities understood by the default grader.
const (
	ModalityFreeText = "free_text"
	ModalityChoice   = "choice"
)

// Q is a minimal view of a question needed for grading.
// Keep this in sync with whatever fields your store uses.
type Q struct {
	Modality         string
	Points           int
	Answer           string   // canonical answer for free_text
	Tolerance        int      // percent leniency in [0,100], free_text only
	CorrectOptionIDs []string // for choice
	MultiSelect      bool     // derived: more than one option flagged correct
}

// Submission carries the participant's answer. Exactly one of the two
// fields is expected to be populated, matching the question's modality.
type Submission struct {
	Text      string
	OptionIDs []string
}

// Result is the outcome of grading a single submission. Correctness is
// binary: earned points are the full question value or zero.
type Result struct {
	Correct      bool `json:"is_correct"`
	EarnedPoints int  `json:"earned_points"`
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, sub Submission) Result
}

// Grader routes by question modality to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, sub Submission) Result
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, sub Submission) Result {
	s, ok := g.strategies[q.Modality]
	if !ok {
		// unknown modality grades to incorrect/zero as a safe default
		return Result{}
	}
	return s.Grade(ctx, q, sub)
}

type Option func(*defaultGrader)

// WithStrategy registers or replaces the strategy for a modality.
func WithStrategy(modality string, s Strategy) Option {
	return func(g *defaultGrader) { g.strategies[modality] = s }
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	g := &defaultGrader{
		strategies: map[string]Strategy{
			ModalityFreeText: freeTextStrategy{},
			ModalityChoice:   choiceStrategy{},
		},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// --- Strategies ---

type freeTextStrategy struct{}

func (freeTextStrategy) Grade(_ context.Context, q Q, sub Submission) Result {
	if sub.Text == "" || q.Answer == "" {
		return Result{}
	}
	got := strings.ToLower(sub.Text)
	want := strings.ToLower(q.Answer)
	if got == want {
		return Result{Correct: true, EarnedPoints: q.Points}
	}
	if q.Tolerance > 0 {
		threshold := float64(100-q.Tolerance) / 100
		if Similarity(got, want) >= threshold {
			return Result{Correct: true, EarnedPoints: q.Points}
		}
	}
	return Result{}
}

type choiceStrategy struct{}

func (choiceStrategy) Grade(_ context.Context, q Q, sub Submission) Result {
	if len(sub.OptionIDs) == 0 || len(q.CorrectOptionIDs) == 0 {
		return Result{}
	}
	correct := toSet(q.CorrectOptionIDs)
	if !q.MultiSelect {
		// single answer: exactly one option selected, and it is correct
		if len(sub.OptionIDs) != 1 {
			return Result{}
		}
		if _, ok := correct[sub.OptionIDs[0]]; ok {
			return Result{Correct: true, EarnedPoints: q.Points}
		}
		return Result{}
	}
	// multi answer: selected set must equal the correct set exactly
	if setEqual(correct, toSet(sub.OptionIDs)) {
		return Result{Correct: true, EarnedPoints: q.Points}
	}
	return Result{}
}

// helpers

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
