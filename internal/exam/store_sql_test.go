package exam

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examlink/internal/db"
	"github.com/mind-engage/examlink/internal/grading"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "examlink_test.db") + "?_pragma=foreign_keys(1)"
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })
	return NewSQLStore(dbh)
}

func TestSQLStoreExamRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	e, qs := seedExam(t, store)

	got, err := store.GetExamByToken(ctx, e.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, e.Title, got.Title)

	_, err = store.GetExamByToken(ctx, "nope")
	assert.ErrorIs(t, err, ErrExamNotFound)

	gotQs, err := store.GetQuestions(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, gotQs, 2)
	assert.Equal(t, qs[0].ID, gotQs[0].ID)
	assert.Equal(t, qs[1].ID, gotQs[1].ID)
	assert.Equal(t, "Paris", gotQs[0].Answer)
	require.Len(t, gotQs[1].Options, 2)
	assert.True(t, gotQs[1].Options[0].Correct)

	sums, err := store.ListExamsByOwner(ctx, e.OwnerID)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 2, sums[0].QuestionCount)
}

func TestSQLStoreAttemptLifecycle(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	e, _ := seedExam(t, store)

	a, created, err := store.GetOrCreateAttempt(ctx, e.ID, "student-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 0, a.CurrentIndex)

	again, created, err := store.GetOrCreateAttempt(ctx, e.ID, "student-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, again.ID)

	_, _, err = store.GetOrCreateAttempt(ctx, "ghost", "student-1")
	assert.ErrorIs(t, err, ErrExamNotFound)

	ans := Answer{
		ID:           "ans-1",
		AttemptID:    a.ID,
		QuestionID:   "q1",
		Text:         "Paris",
		Correct:      true,
		EarnedPoints: 1,
		SubmittedAt:  time.Now().Unix(),
	}
	updated, err := store.RecordAnswer(ctx, ans)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentIndex)

	// duplicate answer for the same question is rejected by constraint
	dup := ans
	dup.ID = "ans-2"
	_, err = store.RecordAnswer(ctx, dup)
	assert.ErrorIs(t, err, ErrAlreadyAnswered)

	answers, err := store.ListAnswers(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "Paris", answers[0].Text)
	assert.True(t, answers[0].Correct)

	fin, err := store.FinalizeAttempt(ctx, a.ID, 50, time.Now().Unix())
	require.NoError(t, err)
	assert.True(t, fin.Completed)
	assert.Equal(t, 50, fin.Score)

	// finalize is a guarded update: a second call keeps the stored score
	fin2, err := store.FinalizeAttempt(ctx, a.ID, 99, time.Now().Unix())
	require.NoError(t, err)
	assert.Equal(t, 50, fin2.Score)

	_, err = store.RecordAnswer(ctx, Answer{ID: "ans-3", AttemptID: a.ID, QuestionID: "q2", SubmittedAt: time.Now().Unix()})
	assert.ErrorIs(t, err, ErrAttemptCompleted)
}

func TestSQLStoreDeleteExamCascades(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	e, _ := seedExam(t, store)

	a, _, err := store.GetOrCreateAttempt(ctx, e.ID, "student-1")
	require.NoError(t, err)

	require.NoError(t, store.DeleteExam(ctx, e.ID))

	_, err = store.GetExam(ctx, e.ID)
	assert.ErrorIs(t, err, ErrExamNotFound)
	_, err = store.GetAttempt(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestSQLStoreServiceEndToEnd(t *testing.T) {
	store := newSQLiteStore(t)
	svc := NewService(store, grading.NewDefaultGrader())
	ctx := context.Background()
	e, _ := seedExam(t, store)

	join, err := svc.JoinByToken(ctx, e.AccessToken, "student-1", nil)
	require.NoError(t, err)

	res, err := svc.SubmitAnswer(ctx, "student-1", join.AttemptID, "q1", grading.Submission{Text: "paris"})
	require.NoError(t, err)
	assert.True(t, res.Correct)

	res, err = svc.SubmitAnswer(ctx, "student-1", join.AttemptID, "q2", grading.Submission{OptionIDs: []string{"o2"}})
	require.NoError(t, err)
	assert.False(t, res.Correct)

	score, err := svc.FinalizeAttempt(ctx, "student-1", join.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, 50, score)

	results, err := svc.Results(ctx, "student-1", join.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, 50, results.Score)
	assert.Equal(t, 1, results.CorrectAnswers)
}
