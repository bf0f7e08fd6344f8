package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examlink/internal/exam"
	"github.com/mind-engage/examlink/internal/grading"
	"github.com/mind-engage/examlink/internal/rbac"
)

func asUser(sub, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := rbac.WithSubject(rbac.WithRole(r.Context(), role), sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(t *testing.T) (chi.Router, exam.Store) {
	t.Helper()
	store := exam.NewInMemoryStore()
	svc := exam.NewService(store, grading.NewDefaultGrader())

	r := chi.NewRouter()
	r.Group(func(sr chi.Router) {
		sr.Use(asUser("student-1", "student"))
		sr.Post("/exams/join", JoinExamHandler(svc))
		sr.Post("/attempts/{attemptID}/answers", SubmitAnswerHandler(svc))
		sr.Post("/attempts/{attemptID}/finalize", FinalizeAttemptHandler(svc))
		sr.Get("/attempts/{attemptID}/results", GetResultsHandler(svc))
	})
	r.Group(func(tr chi.Router) {
		tr.Use(asUser("teacher-1", "teacher"))
		tr.Post("/exams", CreateExamHandler(store))
		tr.Post("/exams/{examID}/questions", AddQuestionHandler(store))
		tr.Get("/exams/{examID}/attempts", ListExamAttemptsHandler(store))
	})
	return r, store
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func seedViaStore(t *testing.T, store exam.Store) exam.Exam {
	t.Helper()
	ctx := context.Background()
	e := exam.Exam{
		ID:          "exam-1",
		Title:       "History",
		OwnerID:     "teacher-1",
		AccessToken: "tok12345",
	}
	require.NoError(t, store.PutExam(ctx, e))
	require.NoError(t, store.PutQuestion(ctx, exam.Question{
		ID:           "q1",
		ExamID:       e.ID,
		Prompt:       "First Roman emperor?",
		Modality:     grading.ModalityFreeText,
		Answer:       "Augustus",
		Tolerance:    20,
		TimeLimitSec: 30,
		Points:       1,
	}))
	return e
}

func TestStudentFlowOverHTTP(t *testing.T) {
	r, store := newTestRouter(t)
	e := seedViaStore(t, store)

	rec := doJSON(t, r, http.MethodPost, "/exams/join", map[string]any{
		"access_token": e.AccessToken,
		"location":     map[string]float64{"latitude": 41.9, "longitude": 12.5},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var join exam.JoinResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&join))
	assert.NotEmpty(t, join.AttemptID)
	require.Len(t, join.Questions, 1)
	assert.Empty(t, join.Questions[0].Answer)

	rec = doJSON(t, r, http.MethodPost, "/attempts/"+join.AttemptID+"/answers", map[string]any{
		"question_id": "q1",
		"text_answer": "augustus",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var res grading.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.True(t, res.Correct)

	// duplicate submission surfaces the conflict reason code
	rec = doJSON(t, r, http.MethodPost, "/attempts/"+join.AttemptID+"/answers", map[string]any{
		"question_id": "q1",
		"text_answer": "Nero",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	var errBody map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errBody))
	assert.Equal(t, "question_already_answered", errBody["error"])

	rec = doJSON(t, r, http.MethodPost, "/attempts/"+join.AttemptID+"/finalize", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fin map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fin))
	assert.Equal(t, 100, fin["score"])

	rec = doJSON(t, r, http.MethodGet, "/attempts/"+join.AttemptID+"/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results exam.Results
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&results))
	assert.Equal(t, 100, results.Score)
	assert.Equal(t, 1, results.CorrectAnswers)
}

func TestJoinUnknownTokenIs404(t *testing.T) {
	r, store := newTestRouter(t)
	seedViaStore(t, store)

	rec := doJSON(t, r, http.MethodPost, "/exams/join", map[string]any{"access_token": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errBody map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errBody))
	assert.Equal(t, "exam_not_found", errBody["error"])
}

func TestTeacherAuthoringAndOwnership(t *testing.T) {
	r, store := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/exams", map[string]string{
		"title":    "Biology",
		"audience": "grade 10",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created exam.Exam
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "teacher-1", created.OwnerID)
	assert.Len(t, created.AccessToken, 8)

	rec = doJSON(t, r, http.MethodPost, "/exams/"+created.ID+"/questions", map[string]any{
		"prompt":         "Plant cells have walls?",
		"modality":       "choice",
		"time_limit_sec": 20,
		"points":         1,
		"options": []map[string]any{
			{"text": "Yes", "correct": true},
			{"text": "No"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// invalid question payloads are rejected before hitting the store
	rec = doJSON(t, r, http.MethodPost, "/exams/"+created.ID+"/questions", map[string]any{
		"prompt":         "Broken",
		"modality":       "choice",
		"time_limit_sec": 20,
		"points":         1,
		"options":        []map[string]any{{"text": "only one"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// an exam owned by someone else is off limits
	require.NoError(t, store.PutExam(context.Background(), exam.Exam{
		ID: "other", Title: "Other", OwnerID: "teacher-2", AccessToken: "zz99yy88",
	}))
	rec = doJSON(t, r, http.MethodGet, "/exams/other/attempts", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
