package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mind-engage/examlink/internal/exam"
	"github.com/mind-engage/examlink/internal/grading"
	"github.com/mind-engage/examlink/internal/rbac"
)

// POST /exams  { "title": "...", "description": "...", "audience": "..." }
func CreateExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Audience    string `json:"audience"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		e := exam.Exam{
			ID:          uuid.NewString(),
			Title:       req.Title,
			Description: req.Description,
			Audience:    req.Audience,
			OwnerID:     rbac.SubjectFromContext(r.Context()),
			AccessToken: uuid.NewString()[:8], // short shareable token
		}
		if err := store.PutExam(r.Context(), e); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

// GET /exams — exams owned by the caller, with question counts.
func ListExamsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListExamsByOwner(r.Context(), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// DELETE /exams/{examID} — cascades to questions, attempts and answers.
func DeleteExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := ownedExam(w, r, store)
		if !ok {
			return
		}
		if err := store.DeleteExam(r.Context(), e.ID); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type questionReq struct {
	Prompt    string `json:"prompt"`
	Modality  string `json:"modality"`
	Answer    string `json:"answer,omitempty"`
	Tolerance int    `json:"tolerance,omitempty"`
	Options   []struct {
		Text    string `json:"text"`
		Correct bool   `json:"correct"`
	} `json:"options,omitempty"`
	TimeLimitSec   int    `json:"time_limit_sec"`
	Points         int    `json:"points"`
	AttachmentURL  string `json:"attachment_url,omitempty"`
	AttachmentType string `json:"attachment_type,omitempty"`
}

// POST /exams/{examID}/questions
func AddQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := ownedExam(w, r, store)
		if !ok {
			return
		}
		var req questionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if msg := validateQuestion(req); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		q := exam.Question{
			ID:             uuid.NewString(),
			ExamID:         e.ID,
			Prompt:         req.Prompt,
			Modality:       req.Modality,
			TimeLimitSec:   req.TimeLimitSec,
			Points:         req.Points,
			AttachmentURL:  req.AttachmentURL,
			AttachmentType: req.AttachmentType,
		}
		if req.Modality == grading.ModalityFreeText {
			q.Answer = req.Answer
			q.Tolerance = req.Tolerance
		} else {
			for _, o := range req.Options {
				q.Options = append(q.Options, exam.Option{ID: uuid.NewString(), Text: o.Text, Correct: o.Correct})
			}
		}
		if err := store.PutQuestion(r.Context(), q); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

func validateQuestion(req questionReq) string {
	if strings.TrimSpace(req.Prompt) == "" {
		return "prompt required"
	}
	if req.TimeLimitSec <= 0 {
		return "time_limit_sec must be positive"
	}
	if req.Points < 1 {
		return "points must be at least 1"
	}
	switch req.Modality {
	case grading.ModalityFreeText:
		if strings.TrimSpace(req.Answer) == "" {
			return "answer required for free_text questions"
		}
		if req.Tolerance < 0 || req.Tolerance > 100 {
			return "tolerance must be between 0 and 100"
		}
	case grading.ModalityChoice:
		if len(req.Options) < 2 {
			return "choice questions need at least two options"
		}
		correct := 0
		for _, o := range req.Options {
			if strings.TrimSpace(o.Text) == "" {
				return "option text required"
			}
			if o.Correct {
				correct++
			}
		}
		if correct == 0 {
			return "at least one option must be correct"
		}
	default:
		return "modality must be free_text or choice"
	}
	return ""
}

// GET /exams/{examID}/questions — full questions including answer keys,
// owner only.
func GetExamQuestionsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := ownedExam(w, r, store)
		if !ok {
			return
		}
		qs, err := store.GetQuestions(r.Context(), e.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, qs)
	}
}

// DELETE /exams/{examID}/questions/{questionID}
func DeleteQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := ownedExam(w, r, store)
		if !ok {
			return
		}
		if err := store.DeleteQuestion(r.Context(), chi.URLParam(r, "questionID"), e.ID); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /exams/{examID}/attempts — owner's view of all attempts on an exam.
func ListExamAttemptsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := ownedExam(w, r, store)
		if !ok {
			return
		}
		list, err := store.ListAttemptsByExam(r.Context(), e.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// ownedExam loads {examID} and enforces the owner boundary: admins pass,
// everyone else must be the exam's author.
func ownedExam(w http.ResponseWriter, r *http.Request, store exam.Store) (exam.Exam, bool) {
	e, err := store.GetExam(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		writeErr(w, err)
		return exam.Exam{}, false
	}
	role := rbac.RoleFromContext(r.Context())
	if role != "admin" && e.OwnerID != rbac.SubjectFromContext(r.Context()) {
		writeErr(w, exam.ErrForbidden)
		return exam.Exam{}, false
	}
	return e, true
}
