package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examlink/internal/exam"
	"github.com/mind-engage/examlink/internal/grading"
	"github.com/mind-engage/examlink/internal/rbac"
)

// POST /exams/join  { "access_token": "...", "location": {...}? }
//
// Creates or resumes the caller's attempt at the exam behind the token.
func JoinExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AccessToken string               `json:"access_token"`
			Location    *exam.LocationSample `json:"location,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.AccessToken = strings.TrimSpace(req.AccessToken)
		if req.AccessToken == "" {
			http.Error(w, "access_token required", http.StatusBadRequest)
			return
		}
		res, err := svc.JoinByToken(r.Context(), req.AccessToken, rbac.SubjectFromContext(r.Context()), req.Location)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /attempts/{attemptID}/answers
// { "question_id": "...", "text_answer": "..."? , "selected_option_ids": [...]? }
func SubmitAnswerHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		var req struct {
			QuestionID        string   `json:"question_id"`
			TextAnswer        string   `json:"text_answer,omitempty"`
			SelectedOptionIDs []string `json:"selected_option_ids,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.QuestionID == "" {
			http.Error(w, "question_id required", http.StatusBadRequest)
			return
		}
		res, err := svc.SubmitAnswer(r.Context(), rbac.SubjectFromContext(r.Context()), attemptID, req.QuestionID,
			grading.Submission{Text: req.TextAnswer, OptionIDs: req.SelectedOptionIDs})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /attempts/{attemptID}/finalize
func FinalizeAttemptHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		score, err := svc.FinalizeAttempt(r.Context(), rbac.SubjectFromContext(r.Context()), attemptID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"score": score})
	}
}

// GET /attempts/{attemptID}/results
func GetResultsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		res, err := svc.Results(r.Context(), rbac.SubjectFromContext(r.Context()), attemptID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /attempts  — the caller's own attempts, for the dashboard.
func ListMyAttemptsHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListStudentAttempts(r.Context(), rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
