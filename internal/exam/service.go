package exam

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/examlink/internal/audit"
	"github.com/mind-engage/examlink/internal/grading"
)

// Service composes the attempt state machine, the grader and the store
// into the session surface participants and teachers call. It is the sole
// writer of attempts and answers; per-attempt operations serialize on a
// keyed lock so near-simultaneous submits or finalizes cannot double-record.
type Service struct {
	store  Store
	grader grading.Grader
	events audit.Logger
	log    *slog.Logger
	locks  *lockTable
}

type ServiceOption func(*Service)

func WithAuditLog(l audit.Logger) ServiceOption {
	return func(s *Service) { s.events = l }
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

func NewService(store Store, grader grading.Grader, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		grader: grader,
		events: audit.Nop{},
		log:    slog.Default(),
		locks:  newLockTable(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// JoinByToken resolves an access token and creates or resumes the caller's
// attempt. Repeated calls never create duplicates and never reset progress.
// The optional location sample is recorded to the audit log when the
// attempt is first created.
func (s *Service) JoinByToken(ctx context.Context, accessToken, studentID string, loc *LocationSample) (JoinResult, error) {
	e, err := s.store.GetExamByToken(ctx, accessToken)
	if err != nil {
		return JoinResult{}, err
	}
	qs, err := s.store.GetQuestions(ctx, e.ID)
	if err != nil {
		return JoinResult{}, err
	}
	a, created, err := s.store.GetOrCreateAttempt(ctx, e.ID, studentID)
	if err != nil {
		return JoinResult{}, err
	}
	if created {
		payload := map[string]any{"exam_id": e.ID, "student_id": studentID}
		if loc != nil {
			payload["location"] = loc
		}
		if err := s.events.Append(ctx, audit.TypeAttemptStarted, a.ID, payload); err != nil {
			s.log.Warn("audit append failed", "type", audit.TypeAttemptStarted, "attempt", a.ID, "err", err)
		}
		s.log.Info("attempt started", "attempt", a.ID, "exam", e.ID, "student", studentID)
	}
	sanitized := make([]Question, len(qs))
	for i, q := range qs {
		sanitized[i] = q.Sanitized()
	}
	return JoinResult{
		Exam:                 e,
		Questions:            sanitized,
		AttemptID:            a.ID,
		CurrentQuestionIndex: a.CurrentIndex,
		Completed:            a.Completed,
	}, nil
}

// SubmitAnswer records one answer for the attempt's current question,
// grades it and advances the pointer by exactly one. The pointer never
// decreases and never skips: a question behind the pointer is already
// answered, a question ahead of it is out of order.
func (s *Service) SubmitAnswer(ctx context.Context, studentID, attemptID, questionID string, sub grading.Submission) (grading.Result, error) {
	l := s.locks.lock(attemptID)
	defer s.locks.unlock(attemptID, l)

	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return grading.Result{}, err
	}
	if a.StudentID != studentID {
		return grading.Result{}, ErrForbidden
	}
	if a.Completed {
		return grading.Result{}, ErrAttemptCompleted
	}
	qs, err := s.store.GetQuestions(ctx, a.ExamID)
	if err != nil {
		return grading.Result{}, err
	}
	idx := -1
	for i, q := range qs {
		if q.ID == questionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return grading.Result{}, ErrQuestionNotFound
	}
	if idx < a.CurrentIndex {
		return grading.Result{}, ErrAlreadyAnswered
	}
	if idx > a.CurrentIndex {
		return grading.Result{}, ErrAnswerOutOfOrder
	}
	q := qs[idx]
	if err := checkShape(q, sub); err != nil {
		return grading.Result{}, err
	}

	res := s.grader.Grade(ctx, q.gradingView(), sub)
	ans := Answer{
		ID:           uuid.NewString(),
		AttemptID:    attemptID,
		QuestionID:   questionID,
		Text:         sub.Text,
		OptionIDs:    sub.OptionIDs,
		Correct:      res.Correct,
		EarnedPoints: res.EarnedPoints,
		SubmittedAt:  time.Now().Unix(),
	}
	if _, err := s.store.RecordAnswer(ctx, ans); err != nil {
		return grading.Result{}, err
	}
	s.log.Debug("answer recorded",
		"attempt", attemptID, "question", questionID, "correct", res.Correct, "points", res.EarnedPoints)
	return res, nil
}

// checkShape rejects submissions whose payload contradicts the question's
// modality. An empty submission is not a shape error: a timed-out client
// may force-submit nothing, which simply grades as incorrect.
func checkShape(q Question, sub grading.Submission) error {
	switch q.Modality {
	case grading.ModalityFreeText:
		if len(sub.OptionIDs) > 0 {
			return ErrInvalidSubmission
		}
	case grading.ModalityChoice:
		if sub.Text != "" {
			return ErrInvalidSubmission
		}
	}
	return nil
}

// FinalizeAttempt computes and freezes the attempt's score exactly once.
// Calling it again returns the stored score without recomputing. Questions
// never answered contribute zero; finalize never requires a full answer set.
func (s *Service) FinalizeAttempt(ctx context.Context, studentID, attemptID string) (int, error) {
	l := s.locks.lock(attemptID)
	defer s.locks.unlock(attemptID, l)

	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return 0, err
	}
	if a.StudentID != studentID {
		return 0, ErrForbidden
	}
	if a.Completed {
		return a.Score, nil
	}

	qs, err := s.store.GetQuestions(ctx, a.ExamID)
	if err != nil {
		return 0, err
	}
	answers, err := s.store.ListAnswers(ctx, attemptID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, q := range qs {
		total += q.Points
	}
	earned := 0
	for _, ans := range answers {
		earned += ans.EarnedPoints
	}
	score := 0
	if total > 0 {
		score = int(math.Round(float64(earned) / float64(total) * 100))
	}

	final, err := s.store.FinalizeAttempt(ctx, attemptID, score, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	payload := map[string]any{"exam_id": a.ExamID, "student_id": a.StudentID, "score": final.Score}
	if err := s.events.Append(ctx, audit.TypeAttemptFinalized, attemptID, payload); err != nil {
		s.log.Warn("audit append failed", "type", audit.TypeAttemptFinalized, "attempt", attemptID, "err", err)
	}
	s.log.Info("attempt finalized", "attempt", attemptID, "score", final.Score)
	return final.Score, nil
}

// Results returns the finalized (or in-progress) attempt with a
// per-question breakdown. Only the attempt's owner may read it.
func (s *Service) Results(ctx context.Context, studentID, attemptID string) (Results, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Results{}, err
	}
	if a.StudentID != studentID {
		return Results{}, ErrForbidden
	}
	e, err := s.store.GetExam(ctx, a.ExamID)
	if err != nil {
		return Results{}, err
	}
	qs, err := s.store.GetQuestions(ctx, a.ExamID)
	if err != nil {
		return Results{}, err
	}
	answers, err := s.store.ListAnswers(ctx, attemptID)
	if err != nil {
		return Results{}, err
	}
	byQuestion := make(map[string]Answer, len(answers))
	for _, ans := range answers {
		byQuestion[ans.QuestionID] = ans
	}

	out := Results{
		ExamTitle:       e.Title,
		ExamDescription: e.Description,
		Score:           a.Score,
		TotalQuestions:  len(qs),
	}
	for _, q := range qs {
		qr := QuestionResult{
			ID:       q.ID,
			Prompt:   q.Prompt,
			Modality: q.Modality,
			Points:   q.Points,
		}
		switch q.Modality {
		case grading.ModalityChoice:
			qr.CorrectAnswer = joinOptionTexts(q.Options, q.CorrectOptionIDs())
		default:
			qr.CorrectAnswer = q.Answer
		}
		if ans, ok := byQuestion[q.ID]; ok {
			qr.Correct = ans.Correct
			qr.EarnedPoints = ans.EarnedPoints
			switch q.Modality {
			case grading.ModalityChoice:
				qr.UserAnswer = joinOptionTexts(q.Options, ans.OptionIDs)
			default:
				qr.UserAnswer = ans.Text
			}
			if ans.Correct {
				out.CorrectAnswers++
			}
		}
		out.Questions = append(out.Questions, qr)
	}
	return out, nil
}

// ListStudentAttempts returns the caller's attempts joined with exam
// metadata, for the participant dashboard.
func (s *Service) ListStudentAttempts(ctx context.Context, studentID string) ([]AttemptSummary, error) {
	return s.store.ListAttemptsByStudent(ctx, studentID)
}

func joinOptionTexts(opts []Option, ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var texts []string
	for _, o := range opts {
		if _, ok := want[o.ID]; ok {
			texts = append(texts, o.Text)
		}
	}
	return strings.Join(texts, ", ")
}
