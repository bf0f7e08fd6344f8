package exam

import "context"

// Store is the persistence boundary for the engine. Any backing
// representation works as long as the contract below holds:
//
//   - GetOrCreateAttempt is atomic for a given (examID, studentID) pair:
//     concurrent first calls produce exactly one attempt.
//   - RecordAnswer persists the answer and advances the pointer as one
//     unit, and rejects a duplicate (attempt, question) pair with
//     ErrAlreadyAnswered.
//   - FinalizeAttempt is a no-op returning the stored attempt when the
//     attempt is already completed.
//
// Exam and question data is read-only to the engine; attempts and answers
// are owned by it.
type Store interface {
	// authoring side
	PutExam(ctx context.Context, e Exam) error
	GetExam(ctx context.Context, id string) (Exam, error)
	GetExamByToken(ctx context.Context, accessToken string) (Exam, error)
	ListExamsByOwner(ctx context.Context, ownerID string) ([]ExamSummary, error)
	DeleteExam(ctx context.Context, id string) error
	PutQuestion(ctx context.Context, q Question) error
	GetQuestions(ctx context.Context, examID string) ([]Question, error)
	DeleteQuestion(ctx context.Context, questionID, examID string) error

	// attempt side
	GetOrCreateAttempt(ctx context.Context, examID, studentID string) (a Attempt, created bool, err error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttemptsByExam(ctx context.Context, examID string) ([]Attempt, error)
	ListAttemptsByStudent(ctx context.Context, studentID string) ([]AttemptSummary, error)
	RecordAnswer(ctx context.Context, a Answer) (Attempt, error)
	ListAnswers(ctx context.Context, attemptID string) ([]Answer, error)
	FinalizeAttempt(ctx context.Context, attemptID string, score int, completedAt int64) (Attempt, error)
}
