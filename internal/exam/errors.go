package exam

import "errors"

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindForbidden
	KindInvalid
	KindUnavailable
)

// Error is a typed engine failure with a stable, machine-readable reason
// code. Callers branch on Kind (or errors.Is against a sentinel), never on
// message text.
type Error struct {
	Kind   Kind
	Reason string
	err    error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Reason + ": " + e.err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.err }

var (
	ErrExamNotFound      = &Error{Kind: KindNotFound, Reason: "exam_not_found"}
	ErrQuestionNotFound  = &Error{Kind: KindNotFound, Reason: "question_not_found"}
	ErrAttemptNotFound   = &Error{Kind: KindNotFound, Reason: "attempt_not_found"}
	ErrAttemptCompleted  = &Error{Kind: KindConflict, Reason: "attempt_already_completed"}
	ErrAlreadyAnswered   = &Error{Kind: KindConflict, Reason: "question_already_answered"}
	ErrAnswerOutOfOrder  = &Error{Kind: KindConflict, Reason: "answer_out_of_order"}
	ErrForbidden         = &Error{Kind: KindForbidden, Reason: "forbidden"}
	ErrInvalidSubmission = &Error{Kind: KindInvalid, Reason: "invalid_submission"}
)

// Unavailable wraps a persistence failure so it propagates untouched by
// business logic, distinct from the domain taxonomy.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindUnavailable, Reason: "storage_unavailable", err: err}
}

// KindOf extracts the Kind from an error chain, or zero if the error is
// not a typed engine failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
