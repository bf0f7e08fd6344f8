package exam

import "github.com/mind-engage/examlink/internal/grading"

type Exam struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Audience    string `json:"audience,omitempty"`
	OwnerID     string `json:"owner_id"`
	AccessToken string `json:"access_token"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

// ExamSummary is an Exam plus the aggregate counts teacher dashboards want.
type ExamSummary struct {
	Exam
	QuestionCount int `json:"question_count"`
}

type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

type Question struct {
	ID             string   `json:"id"`
	ExamID         string   `json:"exam_id"`
	Position       int      `json:"position"`
	Prompt         string   `json:"prompt"`
	Modality       string   `json:"modality"` // free_text | choice
	Answer         string   `json:"answer,omitempty"`
	Tolerance      int      `json:"tolerance,omitempty"` // percent, free_text only
	Options        []Option `json:"options,omitempty"`
	TimeLimitSec   int      `json:"time_limit_sec"`
	Points         int      `json:"points"`
	AttachmentURL  string   `json:"attachment_url,omitempty"`
	AttachmentType string   `json:"attachment_type,omitempty"`
	CreatedAt      int64    `json:"created_at,omitempty"`
}

// MultiSelect reports whether the question expects more than one option.
// Derived: true iff more than one option is flagged correct.
func (q Question) MultiSelect() bool {
	n := 0
	for _, o := range q.Options {
		if o.Correct {
			n++
		}
	}
	return n > 1
}

// CorrectOptionIDs returns the ids of the options flagged correct.
func (q Question) CorrectOptionIDs() []string {
	var ids []string
	for _, o := range q.Options {
		if o.Correct {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// Sanitized strips the answer key so the question can be served to a
// participant mid-attempt.
func (q Question) Sanitized() Question {
	q.Answer = ""
	q.Tolerance = 0
	opts := make([]Option, len(q.Options))
	for i, o := range q.Options {
		o.Correct = false
		opts[i] = o
	}
	q.Options = opts
	return q
}

// gradingView projects the question onto the evaluator's input.
func (q Question) gradingView() grading.Q {
	return grading.Q{
		Modality:         q.Modality,
		Points:           q.Points,
		Answer:           q.Answer,
		Tolerance:        q.Tolerance,
		CorrectOptionIDs: q.CorrectOptionIDs(),
		MultiSelect:      q.MultiSelect(),
	}
}

type Attempt struct {
	ID           string `json:"id"`
	ExamID       string `json:"exam_id"`
	StudentID    string `json:"student_id"`
	StartedAt    int64  `json:"started_at"`
	CompletedAt  int64  `json:"completed_at,omitempty"`
	Completed    bool   `json:"completed"`
	CurrentIndex int    `json:"current_question_index"`
	Score        int    `json:"score"` // 0-100, meaningful once Completed
}

// AttemptSummary is an Attempt joined with its exam's metadata, for
// student dashboards.
type AttemptSummary struct {
	Attempt
	ExamTitle       string `json:"exam_title"`
	ExamDescription string `json:"exam_description,omitempty"`
	ExamAccessToken string `json:"exam_access_token"`
}

type Answer struct {
	ID           string   `json:"id"`
	AttemptID    string   `json:"attempt_id"`
	QuestionID   string   `json:"question_id"`
	Text         string   `json:"text_answer,omitempty"`
	OptionIDs    []string `json:"selected_option_ids,omitempty"`
	Correct      bool     `json:"is_correct"`
	EarnedPoints int      `json:"earned_points"`
	SubmittedAt  int64    `json:"submitted_at"`
}

// LocationSample is an optional per-attempt audit datum. It is recorded
// verbatim and never validated or acted upon.
type LocationSample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// JoinResult is what a participant gets back when opening an access link:
// the exam, its questions with answer keys stripped, and where they left off.
type JoinResult struct {
	Exam                 Exam       `json:"exam"`
	Questions            []Question `json:"questions"`
	AttemptID            string     `json:"attempt_id"`
	CurrentQuestionIndex int        `json:"current_question_index"`
	Completed            bool       `json:"completed"`
}

type QuestionResult struct {
	ID            string `json:"id"`
	Prompt        string `json:"prompt"`
	Modality      string `json:"modality"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Correct       bool   `json:"is_correct"`
	Points        int    `json:"points"`
	EarnedPoints  int    `json:"earned_points"`
}

type Results struct {
	ExamTitle       string           `json:"exam_title"`
	ExamDescription string           `json:"exam_description,omitempty"`
	Score           int              `json:"score"`
	TotalQuestions  int              `json:"total_questions"`
	CorrectAnswers  int              `json:"correct_answers"`
	Questions       []QuestionResult `json:"questions"`
}
