package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SQLStore persists exams, attempts and answers through database/sql.
// Placeholders use the $N form, which both the pgx stdlib driver and the
// modernc sqlite driver accept. Uniqueness invariants (one attempt per
// exam/student pair, one answer per attempt/question pair) are enforced by
// constraints, so concurrent first calls resolve in the database rather
// than by read-then-write.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO exams (id,title,description,audience,owner_id,access_token,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description, audience=EXCLUDED.audience`,
		e.ID, e.Title, e.Description, e.Audience, e.OwnerID, e.AccessToken, e.CreatedAt)
	return Unavailable(err)
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	return s.getExamWhere(ctx, `id=$1`, id)
}

func (s *SQLStore) GetExamByToken(ctx context.Context, accessToken string) (Exam, error) {
	return s.getExamWhere(ctx, `access_token=$1`, accessToken)
}

func (s *SQLStore) getExamWhere(ctx context.Context, where string, arg any) (Exam, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,title,description,audience,owner_id,access_token,created_at FROM exams WHERE `+where, arg)
	var e Exam
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Audience, &e.OwnerID, &e.AccessToken, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, ErrExamNotFound
		}
		return Exam{}, Unavailable(err)
	}
	return e, nil
}

func (s *SQLStore) ListExamsByOwner(ctx context.Context, ownerID string) ([]ExamSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id,e.title,e.description,e.audience,e.owner_id,e.access_token,e.created_at,COUNT(q.id)
		 FROM exams e LEFT JOIN questions q ON q.exam_id = e.id
		 WHERE e.owner_id=$1
		 GROUP BY e.id,e.title,e.description,e.audience,e.owner_id,e.access_token,e.created_at
		 ORDER BY e.created_at`, ownerID)
	if err != nil {
		return nil, Unavailable(err)
	}
	defer rows.Close()
	out := []ExamSummary{}
	for rows.Next() {
		var es ExamSummary
		if err := rows.Scan(&es.ID, &es.Title, &es.Description, &es.Audience, &es.OwnerID, &es.AccessToken, &es.CreatedAt, &es.QuestionCount); err != nil {
			return nil, Unavailable(err)
		}
		out = append(out, es)
	}
	return out, Unavailable(rows.Err())
}

func (s *SQLStore) DeleteExam(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exams WHERE id=$1`, id)
	if err != nil {
		return Unavailable(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrExamNotFound
	}
	return nil
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) error {
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Unavailable(err)
	}
	defer tx.Rollback()

	var exist int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM exams WHERE id=$1`, q.ExamID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrExamNotFound
		}
		return Unavailable(err)
	}
	// new questions append at the end of the exam's order
	var pos int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position)+1,0) FROM questions WHERE exam_id=$1`, q.ExamID).Scan(&pos); err != nil {
		return Unavailable(err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO questions
		(id,exam_id,position,prompt,modality,answer,tolerance,options_json,time_limit_sec,points,attachment_url,attachment_type,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET prompt=EXCLUDED.prompt, answer=EXCLUDED.answer, tolerance=EXCLUDED.tolerance,
		options_json=EXCLUDED.options_json, time_limit_sec=EXCLUDED.time_limit_sec, points=EXCLUDED.points,
		attachment_url=EXCLUDED.attachment_url, attachment_type=EXCLUDED.attachment_type`,
		q.ID, q.ExamID, pos, q.Prompt, q.Modality, q.Answer, q.Tolerance, string(oj),
		q.TimeLimitSec, q.Points, q.AttachmentURL, q.AttachmentType, q.CreatedAt)
	if err != nil {
		return Unavailable(err)
	}
	return Unavailable(tx.Commit())
}

func (s *SQLStore) GetQuestions(ctx context.Context, examID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,exam_id,position,prompt,modality,answer,tolerance,options_json,
		time_limit_sec,points,attachment_url,attachment_type,created_at
		FROM questions WHERE exam_id=$1 ORDER BY position`, examID)
	if err != nil {
		return nil, Unavailable(err)
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		var q Question
		var oj string
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Position, &q.Prompt, &q.Modality, &q.Answer, &q.Tolerance, &oj,
			&q.TimeLimitSec, &q.Points, &q.AttachmentURL, &q.AttachmentType, &q.CreatedAt); err != nil {
			return nil, Unavailable(err)
		}
		if err := json.Unmarshal([]byte(oj), &q.Options); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, Unavailable(rows.Err())
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, questionID, examID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1 AND exam_id=$2`, questionID, examID)
	if err != nil {
		return Unavailable(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

func (s *SQLStore) GetOrCreateAttempt(ctx context.Context, examID, studentID string) (Attempt, bool, error) {
	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM exams WHERE id=$1`, examID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, false, ErrExamNotFound
		}
		return Attempt{}, false, Unavailable(err)
	}
	// atomic check-and-insert: the unique (exam_id, student_id) constraint
	// resolves concurrent first joins to a single row
	res, err := s.db.ExecContext(ctx, `INSERT INTO attempts (id,exam_id,student_id,started_at,completed,current_index,score)
		VALUES ($1,$2,$3,$4,0,0,0)
		ON CONFLICT (exam_id, student_id) DO NOTHING`,
		uuid.NewString(), examID, studentID, time.Now().Unix())
	if err != nil {
		return Attempt{}, false, Unavailable(err)
	}
	n, _ := res.RowsAffected()

	row := s.db.QueryRowContext(ctx, `SELECT id,exam_id,student_id,started_at,completed_at,completed,current_index,score
		FROM attempts WHERE exam_id=$1 AND student_id=$2`, examID, studentID)
	a, err := scanAttempt(row)
	if err != nil {
		return Attempt{}, false, err
	}
	return a, n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var completedAt sql.NullInt64
	var completed int
	if err := row.Scan(&a.ID, &a.ExamID, &a.StudentID, &a.StartedAt, &completedAt, &completed, &a.CurrentIndex, &a.Score); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrAttemptNotFound
		}
		return Attempt{}, Unavailable(err)
	}
	a.CompletedAt = completedAt.Int64
	a.Completed = completed != 0
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,exam_id,student_id,started_at,completed_at,completed,current_index,score
		FROM attempts WHERE id=$1`, id)
	return scanAttempt(row)
}

func (s *SQLStore) ListAttemptsByExam(ctx context.Context, examID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,exam_id,student_id,started_at,completed_at,completed,current_index,score
		FROM attempts WHERE exam_id=$1 ORDER BY started_at`, examID)
	if err != nil {
		return nil, Unavailable(err)
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, Unavailable(rows.Err())
}

func (s *SQLStore) ListAttemptsByStudent(ctx context.Context, studentID string) ([]AttemptSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT a.id,a.exam_id,a.student_id,a.started_at,a.completed_at,a.completed,a.current_index,a.score,
		e.title,e.description,e.access_token
		FROM attempts a JOIN exams e ON a.exam_id = e.id
		WHERE a.student_id=$1 ORDER BY a.started_at`, studentID)
	if err != nil {
		return nil, Unavailable(err)
	}
	defer rows.Close()
	out := []AttemptSummary{}
	for rows.Next() {
		var as AttemptSummary
		var completedAt sql.NullInt64
		var completed int
		if err := rows.Scan(&as.ID, &as.ExamID, &as.StudentID, &as.StartedAt, &completedAt, &completed, &as.CurrentIndex, &as.Score,
			&as.ExamTitle, &as.ExamDescription, &as.ExamAccessToken); err != nil {
			return nil, Unavailable(err)
		}
		as.CompletedAt = completedAt.Int64
		as.Completed = completed != 0
		out = append(out, as)
	}
	return out, Unavailable(rows.Err())
}

func (s *SQLStore) RecordAnswer(ctx context.Context, ans Answer) (Attempt, error) {
	sj, err := json.Marshal(ans.OptionIDs)
	if err != nil {
		return Attempt{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, Unavailable(err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT id,exam_id,student_id,started_at,completed_at,completed,current_index,score
		FROM attempts WHERE id=$1`, ans.AttemptID)
	a, err := scanAttempt(row)
	if err != nil {
		return Attempt{}, err
	}
	if a.Completed {
		return Attempt{}, ErrAttemptCompleted
	}
	// the unique (attempt_id, question_id) constraint is the at-most-once
	// backstop; a lost insert race surfaces as zero rows affected
	res, err := tx.ExecContext(ctx, `INSERT INTO answers (id,attempt_id,question_id,text_answer,selected_json,is_correct,earned_points,submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (attempt_id, question_id) DO NOTHING`,
		ans.ID, ans.AttemptID, ans.QuestionID, ans.Text, string(sj), boolToInt(ans.Correct), ans.EarnedPoints, ans.SubmittedAt)
	if err != nil {
		return Attempt{}, Unavailable(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Attempt{}, ErrAlreadyAnswered
	}
	if _, err := tx.ExecContext(ctx, `UPDATE attempts SET current_index = current_index + 1 WHERE id=$1`, ans.AttemptID); err != nil {
		return Attempt{}, Unavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, Unavailable(err)
	}
	a.CurrentIndex++
	return a, nil
}

func (s *SQLStore) ListAnswers(ctx context.Context, attemptID string) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,attempt_id,question_id,text_answer,selected_json,is_correct,earned_points,submitted_at
		FROM answers WHERE attempt_id=$1 ORDER BY submitted_at, id`, attemptID)
	if err != nil {
		return nil, Unavailable(err)
	}
	defer rows.Close()
	out := []Answer{}
	for rows.Next() {
		var ans Answer
		var sj string
		var correct int
		if err := rows.Scan(&ans.ID, &ans.AttemptID, &ans.QuestionID, &ans.Text, &sj, &correct, &ans.EarnedPoints, &ans.SubmittedAt); err != nil {
			return nil, Unavailable(err)
		}
		if err := json.Unmarshal([]byte(sj), &ans.OptionIDs); err != nil {
			return nil, err
		}
		ans.Correct = correct != 0
		out = append(out, ans)
	}
	return out, Unavailable(rows.Err())
}

func (s *SQLStore) FinalizeAttempt(ctx context.Context, attemptID string, score int, completedAt int64) (Attempt, error) {
	// guarded update: a second finalize affects zero rows and falls through
	// to returning the already-stored attempt
	_, err := s.db.ExecContext(ctx, `UPDATE attempts SET completed=1, completed_at=$1, score=$2
		WHERE id=$3 AND completed=0`, completedAt, score, attemptID)
	if err != nil {
		return Attempt{}, Unavailable(err)
	}
	return s.GetAttempt(ctx, attemptID)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
