package exam

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore is the reference Store implementation. It backs tests and
// single-process setups; the SQL store is the production one.
type memoryStore struct {
	mu            sync.RWMutex
	exams         map[string]Exam
	examByToken   map[string]string     // access token -> exam id
	questions     map[string][]Question // exam id -> ordered questions
	attempts      map[string]Attempt
	attemptByPair map[string]string   // examID + "\x00" + studentID -> attempt id
	answers       map[string][]Answer // attempt id -> answers in submission order
}

func NewInMemoryStore() Store {
	return &memoryStore{
		exams:         map[string]Exam{},
		examByToken:   map[string]string{},
		questions:     map[string][]Question{},
		attempts:      map[string]Attempt{},
		attemptByPair: map[string]string{},
		answers:       map[string][]Answer{},
	}
}

func pairKey(examID, studentID string) string { return examID + "\x00" + studentID }

func (m *memoryStore) PutExam(_ context.Context, e Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	if old, ok := m.exams[e.ID]; ok {
		delete(m.examByToken, old.AccessToken)
	}
	m.exams[e.ID] = e
	m.examByToken[e.AccessToken] = e.ID
	return nil
}

func (m *memoryStore) GetExam(_ context.Context, id string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, ErrExamNotFound
	}
	return e, nil
}

func (m *memoryStore) GetExamByToken(_ context.Context, accessToken string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.examByToken[accessToken]
	if !ok {
		return Exam{}, ErrExamNotFound
	}
	return m.exams[id], nil
}

func (m *memoryStore) ListExamsByOwner(_ context.Context, ownerID string) ([]ExamSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []ExamSummary{}
	for _, e := range m.exams {
		if e.OwnerID != ownerID {
			continue
		}
		out = append(out, ExamSummary{Exam: e, QuestionCount: len(m.questions[e.ID])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (m *memoryStore) DeleteExam(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[id]
	if !ok {
		return ErrExamNotFound
	}
	delete(m.exams, id)
	delete(m.examByToken, e.AccessToken)
	delete(m.questions, id)
	for aid, a := range m.attempts {
		if a.ExamID == id {
			delete(m.attempts, aid)
			delete(m.attemptByPair, pairKey(id, a.StudentID))
			delete(m.answers, aid)
		}
	}
	return nil
}

func (m *memoryStore) PutQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[q.ExamID]; !ok {
		return ErrExamNotFound
	}
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}
	qs := m.questions[q.ExamID]
	for i, old := range qs {
		if old.ID == q.ID {
			q.Position = old.Position
			qs[i] = q
			return nil
		}
	}
	q.Position = len(qs)
	m.questions[q.ExamID] = append(qs, q)
	return nil
}

func (m *memoryStore) GetQuestions(_ context.Context, examID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.exams[examID]; !ok {
		return nil, ErrExamNotFound
	}
	qs := m.questions[examID]
	out := make([]Question, len(qs))
	copy(out, qs)
	return out, nil
}

func (m *memoryStore) DeleteQuestion(_ context.Context, questionID, examID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	qs := m.questions[examID]
	for i, q := range qs {
		if q.ID == questionID {
			qs = append(qs[:i], qs[i+1:]...)
			for j := range qs {
				qs[j].Position = j
			}
			m.questions[examID] = qs
			return nil
		}
	}
	return ErrQuestionNotFound
}

func (m *memoryStore) GetOrCreateAttempt(_ context.Context, examID, studentID string) (Attempt, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[examID]; !ok {
		return Attempt{}, false, ErrExamNotFound
	}
	key := pairKey(examID, studentID)
	if id, ok := m.attemptByPair[key]; ok {
		return m.attempts[id], false, nil
	}
	a := Attempt{
		ID:        uuid.NewString(),
		ExamID:    examID,
		StudentID: studentID,
		StartedAt: time.Now().Unix(),
	}
	m.attempts[a.ID] = a
	m.attemptByPair[key] = a.ID
	return a, true, nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (m *memoryStore) ListAttemptsByExam(_ context.Context, examID string) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts {
		if a.ExamID == examID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt < out[j].StartedAt })
	return out, nil
}

func (m *memoryStore) ListAttemptsByStudent(_ context.Context, studentID string) ([]AttemptSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []AttemptSummary{}
	for _, a := range m.attempts {
		if a.StudentID != studentID {
			continue
		}
		e := m.exams[a.ExamID]
		out = append(out, AttemptSummary{
			Attempt:         a,
			ExamTitle:       e.Title,
			ExamDescription: e.Description,
			ExamAccessToken: e.AccessToken,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt < out[j].StartedAt })
	return out, nil
}

func (m *memoryStore) RecordAnswer(_ context.Context, ans Answer) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[ans.AttemptID]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.Completed {
		return Attempt{}, ErrAttemptCompleted
	}
	for _, old := range m.answers[ans.AttemptID] {
		if old.QuestionID == ans.QuestionID {
			return Attempt{}, ErrAlreadyAnswered
		}
	}
	m.answers[ans.AttemptID] = append(m.answers[ans.AttemptID], ans)
	a.CurrentIndex++
	m.attempts[ans.AttemptID] = a
	return a, nil
}

func (m *memoryStore) ListAnswers(_ context.Context, attemptID string) ([]Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.attempts[attemptID]; !ok {
		return nil, ErrAttemptNotFound
	}
	src := m.answers[attemptID]
	out := make([]Answer, len(src))
	copy(out, src)
	return out, nil
}

func (m *memoryStore) FinalizeAttempt(_ context.Context, attemptID string, score int, completedAt int64) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.Completed {
		return a, nil
	}
	a.Completed = true
	a.CompletedAt = completedAt
	a.Score = score
	m.attempts[attemptID] = a
	return a, nil
}
