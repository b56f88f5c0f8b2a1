package memory

import (
	"context"
	"sync"

	"edudash-assessment-service/internal/domain"
	"edudash-assessment-service/internal/session"
)

// AttemptStore is an in-memory grading backend: it scores submissions
// server-side, persists them once per attempt, and serves them back on
// replay. It implements session.Gateway so demos and tests can run
// without the external REST backend.
type AttemptStore struct {
	quizzes       QuizLoader
	passThreshold float64

	mu       sync.RWMutex
	attempts map[string]domain.SessionResult
	byQuiz   map[string]string // quizID+"/"+studentID -> attemptID
}

func NewAttemptStore(quizzes QuizLoader, passThreshold float64) *AttemptStore {
	return &AttemptStore{
		quizzes:       quizzes,
		passThreshold: passThreshold,
		attempts:      make(map[string]domain.SessionResult),
		byQuiz:        make(map[string]string),
	}
}

// Submit grades and persists an attempt. Resubmitting the same attempt
// returns the stored result; the session never sees an error for it.
func (s *AttemptStore) Submit(ctx context.Context, req domain.AttemptRequest) (domain.SessionResult, error) {
	s.mu.RLock()
	existing, ok := s.attempts[req.AttemptID]
	s.mu.RUnlock()
	if ok {
		return existing, nil
	}

	quiz, err := s.quizzes.LoadQuiz(ctx, req.QuizID)
	if err != nil {
		return domain.SessionResult{}, err
	}

	result := session.Score(quiz.Questions, req.Answers, s.passThreshold)
	result.AttemptID = req.AttemptID
	result.QuizID = req.QuizID
	result.StudentID = req.StudentID

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.attempts[req.AttemptID]; ok {
		return existing, nil
	}
	s.attempts[req.AttemptID] = result
	s.byQuiz[req.QuizID+"/"+req.StudentID] = req.AttemptID
	return result, nil
}

func (s *AttemptStore) FetchResult(_ context.Context, quizID, attemptID string) (domain.SessionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.attempts[attemptID]
	if !ok || result.QuizID != quizID {
		return domain.SessionResult{}, domain.ErrAttemptNotFound
	}
	return result, nil
}

// AttachFeedback adds teacher feedback to one question of a persisted
// attempt. Teachers do this asynchronously; the session's result is
// unaffected, readers pick the text up on the next fetch.
func (s *AttemptStore) AttachFeedback(attemptID, questionID, feedback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.attempts[attemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	for i := range result.Feedback {
		if result.Feedback[i].QuestionID == questionID {
			result.Feedback[i].TeacherFeedback = feedback
			s.attempts[attemptID] = result
			return nil
		}
	}
	return domain.ErrAttemptNotFound
}

// ResultFor returns a student's attempt on a quiz, if one exists.
func (s *AttemptStore) ResultFor(_ context.Context, quizID, studentID string) (domain.SessionResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attemptID, ok := s.byQuiz[quizID+"/"+studentID]
	if !ok {
		return domain.SessionResult{}, false, nil
	}
	result, ok := s.attempts[attemptID]
	return result, ok, nil
}
