package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"edudash-assessment-service/internal/domain"
	"edudash-assessment-service/internal/session"
)

// AttemptStore persists scored attempts in Postgres and serves as the
// authoritative grading backend (session.Gateway). Inserts are keyed
// by attempt ID, so a replayed submission returns the original row
// instead of rescoring possibly-edited answers.
type AttemptStore struct {
	pool          *pgxpool.Pool
	quizzes       *QuizLoader
	passThreshold float64
}

func NewAttemptStore(pool *pgxpool.Pool, quizzes *QuizLoader, passThreshold float64) *AttemptStore {
	return &AttemptStore{pool: pool, quizzes: quizzes, passThreshold: passThreshold}
}

func (s *AttemptStore) Submit(ctx context.Context, req domain.AttemptRequest) (domain.SessionResult, error) {
	quiz, err := s.quizzes.LoadQuiz(ctx, req.QuizID)
	if err != nil {
		return domain.SessionResult{}, err
	}

	result := session.Score(quiz.Questions, req.Answers, s.passThreshold)
	result.AttemptID = req.AttemptID
	result.QuizID = req.QuizID
	result.StudentID = req.StudentID

	feedback, err := json.Marshal(result.Feedback)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("marshal feedback: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_attempts (id, quiz_id, student_id, earned_marks, total_marks, percentage, status, feedback)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		result.AttemptID, result.QuizID, result.StudentID,
		result.EarnedMarks, result.TotalMarks, result.Percentage,
		statusOf(result.Passed), feedback)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("insert attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already submitted: return the persisted result, not an error.
		return s.FetchResult(ctx, req.QuizID, req.AttemptID)
	}
	return result, nil
}

func (s *AttemptStore) FetchResult(ctx context.Context, quizID, attemptID string) (domain.SessionResult, error) {
	var result domain.SessionResult
	var status string
	var feedback []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, quiz_id, student_id, earned_marks, total_marks, percentage, status, feedback
		 FROM quiz_attempts WHERE id=$1 AND quiz_id=$2`, attemptID, quizID,
	).Scan(&result.AttemptID, &result.QuizID, &result.StudentID,
		&result.EarnedMarks, &result.TotalMarks, &result.Percentage, &status, &feedback)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SessionResult{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("fetch attempt: %w", err)
	}
	result.Passed = status == "pass"
	if err := json.Unmarshal(feedback, &result.Feedback); err != nil {
		return domain.SessionResult{}, fmt.Errorf("decode feedback: %w", err)
	}
	return result, nil
}

// AttachFeedback adds teacher feedback to one question of a persisted
// attempt. It happens asynchronously, long after submission; readers
// pick the text up on their next fetch.
func (s *AttemptStore) AttachFeedback(ctx context.Context, quizID, attemptID, questionID, text string) error {
	result, err := s.FetchResult(ctx, quizID, attemptID)
	if err != nil {
		return err
	}
	found := false
	for i := range result.Feedback {
		if result.Feedback[i].QuestionID == questionID {
			result.Feedback[i].TeacherFeedback = text
			found = true
			break
		}
	}
	if !found {
		return domain.ErrAttemptNotFound
	}

	feedback, err := json.Marshal(result.Feedback)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE quiz_attempts SET feedback=$1 WHERE id=$2`, feedback, attemptID)
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	return nil
}

// ResultFor returns a student's most recent attempt on a quiz.
func (s *AttemptStore) ResultFor(ctx context.Context, quizID, studentID string) (domain.SessionResult, bool, error) {
	var attemptID string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM quiz_attempts WHERE quiz_id=$1 AND student_id=$2
		 ORDER BY submitted_at DESC LIMIT 1`, quizID, studentID).Scan(&attemptID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SessionResult{}, false, nil
	}
	if err != nil {
		return domain.SessionResult{}, false, fmt.Errorf("lookup attempt: %w", err)
	}
	result, err := s.FetchResult(ctx, quizID, attemptID)
	if err != nil {
		return domain.SessionResult{}, false, err
	}
	return result, true, nil
}

func statusOf(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}
