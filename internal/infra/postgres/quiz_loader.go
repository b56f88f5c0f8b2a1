package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"edudash-assessment-service/internal/domain"
)

// QuizLoader loads quiz definitions from Postgres. The question bank
// stores options as serialized JSON text; they are decoded here, once,
// into the typed ordered sequence the rest of the engine uses.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizDefinition, error) {
	var quiz domain.QuizDefinition
	err := l.pool.QueryRow(ctx,
		`SELECT id, title, description, teacher_name, duration_seconds, deadline, total_marks
		 FROM quizzes WHERE id=$1`, quizID,
	).Scan(&quiz.ID, &quiz.Title, &quiz.Description, &quiz.TeacherName,
		&quiz.DurationSeconds, &quiz.Deadline, &quiz.TotalMarks)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizDefinition{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizDefinition{}, fmt.Errorf("load quiz: %w", err)
	}

	rows, err := l.pool.Query(ctx,
		`SELECT id, prompt, question_type, options, correct_answer, marks
		 FROM questions WHERE quiz_id=$1 ORDER BY order_index, id`, quizID)
	if err != nil {
		return domain.QuizDefinition{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q domain.Question
		var rawOptions string
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Type, &rawOptions, &q.CorrectAnswer, &q.Marks); err != nil {
			return domain.QuizDefinition{}, fmt.Errorf("scan question: %w", err)
		}
		if q.Options, err = decodeOptions(rawOptions); err != nil {
			return domain.QuizDefinition{}, fmt.Errorf("question %s: %w", q.ID, err)
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.QuizDefinition{}, fmt.Errorf("load questions: %w", err)
	}
	return quiz, nil
}

func decodeOptions(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var options []string
	if err := json.Unmarshal([]byte(raw), &options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return options, nil
}
