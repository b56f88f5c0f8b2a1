package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"edudash-assessment-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.QuizDefinition{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryServesStaleOnLoaderFailure(t *testing.T) {
	loader := &flakyLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.QuizDefinition{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)
	repo.clock = func() time.Time { return time.Now() }

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}

	// Expire the cache, then break the loader.
	repo.clock = func() time.Time { return time.Now().Add(2 * time.Minute) }
	loader.fail = true

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("expected stale quiz instead of error, got %v", err)
	}
	if quiz.ID != "quiz-1" {
		t.Fatalf("expected cached definition, got %+v", quiz)
	}
}

type flakyLoader struct {
	QuizLoader
	fail bool
}

func (l *flakyLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizDefinition, error) {
	if l.fail {
		return domain.QuizDefinition{}, errors.New("question bank unreachable")
	}
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func TestQuizRepositoryMissingQuiz(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(nil), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "nope"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected quiz-not-found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizDefinition, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.QuizDefinition {
	return domain.QuizDefinition{
		ID:    "quiz-1",
		Title: "Geography basics",
		Questions: []domain.Question{
			{
				ID:            "q1",
				Prompt:        "Pick the right option",
				Type:          domain.MultipleChoice,
				Options:       []string{"A", "B", "C"},
				CorrectAnswer: "B",
				Marks:         1,
			},
			{
				ID:            "q2",
				Prompt:        "Capital of France",
				Type:          domain.ShortAnswer,
				CorrectAnswer: "Paris",
				Marks:         2,
			},
		},
		DurationSeconds: 600,
		Deadline:        time.Now().Add(time.Hour),
		TotalMarks:      3,
	}
}
