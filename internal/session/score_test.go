package session

import (
	"reflect"
	"testing"

	"edudash-assessment-service/internal/domain"
)

func exampleQuestions() []domain.Question {
	return []domain.Question{
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
	}
}

func TestScoreExampleAttempt(t *testing.T) {
	answers := []domain.AnswerEntry{
		{QuestionID: "q1", AnswerText: "B"},
		{QuestionID: "q2", AnswerText: "paris"},
	}

	result := Score(exampleQuestions(), answers, DefaultPassThreshold)

	if result.EarnedMarks != 1 || result.TotalMarks != 3 {
		t.Fatalf("expected 1/3 marks, got %d/%d", result.EarnedMarks, result.TotalMarks)
	}
	if result.Percentage != 33.33 {
		t.Fatalf("expected 33.33%%, got %v", result.Percentage)
	}
	if result.Passed {
		t.Fatalf("expected fail below threshold")
	}
	// Case mismatch on the short answer is intended behavior, not a bug.
	if result.Feedback[1].IsCorrect {
		t.Fatalf("expected case-sensitive mismatch for %q", result.Feedback[1].StudentAnswer)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	answers := []domain.AnswerEntry{
		{QuestionID: "q2", AnswerText: "Paris"},
		{QuestionID: "q1", AnswerText: "A"},
	}

	first := Score(exampleQuestions(), answers, DefaultPassThreshold)
	second := Score(exampleQuestions(), answers, DefaultPassThreshold)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %+v vs %+v", first, second)
	}
	// Feedback follows question order regardless of answer order.
	if first.Feedback[0].QuestionID != "q1" || first.Feedback[1].QuestionID != "q2" {
		t.Fatalf("expected feedback in question order, got %+v", first.Feedback)
	}
}

func TestScoreEmptyQuiz(t *testing.T) {
	result := Score(nil, nil, DefaultPassThreshold)
	if result.Percentage != 0 || result.Passed {
		t.Fatalf("expected 0%% fail on empty quiz, got %+v", result)
	}
	if result.EarnedMarks != 0 || result.TotalMarks != 0 {
		t.Fatalf("expected zero marks, got %+v", result)
	}
}

func TestScoreUnansweredIsIncorrect(t *testing.T) {
	result := Score(exampleQuestions(), nil, DefaultPassThreshold)
	if result.EarnedMarks != 0 {
		t.Fatalf("expected no marks for unanswered quiz, got %d", result.EarnedMarks)
	}
	for _, fb := range result.Feedback {
		if fb.IsCorrect || fb.MarksObtained != 0 {
			t.Fatalf("expected unanswered question marked incorrect, got %+v", fb)
		}
	}
}

func TestScoreTrimsBeforeComparing(t *testing.T) {
	answers := []domain.AnswerEntry{
		{QuestionID: "q1", AnswerText: " B "},
		{QuestionID: "q2", AnswerText: "Paris\n"},
	}
	result := Score(exampleQuestions(), answers, DefaultPassThreshold)
	if result.EarnedMarks != 3 {
		t.Fatalf("expected whitespace-trimmed answers to score fully, got %d", result.EarnedMarks)
	}
	if !result.Passed {
		t.Fatalf("expected pass at 100%%")
	}
}

func TestScoreDefaultsZeroMarksToOne(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", Type: domain.TrueFalse, Options: []string{"True", "False"}, CorrectAnswer: "True"},
	}
	result := Score(questions, []domain.AnswerEntry{{QuestionID: "q1", AnswerText: "True"}}, DefaultPassThreshold)
	if result.EarnedMarks != 1 || result.TotalMarks != 1 {
		t.Fatalf("expected zero-mark question to count as 1, got %+v", result)
	}
}
