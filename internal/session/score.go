package session

import (
	"math"
	"strings"

	"edudash-assessment-service/internal/domain"
)

// DefaultPassThreshold is the percentage required to pass when the quiz
// does not configure its own.
const DefaultPassThreshold = 60.0

// Score grades a frozen answer set against the quiz's questions. It is
// a pure function: identical inputs yield byte-identical results.
// Marks are summed in question order, a missing answer scores zero, and
// correctness is a trim-then-exact, case-sensitive comparison for every
// question type, short answers included.
func Score(questions []domain.Question, answers []domain.AnswerEntry, passThreshold float64) domain.SessionResult {
	byQuestion := make(map[string]string, len(answers))
	answered := make(map[string]bool, len(answers))
	for _, entry := range answers {
		byQuestion[entry.QuestionID] = entry.AnswerText
		answered[entry.QuestionID] = true
	}

	earned := 0
	total := 0
	feedback := make([]domain.QuestionFeedback, 0, len(questions))
	for _, q := range questions {
		marks := q.Marks
		if marks == 0 {
			marks = 1
		}
		total += marks

		studentAnswer := byQuestion[q.ID]
		correct := answered[q.ID] &&
			strings.TrimSpace(studentAnswer) == strings.TrimSpace(q.CorrectAnswer)
		obtained := 0
		if correct {
			obtained = marks
		}
		earned += obtained

		feedback = append(feedback, domain.QuestionFeedback{
			QuestionID:    q.ID,
			Prompt:        q.Prompt,
			StudentAnswer: studentAnswer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     correct,
			MarksObtained: obtained,
			TotalMarks:    marks,
		})
	}

	percentage := 0.0
	if total > 0 {
		percentage = round2(float64(earned) / float64(total) * 100)
	}
	return domain.SessionResult{
		EarnedMarks: earned,
		TotalMarks:  total,
		Percentage:  percentage,
		Passed:      total > 0 && percentage >= passThreshold,
		Feedback:    feedback,
	}
}

// round2 rounds to two decimals so repeated scorings of the same
// attempt reproduce the exact same percentage.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
