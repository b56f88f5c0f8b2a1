package domain

import "time"

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

// Question is one quiz question. Options is empty for short_answer;
// for the other types it is decoded once at load time from the
// serialized form the question bank stores, never at render time.
type Question struct {
	ID            string       `json:"id"`
	Prompt        string       `json:"prompt"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correctAnswer"`
	Marks         int          `json:"marks"` // defaults to 1 if zero
}

// QuizDefinition is an immutable quiz: a fixed time budget plus an
// absolute deadline after which no attempt may start or continue.
type QuizDefinition struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	TeacherName     string     `json:"teacherName,omitempty"`
	Questions       []Question `json:"questions"`
	DurationSeconds int        `json:"durationSeconds"`
	Deadline        time.Time  `json:"deadline"`
	TotalMarks      int        `json:"totalMarks"`
}

// AnswerEntry pairs a question with the student's current answer text.
// A missing entry means "unanswered", distinct from an empty string.
type AnswerEntry struct {
	QuestionID string `json:"questionId"`
	AnswerText string `json:"answerText"`
}

// SessionState is the lifecycle state of an assessment session.
type SessionState string

const (
	StateLoading    SessionState = "loading"
	StateActive     SessionState = "active"
	StateSubmitting SessionState = "submitting"
	StateCompleted  SessionState = "completed"
	StateExpired    SessionState = "expired"
)

// QuestionFeedback is the per-question breakdown of a scored attempt.
// TeacherFeedback is attached asynchronously by teachers and is only
// ever rendered by the session engine, never written.
type QuestionFeedback struct {
	QuestionID      string `json:"questionId"`
	Prompt          string `json:"prompt,omitempty"`
	StudentAnswer   string `json:"studentAnswer"`
	CorrectAnswer   string `json:"correctAnswer"`
	IsCorrect       bool   `json:"isCorrect"`
	MarksObtained   int    `json:"marksObtained"`
	TotalMarks      int    `json:"totalMarks"`
	TeacherFeedback string `json:"teacherFeedback,omitempty"`
}

// SessionResult is produced once per session, by local scoring
// (optimistic) or by the backend (authoritative). Immutable once set.
type SessionResult struct {
	AttemptID   string             `json:"attemptId"`
	QuizID      string             `json:"quizId"`
	StudentID   string             `json:"studentId"`
	EarnedMarks int                `json:"earnedMarks"`
	TotalMarks  int                `json:"totalMarks"`
	Percentage  float64            `json:"percentage"`
	Passed      bool               `json:"passed"`
	Feedback    []QuestionFeedback `json:"questionFeedback"`

	// Unsynced marks a result computed locally because the backend
	// could not confirm it; a later reconciliation job may retry.
	Unsynced bool `json:"unsynced,omitempty"`
	// Discrepancy marks an authoritative result whose pass/fail verdict
	// disagreed with the locally computed one.
	Discrepancy bool `json:"discrepancy,omitempty"`
}

// AttemptRequest is the submission payload sent to the gateway.
type AttemptRequest struct {
	AttemptID string        `json:"attemptId"`
	StudentID string        `json:"studentId"`
	QuizID    string        `json:"quizId"`
	Answers   []AnswerEntry `json:"answers"`
}

// QuizStatus is the list-view availability of a quiz for a student.
type QuizStatus string

const (
	QuizAvailable QuizStatus = "available"
	QuizCompleted QuizStatus = "completed"
	QuizExpired   QuizStatus = "expired"
)

// QuizListing is the list-view projection of a quiz.
type QuizListing struct {
	QuizID     string     `json:"quizId"`
	Title      string     `json:"title"`
	Deadline   time.Time  `json:"deadline"`
	Duration   int        `json:"durationSeconds"`
	TotalMarks int        `json:"totalMarks"`
	Status     QuizStatus `json:"status"`
	Score      *int       `json:"score,omitempty"`
}
