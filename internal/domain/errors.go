package domain

import "errors"

var (
	// ErrDeadlinePassed is returned when a quiz's deadline is already in
	// the past at load time; the caller renders a terminal view, never a countdown.
	ErrDeadlinePassed = errors.New("quiz deadline has passed")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSessionNotFound is returned when no live session exists for an ID.
	ErrSessionNotFound = errors.New("assessment session not found")
	// ErrAnswerRejected indicates an answer mutation outside the Active
	// state; it signals a UI/logic bug and is logged, never shown to the student.
	ErrAnswerRejected = errors.New("answer rejected: session is not active")
	// ErrAttemptNotFound indicates no persisted attempt matches the ID.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrGatewayUnavailable wraps transport failures talking to the
	// submission backend; the session degrades to its optimistic score.
	ErrGatewayUnavailable = errors.New("submission gateway unavailable")
)
