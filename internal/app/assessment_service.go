package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"edudash-assessment-service/internal/domain"
	"edudash-assessment-service/internal/session"
)

// SessionRepository abstracts how live sessions are tracked (in-memory,
// Redis-marked, etc).
type SessionRepository interface {
	Put(id string, sess *session.Session)
	Get(id string) (*session.Session, bool)
	Delete(id string)
}

// QuizRepository loads quiz definitions (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizDefinition, error)
}

// ResultHandoff is the single cross-page slot holding the most recent
// result, overwritten by each new attempt.
type ResultHandoff interface {
	Put(ctx context.Context, result domain.SessionResult) error
	Get(ctx context.Context) (domain.SessionResult, bool, error)
}

// AttemptLookup finds a student's persisted attempt on a quiz.
type AttemptLookup interface {
	ResultFor(ctx context.Context, quizID, studentID string) (domain.SessionResult, bool, error)
}

// Config carries the session tunables.
type Config struct {
	PassThreshold float64
	SubmitTimeout time.Duration
	TickInterval  time.Duration
}

// AssessmentService contains the timed assessment use cases: starting a
// bounded session, recording answers, submitting exactly once, and
// reading results back.
type AssessmentService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	gateway  session.Gateway
	handoff  ResultHandoff
	attempts AttemptLookup
	cfg      Config
	extra    []session.Option
}

func NewAssessmentService(sessions SessionRepository, quizzes QuizRepository, gateway session.Gateway, handoff ResultHandoff, attempts AttemptLookup, cfg Config, extra ...session.Option) *AssessmentService {
	if cfg.PassThreshold == 0 {
		cfg.PassThreshold = session.DefaultPassThreshold
	}
	if cfg.SubmitTimeout == 0 {
		cfg.SubmitTimeout = 10 * time.Second
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Second
	}
	return &AssessmentService{
		sessions: sessions,
		quizzes:  quizzes,
		gateway:  gateway,
		handoff:  handoff,
		attempts: attempts,
		cfg:      cfg,
		extra:    extra,
	}
}

// StartSession fetches the quiz, reconciles duration against deadline,
// and starts the countdown. When the deadline is already past it
// returns an Expired snapshot alongside domain.ErrDeadlinePassed; no
// live session is registered in that case.
func (s *AssessmentService) StartSession(ctx context.Context, quizID, studentID string) (session.Snapshot, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return session.Snapshot{}, err
	}

	id := uuid.NewString()
	opts := []session.Option{
		session.WithPassThreshold(s.cfg.PassThreshold),
		session.WithSubmitTimeout(s.cfg.SubmitTimeout),
		session.WithTickInterval(s.cfg.TickInterval),
		session.WithOnComplete(s.publishResult),
	}
	opts = append(opts, s.extra...)
	sess := session.New(id, studentID, quiz, s.gateway, opts...)

	if err := sess.Begin(); err != nil {
		if errors.Is(err, domain.ErrDeadlinePassed) {
			return sess.Snapshot(), err
		}
		return session.Snapshot{}, err
	}

	s.sessions.Put(id, sess)
	logrus.WithFields(logrus.Fields{"session": id, "quiz": quizID, "student": studentID}).
		Info("assessment session started")
	return sess.Snapshot(), nil
}

func (s *AssessmentService) publishResult(result domain.SessionResult) {
	if s.handoff == nil {
		return
	}
	if err := s.handoff.Put(context.Background(), result); err != nil {
		logrus.WithError(err).Warn("failed to hand off result")
	}
}

// SaveAnswer upserts the student's answer for a question.
func (s *AssessmentService) SaveAnswer(_ context.Context, sessionID, questionID, answerText string) error {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return sess.SetAnswer(questionID, answerText)
}

// Submit drives the session through its single submission entry point.
func (s *AssessmentService) Submit(ctx context.Context, sessionID string) (domain.SessionResult, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionResult{}, domain.ErrSessionNotFound
	}
	return sess.Submit(ctx)
}

// Subscribe returns a channel of session snapshots. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *AssessmentService) Subscribe(_ context.Context, sessionID string) (<-chan session.Snapshot, func(), error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := sess.Subscribe()
	return ch, cancel, nil
}

// Leave discards the session when the client goes away. An unsubmitted
// session is abandoned; a completed one is simply deregistered.
func (s *AssessmentService) Leave(_ context.Context, sessionID string) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	sess.Abandon()
	s.sessions.Delete(sessionID)
}

// Result returns the session's result once it exists.
func (s *AssessmentService) Result(_ context.Context, sessionID string) (domain.SessionResult, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionResult{}, domain.ErrSessionNotFound
	}
	result, ok := sess.Result()
	if !ok {
		return domain.SessionResult{}, domain.ErrAttemptNotFound
	}
	return result, nil
}

// LatestResult reads the cross-page handoff slot.
func (s *AssessmentService) LatestResult(ctx context.Context) (domain.SessionResult, bool, error) {
	if s.handoff == nil {
		return domain.SessionResult{}, false, nil
	}
	return s.handoff.Get(ctx)
}

// QuizListing projects a quiz into its list-view form for a student:
// completed when an attempt exists, expired when the deadline is past,
// available otherwise.
func (s *AssessmentService) QuizListing(ctx context.Context, quizID, studentID string) (domain.QuizListing, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizListing{}, err
	}

	listing := domain.QuizListing{
		QuizID:     quiz.ID,
		Title:      quiz.Title,
		Deadline:   quiz.Deadline,
		Duration:   quiz.DurationSeconds,
		TotalMarks: quiz.TotalMarks,
		Status:     domain.QuizAvailable,
	}
	if s.attempts != nil {
		result, ok, err := s.attempts.ResultFor(ctx, quizID, studentID)
		if err != nil {
			return domain.QuizListing{}, err
		}
		if ok {
			earned := result.EarnedMarks
			listing.Status = domain.QuizCompleted
			listing.Score = &earned
			return listing, nil
		}
	}
	if !quiz.Deadline.After(time.Now()) {
		listing.Status = domain.QuizExpired
	}
	return listing, nil
}
