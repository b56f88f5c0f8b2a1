package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"edudash-assessment-service/internal/domain"
)

// Gateway is the submission backend. Implementations must stay
// stateless and retryable; exactly-once submission is enforced by the
// session state machine, not here. An adapter that learns the attempt
// was already submitted server-side returns the existing authoritative
// result instead of an error.
type Gateway interface {
	Submit(ctx context.Context, req domain.AttemptRequest) (domain.SessionResult, error)
	FetchResult(ctx context.Context, quizID, attemptID string) (domain.SessionResult, error)
}

// Snapshot is the read-only view of a session pushed to subscribers.
type Snapshot struct {
	SessionID        string                `json:"sessionId"`
	QuizID           string                `json:"quizId"`
	State            domain.SessionState   `json:"state"`
	RemainingSeconds int                   `json:"remainingSeconds"`
	AnsweredCount    int                   `json:"answeredCount"`
	QuestionCount    int                   `json:"questionCount"`
	Result           *domain.SessionResult `json:"result,omitempty"`
}

// Option configures a session at construction time.
type Option func(*Session)

// WithClock substitutes the wall clock used for the start-time reconcile.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithTickerFactory substitutes the countdown tick source.
func WithTickerFactory(f TickerFactory) Option {
	return func(s *Session) { s.newTicker = f }
}

// WithTickInterval overrides the one-second countdown granularity.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) { s.tickInterval = d }
}

// WithPassThreshold overrides the default pass percentage.
func WithPassThreshold(t float64) Option {
	return func(s *Session) { s.passThreshold = t }
}

// WithSubmitTimeout bounds how long a submission may stay in flight
// before the session falls back to its optimistic score.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Session) { s.submitTimeout = d }
}

// WithOnComplete registers a callback invoked once, after the session
// reaches Completed.
func WithOnComplete(fn func(domain.SessionResult)) Option {
	return func(s *Session) { s.onComplete = fn }
}

// Session is one student's timed run through a quiz. It owns the
// countdown, the answer store, and the single submission entry point.
type Session struct {
	id        string
	studentID string
	quiz      domain.QuizDefinition
	gateway   Gateway

	now           func() time.Time
	newTicker     TickerFactory
	tickInterval  time.Duration
	passThreshold float64
	submitTimeout time.Duration
	onComplete    func(domain.SessionResult)
	log           *logrus.Entry

	mu          sync.Mutex
	state       domain.SessionState
	remaining   int
	startedAt   time.Time
	answers     *AnswerStore
	result      *domain.SessionResult
	ticker      Ticker
	tickDone    chan struct{}
	submitDone  chan struct{}
	subscribers map[chan Snapshot]struct{}
}

// New builds a session in the Loading state. Begin starts the countdown.
func New(id, studentID string, quiz domain.QuizDefinition, gateway Gateway, opts ...Option) *Session {
	s := &Session{
		id:            id,
		studentID:     studentID,
		quiz:          quiz,
		gateway:       gateway,
		now:           time.Now,
		newTicker:     NewWallTicker,
		tickInterval:  time.Second,
		passThreshold: DefaultPassThreshold,
		submitTimeout: 10 * time.Second,
		state:         domain.StateLoading,
		answers:       NewAnswerStore(quiz.Questions),
		subscribers:   make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logrus.WithFields(logrus.Fields{"session": id, "quiz": quiz.ID})
	return s
}

// ID returns the session (and attempt) identifier.
func (s *Session) ID() string { return s.id }

// Quiz returns the immutable quiz definition this session runs against.
func (s *Session) Quiz() domain.QuizDefinition { return s.quiz }

// Begin reconciles duration against deadline and moves Loading to
// Active, starting the countdown. When the deadline is already past it
// moves to Expired and returns domain.ErrDeadlinePassed; no ticker is
// ever started for such a session.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateLoading {
		return nil
	}
	remaining, err := Reconcile(
		time.Duration(s.quiz.DurationSeconds)*time.Second,
		s.quiz.Deadline,
		s.now(),
	)
	if err != nil {
		s.state = domain.StateExpired
		s.broadcastLocked()
		return err
	}
	s.remaining = remaining
	s.startedAt = s.now()
	s.state = domain.StateActive
	s.ticker = s.newTicker(s.tickInterval)
	s.tickDone = make(chan struct{})
	go s.run(s.ticker, s.tickDone)
	s.broadcastLocked()
	return nil
}

func (s *Session) run(ticker Ticker, done chan struct{}) {
	for {
		select {
		case <-ticker.C():
			s.tick()
		case <-done:
			return
		}
	}
}

// tick decrements the countdown by one whole second. When it reaches
// zero the session routes through the same submission entry point as a
// manual submit, within the same tick.
func (s *Session) tick() {
	s.mu.Lock()
	if s.state != domain.StateActive {
		s.mu.Unlock()
		return
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		s.broadcastLocked()
		s.mu.Unlock()
		return
	}
	s.broadcastLocked()
	s.mu.Unlock()

	s.log.Info("time expired, auto-submitting")
	if _, err := s.Submit(context.Background()); err != nil {
		s.log.WithError(err).Warn("auto-submit did not complete")
	}
}

// SetAnswer upserts the student's answer while the session is Active.
// Edits arriving after the session left Active indicate a UI bug; they
// are logged and rejected without touching the frozen answer set.
func (s *Session) SetAnswer(questionID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateActive {
		s.log.WithField("question", questionID).Warn("dropping answer edit outside active state")
		return domain.ErrAnswerRejected
	}
	return s.answers.Set(questionID, text)
}

// Answer returns the current answer for a question, if any.
func (s *Session) Answer(questionID string) (string, bool) {
	return s.answers.Get(questionID)
}

// Submit is the single submission entry point shared by the timeout and
// the manual path. The first caller freezes the answers, scores them
// locally, and performs the one network submission; every concurrent or
// later caller waits for that submission and receives the identical
// result. The countdown ticker is stopped inside the same critical
// section as the Active -> Submitting transition, but the state guard
// alone is what makes a racing tick harmless.
func (s *Session) Submit(ctx context.Context) (domain.SessionResult, error) {
	s.mu.Lock()
	switch s.state {
	case domain.StateCompleted:
		result := *s.result
		s.mu.Unlock()
		return result, nil
	case domain.StateSubmitting:
		done := s.submitDone
		s.mu.Unlock()
		<-done
		s.mu.Lock()
		result := *s.result
		s.mu.Unlock()
		return result, nil
	case domain.StateActive:
	default:
		state := s.state
		s.mu.Unlock()
		if state == domain.StateExpired {
			return domain.SessionResult{}, domain.ErrDeadlinePassed
		}
		return domain.SessionResult{}, domain.ErrSessionNotFound
	}

	s.state = domain.StateSubmitting
	s.stopTickerLocked()
	s.answers.Freeze()
	frozen := s.answers.Snapshot()
	optimistic := s.stamp(Score(s.quiz.Questions, frozen, s.passThreshold))
	s.submitDone = make(chan struct{})
	done := s.submitDone
	s.broadcastLocked()
	s.mu.Unlock()

	result := s.resolve(ctx, frozen, optimistic)

	s.mu.Lock()
	s.result = &result
	s.state = domain.StateCompleted
	s.broadcastLocked()
	close(done)
	callback := s.onComplete
	s.mu.Unlock()

	if callback != nil {
		callback(result)
	}
	return result, nil
}

// resolve performs the bounded network submission. The student always
// gets a result screen: any gateway failure degrades to the optimistic
// local score, flagged unsynced for a later reconciliation job.
func (s *Session) resolve(ctx context.Context, frozen []domain.AnswerEntry, optimistic domain.SessionResult) domain.SessionResult {
	ctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()

	authoritative, err := s.gateway.Submit(ctx, domain.AttemptRequest{
		AttemptID: s.id,
		StudentID: s.studentID,
		QuizID:    s.quiz.ID,
		Answers:   frozen,
	})
	if err != nil {
		s.log.WithError(err).Warn("submission failed, keeping optimistic score")
		optimistic.Unsynced = true
		return optimistic
	}
	return s.reconcileResults(optimistic, authoritative)
}

// reconcileResults applies last-writer-wins: the server's result
// replaces the local one. A pass/fail disagreement is surfaced on the
// result rather than silently swapped.
func (s *Session) reconcileResults(local, server domain.SessionResult) domain.SessionResult {
	if server.Passed != local.Passed {
		s.log.Warnf("authoritative verdict %v disagrees with local %v", server.Passed, local.Passed)
		server.Discrepancy = true
	}
	return s.stamp(server)
}

func (s *Session) stamp(result domain.SessionResult) domain.SessionResult {
	if result.AttemptID == "" {
		result.AttemptID = s.id
	}
	if result.QuizID == "" {
		result.QuizID = s.quiz.ID
	}
	if result.StudentID == "" {
		result.StudentID = s.studentID
	}
	return result
}

// Abandon discards a session the UI unmounted before submission. The
// ticker stops and subscribers are closed; a submission already in
// flight is left to finish.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateActive && s.state != domain.StateLoading {
		return
	}
	s.stopTickerLocked()
	s.answers.Freeze()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.log.Info("session abandoned before submission")
}

// Result returns the session result once one exists.
func (s *Session) Result() (domain.SessionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.SessionResult{}, false
	}
	return *s.result, true
}

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RemainingSeconds returns the current countdown value.
func (s *Session) RemainingSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Snapshot returns the current read-only view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot on every tick and
// state transition, starting with the current one. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) stopTickerLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.tickDone != nil {
		close(s.tickDone)
		s.tickDone = nil
	}
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest update so a slow reader cannot block the countdown.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:        s.id,
		QuizID:           s.quiz.ID,
		State:            s.state,
		RemainingSeconds: s.remaining,
		AnsweredCount:    s.answers.Len(),
		QuestionCount:    len(s.quiz.Questions),
	}
	if s.result != nil {
		result := *s.result
		snap.Result = &result
	}
	return snap
}
