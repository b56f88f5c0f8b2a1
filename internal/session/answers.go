package session

import (
	"sync"

	"edudash-assessment-service/internal/domain"
)

// AnswerStore holds the student's in-progress answers for one session.
// It is owned exclusively by that session. Once frozen, mutations are
// rejected so a stray UI event cannot corrupt an already-submitted
// answer set; snapshots taken before the freeze are unaffected either way.
type AnswerStore struct {
	mu     sync.RWMutex
	frozen bool
	order  []string // question order, for stable snapshots
	texts  map[string]string
}

// NewAnswerStore builds an empty store keyed by the quiz's questions.
func NewAnswerStore(questions []domain.Question) *AnswerStore {
	order := make([]string, len(questions))
	for i, q := range questions {
		order[i] = q.ID
	}
	return &AnswerStore{
		order: order,
		texts: make(map[string]string),
	}
}

// Set upserts the answer for a question. An empty string is a real
// answer, distinct from the question being absent from the store.
func (s *AnswerStore) Set(questionID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return domain.ErrAnswerRejected
	}
	s.texts[questionID] = text
	return nil
}

// Get returns the current answer text and whether one exists.
func (s *AnswerStore) Get(questionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.texts[questionID]
	return text, ok
}

// Len reports how many questions have an answer.
func (s *AnswerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.texts)
}

// Freeze rejects all further mutations.
func (s *AnswerStore) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

// Snapshot returns a copy of the answered entries in question order.
// Scoring and submission read only this copy, never the live map.
func (s *AnswerStore) Snapshot() []domain.AnswerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]domain.AnswerEntry, 0, len(s.texts))
	for _, questionID := range s.order {
		if text, ok := s.texts[questionID]; ok {
			entries = append(entries, domain.AnswerEntry{QuestionID: questionID, AnswerText: text})
		}
	}
	return entries
}
